package storage_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/TuSKan/zarr-go/storage"
	"github.com/stretchr/testify/require"
)

func TestUsageLog_LogsCalls(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	inner := storage.NewMemStore()
	logged := storage.NewUsageLog(inner, &buf, nil)

	require.NoError(t, logged.Set(ctx, "a", []byte("hello")))
	_, err := logged.Get(ctx, "a")
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.Contains(out, "set(a, len=5)"))
	require.True(t, strings.Contains(out, "get(a) -> len=5"))
}

func TestUsageLog_PrefixFunc(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	inner := storage.NewMemStore()
	logged := storage.NewUsageLog(inner, &buf, func() string { return "[t] " })

	require.NoError(t, logged.Set(ctx, "a", nil))
	require.True(t, strings.HasPrefix(buf.String(), "[t] set(a"))
}
