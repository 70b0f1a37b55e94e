package storage_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/storage"
	"github.com/stretchr/testify/require"
)

func buildTestZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestZipStore_ListAndGet(t *testing.T) {
	ctx := context.Background()
	archive := buildTestZip(t, map[string][]byte{
		"a/b/zarr.json": {0, 1, 2, 3},
		"a/c/zarr.json": {},
		"b/zarr.json":   {9},
	})

	backing := storage.NewMemStore()
	require.NoError(t, backing.Set(ctx, "test.zip", archive))

	zs, err := storage.OpenZipStore(ctx, backing, "test.zip", "")
	require.NoError(t, err)

	keys, err := zs.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a/b/zarr.json", "a/c/zarr.json", "b/zarr.json"}, keys)

	v, err := zs.Get(ctx, "a/b/zarr.json")
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3}, v)

	prefixed, err := zs.ListPrefix(ctx, "a/")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a/b/zarr.json", "a/c/zarr.json"}, prefixed)
}

func TestZipStore_RootedAtPath(t *testing.T) {
	ctx := context.Background()
	archive := buildTestZip(t, map[string][]byte{
		"a/b/zarr.json": {0, 1, 2, 3},
		"a/c/zarr.json": {},
		"other/zarr.json": {7},
	})
	backing := storage.NewMemStore()
	require.NoError(t, backing.Set(ctx, "test.zip", archive))

	zs, err := storage.OpenZipStore(ctx, backing, "test.zip", "a/")
	require.NoError(t, err)

	keys, err := zs.List(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b/zarr.json", "c/zarr.json"}, keys)
}
