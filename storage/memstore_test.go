package storage_test

import (
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/byterange"
	"github.com/TuSKan/zarr-go/storage"
	"github.com/stretchr/testify/require"
)

func TestMemStore_SetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()

	require.NoError(t, s.Set(ctx, "a/b", []byte("hello")))
	v, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), v)

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestMemStore_GetPartial(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	require.NoError(t, s.Set(ctx, "k", []byte("0123456789")))

	out, err := s.GetPartialKey(ctx, "k", []byterange.Range{
		byterange.NewFromStart(2, ptrU64(3)),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("234")}, out)
}

func ptrU64(v uint64) *uint64 { return &v }

func TestMemStore_SetPartialGrowsValue(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	require.NoError(t, s.Set(ctx, "k", []byte("ab")))

	err := s.SetPartial(ctx, "k", []storage.OffsetValue{
		{Offset: 4, Value: []byte("Z")},
	})
	require.NoError(t, err)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte{'a', 'b', 0, 0, 'Z'}, v)
}

func TestMemStore_ListDirSplitsKeysAndPrefixes(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	require.NoError(t, s.Set(ctx, "a/b/zarr.json", nil))
	require.NoError(t, s.Set(ctx, "a/c/zarr.json", nil))
	require.NoError(t, s.Set(ctx, "b/zarr.json", nil))

	res, err := s.ListDir(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a/", "b/"}, res.ChildPrefixes)
	require.Empty(t, res.Keys)

	res2, err := s.ListDir(ctx, "a/")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a/b/", "a/c/"}, res2.ChildPrefixes)
}

func TestMemStore_ErasePrefix(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	require.NoError(t, s.Set(ctx, "g/a/zarr.json", nil))
	require.NoError(t, s.Set(ctx, "g/b/zarr.json", nil))
	require.NoError(t, s.Set(ctx, "other/zarr.json", nil))

	require.NoError(t, s.ErasePrefix(ctx, "g/"))
	keys, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"other/zarr.json"}, keys)
}
