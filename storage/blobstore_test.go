package storage_test

import (
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/byterange"
	"github.com/TuSKan/zarr-go/storage"
	"github.com/stretchr/testify/require"

	_ "gocloud.dev/blob/memblob"
)

func TestBlobStore_SetGetAndPartial(t *testing.T) {
	ctx := context.Background()
	bs, err := storage.OpenBlobStore(ctx, "mem://")
	require.NoError(t, err)
	defer bs.Close()

	require.NoError(t, bs.Set(ctx, "a/zarr.json", []byte("0123456789")))

	v, err := bs.Get(ctx, "a/zarr.json")
	require.NoError(t, err)
	require.Equal(t, []byte("0123456789"), v)

	missing, err := bs.Get(ctx, "missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	length := uint64(3)
	out, err := bs.GetPartialKey(ctx, "a/zarr.json", []byterange.Range{
		byterange.NewFromStart(2, &length),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("234")}, out)
}

func TestBlobStore_ListDir(t *testing.T) {
	ctx := context.Background()
	bs, err := storage.OpenBlobStore(ctx, "mem://")
	require.NoError(t, err)
	defer bs.Close()

	require.NoError(t, bs.Set(ctx, "a/b/zarr.json", nil))
	require.NoError(t, bs.Set(ctx, "a/c/zarr.json", nil))
	require.NoError(t, bs.Set(ctx, "top.json", nil))

	res, err := bs.ListDir(ctx, "")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"top.json"}, res.Keys)
	require.ElementsMatch(t, []string{"a/"}, res.ChildPrefixes)
}

func TestBlobStore_EraseAndErasePrefix(t *testing.T) {
	ctx := context.Background()
	bs, err := storage.OpenBlobStore(ctx, "mem://")
	require.NoError(t, err)
	defer bs.Close()

	require.NoError(t, bs.Set(ctx, "g/a", []byte("x")))
	require.NoError(t, bs.Set(ctx, "g/b", []byte("y")))
	require.NoError(t, bs.Set(ctx, "h/a", []byte("z")))

	require.NoError(t, bs.ErasePrefix(ctx, "g/"))
	keys, err := bs.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"h/a"}, keys)
}
