package zarr_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/cache"
	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/TuSKan/zarr-go/storage"
	"github.com/TuSKan/zarr-go/subset"
	"github.com/TuSKan/zarr-go/zarr"
)

// countingStore wraps a MemStore and counts Get calls, letting tests
// assert the chunk cache actually dedups storage reads.
type countingStore struct {
	*storage.MemStore
	mu   sync.Mutex
	gets int
}

func (s *countingStore) Get(ctx context.Context, key storage.Key) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.MemStore.Get(ctx, key)
}

func (s *countingStore) GetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func newCountingStore() *countingStore {
	return &countingStore{MemStore: storage.NewMemStore()}
}

func TestCachedArray_DecodedModeDedupsStorageReads(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	a := uint8Array4x4(store)
	require.NoError(t, a.StoreChunk(ctx, []uint64{0, 0}, arraybytes.NewFixed([]byte{1, 2, 5, 6})))

	c, err := cache.NewChunkLimit(4)
	require.NoError(t, err)
	ca := zarr.NewCachedArray(a, c, zarr.CacheDecoded)

	got1, err := ca.RetrieveChunk(ctx, []uint64{0, 0})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 5, 6}, got1.FixedBytes)

	got2, err := ca.RetrieveChunk(ctx, []uint64{0, 0})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 5, 6}, got2.FixedBytes)

	require.Equal(t, 1, store.GetCount()) // second call served from cache
	require.Equal(t, 1, ca.CachedLen())
}

func TestCachedArray_EncodedModeRedecodesEachHit(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	a := uint8Array4x4(store)
	require.NoError(t, a.StoreChunk(ctx, []uint64{0, 1}, arraybytes.NewFixed([]byte{3, 4, 7, 8})))

	c, err := cache.NewChunkLimit(4)
	require.NoError(t, err)
	ca := zarr.NewCachedArray(a, c, zarr.CacheEncoded)

	got1, err := ca.RetrieveChunk(ctx, []uint64{0, 1})
	require.NoError(t, err)
	got2, err := ca.RetrieveChunk(ctx, []uint64{0, 1})
	require.NoError(t, err)
	require.Equal(t, got1, got2)
	require.Equal(t, 1, store.GetCount()) // the raw encoded bytes are cached too
}

func TestCachedArray_AbsentChunkCachesFillValue(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	a := uint8Array4x4(store)

	c, err := cache.NewChunkLimit(4)
	require.NoError(t, err)
	ca := zarr.NewCachedArray(a, c, zarr.CacheEncoded)

	got, err := ca.RetrieveChunk(ctx, []uint64{1, 1})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, got.FixedBytes)

	got, err = ca.RetrieveChunk(ctx, []uint64{1, 1})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, got.FixedBytes)
	require.Equal(t, 1, store.GetCount())
}

func TestCachedArray_ReadArraySubsetRoutesThroughCache(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	a := uint8Array4x4(store)
	require.NoError(t, a.StoreChunk(ctx, []uint64{0, 0}, arraybytes.NewFixed([]byte{1, 2, 5, 6})))
	require.NoError(t, a.StoreChunk(ctx, []uint64{0, 1}, arraybytes.NewFixed([]byte{3, 4, 7, 8})))
	require.NoError(t, a.StoreChunk(ctx, []uint64{1, 0}, arraybytes.NewFixed([]byte{9, 10, 13, 14})))
	require.NoError(t, a.StoreChunk(ctx, []uint64{1, 1}, arraybytes.NewFixed([]byte{11, 12, 15, 16})))

	c, err := cache.NewChunkLimit(8)
	require.NoError(t, err)
	ca := zarr.NewCachedArray(a, c, zarr.CacheDecoded)

	full, err := ca.ReadArraySubset(ctx, subset.New([]uint64{0, 0}, []uint64{4, 4}))
	require.NoError(t, err)
	require.Equal(t, []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, full.FixedBytes)
	require.Equal(t, 4, store.GetCount())

	// Re-reading a one-row strip through all four chunks hits the cache
	// only, no further storage reads.
	_, err = ca.ReadArraySubset(ctx, subset.New([]uint64{1, 0}, []uint64{1, 4}))
	require.NoError(t, err)
	require.Equal(t, 4, store.GetCount())
}

func TestCachedArray_SizeLimitEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	meta := &zarr.Metadata{
		Path:             "d",
		ZarrFormat:       3,
		Shape:            []uint64{8, 2},
		DataType:         zarr.DataType{Name: "uint8", ElementSize: 1},
		FillValue:        fillvalue.NewFixed([]byte{0}),
		ChunkGrid:        chunkgrid.NewRegular([]uint64{2, 2}),
		ChunkKeyEncoding: zarr.NewDefaultKeyEncoding("/"),
		Codecs:           codec.Chain{ArrayToBytes: arraytobytes.Bytes{Order: arraytobytes.LittleEndian}},
	}
	a := zarr.NewArray(store, meta)
	for i := uint64(0); i < 4; i++ {
		require.NoError(t, a.StoreChunk(ctx, []uint64{i, 0}, arraybytes.NewFixed([]byte{1, 2, 3, 4})))
	}

	limit := cache.NewSizeLimit(4) // each decoded entry is 5 bytes (tag + 4), so only the newest is kept
	ca := zarr.NewCachedArray(a, limit, zarr.CacheDecoded)

	_, err := ca.RetrieveChunk(ctx, []uint64{0, 0})
	require.NoError(t, err)
	require.Equal(t, 1, ca.CachedLen())

	_, err = ca.RetrieveChunk(ctx, []uint64{1, 0})
	require.NoError(t, err)
	require.Equal(t, 1, ca.CachedLen()) // eviction kept the cache at capacity
}
