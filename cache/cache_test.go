package cache_test

import (
	"sync/atomic"
	"testing"

	"github.com/TuSKan/zarr-go/cache"
	"github.com/stretchr/testify/require"
)

func TestIndicesKey(t *testing.T) {
	require.Equal(t, "1/2/3", cache.IndicesKey([]uint64{1, 2, 3}))
	require.Equal(t, "", cache.IndicesKey(nil))
}

func TestChunkLimit_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := cache.NewChunkLimit(2)
	require.NoError(t, err)

	c.Insert("a", &cache.Entry{Value: []byte("A")})
	c.Insert("b", &cache.Entry{Value: []byte("B")})
	c.Insert("c", &cache.Entry{Value: []byte("C")}) // evicts "a"

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestChunkLimit_GetOrInsertSingleFlight(t *testing.T) {
	c, err := cache.NewChunkLimit(4)
	require.NoError(t, err)

	var calls int64
	fn := func() (*cache.Entry, error) {
		atomic.AddInt64(&calls, 1)
		return &cache.Entry{Value: []byte("v")}, nil
	}

	done := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := c.GetOrInsert("k", fn)
			require.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestSizeLimit_EvictsUntilWithinCapacity(t *testing.T) {
	c := cache.NewSizeLimit(10)
	c.Insert("a", &cache.Entry{Value: []byte("aaaaa"), Size: 5})
	c.Insert("b", &cache.Entry{Value: []byte("bbbbb"), Size: 5})
	require.Equal(t, 2, c.Len())

	c.Insert("c", &cache.Entry{Value: []byte("ccccc"), Size: 5}) // evicts "a"

	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestSizeLimit_GetTouchesRecency(t *testing.T) {
	c := cache.NewSizeLimit(10)
	c.Insert("a", &cache.Entry{Size: 5})
	c.Insert("b", &cache.Entry{Size: 5})
	_, _ = c.Get("a") // "a" now most-recently-used; "b" becomes LRU

	c.Insert("c", &cache.Entry{Size: 5}) // evicts "b"

	_, ok := c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
}

func TestSizeLimit_Purge(t *testing.T) {
	c := cache.NewSizeLimit(10)
	c.Insert("a", &cache.Entry{Size: 5})
	c.Purge()
	require.Equal(t, 0, c.Len())
}
