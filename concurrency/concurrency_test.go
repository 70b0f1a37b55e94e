package concurrency_test

import (
	"testing"

	"github.com/TuSKan/zarr-go/concurrency"
	"github.com/stretchr/testify/require"
)

func TestSplit_ChunkConcurrencyClampedToChunkCount(t *testing.T) {
	b := concurrency.New(8)
	chunkC, codecC := b.Split(3, 4)
	require.Equal(t, uint64(3), chunkC)
	require.Equal(t, uint64(2), codecC) // 8/3 = 2
}

func TestSplit_ChunkConcurrencyClampedToTarget(t *testing.T) {
	b := concurrency.New(4)
	chunkC, codecC := b.Split(100, 8)
	require.Equal(t, uint64(4), chunkC)
	require.Equal(t, uint64(1), codecC) // 4/4 = 1
}

func TestSplit_CodecConcurrencyClampedToPreferred(t *testing.T) {
	b := concurrency.New(16)
	chunkC, codecC := b.Split(1, 3)
	require.Equal(t, uint64(1), chunkC)
	require.Equal(t, uint64(3), codecC) // 16/1=16, clamped to codec's 3
}

func TestSplit_ZeroChunkCountTreatedAsOne(t *testing.T) {
	b := concurrency.New(4)
	chunkC, codecC := b.Split(0, 0)
	require.Equal(t, uint64(1), chunkC)
	require.Equal(t, uint64(1), codecC)
}

func TestNew_ZeroTargetClampedToOne(t *testing.T) {
	b := concurrency.New(0)
	require.Equal(t, uint64(1), b.Target)
}
