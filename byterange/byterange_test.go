package byterange_test

import (
	"bytes"
	"testing"

	"github.com/TuSKan/zarr-go/byterange"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func TestRange_ResolveFromStart(t *testing.T) {
	r := byterange.NewFromStart(2, u64(3))
	resolved, err := r.Resolve(10)
	require.NoError(t, err)
	require.Equal(t, byterange.Resolved{Start: 2, End: 5}, resolved)
}

func TestRange_ResolveFromStartToEnd(t *testing.T) {
	r := byterange.NewFromStart(2, nil)
	resolved, err := r.Resolve(10)
	require.NoError(t, err)
	require.Equal(t, byterange.Resolved{Start: 2, End: 10}, resolved)
}

func TestRange_ResolveFromEnd(t *testing.T) {
	r := byterange.NewFromEnd(2, u64(3))
	resolved, err := r.Resolve(10)
	require.NoError(t, err)
	require.Equal(t, byterange.Resolved{Start: 5, End: 8}, resolved)
}

func TestRange_ResolveFromEndToStart(t *testing.T) {
	r := byterange.NewFromEnd(2, nil)
	resolved, err := r.Resolve(10)
	require.NoError(t, err)
	require.Equal(t, byterange.Resolved{Start: 0, End: 8}, resolved)
}

func TestRange_ResolveOutOfBounds(t *testing.T) {
	r := byterange.NewFromStart(8, u64(5))
	_, err := r.Resolve(10)
	require.Error(t, err)
}

func TestExtractFromBytes_Identity(t *testing.T) {
	buf := []byte("0123456789")
	ranges := []byterange.Range{
		byterange.NewFromStart(0, u64(3)),
		byterange.NewFromEnd(0, u64(4)),
		byterange.NewFromStart(5, nil),
	}
	got, err := byterange.ExtractFromBytes(buf, ranges)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("012"), []byte("6789"), []byte("56789")}, got)
}

func TestExtractFromReaderAt(t *testing.T) {
	buf := []byte("abcdefghij")
	got, err := byterange.ExtractFromReaderAt(bytes.NewReader(buf), uint64(len(buf)), []byterange.Range{
		byterange.NewFromStart(1, u64(2)),
		byterange.NewFromStart(7, u64(3)),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("bc"), []byte("hij")}, got)
}

func TestExtractFromStream_UnsortedRanges(t *testing.T) {
	buf := []byte("the quick brown fox jumps")
	ranges := []byterange.Range{
		byterange.NewFromStart(4, u64(5)),  // "quick"
		byterange.NewFromStart(0, u64(3)),  // "the"
		byterange.NewFromStart(10, u64(5)), // "brown"
	}
	got, err := byterange.ExtractFromStream(bytes.NewReader(buf), uint64(len(buf)), ranges)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("quick"), []byte("the"), []byte("brown")}, got)
}

func TestExtractFromStream_EmptyRange(t *testing.T) {
	buf := []byte("hello")
	zero := u64(0)
	got, err := byterange.ExtractFromStream(bytes.NewReader(buf), uint64(len(buf)), []byterange.Range{
		byterange.NewFromStart(2, zero),
	})
	require.NoError(t, err)
	require.Equal(t, [][]byte{{}}, got)
}
