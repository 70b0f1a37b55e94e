package subset_test

import (
	"testing"

	"github.com/TuSKan/zarr-go/subset"
	"github.com/stretchr/testify/require"
)

func TestSubset_EmptyAndNumElements(t *testing.T) {
	s := subset.New([]uint64{0, 0}, []uint64{2, 3})
	require.False(t, s.Empty())
	require.Equal(t, uint64(6), s.NumElements())

	zero := subset.New([]uint64{0, 0}, []uint64{0, 3})
	require.True(t, zero.Empty())
}

func TestSubset_Overlap(t *testing.T) {
	a := subset.New([]uint64{0, 0}, []uint64{4, 4})
	b := subset.New([]uint64{2, 2}, []uint64{4, 4})
	got, ok := a.Overlap(b)
	require.True(t, ok)
	require.Equal(t, subset.New([]uint64{2, 2}, []uint64{2, 2}), got)

	c := subset.New([]uint64{10, 10}, []uint64{1, 1})
	_, ok = a.Overlap(c)
	require.False(t, ok)
}

func TestSubset_RelativeTo(t *testing.T) {
	s := subset.New([]uint64{5, 6}, []uint64{2, 2})
	rel := s.RelativeTo([]uint64{4, 4})
	require.Equal(t, subset.New([]uint64{1, 2}, []uint64{2, 2}), rel)
}

func TestSubset_Inbounds(t *testing.T) {
	outer := subset.New([]uint64{0, 0}, []uint64{4, 4})
	inner := subset.New([]uint64{1, 1}, []uint64{2, 2})
	require.True(t, outer.Inbounds(inner))
	outside := subset.New([]uint64{3, 3}, []uint64{2, 2})
	require.False(t, outer.Inbounds(outside))
}

func TestSubset_ValidateUnlimitedDimension(t *testing.T) {
	s := subset.New([]uint64{0, 100}, []uint64{2, 5})
	require.NoError(t, s.Validate(2, []uint64{4, 0}))
	require.Error(t, s.Validate(2, []uint64{4, 4}))
}

func TestSubset_Indices(t *testing.T) {
	s := subset.New([]uint64{0, 0}, []uint64{2, 2})
	got := s.Indices()
	require.Equal(t, [][]uint64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, got)
}

func TestSubset_ContiguousIndices_WholeArray(t *testing.T) {
	s := subset.New([]uint64{0, 0}, []uint64{4, 4})
	runs := s.ContiguousIndices([]uint64{4, 4})
	require.Equal(t, []subset.Run{{Start: 0, Length: 16}}, runs)
}

func TestSubset_ContiguousIndices_RowSlice(t *testing.T) {
	// Rows 1..3 of a 4x4 array span the full row width, so each row's
	// worth of elements is contiguous but rows themselves are not
	// adjacent to each other in linear memory beyond their own span.
	// Since every selected row spans the full width, the whole
	// block [1,3) is actually one contiguous run.
	s := subset.New([]uint64{1, 0}, []uint64{2, 4})
	runs := s.ContiguousIndices([]uint64{4, 4})
	require.Equal(t, []subset.Run{{Start: 4, Length: 8}}, runs)
}

func TestSubset_ContiguousIndices_PartialColumns(t *testing.T) {
	// Selecting columns [1,3) of every row: each row contributes one run
	// of length 2, rows are not adjacent (since width isn't fully spanned).
	s := subset.New([]uint64{0, 1}, []uint64{2, 2})
	runs := s.ContiguousIndices([]uint64{2, 4})
	require.Equal(t, []subset.Run{{Start: 1, Length: 2}, {Start: 5, Length: 2}}, runs)
}

func TestSubset_ContiguousIndices_Faithfulness(t *testing.T) {
	shape := []uint64{3, 4}
	s := subset.New([]uint64{1, 1}, []uint64{2, 2})
	runs := s.ContiguousIndices(shape)

	linear := map[uint64]bool{}
	for _, coord := range s.Indices() {
		linear[subset.LinearIndex(coord, shape)] = true
	}
	fromRuns := map[uint64]bool{}
	for _, r := range runs {
		for i := uint64(0); i < r.Length; i++ {
			fromRuns[r.Start+i] = true
		}
	}
	require.Equal(t, linear, fromRuns)
}

func TestIndexer_DecomposeSubset(t *testing.T) {
	ix := subset.NewSubsetIndexer(subset.New([]uint64{1, 1}, []uint64{2, 2}))
	src, dst, outShape, err := ix.Decompose()
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 2}, outShape)
	require.Equal(t, []subset.Subset{subset.New([]uint64{1, 1}, []uint64{2, 2})}, src)
	require.Equal(t, []subset.Subset{subset.New([]uint64{0, 0}, []uint64{2, 2})}, dst)
}

func TestIndexer_DecomposeOrthogonal(t *testing.T) {
	// Rows {0,1,3} x cols {2}: rows split into two runs, [0,2) and [3,4).
	ix := subset.NewOrthogonalIndexer([][]uint64{{0, 1, 3}, {2}})
	src, dst, outShape, err := ix.Decompose()
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1}, outShape)
	require.Equal(t, []subset.Subset{
		subset.New([]uint64{0, 2}, []uint64{2, 1}),
		subset.New([]uint64{3, 2}, []uint64{1, 1}),
	}, src)
	require.Equal(t, []subset.Subset{
		subset.New([]uint64{0, 0}, []uint64{2, 1}),
		subset.New([]uint64{2, 0}, []uint64{1, 1}),
	}, dst)
}

func TestIndexer_DecomposeRejectsUnsortedOrthogonal(t *testing.T) {
	ix := subset.NewOrthogonalIndexer([][]uint64{{3, 1}})
	_, _, _, err := ix.Decompose()
	require.Error(t, err)
}

func TestIndexer_DecomposeRejectsPoints(t *testing.T) {
	ix := subset.NewPointsIndexer([][]uint64{{0, 0}, {1, 1}})
	_, _, _, err := ix.Decompose()
	require.Error(t, err)
}
