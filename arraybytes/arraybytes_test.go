package arraybytes_test

import (
	"testing"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/TuSKan/zarr-go/subset"
	"github.com/stretchr/testify/require"
)

func TestFixed_ExtractAndUpdateRoundtrip(t *testing.T) {
	// 4x4 array of uint8, row-major 0..15.
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = byte(i)
	}
	ab := arraybytes.NewFixed(buf)

	sub := subset.New([]uint64{1, 1}, []uint64{2, 2})
	extracted, err := ab.ExtractArraySubset(sub, []uint64{4, 4}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6, 9, 10}, extracted.FixedBytes)

	// Overlay a new value back and read it out again.
	newVals := arraybytes.NewFixed([]byte{50, 60, 90, 100})
	require.NoError(t, ab.Update([]uint64{4, 4}, sub, newVals, 1))
	roundtrip, err := ab.ExtractArraySubset(sub, []uint64{4, 4}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{50, 60, 90, 100}, roundtrip.FixedBytes)
}

func TestFixed_IsFillValue(t *testing.T) {
	fv := fillvalue.NewFixed([]byte{0})
	ab := arraybytes.NewFixed([]byte{0, 0, 0, 0})
	require.True(t, ab.IsFillValue(fv))
	ab2 := arraybytes.NewFixed([]byte{0, 0, 1, 0})
	require.False(t, ab2.IsFillValue(fv))
}

func TestVariable_OffsetsInvariant(t *testing.T) {
	_, err := arraybytes.NewVariable([]byte("ab"), []uint64{0, 1})
	require.Error(t, err, "offsets must end at len(data)")

	ok, err := arraybytes.NewVariable([]byte("ab"), []uint64{0, 2})
	require.NoError(t, err)
	require.Equal(t, 1, ok.NumElements(0))
}

func TestVariable_ExtractAndUpdate(t *testing.T) {
	data := []byte("foobarbazqux")
	offsets := []uint64{0, 3, 6, 9, 12}
	ab, err := arraybytes.NewVariable(data, offsets)
	require.NoError(t, err)

	sub := subset.New([]uint64{1}, []uint64{2})
	extracted, err := ab.ExtractArraySubset(sub, []uint64{4}, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("barbaz"), extracted.VariableData)

	replacement, err := arraybytes.NewVariable([]byte("XYbazzz"), []uint64{0, 2, 7})
	require.NoError(t, err)
	require.NoError(t, ab.Update([]uint64{4}, sub, replacement, 0))
	require.Equal(t, []byte("foo"), ab.Element(0, 0))
	require.Equal(t, []byte("XY"), ab.Element(1, 0))
	require.Equal(t, []byte("bazzz"), ab.Element(2, 0))
	require.Equal(t, []byte("qux"), ab.Element(3, 0))
}

func TestDisjointViews_RejectOverlap(t *testing.T) {
	buf := make([]byte, 16)
	_, err := arraybytes.NewDisjointViews(buf, 1, []uint64{4, 4}, []subset.Subset{
		subset.New([]uint64{0, 0}, []uint64{2, 2}),
		subset.New([]uint64{1, 1}, []uint64{2, 2}),
	})
	require.Error(t, err)
}

func TestDisjointViews_ConcurrentWritesMergeCorrectly(t *testing.T) {
	buf := make([]byte, 16)
	views, err := arraybytes.NewDisjointViews(buf, 1, []uint64{4, 4}, []subset.Subset{
		subset.New([]uint64{0, 0}, []uint64{2, 4}),
		subset.New([]uint64{2, 0}, []uint64{2, 4}),
	})
	require.NoError(t, err)

	done := make(chan struct{}, 2)
	go func() {
		_ = views[0].WriteArrayBytes(arraybytes.NewFixed([]byte{1, 1, 1, 1, 1, 1, 1, 1}))
		done <- struct{}{}
	}()
	go func() {
		_ = views[1].WriteArrayBytes(arraybytes.NewFixed([]byte{2, 2, 2, 2, 2, 2, 2, 2}))
		done <- struct{}{}
	}()
	<-done
	<-done

	expected := []byte{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2}
	require.Equal(t, expected, buf)
}
