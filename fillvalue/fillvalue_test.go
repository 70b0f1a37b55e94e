package fillvalue_test

import (
	"math"
	"testing"

	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/stretchr/testify/require"
)

func TestFillValue_IsFillValue(t *testing.T) {
	fv := fillvalue.NewFixed([]byte{0, 0, 0, 0})
	require.True(t, fv.IsFillValue([]byte{0, 0, 0, 0, 0, 0, 0, 0}))
	require.False(t, fv.IsFillValue([]byte{0, 0, 0, 1}))
}

func TestFillValue_Fill(t *testing.T) {
	fv := fillvalue.NewFixed([]byte{1, 2})
	buf := make([]byte, 6)
	fv.Fill(buf)
	require.Equal(t, []byte{1, 2, 1, 2, 1, 2}, buf)
}

func TestFillValue_Validate(t *testing.T) {
	fv := fillvalue.NewFixed([]byte{0, 0, 0, 0})
	require.NoError(t, fv.Validate(4))
	require.Error(t, fv.Validate(8))
}

func TestCanonicalFloat32_NaNStability(t *testing.T) {
	a := fillvalue.CanonicalFloat32(float32(math.NaN()))
	// A different NaN payload (a quiet NaN with a non-zero low payload
	// bit) must still canonicalize identically.
	b := fillvalue.CanonicalFloat32(math.Float32frombits(0x7fc00001))
	require.Equal(t, a, b)
}

func TestFillValue_VariableSentinel(t *testing.T) {
	fv := fillvalue.NewVariableSentinel()
	require.True(t, fv.IsFillValue(nil))
	require.NoError(t, fv.Validate(4))
}
