package zfp

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/TuSKan/zarr-go/codec"
	"github.com/stretchr/testify/require"
)

func encodeFloat64s(vals []float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeFloat64s(t *testing.T, buf []byte) []float64 {
	t.Helper()
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

func TestReversibleRoundTrip(t *testing.T) {
	vals := []float64{1.5, 1.5, 1.50001, -3.25, 0, math.Pi, 1e10, -1e-10}
	in := encodeFloat64s(vals)
	c := Codec{Mode: Reversible, ElementSize: 8}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)

	decoded, err := c.Decode(context.Background(), encoded, len(in), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in, decoded)
}

func TestReversibleFloat32RoundTrip(t *testing.T) {
	vals := []float32{1, 2, 3, 4, 5.5, -5.5}
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	c := Codec{Mode: Reversible, ElementSize: 4}

	encoded, err := c.Encode(context.Background(), buf, codec.Options{})
	require.NoError(t, err)
	decoded, err := c.Decode(context.Background(), encoded, len(buf), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, buf, decoded)
}

func TestFixedPrecisionIsLossyButBounded(t *testing.T) {
	vals := []float64{1.23456789, 2.3456789, -9.87654321, 100.001}
	in := encodeFloat64s(vals)
	c := Codec{Mode: FixedPrecision, ElementSize: 8, Precision: 20}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)
	decoded, err := c.Decode(context.Background(), encoded, len(in), codec.Options{})
	require.NoError(t, err)

	out := decodeFloat64s(t, decoded)
	for i, v := range vals {
		require.InDelta(t, v, out[i], 1e-3)
	}
}

func TestFixedAccuracyRoundTrip(t *testing.T) {
	vals := []float64{10, 20, 30, -40}
	in := encodeFloat64s(vals)
	c := Codec{Mode: FixedAccuracy, ElementSize: 8, Accuracy: 0.01}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)
	decoded, err := c.Decode(context.Background(), encoded, len(in), codec.Options{})
	require.NoError(t, err)

	out := decodeFloat64s(t, decoded)
	for i, v := range vals {
		require.InDelta(t, v, out[i], 0.02)
	}
}

func TestReversibleConstantBlockCompresses(t *testing.T) {
	vals := make([]float64, 64)
	for i := range vals {
		vals[i] = 7
	}
	in := encodeFloat64s(vals)
	c := Codec{Mode: Reversible, ElementSize: 8}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)
	require.Less(t, len(encoded), len(in))
}
