package arraytoarray_test

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytoarray"
	"github.com/stretchr/testify/require"
)

func TestTranspose_2DRoundtrip(t *testing.T) {
	ctx := context.Background()
	// 2x3 matrix of uint8, row-major: [0 1 2; 3 4 5]
	buf := []byte{0, 1, 2, 3, 4, 5}
	ab := arraybytes.NewFixed(buf)
	rep := codec.ChunkRepresentation{Shape: []uint64{2, 3}, ElementSize: 1}

	tr := arraytoarray.Transpose{Order: []int{1, 0}}
	encRep, err := tr.EncodedRepresentation(rep)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 2}, encRep.Shape)

	encoded, err := tr.Encode(ctx, ab, rep, codec.Options{})
	require.NoError(t, err)
	// Transposed: [0 3; 1 4; 2 5]
	require.Equal(t, []byte{0, 3, 1, 4, 2, 5}, encoded.FixedBytes)

	decoded, err := tr.Decode(ctx, encoded, rep, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, buf, decoded.FixedBytes)
}

func TestFixedScaleOffset_Roundtrip(t *testing.T) {
	ctx := context.Background()
	fso := arraytoarray.FixedScaleOffset{
		Scale: 100, Offset: 0,
		DecodedKind: arraytoarray.Float32,
		EncodedKind: arraytoarray.Int16,
	}
	rep := codec.ChunkRepresentation{Shape: []uint64{3}, ElementSize: 4}

	decoded := arraybytes.NewFixed(f32Bytes(1.23, -4.56, 0))
	encoded, err := fso.Encode(ctx, decoded, rep, codec.Options{})
	require.NoError(t, err)
	require.Len(t, encoded.FixedBytes, 6) // 3 * int16

	roundtrip, err := fso.Decode(ctx, encoded, rep, codec.Options{})
	require.NoError(t, err)
	require.Len(t, roundtrip.FixedBytes, 12)
}

func f32Bytes(vals ...float32) []byte {
	out := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		out = append(out, b...)
	}
	return out
}
