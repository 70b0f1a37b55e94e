package arraytobytes_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/subset"
	"github.com/stretchr/testify/require"
)

func TestBytes_RoundtripLittleEndian(t *testing.T) {
	ctx := context.Background()
	rep := codec.ChunkRepresentation{Shape: []uint64{4}, ElementSize: 2}
	in := arraybytes.NewFixed([]byte{1, 0, 2, 0, 3, 0, 4, 0})

	c := arraytobytes.Bytes{Order: arraytobytes.LittleEndian}
	enc, err := c.Encode(ctx, in, rep, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in.FixedBytes, enc)

	dec, err := c.Decode(ctx, enc, rep, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in.FixedBytes, dec.FixedBytes)
}

func TestBytes_RoundtripBigEndianSwapsBytes(t *testing.T) {
	ctx := context.Background()
	rep := codec.ChunkRepresentation{Shape: []uint64{2}, ElementSize: 2}
	in := arraybytes.NewFixed([]byte{0x01, 0x02, 0x03, 0x04})

	c := arraytobytes.Bytes{Order: arraytobytes.BigEndian}
	enc, err := c.Encode(ctx, in, rep, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, enc)

	dec, err := c.Decode(ctx, enc, rep, codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in.FixedBytes, dec.FixedBytes)
}

func TestBytes_DecodeLengthMismatch(t *testing.T) {
	ctx := context.Background()
	rep := codec.ChunkRepresentation{Shape: []uint64{4}, ElementSize: 2}
	c := arraytobytes.Bytes{}
	_, err := c.Decode(ctx, []byte{1, 2, 3}, rep, codec.Options{})
	require.Error(t, err)
}

// fakeInput is an in-memory codec.InputHandle over a flat byte buffer,
// serving byte-range subsets back as slices.
type fakeInput struct {
	data []byte
}

func (f fakeInput) PartialRead(ctx context.Context, ranges []subset.Subset) ([][]byte, error) {
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		start := r.Start[0]
		end := start + r.Shape[0]
		if end > uint64(len(f.data)) {
			return nil, fmt.Errorf("fakeInput: range [%d,%d) out of bounds (len=%d)", start, end, len(f.data))
		}
		out[i] = append([]byte(nil), f.data[start:end]...)
	}
	return out, nil
}

func (f fakeInput) Size(ctx context.Context) (*uint64, error) {
	n := uint64(len(f.data))
	return &n, nil
}

func TestBytes_PartialDecodeContiguousRun(t *testing.T) {
	ctx := context.Background()
	// 4x4 array of uint8 elements, row-major: rows 1..3 (shape {2,4})
	// span full rows, so the contiguous-run collapse turns this
	// into a single byte-range read.
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	rep := codec.ChunkRepresentation{Shape: []uint64{4, 4}, ElementSize: 1}
	input := fakeInput{data: data}

	decoder := arraytobytes.BytesPartialDecoder{
		Codec: arraytobytes.Bytes{Order: arraytobytes.LittleEndian},
		Input: input,
		Rep:   rep,
	}

	sub := subset.New([]uint64{1, 0}, []uint64{2, 4})
	out, err := decoder.PartialDecode(ctx, []subset.Subset{sub}, codec.Options{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, data[4:12], out[0].FixedBytes)
}

func TestBytes_PartialDecodeMultiByteElementAndBigEndian(t *testing.T) {
	ctx := context.Background()
	// 2 elements of 2 bytes each, big-endian on the wire.
	data := []byte{0x00, 0x01, 0x00, 0x02}
	rep := codec.ChunkRepresentation{Shape: []uint64{2}, ElementSize: 2}
	input := fakeInput{data: data}

	decoder := arraytobytes.BytesPartialDecoder{
		Codec: arraytobytes.Bytes{Order: arraytobytes.BigEndian},
		Input: input,
		Rep:   rep,
	}

	sub := subset.New([]uint64{0}, []uint64{2})
	out, err := decoder.PartialDecode(ctx, []subset.Subset{sub}, codec.Options{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []byte{0x01, 0x00, 0x02, 0x00}, out[0].FixedBytes)
}

func TestEndianFromString(t *testing.T) {
	le, err := arraytobytes.EndianFromString("little")
	require.NoError(t, err)
	require.Equal(t, arraytobytes.LittleEndian, le)

	be, err := arraytobytes.EndianFromString("big")
	require.NoError(t, err)
	require.Equal(t, arraytobytes.BigEndian, be)

	_, err = arraytobytes.EndianFromString("middle")
	require.Error(t, err)
}
