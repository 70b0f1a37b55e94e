package vlenv2_test

import (
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/vlenv2"
	"github.com/stretchr/testify/require"
)

func mustVariable(t *testing.T, elements [][]byte) arraybytes.ArrayBytes {
	t.Helper()
	var data []byte
	offsets := []uint64{0}
	for _, el := range elements {
		data = append(data, el...)
		offsets = append(offsets, uint64(len(data)))
	}
	ab, err := arraybytes.NewVariable(data, offsets)
	require.NoError(t, err)
	return ab
}

func TestCodec_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := vlenv2.Codec{}
	in := mustVariable(t, [][]byte{[]byte("hello"), []byte(""), []byte("world!"), []byte("x")})
	rep := codec.ChunkRepresentation{Shape: []uint64{4}}

	enc, err := c.Encode(ctx, in, rep, codec.Options{})
	require.NoError(t, err)

	dec, err := c.Decode(ctx, enc, rep, codec.Options{})
	require.NoError(t, err)
	require.True(t, in.Equal(dec))
}

func TestCodec_RoundtripEmptySet(t *testing.T) {
	ctx := context.Background()
	c := vlenv2.Codec{}
	in := mustVariable(t, nil)
	rep := codec.ChunkRepresentation{Shape: []uint64{0}}

	enc, err := c.Encode(ctx, in, rep, codec.Options{})
	require.NoError(t, err)

	dec, err := c.Decode(ctx, enc, rep, codec.Options{})
	require.NoError(t, err)
	require.True(t, in.Equal(dec))
}

func TestCodec_RejectsFixedInput(t *testing.T) {
	ctx := context.Background()
	c := vlenv2.Codec{}
	_, err := c.Encode(ctx, arraybytes.NewFixed([]byte{1, 2, 3, 4}), codec.ChunkRepresentation{}, codec.Options{})
	require.Error(t, err)
}

func TestCodec_DecodeRejectsElementCountMismatch(t *testing.T) {
	ctx := context.Background()
	c := vlenv2.Codec{}
	in := mustVariable(t, [][]byte{[]byte("a"), []byte("b")})
	rep := codec.ChunkRepresentation{Shape: []uint64{2}}
	enc, err := c.Encode(ctx, in, rep, codec.Options{})
	require.NoError(t, err)

	wrongRep := codec.ChunkRepresentation{Shape: []uint64{3}}
	_, err = c.Decode(ctx, enc, wrongRep, codec.Options{})
	require.Error(t, err)
}
