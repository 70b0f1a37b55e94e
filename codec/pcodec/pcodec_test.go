package pcodec

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/TuSKan/zarr-go/codec"
	"github.com/stretchr/testify/require"
)

func encodeUint32s(vals []uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func TestCodecRoundTrip(t *testing.T) {
	in := encodeUint32s([]uint32{10, 12, 11, 1000, 999, 0, 4294967295})
	c := Codec{LaneSize: 4}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)

	decoded, err := c.Decode(context.Background(), encoded, len(in), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in, decoded)
}

func TestCodecSmallDeltasCompress(t *testing.T) {
	vals := make([]uint32, 256)
	for i := range vals {
		vals[i] = uint32(i)
	}
	in := encodeUint32s(vals)
	c := Codec{LaneSize: 4}

	encoded, err := c.Encode(context.Background(), in, codec.Options{})
	require.NoError(t, err)
	require.Less(t, len(encoded), len(in))

	decoded, err := c.Decode(context.Background(), encoded, len(in), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, in, decoded)
}

func TestCodecRejectsBadLaneSize(t *testing.T) {
	c := Codec{LaneSize: 3}
	_, err := c.Encode(context.Background(), []byte{1, 2, 3}, codec.Options{})
	require.Error(t, err)
}

func TestCodecRejectsMisalignedInput(t *testing.T) {
	c := Codec{LaneSize: 4}
	_, err := c.Encode(context.Background(), []byte{1, 2, 3}, codec.Options{})
	require.Error(t, err)
}
