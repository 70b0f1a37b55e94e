package bytestobytes_test

import (
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/bytestobytes"
	"github.com/stretchr/testify/require"
)

func TestBlosc_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Blosc{TypeSize: 4, Level: 5}
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}
