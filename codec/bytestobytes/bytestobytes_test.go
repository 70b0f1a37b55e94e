package bytestobytes_test

import (
	"context"
	"testing"

	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/bytestobytes"
	"github.com/stretchr/testify/require"
)

func TestGzip_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Gzip{}
	data := []byte("the quick brown fox jumps over the lazy dog, repeated, repeated, repeated")

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestZlib_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Zlib{}
	data := []byte("zlib framing, same deflate underneath, same deflate underneath")

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestZstd_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Zstd{}
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 7)
	}

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestCrc32c_RoundtripAndMismatch(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Crc32c{}
	data := []byte("payload")

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)

	corrupt := append([]byte(nil), enc...)
	corrupt[0] ^= 0xFF
	_, err = c.Decode(ctx, corrupt, len(data), codec.Options{})
	require.Error(t, err)
}

func TestGdeflate_RoundtripMultiPage(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Gdeflate{}
	// 65537 bytes exercises a full page plus
	// one byte spilling into a second page.
	data := make([]byte, 65537)
	for i := range data {
		data[i] = byte(i)
	}

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestGdeflate_RoundtripEmpty(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Gdeflate{}
	enc, err := c.Encode(ctx, nil, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, 0, codec.Options{})
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestBz2_Roundtrip(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Bz2{}
	data := []byte("banana banana banana mississippi mississippi abcabcabcabc")

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestBz2_RoundtripMultiBlock(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Bz2{BlockSize: 16}
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i % 5)
	}

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}

func TestBz2_RoundtripEmpty(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Bz2{}
	enc, err := c.Encode(ctx, nil, codec.Options{})
	require.NoError(t, err)
	dec, err := c.Decode(ctx, enc, 0, codec.Options{})
	require.NoError(t, err)
	require.Empty(t, dec)
}

func TestBz2_RepetitiveDataCompresses(t *testing.T) {
	ctx := context.Background()
	c := bytestobytes.Bz2{}
	data := make([]byte, 2000)
	for i := range data {
		data[i] = 'a'
	}

	enc, err := c.Encode(ctx, data, codec.Options{})
	require.NoError(t, err)
	require.Less(t, len(enc), len(data))

	dec, err := c.Decode(ctx, enc, len(data), codec.Options{})
	require.NoError(t, err)
	require.Equal(t, data, dec)
}
