package bytestobytes

import (
	"context"
	"fmt"

	"github.com/mrjoshuak/go-blosc"

	"github.com/TuSKan/zarr-go/codec"
)

// Blosc is the blosc bytes-to-bytes codec. The c-blosc frame
// self-describes typesize/clevel/shuffle, so Decompress alone is enough to
// round-trip what Compress produced.
type Blosc struct {
	TypeSize   int
	Level      int
	Shuffle    int
}

func (Blosc) Name() string { return "blosc" }

func (b Blosc) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	typeSize := b.TypeSize
	if typeSize <= 0 {
		typeSize = 1
	}
	level := b.Level
	if level <= 0 {
		level = 5
	}
	out, err := blosc.Compress(in, blosc.LZ4, level, blosc.Shuffle(b.Shuffle), typeSize)
	if err != nil {
		return nil, fmt.Errorf("codec: blosc compress: %w", err)
	}
	return out, nil
}

func (Blosc) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	out, err := blosc.Decompress(in)
	if err != nil {
		return nil, fmt.Errorf("codec: blosc decompress: %w", err)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Blosc{}
