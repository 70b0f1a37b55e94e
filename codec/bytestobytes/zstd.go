package bytestobytes

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/TuSKan/zarr-go/codec"
)

// Zstd is the zstd bytes-to-bytes codec, backed by
// github.com/klauspost/compress/zstd.
type Zstd struct {
	Level zstd.EncoderLevel // zero value is SpeedDefault
}

func (Zstd) Name() string { return "zstd" }

func (z Zstd) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	level := z.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("codec: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(in, make([]byte, 0, len(in))), nil
}

func (Zstd) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(in, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode: %w", err)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Zstd{}
