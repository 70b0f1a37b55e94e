package bytestobytes

import (
	"bytes"
	"context"
	"fmt"
	"io"

	kzlib "github.com/klauspost/compress/zlib"

	"github.com/TuSKan/zarr-go/codec"
)

// Zlib is the zlib (RFC 1950) bytes-to-bytes codec, the framing legacy V2
// arrays most commonly carry under compressor id "zlib". Same deflate
// stream as Gzip, different envelope.
type Zlib struct {
	Level int
}

func (Zlib) Name() string { return "zlib" }

func (z Zlib) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	level := z.Level
	if level == 0 {
		level = kzlib.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := kzlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("codec: zlib writer: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("codec: zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (Zlib) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	r, err := kzlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("codec: zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: zlib read: %w", err)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Zlib{}
