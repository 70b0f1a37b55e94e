// Package bytestobytes implements the opaque bytes-to-bytes compressors:
// gzip, zstd, blosc, bz2, crc32c (checksum framing), and gdeflate (a
// page-framed deflate variant with a fixed header layout).
package bytestobytes

import (
	"bytes"
	"context"
	"fmt"
	"io"

	kgzip "github.com/klauspost/compress/gzip"

	"github.com/TuSKan/zarr-go/codec"
)

// Gzip is the gzip bytes-to-bytes codec, backed by klauspost/compress.
type Gzip struct {
	Level int // compress/gzip levels, e.g. kgzip.DefaultCompression
}

func (Gzip) Name() string { return "gzip" }

func (g Gzip) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = kgzip.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := kgzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("codec: gzip writer: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, fmt.Errorf("codec: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	r, err := kgzip.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("codec: gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: gzip read: %w", err)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Gzip{}
