package bytestobytes

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	kflate "github.com/klauspost/compress/flate"

	"github.com/TuSKan/zarr-go/codec"
)

// gdeflatePageSize is the fixed uncompressed page size the gdeflate frame
// splits its payload into (every page but possibly the last decompresses
// to exactly this many bytes).
const gdeflatePageSize = 65536

// Gdeflate is the page-framed deflate codec:
//
//	static_header  = u64 uncompressed_total_length | u64 page_count
//	dynamic_header = page_count x u64 compressed_page_size
//	payload        = page_count x compressed_page
//
// There is no native Go gdeflate implementation (nvCOMP's GDeflate is
// CUDA-only), so klauspost/compress/flate serves as the per-page raw
// DEFLATE compressor; only the page-framing layer lives here.
type Gdeflate struct {
	Level int
}

func (Gdeflate) Name() string { return "gdeflate" }

func (g Gdeflate) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	total := uint64(len(in))
	pageCount := (total + gdeflatePageSize - 1) / gdeflatePageSize
	if pageCount == 0 {
		pageCount = 1
	}

	level := g.Level
	if level == 0 {
		level = kflate.DefaultCompression
	}

	pages := make([][]byte, 0, pageCount)
	for off := uint64(0); off < total || len(pages) == 0; off += gdeflatePageSize {
		end := off + gdeflatePageSize
		if end > total {
			end = total
		}
		page, err := compressPage(in[off:end], level)
		if err != nil {
			return nil, fmt.Errorf("codec: gdeflate page %d: %w", len(pages), err)
		}
		pages = append(pages, page)
		if end == total {
			break
		}
	}

	var buf bytes.Buffer
	var hdr [16]byte
	binary.LittleEndian.PutUint64(hdr[0:8], total)
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(pages)))
	buf.Write(hdr[:])
	for _, p := range pages {
		var sz [8]byte
		binary.LittleEndian.PutUint64(sz[:], uint64(len(p)))
		buf.Write(sz[:])
	}
	for _, p := range pages {
		buf.Write(p)
	}
	return buf.Bytes(), nil
}

func (Gdeflate) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	if len(in) < 16 {
		return nil, fmt.Errorf("codec: gdeflate: input too short for static header")
	}
	total := binary.LittleEndian.Uint64(in[0:8])
	pageCount := binary.LittleEndian.Uint64(in[8:16])

	dynHeaderEnd := 16 + 8*pageCount
	if uint64(len(in)) < dynHeaderEnd {
		return nil, fmt.Errorf("codec: gdeflate: input too short for dynamic header")
	}
	sizes := make([]uint64, pageCount)
	for i := uint64(0); i < pageCount; i++ {
		start := 16 + 8*i
		sizes[i] = binary.LittleEndian.Uint64(in[start : start+8])
	}

	out := make([]byte, 0, total)
	cursor := dynHeaderEnd
	for i, sz := range sizes {
		if cursor+sz > uint64(len(in)) {
			return nil, fmt.Errorf("codec: gdeflate: page %d exceeds input bounds", i)
		}
		page := in[cursor : cursor+sz]
		decompressed, err := decompressPage(page)
		if err != nil {
			return nil, fmt.Errorf("codec: gdeflate page %d: %w", i, err)
		}
		out = append(out, decompressed...)
		cursor += sz
	}
	if uint64(len(out)) != total {
		return nil, fmt.Errorf("codec: gdeflate: decompressed length %d != declared %d", len(out), total)
	}
	return out, nil
}

func compressPage(page []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := kflate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(page); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressPage(page []byte) ([]byte, error) {
	r := kflate.NewReader(bytes.NewReader(page))
	defer r.Close()
	return io.ReadAll(r)
}

var _ codec.BytesToBytesCodec = Gdeflate{}
