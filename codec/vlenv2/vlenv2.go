// Package vlenv2 carries legacy variable-length encodings into the
// ArrayBytes variable form: the numcodecs VLenBytes/VLenUTF8/VLenArray
// wire format used by Zarr V2 arrays whose dtype is "|O" (object) with a
// vlen-* filter. Instead of raw bytes the codec consumes/produces
// arraybytes.ArrayBytes in its Variable form directly, since
// variable-length elements are exactly what that form models.
package vlenv2

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
)

// Codec is the array-to-bytes leaf for Zarr V2's vlen-bytes/vlen-utf8/
// vlen-array wire format: a little-endian uint32 element count, then for
// each element a little-endian uint32 byte length followed by that many
// raw bytes. Identical for all three legacy variants; they differ only
// in how the application interprets the decoded byte spans (UTF-8 text,
// opaque bytes, or msgpack-encoded values), which is outside this
// package's concern.
type Codec struct{}

func (Codec) Name() string { return "vlen-v2" }

func (Codec) Encode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if in.Kind != arraybytes.Variable {
		return nil, fmt.Errorf("codec: vlen-v2 requires Variable ArrayBytes, got Kind=%d", in.Kind)
	}
	n := len(in.VariableOffsets) - 1
	if n < 0 {
		return nil, fmt.Errorf("codec: vlen-v2: invalid offsets table")
	}
	out := make([]byte, 4, 4+n*4+len(in.VariableData))
	binary.LittleEndian.PutUint32(out, uint32(n))
	for i := 0; i < n; i++ {
		start, end := in.VariableOffsets[i], in.VariableOffsets[i+1]
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(end-start))
		out = append(out, lenBuf[:]...)
		out = append(out, in.VariableData[start:end]...)
	}
	return out, nil
}

func (Codec) Decode(ctx context.Context, in []byte, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	if len(in) < 4 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: vlen-v2: input too short for element count header")
	}
	n := int(binary.LittleEndian.Uint32(in))
	pos := 4
	data := make([]byte, 0, len(in)-4)
	offsets := make([]uint64, 0, n+1)
	offsets = append(offsets, 0)
	for i := 0; i < n; i++ {
		if pos+4 > len(in) {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: vlen-v2: truncated length prefix for element %d", i)
		}
		elLen := int(binary.LittleEndian.Uint32(in[pos:]))
		pos += 4
		if elLen < 0 || pos+elLen > len(in) {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: vlen-v2: truncated payload for element %d", i)
		}
		data = append(data, in[pos:pos+elLen]...)
		pos += elLen
		offsets = append(offsets, uint64(len(data)))
	}
	want := int(rep.NumElements())
	if want > 0 && n != want {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: vlen-v2: decoded %d elements, want %d", n, want)
	}
	return arraybytes.ArrayBytes{Kind: arraybytes.Variable, VariableData: data, VariableOffsets: offsets}, nil
}

// RecommendedConcurrency reports no useful internal parallelism: the
// format is a single sequential scan.
func (Codec) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.Concurrency {
	return codec.Concurrency{Min: 1, Max: 1}
}

var _ codec.ArrayToBytesCodec = Codec{}
