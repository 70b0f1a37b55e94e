// Package arraytobytes implements the array-to-bytes codecs: the canonical
// "bytes" endianness codec, and the sharding codec. Both are array-to-bytes
// because exactly one must appear at that position in a codec.Chain.
package arraytobytes

import (
	"context"
	"fmt"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/subset"
)

// Endian selects the byte order the Bytes codec reinterprets fixed-size
// numeric elements in.
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

// Bytes is the canonical array-to-bytes leaf: it reinterprets fixed-size
// numeric elements as raw bytes in the configured endianness. Partial
// decode pushes subsets down as byte-range reads: for each contiguous run
// (start, length) in the subset, it reads
// [start*element_size, (start+length)*element_size).
type Bytes struct {
	Order Endian
}

func (Bytes) Name() string { return "bytes" }

func (b Bytes) Encode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	if rep.ElementSize <= 0 {
		return nil, fmt.Errorf("codec: bytes codec requires a fixed-size element")
	}
	out := append([]byte(nil), in.FixedBytes...)
	if b.Order == BigEndian && rep.ElementSize > 1 {
		swapEndianness(out, rep.ElementSize)
	}
	return out, nil
}

func (b Bytes) Decode(ctx context.Context, in []byte, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	if rep.ElementSize <= 0 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: bytes codec requires a fixed-size element")
	}
	want := int(rep.NumElements()) * rep.ElementSize
	if len(in) != want {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: bytes codec: input length %d != expected %d", len(in), want)
	}
	out := append([]byte(nil), in...)
	if b.Order == BigEndian && rep.ElementSize > 1 {
		swapEndianness(out, rep.ElementSize)
	}
	return arraybytes.NewFixed(out), nil
}

func (b Bytes) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.Concurrency {
	return codec.Concurrency{Min: 1, Max: 1}
}

// swapEndianness reverses the byte order of every elemSize-sized element
// in buf in place.
func swapEndianness(buf []byte, elemSize int) {
	for off := 0; off+elemSize <= len(buf); off += elemSize {
		elem := buf[off : off+elemSize]
		for i, j := 0, elemSize-1; i < j; i, j = i+1, j-1 {
			elem[i], elem[j] = elem[j], elem[i]
		}
	}
}

// BytesPartialDecoder binds a Bytes codec to one chunk's InputHandle and
// representation, implementing codec.PartialDecoder. Bytes.PartialDecoder
// returns one of these, so a chain made of the bare bytes codec reads a
// subset without fetching the whole chunk. The sharding codec does not use
// it: it reads and fully decodes each inner chunk it needs.
type BytesPartialDecoder struct {
	Codec   Bytes
	Input   codec.InputHandle
	Rep     codec.ChunkRepresentation
}

func (d BytesPartialDecoder) PartialDecode(ctx context.Context, subsets []subset.Subset, opts codec.Options) ([]arraybytes.ArrayBytes, error) {
	return d.Codec.partialDecode(ctx, d.Input, subsets, d.Rep, opts)
}

var _ codec.PartialDecoder = BytesPartialDecoder{}

// PartialDecoder implements codec.PartialDecodable: the bytes codec always
// supports true partial decode over any InputHandle, since its encoded
// representation is exactly the raw element bytes.
func (b Bytes) PartialDecoder(input codec.InputHandle, rep codec.ChunkRepresentation) (codec.PartialDecoder, error) {
	return BytesPartialDecoder{Codec: b, Input: input, Rep: rep}, nil
}

var _ codec.PartialDecodable = Bytes{}

// partialDecode pushes each requested subset down as one or more
// contiguous-run byte-range reads.
func (b Bytes) partialDecode(ctx context.Context, input codec.InputHandle, subsets []subset.Subset, rep codec.ChunkRepresentation, opts codec.Options) ([]arraybytes.ArrayBytes, error) {
	if rep.ElementSize <= 0 {
		return nil, fmt.Errorf("codec: bytes codec requires a fixed-size element")
	}
	out := make([]arraybytes.ArrayBytes, len(subsets))
	for i, sub := range subsets {
		runs := sub.ContiguousIndices(rep.Shape)
		byteRuns := make([]subset.Subset, len(runs))
		for j, r := range runs {
			byteRuns[j] = subset.New(
				[]uint64{r.Start * uint64(rep.ElementSize)},
				[]uint64{r.Length * uint64(rep.ElementSize)},
			)
		}
		chunks, err := input.PartialRead(ctx, byteRuns)
		if err != nil {
			return nil, fmt.Errorf("codec: bytes codec partial decode: %w", err)
		}
		buf := make([]byte, 0, sub.NumElements()*uint64(rep.ElementSize))
		for _, c := range chunks {
			buf = append(buf, c...)
		}
		if b.Order == BigEndian && rep.ElementSize > 1 {
			swapEndianness(buf, rep.ElementSize)
		}
		out[i] = arraybytes.NewFixed(buf)
	}
	return out, nil
}

var _ codec.ArrayToBytesCodec = Bytes{}

// EndianFromString parses the "little"/"big" endianness names used in
// zarr.json codec configuration.
func EndianFromString(s string) (Endian, error) {
	switch s {
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	default:
		return 0, fmt.Errorf("codec: unknown endianness %q", s)
	}
}
