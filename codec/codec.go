// Package codec implements the typed array-bytes / bytes / bytes pipeline:
// an ordered chain of zero-or-more array-to-array codecs, exactly one
// array-to-bytes codec, and zero-or-more bytes-to-bytes codecs, each
// supporting full encode/decode and (where the codec can do better than
// "decode everything, slice") partial decode driven by requested array
// sub-regions. Sub-packages hold the concrete codecs.
package codec

import (
	"context"
	"fmt"
	"sync"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/subset"
)

// ChunkRepresentation is a chunk's shape/dtype/fill-value triple, passed to
// every codec call so it knows what it is encoding or decoding.
type ChunkRepresentation struct {
	Shape       []uint64
	ElementSize int // 0 for variable-size data types
	FillValue   []byte
}

func (r ChunkRepresentation) NumElements() uint64 {
	n := uint64(1)
	for _, s := range r.Shape {
		n *= s
	}
	return n
}

// Concurrency is an upper bound and preferred minimum for a codec's
// internal parallelism.
type Concurrency struct {
	Min, Max uint64
}

// Options carries the cross-cutting options passed through every pipeline
// call.
type Options struct {
	ConcurrentTarget uint64
	StoreEmptyChunks bool
}

// ArrayToArrayCodec transforms ArrayBytes into ArrayBytes of a possibly
// different shape (e.g. transpose) but the same logical element count.
type ArrayToArrayCodec interface {
	Name() string
	EncodedRepresentation(in ChunkRepresentation) (ChunkRepresentation, error)
	Encode(ctx context.Context, in arraybytes.ArrayBytes, rep ChunkRepresentation, opts Options) (arraybytes.ArrayBytes, error)
	Decode(ctx context.Context, in arraybytes.ArrayBytes, rep ChunkRepresentation, opts Options) (arraybytes.ArrayBytes, error)
}

// ArrayToBytesCodec is the sole codec in a chain converting typed
// ArrayBytes to a raw byte stream (or back). It may additionally support
// partial decode/encode, tested via the optional interfaces below.
type ArrayToBytesCodec interface {
	Name() string
	Encode(ctx context.Context, in arraybytes.ArrayBytes, rep ChunkRepresentation, opts Options) ([]byte, error)
	Decode(ctx context.Context, in []byte, rep ChunkRepresentation, opts Options) (arraybytes.ArrayBytes, error)
	RecommendedConcurrency(rep ChunkRepresentation) Concurrency
}

// BytesToBytesCodec is a pure byte-stream transform (compression, checksum
// framing, ...).
type BytesToBytesCodec interface {
	Name() string
	Encode(ctx context.Context, in []byte, opts Options) ([]byte, error)
	Decode(ctx context.Context, in []byte, decodedSize int, opts Options) ([]byte, error)
}

// InputHandle is the lower end of a partial-decode chain: a byte source
// keyed by byte ranges, either a raw storage handle or a wrapped decoder.
type InputHandle interface {
	PartialRead(ctx context.Context, ranges []subset.Subset) ([][]byte, error)
	Size(ctx context.Context) (*uint64, error)
}

// PartialDecoder produces decoded ArrayBytes for requested subsets of one
// chunk's logical shape, without necessarily decoding the whole chunk.
type PartialDecoder interface {
	PartialDecode(ctx context.Context, subsets []subset.Subset, opts Options) ([]arraybytes.ArrayBytes, error)
}

// PartialEncoder supports in-place partial updates of one chunk's encoded
// representation (only the sharding codec implements this meaningfully).
type PartialEncoder interface {
	PartialEncode(ctx context.Context, subsets []subset.Subset, values []arraybytes.ArrayBytes, opts Options) error
}

// OffsetWrite is one write in a partial-encode overlay: Value placed at
// Offset, growing the underlying value if necessary.
type OffsetWrite struct {
	Offset uint64
	Value  []byte
}

// OutputHandle is the write surface a partial encoder mutates: byte-range
// reads of the current encoded value, overlay writes, and erase.
type OutputHandle interface {
	InputHandle
	PartialWrite(ctx context.Context, writes []OffsetWrite) error
	Erase(ctx context.Context) error
}

// PartialEncodable is implemented by array-to-bytes codecs that support
// in-place partial encode of one chunk's stored representation (sharding).
type PartialEncodable interface {
	PartialEncoder(output OutputHandle, rep ChunkRepresentation) (PartialEncoder, error)
}

// Chain is a validated, ordered codec chain: array-to-array codecs, exactly
// one array-to-bytes codec, then bytes-to-bytes codecs.
type Chain struct {
	ArrayToArray []ArrayToArrayCodec
	ArrayToBytes ArrayToBytesCodec
	BytesToBytes []BytesToBytesCodec
}

// Validate checks the "exactly one array-to-bytes codec" invariant; Go's
// type system already prevents more than one at the struct-field level, so
// this only needs to check ArrayToBytes is non-nil.
func (c Chain) Validate() error {
	if c.ArrayToBytes == nil {
		return fmt.Errorf("codec: chain has no array-to-bytes codec")
	}
	return nil
}

// Encode runs the full forward pipeline: array-to-array codecs in order,
// the array-to-bytes codec, then bytes-to-bytes codecs in order.
func (c Chain) Encode(ctx context.Context, ab arraybytes.ArrayBytes, rep ChunkRepresentation, opts Options) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cur := ab
	curRep := rep
	for _, a2a := range c.ArrayToArray {
		encRep, err := a2a.EncodedRepresentation(curRep)
		if err != nil {
			return nil, fmt.Errorf("codec: %s encoded representation: %w", a2a.Name(), err)
		}
		next, err := a2a.Encode(ctx, cur, curRep, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: %s encode: %w", a2a.Name(), err)
		}
		cur = next
		curRep = encRep
	}

	bytesOut, err := c.ArrayToBytes.Encode(ctx, cur, curRep, opts)
	if err != nil {
		return nil, fmt.Errorf("codec: %s encode: %w", c.ArrayToBytes.Name(), err)
	}

	for _, b2b := range c.BytesToBytes {
		bytesOut, err = b2b.Encode(ctx, bytesOut, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: %s encode: %w", b2b.Name(), err)
		}
	}
	return bytesOut, nil
}

// Decode runs the full reverse pipeline and validates the result against
// rep.
func (c Chain) Decode(ctx context.Context, data []byte, rep ChunkRepresentation, opts Options) (arraybytes.ArrayBytes, error) {
	if err := c.Validate(); err != nil {
		return arraybytes.ArrayBytes{}, err
	}

	// Bytes-to-bytes codecs decode in reverse chain order.
	repChain, err := c.arrayToBytesRepresentation(rep)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}

	cur := data
	for i := len(c.BytesToBytes) - 1; i >= 0; i-- {
		cur, err = c.BytesToBytes[i].Decode(ctx, cur, -1, opts)
		if err != nil {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: %s decode: %w", c.BytesToBytes[i].Name(), err)
		}
	}

	ab, err := c.ArrayToBytes.Decode(ctx, cur, repChain, opts)
	if err != nil {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: %s decode: %w", c.ArrayToBytes.Name(), err)
	}

	for i := len(c.ArrayToArray) - 1; i >= 0; i-- {
		a2a := c.ArrayToArray[i]
		var inRep ChunkRepresentation
		if i == 0 {
			inRep = rep
		} else {
			inRep, err = c.arrayToArrayRepresentationUpTo(rep, i)
			if err != nil {
				return arraybytes.ArrayBytes{}, err
			}
		}
		ab, err = a2a.Decode(ctx, ab, inRep, opts)
		if err != nil {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: %s decode: %w", a2a.Name(), err)
		}
	}

	if err := ab.Validate(int(rep.NumElements()), rep.ElementSize); err != nil {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: decoded output failed validation: %w", err)
	}
	return ab, nil
}

// arrayToBytesRepresentation threads rep forward through every
// array-to-array codec to get the representation the array-to-bytes codec
// actually sees.
func (c Chain) arrayToBytesRepresentation(rep ChunkRepresentation) (ChunkRepresentation, error) {
	cur := rep
	for _, a2a := range c.ArrayToArray {
		next, err := a2a.EncodedRepresentation(cur)
		if err != nil {
			return ChunkRepresentation{}, fmt.Errorf("codec: %s encoded representation: %w", a2a.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// arrayToArrayRepresentationUpTo threads rep through the first idx
// array-to-array codecs (used when decoding back through the chain).
func (c Chain) arrayToArrayRepresentationUpTo(rep ChunkRepresentation, idx int) (ChunkRepresentation, error) {
	cur := rep
	for i := 0; i < idx; i++ {
		next, err := c.ArrayToArray[i].EncodedRepresentation(cur)
		if err != nil {
			return ChunkRepresentation{}, err
		}
		cur = next
	}
	return cur, nil
}

// RecommendedConcurrency delegates to the array-to-bytes codec, which is
// where chain-level intra-codec parallelism is meaningful (sharding, in
// particular).
func (c Chain) RecommendedConcurrency(rep ChunkRepresentation) Concurrency {
	if c.ArrayToBytes == nil {
		return Concurrency{Min: 1, Max: 1}
	}
	return c.ArrayToBytes.RecommendedConcurrency(rep)
}

// PartialDecodable is implemented by array-to-bytes codecs that can build a
// PartialDecoder directly over an InputHandle without decoding the whole
// chunk first (the bytes codec and the sharding codec). A codec that
// doesn't implement this is decoded via Chain.PartialDecoder's
// full-decode-then-slice fallback.
type PartialDecodable interface {
	PartialDecoder(input InputHandle, rep ChunkRepresentation) (PartialDecoder, error)
}

// PartialDecoder builds the pipeline-specific partial decoder: true partial
// decode (pushing subsets down to byte-range reads via input) when the
// chain is just the bare array-to-bytes codec and it implements
// PartialDecodable, full-decode-then-slice otherwise. Array-to-array codecs
// (transpose, fixed scale/offset) and every bytes-to-bytes compressor in
// this module gain nothing from a partial read.
func (c Chain) PartialDecoder(input InputHandle, rep ChunkRepresentation, opts Options) (PartialDecoder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(c.BytesToBytes) == 0 && len(c.ArrayToArray) == 0 {
		if pd, ok := c.ArrayToBytes.(PartialDecodable); ok {
			return pd.PartialDecoder(input, rep)
		}
	}
	return &fullDecodeThenSlicePartialDecoder{chain: c, input: input, rep: rep, opts: opts}, nil
}

// PartialEncoder builds an in-place partial encoder over output when the
// chain supports one: the chain must be the bare array-to-bytes codec (an
// outer compressor would defeat in-place byte surgery on the stored value)
// and that codec must implement PartialEncodable. ok is false when the
// chain has no partial-encode path and the caller should fall back to
// decode-overlay-reencode.
func (c Chain) PartialEncoder(output OutputHandle, rep ChunkRepresentation, opts Options) (enc PartialEncoder, ok bool, err error) {
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	if len(c.BytesToBytes) == 0 && len(c.ArrayToArray) == 0 {
		if pe, implemented := c.ArrayToBytes.(PartialEncodable); implemented {
			enc, err := pe.PartialEncoder(output, rep)
			if err != nil {
				return nil, false, err
			}
			return enc, true, nil
		}
	}
	return nil, false, nil
}

// fullDecodeThenSlicePartialDecoder is the default partial decoder: fetch
// the whole encoded value, run the ordinary full Decode, then
// ArrayBytes.ExtractArraySubset per requested subset. The decoded chunk is
// cached on first use so repeated PartialDecode calls against the same
// decoder cost one storage read and one decode.
type fullDecodeThenSlicePartialDecoder struct {
	chain Chain
	input InputHandle
	rep   ChunkRepresentation
	opts  Options

	mu      sync.Mutex
	decoded *arraybytes.ArrayBytes
}

func (d *fullDecodeThenSlicePartialDecoder) decode(ctx context.Context, opts Options) (arraybytes.ArrayBytes, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.decoded != nil {
		return *d.decoded, nil
	}
	size, err := d.input.Size(ctx)
	if err != nil {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: full-decode-then-slice: size: %w", err)
	}
	if size == nil {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: full-decode-then-slice: input handle has no data")
	}
	whole, err := d.input.PartialRead(ctx, []subset.Subset{subset.New([]uint64{0}, []uint64{*size})})
	if err != nil || len(whole) != 1 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: full-decode-then-slice: read: %w", err)
	}
	ab, err := d.chain.Decode(ctx, whole[0], d.rep, opts)
	if err != nil {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: full-decode-then-slice: decode: %w", err)
	}
	d.decoded = &ab
	return ab, nil
}

func (d *fullDecodeThenSlicePartialDecoder) PartialDecode(ctx context.Context, subsets []subset.Subset, opts Options) ([]arraybytes.ArrayBytes, error) {
	ab, err := d.decode(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make([]arraybytes.ArrayBytes, len(subsets))
	for i, sub := range subsets {
		out[i], err = ab.ExtractArraySubset(sub, d.rep.Shape, d.rep.ElementSize)
		if err != nil {
			return nil, fmt.Errorf("codec: full-decode-then-slice: extract subset %d: %w", i, err)
		}
	}
	return out, nil
}

var _ PartialDecoder = (*fullDecodeThenSlicePartialDecoder)(nil)
