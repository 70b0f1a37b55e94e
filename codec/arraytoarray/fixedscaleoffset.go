package arraytoarray

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
)

// NumericKind enumerates the numeric element kinds FixedScaleOffset
// supports; anything outside this set is rejected.
type NumericKind int

const (
	Int8 NumericKind = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

func (k NumericKind) size() int {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// FixedScaleOffset is the affine codec:
// encoded = round((decoded - offset) * scale), decoded = encoded/scale + offset,
// with optional output dtype promotion (decoding to a wider or narrower
// numeric type than the on-disk encoding).
type FixedScaleOffset struct {
	Scale, Offset float64
	DecodedKind   NumericKind
	EncodedKind   NumericKind
}

func (FixedScaleOffset) Name() string { return "fixedscaleoffset" }

func (f FixedScaleOffset) EncodedRepresentation(in codec.ChunkRepresentation) (codec.ChunkRepresentation, error) {
	out := in
	out.ElementSize = f.EncodedKind.size()
	return out, nil
}

func (f FixedScaleOffset) Encode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	n := int(rep.NumElements())
	out := make([]byte, n*f.EncodedKind.size())
	for i := 0; i < n; i++ {
		v, err := readNumeric(in.FixedBytes, i, rep.ElementSize, f.DecodedKind)
		if err != nil {
			return arraybytes.ArrayBytes{}, err
		}
		encoded := math.Round((v - f.Offset) * f.Scale)
		if err := writeNumeric(out, i, f.EncodedKind.size(), f.EncodedKind, encoded); err != nil {
			return arraybytes.ArrayBytes{}, err
		}
	}
	return arraybytes.NewFixed(out), nil
}

func (f FixedScaleOffset) Decode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	n := int(rep.NumElements())
	out := make([]byte, n*f.DecodedKind.size())
	for i := 0; i < n; i++ {
		v, err := readNumeric(in.FixedBytes, i, f.EncodedKind.size(), f.EncodedKind)
		if err != nil {
			return arraybytes.ArrayBytes{}, err
		}
		decoded := v/f.Scale + f.Offset
		if err := writeNumeric(out, i, f.DecodedKind.size(), f.DecodedKind, decoded); err != nil {
			return arraybytes.ArrayBytes{}, err
		}
	}
	return arraybytes.NewFixed(out), nil
}

func readNumeric(buf []byte, i, elemSize int, kind NumericKind) (float64, error) {
	off := i * elemSize
	b := buf[off : off+elemSize]
	switch kind {
	case Int8:
		return float64(int8(b[0])), nil
	case Uint8:
		return float64(b[0]), nil
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b)), nil
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return 0, fmt.Errorf("codec: fixedscaleoffset: unsupported numeric kind %d", kind)
	}
}

func writeNumeric(buf []byte, i, elemSize int, kind NumericKind, v float64) error {
	off := i * elemSize
	b := buf[off : off+elemSize]
	switch kind {
	case Int8:
		b[0] = byte(int8(v))
	case Uint8:
		b[0] = byte(uint8(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		return fmt.Errorf("codec: fixedscaleoffset: unsupported numeric kind %d", kind)
	}
	return nil
}

var _ codec.ArrayToArrayCodec = FixedScaleOffset{}
