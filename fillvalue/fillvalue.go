// Package fillvalue implements the typed default value returned for chunks
// absent from the store, including the NaN bit-pattern canonicalization
// needed for stable equality across encode/decode.
package fillvalue

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/TuSKan/zarr-go/errs"
)

// FillValue is the canonical byte representation of a data type's fill
// value. For fixed-size types it is exactly element-size bytes; for
// variable-size types a nil Bytes with VariableSentinel set true means
// "the variable-length empty value".
type FillValue struct {
	Bytes            []byte
	VariableSentinel bool
}

// NewFixed builds a FillValue from a raw little-endian element byte
// representation, already the element_size the caller expects.
func NewFixed(b []byte) FillValue { return FillValue{Bytes: append([]byte(nil), b...)} }

// NewVariableSentinel builds the fill value representation for
// variable-length element types (the canonical "empty" payload).
func NewVariableSentinel() FillValue { return FillValue{VariableSentinel: true} }

// Validate checks the fill value's byte length against an expected fixed
// element size; variable-sentinel fill values always validate.
func (f FillValue) Validate(elementSize int) error {
	if f.VariableSentinel {
		return nil
	}
	if len(f.Bytes) != elementSize {
		return errs.New(errs.InvalidBytesLength, "fill value is %d bytes, want %d", len(f.Bytes), elementSize)
	}
	return nil
}

// Equal compares the canonical bytes of two fill values.
func (f FillValue) Equal(other FillValue) bool {
	if f.VariableSentinel != other.VariableSentinel {
		return false
	}
	return bytes.Equal(f.Bytes, other.Bytes)
}

// Fill writes copies of the fill value's bytes across buf, which must be a
// multiple of len(f.Bytes) in length. Used to synthesise an implicit
// chunk's decoded contents.
func (f FillValue) Fill(buf []byte) {
	if len(f.Bytes) == 0 {
		return
	}
	for off := 0; off < len(buf); off += len(f.Bytes) {
		copy(buf[off:], f.Bytes)
	}
}

// IsFillValue reports whether every element-sized slice of buf equals the
// fill value's canonical bytes, used for write-elision. NaN float fill
// values compare by canonical bit pattern, not IEEE754 equality
// (NaN != NaN).
func (f FillValue) IsFillValue(buf []byte) bool {
	if f.VariableSentinel {
		return len(buf) == 0
	}
	n := len(f.Bytes)
	if n == 0 || len(buf)%n != 0 {
		return false
	}
	for off := 0; off < len(buf); off += n {
		if !bytes.Equal(buf[off:off+n], f.Bytes) {
			return false
		}
	}
	return true
}

// CanonicalFloat32 returns the canonical little-endian byte representation
// of a float32 fill value, normalising all NaN payloads to the quiet-NaN
// bit pattern math.Float32bits(float32(math.NaN())) produces, so that
// decode(encode(NaN)) compares equal to a freshly-constructed NaN fill
// value even if a codec's NaN payload bits differ bit-for-bit.
func CanonicalFloat32(v float32) []byte {
	bits := math.Float32bits(v)
	if isNaN32(bits) {
		bits = math.Float32bits(float32(math.NaN()))
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, bits)
	return b
}

// CanonicalFloat64 is CanonicalFloat32's float64 counterpart.
func CanonicalFloat64(v float64) []byte {
	bits := math.Float64bits(v)
	if isNaN64(bits) {
		bits = math.Float64bits(math.NaN())
	}
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, bits)
	return b
}

func isNaN32(bits uint32) bool {
	exp := (bits >> 23) & 0xFF
	mant := bits & 0x7FFFFF
	return exp == 0xFF && mant != 0
}

func isNaN64(bits uint64) bool {
	exp := (bits >> 52) & 0x7FF
	mant := bits & 0xFFFFFFFFFFFFF
	return exp == 0x7FF && mant != 0
}
