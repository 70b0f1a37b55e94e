// Package arraybytes implements the ArrayBytes payload exchanged across
// the codec pipeline: either a flat fixed-size byte
// block, or a (concatenated-bytes, offsets) pair for variable-length
// elements.
package arraybytes

import (
	"bytes"

	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/TuSKan/zarr-go/subset"
)

// Kind tags which representation an ArrayBytes carries.
type Kind int

const (
	Fixed Kind = iota
	Variable
)

// ArrayBytes is the typed in-memory payload passed between codec pipeline
// stages. Exactly one of the Fixed or Variable fields is meaningful,
// selected by Kind.
type ArrayBytes struct {
	Kind Kind

	// FixedBytes holds N*elementSize bytes when Kind == Fixed.
	FixedBytes []byte

	// VariableData and VariableOffsets hold the variable representation
	// when Kind == Variable: element i occupies
	// VariableData[VariableOffsets[i]:VariableOffsets[i+1]].
	// len(VariableOffsets) == N+1, non-decreasing, Offsets[0] == 0,
	// Offsets[N] == len(VariableData).
	VariableData    []byte
	VariableOffsets []uint64
}

// NewFixed wraps a raw byte slice as a Fixed ArrayBytes.
func NewFixed(b []byte) ArrayBytes {
	return ArrayBytes{Kind: Fixed, FixedBytes: b}
}

// NewVariable builds a Variable ArrayBytes, validating the offsets
// invariant.
func NewVariable(data []byte, offsets []uint64) (ArrayBytes, error) {
	ab := ArrayBytes{Kind: Variable, VariableData: data, VariableOffsets: offsets}
	if err := ab.checkOffsetsInvariant(); err != nil {
		return ArrayBytes{}, err
	}
	return ab, nil
}

func (ab ArrayBytes) checkOffsetsInvariant() error {
	o := ab.VariableOffsets
	if len(o) == 0 {
		return errs.New(errs.InvalidBytesLength, "variable offsets must have length N+1, got 0")
	}
	if o[0] != 0 {
		return errs.New(errs.InvalidBytesLength, "variable offsets[0] must be 0, got %d", o[0])
	}
	for i := 1; i < len(o); i++ {
		if o[i] < o[i-1] {
			return errs.New(errs.InvalidBytesLength, "variable offsets must be non-decreasing at index %d", i)
		}
	}
	if int(o[len(o)-1]) != len(ab.VariableData) {
		return errs.New(errs.InvalidBytesLength, "variable offsets[N]=%d must equal len(data)=%d", o[len(o)-1], len(ab.VariableData))
	}
	return nil
}

// NewFillValueFixed builds the canonical representation of n elements, all
// set to fv, for a fixed-size element type.
func NewFillValueFixed(n uint64, elementSize int, fv fillvalue.FillValue) ArrayBytes {
	buf := make([]byte, n*uint64(elementSize))
	fv.Fill(buf)
	return NewFixed(buf)
}

// NewFillValueVariable builds the canonical representation of n elements,
// all empty, for a variable-size element type.
func NewFillValueVariable(n uint64) ArrayBytes {
	offsets := make([]uint64, n+1)
	return ArrayBytes{Kind: Variable, VariableData: []byte{}, VariableOffsets: offsets}
}

// NumElements returns N, the element count.
func (ab ArrayBytes) NumElements(elementSize int) int {
	switch ab.Kind {
	case Fixed:
		if elementSize == 0 {
			return 0
		}
		return len(ab.FixedBytes) / elementSize
	case Variable:
		if len(ab.VariableOffsets) == 0 {
			return 0
		}
		return len(ab.VariableOffsets) - 1
	}
	return 0
}

// Validate checks length/shape consistency: for Fixed, len(bytes) ==
// numElements*elementSize; for Variable, the offsets invariant.
func (ab ArrayBytes) Validate(numElements int, elementSize int) error {
	switch ab.Kind {
	case Fixed:
		want := numElements * elementSize
		if len(ab.FixedBytes) != want {
			return errs.New(errs.InvalidBytesLength, "fixed array bytes has %d bytes, want %d (%d elements * %d bytes)", len(ab.FixedBytes), want, numElements, elementSize)
		}
		return nil
	case Variable:
		if err := ab.checkOffsetsInvariant(); err != nil {
			return err
		}
		if len(ab.VariableOffsets)-1 != numElements {
			return errs.New(errs.InvalidBytesLength, "variable array bytes has %d elements, want %d", len(ab.VariableOffsets)-1, numElements)
		}
		return nil
	}
	return errs.New(errs.InvalidBytesLength, "unknown ArrayBytes kind %d", ab.Kind)
}

// Element returns the raw bytes of element i.
func (ab ArrayBytes) Element(i int, elementSize int) []byte {
	switch ab.Kind {
	case Fixed:
		return ab.FixedBytes[i*elementSize : (i+1)*elementSize]
	case Variable:
		return ab.VariableData[ab.VariableOffsets[i]:ab.VariableOffsets[i+1]]
	}
	return nil
}

// IsFillValue reports whether every element equals fv.
func (ab ArrayBytes) IsFillValue(fv fillvalue.FillValue) bool {
	switch ab.Kind {
	case Fixed:
		return fv.IsFillValue(ab.FixedBytes)
	case Variable:
		if !fv.VariableSentinel {
			return false
		}
		for i := 0; i < len(ab.VariableOffsets)-1; i++ {
			if ab.VariableOffsets[i+1] != ab.VariableOffsets[i] {
				return false
			}
		}
		return true
	}
	return false
}

// ExtractArraySubset produces a smaller ArrayBytes covering sub, given the
// full array's shape and element size. For Fixed payloads this walks
// sub.ContiguousIndices(arrayShape) and copies each run whole, rather
// than element by element.
func (ab ArrayBytes) ExtractArraySubset(sub subset.Subset, arrayShape []uint64, elementSize int) (ArrayBytes, error) {
	switch ab.Kind {
	case Fixed:
		out := make([]byte, sub.NumElements()*uint64(elementSize))
		runs := sub.ContiguousIndices(arrayShape)
		var cursor uint64
		for _, r := range runs {
			n := r.Length * uint64(elementSize)
			srcOff := r.Start * uint64(elementSize)
			copy(out[cursor:cursor+n], ab.FixedBytes[srcOff:srcOff+n])
			cursor += n
		}
		return NewFixed(out), nil
	case Variable:
		// Variable-size elements: walk logical indices (not byte runs,
		// since elements vary in size) and concatenate.
		var data []byte
		offsets := make([]uint64, 0, sub.NumElements()+1)
		offsets = append(offsets, 0)
		for _, coord := range sub.Indices() {
			idx := int(subset.LinearIndex(coord, arrayShape))
			el := ab.Element(idx, 0)
			data = append(data, el...)
			offsets = append(offsets, uint64(len(data)))
		}
		return ArrayBytes{Kind: Variable, VariableData: data, VariableOffsets: offsets}, nil
	}
	return ArrayBytes{}, errs.New(errs.InvalidBytesLength, "unknown ArrayBytes kind %d", ab.Kind)
}

// Update overlays newBytes (an ArrayBytes covering sub, in sub's own
// coordinate space) onto ab (covering the whole arrayShape), in place for
// Fixed payloads and by rebuilding the offsets table for Variable ones.
func (ab *ArrayBytes) Update(arrayShape []uint64, sub subset.Subset, newBytes ArrayBytes, elementSize int) error {
	switch ab.Kind {
	case Fixed:
		if newBytes.Kind != Fixed {
			return errs.New(errs.InvalidBytesLength, "cannot overlay variable bytes onto fixed ArrayBytes")
		}
		runs := sub.ContiguousIndices(arrayShape)
		var cursor uint64
		for _, r := range runs {
			n := r.Length * uint64(elementSize)
			dstOff := r.Start * uint64(elementSize)
			copy(ab.FixedBytes[dstOff:dstOff+n], newBytes.FixedBytes[cursor:cursor+n])
			cursor += n
		}
		return nil
	case Variable:
		if newBytes.Kind != Variable {
			return errs.New(errs.InvalidBytesLength, "cannot overlay fixed bytes onto variable ArrayBytes")
		}
		total := int(ab.VariableOffsets[len(ab.VariableOffsets)-1])
		numElements := len(ab.VariableOffsets) - 1
		elements := make([][]byte, numElements)
		for i := 0; i < numElements; i++ {
			elements[i] = append([]byte(nil), ab.Element(i, 0)...)
		}
		for i, coord := range sub.Indices() {
			idx := int(subset.LinearIndex(coord, arrayShape))
			elements[idx] = append([]byte(nil), newBytes.Element(i, 0)...)
		}
		data := make([]byte, 0, total)
		offsets := make([]uint64, 0, numElements+1)
		offsets = append(offsets, 0)
		for _, el := range elements {
			data = append(data, el...)
			offsets = append(offsets, uint64(len(data)))
		}
		ab.VariableData = data
		ab.VariableOffsets = offsets
		return nil
	}
	return errs.New(errs.InvalidBytesLength, "unknown ArrayBytes kind %d", ab.Kind)
}

// Equal compares two ArrayBytes for exact byte-for-byte equality.
func (ab ArrayBytes) Equal(other ArrayBytes) bool {
	if ab.Kind != other.Kind {
		return false
	}
	switch ab.Kind {
	case Fixed:
		return bytes.Equal(ab.FixedBytes, other.FixedBytes)
	case Variable:
		if !bytes.Equal(ab.VariableData, other.VariableData) {
			return false
		}
		if len(ab.VariableOffsets) != len(other.VariableOffsets) {
			return false
		}
		for i := range ab.VariableOffsets {
			if ab.VariableOffsets[i] != other.VariableOffsets[i] {
				return false
			}
		}
		return true
	}
	return false
}
