// Package subset implements the rectangular subset algebra and the
// generalised Indexer selector used by the chunk router and codec layers.
package subset

import (
	"fmt"

	"github.com/TuSKan/zarr-go/errs"
)

// Subset is a half-open hyper-rectangle: the product of [Start[d],
// Start[d]+Shape[d]) over every dimension d. It is empty iff any Shape[d]
// is zero.
type Subset struct {
	Start []uint64
	Shape []uint64
}

// New builds a Subset, copying start/shape so the caller's slices can be
// reused or mutated afterwards.
func New(start, shape []uint64) Subset {
	s := Subset{Start: append([]uint64(nil), start...), Shape: append([]uint64(nil), shape...)}
	return s
}

// FromShape builds a Subset spanning the whole extent of an array or chunk
// shape, useful for "the whole array" or "the whole chunk" subsets.
func FromShape(shape []uint64) Subset {
	return Subset{Start: make([]uint64, len(shape)), Shape: append([]uint64(nil), shape...)}
}

// Dimensionality returns the number of dimensions.
func (s Subset) Dimensionality() int { return len(s.Shape) }

// Empty reports whether the subset spans zero elements.
func (s Subset) Empty() bool {
	for _, d := range s.Shape {
		if d == 0 {
			return true
		}
	}
	return false
}

// NumElements returns the product of Shape.
func (s Subset) NumElements() uint64 {
	n := uint64(1)
	for _, d := range s.Shape {
		n *= d
	}
	return n
}

// End returns, per dimension, Start[d]+Shape[d] (the exclusive end).
func (s Subset) End() []uint64 {
	end := make([]uint64, len(s.Start))
	for i := range s.Start {
		end[i] = s.Start[i] + s.Shape[i]
	}
	return end
}

// Validate checks dimensionality against an expected rank and, where
// arrayShape is non-nil, bounds-checks against it. A zero-sized dimension
// in arrayShape is "unlimited" and is not bounds-checked.
func (s Subset) Validate(dimensionality int, arrayShape []uint64) error {
	if s.Dimensionality() != dimensionality {
		return errs.New(errs.InvalidArraySubset, "subset has %d dims, want %d", s.Dimensionality(), dimensionality)
	}
	if arrayShape == nil {
		return nil
	}
	if len(arrayShape) != dimensionality {
		return errs.New(errs.InvalidArraySubset, "array shape has %d dims, want %d", len(arrayShape), dimensionality)
	}
	end := s.End()
	for d := range s.Shape {
		if arrayShape[d] == 0 {
			continue // unlimited dimension, don't bound-check
		}
		if end[d] > arrayShape[d] {
			return errs.New(errs.InvalidArraySubset, "subset dim %d end %d exceeds array extent %d", d, end[d], arrayShape[d])
		}
	}
	return nil
}

// Contains reports whether index (one coordinate per dimension) falls
// inside the subset.
func (s Subset) Contains(index []uint64) bool {
	if len(index) != len(s.Shape) {
		return false
	}
	for d := range s.Shape {
		if index[d] < s.Start[d] || index[d] >= s.Start[d]+s.Shape[d] {
			return false
		}
	}
	return true
}

// Inbounds reports whether other is entirely contained within s.
func (s Subset) Inbounds(other Subset) bool {
	if len(other.Shape) != len(s.Shape) {
		return false
	}
	end := s.End()
	otherEnd := other.End()
	for d := range s.Shape {
		if other.Start[d] < s.Start[d] || otherEnd[d] > end[d] {
			return false
		}
	}
	return true
}

// Overlap returns the intersection of s and other, and whether it is
// non-empty. Both subsets must have the same dimensionality.
func (s Subset) Overlap(other Subset) (Subset, bool) {
	if len(other.Shape) != len(s.Shape) {
		return Subset{}, false
	}
	n := len(s.Shape)
	start := make([]uint64, n)
	shape := make([]uint64, n)
	sEnd := s.End()
	oEnd := other.End()
	for d := 0; d < n; d++ {
		lo := max64(s.Start[d], other.Start[d])
		hi := min64(sEnd[d], oEnd[d])
		if hi <= lo {
			return Subset{}, false
		}
		start[d] = lo
		shape[d] = hi - lo
	}
	return Subset{Start: start, Shape: shape}, true
}

// RelativeTo re-expresses s relative to origin: the returned subset has the
// same shape but Start[d] = s.Start[d] - origin[d]. Panics (programmer
// error, never caller data) if s does not lie at or beyond origin.
func (s Subset) RelativeTo(origin []uint64) Subset {
	if len(origin) != len(s.Start) {
		panic("subset: RelativeTo dimensionality mismatch")
	}
	start := make([]uint64, len(s.Start))
	for d := range s.Start {
		if s.Start[d] < origin[d] {
			panic("subset: RelativeTo origin is ahead of subset start")
		}
		start[d] = s.Start[d] - origin[d]
	}
	return Subset{Start: start, Shape: append([]uint64(nil), s.Shape...)}
}

// ToRanges returns, per dimension, the [start, end) pair.
func (s Subset) ToRanges() [][2]uint64 {
	out := make([][2]uint64, len(s.Shape))
	end := s.End()
	for d := range s.Shape {
		out[d] = [2]uint64{s.Start[d], end[d]}
	}
	return out
}

func (s Subset) String() string {
	return fmt.Sprintf("Subset{start=%v shape=%v}", s.Start, s.Shape)
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
