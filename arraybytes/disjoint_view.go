package arraybytes

import (
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/subset"
)

// DisjointView is a writable window into one shared output buffer, handed
// to a single fan-out worker so that concurrent chunk reads can write
// their overlap directly into the final buffer without a merge pass.
//
// Invariant: the subset domains of views handed out over one parent buffer
// are pairwise disjoint. Construction is the only place it is enforced:
// NewDisjointViews builds one view per non-overlapping chunk subset, so two
// views from the same parent can never alias the same bytes, and there is
// no API to construct a DisjointView outside this package.
type DisjointView struct {
	buf         []byte
	elementSize int
	fullShape   []uint64
	sub         subset.Subset
}

// NewDisjointViews partitions buf (elementSize*prod(fullShape) bytes) into
// one DisjointView per subset in subs. subs must be pairwise non-overlapping
// and each inbounds of fullShape; both are checked so a bug in the caller's
// chunk-decomposition is surfaced immediately rather than corrupting memory.
func NewDisjointViews(buf []byte, elementSize int, fullShape []uint64, subs []subset.Subset) ([]DisjointView, error) {
	full := subset.FromShape(fullShape)
	views := make([]DisjointView, len(subs))
	for i, s := range subs {
		if err := s.Validate(len(fullShape), fullShape); err != nil {
			return nil, err
		}
		if !full.Inbounds(s) {
			return nil, errs.New(errs.InvalidArraySubset, "subset %v out of bounds of %v", s, full)
		}
		for j := 0; j < i; j++ {
			if _, overlap := s.Overlap(subs[j]); overlap {
				return nil, errs.New(errs.InvalidArraySubset, "disjoint-view construction given overlapping subsets %v and %v", s, subs[j])
			}
		}
		views[i] = DisjointView{buf: buf, elementSize: elementSize, fullShape: fullShape, sub: s}
	}
	return views, nil
}

// Subset returns the view's subset of the full buffer.
func (v DisjointView) Subset() subset.Subset { return v.sub }

// ByteLength returns the number of bytes this view's subset occupies.
func (v DisjointView) ByteLength() uint64 { return v.sub.NumElements() * uint64(v.elementSize) }

// WriteArrayBytes overlays ab (an ArrayBytes in the view's own relative
// coordinate space, with the view's Subset()'s shape) into the shared
// buffer at this view's subset.
func (v DisjointView) WriteArrayBytes(ab ArrayBytes) error {
	full := ArrayBytes{Kind: Fixed, FixedBytes: v.buf}
	return full.Update(v.fullShape, v.sub, ab, v.elementSize)
}

// Subdivide splits this view into further DisjointViews, each of which
// must remain inbounds of the parent's own subset, preserving the
// invariant recursively.
func (v DisjointView) Subdivide(subs []subset.Subset) ([]DisjointView, error) {
	for _, s := range subs {
		if !v.sub.Inbounds(s) {
			return nil, errs.New(errs.InvalidArraySubset, "subdivided subset %v not inbounds of parent view %v", s, v.sub)
		}
	}
	return NewDisjointViews(v.buf, v.elementSize, v.fullShape, subs)
}
