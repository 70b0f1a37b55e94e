package subset

import "github.com/TuSKan/zarr-go/errs"

// Mode tags which selection style an Indexer carries.
type Mode int

const (
	// ModeSubset is a plain rectangular Subset; fully supported by every
	// component in this module.
	ModeSubset Mode = iota
	// ModeOrthogonal selects, per dimension, an explicit ascending list
	// of indices; the selection is the cartesian product of those lists
	// (numpy "orthogonal indexing" / outer indexing).
	ModeOrthogonal
	// ModePoints selects an explicit list of full-rank coordinates (numpy
	// "vindex" / fancy point indexing, one coordinate per selected
	// element rather than a cartesian product).
	ModePoints
)

// Indexer is a generalised selector: a rectangular subset, a per-dim
// orthogonal index list, or a point list. Only ModeSubset is guaranteed to
// be accepted by every component; ModeOrthogonal and ModePoints are
// rejected with InvalidArraySubset by components that don't implement them.
type Indexer struct {
	Mode Mode

	// Subset is populated when Mode == ModeSubset.
	Subset Subset

	// PerDim is populated when Mode == ModeOrthogonal: one ascending,
	// duplicate-free index list per dimension.
	PerDim [][]uint64

	// Points is populated when Mode == ModePoints: one full-rank
	// coordinate per selected element.
	Points [][]uint64
}

// NewSubsetIndexer wraps a Subset as an Indexer.
func NewSubsetIndexer(s Subset) Indexer { return Indexer{Mode: ModeSubset, Subset: s} }

// NewOrthogonalIndexer builds an orthogonal-index Indexer.
func NewOrthogonalIndexer(perDim [][]uint64) Indexer {
	return Indexer{Mode: ModeOrthogonal, PerDim: perDim}
}

// NewPointsIndexer builds a point-list ("vindex") Indexer.
func NewPointsIndexer(points [][]uint64) Indexer {
	return Indexer{Mode: ModePoints, Points: points}
}

// AsSubset returns the Indexer's Subset and true if it is rectangular
// (ModeSubset), or the zero Subset and false otherwise. Components that
// only support rectangular subsets should call this and return
// InvalidArraySubset when ok is false.
func (ix Indexer) AsSubset() (Subset, bool) {
	if ix.Mode == ModeSubset {
		return ix.Subset, true
	}
	return Subset{}, false
}

// RequireSubset is the common guard used by components that only support
// ModeSubset: it returns a clear InvalidArraySubset error for the other
// modes instead of silently misinterpreting them.
func (ix Indexer) RequireSubset() (Subset, error) {
	s, ok := ix.AsSubset()
	if !ok {
		return Subset{}, errs.New(errs.InvalidArraySubset, "indexer mode %d is not a rectangular subset; this component only supports rectangular subsets", ix.Mode)
	}
	return s, nil
}

// orthoRun is one consecutive stretch of a dimension's index list: source
// indices [srcStart, srcStart+length) land at output positions
// [dstStart, dstStart+length).
type orthoRun struct {
	srcStart uint64
	dstStart uint64
	length   uint64
}

func orthoRuns(list []uint64) ([]orthoRun, error) {
	var runs []orthoRun
	for i := 0; i < len(list); {
		j := i + 1
		for j < len(list) && list[j] == list[j-1]+1 {
			j++
		}
		if j < len(list) && list[j] <= list[j-1] {
			return nil, errs.New(errs.InvalidArraySubset, "orthogonal index list must be strictly ascending at position %d", j)
		}
		runs = append(runs, orthoRun{srcStart: list[i], dstStart: uint64(i), length: uint64(j - i)})
		i = j
	}
	return runs, nil
}

// Decompose splits the selection into pairs of rectangular subsets: src[i]
// selects from the array, dst[i] is where that block lands in the
// selection's own dense coordinate space of shape outShape. A rectangular
// subset decomposes into itself; an orthogonal selection decomposes into
// the cartesian product of each dimension's consecutive index runs;
// point-list selections are rejected with InvalidArraySubset.
func (ix Indexer) Decompose() (src, dst []Subset, outShape []uint64, err error) {
	switch ix.Mode {
	case ModeSubset:
		return []Subset{ix.Subset}, []Subset{FromShape(ix.Subset.Shape)}, ix.Subset.Shape, nil

	case ModeOrthogonal:
		n := len(ix.PerDim)
		outShape = make([]uint64, n)
		perDimRuns := make([][]orthoRun, n)
		for d, list := range ix.PerDim {
			outShape[d] = uint64(len(list))
			runs, rerr := orthoRuns(list)
			if rerr != nil {
				return nil, nil, nil, rerr
			}
			perDimRuns[d] = runs
		}
		for d := range perDimRuns {
			if len(perDimRuns[d]) == 0 {
				return nil, nil, outShape, nil // empty selection
			}
		}

		pick := make([]int, n)
		for {
			srcStart := make([]uint64, n)
			dstStart := make([]uint64, n)
			shape := make([]uint64, n)
			for d, p := range pick {
				r := perDimRuns[d][p]
				srcStart[d] = r.srcStart
				dstStart[d] = r.dstStart
				shape[d] = r.length
			}
			src = append(src, Subset{Start: srcStart, Shape: shape})
			dst = append(dst, Subset{Start: dstStart, Shape: append([]uint64(nil), shape...)})

			d := n - 1
			for d >= 0 {
				pick[d]++
				if pick[d] < len(perDimRuns[d]) {
					break
				}
				pick[d] = 0
				d--
			}
			if d < 0 {
				break
			}
		}
		return src, dst, outShape, nil

	default:
		return nil, nil, nil, errs.New(errs.InvalidArraySubset, "point-list (vindex) selections are not supported; use a rectangular or orthogonal selection")
	}
}
