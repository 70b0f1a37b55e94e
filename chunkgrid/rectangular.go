package chunkgrid

import (
	"sort"

	"github.com/TuSKan/zarr-go/subset"
)

// Rectangular is a chunk grid whose chunk shape may vary per chunk, per
// dimension (e.g. an array chunked [10, 10, 10, ...] in dim 0 but with a
// shorter final chunk). It pre-computes cumulative offsets per dimension
// and looks up the chunk containing an array index via binary search.
type Rectangular struct {
	// ChunkSizes[d] lists the chunk extents along dimension d, in order;
	// their sum is that dimension's full array extent.
	ChunkSizes [][]uint64
	// offsets[d][i] is the cumulative sum of ChunkSizes[d][:i].
	offsets [][]uint64
}

var _ Grid = (*Rectangular)(nil)

func NewRectangular(chunkSizes [][]uint64) *Rectangular {
	offsets := make([][]uint64, len(chunkSizes))
	for d, sizes := range chunkSizes {
		cum := make([]uint64, len(sizes)+1)
		for i, sz := range sizes {
			cum[i+1] = cum[i] + sz
		}
		offsets[d] = cum
	}
	return &Rectangular{ChunkSizes: chunkSizes, offsets: offsets}
}

func (g *Rectangular) Dimensionality() int { return len(g.ChunkSizes) }

func (g *Rectangular) GridShape(arrayShape []uint64) ([]uint64, error) {
	if len(arrayShape) != len(g.ChunkSizes) {
		return nil, invalidIndices("array shape has %d dims, grid has %d", len(arrayShape), len(g.ChunkSizes))
	}
	out := make([]uint64, len(g.ChunkSizes))
	for d := range g.ChunkSizes {
		out[d] = uint64(len(g.ChunkSizes[d]))
	}
	return out, nil
}

func (g *Rectangular) checkDims(chunkIndices []uint64) error {
	if len(chunkIndices) != len(g.ChunkSizes) {
		return invalidIndices("chunk indices have %d dims, grid has %d", len(chunkIndices), len(g.ChunkSizes))
	}
	for d, idx := range chunkIndices {
		if idx >= uint64(len(g.ChunkSizes[d])) {
			return invalidIndices("chunk index %d out of range [0,%d) in dim %d", idx, len(g.ChunkSizes[d]), d)
		}
	}
	return nil
}

func (g *Rectangular) ChunkShape(chunkIndices []uint64) ([]uint64, error) {
	if err := g.checkDims(chunkIndices); err != nil {
		return nil, err
	}
	out := make([]uint64, len(chunkIndices))
	for d, idx := range chunkIndices {
		out[d] = g.ChunkSizes[d][idx]
	}
	return out, nil
}

func (g *Rectangular) ChunkOrigin(chunkIndices []uint64) ([]uint64, error) {
	if err := g.checkDims(chunkIndices); err != nil {
		return nil, err
	}
	out := make([]uint64, len(chunkIndices))
	for d, idx := range chunkIndices {
		out[d] = g.offsets[d][idx]
	}
	return out, nil
}

// ChunkIndices finds, per dimension, the chunk index whose cumulative
// offset range contains arrayIndices[d], via binary search over the
// pre-computed cumulative offsets.
func (g *Rectangular) ChunkIndices(arrayIndices []uint64) ([]uint64, error) {
	if len(arrayIndices) != len(g.ChunkSizes) {
		return nil, invalidIndices("array indices have %d dims, grid has %d", len(arrayIndices), len(g.ChunkSizes))
	}
	out := make([]uint64, len(arrayIndices))
	for d, pos := range arrayIndices {
		offs := g.offsets[d]
		// offs is strictly increasing (chunk sizes are assumed > 0);
		// find the last i such that offs[i] <= pos.
		i := sort.Search(len(offs), func(i int) bool { return offs[i] > pos }) - 1
		if i < 0 || i >= len(offs)-1 {
			return nil, invalidIndices("array index %d out of range in dim %d", pos, d)
		}
		out[d] = uint64(i)
	}
	return out, nil
}

func (g *Rectangular) Subset(chunkIndices []uint64) (subset.Subset, error) {
	origin, err := g.ChunkOrigin(chunkIndices)
	if err != nil {
		return subset.Subset{}, err
	}
	shape, err := g.ChunkShape(chunkIndices)
	if err != nil {
		return subset.Subset{}, err
	}
	return subset.New(origin, shape), nil
}
