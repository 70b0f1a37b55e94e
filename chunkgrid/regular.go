package chunkgrid

import "github.com/TuSKan/zarr-go/subset"

// Regular is a chunk grid with one fixed chunk shape applied uniformly
// across the array.
type Regular struct {
	ChunkShapeVec []uint64
}

var _ Grid = (*Regular)(nil)

func NewRegular(chunkShape []uint64) *Regular {
	return &Regular{ChunkShapeVec: append([]uint64(nil), chunkShape...)}
}

func (g *Regular) Dimensionality() int { return len(g.ChunkShapeVec) }

// GridShape computes, per dimension, ceil(arrayShape[d] / chunkShape[d]).
// A zero (unlimited) array dimension has an unbounded grid shape, reported
// as 0 (meaning "not bound-checked").
func (g *Regular) GridShape(arrayShape []uint64) ([]uint64, error) {
	if len(arrayShape) != len(g.ChunkShapeVec) {
		return nil, invalidIndices("array shape has %d dims, grid has %d", len(arrayShape), len(g.ChunkShapeVec))
	}
	out := make([]uint64, len(arrayShape))
	for d := range arrayShape {
		if arrayShape[d] == 0 {
			out[d] = 0
			continue
		}
		out[d] = ceilDiv(arrayShape[d], g.ChunkShapeVec[d])
	}
	return out, nil
}

func (g *Regular) checkDims(chunkIndices []uint64) error {
	if len(chunkIndices) != len(g.ChunkShapeVec) {
		return invalidIndices("chunk indices have %d dims, grid has %d", len(chunkIndices), len(g.ChunkShapeVec))
	}
	return nil
}

func (g *Regular) ChunkShape(chunkIndices []uint64) ([]uint64, error) {
	if err := g.checkDims(chunkIndices); err != nil {
		return nil, err
	}
	return append([]uint64(nil), g.ChunkShapeVec...), nil
}

func (g *Regular) ChunkOrigin(chunkIndices []uint64) ([]uint64, error) {
	if err := g.checkDims(chunkIndices); err != nil {
		return nil, err
	}
	origin := make([]uint64, len(chunkIndices))
	for d, idx := range chunkIndices {
		origin[d] = idx * g.ChunkShapeVec[d]
	}
	return origin, nil
}

func (g *Regular) ChunkIndices(arrayIndices []uint64) ([]uint64, error) {
	if len(arrayIndices) != len(g.ChunkShapeVec) {
		return nil, invalidIndices("array indices have %d dims, grid has %d", len(arrayIndices), len(g.ChunkShapeVec))
	}
	out := make([]uint64, len(arrayIndices))
	for d, idx := range arrayIndices {
		out[d] = idx / g.ChunkShapeVec[d]
	}
	return out, nil
}

func (g *Regular) Subset(chunkIndices []uint64) (subset.Subset, error) {
	origin, err := g.ChunkOrigin(chunkIndices)
	if err != nil {
		return subset.Subset{}, err
	}
	return subset.New(origin, g.ChunkShapeVec), nil
}

// SubsetWithinArray is like Subset but clips the chunk's nominal shape
// against the array's actual shape, for the common case of a trailing
// chunk that the array shape doesn't fully fill.
func (g *Regular) SubsetWithinArray(chunkIndices []uint64, arrayShape []uint64) (subset.Subset, error) {
	full, err := g.Subset(chunkIndices)
	if err != nil {
		return subset.Subset{}, err
	}
	shape := make([]uint64, len(full.Shape))
	for d := range full.Shape {
		shape[d] = full.Shape[d]
		if arrayShape[d] != 0 {
			if end := full.Start[d] + full.Shape[d]; end > arrayShape[d] {
				if full.Start[d] >= arrayShape[d] {
					shape[d] = 0
				} else {
					shape[d] = arrayShape[d] - full.Start[d]
				}
			}
		}
	}
	return subset.New(full.Start, shape), nil
}
