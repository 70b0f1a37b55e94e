// Package chunkgrid maps array coordinates to chunk coordinates and back:
// Regular (fixed chunk shape) and Rectangular (per-dim variable chunk
// shape) variants behind a common Grid interface.
package chunkgrid

import (
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/subset"
)

// Grid is the chunk-grid policy: array coordinates <-> chunk coordinates.
// Implemented by *Regular and *Rectangular.
type Grid interface {
	// Dimensionality returns the number of array dimensions.
	Dimensionality() int

	// GridShape returns, for the given array shape, the number of chunks
	// per dimension.
	GridShape(arrayShape []uint64) ([]uint64, error)

	// ChunkShape returns the shape of the chunk at chunkIndices. For a
	// Regular grid this is constant except at the array's trailing edge
	// (which Regular still reports as the nominal chunk shape; callers
	// combine it with the array shape via Subset to find the used
	// portion); Rectangular reports the exact configured shape.
	ChunkShape(chunkIndices []uint64) ([]uint64, error)

	// ChunkOrigin returns the array-space coordinate of the chunk's first
	// element.
	ChunkOrigin(chunkIndices []uint64) ([]uint64, error)

	// ChunkIndices returns the chunk-grid coordinates containing the
	// given array-space coordinate.
	ChunkIndices(arrayIndices []uint64) ([]uint64, error)

	// Subset returns the full array-space Subset occupied by the chunk at
	// chunkIndices (i.e. ChunkOrigin combined with ChunkShape).
	Subset(chunkIndices []uint64) (subset.Subset, error)
}

func invalidIndices(format string, args ...any) error {
	return errs.New(errs.InvalidChunkGridIndices, format, args...)
}

// ceilDiv computes ceil(a/b) for positive integers.
func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
