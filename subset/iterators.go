package subset

// Indices returns every absolute coordinate covered by s, in row-major (C)
// order. It materialises eagerly; for large subsets prefer splitting the
// linear index space across workers.
func (s Subset) Indices() [][]uint64 {
	n := s.NumElements()
	out := make([][]uint64, 0, n)
	s.eachIndex(func(coord []uint64) {
		cp := append([]uint64(nil), coord...)
		out = append(out, cp)
	})
	return out
}

// eachIndex visits every coordinate in s in row-major order without
// allocating a result slice.
func (s Subset) eachIndex(visit func(coord []uint64)) {
	if s.Empty() {
		return
	}
	n := len(s.Shape)
	coord := make([]uint64, n)
	copy(coord, s.Start)
	end := s.End()
	for {
		visit(coord)
		d := n - 1
		for d >= 0 {
			coord[d]++
			if coord[d] < end[d] {
				break
			}
			coord[d] = s.Start[d]
			d--
		}
		if d < 0 {
			return
		}
	}
}

// LinearIndex converts an absolute coordinate into a linear row-major index
// within arrayShape.
func LinearIndex(coord, arrayShape []uint64) uint64 {
	idx := uint64(0)
	stride := uint64(1)
	for d := len(arrayShape) - 1; d >= 0; d-- {
		idx += coord[d] * stride
		stride *= arrayShape[d]
	}
	return idx
}

// Run is a maximal contiguous run of linear indices within some enclosing
// array shape: [Start, Start+Length).
type Run struct {
	Start  uint64
	Length uint64
}

// ContiguousIndices groups s's indices into maximal runs that are adjacent
// in arrayShape's row-major linear memory. The run length is
// the largest suffix of dimensions for which s spans the full extent of
// arrayShape; this is what turns per-element copies into memcpy-sized
// chunks in the subset engine.
func (s Subset) ContiguousIndices(arrayShape []uint64) []Run {
	if s.Empty() {
		return nil
	}
	n := len(s.Shape)
	if n == 0 {
		return []Run{{Start: 0, Length: 1}}
	}

	// Walk from the last dimension inward: while a dimension fully spans
	// arrayShape, it merges with the already-accumulated fully-spanning
	// suffix and we keep extending the boundary left. The first
	// dimension that does NOT fully span still contributes its own
	// (contiguous, by construction of Subset) extent to the run once,
	// then becomes the boundary: dimensions further left each start a
	// fresh run.
	runLen := uint64(1)
	contiguousFrom := 0
	for d := n - 1; d >= 0; d-- {
		runLen *= s.Shape[d]
		contiguousFrom = d
		if s.Start[d] == 0 && s.Shape[d] == arrayShape[d] {
			continue // fully spans; keep extending the boundary left
		}
		break
	}

	// Iterate over all coordinates in the non-contiguous prefix
	// dimensions [0, contiguousFrom), emitting one run per combination.
	prefix := Subset{Start: s.Start[:contiguousFrom], Shape: s.Shape[:contiguousFrom]}
	var runs []Run
	if contiguousFrom == 0 {
		// The whole subset is one run starting at s.Start.
		runs = append(runs, Run{Start: LinearIndex(s.Start, arrayShape), Length: runLen})
		return runs
	}
	prefix.eachIndex(func(pcoord []uint64) {
		coord := make([]uint64, n)
		copy(coord, pcoord)
		for d := contiguousFrom; d < n; d++ {
			coord[d] = s.Start[d]
		}
		runs = append(runs, Run{Start: LinearIndex(coord, arrayShape), Length: runLen})
	})
	return runs
}

// ChunkShapeFunc maps chunk indices to that chunk's subset of the array;
// implemented by chunkgrid.Grid. It is expressed as a function here to
// avoid an import cycle between subset and chunkgrid.
type ChunkShapeFunc func(chunkIndices []uint64) (Subset, error)

// Chunks iterates the chunk indices (in the grid defined by chunkShape,
// one chunk index per dim) whose chunk subsets overlap s. gridShape gives
// the number of chunks per dimension.
func (s Subset) Chunks(gridShape []uint64, chunkSubset ChunkShapeFunc) ([][]uint64, error) {
	n := len(s.Shape)
	if n == 0 {
		return [][]uint64{{}}, nil
	}
	// We don't know per-dim chunk size directly here (rectangular grids
	// vary it), so this generic version probes every chunk index in
	// gridShape and keeps the ones that overlap, which is correct for
	// both grid kinds.
	var out [][]uint64
	idx := make([]uint64, n)
	for {
		cs, err := chunkSubset(idx)
		if err != nil {
			return nil, err
		}
		if _, ok := s.Overlap(cs); ok {
			out = append(out, append([]uint64(nil), idx...))
		}
		d := n - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < gridShape[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return out, nil
}
