package zarr

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/byterange"
	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/concurrency"
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/storage"
	"github.com/TuSKan/zarr-go/subset"
)

// Array is the chunk router and subset engine: it maps operations over an
// arbitrary hyper-rectangular region of the logical array to per-chunk
// retrieve/store calls, fanning out concurrently and merging the results.
type Array struct {
	Meta  *Metadata
	Store storage.Store

	// Locker guards read-modify-write sequences per chunk key.
	Locker *storage.KeyLocker

	// Budget is the global concurrency target split between chunk
	// fan-out and per-chunk codec concurrency.
	Budget concurrency.Budget

	// StoreEmptyChunks, when false (the default), elides writing a
	// chunk whose fully-overlaid contents equal the fill value, erasing
	// it instead.
	StoreEmptyChunks bool
}

// NewArray wraps an already-parsed Metadata and a storage backend into an
// Array ready for chunk and subset operations, with a default concurrency
// budget of 1 (sequential).
func NewArray(store storage.Store, meta *Metadata) *Array {
	return &Array{
		Meta:   meta,
		Store:  store,
		Locker: storage.NewKeyLocker(),
		Budget: concurrency.New(1),
	}
}

// Create writes meta's zarr.json to store and returns the resulting Array.
func Create(ctx context.Context, store storage.Store, meta *Metadata) (*Array, error) {
	if err := WriteMetadata(ctx, store, meta); err != nil {
		return nil, err
	}
	return NewArray(store, meta), nil
}

// Open reads and parses the array metadata at path within store (V3
// zarr.json, falling back to legacy V2) and returns the resulting Array.
func Open(ctx context.Context, store storage.Store, path string) (*Array, error) {
	meta, err := OpenMetadata(ctx, store, path)
	if err != nil {
		return nil, err
	}
	return NewArray(store, meta), nil
}

// Options returns the codec.Options this Array passes through its
// pipeline calls by default.
func (a *Array) Options() codec.Options {
	return codec.Options{ConcurrentTarget: a.Budget.Target, StoreEmptyChunks: a.StoreEmptyChunks}
}

func (a *Array) chunkKey(chunkIndices []uint64) storage.Key {
	return joinPath(a.Meta.Path, a.Meta.ChunkKeyEncoding.Encode(chunkIndices))
}

func (a *Array) chunkRepresentation(chunkIndices []uint64) (codec.ChunkRepresentation, error) {
	shape, err := a.Meta.ChunkGrid.ChunkShape(chunkIndices)
	if err != nil {
		return codec.ChunkRepresentation{}, err
	}
	return codec.ChunkRepresentation{
		Shape:       shape,
		ElementSize: a.Meta.DataType.ElementSize,
		FillValue:   a.Meta.FillValue.Bytes,
	}, nil
}

// fillValueArrayBytes builds the canonical "absent chunk" decoded payload
// for rep.
func (a *Array) fillValueArrayBytes(rep codec.ChunkRepresentation) arraybytes.ArrayBytes {
	if a.Meta.DataType.Variable {
		return arraybytes.NewFillValueVariable(rep.NumElements())
	}
	return arraybytes.NewFillValueFixed(rep.NumElements(), rep.ElementSize, a.Meta.FillValue)
}

// RetrieveChunk reads, decodes, and returns one whole chunk's decoded
// payload, or the fill value if the chunk is absent from the store.
func (a *Array) RetrieveChunk(ctx context.Context, chunkIndices []uint64) (arraybytes.ArrayBytes, error) {
	return a.retrieveChunk(ctx, chunkIndices, a.Options())
}

func (a *Array) retrieveChunk(ctx context.Context, chunkIndices []uint64, opts codec.Options) (arraybytes.ArrayBytes, error) {
	rep, err := a.chunkRepresentation(chunkIndices)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	key := a.chunkKey(chunkIndices)

	var out arraybytes.ArrayBytes
	err = a.Locker.WithRLock(key, func() error {
		data, gerr := a.Store.Get(ctx, key)
		if gerr != nil {
			return errs.New(errs.StorageError, "retrieve chunk %s: %v", key, gerr)
		}
		if data == nil {
			out = a.fillValueArrayBytes(rep)
			return nil
		}
		decoded, derr := a.Meta.Codecs.Decode(ctx, data, rep, opts)
		if derr != nil {
			return derr
		}
		out = decoded
		return nil
	})
	return out, err
}

// StoreChunk encodes and writes one whole chunk's decoded payload. When
// a.StoreEmptyChunks is false and ab equals the fill value everywhere, the
// chunk key is erased instead of written.
func (a *Array) StoreChunk(ctx context.Context, chunkIndices []uint64, ab arraybytes.ArrayBytes) error {
	return a.storeChunk(ctx, chunkIndices, ab, a.Options())
}

func (a *Array) storeChunk(ctx context.Context, chunkIndices []uint64, ab arraybytes.ArrayBytes, opts codec.Options) error {
	rep, err := a.chunkRepresentation(chunkIndices)
	if err != nil {
		return err
	}
	key := a.chunkKey(chunkIndices)

	return a.Locker.WithLock(key, func() error {
		if !opts.StoreEmptyChunks && ab.IsFillValue(a.Meta.FillValue) {
			if eerr := a.Store.Erase(ctx, key); eerr != nil {
				return errs.New(errs.StorageError, "erase chunk %s: %v", key, eerr)
			}
			return nil
		}
		encoded, eerr := a.Meta.Codecs.Encode(ctx, ab, rep, opts)
		if eerr != nil {
			return eerr
		}
		if serr := a.Store.Set(ctx, key, encoded); serr != nil {
			return errs.New(errs.StorageError, "store chunk %s: %v", key, serr)
		}
		return nil
	})
}

func isWholeChunk(sub subset.Subset, shape []uint64) bool {
	for d := range shape {
		if sub.Start[d] != 0 || sub.Shape[d] != shape[d] {
			return false
		}
	}
	return true
}

// ReadChunkSubset reads just the requested sub-region of one chunk: a
// subset spanning the whole chunk goes through the ordinary full decode,
// anything smaller goes through the codec chain's partial decoder.
func (a *Array) ReadChunkSubset(ctx context.Context, chunkIndices []uint64, sub subset.Subset) (arraybytes.ArrayBytes, error) {
	return a.readChunkSubset(ctx, chunkIndices, sub, a.Options())
}

func (a *Array) readChunkSubset(ctx context.Context, chunkIndices []uint64, sub subset.Subset, opts codec.Options) (arraybytes.ArrayBytes, error) {
	rep, err := a.chunkRepresentation(chunkIndices)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	if err := sub.Validate(len(rep.Shape), rep.Shape); err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	if isWholeChunk(sub, rep.Shape) {
		return a.retrieveChunk(ctx, chunkIndices, opts)
	}

	key := a.chunkKey(chunkIndices)
	input := &storeInputHandle{store: a.Store, key: key}

	var out arraybytes.ArrayBytes
	err = a.Locker.WithRLock(key, func() error {
		size, serr := a.Store.SizeKey(ctx, key)
		if serr != nil {
			return errs.New(errs.StorageError, "size chunk %s: %v", key, serr)
		}
		if size == nil {
			out, err = a.fillValueArrayBytes(rep).ExtractArraySubset(sub, rep.Shape, rep.ElementSize)
			return err
		}
		pd, perr := a.Meta.Codecs.PartialDecoder(input, rep, opts)
		if perr != nil {
			return perr
		}
		results, derr := pd.PartialDecode(ctx, []subset.Subset{sub}, opts)
		if derr != nil {
			return derr
		}
		out = results[0]
		return nil
	})
	return out, err
}

// WriteChunkSubset overlays newBytes (covering sub, in the chunk's own
// coordinate space) onto one chunk under the chunk's exclusive lock. A
// subset spanning the whole chunk skips decode/overlay and stores
// directly; a chain supporting in-place partial encode (sharding) updates
// only the touched inner chunks; everything else read-modify-writes the
// whole stored value.
func (a *Array) WriteChunkSubset(ctx context.Context, chunkIndices []uint64, sub subset.Subset, newBytes arraybytes.ArrayBytes) error {
	return a.writeChunkSubset(ctx, chunkIndices, sub, newBytes, a.Options())
}

func (a *Array) writeChunkSubset(ctx context.Context, chunkIndices []uint64, sub subset.Subset, newBytes arraybytes.ArrayBytes, opts codec.Options) error {
	rep, err := a.chunkRepresentation(chunkIndices)
	if err != nil {
		return err
	}
	if isWholeChunk(sub, rep.Shape) {
		return a.storeChunk(ctx, chunkIndices, newBytes, opts)
	}
	key := a.chunkKey(chunkIndices)

	return a.Locker.WithLock(key, func() error {
		// In-place partial encode (sharding): overlay the touched inner
		// chunks without rewriting the rest of the stored value.
		output := &storeOutputHandle{
			storeInputHandle: storeInputHandle{store: a.Store, key: key},
			writer:           a.Store,
		}
		if pe, ok, perr := a.Meta.Codecs.PartialEncoder(output, rep, opts); perr != nil {
			return perr
		} else if ok {
			return pe.PartialEncode(ctx, []subset.Subset{sub}, []arraybytes.ArrayBytes{newBytes}, opts)
		}

		var whole arraybytes.ArrayBytes
		data, gerr := a.Store.Get(ctx, key)
		if gerr != nil {
			return errs.New(errs.StorageError, "read chunk %s: %v", key, gerr)
		}
		if data == nil {
			whole = a.fillValueArrayBytes(rep)
		} else {
			whole, err = a.Meta.Codecs.Decode(ctx, data, rep, opts)
			if err != nil {
				return err
			}
		}
		if err := whole.Update(rep.Shape, sub, newBytes, rep.ElementSize); err != nil {
			return err
		}
		if !opts.StoreEmptyChunks && whole.IsFillValue(a.Meta.FillValue) {
			if eerr := a.Store.Erase(ctx, key); eerr != nil {
				return errs.New(errs.StorageError, "erase chunk %s: %v", key, eerr)
			}
			return nil
		}
		encoded, eerr := a.Meta.Codecs.Encode(ctx, whole, rep, opts)
		if eerr != nil {
			return eerr
		}
		if serr := a.Store.Set(ctx, key, encoded); serr != nil {
			return errs.New(errs.StorageError, "store chunk %s: %v", key, serr)
		}
		return nil
	})
}

// chunkSubsetFunc returns the subset.ChunkShapeFunc to iterate the grid
// with: a Regular grid clips trailing chunks to the array's actual shape
// (SubsetWithinArray), other grid kinds already report exact shapes.
func (a *Array) chunkSubsetFunc() subset.ChunkShapeFunc {
	if r, ok := a.Meta.ChunkGrid.(*chunkgrid.Regular); ok {
		return func(idx []uint64) (subset.Subset, error) {
			return r.SubsetWithinArray(idx, a.Meta.Shape)
		}
	}
	return a.Meta.ChunkGrid.Subset
}

// effectiveGridShape resolves the grid extent to enumerate for sub. An
// unlimited (zero) array dimension reports a zero grid extent, which would
// end chunk enumeration at index 0 in that dimension; the extent actually
// needed is derived from the subset's own end coordinate instead.
func (a *Array) effectiveGridShape(sub subset.Subset) ([]uint64, error) {
	gridShape, err := a.Meta.ChunkGrid.GridShape(a.Meta.Shape)
	if err != nil {
		return nil, err
	}
	unlimited := false
	for _, g := range gridShape {
		if g == 0 {
			unlimited = true
			break
		}
	}
	if !unlimited || sub.Empty() {
		return gridShape, nil
	}
	end := sub.End()
	last := make([]uint64, len(end))
	for d, e := range end {
		last[d] = e - 1
	}
	idx, err := a.Meta.ChunkGrid.ChunkIndices(last)
	if err != nil {
		return nil, err
	}
	for d := range gridShape {
		if gridShape[d] == 0 {
			gridShape[d] = idx[d] + 1
		}
	}
	return gridShape, nil
}

func (a *Array) splitConcurrency(chunks [][]uint64) (chunkConcurrency, perChunkConcurrency uint64) {
	codecPreferred := uint64(1)
	if len(chunks) > 0 {
		if rep, err := a.chunkRepresentation(chunks[0]); err == nil {
			codecPreferred = a.Meta.Codecs.RecommendedConcurrency(rep).Max
		}
	}
	return a.Budget.Split(uint64(len(chunks)), codecPreferred)
}

// ReadArraySubset reads an arbitrary hyper-rectangular region of the
// logical array, routing to the overlapping chunks and assembling the
// result: 0 chunks returns the fill value, 1 chunk reads (and, if needed,
// slices) it directly, >1 fans out under the concurrency budget and
// assembles via disjoint views (fixed-size types) or a merge pass
// (variable-size types).
//
// Only dimensionality is checked here, not array-shape bounds: a subset
// entirely beyond the array's extent overlaps zero chunks and comes back
// as fill value, not InvalidArraySubset. WriteArraySubset keeps the
// strict bound check since overwriting past the declared shape would
// silently grow the array.
func (a *Array) ReadArraySubset(ctx context.Context, sub subset.Subset) (arraybytes.ArrayBytes, error) {
	if err := sub.Validate(len(a.Meta.Shape), nil); err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	gridShape, err := a.effectiveGridShape(sub)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	chunkSubsetFunc := a.chunkSubsetFunc()
	chunks, err := sub.Chunks(gridShape, chunkSubsetFunc)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}

	switch len(chunks) {
	case 0:
		rep := codec.ChunkRepresentation{Shape: sub.Shape, ElementSize: a.Meta.DataType.ElementSize}
		return a.fillValueArrayBytes(rep), nil

	case 1:
		chunkSub, err := chunkSubsetFunc(chunks[0])
		if err != nil {
			return arraybytes.ArrayBytes{}, err
		}
		overlap, _ := sub.Overlap(chunkSub)
		relToChunk := overlap.RelativeTo(chunkSub.Start)
		return a.readChunkSubset(ctx, chunks[0], relToChunk, a.Options())

	default:
		chunkConcurrency, perChunkConcurrency := a.splitConcurrency(chunks)
		opts := a.Options()
		opts.ConcurrentTarget = perChunkConcurrency

		type partial struct {
			dest subset.Subset
			ab   arraybytes.ArrayBytes
		}
		results := make([]partial, len(chunks))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(int(chunkConcurrency))
		for i, idx := range chunks {
			i, idx := i, idx
			g.Go(func() error {
				chunkSub, err := chunkSubsetFunc(idx)
				if err != nil {
					return err
				}
				overlap, ok := sub.Overlap(chunkSub)
				if !ok {
					return nil
				}
				relToChunk := overlap.RelativeTo(chunkSub.Start)
				ab, err := a.readChunkSubset(gctx, idx, relToChunk, opts)
				if err != nil {
					return err
				}
				results[i] = partial{dest: overlap.RelativeTo(sub.Start), ab: ab}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return arraybytes.ArrayBytes{}, err
		}

		if a.Meta.DataType.Variable {
			parts := make([]vlenPart, len(results))
			for i, r := range results {
				parts[i] = vlenPart{dest: r.dest, ab: r.ab}
			}
			return mergeChunksVlen(sub, parts)
		}

		buf := make([]byte, sub.NumElements()*uint64(a.Meta.DataType.ElementSize))
		destSubsets := make([]subset.Subset, len(results))
		for i, r := range results {
			destSubsets[i] = r.dest
		}
		views, err := arraybytes.NewDisjointViews(buf, a.Meta.DataType.ElementSize, sub.Shape, destSubsets)
		if err != nil {
			return arraybytes.ArrayBytes{}, err
		}
		for i, v := range views {
			if err := v.WriteArrayBytes(results[i].ab); err != nil {
				return arraybytes.ArrayBytes{}, err
			}
		}
		return arraybytes.NewFixed(buf), nil
	}
}

// WriteArraySubset writes data (covering sub, in sub's own coordinate
// space) into the logical array, routing to and read-modify-writing the
// overlapping chunks.
func (a *Array) WriteArraySubset(ctx context.Context, sub subset.Subset, data arraybytes.ArrayBytes) error {
	if err := sub.Validate(len(a.Meta.Shape), a.Meta.Shape); err != nil {
		return err
	}
	gridShape, err := a.effectiveGridShape(sub)
	if err != nil {
		return err
	}
	chunkSubsetFunc := a.chunkSubsetFunc()
	chunks, err := sub.Chunks(gridShape, chunkSubsetFunc)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) == 1 {
		chunkSub, err := chunkSubsetFunc(chunks[0])
		if err != nil {
			return err
		}
		overlap, _ := sub.Overlap(chunkSub)
		relToChunk := overlap.RelativeTo(chunkSub.Start)
		return a.writeChunkSubset(ctx, chunks[0], relToChunk, data, a.Options())
	}

	chunkConcurrency, perChunkConcurrency := a.splitConcurrency(chunks)
	opts := a.Options()
	opts.ConcurrentTarget = perChunkConcurrency

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(int(chunkConcurrency))
	for _, idx := range chunks {
		idx := idx
		g.Go(func() error {
			chunkSub, err := chunkSubsetFunc(idx)
			if err != nil {
				return err
			}
			overlap, ok := sub.Overlap(chunkSub)
			if !ok {
				return nil
			}
			relToChunk := overlap.RelativeTo(chunkSub.Start)
			relToSub := overlap.RelativeTo(sub.Start)
			portion, err := data.ExtractArraySubset(relToSub, sub.Shape, a.Meta.DataType.ElementSize)
			if err != nil {
				return err
			}
			return a.writeChunkSubset(gctx, idx, relToChunk, portion, opts)
		})
	}
	return g.Wait()
}

// ReadIndexer reads the selection ix describes. Rectangular subsets route
// straight to ReadArraySubset; orthogonal selections decompose into
// rectangular blocks read independently and assembled into the selection's
// dense output buffer; point-list selections are rejected with
// InvalidArraySubset.
func (a *Array) ReadIndexer(ctx context.Context, ix subset.Indexer) (arraybytes.ArrayBytes, error) {
	if s, ok := ix.AsSubset(); ok {
		return a.ReadArraySubset(ctx, s)
	}
	if a.Meta.DataType.Variable {
		return arraybytes.ArrayBytes{}, errs.New(errs.InvalidArraySubset, "orthogonal selections are only supported for fixed-size data types")
	}
	src, dst, outShape, err := ix.Decompose()
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	total := uint64(1)
	for _, d := range outShape {
		total *= d
	}
	buf := make([]byte, total*uint64(a.Meta.DataType.ElementSize))
	views, err := arraybytes.NewDisjointViews(buf, a.Meta.DataType.ElementSize, outShape, dst)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	for i, s := range src {
		block, err := a.ReadArraySubset(ctx, s)
		if err != nil {
			return arraybytes.ArrayBytes{}, err
		}
		if err := views[i].WriteArrayBytes(block); err != nil {
			return arraybytes.ArrayBytes{}, err
		}
	}
	return arraybytes.NewFixed(buf), nil
}

// WriteIndexer is ReadIndexer's dual: data covers the selection's dense
// output shape, and each decomposed block is sliced out and written to its
// rectangular source region.
func (a *Array) WriteIndexer(ctx context.Context, ix subset.Indexer, data arraybytes.ArrayBytes) error {
	if s, ok := ix.AsSubset(); ok {
		return a.WriteArraySubset(ctx, s, data)
	}
	if a.Meta.DataType.Variable {
		return errs.New(errs.InvalidArraySubset, "orthogonal selections are only supported for fixed-size data types")
	}
	src, dst, outShape, err := ix.Decompose()
	if err != nil {
		return err
	}
	for i, d := range dst {
		block, err := data.ExtractArraySubset(d, outShape, a.Meta.DataType.ElementSize)
		if err != nil {
			return err
		}
		if err := a.WriteArraySubset(ctx, src[i], block); err != nil {
			return err
		}
	}
	return nil
}

// vlenPart is one fan-out worker's contribution to a merge_chunks_vlen
// pass: its decoded ArrayBytes plus where (relative to the overall
// requested subset) it belongs.
type vlenPart struct {
	dest subset.Subset
	ab   arraybytes.ArrayBytes
}

// mergeChunksVlen rebuilds one contiguous variable-length payload and
// offsets table from independently-decoded per-chunk parts. Variable-size
// data types can't share a pre-sized disjoint output buffer the way
// fixed-size elements can, since each element's byte length varies.
func mergeChunksVlen(full subset.Subset, parts []vlenPart) (arraybytes.ArrayBytes, error) {
	n := int(full.NumElements())
	elements := make([][]byte, n)
	for _, p := range parts {
		for i, coord := range p.dest.Indices() {
			idx := int(subset.LinearIndex(coord, full.Shape))
			elements[idx] = p.ab.Element(i, 0)
		}
	}
	var data []byte
	offsets := make([]uint64, 0, n+1)
	offsets = append(offsets, 0)
	for _, el := range elements {
		data = append(data, el...)
		offsets = append(offsets, uint64(len(data)))
	}
	return arraybytes.NewVariable(data, offsets)
}

// storeInputHandle adapts a storage.Readable key into codec.InputHandle,
// letting the codec chain's true-partial decoders (the bare bytes codec,
// sharding) push subset requests down to byte-range store reads instead
// of fetching the whole chunk.
type storeInputHandle struct {
	store storage.Readable
	key   storage.Key
}

func (h *storeInputHandle) Size(ctx context.Context) (*uint64, error) {
	return h.store.SizeKey(ctx, h.key)
}

func (h *storeInputHandle) PartialRead(ctx context.Context, ranges []subset.Subset) ([][]byte, error) {
	byteRanges := make([]byterange.Range, len(ranges))
	for i, r := range ranges {
		length := r.Shape[0]
		byteRanges[i] = byterange.NewFromStart(r.Start[0], &length)
	}
	result, err := h.store.GetPartialKey(ctx, h.key, byteRanges)
	if err != nil {
		return nil, errs.New(errs.StorageError, "partial read %s: %v", h.key, err)
	}
	return result, nil
}

var _ codec.InputHandle = (*storeInputHandle)(nil)

// storeOutputHandle extends storeInputHandle with the write surface an
// in-place partial encoder needs over the same key.
type storeOutputHandle struct {
	storeInputHandle
	writer storage.Writable
}

func (h *storeOutputHandle) PartialWrite(ctx context.Context, writes []codec.OffsetWrite) error {
	values := make([]storage.OffsetValue, len(writes))
	for i, w := range writes {
		values[i] = storage.OffsetValue{Offset: w.Offset, Value: w.Value}
	}
	if err := h.writer.SetPartial(ctx, h.key, values); err != nil {
		return errs.New(errs.StorageError, "partial write %s: %v", h.key, err)
	}
	return nil
}

func (h *storeOutputHandle) Erase(ctx context.Context) error {
	if err := h.writer.Erase(ctx, h.key); err != nil {
		return errs.New(errs.StorageError, "erase %s: %v", h.key, err)
	}
	return nil
}

var _ codec.OutputHandle = (*storeOutputHandle)(nil)
