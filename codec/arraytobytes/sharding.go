package arraytobytes

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/TuSKan/zarr-go/subset"
)

// IndexLocation selects where the offset/size index region sits within an
// encoded shard.
type IndexLocation int

const (
	IndexStart IndexLocation = iota
	IndexEnd
)

// absentMarker is the sentinel (MaxUint64, MaxUint64) pair marking an inner
// chunk as not present in the shard.
const absentMarker = ^uint64(0)

// Sharding is the chunk-of-chunks codec. Its decoded representation is one
// outer chunk's full shape; the grid of inner chunks packed inside it is
// derived from InnerChunkShape. The encoded byte layout is a data region
// holding each inner chunk's codec-chain output back to back, plus an index
// region of (offset uint64, size uint64) pairs run through IndexCodecs,
// with the sentinel (MaxUint64, MaxUint64) marking an absent inner chunk;
// sparse shards store nothing for missing inner chunks.
type Sharding struct {
	InnerChunkShape []uint64
	InnerCodecs     codec.Chain
	IndexCodecs     codec.Chain
	IndexLocation   IndexLocation
}

func (Sharding) Name() string { return "sharding_indexed" }

// chunksPerShard divides the shard's shape by the inner chunk shape; every
// dimension of shardShape must be an exact multiple of innerShape.
func chunksPerShard(shardShape, innerShape []uint64) ([]uint64, error) {
	if len(shardShape) != len(innerShape) {
		return nil, fmt.Errorf("codec: sharding: shard shape has %d dims, inner chunk shape has %d", len(shardShape), len(innerShape))
	}
	out := make([]uint64, len(shardShape))
	for d := range shardShape {
		if innerShape[d] == 0 || shardShape[d]%innerShape[d] != 0 {
			return nil, fmt.Errorf("codec: sharding: shard dim %d (%d) is not a multiple of inner chunk dim %d", d, shardShape[d], innerShape[d])
		}
		out[d] = shardShape[d] / innerShape[d]
	}
	return out, nil
}

func numChunks(chunksPerShard []uint64) uint64 {
	n := uint64(1)
	for _, c := range chunksPerShard {
		n *= c
	}
	return n
}

// indexRepresentation is the ChunkRepresentation the index region is
// encoded under: one chunk of N*2 uint64s.
func indexRepresentation(chunksPerShard []uint64) codec.ChunkRepresentation {
	return codec.ChunkRepresentation{
		Shape:       []uint64{numChunks(chunksPerShard) * 2},
		ElementSize: 8,
	}
}

func (s Sharding) innerRep(rep codec.ChunkRepresentation) codec.ChunkRepresentation {
	return codec.ChunkRepresentation{
		Shape:       append([]uint64(nil), s.InnerChunkShape...),
		ElementSize: rep.ElementSize,
		FillValue:   rep.FillValue,
	}
}

func encodeShardIndex(ctx context.Context, idx []uint64, codecs codec.Chain, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	buf := make([]byte, len(idx)*8)
	for i, v := range idx {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	return codecs.Encode(ctx, arraybytes.NewFixed(buf), rep, opts)
}

func decodeShardIndex(ctx context.Context, data []byte, codecs codec.Chain, rep codec.ChunkRepresentation, opts codec.Options) ([]uint64, error) {
	ab, err := codecs.Decode(ctx, data, rep, opts)
	if err != nil {
		return nil, fmt.Errorf("codec: sharding: decode index: %w", err)
	}
	n := int(rep.NumElements())
	if len(ab.FixedBytes) != n*8 {
		return nil, fmt.Errorf("codec: sharding: decoded index has %d bytes, want %d", len(ab.FixedBytes), n*8)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(ab.FixedBytes[i*8:])
	}
	return out, nil
}

// Encode writes every inner chunk's codec-chain output into the data
// region (skipping fill-value-only inner chunks when opts.StoreEmptyChunks
// is false) and prepends or appends the index region per IndexLocation.
func (s Sharding) Encode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) ([]byte, error) {
	cps, err := chunksPerShard(rep.Shape, s.InnerChunkShape)
	if err != nil {
		return nil, err
	}
	inner := s.innerRep(rep)
	n := numChunks(cps)
	fv := fillvalue.NewFixed(rep.FillValue)

	index := make([]uint64, n*2)
	var data []byte

	for i, coord := range subset.FromShape(cps).Indices() {
		innerSubset := chunkSubset(coord, s.InnerChunkShape)
		chunkAB, err := in.ExtractArraySubset(innerSubset, rep.Shape, rep.ElementSize)
		if err != nil {
			return nil, fmt.Errorf("codec: sharding: extract inner chunk %v: %w", coord, err)
		}
		if !opts.StoreEmptyChunks && chunkAB.IsFillValue(fv) {
			index[i*2], index[i*2+1] = absentMarker, absentMarker
			continue
		}
		encoded, err := s.InnerCodecs.Encode(ctx, chunkAB, inner, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: sharding: encode inner chunk %v: %w", coord, err)
		}
		index[i*2] = uint64(len(data))
		index[i*2+1] = uint64(len(encoded))
		data = append(data, encoded...)
	}

	indexRep := indexRepresentation(cps)
	switch s.IndexLocation {
	case IndexStart:
		// The header length is fixed regardless of offset magnitude for
		// every index codec this module carries (a constant 8 bytes per
		// uint64, independent of value), so probe it once with the
		// already-computed index and shift offsets by that length.
		probeEncoded, err := encodeShardIndex(ctx, index, s.IndexCodecs, indexRep, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: sharding: encode index: %w", err)
		}
		headerLen := uint64(len(probeEncoded))
		shifted := make([]uint64, len(index))
		for i := 0; i < len(index); i += 2 {
			if index[i] == absentMarker && index[i+1] == absentMarker {
				shifted[i], shifted[i+1] = absentMarker, absentMarker
				continue
			}
			shifted[i] = index[i] + headerLen
			shifted[i+1] = index[i+1]
		}
		encodedIndex, err := encodeShardIndex(ctx, shifted, s.IndexCodecs, indexRep, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: sharding: encode shifted index: %w", err)
		}
		out := make([]byte, 0, len(encodedIndex)+len(data))
		out = append(out, encodedIndex...)
		out = append(out, data...)
		return out, nil
	case IndexEnd:
		encodedIndex, err := encodeShardIndex(ctx, index, s.IndexCodecs, indexRep, opts)
		if err != nil {
			return nil, fmt.Errorf("codec: sharding: encode index: %w", err)
		}
		out := make([]byte, 0, len(data)+len(encodedIndex))
		out = append(out, data...)
		out = append(out, encodedIndex...)
		return out, nil
	default:
		return nil, fmt.Errorf("codec: sharding: unknown index location %d", s.IndexLocation)
	}
}

// Decode reads the index region, then decodes and places every present
// inner chunk into the full shard.
func (s Sharding) Decode(ctx context.Context, in []byte, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	cps, err := chunksPerShard(rep.Shape, s.InnerChunkShape)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	headerLen, encodedIndexBytes, err := s.locateIndexRegion(ctx, in, cps, opts)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	indexRep := indexRepresentation(cps)
	index, err := decodeShardIndex(ctx, encodedIndexBytes, s.IndexCodecs, indexRep, opts)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}

	// Index offsets are absolute within the shard: for IndexStart they were
	// shifted past the header at encode time, for IndexEnd the data region
	// starts at byte 0 anyway. Either way they index into the whole shard.
	var dataRegion []byte
	switch s.IndexLocation {
	case IndexStart:
		dataRegion = in
	case IndexEnd:
		dataRegion = in[:len(in)-headerLen]
	}

	inner := s.innerRep(rep)
	fv := fillvalue.NewFixed(rep.FillValue)
	out := arraybytes.NewFillValueFixed(rep.NumElements(), rep.ElementSize, fv)

	for i, coord := range subset.FromShape(cps).Indices() {
		offset, size := index[i*2], index[i*2+1]
		if offset == absentMarker && size == absentMarker {
			continue
		}
		if offset+size > uint64(len(dataRegion)) {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: sharding: inner chunk %v range [%d,%d) exceeds data region length %d", coord, offset, size, len(dataRegion))
		}
		encodedChunk := dataRegion[offset : offset+size]
		decodedChunk, err := s.InnerCodecs.Decode(ctx, encodedChunk, inner, opts)
		if err != nil {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: sharding: decode inner chunk %v: %w", coord, err)
		}
		innerSubset := chunkSubset(coord, s.InnerChunkShape)
		if err := out.Update(rep.Shape, innerSubset, decodedChunk, rep.ElementSize); err != nil {
			return arraybytes.ArrayBytes{}, fmt.Errorf("codec: sharding: place inner chunk %v: %w", coord, err)
		}
	}
	return out, nil
}

// locateIndexRegion finds the encoded index region's byte span without
// decoding it: a dry-run encode of an all-absent index of the same shape
// gives the real header length. This holds for index chains whose encoded
// length depends only on the decoded index's element count, not its values
// (bytes, optionally followed by crc32c); an index chain with a
// compressor such as gzip breaks it.
func (s Sharding) locateIndexRegion(ctx context.Context, in []byte, cps []uint64, opts codec.Options) (int, []byte, error) {
	indexRep := indexRepresentation(cps)
	probe := make([]uint64, numChunks(cps)*2)
	for i := range probe {
		probe[i] = absentMarker
	}
	encodedProbe, err := encodeShardIndex(ctx, probe, s.IndexCodecs, indexRep, opts)
	if err != nil {
		return 0, nil, fmt.Errorf("codec: sharding: probe index size: %w", err)
	}
	headerLen := len(encodedProbe)
	if headerLen > len(in) {
		return 0, nil, fmt.Errorf("codec: sharding: shard shorter than index header")
	}
	switch s.IndexLocation {
	case IndexStart:
		return headerLen, in[:headerLen], nil
	case IndexEnd:
		return headerLen, in[len(in)-headerLen:], nil
	default:
		return 0, nil, fmt.Errorf("codec: sharding: unknown index location %d", s.IndexLocation)
	}
}

func (s Sharding) RecommendedConcurrency(rep codec.ChunkRepresentation) codec.Concurrency {
	cps, err := chunksPerShard(rep.Shape, s.InnerChunkShape)
	if err != nil {
		return codec.Concurrency{Min: 1, Max: 1}
	}
	return codec.Concurrency{Min: 1, Max: numChunks(cps)}
}

var _ codec.ArrayToBytesCodec = Sharding{}

// PartialDecoder implements codec.PartialDecodable: read and decode only
// the shard index, then for each requested subset read and decode only the
// inner chunks it overlaps.
func (s Sharding) PartialDecoder(input codec.InputHandle, rep codec.ChunkRepresentation) (codec.PartialDecoder, error) {
	cps, err := chunksPerShard(rep.Shape, s.InnerChunkShape)
	if err != nil {
		return nil, err
	}
	return &ShardPartialDecoder{codec: s, input: input, rep: rep, inner: s.innerRep(rep), cps: cps}, nil
}

var _ codec.PartialDecodable = Sharding{}

// ShardPartialDecoder implements codec.PartialDecoder for one shard's
// encoded bytes: the index is read and decoded once (lazily, on first
// PartialDecode call) and cached; each subsequent call only reads the byte
// ranges of the inner chunks the requested subsets actually overlap.
type ShardPartialDecoder struct {
	mu     sync.Mutex
	codec  Sharding
	input  codec.InputHandle
	rep    codec.ChunkRepresentation
	inner  codec.ChunkRepresentation
	cps    []uint64
	index  []uint64
	loaded bool
}

func (d *ShardPartialDecoder) ensureIndex(ctx context.Context, opts codec.Options) error {
	if d.loaded {
		return nil
	}
	size, err := d.input.Size(ctx)
	if err != nil {
		return fmt.Errorf("codec: sharding partial decoder: size: %w", err)
	}
	if size == nil {
		return fmt.Errorf("codec: sharding partial decoder: input handle has no data")
	}
	_, encodedIndex, err := d.codec.locateIndexRegionFromInput(ctx, d.input, *size, d.cps, opts)
	if err != nil {
		return err
	}
	idx, err := decodeShardIndex(ctx, encodedIndex, d.codec.IndexCodecs, indexRepresentation(d.cps), opts)
	if err != nil {
		return err
	}
	d.index = idx
	d.loaded = true
	return nil
}

// PartialDecode implements codec.PartialDecoder: for each requested subset
// of the outer (shard) shape, find every overlapping inner chunk, read its
// compressed byte range, decode it, and extract+merge the overlap.
func (d *ShardPartialDecoder) PartialDecode(ctx context.Context, subsets []subset.Subset, opts codec.Options) ([]arraybytes.ArrayBytes, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureIndex(ctx, opts); err != nil {
		return nil, err
	}

	fv := fillvalue.NewFixed(d.rep.FillValue)
	out := make([]arraybytes.ArrayBytes, len(subsets))
	decodedChunks := make(map[uint64]arraybytes.ArrayBytes)

	for i, sub := range subsets {
		if err := sub.Validate(len(d.rep.Shape), d.rep.Shape); err != nil {
			return nil, fmt.Errorf("codec: sharding partial decoder: %w", err)
		}
		result := arraybytes.NewFillValueFixed(sub.NumElements(), d.rep.ElementSize, fv)
		for _, coord := range innerChunksOverlapping(sub, d.cps, d.codec.InnerChunkShape) {
			linear := subset.LinearIndex(coord, d.cps)
			decoded, ok := decodedChunks[linear]
			if !ok {
				var err error
				decoded, err = d.decodeInnerChunk(ctx, linear, opts)
				if err != nil {
					return nil, err
				}
				decodedChunks[linear] = decoded
			}
			innerSubset := chunkSubset(coord, d.codec.InnerChunkShape)
			overlap, ok := sub.Overlap(innerSubset)
			if !ok {
				continue
			}
			piece, err := decoded.ExtractArraySubset(overlap.RelativeTo(innerSubset.Start), d.codec.InnerChunkShape, d.rep.ElementSize)
			if err != nil {
				return nil, fmt.Errorf("codec: sharding partial decoder: extract inner chunk %v: %w", coord, err)
			}
			if err := result.Update(sub.Shape, overlap.RelativeTo(sub.Start), piece, d.rep.ElementSize); err != nil {
				return nil, fmt.Errorf("codec: sharding partial decoder: place inner chunk %v: %w", coord, err)
			}
		}
		out[i] = result
	}
	return out, nil
}

func (d *ShardPartialDecoder) decodeInnerChunk(ctx context.Context, linear uint64, opts codec.Options) (arraybytes.ArrayBytes, error) {
	offset, size := d.index[linear*2], d.index[linear*2+1]
	if offset == absentMarker && size == absentMarker {
		fv := fillvalue.NewFixed(d.rep.FillValue)
		return arraybytes.NewFillValueFixed(d.inner.NumElements(), d.rep.ElementSize, fv), nil
	}
	length := size
	chunks, err := d.input.PartialRead(ctx, []subset.Subset{subset.New([]uint64{offset}, []uint64{length})})
	if err != nil || len(chunks) != 1 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: sharding partial decoder: read inner chunk: %w", err)
	}
	return d.codec.InnerCodecs.Decode(ctx, chunks[0], d.inner, opts)
}

var _ codec.PartialDecoder = (*ShardPartialDecoder)(nil)

// locateIndexRegionFromInput is locateIndexRegion's counterpart for an
// InputHandle rather than a fully-buffered byte slice: it probes the
// header length the same way, then reads only that span.
func (s Sharding) locateIndexRegionFromInput(ctx context.Context, input codec.InputHandle, size uint64, cps []uint64, opts codec.Options) (int, []byte, error) {
	indexRep := indexRepresentation(cps)
	probe := make([]uint64, numChunks(cps)*2)
	for i := range probe {
		probe[i] = absentMarker
	}
	encodedProbe, err := encodeShardIndex(ctx, probe, s.IndexCodecs, indexRep, opts)
	if err != nil {
		return 0, nil, fmt.Errorf("codec: sharding: probe index size: %w", err)
	}
	headerLen := uint64(len(encodedProbe))
	if headerLen > size {
		return 0, nil, fmt.Errorf("codec: sharding: shard shorter than index header")
	}
	var byteRange subset.Subset
	switch s.IndexLocation {
	case IndexStart:
		byteRange = subset.New([]uint64{0}, []uint64{headerLen})
	case IndexEnd:
		byteRange = subset.New([]uint64{size - headerLen}, []uint64{headerLen})
	default:
		return 0, nil, fmt.Errorf("codec: sharding: unknown index location %d", s.IndexLocation)
	}
	chunks, err := input.PartialRead(ctx, []subset.Subset{byteRange})
	if err != nil || len(chunks) != 1 {
		return 0, nil, fmt.Errorf("codec: sharding: read index region: %w", err)
	}
	return int(headerLen), chunks[0], nil
}

func chunkSubset(coord, innerShape []uint64) subset.Subset {
	start := make([]uint64, len(coord))
	for d := range coord {
		start[d] = coord[d] * innerShape[d]
	}
	return subset.New(start, innerShape)
}

// ShardOutput is the write surface a ShardPartialEncoder needs over the
// stored shard key: read byte ranges of the current value, learn its size,
// overlay writes onto it, or erase it outright.
type ShardOutput = codec.OutputHandle

// ShardWrite places Value at Offset, growing the underlying value if
// necessary.
type ShardWrite = codec.OffsetWrite

// PartialEncoder implements codec.PartialEncodable, letting a chain whose
// sole codec is Sharding hand out in-place shard updates.
func (s Sharding) PartialEncoder(output codec.OutputHandle, rep codec.ChunkRepresentation) (codec.PartialEncoder, error) {
	return NewShardPartialEncoder(output, s, rep)
}

var _ codec.PartialEncodable = Sharding{}

// ShardPartialEncoder implements codec.PartialEncoder for one shard key:
// the shard index is decoded once (or initialized all-absent for a new
// shard) and held under a mutex; every PartialEncode call decodes each
// touched inner chunk (or starts from its fill value), merges the new
// subset bytes in, then re-encodes and appends every touched chunk at the
// tail of the data region. There is no compaction, so an inner chunk
// rewritten N times leaves N-1 dead copies behind. The index is rewritten
// last, or the whole shard key is erased if every entry ends up absent;
// the shard is never shrunk otherwise.
type ShardPartialEncoder struct {
	mu     sync.Mutex
	output ShardOutput
	rep    codec.ChunkRepresentation
	inner  codec.ChunkRepresentation
	cps    []uint64
	codec  Sharding
	index  []uint64
	loaded bool
	// physLen is the shard's stored byte length, a monotonic high-water:
	// the store grows but never truncates, so the live-data high-water of
	// the index can fall below it once chunks are rewritten or cleared.
	physLen uint64
}

// NewShardPartialEncoder constructs the encoder but defers decoding the
// existing shard index until the first PartialEncode call, so
// opening a partial encoder for a brand-new shard key costs nothing.
func NewShardPartialEncoder(output ShardOutput, s Sharding, rep codec.ChunkRepresentation) (*ShardPartialEncoder, error) {
	cps, err := chunksPerShard(rep.Shape, s.InnerChunkShape)
	if err != nil {
		return nil, err
	}
	return &ShardPartialEncoder{
		output: output,
		rep:    rep,
		inner:  s.innerRep(rep),
		cps:    cps,
		codec:  s,
	}, nil
}

func (e *ShardPartialEncoder) ensureLoaded(ctx context.Context, opts codec.Options) error {
	if e.loaded {
		return nil
	}
	size, err := e.output.Size(ctx)
	if err != nil {
		return fmt.Errorf("codec: sharding partial encoder: size: %w", err)
	}
	n := numChunks(e.cps)
	if size == nil || *size == 0 {
		e.index = make([]uint64, n*2)
		for i := range e.index {
			e.index[i] = absentMarker
		}
		e.physLen = 0
		e.loaded = true
		return nil
	}
	e.physLen = *size

	whole, err := e.output.PartialRead(ctx, []subset.Subset{subset.New([]uint64{0}, []uint64{*size})})
	if err != nil || len(whole) != 1 {
		return fmt.Errorf("codec: sharding partial encoder: read shard: %w", err)
	}
	_, encodedIndex, err := e.codec.locateIndexRegion(ctx, whole[0], e.cps, opts)
	if err != nil {
		return err
	}
	idx, err := decodeShardIndex(ctx, encodedIndex, e.codec.IndexCodecs, indexRepresentation(e.cps), opts)
	if err != nil {
		return err
	}
	e.index = idx
	e.loaded = true
	return nil
}

// Erase deletes the shard key outright.
func (e *ShardPartialEncoder) Erase(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = false
	e.index = nil
	e.physLen = 0
	return e.output.Erase(ctx)
}

// PartialEncode implements codec.PartialEncoder: for every (subset,
// values) pair, decode-merge-reencode each inner chunk the subset
// touches, then append all touched chunks and rewrite the index.
func (e *ShardPartialEncoder) PartialEncode(ctx context.Context, subsets []subset.Subset, values []arraybytes.ArrayBytes, opts codec.Options) error {
	if len(subsets) != len(values) {
		return fmt.Errorf("codec: sharding partial encoder: %d subsets but %d values", len(subsets), len(values))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ensureLoaded(ctx, opts); err != nil {
		return err
	}

	maxDataOffset := uint64(0)
	for i := 0; i < len(e.index); i += 2 {
		if e.index[i] == absentMarker && e.index[i+1] == absentMarker {
			continue
		}
		if end := e.index[i] + e.index[i+1]; end > maxDataOffset {
			maxDataOffset = end
		}
	}
	// The header length is value-independent, so a probe of the current
	// index gives the real length before anything is appended.
	indexRep := indexRepresentation(e.cps)
	probe, err := encodeShardIndex(ctx, e.index, e.codec.IndexCodecs, indexRep, opts)
	if err != nil {
		return fmt.Errorf("codec: sharding partial encoder: probe index size: %w", err)
	}
	headerLen := uint64(len(probe))
	switch e.codec.IndexLocation {
	case IndexStart:
		// Offsets are absolute, so the data region never starts before the
		// header; on a fresh shard maxDataOffset would otherwise be 0 and
		// the first appended chunk would collide with the index.
		if maxDataOffset < headerLen {
			maxDataOffset = headerLen
		}
	case IndexEnd:
		// The store never truncates, so the index must land at the shard's
		// physical tail: readers locate it at the last headerLen bytes, and
		// writing it any lower would leave a stale index as the tail once
		// rewrites or fill-value elision drop the live high-water below the
		// stored length.
		if e.physLen > headerLen {
			if tail := e.physLen - headerLen; tail > maxDataOffset {
				maxDataOffset = tail
			}
		}
	}

	touched := map[uint64]arraybytes.ArrayBytes{}

	for i, shardSubset := range subsets {
		if err := shardSubset.Validate(len(e.rep.Shape), e.rep.Shape); err != nil {
			return fmt.Errorf("codec: sharding partial encoder: %w", err)
		}
		for _, coord := range innerChunksOverlapping(shardSubset, e.cps, e.codec.InnerChunkShape) {
			linear := subset.LinearIndex(coord, e.cps)
			if _, ok := touched[linear]; !ok {
				decoded, err := e.loadInnerChunk(ctx, linear, opts)
				if err != nil {
					return err
				}
				touched[linear] = decoded
			}
			innerSubset := chunkSubset(coord, e.codec.InnerChunkShape)
			overlap, ok := shardSubset.Overlap(innerSubset)
			if !ok {
				continue
			}
			valueBytes, err := values[i].ExtractArraySubset(overlap.RelativeTo(shardSubset.Start), shardSubset.Shape, e.rep.ElementSize)
			if err != nil {
				return fmt.Errorf("codec: sharding partial encoder: extract value subset: %w", err)
			}
			cur := touched[linear]
			if err := cur.Update(e.codec.InnerChunkShape, overlap.RelativeTo(innerSubset.Start), valueBytes, e.rep.ElementSize); err != nil {
				return fmt.Errorf("codec: sharding partial encoder: update inner chunk: %w", err)
			}
			touched[linear] = cur
		}
	}

	offsetAppend := maxDataOffset
	var writes []ShardWrite
	fv := fillvalue.NewFixed(e.rep.FillValue)

	for linear, decoded := range touched {
		if decoded.IsFillValue(fv) {
			e.index[linear*2], e.index[linear*2+1] = absentMarker, absentMarker
			continue
		}
		encoded, err := e.codec.InnerCodecs.Encode(ctx, decoded, e.inner, opts)
		if err != nil {
			return fmt.Errorf("codec: sharding partial encoder: encode inner chunk: %w", err)
		}
		writes = append(writes, ShardWrite{Offset: offsetAppend, Value: encoded})
		e.index[linear*2] = offsetAppend
		e.index[linear*2+1] = uint64(len(encoded))
		offsetAppend += uint64(len(encoded))
	}

	allAbsent := true
	for _, v := range e.index {
		if v != absentMarker {
			allAbsent = false
			break
		}
	}
	if allAbsent {
		e.loaded = false
		e.physLen = 0
		return e.output.Erase(ctx)
	}

	encodedIndex, err := encodeShardIndex(ctx, e.index, e.codec.IndexCodecs, indexRep, opts)
	if err != nil {
		return fmt.Errorf("codec: sharding partial encoder: encode index: %w", err)
	}
	switch e.codec.IndexLocation {
	case IndexStart:
		writes = append(writes, ShardWrite{Offset: 0, Value: encodedIndex})
		if offsetAppend > e.physLen {
			e.physLen = offsetAppend
		}
		if hdr := uint64(len(encodedIndex)); hdr > e.physLen {
			e.physLen = hdr
		}
	case IndexEnd:
		writes = append(writes, ShardWrite{Offset: offsetAppend, Value: encodedIndex})
		e.physLen = offsetAppend + uint64(len(encodedIndex))
	}

	if err := e.output.PartialWrite(ctx, writes); err != nil {
		return fmt.Errorf("codec: sharding partial encoder: write: %w", err)
	}
	return nil
}

func (e *ShardPartialEncoder) loadInnerChunk(ctx context.Context, linear uint64, opts codec.Options) (arraybytes.ArrayBytes, error) {
	offset, size := e.index[linear*2], e.index[linear*2+1]
	if offset == absentMarker && size == absentMarker {
		fv := fillvalue.NewFixed(e.rep.FillValue)
		return arraybytes.NewFillValueFixed(e.inner.NumElements(), e.rep.ElementSize, fv), nil
	}
	chunks, err := e.output.PartialRead(ctx, []subset.Subset{subset.New([]uint64{offset}, []uint64{size})})
	if err != nil || len(chunks) != 1 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: sharding partial encoder: read inner chunk: %w", err)
	}
	return e.codec.InnerCodecs.Decode(ctx, chunks[0], e.inner, opts)
}

func innerChunksOverlapping(shardSubset subset.Subset, cps, innerShape []uint64) [][]uint64 {
	var coords [][]uint64
	for _, coord := range subset.FromShape(cps).Indices() {
		inner := chunkSubset(coord, innerShape)
		if _, ok := shardSubset.Overlap(inner); ok {
			coords = append(coords, append([]uint64(nil), coord...))
		}
	}
	return coords
}

var _ codec.PartialEncoder = (*ShardPartialEncoder)(nil)
