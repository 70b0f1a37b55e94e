package zarr

import (
	"encoding/json"
	"math"

	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytoarray"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/codec/bytestobytes"
	"github.com/TuSKan/zarr-go/codec/pcodec"
	"github.com/TuSKan/zarr-go/codec/vlenv2"
	"github.com/TuSKan/zarr-go/codec/zfp"
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/fillvalue"
)

// marshalV3Metadata is buildCodecChain's inverse: it serializes a Metadata
// back into a zarr.json document. Only the V3 shapes this module itself
// produces are handled; round-tripping an externally authored document
// with extension fields is out of scope.
func marshalV3Metadata(meta *Metadata) ([]byte, error) {
	chunkGridCfg, err := marshalChunkGrid(meta.ChunkGrid)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{
		"zarr_format":       3,
		"node_type":         "array",
		"shape":             meta.Shape,
		"data_type":         meta.DataType.Name,
		"chunk_grid":        chunkGridCfg,
		"chunk_key_encoding": marshalChunkKeyEncoding(meta.ChunkKeyEncoding),
		"fill_value":        marshalFillValue(meta.DataType, meta.FillValue),
		"codecs":            marshalCodecChain(meta.Codecs),
	}
	if len(meta.Attributes) > 0 {
		doc["attributes"] = meta.Attributes
	}
	if len(meta.DimensionNames) > 0 {
		doc["dimension_names"] = meta.DimensionNames
	}
	return json.MarshalIndent(doc, "", "  ")
}

func marshalChunkGrid(grid chunkgrid.Grid) (map[string]any, error) {
	switch g := grid.(type) {
	case *chunkgrid.Regular:
		return map[string]any{
			"name":          "regular",
			"configuration": map[string]any{"chunk_shape": g.ChunkShapeVec},
		}, nil
	case *chunkgrid.Rectangular:
		return map[string]any{
			"name":          "rectangular",
			"configuration": map[string]any{"chunk_shape": g.ChunkSizes},
		}, nil
	default:
		return nil, errs.New(errs.InvalidMetadata, "marshal: unknown chunk grid implementation %T", grid)
	}
}

func marshalChunkKeyEncoding(enc KeyEncoding) map[string]any {
	switch e := enc.(type) {
	case DefaultKeyEncoding:
		return map[string]any{"name": "default", "configuration": map[string]any{"separator": e.Separator}}
	case V2KeyEncoding:
		return map[string]any{"name": "v2", "configuration": map[string]any{"separator": e.Separator}}
	default:
		return map[string]any{"name": enc.Name()}
	}
}

// marshalFillValue is parseFillValue's inverse for the scalar forms this
// module produces (no hex-string variable-width byte blobs).
func marshalFillValue(dt DataType, fv fillvalue.FillValue) any {
	if dt.Variable {
		return nil
	}
	switch dt.Name {
	case "float32":
		bits := uint32(fv.Bytes[0]) | uint32(fv.Bytes[1])<<8 | uint32(fv.Bytes[2])<<16 | uint32(fv.Bytes[3])<<24
		v := math.Float32frombits(bits)
		return marshalFloatSpecial(float64(v))
	case "float64":
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(fv.Bytes[i]) << (8 * i)
		}
		v := math.Float64frombits(bits)
		return marshalFloatSpecial(v)
	case "bool":
		return fv.Bytes[0] != 0
	default:
		var v int64
		for i, b := range fv.Bytes {
			v |= int64(b) << (8 * i)
		}
		return v
	}
}

func marshalFloatSpecial(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	default:
		return v
	}
}

func marshalCodecChain(chain codec.Chain) []map[string]any {
	var out []map[string]any
	for _, c := range chain.ArrayToArray {
		out = append(out, marshalArrayToArray(c))
	}
	out = append(out, marshalArrayToBytes(chain.ArrayToBytes))
	for _, c := range chain.BytesToBytes {
		out = append(out, marshalBytesToBytes(c))
	}
	return out
}

func marshalArrayToArray(c codec.ArrayToArrayCodec) map[string]any {
	switch t := c.(type) {
	case arraytoarray.Transpose:
		return map[string]any{"name": "transpose", "configuration": map[string]any{"order": t.Order}}
	case arraytoarray.FixedScaleOffset:
		kindNames := map[arraytoarray.NumericKind]string{
			arraytoarray.Int8: "int8", arraytoarray.Uint8: "uint8",
			arraytoarray.Int16: "int16", arraytoarray.Uint16: "uint16",
			arraytoarray.Int32: "int32", arraytoarray.Uint32: "uint32",
			arraytoarray.Int64: "int64", arraytoarray.Uint64: "uint64",
			arraytoarray.Float32: "float32", arraytoarray.Float64: "float64",
		}
		return map[string]any{"name": "fixedscaleoffset", "configuration": map[string]any{
			"scale": t.Scale, "offset": t.Offset,
			"dtype": kindNames[t.DecodedKind], "astype": kindNames[t.EncodedKind],
		}}
	default:
		return map[string]any{"name": c.Name()}
	}
}

func marshalArrayToBytes(c codec.ArrayToBytesCodec) map[string]any {
	switch t := c.(type) {
	case arraytobytes.Bytes:
		endian := "little"
		if t.Order == arraytobytes.BigEndian {
			endian = "big"
		}
		return map[string]any{"name": "bytes", "configuration": map[string]any{"endian": endian}}
	case vlenv2.Codec:
		return map[string]any{"name": "vlen-v2"}
	case arraytobytes.Sharding:
		loc := "start"
		if t.IndexLocation == arraytobytes.IndexEnd {
			loc = "end"
		}
		return map[string]any{"name": "sharding_indexed", "configuration": map[string]any{
			"chunk_shape":    t.InnerChunkShape,
			"codecs":         marshalCodecChain(t.InnerCodecs),
			"index_codecs":   marshalCodecChain(t.IndexCodecs),
			"index_location": loc,
		}}
	default:
		return map[string]any{"name": c.Name()}
	}
}

func marshalBytesToBytes(c codec.BytesToBytesCodec) map[string]any {
	switch t := c.(type) {
	case bytestobytes.Gzip:
		return map[string]any{"name": "gzip", "configuration": map[string]any{"level": t.Level}}
	case bytestobytes.Blosc:
		return map[string]any{"name": "blosc", "configuration": map[string]any{
			"typesize": t.TypeSize, "clevel": t.Level, "shuffle": t.Shuffle,
		}}
	case bytestobytes.Zstd:
		return map[string]any{"name": "zstd"}
	case bytestobytes.Zlib:
		return map[string]any{"name": "zlib", "configuration": map[string]any{"level": t.Level}}
	case bytestobytes.Crc32c:
		return map[string]any{"name": "crc32c"}
	case bytestobytes.Gdeflate:
		return map[string]any{"name": "gdeflate", "configuration": map[string]any{"level": t.Level}}
	case bytestobytes.Bz2:
		return map[string]any{"name": "bz2", "configuration": map[string]any{"block_size": t.BlockSize}}
	case zfp.Codec:
		return map[string]any{"name": "zfp", "configuration": zfpConfig(t)}
	case pcodec.Codec:
		return map[string]any{"name": "pcodec", "configuration": map[string]any{"lane_size": t.LaneSize}}
	default:
		return map[string]any{"name": c.Name()}
	}
}

func zfpConfig(c zfp.Codec) map[string]any {
	mode := "reversible"
	switch c.Mode {
	case zfp.FixedRate:
		mode = "fixed-rate"
	case zfp.FixedPrecision:
		mode = "fixed-precision"
	case zfp.FixedAccuracy:
		mode = "fixed-accuracy"
	case zfp.Expert:
		mode = "expert"
	}
	return map[string]any{
		"mode":         mode,
		"element_size": c.ElementSize,
		"rate":         c.Rate,
		"precision":    c.Precision,
		"accuracy":     c.Accuracy,
		"min_bits":     c.MinBits,
		"max_bits":     c.MaxBits,
		"max_prec":     c.MaxPrec,
		"min_exp":      c.MinExp,
	}
}
