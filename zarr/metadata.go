// Package zarr ties together every lower-level package (storage, codec,
// chunkgrid, fillvalue, arraybytes, subset, concurrency, cache) into the
// array descriptor and chunk router: metadata parsing (V3 zarr.json, and
// enough of legacy V2 to open old arrays), chunk-key encoding, and the
// Array type itself.
//
// Full JSON-schema validation is out of scope: Open parses just enough of
// a node's metadata document to build a working codec chain, chunk grid,
// and fill value.
package zarr

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/fillvalue"
)

// DataType is a data type registry entry: a name, its fixed byte width
// (0 for variable-length types), and whether it is variable-length.
type DataType struct {
	Name        string
	ElementSize int
	Variable    bool
}

// Well-known V3 core data types. Extension/custom data types are out of
// scope.
var dataTypeRegistry = map[string]DataType{
	"bool":    {Name: "bool", ElementSize: 1},
	"int8":    {Name: "int8", ElementSize: 1},
	"uint8":   {Name: "uint8", ElementSize: 1},
	"int16":   {Name: "int16", ElementSize: 2},
	"uint16":  {Name: "uint16", ElementSize: 2},
	"int32":   {Name: "int32", ElementSize: 4},
	"uint32":  {Name: "uint32", ElementSize: 4},
	"int64":   {Name: "int64", ElementSize: 8},
	"uint64":  {Name: "uint64", ElementSize: 8},
	"float32": {Name: "float32", ElementSize: 4},
	"float64": {Name: "float64", ElementSize: 8},
	"string":  {Name: "string", Variable: true},
	"bytes":   {Name: "bytes", Variable: true},
}

// LookupDataType resolves a V3 data_type name against the registry.
func LookupDataType(name string) (DataType, error) {
	dt, ok := dataTypeRegistry[name]
	if !ok {
		return DataType{}, errs.New(errs.UnsupportedDataType, "unknown data type %q", name)
	}
	return dt, nil
}

// Metadata is the parsed array descriptor: shape, data type, fill value,
// chunk grid, chunk key encoding, and codec chain, plus the node's store
// path and format version.
type Metadata struct {
	Path       string
	ZarrFormat int

	Shape            []uint64
	DataType         DataType
	FillValue        fillvalue.FillValue
	ChunkGrid        chunkgrid.Grid
	ChunkKeyEncoding KeyEncoding
	Codecs           codec.Chain

	DimensionNames []string
	Attributes     map[string]any
}

// --- V3 zarr.json ---

type v3Document struct {
	ZarrFormat int             `json:"zarr_format"`
	NodeType   string          `json:"node_type"`
	Shape      []uint64        `json:"shape"`
	DataType   string          `json:"data_type"`
	ChunkGrid  v3NamedConfig   `json:"chunk_grid"`
	ChunkKey   v3NamedConfig   `json:"chunk_key_encoding"`
	FillValue  json.RawMessage `json:"fill_value"`
	Codecs     []v3NamedConfig `json:"codecs"`
	Attributes map[string]any  `json:"attributes"`
	DimNames   []string        `json:"dimension_names"`
}

type v3NamedConfig struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// ParseV3Metadata parses a zarr.json document's bytes into Metadata. path
// is the node's store path (e.g. "g/a"), used only to populate
// Metadata.Path; it plays no part in parsing.
func ParseV3Metadata(path string, data []byte) (*Metadata, error) {
	var doc v3Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.New(errs.InvalidMetadata, "zarr.json: %v", err)
	}
	if doc.NodeType != "" && doc.NodeType != "array" {
		return nil, errs.New(errs.InvalidMetadata, "zarr.json: node_type %q is not \"array\"", doc.NodeType)
	}
	dt, err := LookupDataType(doc.DataType)
	if err != nil {
		return nil, err
	}

	grid, err := parseChunkGrid(doc.ChunkGrid)
	if err != nil {
		return nil, err
	}
	keyEnc, err := parseChunkKeyEncoding(doc.ChunkKey)
	if err != nil {
		return nil, err
	}
	fv, err := parseFillValue(dt, doc.FillValue)
	if err != nil {
		return nil, err
	}
	chain, err := buildCodecChain(doc.Codecs, dt)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Path:             path,
		ZarrFormat:       3,
		Shape:            doc.Shape,
		DataType:         dt,
		FillValue:        fv,
		ChunkGrid:        grid,
		ChunkKeyEncoding: keyEnc,
		Codecs:           chain,
		DimensionNames:   doc.DimNames,
		Attributes:       doc.Attributes,
	}, nil
}

func parseChunkGrid(cfg v3NamedConfig) (chunkgrid.Grid, error) {
	switch cfg.Name {
	case "regular", "":
		var inner struct {
			ChunkShape []uint64 `json:"chunk_shape"`
		}
		if len(cfg.Configuration) > 0 {
			if err := json.Unmarshal(cfg.Configuration, &inner); err != nil {
				return nil, errs.New(errs.InvalidMetadata, "chunk_grid configuration: %v", err)
			}
		}
		return chunkgrid.NewRegular(inner.ChunkShape), nil
	case "rectangular":
		var inner struct {
			ChunkSizes [][]uint64 `json:"chunk_shape"`
		}
		if err := json.Unmarshal(cfg.Configuration, &inner); err != nil {
			return nil, errs.New(errs.InvalidMetadata, "chunk_grid configuration: %v", err)
		}
		return chunkgrid.NewRectangular(inner.ChunkSizes), nil
	default:
		return nil, errs.New(errs.InvalidMetadata, "unknown chunk_grid name %q", cfg.Name)
	}
}

func parseChunkKeyEncoding(cfg v3NamedConfig) (KeyEncoding, error) {
	var inner struct {
		Separator string `json:"separator"`
	}
	if len(cfg.Configuration) > 0 {
		if err := json.Unmarshal(cfg.Configuration, &inner); err != nil {
			return nil, errs.New(errs.InvalidMetadata, "chunk_key_encoding configuration: %v", err)
		}
	}
	switch cfg.Name {
	case "default", "":
		return NewDefaultKeyEncoding(inner.Separator), nil
	case "v2":
		return NewV2KeyEncoding(inner.Separator), nil
	default:
		return nil, errs.New(errs.InvalidMetadata, "unknown chunk_key_encoding name %q", cfg.Name)
	}
}

// parseFillValue decodes a V3 fill_value JSON scalar into a canonical
// FillValue: numbers for numeric types, the strings "NaN",
// "Infinity", "-Infinity" for floats, true/false for bool, and the empty
// string/null for variable-length types.
func parseFillValue(dt DataType, raw json.RawMessage) (fillvalue.FillValue, error) {
	if dt.Variable {
		return fillvalue.NewVariableSentinel(), nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fillvalue.NewFixed(make([]byte, dt.ElementSize)), nil
	}

	if dt.Name == "float32" || dt.Name == "float64" {
		var special string
		if err := json.Unmarshal(raw, &special); err == nil {
			v, err := parseSpecialFloat(special)
			if err != nil {
				return fillvalue.FillValue{}, err
			}
			return canonicalFloatFillValue(dt, v), nil
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fillvalue.FillValue{}, errs.New(errs.InvalidMetadata, "fill_value %q not a valid float: %v", raw, err)
		}
		return canonicalFloatFillValue(dt, f), nil
	}

	if dt.Name == "bool" {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fillvalue.FillValue{}, errs.New(errs.InvalidMetadata, "fill_value %q not a valid bool: %v", raw, err)
		}
		if b {
			return fillvalue.NewFixed([]byte{1}), nil
		}
		return fillvalue.NewFixed([]byte{0}), nil
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return fillvalue.FillValue{}, errs.New(errs.InvalidMetadata, "fill_value %q not a valid integer: %v", raw, err)
	}
	return fillvalue.NewFixed(encodeIntFillValue(dt, n)), nil
}

func parseSpecialFloat(s string) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	default:
		return strconv.ParseFloat(s, 64)
	}
}

// canonicalFloatFillValue builds a FillValue from a float64, narrowing to
// float32 where the data type requires it, going through
// fillvalue.CanonicalFloat32/64 so NaN payloads match the bit pattern
// every NaN decode canonicalizes to.
func canonicalFloatFillValue(dt DataType, v float64) fillvalue.FillValue {
	if dt.Name == "float32" {
		return fillvalue.NewFixed(fillvalue.CanonicalFloat32(float32(v)))
	}
	return fillvalue.NewFixed(fillvalue.CanonicalFloat64(v))
}

// encodeIntFillValue little-endian-encodes n truncated to dt's element
// width, covering every fixed-width integer data type (signed and
// unsigned share the same bit pattern for a given width).
func encodeIntFillValue(dt DataType, n int64) []byte {
	b := make([]byte, dt.ElementSize)
	switch dt.ElementSize {
	case 1:
		b[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(b, uint64(n))
	}
	return b
}
