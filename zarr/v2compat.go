// v2compat.go carries just enough of legacy Zarr V2 forward to open old
// arrays through the same Metadata/Array machinery V3 uses: the V2 dtype
// string, the compressor-id registry, and the "."-separated chunk key
// convention. Writing new V2 metadata is out of scope; OpenMetadata only
// ever reads it.
package zarr

import (
	"encoding/json"
	"strconv"

	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/codec/bytestobytes"
	"github.com/TuSKan/zarr-go/codec/vlenv2"
	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/fillvalue"
)

// ParseDType parses a NumPy-style V2 dtype string (e.g. "<f4", "|b1",
// "<i8") into a registry DataType name and its byte width. Byte order "<"
// (little-endian) and "|" (not-applicable, single-byte types) are
// accepted; ">" (big-endian) is rejected since every codec in this module
// assumes little-endian element bytes.
func ParseDType(s string) (string, int, error) {
	if len(s) < 2 {
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: too short", s)
	}
	order := s[0]
	if order != '<' && order != '|' && order != '>' {
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: missing byte-order prefix", s)
	}
	if order == '>' {
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: big-endian dtypes are not supported", s)
	}

	kind := s[1]
	sizeStr := s[2:]
	if kind == 'O' {
		return "object", 0, nil
	}
	if sizeStr == "" {
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: missing element size", s)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: invalid element size %q", s, sizeStr)
	}

	var name string
	switch kind {
	case 'f':
		switch size {
		case 4:
			name = "float32"
		case 8:
			name = "float64"
		default:
			return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: unsupported float width %d", s, size)
		}
	case 'i':
		switch size {
		case 1:
			name = "int8"
		case 2:
			name = "int16"
		case 4:
			name = "int32"
		case 8:
			name = "int64"
		default:
			return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: unsupported int width %d", s, size)
		}
	case 'u':
		switch size {
		case 1:
			name = "uint8"
		case 2:
			name = "uint16"
		case 4:
			name = "uint32"
		case 8:
			name = "uint64"
		default:
			return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: unsupported uint width %d", s, size)
		}
	case 'b':
		if size != 1 {
			return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: bool dtype must have size 1", s)
		}
		name = "bool"
	default:
		return "", 0, errs.New(errs.InvalidMetadata, "dtype %q: unknown kind %q", s, string(kind))
	}
	return name, size, nil
}

type v2Document struct {
	ZarrFormat        int             `json:"zarr_format"`
	Shape             []uint64        `json:"shape"`
	Chunks            []uint64        `json:"chunks"`
	DType             string          `json:"dtype"`
	Compressor        *v2Codec        `json:"compressor"`
	Filters           []v2Codec       `json:"filters"`
	FillValue         json.RawMessage `json:"fill_value"`
	Order             string          `json:"order"`
	DimensionSepRaw   json.RawMessage `json:"dimension_separator"`
}

type v2Codec struct {
	ID string `json:"id"`
}

// ParseV2Metadata parses a legacy .zarray document (and its sibling
// .zattrs, may be nil) into Metadata, via ParseDType for the data type and
// a small compressor-id registry for the (single, implicit) bytes-to-
// bytes codec V2 arrays carry.
func ParseV2Metadata(path string, zarrayData []byte, zattrsData []byte) (*Metadata, error) {
	var doc v2Document
	if err := json.Unmarshal(zarrayData, &doc); err != nil {
		return nil, errs.New(errs.InvalidMetadata, ".zarray: %v", err)
	}
	if doc.Order != "" && doc.Order != "C" {
		return nil, errs.New(errs.InvalidMetadata, ".zarray: order %q not supported (row-major only)", doc.Order)
	}

	dtypeName, _, err := ParseDType(doc.DType)
	if err != nil {
		return nil, err
	}
	variable := dtypeName == "object"
	var dt DataType
	if variable {
		dt = DataType{Name: "bytes", Variable: true}
	} else {
		dt, err = LookupDataType(dtypeName)
		if err != nil {
			return nil, err
		}
	}

	fv, err := parseV2FillValue(dt, doc.FillValue)
	if err != nil {
		return nil, err
	}

	var arrayToBytes codec.ArrayToBytesCodec
	if variable {
		arrayToBytes = vlenv2.Codec{}
	} else {
		arrayToBytes = arraytobytes.Bytes{Order: arraytobytes.LittleEndian}
	}

	var bytesToBytes []codec.BytesToBytesCodec
	if doc.Compressor != nil {
		c, err := v2CompressorCodec(*doc.Compressor)
		if err != nil {
			return nil, err
		}
		bytesToBytes = append(bytesToBytes, c)
	}

	sep := "."
	if len(doc.DimensionSepRaw) > 0 {
		var s string
		if err := json.Unmarshal(doc.DimensionSepRaw, &s); err == nil && s != "" {
			sep = s
		}
	}

	var attrs map[string]any
	if len(zattrsData) > 0 {
		if err := json.Unmarshal(zattrsData, &attrs); err != nil {
			return nil, errs.New(errs.InvalidMetadata, ".zattrs: %v", err)
		}
	}

	return &Metadata{
		Path:             path,
		ZarrFormat:       2,
		Shape:            doc.Shape,
		DataType:         dt,
		FillValue:        fv,
		ChunkGrid:        chunkgrid.NewRegular(doc.Chunks),
		ChunkKeyEncoding: NewV2KeyEncoding(sep),
		Codecs:           codec.Chain{ArrayToBytes: arrayToBytes, BytesToBytes: bytesToBytes},
		Attributes:       attrs,
	}, nil
}

// v2CompressorCodec maps a V2 numcodecs compressor id to the equivalent
// bytes-to-bytes codec.
func v2CompressorCodec(c v2Codec) (codec.BytesToBytesCodec, error) {
	switch c.ID {
	case "gzip":
		return bytestobytes.Gzip{}, nil
	case "zlib":
		return bytestobytes.Zlib{}, nil
	case "blosc":
		return bytestobytes.Blosc{}, nil
	case "zstd":
		return bytestobytes.Zstd{}, nil
	case "bz2":
		return bytestobytes.Bz2{}, nil
	default:
		return nil, errs.New(errs.UnsupportedCodec, "unsupported V2 compressor id %q", c.ID)
	}
}

func parseV2FillValue(dt DataType, raw json.RawMessage) (fillvalue.FillValue, error) {
	if dt.Variable {
		return fillvalue.NewVariableSentinel(), nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fillvalue.NewFixed(make([]byte, dt.ElementSize)), nil
	}
	return parseFillValue(dt, raw)
}
