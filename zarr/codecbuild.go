package zarr

import (
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytoarray"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/codec/bytestobytes"
	"github.com/TuSKan/zarr-go/codec/pcodec"
	"github.com/TuSKan/zarr-go/codec/vlenv2"
	"github.com/TuSKan/zarr-go/codec/zfp"
	"github.com/TuSKan/zarr-go/errs"
)

// buildCodecChain turns a zarr.json "codecs" array into a validated
// codec.Chain, classifying each named entry into the array-to-array,
// array-to-bytes, or bytes-to-bytes position. dt is the array's data
// type; it is passed down as the inner chain's data type of a
// sharding_indexed codec, and no other codec built here reads it.
func buildCodecChain(entries []v3NamedConfig, dt DataType) (codec.Chain, error) {
	var chain codec.Chain
	for _, e := range entries {
		switch {
		case isArrayToArrayName(e.Name):
			c, err := buildArrayToArray(e)
			if err != nil {
				return codec.Chain{}, err
			}
			chain.ArrayToArray = append(chain.ArrayToArray, c)
		case isArrayToBytesName(e.Name):
			if chain.ArrayToBytes != nil {
				return codec.Chain{}, errs.New(errs.InvalidMetadata, "codecs: more than one array-to-bytes codec (%q after %q)", e.Name, chain.ArrayToBytes.Name())
			}
			c, err := buildArrayToBytes(e, dt)
			if err != nil {
				return codec.Chain{}, err
			}
			chain.ArrayToBytes = c
		case isBytesToBytesName(e.Name):
			c, err := buildBytesToBytes(e)
			if err != nil {
				return codec.Chain{}, err
			}
			chain.BytesToBytes = append(chain.BytesToBytes, c)
		default:
			return codec.Chain{}, errs.New(errs.UnsupportedCodec, "unknown codec %q", e.Name)
		}
	}
	if err := chain.Validate(); err != nil {
		return codec.Chain{}, errs.New(errs.InvalidMetadata, "%v", err)
	}
	return chain, nil
}

func isArrayToArrayName(name string) bool {
	switch name {
	case "transpose", "fixedscaleoffset":
		return true
	}
	return false
}

func isArrayToBytesName(name string) bool {
	switch name {
	case "bytes", "sharding_indexed", "vlen-v2":
		return true
	}
	return false
}

func isBytesToBytesName(name string) bool {
	switch name {
	case "gzip", "zlib", "zstd", "blosc", "crc32c", "gdeflate", "zfp", "pcodec", "bz2":
		return true
	}
	return false
}

func buildArrayToArray(e v3NamedConfig) (codec.ArrayToArrayCodec, error) {
	switch e.Name {
	case "transpose":
		var cfg struct {
			Order []int `json:"order"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return arraytoarray.Transpose{Order: cfg.Order}, nil
	case "fixedscaleoffset":
		var cfg struct {
			Scale  float64 `json:"scale"`
			Offset float64 `json:"offset"`
			DType  string  `json:"dtype"`
			AsType string  `json:"astype"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		decodedKind, err := numericKindFromName(cfg.DType)
		if err != nil {
			return nil, err
		}
		encodedKind := decodedKind
		if cfg.AsType != "" {
			encodedKind, err = numericKindFromName(cfg.AsType)
			if err != nil {
				return nil, err
			}
		}
		return arraytoarray.FixedScaleOffset{
			Scale:       cfg.Scale,
			Offset:      cfg.Offset,
			DecodedKind: decodedKind,
			EncodedKind: encodedKind,
		}, nil
	default:
		return nil, errs.New(errs.UnsupportedCodec, "unknown array-to-array codec %q", e.Name)
	}
}

func buildArrayToBytes(e v3NamedConfig, dt DataType) (codec.ArrayToBytesCodec, error) {
	switch e.Name {
	case "bytes":
		var cfg struct {
			Endian string `json:"endian"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		order := arraytobytes.LittleEndian
		if cfg.Endian == "big" {
			order = arraytobytes.BigEndian
		}
		return arraytobytes.Bytes{Order: order}, nil
	case "vlen-v2":
		return vlenv2.Codec{}, nil
	case "sharding_indexed":
		var cfg struct {
			ChunkShape    []uint64        `json:"chunk_shape"`
			Codecs        []v3NamedConfig `json:"codecs"`
			IndexCodecs   []v3NamedConfig `json:"index_codecs"`
			IndexLocation string          `json:"index_location"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		innerChain, err := buildCodecChain(cfg.Codecs, dt)
		if err != nil {
			return nil, err
		}
		indexChain, err := buildCodecChain(cfg.IndexCodecs, DataType{Name: "uint64", ElementSize: 8})
		if err != nil {
			return nil, err
		}
		loc := arraytobytes.IndexStart
		if cfg.IndexLocation == "end" {
			loc = arraytobytes.IndexEnd
		}
		return arraytobytes.Sharding{
			InnerChunkShape: cfg.ChunkShape,
			InnerCodecs:     innerChain,
			IndexCodecs:     indexChain,
			IndexLocation:   loc,
		}, nil
	default:
		return nil, errs.New(errs.UnsupportedCodec, "unknown array-to-bytes codec %q", e.Name)
	}
}

func buildBytesToBytes(e v3NamedConfig) (codec.BytesToBytesCodec, error) {
	switch e.Name {
	case "gzip":
		var cfg struct {
			Level int `json:"level"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return bytestobytes.Gzip{Level: cfg.Level}, nil
	case "zlib":
		var cfg struct {
			Level int `json:"level"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return bytestobytes.Zlib{Level: cfg.Level}, nil
	case "zstd":
		var cfg struct {
			Level int `json:"level"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		var lvl zstd.EncoderLevel
		if cfg.Level != 0 {
			lvl = zstd.EncoderLevelFromZstd(cfg.Level)
		}
		return bytestobytes.Zstd{Level: lvl}, nil
	case "blosc":
		var cfg struct {
			TypeSize int `json:"typesize"`
			Clevel   int `json:"clevel"`
			Shuffle  int `json:"shuffle"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return bytestobytes.Blosc{TypeSize: cfg.TypeSize, Level: cfg.Clevel, Shuffle: cfg.Shuffle}, nil
	case "crc32c":
		return bytestobytes.Crc32c{}, nil
	case "gdeflate":
		var cfg struct {
			Level int `json:"level"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return bytestobytes.Gdeflate{Level: cfg.Level}, nil
	case "zfp":
		var cfg struct {
			Mode        string  `json:"mode"`
			ElementSize int     `json:"element_size"`
			Rate        float64 `json:"rate"`
			Precision   uint    `json:"precision"`
			Accuracy    float64 `json:"accuracy"`
			MinBits     uint    `json:"min_bits"`
			MaxBits     uint    `json:"max_bits"`
			MaxPrec     uint    `json:"max_prec"`
			MinExp      int     `json:"min_exp"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		mode, err := zfpModeFromName(cfg.Mode)
		if err != nil {
			return nil, err
		}
		return zfp.Codec{
			Mode:        mode,
			ElementSize: cfg.ElementSize,
			Rate:        cfg.Rate,
			Precision:   cfg.Precision,
			Accuracy:    cfg.Accuracy,
			MinBits:     cfg.MinBits,
			MaxBits:     cfg.MaxBits,
			MaxPrec:     cfg.MaxPrec,
			MinExp:      cfg.MinExp,
		}, nil
	case "pcodec":
		var cfg struct {
			LaneSize int `json:"lane_size"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return pcodec.Codec{LaneSize: cfg.LaneSize}, nil
	case "bz2":
		var cfg struct {
			BlockSize int `json:"block_size"`
		}
		if err := unmarshalConfig(e, &cfg); err != nil {
			return nil, err
		}
		return bytestobytes.Bz2{BlockSize: cfg.BlockSize}, nil
	default:
		return nil, errs.New(errs.UnsupportedCodec, "unknown bytes-to-bytes codec %q", e.Name)
	}
}

func unmarshalConfig(e v3NamedConfig, out any) error {
	if len(e.Configuration) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Configuration, out); err != nil {
		return errs.New(errs.InvalidMetadata, "codec %q configuration: %v", e.Name, err)
	}
	return nil
}

func numericKindFromName(name string) (arraytoarray.NumericKind, error) {
	switch name {
	case "int8":
		return arraytoarray.Int8, nil
	case "uint8":
		return arraytoarray.Uint8, nil
	case "int16":
		return arraytoarray.Int16, nil
	case "uint16":
		return arraytoarray.Uint16, nil
	case "int32":
		return arraytoarray.Int32, nil
	case "uint32":
		return arraytoarray.Uint32, nil
	case "int64":
		return arraytoarray.Int64, nil
	case "uint64":
		return arraytoarray.Uint64, nil
	case "float32":
		return arraytoarray.Float32, nil
	case "float64":
		return arraytoarray.Float64, nil
	default:
		return 0, errs.New(errs.UnsupportedDataType, "fixedscaleoffset: unknown numeric dtype %q", name)
	}
}

func zfpModeFromName(name string) (zfp.Mode, error) {
	switch name {
	case "reversible", "":
		return zfp.Reversible, nil
	case "fixed-rate":
		return zfp.FixedRate, nil
	case "fixed-precision":
		return zfp.FixedPrecision, nil
	case "fixed-accuracy":
		return zfp.FixedAccuracy, nil
	case "expert":
		return zfp.Expert, nil
	default:
		return 0, errs.New(errs.UnsupportedCodec, "zfp: unknown mode %q", name)
	}
}
