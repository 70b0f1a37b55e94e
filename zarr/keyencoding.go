package zarr

import (
	"strconv"
	"strings"
)

// KeyEncoding turns chunk grid indices into the trailing segment of a
// storage key: V3's default "c/0/1/2" (one path segment per dimension,
// prefixed by "c") or the legacy V2 "0.1.2" / "0/1/2" dotted (or slashed)
// convention.
type KeyEncoding interface {
	// Name reports the chunk_key_encoding "name" field, e.g. "default"
	// or "v2".
	Name() string
	// Encode returns the chunk-key suffix (no array-path prefix) for the
	// given chunk grid indices.
	Encode(chunkIndices []uint64) string
}

// DefaultKeyEncoding is Zarr V3's chunk_key_encoding "default": a "c"
// prefix segment followed by one path segment per dimension, joined by
// Separator (usually "/").
type DefaultKeyEncoding struct {
	Separator string
}

// NewDefaultKeyEncoding builds a DefaultKeyEncoding with the given
// separator, defaulting to "/".
func NewDefaultKeyEncoding(separator string) DefaultKeyEncoding {
	if separator == "" {
		separator = "/"
	}
	return DefaultKeyEncoding{Separator: separator}
}

func (DefaultKeyEncoding) Name() string { return "default" }

func (e DefaultKeyEncoding) Encode(chunkIndices []uint64) string {
	var sb strings.Builder
	sb.WriteString("c")
	for _, idx := range chunkIndices {
		sb.WriteString(e.Separator)
		sb.WriteString(strconv.FormatUint(idx, 10))
	}
	return sb.String()
}

// V2KeyEncoding is the legacy Zarr V2 chunk key convention: dimension
// indices joined directly by Separator (conventionally "."), with no "c"
// prefix. For a 0-d (scalar) array the key is the literal "0".
type V2KeyEncoding struct {
	Separator string
}

// NewV2KeyEncoding builds a V2KeyEncoding with the given separator,
// defaulting to "." (the classic V2 convention; "/" is also valid V2).
func NewV2KeyEncoding(separator string) V2KeyEncoding {
	if separator == "" {
		separator = "."
	}
	return V2KeyEncoding{Separator: separator}
}

func (V2KeyEncoding) Name() string { return "v2" }

// Encode maps 0-d arrays to "0"; every other rank joins indices with
// Separator.
func (e V2KeyEncoding) Encode(chunkIndices []uint64) string {
	if len(chunkIndices) == 0 {
		return "0"
	}
	if len(chunkIndices) == 1 {
		return strconv.FormatUint(chunkIndices[0], 10)
	}
	var sb strings.Builder
	for i, idx := range chunkIndices {
		if i > 0 {
			sb.WriteString(e.Separator)
		}
		sb.WriteString(strconv.FormatUint(idx, 10))
	}
	return sb.String()
}

// joinPath joins an array's node path and a chunk-key suffix into a full
// storage key (e.g. path "g/a" + suffix "c/0/1/2" -> "g/a/c/0/1/2"). An
// empty path yields the suffix unprefixed, for arrays rooted at the
// store's top level.
func joinPath(path, suffix string) string {
	if path == "" {
		return suffix
	}
	return strings.TrimSuffix(path, "/") + "/" + suffix
}
