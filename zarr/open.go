package zarr

import (
	"context"

	"github.com/TuSKan/zarr-go/errs"
	"github.com/TuSKan/zarr-go/storage"
)

// metadataKeys returns the candidate metadata keys for path, in the order
// Open tries them: V3's "zarr.json" first, then legacy V2's ".zarray".
func metadataKeys(path string) (v3Key, v2Key string) {
	return joinPath(path, "zarr.json"), joinPath(path, ".zarray")
}

// OpenMetadata reads and parses the array metadata document at path
// within store, trying V3's zarr.json first and falling back to legacy
// V2's .zarray + .zattrs.
func OpenMetadata(ctx context.Context, store storage.Readable, path string) (*Metadata, error) {
	v3Key, v2Key := metadataKeys(path)

	if data, err := store.Get(ctx, v3Key); err != nil {
		return nil, errs.New(errs.StorageError, "reading %s: %v", v3Key, err)
	} else if data != nil {
		return ParseV3Metadata(path, data)
	}

	if data, err := store.Get(ctx, v2Key); err != nil {
		return nil, errs.New(errs.StorageError, "reading %s: %v", v2Key, err)
	} else if data != nil {
		attrsKey := joinPath(path, ".zattrs")
		attrsData, err := store.Get(ctx, attrsKey)
		if err != nil {
			return nil, errs.New(errs.StorageError, "reading %s: %v", attrsKey, err)
		}
		return ParseV2Metadata(path, data, attrsData)
	}

	return nil, errs.New(errs.InvalidMetadata, "no zarr.json or .zarray found at path %q", path)
}

// WriteMetadata serializes meta as a V3 zarr.json document and writes it
// to store. Writing legacy V2 metadata is out of scope; V2 support is
// read-oriented, just enough to open legacy arrays.
func WriteMetadata(ctx context.Context, store storage.Writable, meta *Metadata) error {
	data, err := marshalV3Metadata(meta)
	if err != nil {
		return err
	}
	key := joinPath(meta.Path, "zarr.json")
	if err := store.Set(ctx, key, data); err != nil {
		return errs.New(errs.StorageError, "writing %s: %v", key, err)
	}
	return nil
}
