package storage

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/TuSKan/zarr-go/byterange"
)

// BlobStore wraps a gocloud.dev/blob.Bucket as a Store. It opens one bucket
// URL (file://, s3://, gs://, mem://, ...) and maps store keys directly to
// blob keys.
type BlobStore struct {
	bucket *blob.Bucket
	locker *KeyLocker
}

var _ Store = (*BlobStore)(nil)

// OpenBlobStore opens the bucket at urlstr (any gocloud.dev/blob driver
// registered by its import-side-effect import, e.g. "gocloud.dev/blob/fileblob").
func OpenBlobStore(ctx context.Context, urlstr string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, fmt.Errorf("storage: open bucket %q: %w", urlstr, err)
	}
	return &BlobStore{bucket: bucket, locker: NewKeyLocker()}, nil
}

// NewBlobStore wraps an already-open bucket, for callers that configure the
// driver themselves (credentials, custom transport, ...).
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket, locker: NewKeyLocker()}
}

func (b *BlobStore) Close() error {
	return b.bucket.Close()
}

func (b *BlobStore) Get(ctx context.Context, key Key) ([]byte, error) {
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: get %q: %w", key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return data, nil
}

func (b *BlobStore) GetPartialKey(ctx context.Context, key Key, ranges []byterange.Range) ([][]byte, error) {
	size, err := b.SizeKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if size == nil {
		return nil, nil
	}
	resolved, err := byterange.ResolveAll(ranges, *size)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(resolved))
	for i, rr := range resolved {
		buf := make([]byte, rr.Len())
		r, err := b.bucket.NewRangeReader(ctx, key, int64(rr.Start), int64(rr.Len()), nil)
		if err != nil {
			return nil, fmt.Errorf("storage: get_partial %q[%d:%d]: %w", key, rr.Start, rr.End, err)
		}
		_, err = io.ReadFull(r, buf)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("storage: get_partial read %q[%d:%d]: %w", key, rr.Start, rr.End, err)
		}
		out[i] = buf
	}
	return out, nil
}

func (b *BlobStore) SizeKey(ctx context.Context, key Key) (*uint64, error) {
	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: size %q: %w", key, err)
	}
	sz := uint64(attrs.Size)
	return &sz, nil
}

func (b *BlobStore) Set(ctx context.Context, key Key, value []byte) error {
	if err := b.bucket.WriteAll(ctx, key, value, nil); err != nil {
		return fmt.Errorf("storage: set %q: %w", key, err)
	}
	return nil
}

func (b *BlobStore) SetPartial(ctx context.Context, key Key, values []OffsetValue) error {
	return b.locker.WithLock(key, func() error {
		return DefaultSetPartial(ctx, b, key, values)
	})
}

func (b *BlobStore) Erase(ctx context.Context, key Key) error {
	err := b.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("storage: erase %q: %w", key, err)
	}
	return nil
}

func (b *BlobStore) ErasePrefix(ctx context.Context, prefix string) error {
	keys, err := b.ListPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Erase(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (b *BlobStore) List(ctx context.Context) ([]Key, error) {
	return b.ListPrefix(ctx, "")
}

func (b *BlobStore) ListPrefix(ctx context.Context, prefix string) ([]Key, error) {
	var keys []Key
	iter := b.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: list %q: %w", prefix, err)
		}
		if !obj.IsDir {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

func (b *BlobStore) ListDir(ctx context.Context, prefix string) (ListDirResult, error) {
	var res ListDirResult
	iter := b.bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return ListDirResult{}, fmt.Errorf("storage: list_dir %q: %w", prefix, err)
		}
		if obj.IsDir {
			res.ChildPrefixes = append(res.ChildPrefixes, obj.Key)
		} else {
			res.Keys = append(res.Keys, obj.Key)
		}
	}
	return res, nil
}

func (b *BlobStore) Size(ctx context.Context) (uint64, error) {
	return b.SizePrefix(ctx, "")
}

func (b *BlobStore) SizePrefix(ctx context.Context, prefix string) (uint64, error) {
	var total uint64
	iter := b.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("storage: size_prefix %q: %w", prefix, err)
		}
		if !obj.IsDir {
			total += uint64(obj.Size)
		}
	}
	return total, nil
}
