package storage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/TuSKan/zarr-go/byterange"
)

// ZipStore is a read-only adapter presenting the contents of a zip archive
// as a Store: it wraps an underlying Readable store holding the archive
// bytes at a single key and exposes the archive's entries as top-level
// store keys, optionally rooted at a path within the archive.
//
// archive/zip needs an io.ReaderAt over the whole archive, so the archive
// is buffered once at construction; after that each entry is opened and
// read independently, with a mutex held only for the entry-map lookup.
type ZipStore struct {
	size     int64
	zr       *zip.Reader
	rootPath string

	mu      sync.Mutex
	byName  map[string]*zip.File
	sorted  []string
}

var _ Readable = (*ZipStore)(nil)
var _ Listable = (*ZipStore)(nil)

// OpenZipStore opens the zip archive found at archiveKey within backing,
// rooted at rootPath within the archive (use "" for the archive root).
func OpenZipStore(ctx context.Context, backing Readable, archiveKey Key, rootPath string) (*ZipStore, error) {
	data, err := backing.Get(ctx, archiveKey)
	if err != nil {
		return nil, fmt.Errorf("storage: zipstore read %q: %w", archiveKey, err)
	}
	if data == nil {
		return nil, fmt.Errorf("storage: zipstore: archive key %q not found", archiveKey)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("storage: zipstore: %q is not a valid zip archive: %w", archiveKey, err)
	}

	rootPath = strings.TrimPrefix(rootPath, "/")
	if rootPath != "" && !strings.HasSuffix(rootPath, "/") {
		rootPath += "/"
	}

	z := &ZipStore{
		size:     int64(len(data)),
		zr:       zr,
		rootPath: rootPath,
		byName:   make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		name, ok := z.stripRoot(f.Name)
		if !ok || name == "" {
			continue
		}
		if strings.HasSuffix(name, "/") {
			continue // directory entry, not a leaf key
		}
		z.byName[name] = f
		z.sorted = append(z.sorted, name)
	}
	sort.Strings(z.sorted)
	return z, nil
}

func (z *ZipStore) stripRoot(name string) (string, bool) {
	if z.rootPath == "" {
		return name, true
	}
	rest, ok := strings.CutPrefix(name, z.rootPath)
	return rest, ok
}

func (z *ZipStore) Get(ctx context.Context, key Key) ([]byte, error) {
	z.mu.Lock()
	f, ok := z.byName[key]
	z.mu.Unlock()
	if !ok {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("storage: zipstore get %q: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("storage: zipstore read %q: %w", key, err)
	}
	return data, nil
}

func (z *ZipStore) GetPartialKey(ctx context.Context, key Key, ranges []byterange.Range) ([][]byte, error) {
	data, err := z.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return byterange.ExtractFromBytes(data, ranges)
}

func (z *ZipStore) SizeKey(ctx context.Context, key Key) (*uint64, error) {
	z.mu.Lock()
	f, ok := z.byName[key]
	z.mu.Unlock()
	if !ok {
		return nil, nil
	}
	sz := f.FileInfo().Size()
	usz := uint64(sz)
	return &usz, nil
}

func (z *ZipStore) List(ctx context.Context) ([]Key, error) {
	return z.ListPrefix(ctx, "")
}

func (z *ZipStore) ListPrefix(ctx context.Context, prefix string) ([]Key, error) {
	var keys []Key
	for _, name := range z.sorted {
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}

func (z *ZipStore) ListDir(ctx context.Context, prefix string) (ListDirResult, error) {
	all, err := z.ListPrefix(ctx, prefix)
	if err != nil {
		return ListDirResult{}, err
	}
	seen := make(map[string]bool)
	var res ListDirResult
	for _, k := range all {
		rest := strings.TrimPrefix(k, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			child := prefix + rest[:idx+1]
			if !seen[child] {
				seen[child] = true
				res.ChildPrefixes = append(res.ChildPrefixes, child)
			}
		} else {
			res.Keys = append(res.Keys, k)
		}
	}
	sort.Strings(res.ChildPrefixes)
	return res, nil
}

func (z *ZipStore) Size(ctx context.Context) (uint64, error) {
	return z.SizePrefix(ctx, "")
}

func (z *ZipStore) SizePrefix(ctx context.Context, prefix string) (uint64, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	var total uint64
	for name, f := range z.byName {
		if strings.HasPrefix(name, prefix) {
			total += uint64(f.FileInfo().Size())
		}
	}
	return total, nil
}
