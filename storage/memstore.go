package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/TuSKan/zarr-go/byterange"
)

// MemStore is an in-memory Store, the default backend for tests and for
// small scratch arrays. Every key's value lives in a map guarded by an
// RWMutex; partial writes additionally serialise through a KeyLocker so
// concurrent SetPartial calls to the same key never race each other's
// read-modify-write span.
type MemStore struct {
	mu     sync.RWMutex
	values map[Key][]byte
	locker *KeyLocker
}

var (
	_ Store            = (*MemStore)(nil)
	_ MultiRangeGetter = (*MemStore)(nil)
)

// NewMemStore builds an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[Key][]byte), locker: NewKeyLocker()}
}

func (m *MemStore) Get(ctx context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemStore) GetPartialKey(ctx context.Context, key Key, ranges []byterange.Range) ([][]byte, error) {
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return byterange.ExtractFromBytes(v, ranges)
}

func (m *MemStore) GetPartial(ctx context.Context, requests []KeyRange) ([][][]byte, error) {
	out := make([][][]byte, len(requests))
	for i, req := range requests {
		res, err := m.GetPartialKey(ctx, req.Key, req.Ranges)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (m *MemStore) SizeKey(ctx context.Context, key Key) (*uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	sz := uint64(len(v))
	return &sz, nil
}

func (m *MemStore) Set(ctx context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) SetPartial(ctx context.Context, key Key, values []OffsetValue) error {
	return m.locker.WithLock(key, func() error {
		return DefaultSetPartial(ctx, m, key, values)
	})
}

func (m *MemStore) Erase(ctx context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemStore) ErasePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

func (m *MemStore) List(ctx context.Context) ([]Key, error) {
	return m.ListPrefix(ctx, "")
}

func (m *MemStore) ListPrefix(ctx context.Context, prefix string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []Key
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemStore) ListDir(ctx context.Context, prefix string) (ListDirResult, error) {
	all, err := m.ListPrefix(ctx, prefix)
	if err != nil {
		return ListDirResult{}, err
	}
	seenPrefix := make(map[string]bool)
	var res ListDirResult
	for _, k := range all {
		rest := strings.TrimPrefix(k, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			child := prefix + rest[:idx+1]
			if !seenPrefix[child] {
				seenPrefix[child] = true
				res.ChildPrefixes = append(res.ChildPrefixes, child)
			}
		} else {
			res.Keys = append(res.Keys, k)
		}
	}
	sort.Strings(res.ChildPrefixes)
	return res, nil
}

func (m *MemStore) Size(ctx context.Context) (uint64, error) {
	return m.SizePrefix(ctx, "")
}

func (m *MemStore) SizePrefix(ctx context.Context, prefix string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for k, v := range m.values {
		if strings.HasPrefix(k, prefix) {
			total += uint64(len(v))
		}
	}
	return total, nil
}
