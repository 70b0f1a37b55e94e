// Package storage implements the key-value storage abstraction underneath
// arrays: byte-range reads, atomic whole-key writes, partial writes via
// read-modify-write, and prefix listings, over an arbitrary opaque key
// space.
//
// There is deliberately one set of interfaces for both threaded and
// cooperative execution: every method takes a context.Context and the
// caller decides how much concurrency to drive through it (a worker-pool
// for blocking backends, an errgroup-bounded fan-out for async-flavoured
// ones). Fan-out is parameterised over that execution strategy, so there is
// exactly one Store interface family, not a duplicated sync/async pair.
package storage

import (
	"context"

	"github.com/TuSKan/zarr-go/byterange"
)

// Key identifies a value in the store: an ASCII, slash-separated path
// (e.g. "g/a/c/0/1/2").
type Key = string

// Readable is implemented by any store backend that supports byte-range
// reads. A missing key yields (nil, nil), not an error.
type Readable interface {
	// Get reads the whole value at key. Returns (nil, nil) if key is
	// absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// GetPartialKey reads the given ranges from one key in as few
	// backend round-trips as the implementation can manage. Returns
	// (nil, nil) if key is absent.
	GetPartialKey(ctx context.Context, key Key, ranges []byterange.Range) ([][]byte, error)

	// SizeKey returns the byte size of key, or (nil, nil) if absent.
	SizeKey(ctx context.Context, key Key) (*uint64, error)
}

// KeyRange pairs a key with the ranges to read from it, for GetPartial's
// cross-key batch form.
type KeyRange struct {
	Key    Key
	Ranges []byterange.Range
}

// MultiRangeGetter is implemented by Readable stores that can batch reads
// spanning multiple keys (e.g. an HTTP store interleaving requests). A
// Readable store that doesn't implement this falls back to per-key
// GetPartialKey calls (see GetPartial in this package).
type MultiRangeGetter interface {
	GetPartial(ctx context.Context, requests []KeyRange) ([][][]byte, error)
}

// OffsetValue is one write in a set_partial overlay: bytes to place at
// offset, extending the value if necessary.
type OffsetValue struct {
	Offset uint64
	Value  []byte
}

// Writable is implemented by any store backend that supports writes.
type Writable interface {
	// Set replaces the whole value at key.
	Set(ctx context.Context, key Key, value []byte) error

	// SetPartial overlays each OffsetValue onto key's current value
	// (read-modify-write), growing the value to cover the furthest
	// offset+len if necessary. Implementations that can overlay more
	// efficiently (e.g. true partial PUT) may override the default;
	// see DefaultSetPartial for the RMW fallback every Writable should
	// compose from.
	SetPartial(ctx context.Context, key Key, values []OffsetValue) error

	// Erase deletes key. Idempotent: erasing an absent key is not an
	// error.
	Erase(ctx context.Context, key Key) error

	// ErasePrefix deletes every key under prefix.
	ErasePrefix(ctx context.Context, prefix string) error
}

// ListDirResult is list_dir's split of immediate children into keys
// (leaf values) and child prefixes (sub-"directories").
type ListDirResult struct {
	Keys          []Key
	ChildPrefixes []string
}

// Listable is implemented by store backends that can enumerate their keys.
type Listable interface {
	List(ctx context.Context) ([]Key, error)
	ListPrefix(ctx context.Context, prefix string) ([]Key, error)
	ListDir(ctx context.Context, prefix string) (ListDirResult, error)
	Size(ctx context.Context) (uint64, error)
	SizePrefix(ctx context.Context, prefix string) (uint64, error)
}

// Store is the full capability set a backend may implement; components
// that only need a subset (e.g. the chunk router only needs
// Readable+Writable) should accept the narrower interface.
type Store interface {
	Readable
	Writable
	Listable
}

// GetPartial reads requests spanning possibly many keys. If store
// implements MultiRangeGetter, that is used directly; otherwise this
// degrades to one GetPartialKey call per key.
func GetPartial(ctx context.Context, store Readable, requests []KeyRange) ([][][]byte, error) {
	if mr, ok := store.(MultiRangeGetter); ok {
		return mr.GetPartial(ctx, requests)
	}
	out := make([][][]byte, len(requests))
	for i, req := range requests {
		res, err := store.GetPartialKey(ctx, req.Key, req.Ranges)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}
