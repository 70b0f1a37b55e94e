package storage

import (
	"context"
	"fmt"
)

// DefaultSetPartial is the read-modify-write SetPartial every Writable
// backend composes from: read the current value (or
// empty if absent), grow it to cover max(offset+len) across all values,
// overlay each new slice, write back. Callers must hold the key's
// exclusive lock around this (see KeyLocker): DefaultSetPartial does not
// lock itself, so that backends whose native partial-write is cheaper can
// skip locking or lock at a different granularity.
func DefaultSetPartial(ctx context.Context, store interface {
	Readable
	Writable
}, key Key, values []OffsetValue) error {
	current, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("storage: read-modify-write read of %q: %w", key, err)
	}

	need := uint64(len(current))
	for _, ov := range values {
		end := ov.Offset + uint64(len(ov.Value))
		if end > need {
			need = end
		}
	}
	if uint64(len(current)) < need {
		grown := make([]byte, need)
		copy(grown, current)
		current = grown
	} else if current == nil {
		current = []byte{}
	}

	for _, ov := range values {
		copy(current[ov.Offset:], ov.Value)
	}

	if err := store.Set(ctx, key, current); err != nil {
		return fmt.Errorf("storage: read-modify-write write of %q: %w", key, err)
	}
	return nil
}
