package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/TuSKan/zarr-go/byterange"
)

// UsageLog wraps a Store and writes one line per call to an io.Writer.
// It is opt-in instrumentation a caller wraps around their own store; the
// library itself never logs on its own behalf.
type UsageLog struct {
	inner  Store
	w      io.Writer
	mu     sync.Mutex
	prefix func() string
}

var _ Store = (*UsageLog)(nil)

// NewUsageLog wraps inner, writing one line per call to w. prefix is called
// before formatting each line (e.g. a timestamp function); pass a function
// returning "" for no prefix.
func NewUsageLog(inner Store, w io.Writer, prefix func() string) *UsageLog {
	if prefix == nil {
		prefix = func() string { return "" }
	}
	return &UsageLog{inner: inner, w: w, prefix: prefix}
}

func (u *UsageLog) logf(format string, args ...any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	fmt.Fprintf(u.w, "%s"+format+"\n", append([]any{u.prefix()}, args...)...)
}

func (u *UsageLog) Get(ctx context.Context, key Key) ([]byte, error) {
	v, err := u.inner.Get(ctx, key)
	u.logf("get(%s) -> len=%d err=%v", key, len(v), err)
	return v, err
}

func (u *UsageLog) GetPartialKey(ctx context.Context, key Key, ranges []byterange.Range) ([][]byte, error) {
	v, err := u.inner.GetPartialKey(ctx, key, ranges)
	lens := make([]string, len(v))
	for i, b := range v {
		lens[i] = fmt.Sprintf("%d", len(b))
	}
	u.logf("get_partial_values_key(%s, %v) -> len=[%s] err=%v", key, ranges, strings.Join(lens, ", "), err)
	return v, err
}

func (u *UsageLog) SizeKey(ctx context.Context, key Key) (*uint64, error) {
	sz, err := u.inner.SizeKey(ctx, key)
	u.logf("size_key(%s) -> %v err=%v", key, sz, err)
	return sz, err
}

func (u *UsageLog) Set(ctx context.Context, key Key, value []byte) error {
	err := u.inner.Set(ctx, key, value)
	u.logf("set(%s, len=%d) -> err=%v", key, len(value), err)
	return err
}

func (u *UsageLog) SetPartial(ctx context.Context, key Key, values []OffsetValue) error {
	err := u.inner.SetPartial(ctx, key, values)
	u.logf("set_partial_values(%s, n=%d) -> err=%v", key, len(values), err)
	return err
}

func (u *UsageLog) Erase(ctx context.Context, key Key) error {
	err := u.inner.Erase(ctx, key)
	u.logf("erase(%s) -> err=%v", key, err)
	return err
}

func (u *UsageLog) ErasePrefix(ctx context.Context, prefix string) error {
	err := u.inner.ErasePrefix(ctx, prefix)
	u.logf("erase_prefix(%s) -> err=%v", prefix, err)
	return err
}

func (u *UsageLog) List(ctx context.Context) ([]Key, error) {
	keys, err := u.inner.List(ctx)
	u.logf("list() -> [%s]", strings.Join(keys, ", "))
	return keys, err
}

func (u *UsageLog) ListPrefix(ctx context.Context, prefix string) ([]Key, error) {
	keys, err := u.inner.ListPrefix(ctx, prefix)
	u.logf("list_prefix(%s) -> [%s]", prefix, strings.Join(keys, ", "))
	return keys, err
}

func (u *UsageLog) ListDir(ctx context.Context, prefix string) (ListDirResult, error) {
	res, err := u.inner.ListDir(ctx, prefix)
	u.logf("list_dir(%s) -> (keys:[%s], prefixes:[%s])", prefix, strings.Join(res.Keys, ", "), strings.Join(res.ChildPrefixes, ", "))
	return res, err
}

func (u *UsageLog) Size(ctx context.Context) (uint64, error) {
	sz, err := u.inner.Size(ctx)
	u.logf("size() -> %d err=%v", sz, err)
	return sz, err
}

func (u *UsageLog) SizePrefix(ctx context.Context, prefix string) (uint64, error) {
	sz, err := u.inner.SizePrefix(ctx, prefix)
	u.logf("size_prefix(%s) -> %d err=%v", prefix, sz, err)
	return sz, err
}
