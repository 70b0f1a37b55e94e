// Package byterange implements the half-open byte ranges used throughout
// the storage and codec layers to describe partial reads of a value.
//
// A Range is anchored either to the start or the end of the value it will
// be resolved against.
package byterange

import (
	"fmt"
	"io"
	"sort"
)

// Anchor selects which end of the value a Range's offset counts from.
type Anchor uint8

const (
	// FromStart anchors Offset to the beginning of the value.
	FromStart Anchor = iota
	// FromEnd anchors Offset to the end of the value (offset 0 is the
	// last byte's exclusive end).
	FromEnd
)

// Range is a byte range over some value whose size may not yet be known.
// Length of nil means "to the other end": for FromStart that's the rest of
// the value; for FromEnd it's from the start of the value.
type Range struct {
	Anchor Anchor
	Offset uint64
	Length *uint64
}

// NewFromStart builds a Range anchored to the start of the value.
func NewFromStart(offset uint64, length *uint64) Range {
	return Range{Anchor: FromStart, Offset: offset, Length: length}
}

// NewFromEnd builds a Range anchored to the end of the value.
func NewFromEnd(offset uint64, length *uint64) Range {
	return Range{Anchor: FromEnd, Offset: offset, Length: length}
}

// Resolved is a concrete half-open [Start, End) range over a value of known
// size.
type Resolved struct {
	Start uint64
	End   uint64
}

// Len returns End - Start.
func (r Resolved) Len() uint64 { return r.End - r.Start }

// Resolve turns r into a concrete [start, end) range given the value's
// total size in bytes. It returns an error if the range cannot fit inside
// the value.
func (r Range) Resolve(size uint64) (Resolved, error) {
	switch r.Anchor {
	case FromStart:
		start := r.Offset
		end := size
		if r.Length != nil {
			end = start + *r.Length
		}
		if start > size || end > size || start > end {
			return Resolved{}, fmt.Errorf("byterange: range [%d, %v) from start out of bounds for size %d", start, r.Length, size)
		}
		return Resolved{Start: start, End: end}, nil
	case FromEnd:
		if r.Offset > size {
			return Resolved{}, fmt.Errorf("byterange: end-anchored offset %d exceeds size %d", r.Offset, size)
		}
		end := size - r.Offset
		start := uint64(0)
		if r.Length != nil {
			if *r.Length > end {
				return Resolved{}, fmt.Errorf("byterange: end-anchored range length %d exceeds available %d", *r.Length, end)
			}
			start = end - *r.Length
		}
		return Resolved{Start: start, End: end}, nil
	default:
		return Resolved{}, fmt.Errorf("byterange: unknown anchor %v", r.Anchor)
	}
}

// ResolveAll resolves a slice of ranges against a known size, failing fast
// on the first invalid range.
func ResolveAll(ranges []Range, size uint64) ([]Resolved, error) {
	out := make([]Resolved, len(ranges))
	for i, r := range ranges {
		resolved, err := r.Resolve(size)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ExtractFromBytes extracts each resolved range from an in-memory buffer:
// out[i] is buf sliced at ranges[i] resolved against len(buf).
func ExtractFromBytes(buf []byte, ranges []Range) ([][]byte, error) {
	resolved, err := ResolveAll(ranges, uint64(len(buf)))
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(resolved))
	for i, r := range resolved {
		out[i] = buf[r.Start:r.End]
	}
	return out, nil
}

// ExtractFromReaderAt extracts each range independently via ReadAt, which
// is how a seekable/random-access source (an os.File, or a gocloud bucket's
// range reader) is expected to behave: each range is read on its own, no
// attempt is made to merge adjacent ranges into one I/O.
func ExtractFromReaderAt(src io.ReaderAt, size uint64, ranges []Range) ([][]byte, error) {
	resolved, err := ResolveAll(ranges, size)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(resolved))
	for i, r := range resolved {
		buf := make([]byte, r.Len())
		if _, err := src.ReadAt(buf, int64(r.Start)); err != nil && err != io.EOF {
			return nil, fmt.Errorf("byterange: ReadAt [%d,%d): %w", r.Start, r.End, err)
		}
		out[i] = buf
	}
	return out, nil
}

// segment is a merged, non-overlapping run of bytes covering one or more
// requested ranges, used by ExtractFromStream.
type segment struct {
	start, end uint64
	// requests holds the index into the original ranges slice of every
	// range satisfied (fully) by this segment.
	requests []int
}

// ExtractFromStream extracts ranges from a single forward-only io.Reader by
// sorting and merging range endpoints into contiguous segments, reading
// each segment exactly once (skipping the gaps with io.CopyN to /dev/null
// semantics via io.Discard), and scattering the segment bytes out to each
// requested range. This is the only viable strategy over a pure io.Reader,
// which cannot seek backwards or duplicate a range read.
func ExtractFromStream(src io.Reader, size uint64, ranges []Range) ([][]byte, error) {
	resolved, err := ResolveAll(ranges, size)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(resolved))

	// Build merged segments in ascending order, recording which original
	// range indices fall in each.
	order := make([]int, len(resolved))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return resolved[order[a]].Start < resolved[order[b]].Start })

	var segments []segment
	for _, idx := range order {
		r := resolved[idx]
		if r.Start == r.End {
			out[idx] = []byte{}
			continue
		}
		if len(segments) > 0 && segments[len(segments)-1].end >= r.Start {
			last := &segments[len(segments)-1]
			if r.End > last.end {
				last.end = r.End
			}
			last.requests = append(last.requests, idx)
			continue
		}
		segments = append(segments, segment{start: r.Start, end: r.End, requests: []int{idx}})
	}

	var cursor uint64
	for _, seg := range segments {
		if seg.start > cursor {
			if _, err := io.CopyN(io.Discard, src, int64(seg.start-cursor)); err != nil {
				return nil, fmt.Errorf("byterange: skipping to segment start: %w", err)
			}
			cursor = seg.start
		}
		segLen := seg.end - seg.start
		buf := make([]byte, segLen)
		if _, err := io.ReadFull(src, buf); err != nil {
			return nil, fmt.Errorf("byterange: reading segment [%d,%d): %w", seg.start, seg.end, err)
		}
		cursor = seg.end

		for _, idx := range seg.requests {
			r := resolved[idx]
			out[idx] = buf[r.Start-seg.start : r.End-seg.start]
		}
	}
	return out, nil
}
