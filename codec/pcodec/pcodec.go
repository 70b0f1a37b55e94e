// Package pcodec stands in for the real pcodec ("Pco") numeric compressor.
// There is no Go binding for the Rust pcodec crate, so this is a
// self-contained implementation of the technique pcodec itself leans on
// hardest for smoothly-varying numeric series: per-lane delta coding
// (consecutive differences, zigzag-mapped to unsigned) followed by LEB128
// varint packing, so small deltas cost one byte instead of the lane's full
// width. This is lossless and always round-trips; it covers delta mode
// only, not pcodec's general-purpose GCD/FFE mode family.
package pcodec

import (
	"context"
	"fmt"

	"github.com/TuSKan/zarr-go/codec"
)

// Codec delta-codes fixed-width little-endian lanes of LaneSize bytes
// (1, 2, 4, or 8) and varint-packs the zigzag-mapped deltas.
type Codec struct {
	LaneSize int
}

func (Codec) Name() string { return "pcodec" }

func (c Codec) laneSize() int {
	if c.LaneSize == 0 {
		return 4
	}
	return c.LaneSize
}

func (c Codec) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	lane := c.laneSize()
	if lane != 1 && lane != 2 && lane != 4 && lane != 8 {
		return nil, fmt.Errorf("codec: pcodec: unsupported lane size %d", lane)
	}
	if len(in)%lane != 0 {
		return nil, fmt.Errorf("codec: pcodec: input length %d not a multiple of lane size %d", len(in), lane)
	}
	n := len(in) / lane
	out := make([]byte, 0, len(in)+10)
	out = appendVarint(out, uint64(lane))
	out = appendVarint(out, uint64(n))

	var prev uint64
	for i := 0; i < n; i++ {
		cur := readLane(in[i*lane:(i+1)*lane], lane)
		delta := cur - prev
		out = appendVarint(out, zigzagEncode(delta, lane))
		prev = cur
	}
	return out, nil
}

func (c Codec) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	pos := 0
	lane, n1, err := readVarint(in, pos)
	if err != nil {
		return nil, fmt.Errorf("codec: pcodec: %w", err)
	}
	pos = n1
	count, n2, err := readVarint(in, pos)
	if err != nil {
		return nil, fmt.Errorf("codec: pcodec: %w", err)
	}
	pos = n2

	out := make([]byte, int(count)*int(lane))
	var prev uint64
	for i := uint64(0); i < count; i++ {
		zz, next, err := readVarint(in, pos)
		if err != nil {
			return nil, fmt.Errorf("codec: pcodec: value %d: %w", i, err)
		}
		pos = next
		delta := zigzagDecode(zz, int(lane))
		cur := prev + delta
		writeLane(out[int(i)*int(lane):(int(i)+1)*int(lane)], cur, int(lane))
		prev = cur
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Codec{}

func readLane(b []byte, lane int) uint64 {
	var v uint64
	for i := 0; i < lane; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func writeLane(b []byte, v uint64, lane int) {
	for i := 0; i < lane; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// zigzagEncode maps a wrapped-subtraction delta (which may represent a
// "negative" difference via twos-complement wraparound at laneBits) to an
// unsigned value with small magnitudes near zero, LEB128-friendly.
func zigzagEncode(delta uint64, lane int) uint64 {
	bits := uint(lane * 8)
	signed := int64(delta << (64 - bits)) >> (64 - bits)
	return uint64((signed << 1) ^ (signed >> 63))
}

func zigzagDecode(zz uint64, lane int) uint64 {
	signed := int64(zz>>1) ^ -int64(zz&1)
	bits := uint(lane * 8)
	if bits == 64 {
		return uint64(signed)
	}
	mask := uint64(1)<<bits - 1
	return uint64(signed) & mask
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readVarint(buf []byte, pos int) (uint64, int, error) {
	var v uint64
	var shift uint
	for {
		if pos >= len(buf) {
			return 0, 0, fmt.Errorf("truncated varint")
		}
		b := buf[pos]
		pos++
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, fmt.Errorf("varint too long")
		}
	}
	return v, pos, nil
}
