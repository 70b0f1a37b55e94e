// Package zfp stands in for the real zfp floating-point compressor. No Go
// binding for the C zfp library exists, so this package implements its
// mode family directly, self-contained:
//
//   - Reversible: lossless. Modeled on the published Gorilla / Facebook
//     XOR-delta scheme for floating-point time series (consecutive
//     values XORed; runs of leading/trailing zero bits in the XOR are
//     coded compactly), which is the same family of technique zfp's own
//     reversible mode uses (exploit bit-pattern similarity between
//     nearby values rather than true lossy quantization).
//   - FixedRate / FixedPrecision / FixedAccuracy / Expert: lossy. Each
//     derives a per-block retained-bit-count from its parameters and
//     quantizes every block of values to that many bits around a shared
//     block exponent, the same "block floating point" idea zfp's real
//     lossy modes are built on, simplified to a single shared exponent
//     per block instead of zfp's full embedded bit-plane coding.
//
// Integer types narrower than 32 bits are the caller's responsibility to
// promote via sign-extension + left-shift before Encode and to clamp +
// right-shift back after Decode; this codec only sees raw bytes and a
// configured ElementSize (4 or 8, float32 or float64).
package zfp

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/TuSKan/zarr-go/codec"
)

// Mode selects among zfp's named compression modes.
type Mode int

const (
	Reversible Mode = iota
	FixedRate
	FixedPrecision
	FixedAccuracy
	Expert
)

// Codec is the zfp compressor as a bytes-to-bytes
// codec: ElementSize must be 4 (float32) or 8 (float64) lanes. The other
// fields configure a lossy mode's precision budget and are ignored in
// Reversible mode.
type Codec struct {
	Mode        Mode
	ElementSize int

	Rate      float64 // FixedRate: target bits per value
	Precision uint    // FixedPrecision: retained mantissa bits
	Accuracy  float64 // FixedAccuracy: retained bits = ceil(-log2(Accuracy)), counted from each block's exponent; the error stays within Accuracy only for blocks whose largest magnitude is below 1

	// Expert mode's direct bit-plane controls.
	MinBits, MaxBits, MaxPrec uint
	MinExp                    int
}

func (Codec) Name() string { return "zfp" }

const blockSize = 4

func (c Codec) elemSize() int {
	if c.ElementSize == 8 {
		return 8
	}
	return 4
}

func (c Codec) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	elemSize := c.elemSize()
	if len(in)%elemSize != 0 {
		return nil, fmt.Errorf("codec: zfp: input length %d not a multiple of element size %d", len(in), elemSize)
	}
	n := len(in) / elemSize
	lanes := make([]uint64, n)
	for i := 0; i < n; i++ {
		lanes[i] = readLane(in[i*elemSize:(i+1)*elemSize], elemSize)
	}

	header := make([]byte, 10)
	header[0] = byte(c.Mode)
	header[1] = byte(elemSize)
	binary.LittleEndian.PutUint64(header[2:], uint64(n))

	var payload []byte
	var err error
	if c.Mode == Reversible {
		payload = encodeXOR(lanes, elemSize)
	} else {
		payload, err = c.encodeLossy(lanes, elemSize)
		if err != nil {
			return nil, err
		}
	}
	return append(header, payload...), nil
}

func (c Codec) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	if len(in) < 10 {
		return nil, fmt.Errorf("codec: zfp: input too short for header")
	}
	mode := Mode(in[0])
	elemSize := int(in[1])
	n := int(binary.LittleEndian.Uint64(in[2:10]))
	payload := in[10:]

	var lanes []uint64
	var err error
	if mode == Reversible {
		lanes, err = decodeXOR(payload, n, elemSize)
	} else {
		lanes, err = c.decodeLossy(payload, n, elemSize)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: zfp: %w", err)
	}

	out := make([]byte, n*elemSize)
	for i, l := range lanes {
		writeLane(out[i*elemSize:(i+1)*elemSize], l, elemSize)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Codec{}

func readLane(b []byte, size int) uint64 {
	if size == 4 {
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

func writeLane(b []byte, v uint64, size int) {
	if size == 4 {
		binary.LittleEndian.PutUint32(b, uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(b, v)
}

// --- Reversible: Gorilla-style XOR-delta bitstream ---

// encodeXOR XORs each lane against the previous one (zero for the first)
// and writes, per lane: one bit "same as previous" (xor==0), or one bit
// "different" followed by a 6-bit leading-zero count, a 6-bit meaningful
// bit-width, and the meaningful bits themselves. This loses nothing: the
// original lane is exactly prev XOR meaningfulBits-placed-at-their-offset.
func encodeXOR(lanes []uint64, elemSize int) []byte {
	width := elemSize * 8
	bw := newBitWriter()
	var prev uint64
	for _, cur := range lanes {
		xor := prev ^ cur
		if xor == 0 {
			bw.writeBit(0)
		} else {
			bw.writeBit(1)
			lead := leadingZeros(xor, width)
			trail := trailingZeros(xor, width)
			meaningful := width - lead - trail
			bw.writeBits(uint64(lead), 6)
			// meaningful is in [1, 64]; 64 doesn't fit 6 bits, so it is
			// stored as 0 (0 never occurs legitimately since xor != 0).
			bw.writeBits(uint64(meaningful&63), 6)
			bw.writeBits(xor>>uint(trail), uint(meaningful))
		}
		prev = cur
	}
	return bw.bytes()
}

func decodeXOR(data []byte, n int, elemSize int) ([]uint64, error) {
	width := elemSize * 8
	br := newBitReader(data)
	out := make([]uint64, n)
	var prev uint64
	for i := 0; i < n; i++ {
		bit, err := br.readBit()
		if err != nil {
			return nil, fmt.Errorf("reversible: lane %d: %w", i, err)
		}
		if bit == 0 {
			out[i] = prev
			continue
		}
		lead, err := br.readBits(6)
		if err != nil {
			return nil, err
		}
		meaningful, err := br.readBits(6)
		if err != nil {
			return nil, err
		}
		if meaningful == 0 {
			meaningful = 64
		}
		bits, err := br.readBits(uint(meaningful))
		if err != nil {
			return nil, err
		}
		trail := uint64(width) - lead - meaningful
		xor := bits << uint(trail)
		cur := prev ^ xor
		out[i] = cur
		prev = cur
	}
	return out, nil
}

func leadingZeros(v uint64, width int) int {
	n := 0
	for b := width - 1; b >= 0; b-- {
		if v&(uint64(1)<<uint(b)) != 0 {
			break
		}
		n++
	}
	return n
}

func trailingZeros(v uint64, width int) int {
	n := 0
	for b := 0; b < width; b++ {
		if v&(uint64(1)<<uint(b)) != 0 {
			break
		}
		n++
	}
	return n
}

// --- Lossy modes: shared-exponent block quantization ---

func (c Codec) retainedBits() uint {
	switch c.Mode {
	case FixedRate:
		if c.Rate <= 0 {
			return 16
		}
		return uint(c.Rate)
	case FixedPrecision:
		if c.Precision == 0 {
			return 16
		}
		return c.Precision
	case FixedAccuracy:
		if c.Accuracy <= 0 {
			return uint(c.elemSize() * 8)
		}
		bits := uint(math.Ceil(-math.Log2(c.Accuracy)))
		if bits < 1 {
			bits = 1
		}
		return bits
	case Expert:
		if c.MaxPrec > 0 {
			return c.MaxPrec
		}
		if c.MaxBits > 0 {
			return c.MaxBits
		}
		return 16
	default:
		return 16
	}
}

func asFloat(lane uint64, elemSize int) float64 {
	if elemSize == 4 {
		return float64(math.Float32frombits(uint32(lane)))
	}
	return math.Float64frombits(lane)
}

func fromFloat(v float64, elemSize int) uint64 {
	if elemSize == 4 {
		return uint64(math.Float32bits(float32(v)))
	}
	return math.Float64bits(v)
}

// encodeLossy quantizes blockSize-value blocks around a shared exponent
// derived from the block's max magnitude, retaining c.retainedBits() of
// precision: block header is 1 signed exponent byte, followed by
// blockSize zigzag varints.
func (c Codec) encodeLossy(lanes []uint64, elemSize int) ([]byte, error) {
	bits := c.retainedBits()
	var out []byte
	for off := 0; off < len(lanes); off += blockSize {
		end := off + blockSize
		if end > len(lanes) {
			end = len(lanes)
		}
		block := lanes[off:end]
		maxAbs := 0.0
		for _, l := range block {
			v := math.Abs(asFloat(l, elemSize))
			if v > maxAbs {
				maxAbs = v
			}
		}
		exp := 0
		if maxAbs > 0 {
			exp = int(math.Floor(math.Log2(maxAbs))) + 1
		}
		if exp > 127 {
			exp = 127
		}
		if exp < -127 {
			exp = -127
		}
		out = append(out, byte(int8(exp)))
		scale := math.Pow(2, float64(bits)-1-float64(exp))
		for _, l := range block {
			v := asFloat(l, elemSize)
			q := int64(math.Round(v * scale))
			out = appendVarintZigzag(out, q)
		}
	}
	return out, nil
}

// decodeLossy is encodeLossy's inverse. The quantization scale depends on
// c.retainedBits(), which the caller's Codec value reproduces identically
// to whatever encoded the stream (zarr.json's codec configuration is
// fixed for the life of an array, so encode and decode always agree).
func (c Codec) decodeLossy(data []byte, n int, elemSize int) ([]uint64, error) {
	bits := c.retainedBits()
	out := make([]uint64, 0, n)
	pos := 0
	for len(out) < n {
		if pos >= len(data) {
			return nil, fmt.Errorf("lossy: truncated block header")
		}
		exp := int(int8(data[pos]))
		pos++
		blockN := blockSize
		if n-len(out) < blockN {
			blockN = n - len(out)
		}
		scale := math.Pow(2, float64(bits)-1-float64(exp))
		for i := 0; i < blockN; i++ {
			q, next, err := readVarintZigzag(data, pos)
			if err != nil {
				return nil, err
			}
			pos = next
			v := float64(q) / scale
			out = append(out, fromFloat(v, elemSize))
		}
	}
	return out, nil
}

func appendVarintZigzag(buf []byte, v int64) []byte {
	zz := uint64((v << 1) ^ (v >> 63))
	for zz >= 0x80 {
		buf = append(buf, byte(zz)|0x80)
		zz >>= 7
	}
	return append(buf, byte(zz))
}

func readVarintZigzag(buf []byte, pos int) (int64, int, error) {
	var zz uint64
	var shift uint
	for {
		if pos >= len(buf) {
			return 0, 0, fmt.Errorf("truncated varint")
		}
		b := buf[pos]
		pos++
		zz |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	signed := int64(zz>>1) ^ -int64(zz&1)
	return signed, pos, nil
}
