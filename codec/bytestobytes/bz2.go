package bytestobytes

import (
	"context"
	"fmt"
	"sort"

	"github.com/TuSKan/zarr-go/codec"
)

// Bz2 stands in for the legacy numcodecs "bz2" bytes-to-bytes compressor.
// Go's standard library only ships a bzip2 decoder (compress/bzip2) and no
// maintained encoder exists, so this implements the pipeline real bzip2 is
// built from: block sort (Burrows-Wheeler transform), move-to-front, then
// run-length coding, as a self-contained, always-reversible codec. It
// skips bzip2's final Huffman stage and is not wire-compatible with .bz2
// streams.
type Bz2 struct {
	// BlockSize caps how many bytes are BWT-sorted together. Larger
	// blocks find more redundancy; bzip2 itself caps at 900,000.
	BlockSize int
}

func (Bz2) Name() string { return "bz2" }

func (c Bz2) blockSize() int {
	if c.BlockSize <= 0 {
		return 900000
	}
	return c.BlockSize
}

func (c Bz2) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	bs := c.blockSize()
	out := appendVarintBz2(nil, uint64(len(in)))
	for off := 0; off < len(in); off += bs {
		end := off + bs
		if end > len(in) {
			end = len(in)
		}
		block := in[off:end]
		bwt, primary := bwtForward(block)
		mtf := mtfEncode(bwt)
		rle := rleEncode(mtf)

		out = appendVarintBz2(out, uint64(len(block)))
		out = appendVarintBz2(out, uint64(primary))
		out = appendVarintBz2(out, uint64(len(rle)))
		out = append(out, rle...)
	}
	return out, nil
}

func (Bz2) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	pos := 0
	total, n, err := readVarintBz2(in, pos)
	if err != nil {
		return nil, fmt.Errorf("codec: bz2: %w", err)
	}
	pos = n

	out := make([]byte, 0, total)
	for uint64(len(out)) < total {
		blockLen, n1, err := readVarintBz2(in, pos)
		if err != nil {
			return nil, fmt.Errorf("codec: bz2: block length: %w", err)
		}
		pos = n1
		primary, n2, err := readVarintBz2(in, pos)
		if err != nil {
			return nil, fmt.Errorf("codec: bz2: primary index: %w", err)
		}
		pos = n2
		rleLen, n3, err := readVarintBz2(in, pos)
		if err != nil {
			return nil, fmt.Errorf("codec: bz2: rle length: %w", err)
		}
		pos = n3
		if pos+int(rleLen) > len(in) {
			return nil, fmt.Errorf("codec: bz2: truncated block payload")
		}
		rle := in[pos : pos+int(rleLen)]
		pos += int(rleLen)

		mtf, err := rleDecode(rle, int(blockLen))
		if err != nil {
			return nil, fmt.Errorf("codec: bz2: %w", err)
		}
		bwt := mtfDecode(mtf)
		block, err := bwtInverse(bwt, int(primary))
		if err != nil {
			return nil, fmt.Errorf("codec: bz2: %w", err)
		}
		out = append(out, block...)
	}
	return out, nil
}

var _ codec.BytesToBytesCodec = Bz2{}

// bwtForward computes the Burrows-Wheeler transform of block via a full
// cyclic-rotation sort, returning the transformed bytes and the index of
// the original string among the sorted rotations.
func bwtForward(block []byte) ([]byte, int) {
	n := len(block)
	if n == 0 {
		return nil, 0
	}
	doubled := append(append([]byte(nil), block...), block...)
	rotIdx := make([]int, n)
	for i := range rotIdx {
		rotIdx[i] = i
	}
	sort.Slice(rotIdx, func(a, b int) bool {
		ra := doubled[rotIdx[a] : rotIdx[a]+n]
		rb := doubled[rotIdx[b] : rotIdx[b]+n]
		for k := 0; k < n; k++ {
			if ra[k] != rb[k] {
				return ra[k] < rb[k]
			}
		}
		return rotIdx[a] < rotIdx[b]
	})

	out := make([]byte, n)
	primary := -1
	for i, start := range rotIdx {
		out[i] = doubled[start+n-1]
		if start == 0 {
			primary = i
		}
	}
	return out, primary
}

// bwtInverse reconstructs the original block from its BWT last column and
// primary index via the standard LF-mapping.
func bwtInverse(last []byte, primary int) ([]byte, error) {
	n := len(last)
	if n == 0 {
		return nil, nil
	}
	if primary < 0 || primary >= n {
		return nil, fmt.Errorf("primary index %d out of range for block of length %d", primary, n)
	}
	var counts [256]int
	for _, b := range last {
		counts[b]++
	}
	var base [256]int
	sum := 0
	for i := 0; i < 256; i++ {
		base[i] = sum
		sum += counts[i]
	}
	next := make([]int, n)
	var seen [256]int
	for i, b := range last {
		next[base[b]+seen[b]] = i
		seen[b]++
	}

	out := make([]byte, n)
	idx := next[primary]
	for i := 0; i < n; i++ {
		out[i] = last[idx]
		idx = next[idx]
	}
	return out, nil
}

// mtfEncode is the classic move-to-front transform over the byte
// alphabet: frequent bytes following one another (as BWT output tends to
// produce) collapse to small ranks, mostly zero.
func mtfEncode(in []byte) []byte {
	var table [256]byte
	for i := range table {
		table[i] = byte(i)
	}
	out := make([]byte, len(in))
	for i, b := range in {
		pos := 0
		for table[pos] != b {
			pos++
		}
		out[i] = byte(pos)
		copy(table[1:pos+1], table[:pos])
		table[0] = b
	}
	return out
}

func mtfDecode(in []byte) []byte {
	var table [256]byte
	for i := range table {
		table[i] = byte(i)
	}
	out := make([]byte, len(in))
	for i, rank := range in {
		b := table[rank]
		out[i] = b
		copy(table[1:int(rank)+1], table[:rank])
		table[0] = b
	}
	return out
}

// rleEncode run-length-codes in as (byte, varint count) pairs. MTF output
// skews heavily toward zero, so consecutive runs are common even though
// single-symbol runs cost slightly more than one byte.
func rleEncode(in []byte) []byte {
	var out []byte
	i := 0
	for i < len(in) {
		b := in[i]
		j := i + 1
		for j < len(in) && in[j] == b {
			j++
		}
		out = append(out, b)
		out = appendVarintBz2(out, uint64(j-i))
		i = j
	}
	return out
}

func rleDecode(in []byte, expectedLen int) ([]byte, error) {
	out := make([]byte, 0, expectedLen)
	pos := 0
	for pos < len(in) {
		b := in[pos]
		pos++
		count, next, err := readVarintBz2(in, pos)
		if err != nil {
			return nil, fmt.Errorf("rle: %w", err)
		}
		pos = next
		for k := uint64(0); k < count; k++ {
			out = append(out, b)
		}
	}
	if len(out) != expectedLen {
		return nil, fmt.Errorf("rle: decoded length %d != expected %d", len(out), expectedLen)
	}
	return out, nil
}

func appendVarintBz2(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func readVarintBz2(buf []byte, pos int) (uint64, int, error) {
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
