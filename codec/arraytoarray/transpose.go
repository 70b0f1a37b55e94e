// Package arraytoarray implements the array-to-array codecs:
// transpose (axis permutation) and fixed scale/offset (affine transform
// with optional dtype promotion). Both operate on ArrayBytes in place of
// shape/strides rather than on raw bytes, so they sit above the
// array-to-bytes codec in a chain.
package arraytoarray

import (
	"context"
	"fmt"

	"github.com/TuSKan/zarr-go/arraybytes"
	"github.com/TuSKan/zarr-go/codec"
)

// Transpose permutes axes according to Order. A permutation gains nothing
// from a partial read, so this codec is only ever used in the full
// encode/decode path, never wrapped in a partial decoder.
type Transpose struct {
	Order []int
}

func (Transpose) Name() string { return "transpose" }

func (t Transpose) EncodedRepresentation(in codec.ChunkRepresentation) (codec.ChunkRepresentation, error) {
	if len(t.Order) != len(in.Shape) {
		return codec.ChunkRepresentation{}, fmt.Errorf("codec: transpose order length %d != shape dimensionality %d", len(t.Order), len(in.Shape))
	}
	out := in
	out.Shape = permute(in.Shape, t.Order)
	return out, nil
}

func (t Transpose) Encode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	return t.permuteBytes(in, rep, t.Order)
}

func (t Transpose) Decode(ctx context.Context, in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, opts codec.Options) (arraybytes.ArrayBytes, error) {
	inverse := invertPermutation(t.Order)
	// rep here is the *pre-transpose* (decoded) representation; the bytes
	// we're given are in the encoded (permuted) shape, so build the
	// permuted representation to walk them correctly.
	encRep, err := t.EncodedRepresentation(rep)
	if err != nil {
		return arraybytes.ArrayBytes{}, err
	}
	return t.permuteBytes(in, encRep, inverse)
}

func invertPermutation(order []int) []int {
	inv := make([]int, len(order))
	for i, o := range order {
		inv[o] = i
	}
	return inv
}

func permute[T any](s []T, order []int) []T {
	out := make([]T, len(s))
	for i, o := range order {
		out[i] = s[o]
	}
	return out
}

// permuteBytes re-strides a fixed-size ArrayBytes from shape (per rep) into
// the axis order given, via a full strided copy.
func (t Transpose) permuteBytes(in arraybytes.ArrayBytes, rep codec.ChunkRepresentation, order []int) (arraybytes.ArrayBytes, error) {
	if rep.ElementSize <= 0 {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: transpose does not support variable-size elements")
	}
	shape := rep.Shape
	n := len(shape)
	if len(order) != n {
		return arraybytes.ArrayBytes{}, fmt.Errorf("codec: transpose order length %d != shape dimensionality %d", len(order), n)
	}

	srcStrides := cStrides(shape)
	outShape := permute(shape, order)
	outStrides := cStrides(outShape)

	total := int(rep.NumElements())
	out := make([]byte, total*rep.ElementSize)

	idx := make([]uint64, n)
	for linear := 0; linear < total; linear++ {
		rem := linear
		for d := 0; d < n; d++ {
			if outStrides[d] == 0 {
				idx[d] = 0
				continue
			}
			idx[d] = uint64(rem) / outStrides[d]
			rem = rem % int(outStrides[d])
		}
		// idx is in output-axis order; map back to source coordinates via
		// the same permutation to find the source linear offset.
		srcLinear := uint64(0)
		for outDim, srcDim := range order {
			srcLinear += idx[outDim] * srcStrides[srcDim]
		}
		srcOff := int(srcLinear) * rep.ElementSize
		dstOff := linear * rep.ElementSize
		copy(out[dstOff:dstOff+rep.ElementSize], in.FixedBytes[srcOff:srcOff+rep.ElementSize])
	}
	return arraybytes.NewFixed(out), nil
}

// cStrides computes C-order (row-major) element strides for shape.
func cStrides(shape []uint64) []uint64 {
	n := len(shape)
	strides := make([]uint64, n)
	stride := uint64(1)
	for i := n - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

var _ codec.ArrayToArrayCodec = Transpose{}
