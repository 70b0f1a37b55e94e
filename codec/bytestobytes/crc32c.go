package bytestobytes

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/TuSKan/zarr-go/codec"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Crc32c appends a little-endian CRC32C (Castagnoli) checksum of the input
// on encode, and verifies/strips it on decode. The shard index subchain is
// its usual home (bytes + crc32c).
type Crc32c struct{}

func (Crc32c) Name() string { return "crc32c" }

func (Crc32c) Encode(ctx context.Context, in []byte, opts codec.Options) ([]byte, error) {
	sum := crc32.Checksum(in, castagnoliTable)
	out := make([]byte, len(in)+4)
	copy(out, in)
	binary.LittleEndian.PutUint32(out[len(in):], sum)
	return out, nil
}

func (Crc32c) Decode(ctx context.Context, in []byte, decodedSize int, opts codec.Options) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("codec: crc32c: input too short (%d bytes)", len(in))
	}
	payload := in[:len(in)-4]
	want := binary.LittleEndian.Uint32(in[len(in)-4:])
	got := crc32.Checksum(payload, castagnoliTable)
	if got != want {
		return nil, fmt.Errorf("codec: crc32c mismatch: got %#x want %#x", got, want)
	}
	return payload, nil
}

var _ codec.BytesToBytesCodec = Crc32c{}
