package zarr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TuSKan/zarr-go/chunkgrid"
	"github.com/TuSKan/zarr-go/codec"
	"github.com/TuSKan/zarr-go/codec/arraytobytes"
	"github.com/TuSKan/zarr-go/fillvalue"
	"github.com/TuSKan/zarr-go/storage"
	"github.com/TuSKan/zarr-go/zarr"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()

	meta := &zarr.Metadata{
		Path:             "arr",
		ZarrFormat:       3,
		Shape:            []uint64{4, 4},
		DataType:         zarr.DataType{Name: "uint8", ElementSize: 1},
		FillValue:        fillvalue.NewFixed([]byte{0}),
		ChunkGrid:        chunkgrid.NewRegular([]uint64{2, 2}),
		ChunkKeyEncoding: zarr.NewDefaultKeyEncoding("/"),
		Codecs:           codec.Chain{ArrayToBytes: arraytobytes.Bytes{Order: arraytobytes.LittleEndian}},
		Attributes:       map[string]any{"units": "K"},
	}
	_, err := zarr.Create(ctx, store, meta)
	require.NoError(t, err)

	data, err := store.Get(ctx, "arr/zarr.json")
	require.NoError(t, err)
	require.NotNil(t, data)

	reopened, err := zarr.Open(ctx, store, "arr")
	require.NoError(t, err)
	require.Equal(t, meta.Shape, reopened.Meta.Shape)
	require.Equal(t, meta.DataType.Name, reopened.Meta.DataType.Name)
	require.Equal(t, "K", reopened.Meta.Attributes["units"])

	gridShape, err := reopened.Meta.ChunkGrid.GridShape(reopened.Meta.Shape)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 2}, gridShape)
}

func TestOpenMissingMetadataErrors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	_, err := zarr.Open(ctx, store, "nope")
	require.Error(t, err)
}

func TestParseDType(t *testing.T) {
	tests := []struct {
		input       string
		expectedStr string
		expectedSz  int
		expectErr   bool
	}{
		{"<f4", "float32", 4, false},
		{"<i8", "int64", 8, false},
		{"|b1", "bool", 1, false},
		{">f4", "", 0, true}, // big-endian not supported
		{"x2", "", 0, true},  // invalid encoding
		{"<x4", "", 0, true}, // unknown kind
		{"<i", "", 0, true},  // incomplete size
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			str, sz, err := zarr.ParseDType(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expectedStr, str)
			require.Equal(t, tt.expectedSz, sz)
		})
	}
}

func TestOpenLegacyV2Metadata(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemStore()
	zarray := []byte(`{
		"zarr_format": 2,
		"shape": [4, 4],
		"chunks": [2, 2],
		"dtype": "<f4",
		"compressor": null,
		"fill_value": 0.0,
		"order": "C",
		"filters": null
	}`)
	require.NoError(t, store.Set(ctx, "legacy/.zarray", zarray))

	a, err := zarr.Open(ctx, store, "legacy")
	require.NoError(t, err)
	require.Equal(t, []uint64{4, 4}, a.Meta.Shape)
	require.Equal(t, "float32", a.Meta.DataType.Name)
}
