package section

import (
	"math/rand"
	"testing"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/stretchr/testify/require"
)

func TestInterleave_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for _, factor := range []int{1, 2, 3, 7} {
		for _, dataSize := range []int{format.ReedSolomonData, format.ReedSolomonPage} {
			data := make([]byte, factor*dataSize)
			rng.Read(data)

			encoded := Interleave(data, factor, dataSize)
			require.Len(t, encoded, factor*format.ReedSolomonBlock)

			decoded, err := Deinterleave(encoded, factor, dataSize)
			require.NoError(t, err)
			require.Equal(t, data, decoded)
		}
	}
}

func TestInterleave_Layout(t *testing.T) {
	data := []byte{'a', 'b', 'c', 'x', 'y', 'z'}
	encoded := Interleave(data, 2, 3)

	require.Equal(t, []byte{'a', 'x', 'b', 'y', 'c', 'z'}, encoded[:6])
	for _, b := range encoded[6:] {
		require.Zero(t, b)
	}
}

func TestInterleave_ShortData(t *testing.T) {
	encoded := Interleave([]byte{1, 2, 3}, 2, 239)
	decoded, err := Deinterleave(encoded, 2, 239)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, decoded[:3])
	require.Zero(t, decoded[3])
}

func TestDeinterleave_Errors(t *testing.T) {
	_, err := Deinterleave(make([]byte, 10), 3, 239)
	require.ErrorIs(t, err, errs.ErrReedSolomonTooShort)

	_, err = Deinterleave(make([]byte, 1000), 0, 239)
	require.ErrorIs(t, err, errs.ErrReedSolomonTooShort)

	_, err = Deinterleave(make([]byte, 1000), 1, 256)
	require.ErrorIs(t, err, errs.ErrReedSolomonTooShort)
}

func TestRSBlockCount(t *testing.T) {
	tests := []struct {
		size   uint64
		repeat uint64
		data   int
		blocks int
		page   int
	}{
		{1, 1, 239, 1, 256},
		{239, 1, 239, 2, 512},
		{232, 1, 239, 1, 256},
		{0x110, 0, 239, 2, 512},
		{100, 3, 239, 2, 512},
		{251 * 4, 1, 251, 5, 1280},
	}

	for _, tt := range tests {
		blocks := rsBlockCount(tt.size, tt.repeat, tt.data)
		require.Equal(t, tt.blocks, blocks, "size %d", tt.size)
		require.Equal(t, tt.page, rsPageSize(blocks))
	}
}
