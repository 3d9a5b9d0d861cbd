package compress

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dwgkit/format"
)

func randomBytes(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	rng.Read(buf)

	return buf
}

// roundTripInputs covers runs, incompressible data, repeated records and page-sized inputs.
func roundTripInputs() map[string][]byte {
	text := bytes.Repeat([]byte("AcDbEntity\x00AcDbLine\x00LAYER 0\x00"), 700)

	mixed := append([]byte{}, randomBytes(7, 5000)...)
	mixed = append(mixed, make([]byte, 3000)...)
	mixed = append(mixed, mixed[100:2100]...)
	mixed = append(mixed, randomBytes(8, 17)...)

	return map[string][]byte{
		"four bytes":   []byte("abcd"),
		"five bytes":   []byte("abcde"),
		"zeros page":   make([]byte, format.DefaultPageSize),
		"long run":     bytes.Repeat([]byte{0xAB}, 200_000),
		"random":       randomBytes(1, 3*format.DefaultPageSize),
		"random small": randomBytes(2, 33),
		"text":         text,
		"mixed":        mixed,
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	for codecName, codec := range getAllCodecs() {
		t.Run(codecName, func(t *testing.T) {
			for name, data := range roundTripInputs() {
				t.Run(name, func(t *testing.T) {
					compressed, err := codec.Compress(data)
					require.NoError(t, err)

					decompressed, err := codec.Decompress(compressed)
					require.NoError(t, err)
					require.Equal(t, data, decompressed)
				})
			}
		})
	}
}

func TestCodecs_CompressRuns(t *testing.T) {
	data := make([]byte, format.DefaultPageSize)
	for _, codec := range []Codec{NewAC18Compressor(), NewAC21Compressor()} {
		compressed, err := codec.Compress(data)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(data)/128, "%T", codec)

		decompressed, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Equal(t, data, decompressed)
	}
}

func TestCreateCodec(t *testing.T) {
	tests := []struct {
		compression format.CompressionType
		want        Codec
	}{
		{format.CompressionNone, NewNoOpCompressor()},
		{format.CompressionZstd, NewZstdCompressor()},
		{format.CompressionS2, NewS2Compressor()},
		{format.CompressionLZ4, NewLZ4Compressor()},
		{format.CompressionLZ77AC18, NewAC18Compressor()},
		{format.CompressionLZ77AC21, NewAC21Compressor()},
	}
	for _, tt := range tests {
		t.Run(tt.compression.String(), func(t *testing.T) {
			codec, err := CreateCodec(tt.compression, "section")
			require.NoError(t, err)
			require.IsType(t, tt.want, codec)

			builtin, err := GetCodec(tt.compression)
			require.NoError(t, err)
			require.IsType(t, tt.want, builtin)
		})
	}

	_, err := CreateCodec(format.CompressionType(0x7F), "section")
	require.ErrorContains(t, err, "invalid section compression")

	_, err = GetCodec(format.CompressionType(0x7F))
	require.Error(t, err)
}

func TestPageCodec(t *testing.T) {
	codec, err := PageCodec(format.GenerationAC18)
	require.NoError(t, err)
	require.IsType(t, AC18Compressor{}, codec)

	codec, err = PageCodec(format.GenerationAC21)
	require.NoError(t, err)
	require.IsType(t, AC21Compressor{}, codec)

	_, err = PageCodec(format.GenerationAC15)
	require.Error(t, err)
}

func TestMeasure(t *testing.T) {
	data := make([]byte, 4096)
	out, stats, err := Measure(NewS2Compressor(), format.CompressionS2, data)
	require.NoError(t, err)
	require.Equal(t, int64(4096), stats.OriginalSize)
	require.Equal(t, int64(len(out)), stats.CompressedSize)
	require.Less(t, stats.CompressionRatio(), 0.1)
	require.Greater(t, stats.SpaceSavings(), 90.0)

	require.Equal(t, 0.0, CompressionStats{}.CompressionRatio())
}

func TestNoOpCompressor(t *testing.T) {
	data := []byte("stored page")
	codec := NewNoOpCompressor()

	out, err := codec.Compress(data)
	require.NoError(t, err)
	require.Equal(t, &data[0], &out[0], "no-op must not copy")

	out, err = codec.Decompress(data)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestExportCodecs_Framed(t *testing.T) {
	data := bytes.Repeat([]byte("AcDb:Header\x00"), 400)

	out, err := NewS2Compressor().Compress(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("\xff\x06\x00\x00S2sTwO")), "s2 stream identifier")

	out, err = NewLZ4Compressor().Compress(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte{0x04, 0x22, 0x4D, 0x18}), "lz4 frame magic")

	// The frame carries a content checksum, so a damaged trailer is detected.
	out[len(out)-1] ^= 0xFF
	_, err = NewLZ4Compressor().Decompress(out)
	require.Error(t, err)

	_, err = NewS2Compressor().Decompress([]byte("not a stream"))
	require.Error(t, err)
}
