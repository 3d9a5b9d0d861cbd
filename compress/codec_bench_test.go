package compress

import (
	"fmt"
	"testing"

	"github.com/arloliu/dwgkit/format"
)

// generateBenchmarkData creates page-like test data.
func generateBenchmarkData(size int, compressibility string) []byte {
	data := make([]byte, size)

	switch compressibility {
	case "zeros":
		// sparse pages are mostly zero
	case "records":
		pattern := []byte("\x01\x10\x4C\x8A\x00\x40\x55\x12LAYER0\x00CONTINUOUS\x00")
		for i := range data {
			data[i] = pattern[i%len(pattern)] ^ byte(i/len(pattern))
		}
	default:
		for i := range data {
			data[i] = byte((i*31 + i*i*7 + i*i*i*3) % 256)
		}
	}

	return data
}

func getAllCodecs() map[string]Codec {
	return map[string]Codec{
		"None": NewNoOpCompressor(),
		"Zstd": NewZstdCompressor(),
		"S2":   NewS2Compressor(),
		"LZ4":  NewLZ4Compressor(),
		"AC18": NewAC18Compressor(),
		"AC21": NewAC21Compressor(),
	}
}

var benchSizes = []int{
	1024,                   // 1 KB
	format.DefaultPageSize, // one data page
	4 * format.DefaultPageSize,
}

var benchKinds = []string{"zeros", "records", "noise"}

func BenchmarkAllCodecs_Compress(b *testing.B) {
	for codecName, codec := range getAllCodecs() {
		b.Run(codecName, func(b *testing.B) {
			for _, size := range benchSizes {
				for _, kind := range benchKinds {
					b.Run(fmt.Sprintf("%dB_%s", size, kind), func(b *testing.B) {
						data := generateBenchmarkData(size, kind)

						b.ReportAllocs()
						b.SetBytes(int64(len(data)))

						for b.Loop() {
							if _, err := codec.Compress(data); err != nil {
								b.Fatal(err)
							}
						}
					})
				}
			}
		})
	}
}

func BenchmarkAllCodecs_Decompress(b *testing.B) {
	for codecName, codec := range getAllCodecs() {
		b.Run(codecName, func(b *testing.B) {
			for _, size := range benchSizes {
				for _, kind := range benchKinds {
					b.Run(fmt.Sprintf("%dB_%s", size, kind), func(b *testing.B) {
						data := generateBenchmarkData(size, kind)
						compressed, err := codec.Compress(data)
						if err != nil {
							b.Fatal(err)
						}

						b.ReportAllocs()
						b.SetBytes(int64(len(data)))

						for b.Loop() {
							if _, err := codec.Decompress(compressed); err != nil {
								b.Fatal(err)
							}
						}
					})
				}
			}
		})
	}
}

func BenchmarkAC18_DecompressSize(b *testing.B) {
	codec := NewAC18Compressor()
	data := generateBenchmarkData(format.DefaultPageSize, "records")
	compressed, err := codec.Compress(data)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for b.Loop() {
		if _, err := codec.DecompressSize(compressed, len(data)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAllCodecs_Parallel(b *testing.B) {
	data := generateBenchmarkData(format.DefaultPageSize, "records")

	for codecName, codec := range getAllCodecs() {
		b.Run(codecName, func(b *testing.B) {
			compressed, err := codec.Compress(data)
			if err != nil {
				b.Fatal(err)
			}

			b.SetBytes(int64(len(data)))
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, err := codec.Decompress(compressed); err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	}
}
