package compress

// ZstdCompressor provides Zstandard compression for exported section streams.
//
// The default build uses klauspost/compress with pooled encoders and decoders. Building with
// the gozstd tag (and cgo) switches to valyala/gozstd.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(section)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
