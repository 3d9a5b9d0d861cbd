// Package compress provides the page codecs of the drawing container and the general-purpose
// codecs used when exporting section streams.
//
// # Page codecs
//
// Pages are compressed with one of two LZ77 variants selected by container generation:
//   - AC18Compressor: R2004, R2010, R2013 and R2018 data and system pages
//   - AC21Compressor: R2007 pages and the R2007 file header metadata
//
// Both decoders bound every read and copy: truncated input fails with errs.ErrInputOverrun,
// a back-reference before the start of output with errs.ErrLookbehindOverrun and an unknown
// opcode with errs.ErrInvalidOpcode. DecompressSize additionally caps the output at the page
// size declared in the page header.
//
// The encoders are greedy hash-chain matchers. They produce valid streams, not byte-identical
// copies of what other writers emit.
//
// # Export codecs
//
// dwgdump can write decompressed section streams with a second codec:
//   - None: stored as-is
//   - Zstd: klauspost/compress, or valyala/gozstd when built with the gozstd tag
//   - S2: klauspost/compress, framed stream format
//   - LZ4: pierrec/lz4, frame format with content checksum
//
// # Architecture
//
//	type Codec interface {
//	    Compress(data []byte) ([]byte, error)
//	    Decompress(data []byte) ([]byte, error)
//	}
//
// CreateCodec and GetCodec map a format.CompressionType to a Codec; PageCodec maps a
// container generation to its LZ77 codec.
//
// # Thread Safety
//
// All codecs are stateless values backed by sync.Pool scratch state and can be shared across
// goroutines.
package compress
