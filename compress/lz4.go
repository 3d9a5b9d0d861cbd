package compress

import (
	"bytes"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4WriterPool reuses frame writers across calls.
var lz4WriterPool = sync.Pool{
	New: func() any {
		w := lz4.NewWriter(nil)
		// Options only fail on invalid values.
		_ = w.Apply(
			lz4.BlockSizeOption(lz4.Block256Kb),
			lz4.ChecksumOption(true),
			lz4.ConcurrencyOption(1),
		)

		return w
	},
}

// LZ4Compressor writes exported section streams as LZ4 frames with content checksums, the
// format the lz4 command line tool reads.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor creates a new LZ4 compressor.
//
// Returns:
//   - LZ4Compressor: New LZ4 compressor instance
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress frames data as a single LZ4 frame.
//
// Parameters:
//   - data: Section stream to compress
//
// Returns:
//   - []byte: LZ4 frame (nil if input is empty)
//   - error: Compression error if any
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out bytes.Buffer
	out.Grow(lz4.CompressBlockBound(len(data)) + 32)

	w, _ := lz4WriterPool.Get().(*lz4.Writer)
	defer func() {
		w.Reset(nil)
		lz4WriterPool.Put(w)
	}()
	w.Reset(&out)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// Decompress reads an LZ4 frame back into memory, verifying the content checksum.
//
// Parameters:
//   - data: LZ4 frame
//
// Returns:
//   - []byte: Decompressed data (nil if input is empty)
//   - error: errs.ErrOutputOverrun past the unsized limit, or a frame decoding error
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return readLimited(lz4.NewReader(bytes.NewReader(data)), len(data))
}
