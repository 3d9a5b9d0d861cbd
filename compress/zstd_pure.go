//go:build !gozstd || !cgo

package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/arloliu/dwgkit/errs"
)

// Decoders refuse frames that would expand past unsizedLimit, the same cap an unsized LZ77
// page decode has.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(unsizedLimit),
			zstd.WithDecoderMaxWindow(zstdWindow),
		)
		if err != nil {
			panic(fmt.Sprintf("zstd decoder options: %v", err))
		}

		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderCRC(true),
			zstd.WithWindowSize(zstdWindow),
		)
		if err != nil {
			panic(fmt.Sprintf("zstd encoder options: %v", err))
		}

		return encoder
	},
}

// zstdWindow is the largest window the encoder uses.
const zstdWindow = 8 << 20

// Compress writes data as one checksummed zstd frame.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress decodes a zstd frame. A frame declaring more than the unsized limit fails with
// errs.ErrOutputOverrun.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	out, err := decoder.DecodeAll(data, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return nil, fmt.Errorf("zstd: %w", errs.ErrOutputOverrun)
	}
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}

	return out, nil
}
