package section

import (
	"fmt"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

// Deinterleave extracts the data bytes of factor interleaved Reed-Solomon code words.
//
// Byte j of code word i is stored at src[j*factor+i]. Each code word is 255 bytes, of which
// the first dataSize are data; parity bytes are skipped without correction.
//
// Returns:
//   - []byte: factor*dataSize data bytes
//   - error: errs.ErrReedSolomonTooShort when src cannot hold the data bytes
func Deinterleave(src []byte, factor, dataSize int) ([]byte, error) {
	if factor <= 0 || dataSize <= 0 || dataSize > format.ReedSolomonBlock {
		return nil, fmt.Errorf("%w: factor %d data %d", errs.ErrReedSolomonTooShort, factor, dataSize)
	}
	if len(src) < factor*dataSize {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", errs.ErrReedSolomonTooShort, len(src), factor*dataSize)
	}

	out := make([]byte, factor*dataSize)
	for i := range factor {
		block := out[i*dataSize : (i+1)*dataSize]
		for j := range block {
			block[j] = src[j*factor+i]
		}
	}

	return out, nil
}

// Interleave is the inverse of Deinterleave. data is zero-padded to factor*dataSize bytes and
// every code word receives zero parity, so the output is factor*255 bytes.
func Interleave(data []byte, factor, dataSize int) []byte {
	out := make([]byte, factor*format.ReedSolomonBlock)
	for i := range factor {
		for j := range dataSize {
			if k := i*dataSize + j; k < len(data) {
				out[j*factor+i] = data[k]
			}
		}
	}

	return out
}

// rsBlockCount returns how many code words hold size bytes at dataSize bytes per word,
// after rounding size up to 8 and multiplying by the repeat count.
func rsBlockCount(size uint64, repeat uint64, dataSize int) int {
	if repeat == 0 {
		repeat = 1
	}
	padded := ((size + 7) &^ 7) * repeat

	return int((padded + uint64(dataSize) - 1) / uint64(dataSize))
}

// rsPageSize is the on-disk size of blocks interleaved code words, rounded up to 8.
func rsPageSize(blocks int) int {
	return (blocks*format.ReedSolomonBlock + 7) &^ 7
}
