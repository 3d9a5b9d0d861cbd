package compress

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/dwgkit/errs"
)

// s2WriterPool reuses stream writers; each one keeps its block buffers between Reset calls.
var s2WriterPool = sync.Pool{
	New: func() any {
		return s2.NewWriter(nil, s2.WriterBetterCompression(), s2.WriterConcurrency(1))
	},
}

// S2Compressor writes exported section streams in the S2 framed format, so the files it
// produces can be read back with s2d or any snappy/S2 stream reader.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress frames data as a single S2 stream.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out bytes.Buffer
	out.Grow(s2.MaxEncodedLen(len(data)) + 32)

	w, _ := s2WriterPool.Get().(*s2.Writer)
	defer func() {
		w.Reset(nil)
		s2WriterPool.Put(w)
	}()
	w.Reset(&out)

	if err := w.EncodeBuffer(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// Decompress reads an S2 stream back into memory. Output is capped at the same limit as an
// unsized page decode.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r := s2.NewReader(bytes.NewReader(data))

	return readLimited(r, len(data))
}

// readLimited drains a stream decoder, failing once output exceeds unsizedLimit.
func readLimited(r io.Reader, hint int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(hint * 4)

	n, err := out.ReadFrom(io.LimitReader(r, unsizedLimit+1))
	if err != nil {
		return nil, err
	}
	if n > unsizedLimit {
		return nil, errs.ErrOutputOverrun
	}

	return out.Bytes(), nil
}
