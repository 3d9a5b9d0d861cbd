package pool

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(128)

	require.Equal(t, 0, bb.Len())
	require.Equal(t, 128, bb.Cap())
	require.Empty(t, bb.Bytes())
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(4)

	n, err := bb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	bb.MustWrite([]byte{4, 5})
	require.Equal(t, []byte{1, 2, 3, 4, 5}, bb.Bytes())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 5)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte("AC1018"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(6), n)
	require.Equal(t, "AC1018", out.String())

	_, err = bb.WriteTo(failingWriter{})
	require.Error(t, err)
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(4)

	require.True(t, bb.Extend(4))
	require.Equal(t, 4, bb.Len())
	require.False(t, bb.Extend(1))
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(2)
	bb.MustWrite([]byte{0xAA, 0xBB})

	// Dirty the spare capacity to make sure extension zero-fills.
	bb.B = append(bb.B, 0xFF)
	bb.B = bb.B[:2]

	bb.ExtendOrGrow(3)
	require.Equal(t, []byte{0xAA, 0xBB, 0, 0, 0}, bb.Bytes())
}

func TestByteBuffer_PadTo(t *testing.T) {
	tests := []struct {
		name  string
		start int
		align int
		want  int
	}{
		{"already aligned", 0x40, 0x20, 0x40},
		{"one short", 0x1F, 0x20, 0x20},
		{"just past", 0x21, 0x20, 0x40},
		{"no alignment", 7, 1, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bb := NewByteBuffer(0)
			bb.ExtendOrGrow(tt.start)
			bb.PadTo(tt.align)
			require.Equal(t, tt.want, bb.Len())
		})
	}
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(100)
		bb.Grow(50)
		require.Equal(t, 100, bb.Cap())
	})

	t.Run("small buffer grows by a page", func(t *testing.T) {
		bb := NewByteBuffer(10)
		bb.MustWrite(make([]byte, 10))
		bb.Grow(1)
		require.Equal(t, 10+growStep, bb.Cap())
	})

	t.Run("large buffer grows by a quarter", func(t *testing.T) {
		size := 8 * growStep
		bb := NewByteBuffer(size)
		bb.MustWrite(make([]byte, size))
		bb.Grow(1)
		require.Equal(t, size+size/4, bb.Cap())
	})

	t.Run("request larger than step", func(t *testing.T) {
		bb := NewByteBuffer(0)
		bb.Grow(3 * growStep)
		require.GreaterOrEqual(t, bb.Cap(), 3*growStep)
	})

	t.Run("preserves data", func(t *testing.T) {
		bb := NewByteBuffer(2)
		bb.MustWrite([]byte{9, 8})
		bb.Grow(100)
		require.Equal(t, []byte{9, 8}, bb.Bytes())
	})
}

func TestPageBuffer_GetPut(t *testing.T) {
	bb := GetPageBuffer()
	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte{1, 2, 3})
	PutPageBuffer(bb)
	PutPageBuffer(nil)

	again := GetPageBuffer()
	require.Equal(t, 0, again.Len(), "pooled buffers come back empty")
	PutPageBuffer(again)
}

func TestFileBuffer_GetPut(t *testing.T) {
	bb := GetFileBuffer()
	require.GreaterOrEqual(t, bb.Cap(), 0)
	bb.MustWrite([]byte("AC1015"))
	PutFileBuffer(bb)
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	big := p.Get()
	big.Grow(1024)
	p.Put(big)

	small := p.Get()
	require.LessOrEqual(t, small.Cap(), 32, "oversized buffers are not retained")
}

func TestByteBufferPool_ConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			for range 100 {
				bb := GetPageBuffer()
				bb.MustWrite([]byte{seed})
				PutPageBuffer(bb)
			}
		}(byte(i))
	}
	wg.Wait()
}

func BenchmarkPageBuffer_GetWritePut(b *testing.B) {
	page := make([]byte, PageBufferDefaultSize)
	for b.Loop() {
		bb := GetPageBuffer()
		bb.MustWrite(page)
		PutPageBuffer(bb)
	}
}
