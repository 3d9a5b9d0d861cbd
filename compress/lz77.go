package compress

import (
	"sync"

	"github.com/arloliu/dwgkit/errs"
)

// SizedDecompressor decompresses into a buffer of known capacity. Page decoders use it so an
// over-long stream fails with errs.ErrOutputOverrun instead of growing without bound.
type SizedDecompressor interface {
	DecompressSize(data []byte, size int) ([]byte, error)
}

const (
	matchHashBits  = 15
	matchMaxChain  = 64
	matchMinLength = 3

	// unsizedLimit bounds Decompress when the caller gives no size.
	unsizedLimit = 256 * 1024 * 1024
)

// matchFinder is a hash-chain matcher over 3-byte prefixes shared by both LZ77 encoders.
type matchFinder struct {
	head []int32
	prev []int32
}

var matchFinderPool = sync.Pool{
	New: func() any {
		return &matchFinder{head: make([]int32, 1<<matchHashBits)}
	},
}

func acquireMatchFinder(n int) *matchFinder {
	m, _ := matchFinderPool.Get().(*matchFinder)
	for i := range m.head {
		m.head[i] = -1
	}
	if cap(m.prev) < n {
		m.prev = make([]int32, n)
	}
	m.prev = m.prev[:n]

	return m
}

func releaseMatchFinder(m *matchFinder) {
	matchFinderPool.Put(m)
}

func hash3(data []byte, i int) uint32 {
	v := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16
	return (v * 2654435761) >> (32 - matchHashBits)
}

func (m *matchFinder) insert(data []byte, i int) {
	if i+matchMinLength > len(data) {
		return
	}
	h := hash3(data, i)
	m.prev[i] = m.head[h]
	m.head[h] = int32(i)
}

// find returns the longest match for position i within window bytes, capped at maxLen.
func (m *matchFinder) find(data []byte, i, window, maxLen int) (dist, length int) {
	if i+matchMinLength > len(data) {
		return 0, 0
	}
	limit := min(maxLen, len(data)-i)

	j := m.head[hash3(data, i)]
	for chain := 0; j >= 0 && chain < matchMaxChain; chain++ {
		d := i - int(j)
		if d > window {
			break
		}

		n := 0
		for n < limit && data[int(j)+n] == data[i+n] {
			n++
		}
		if n > length {
			dist, length = d, n
			if n == limit {
				break
			}
		}
		j = m.prev[j]
	}

	if length < matchMinLength {
		return 0, 0
	}

	return dist, length
}

// copyMatch appends length bytes starting dist bytes back; overlapping copies repeat bytes.
func copyMatch(out []byte, dist, length, limit int) ([]byte, error) {
	if dist <= 0 || dist > len(out) {
		return out, errs.ErrLookbehindOverrun
	}
	if limit >= 0 && len(out)+length > limit {
		return out, errs.ErrOutputOverrun
	}

	start := len(out) - dist
	for k := range length {
		out = append(out, out[start+k])
	}

	return out, nil
}
