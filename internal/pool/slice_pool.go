package pool

import "sync"

var (
	uint64SlicePool = sync.Pool{
		New: func() any { return &[]uint64{} },
	}
	int64SlicePool = sync.Pool{
		New: func() any { return &[]int64{} },
	}
)

func getSlice[T any](p *sync.Pool, size int) ([]T, func()) {
	ptr, _ := p.Get().(*[]T)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]T, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { p.Put(ptr) }
}

// GetUint64Slice retrieves a uint64 slice of exactly size elements from the pool.
//
// The contents are not cleared. The caller must call the returned cleanup function to
// return the slice to the pool.
//
// Example:
//
//	handles, cleanup := pool.GetUint64Slice(len(entries))
//	defer cleanup()
func GetUint64Slice(size int) ([]uint64, func()) {
	return getSlice[uint64](&uint64SlicePool, size)
}

// GetInt64Slice retrieves an int64 slice of exactly size elements from the pool.
func GetInt64Slice(size int) ([]int64, func()) {
	return getSlice[int64](&int64SlicePool, size)
}
