// Package collision tracks handles while a handle map is decoded and reports repeats.
package collision

import (
	"github.com/arloliu/dwgkit/errs"
)

// Tracker remembers every handle seen so far and the first offset recorded for it.
type Tracker struct {
	offsets   map[uint64]int64
	last      uint64
	seen      bool
	rejected  int
	duplicate []uint64
}

// NewTracker creates an empty tracker sized for hint handles.
func NewTracker(hint int) *Tracker {
	if hint < 0 {
		hint = 0
	}

	return &Tracker{offsets: make(map[uint64]int64, hint)}
}

// Track records handle at offset.
//
// Returns:
//   - error: ErrDuplicateHandle if the handle was already tracked, ErrNonIncreasingHandle if
//     it is below the last accepted handle. Rejected handles are not recorded.
func (t *Tracker) Track(handle uint64, offset int64) error {
	if _, exists := t.offsets[handle]; exists {
		t.rejected++
		t.duplicate = append(t.duplicate, handle)

		return errs.ErrDuplicateHandle
	}
	if t.seen && handle < t.last {
		t.rejected++
		return errs.ErrNonIncreasingHandle
	}

	t.offsets[handle] = offset
	t.last = handle
	t.seen = true

	return nil
}

// Offset returns the offset recorded for handle.
func (t *Tracker) Offset(handle uint64) (int64, bool) {
	off, ok := t.offsets[handle]
	return off, ok
}

// Count returns the number of accepted handles.
func (t *Tracker) Count() int {
	return len(t.offsets)
}

// Rejected returns how many handles were refused.
func (t *Tracker) Rejected() int {
	return t.rejected
}

// Duplicates returns the handles that were seen more than once, in order of detection.
func (t *Tracker) Duplicates() []uint64 {
	return t.duplicate
}

// Reset clears the tracker while keeping its map allocation.
func (t *Tracker) Reset() {
	clear(t.offsets)
	t.last = 0
	t.seen = false
	t.rejected = 0
	t.duplicate = t.duplicate[:0]
}
