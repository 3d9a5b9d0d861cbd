package collision

import (
	"testing"

	"github.com/arloliu/dwgkit/errs"
	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker(-1)

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Count())
	require.Equal(t, 0, tracker.Rejected())
	require.Empty(t, tracker.Duplicates())
}

func TestTracker_Track(t *testing.T) {
	tracker := NewTracker(4)

	require.NoError(t, tracker.Track(0x1, 100))
	require.NoError(t, tracker.Track(0x2, 50))
	require.NoError(t, tracker.Track(0x10, 400))
	require.Equal(t, 3, tracker.Count())

	off, ok := tracker.Offset(0x2)
	require.True(t, ok)
	require.Equal(t, int64(50), off)

	_, ok = tracker.Offset(0x3)
	require.False(t, ok)
}

func TestTracker_Track_Duplicate(t *testing.T) {
	tracker := NewTracker(0)

	require.NoError(t, tracker.Track(0x5, 10))
	err := tracker.Track(0x5, 20)
	require.ErrorIs(t, err, errs.ErrDuplicateHandle)

	off, _ := tracker.Offset(0x5)
	require.Equal(t, int64(10), off, "first offset wins")
	require.Equal(t, 1, tracker.Rejected())
	require.Equal(t, []uint64{0x5}, tracker.Duplicates())
}

func TestTracker_Track_NonIncreasing(t *testing.T) {
	tracker := NewTracker(0)

	require.NoError(t, tracker.Track(0x20, 10))
	err := tracker.Track(0x10, 20)
	require.ErrorIs(t, err, errs.ErrNonIncreasingHandle)
	require.Equal(t, 1, tracker.Count())

	require.NoError(t, tracker.Track(0x21, 30))
	require.Equal(t, 2, tracker.Count())
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker(0)
	require.NoError(t, tracker.Track(0x9, 1))
	require.Error(t, tracker.Track(0x9, 2))

	tracker.Reset()

	require.Equal(t, 0, tracker.Count())
	require.Equal(t, 0, tracker.Rejected())
	require.Empty(t, tracker.Duplicates())
	require.NoError(t, tracker.Track(0x1, 1), "ordering restarts after reset")
}
