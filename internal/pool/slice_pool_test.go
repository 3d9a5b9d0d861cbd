package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetUint64Slice(t *testing.T) {
	t.Run("returns slice with correct size", func(t *testing.T) {
		slice, cleanup := GetUint64Slice(100)
		defer cleanup()

		require.Len(t, slice, 100)
	})

	t.Run("reslices pooled storage", func(t *testing.T) {
		_, cleanup1 := GetUint64Slice(50)
		cleanup1()

		slice2, cleanup2 := GetUint64Slice(20)
		defer cleanup2()

		require.Len(t, slice2, 20)
		require.GreaterOrEqual(t, cap(slice2), 20)
	})

	t.Run("allocates when capacity insufficient", func(t *testing.T) {
		_, cleanup1 := GetUint64Slice(10)
		cleanup1()

		slice2, cleanup2 := GetUint64Slice(1000)
		defer cleanup2()

		require.Len(t, slice2, 1000)
	})
}

func TestGetInt64Slice(t *testing.T) {
	slice, cleanup := GetInt64Slice(3)
	defer cleanup()

	slice[0], slice[1], slice[2] = -1, 0, 1
	require.Equal(t, []int64{-1, 0, 1}, slice)

	empty, cleanupEmpty := GetInt64Slice(0)
	defer cleanupEmpty()
	require.Empty(t, empty)
}
