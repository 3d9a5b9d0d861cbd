package pagecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCache_AddGet(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	raw := []byte{0x20, 0x00, 0x00, 0x01, 'x'}
	key := Key(raw, 1)
	c.Add(key, []byte{'x'})

	page, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, []byte{'x'}, page)
	require.Equal(t, 1, c.Len())

	_, ok = c.Get(Key(raw, 2))
	require.False(t, ok)
}

func TestCache_Eviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	for i := range uint64(5) {
		c.Add(i, []byte{byte(i)})
	}
	require.LessOrEqual(t, c.Len(), 2)

	c.Purge()
	require.Equal(t, 0, c.Len())
}

func TestCache_DefaultSize(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestCache_Nil(t *testing.T) {
	var c *Cache

	c.Add(1, []byte{1})
	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
	c.Purge()
}
