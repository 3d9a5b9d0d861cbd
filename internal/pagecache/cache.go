// Package pagecache keeps recently decompressed pages keyed by their raw-content hash.
package pagecache

import (
	"fmt"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/arloliu/dwgkit/internal/hash"
)

// DefaultSize is the number of pages retained when no size is configured.
const DefaultSize = 256

// Cache is an adaptive replacement cache of decompressed pages.
// It is safe for concurrent use and may be shared across readers: keys are content hashes,
// so identical raw pages from different files share one entry.
// A nil *Cache never hits and ignores stores.
type Cache struct {
	arc *arc.ARCCache[uint64, []byte]
}

// New creates a cache holding up to size pages.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}

	c, err := arc.NewARC[uint64, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("pagecache: %w", err)
	}

	return &Cache{arc: c}, nil
}

// Key returns the cache key for a raw page that decompresses to size bytes.
func Key(raw []byte, size uint64) uint64 {
	return hash.Page(raw, size)
}

// Get returns the decompressed page stored under key.
// Callers must not modify the returned slice.
func (c *Cache) Get(key uint64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	return c.arc.Get(key)
}

// Add stores a decompressed page.
func (c *Cache) Add(key uint64, page []byte) {
	if c == nil {
		return
	}
	c.arc.Add(key, page)
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	return c.arc.Len()
}

// Purge drops every cached page.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.arc.Purge()
}
