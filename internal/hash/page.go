// Package hash fingerprints raw pages for the decompressed-page cache.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Page returns a content key for a raw on-disk page.
// The decompressed size takes part in the key so the same bytes decoded to a different
// length never share an entry.
func Page(raw []byte, decompressedSize uint64) uint64 {
	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], decompressedSize)

	d := xxhash.New()
	_, _ = d.Write(size[:])
	_, _ = d.Write(raw)

	return d.Sum64()
}
