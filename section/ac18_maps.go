package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

const (
	sectionNameSize       = 64
	sectionMapHeaderCount = 5
	gapRecordLongs        = 4
)

// cursor reads little-endian fields from a decoded map with bounds checks.
// The first failure sticks; later reads return zero.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) u32() uint32 {
	if c.err != nil {
		return 0
	}
	v, ok := endian.Uint32At(endian.GetLittleEndianEngine(), c.buf, c.pos)
	if !ok {
		c.err = fmt.Errorf("%w: field at 0x%X", errs.ErrInvalidSectionMap, c.pos)
		return 0
	}
	c.pos += 4

	return v
}

func (c *cursor) u64() uint64 {
	if c.err != nil {
		return 0
	}
	v, ok := endian.Uint64At(endian.GetLittleEndianEngine(), c.buf, c.pos)
	if !ok {
		c.err = fmt.Errorf("%w: field at 0x%X", errs.ErrInvalidSectionMap, c.pos)
		return 0
	}
	c.pos += 8

	return v
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.buf) {
		c.err = fmt.Errorf("%w: %d bytes at 0x%X", errs.ErrInvalidSectionMap, n, c.pos)
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n

	return b
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

// ParsePageMap decodes an AC18 page map. Addresses start right after the file header and
// advance by each entry's size, gaps included.
func ParsePageMap(data []byte) ([]PageEntry, error) {
	c := &cursor{buf: data}
	address := int64(format.FileHeaderSize)

	var entries []PageEntry
	for c.remaining() >= 8 {
		e := PageEntry{
			Number:  int32(c.u32()),
			Address: address,
		}
		e.Size = uint64(c.u32())
		if e.IsGap() {
			c.bytes(gapRecordLongs * 4)
		}
		if c.err != nil {
			return nil, c.err
		}

		entries = append(entries, e)
		address += int64(e.Size)
	}

	return entries, nil
}

// NewPageDirectory indexes entries by page number, leaving out gaps.
func NewPageDirectory(entries []PageEntry) PageDirectory {
	dir := make(PageDirectory, len(entries))
	for _, e := range entries {
		if !e.IsGap() {
			dir[e.Number] = e
		}
	}

	return dir
}

// EncodePageMap is the inverse of ParsePageMap.
func EncodePageMap(entries []PageEntry) []byte {
	engine := endian.GetLittleEndianEngine()

	b := make([]byte, 0, len(entries)*8)
	for _, e := range entries {
		b = engine.AppendUint32(b, uint32(e.Number))
		b = engine.AppendUint32(b, uint32(e.Size))
		if e.IsGap() {
			b = append(b, make([]byte, gapRecordLongs*4)...)
		}
	}

	return b
}

// ParseSectionMap decodes an AC18 section map into descriptors. Pages are returned as
// declared; call Descriptor.Reconstruct to restore missing ones.
func ParseSectionMap(data []byte) ([]*Descriptor, error) {
	c := &cursor{buf: data}

	count := c.u32()
	for range sectionMapHeaderCount - 1 {
		c.u32()
	}
	if c.err != nil {
		return nil, c.err
	}
	if uint64(count)*(8+6*4+sectionNameSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d descriptors in %d bytes", errs.ErrInvalidSectionMap, count, len(data))
	}

	descs := make([]*Descriptor, 0, count)
	for range count {
		d := &Descriptor{Size: c.u64()}
		pageCount := c.u32()
		d.PageSize = uint64(c.u32())
		c.u32()
		d.Compression = int32(c.u32())
		d.ID = int32(c.u32())
		d.Encryption = format.EncryptionType(c.u32())
		d.Name = cString(c.bytes(sectionNameSize))
		if c.err != nil {
			return nil, c.err
		}
		if uint64(pageCount)*16 > uint64(c.remaining()) {
			return nil, fmt.Errorf("%w: %s declares %d pages", errs.ErrInvalidSectionMap, d.Name, pageCount)
		}

		d.Pages = make([]LocalPage, pageCount)
		for i := range d.Pages {
			d.Pages[i] = LocalPage{
				Number:         int32(c.u32()),
				CompressedSize: uint64(c.u32()),
				Offset:         c.u64(),
			}
		}
		if c.err != nil {
			return nil, c.err
		}

		descs = append(descs, d)
	}

	return descs, nil
}

// EncodeSectionMap is the inverse of ParseSectionMap. Missing pages are not written.
func EncodeSectionMap(descs []*Descriptor) []byte {
	engine := endian.GetLittleEndianEngine()

	b := make([]byte, 0, 20+len(descs)*(8+6*4+sectionNameSize))
	b = engine.AppendUint32(b, uint32(len(descs)))
	b = engine.AppendUint32(b, 0x02)
	b = engine.AppendUint32(b, format.DefaultPageSize)
	b = engine.AppendUint32(b, 0x00)
	b = engine.AppendUint32(b, uint32(len(descs)))

	for _, d := range descs {
		b = engine.AppendUint64(b, d.Size)
		b = engine.AppendUint32(b, uint32(d.StoredPages()))
		b = engine.AppendUint32(b, uint32(d.PageSize))
		b = engine.AppendUint32(b, 0x01)
		b = engine.AppendUint32(b, uint32(d.Compression))
		b = engine.AppendUint32(b, uint32(d.ID))
		b = engine.AppendUint32(b, uint32(d.Encryption))

		var name [sectionNameSize]byte
		copy(name[:sectionNameSize-1], d.Name)
		b = append(b, name[:]...)

		for _, p := range d.Pages {
			if p.Missing {
				continue
			}
			b = engine.AppendUint32(b, uint32(p.Number))
			b = engine.AppendUint32(b, uint32(p.CompressedSize))
			b = engine.AppendUint64(b, p.Offset)
		}
	}

	return b
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(b)
}
