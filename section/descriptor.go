package section

import (
	"fmt"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

// PageEntry is one record of the page directory: where a physical page lives in the file.
type PageEntry struct {
	Number  int32  // page number; negative numbers are gaps
	Address int64  // absolute file offset
	Size    uint64 // on-disk size including the page header and padding
}

// IsGap reports whether the entry describes unused space rather than a page.
func (e PageEntry) IsGap() bool {
	return e.Number < 0
}

// PageDirectory maps page numbers to their physical location.
type PageDirectory map[int32]PageEntry

// Lookup returns the entry for a page number.
func (d PageDirectory) Lookup(number int32) (PageEntry, error) {
	e, ok := d[number]
	if !ok || e.IsGap() {
		return PageEntry{}, fmt.Errorf("%w: page %d", errs.ErrPageNotFound, number)
	}

	return e, nil
}

// LocalPage is one page of a logical section stream.
type LocalPage struct {
	Number         int32  // page directory number, zero for synthetic pages
	CompressedSize uint64 // stored body size
	Offset         uint64 // start within the decompressed section stream
	Size           uint64 // decompressed size
	Address        int64  // absolute file offset, filled once the directory is known
	Missing        bool   // synthetic all-zero page with nothing on disk

	Checksum uint64 // AC21 only
	CRC      uint64 // AC21 only
}

// Descriptor describes one named section and its pages.
type Descriptor struct {
	Name        string
	Size        uint64 // declared decompressed size of the whole stream
	PageSize    uint64 // maximum decompressed size of one page
	Compression int32  // format.SectionStored or format.SectionCompressed
	Encryption  format.EncryptionType
	ID          int32
	Pages       []LocalPage

	// AC21 descriptor fields.
	Hash     uint64
	Encoding uint64
}

// Compressed reports whether the section's pages carry LZ77 bodies.
func (d *Descriptor) Compressed() bool {
	return d.Compression == format.SectionCompressed
}

// StoredPages returns the number of pages that exist on disk.
func (d *Descriptor) StoredPages() int {
	n := 0
	for _, p := range d.Pages {
		if !p.Missing {
			n++
		}
	}

	return n
}

// Reconstruct restores the all-zero pages the writer left out.
//
// Declared pages keep their order. While a page's offset is beyond the running total of
// decompressed bytes, synthetic zero pages of at most PageSize bytes are inserted in front of
// it; after the last declared page, zero pages are appended until the total reaches Size.
// When Size is not a multiple of PageSize, the last page is cut to the remainder.
// Declared pages without a decompressed size are assumed to be full pages.
//
// Returns:
//   - error: errs.ErrInvalidSectionMap when pages overlap, errs.ErrInvalidSectionSize when the
//     pages cannot add up to Size
func (d *Descriptor) Reconstruct() error {
	pageSize := d.PageSize
	if pageSize == 0 {
		pageSize = format.DefaultPageSize
		d.PageSize = pageSize
	}

	pages := make([]LocalPage, 0, len(d.Pages)+1)
	var total uint64

	fill := func(limit uint64) {
		for total < limit {
			n := min(pageSize, limit-total)
			pages = append(pages, LocalPage{Offset: total, Size: n, Missing: true})
			total += n
		}
	}

	for _, p := range d.Pages {
		if p.Offset < total {
			return fmt.Errorf("%w: %s page %d starts at 0x%X inside previous data ending at 0x%X",
				errs.ErrInvalidSectionMap, d.Name, p.Number, p.Offset, total)
		}
		fill(p.Offset)

		if p.Size == 0 {
			p.Size = pageSize
		}
		pages = append(pages, p)
		total += p.Size
	}
	fill(d.Size)

	// The remainder comes from the declared decompressed Size, not from the stored page sizes.
	if rem := d.Size % pageSize; rem != 0 && len(pages) > 0 {
		last := &pages[len(pages)-1]
		total = total - last.Size + rem
		last.Size = rem
	}

	if total != d.Size {
		return fmt.Errorf("%w: %s pages cover 0x%X bytes, declared 0x%X",
			errs.ErrInvalidSectionSize, d.Name, total, d.Size)
	}

	d.Pages = pages

	return nil
}
