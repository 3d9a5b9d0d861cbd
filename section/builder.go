package section

import (
	"errors"
	"fmt"
	"sort"

	"github.com/arloliu/dwgkit/compress"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/internal/pool"
)

// Stream is one named section handed to a builder.
type Stream struct {
	Name       string
	Data       []byte
	Compressed bool
	PageSize   uint64 // zero means format.DefaultPageSize
}

// AC18Builder lays out named streams as masked data pages followed by the section map and
// page map, and writes the R2004-class file header.
type AC18Builder struct {
	info    FileInfo
	streams []Stream
	codec   compress.Codec
}

// NewAC18Builder creates a builder for info.Version, which must be an AC18 generation version.
func NewAC18Builder(info FileInfo) (*AC18Builder, error) {
	if info.Version.Generation() != format.GenerationAC18 {
		return nil, fmt.Errorf("%w: %s", errs.ErrVersionNotWritable, info.Version)
	}

	return &AC18Builder{info: info, codec: compress.NewAC18Compressor()}, nil
}

// Add appends a stream. Section ids follow the order of Add calls, starting at 1.
func (b *AC18Builder) Add(s Stream) {
	b.streams = append(b.streams, s)
}

// Build produces the complete file.
//
// Pages that are entirely zero are not written; readers restore them from the section map.
//
// Returns:
//   - []byte: the file bytes
//   - error: compression failures
func (b *AC18Builder) Build() ([]byte, error) {
	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)

	buf.ExtendOrGrow(format.FileHeaderSize)

	var entries []PageEntry
	next := int32(1)
	descs := make([]*Descriptor, 0, len(b.streams))

	for i, s := range b.streams {
		d := &Descriptor{
			Name:        s.Name,
			Size:        uint64(len(s.Data)),
			PageSize:    s.PageSize,
			Compression: format.SectionStored,
			ID:          int32(i + 1),
		}
		if d.PageSize == 0 {
			d.PageSize = format.DefaultPageSize
		}
		if s.Compressed {
			d.Compression = format.SectionCompressed
		}

		for off := uint64(0); off < d.Size; off += d.PageSize {
			chunk := s.Data[off:min(off+d.PageSize, d.Size)]
			if allZero(chunk) {
				continue
			}

			body, size, err := b.pageBody(chunk, s.Compressed)
			if err != nil {
				return nil, fmt.Errorf("%s page at 0x%X: %w", s.Name, off, err)
			}

			address := int64(buf.Len())
			h := DataPageHeader{
				Type:      format.PageTypeData,
				SectionID: uint32(d.ID),
				DataSize:  uint32(len(body)),
				PageSize:  uint32(size),
				Offset:    off,
			}
			h.HeaderChecksum, h.DataChecksum = h.ComputeChecksums(body)

			buf.MustWrite(h.Bytes(address))
			buf.MustWrite(body)
			buf.PadTo(format.PageAlignment)

			entries = append(entries, PageEntry{Number: next, Address: address, Size: uint64(int64(buf.Len()) - address)})
			d.Pages = append(d.Pages, LocalPage{
				Number:         next,
				CompressedSize: uint64(len(body)),
				Offset:         off,
				Size:           uint64(len(chunk)),
				Address:        address,
			})
			next++
		}
		descs = append(descs, d)
	}

	sectionMapID := next
	next++
	sectionMapAddress := int64(buf.Len())
	page, err := b.systemPage(format.PageTypeSectionMap, EncodeSectionMap(descs))
	if err != nil {
		return nil, fmt.Errorf("section map: %w", err)
	}
	buf.MustWrite(page)
	entries = append(entries, PageEntry{Number: sectionMapID, Address: sectionMapAddress, Size: uint64(len(page))})

	pageMapID := next
	pageMapAddress := int64(buf.Len())
	page, err = b.pageMapPage(entries, pageMapID, pageMapAddress)
	if err != nil {
		return nil, fmt.Errorf("page map: %w", err)
	}
	buf.MustWrite(page)

	h := AC18Header{
		FileInfo:            b.info,
		LastPageID:          pageMapID,
		LastPageEndAddress:  uint64(buf.Len()),
		SecondHeaderAddress: uint64(buf.Len()),
		PageAmount:          uint32(pageMapID),
		PageMapID:           uint32(pageMapID),
		PageMapAddress:      uint64(pageMapAddress - format.FileHeaderSize),
		SectionMapID:        uint32(sectionMapID),
		PageArraySize:       uint32(pageMapID),
	}
	header := h.Bytes()
	copy(buf.B, header)
	buf.MustWrite(header)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}

// pageBody compresses chunk when requested. The AC18 codec cannot start a stream with fewer
// than four literals, so shorter chunks are zero-padded; the page then declares the padded
// size and readers clip it to the section size.
func (b *AC18Builder) pageBody(chunk []byte, compressed bool) ([]byte, int, error) {
	if !compressed {
		return chunk, len(chunk), nil
	}

	body, err := b.codec.Compress(chunk)
	if errors.Is(err, errs.ErrShortInput) {
		padded := make([]byte, 4)
		copy(padded, chunk)
		body, err = b.codec.Compress(padded)

		return body, len(padded), err
	}

	return body, len(chunk), err
}

func (b *AC18Builder) systemPage(pageType uint32, data []byte) ([]byte, error) {
	body, err := b.codec.Compress(data)
	if err != nil {
		return nil, err
	}

	h := SystemPageHeader{
		Type:             pageType,
		DecompressedSize: uint32(len(data)),
		CompressedSize:   uint32(len(body)),
		Compression:      uint32(format.SectionCompressed),
	}
	h.Checksum = h.ComputeChecksum(body)

	page := pool.NewByteBuffer(format.SystemPageHeaderSize + len(body) + format.PageAlignment)
	page.MustWrite(h.Bytes())
	page.MustWrite(body)
	page.PadTo(format.PageAlignment)

	return page.Bytes(), nil
}

// pageMapPage encodes the page map, which lists itself. Its own size depends on the encoded
// content, so encoding repeats until the size is stable.
func (b *AC18Builder) pageMapPage(entries []PageEntry, id int32, address int64) ([]byte, error) {
	var size uint64
	for range 8 {
		all := append(entries[:len(entries):len(entries)], PageEntry{Number: id, Address: address, Size: size})
		page, err := b.systemPage(format.PageTypePageMap, EncodePageMap(all))
		if err != nil {
			return nil, err
		}
		if uint64(len(page)) == size {
			return page, nil
		}
		size = uint64(len(page))
	}

	return nil, fmt.Errorf("%w: page map size did not settle", errs.ErrInvalidSectionSize)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}

	return true
}

// AC15Part is one block of an AC15 file. Parts without a locator are written in place but
// not listed in the file header; the object stream is such a part.
type AC15Part struct {
	Locator int // format.Locator* number, or -1
	Data    []byte
}

// AC15Layout returns the address each part will be written at by BuildAC15.
func AC15Layout(parts []AC15Part) []int64 {
	locators := 0
	for _, p := range parts {
		if p.Locator >= 0 {
			locators++
		}
	}

	addrs := make([]int64, len(parts))
	addr := int64(AC15HeaderSize(locators))
	for i, p := range parts {
		addrs[i] = addr
		addr += int64(len(p.Data))
	}

	return addrs
}

// BuildAC15 writes an R13 to R2000 file: the header with one locator per located part, then
// every part in order.
func BuildAC15(info FileInfo, parts []AC15Part) ([]byte, error) {
	if info.Version.Generation() != format.GenerationAC15 {
		return nil, fmt.Errorf("%w: %s", errs.ErrVersionNotWritable, info.Version)
	}

	addrs := AC15Layout(parts)
	h := AC15Header{FileInfo: info}
	for i, p := range parts {
		if p.Locator < 0 {
			continue
		}
		h.Locators = append(h.Locators, Locator{
			Number:  uint8(p.Locator),
			Address: int32(addrs[i]),
			Size:    int32(len(p.Data)),
		})
	}
	sort.Slice(h.Locators, func(i, j int) bool { return h.Locators[i].Number < h.Locators[j].Number })

	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)

	buf.MustWrite(h.Bytes())
	for _, p := range parts {
		buf.MustWrite(p.Data)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}
