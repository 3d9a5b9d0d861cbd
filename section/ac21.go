package section

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/dwgkit/compress"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

const (
	ac21HeaderBlocks   = 3
	ac21PreambleSize   = 32
	ac21DataEncodingRS = 4
	ac21DataBlockSize  = format.ReedSolomonPage
	ac21SystemDataSize = format.ReedSolomonData
)

// AC21Metadata is the decompressed 0x110-byte block of an R2007 file header.
type AC21Metadata struct {
	HeaderSize                  uint64
	FileSize                    uint64
	PagesMapCRCCompressed       uint64
	PagesMapCorrection          uint64
	PagesMapCRCSeed             uint64
	PagesMap2Offset             uint64
	PagesMap2ID                 uint64
	PagesMapOffset              uint64
	PagesMapID                  uint64
	Header2Offset               uint64
	PagesMapSizeCompressed      uint64
	PagesMapSizeUncompressed    uint64
	PagesAmount                 uint64
	PagesMaxID                  uint64
	Unknown0x20                 uint64
	Unknown0x40                 uint64
	PagesMapCRCUncompressed     uint64
	Unknown0xF800               uint64
	Unknown4                    uint64
	Unknown1                    uint64
	SectionsAmount              uint64
	SectionsMapCRCUncompressed  uint64
	SectionsMapSizeCompressed   uint64
	SectionsMap2ID              uint64
	SectionsMapID               uint64
	SectionsMapSizeUncompressed uint64
	SectionsMapCRCCompressed    uint64
	SectionsMapCorrection       uint64
	SectionsMapCRCSeed          uint64
	StreamVersion               uint64
	CRCSeed                     uint64
	CRCSeedEncoded              uint64
	RandomSeed                  uint64
	HeaderCRC                   uint64
}

// Fields returns pointers to every field in storage order.
func (m *AC21Metadata) Fields() []*uint64 {
	return []*uint64{
		&m.HeaderSize, &m.FileSize, &m.PagesMapCRCCompressed, &m.PagesMapCorrection,
		&m.PagesMapCRCSeed, &m.PagesMap2Offset, &m.PagesMap2ID, &m.PagesMapOffset,
		&m.PagesMapID, &m.Header2Offset, &m.PagesMapSizeCompressed, &m.PagesMapSizeUncompressed,
		&m.PagesAmount, &m.PagesMaxID, &m.Unknown0x20, &m.Unknown0x40,
		&m.PagesMapCRCUncompressed, &m.Unknown0xF800, &m.Unknown4, &m.Unknown1,
		&m.SectionsAmount, &m.SectionsMapCRCUncompressed, &m.SectionsMapSizeCompressed,
		&m.SectionsMap2ID, &m.SectionsMapID, &m.SectionsMapSizeUncompressed,
		&m.SectionsMapCRCCompressed, &m.SectionsMapCorrection, &m.SectionsMapCRCSeed,
		&m.StreamVersion, &m.CRCSeed, &m.CRCSeedEncoded, &m.RandomSeed, &m.HeaderCRC,
	}
}

// AC21Header is the file header of R2007 files.
type AC21Header struct {
	FileInfo
	Metadata AC21Metadata
}

// ParseAC21Header decodes the Reed-Solomon protected header at 0x80.
// The metadata is compressed with the AC21 codec unless its stored length is not positive.
func ParseAC21Header(data []byte) (AC21Header, error) {
	end := format.AC21HeaderOffset + ac21HeaderBlocks*format.ReedSolomonBlock
	if len(data) < end {
		return AC21Header{}, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFileHeader, len(data))
	}

	version, ok := format.ParseVersion(string(data[:format.VersionTagSize]))
	if !ok || version.Generation() != format.GenerationAC21 {
		return AC21Header{}, fmt.Errorf("%w: %q", errs.ErrUnsupportedVersion, data[:format.VersionTagSize])
	}

	block, err := Deinterleave(data[format.AC21HeaderOffset:end], ac21HeaderBlocks, format.ReedSolomonData)
	if err != nil {
		return AC21Header{}, err
	}

	engine := endian.GetLittleEndianEngine()
	comprLen := int32(engine.Uint32(block[24:]))
	payload := block[ac21PreambleSize:]

	var meta []byte
	if comprLen > 0 {
		if int(comprLen) > len(payload) {
			return AC21Header{}, fmt.Errorf("%w: metadata length %d", errs.ErrInvalidFileHeader, comprLen)
		}
		meta, err = compress.NewAC21Compressor().DecompressSize(payload[:comprLen], format.AC21MetadataSize)
		if err != nil {
			return AC21Header{}, fmt.Errorf("%w: metadata: %w", errs.ErrInvalidFileHeader, err)
		}
	} else {
		meta = payload
	}
	if len(meta) < format.AC21MetadataSize {
		return AC21Header{}, fmt.Errorf("%w: metadata is %d bytes", errs.ErrInvalidFileHeader, len(meta))
	}

	h := AC21Header{FileInfo: parseFileInfo(data, version)}
	c := &cursor{buf: meta}
	for _, f := range h.Metadata.Fields() {
		*f = c.u64()
	}

	return h, c.err
}

// readAC21SystemPage reads a Reed-Solomon encoded page map or section map page.
func readAC21SystemPage(data []byte, address int64, compSize, size, repeat uint64) ([]byte, error) {
	blocks := rsBlockCount(compSize, repeat, ac21SystemDataSize)

	raw, err := slicePage(data, address, rsPageSize(blocks))
	if err != nil {
		return nil, err
	}
	decoded, err := Deinterleave(raw, blocks, ac21SystemDataSize)
	if err != nil {
		return nil, err
	}

	return ac21Body(decoded, compSize, size)
}

// ac21Body decompresses body when it is smaller than size, otherwise returns it as stored.
func ac21Body(body []byte, compSize, size uint64) ([]byte, error) {
	if compSize > uint64(len(body)) {
		return nil, fmt.Errorf("%w: body needs %d bytes, have %d", errs.ErrTruncatedPage, compSize, len(body))
	}
	if compSize < size {
		return compress.NewAC21Compressor().DecompressSize(body[:compSize], int(size))
	}
	if size > uint64(len(body)) {
		return nil, fmt.Errorf("%w: body needs %d bytes, have %d", errs.ErrTruncatedPage, size, len(body))
	}

	return body[:size], nil
}

// ParseAC21PageMap decodes (size, id) pairs. Addresses start at the pages base.
func ParseAC21PageMap(data []byte) ([]PageEntry, error) {
	c := &cursor{buf: data}
	address := int64(format.AC21PagesBase)

	var entries []PageEntry
	for c.remaining() >= 16 {
		size := c.u64()
		id := int64(c.u64())
		entries = append(entries, PageEntry{Number: int32(id), Address: address, Size: size})
		address += int64(size)
	}

	return entries, c.err
}

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ParseAC21SectionMap decodes the R2007 section map.
func ParseAC21SectionMap(data []byte) ([]*Descriptor, error) {
	c := &cursor{buf: data}

	var descs []*Descriptor
	for c.remaining() >= 8*8 {
		d := &Descriptor{
			Size:        c.u64(),
			PageSize:    c.u64(),
			Encryption:  format.EncryptionType(c.u64()),
			Hash:        c.u64(),
			Compression: format.SectionCompressed,
		}
		nameLen := c.u64()
		c.u64()
		d.Encoding = c.u64()
		pageCount := c.u64()
		if c.err != nil {
			return nil, c.err
		}
		if nameLen > uint64(c.remaining()) {
			return nil, fmt.Errorf("%w: name length %d", errs.ErrInvalidSectionMap, nameLen)
		}

		if nameLen > 0 {
			name, err := utf16Decoder.NewDecoder().Bytes(c.bytes(int(nameLen)))
			if err != nil {
				return nil, fmt.Errorf("%w: section name: %w", errs.ErrInvalidSectionMap, err)
			}
			d.Name = cString(name)
		}
		if pageCount*7*8 > uint64(c.remaining()) {
			return nil, fmt.Errorf("%w: %s declares %d pages", errs.ErrInvalidSectionMap, d.Name, pageCount)
		}

		d.Pages = make([]LocalPage, pageCount)
		for i := range d.Pages {
			p := &d.Pages[i]
			p.Offset = c.u64()
			c.u64()
			p.Number = int32(c.u64())
			p.Size = c.u64()
			p.CompressedSize = c.u64()
			p.Checksum = c.u64()
			p.CRC = c.u64()
		}
		if c.err != nil {
			return nil, c.err
		}

		descs = append(descs, d)
	}

	return descs, nil
}

// readAC21DataPage reads one data page of d. Reed-Solomon encoded pages are de-interleaved
// in 251-byte data blocks.
func readAC21DataPage(data []byte, entry PageEntry, d *Descriptor, p LocalPage) ([]byte, error) {
	if d.Encoding != ac21DataEncodingRS {
		raw, err := slicePage(data, entry.Address, int(p.CompressedSize))
		if err != nil {
			return nil, err
		}

		return ac21Body(raw, p.CompressedSize, p.Size)
	}

	blocks := rsBlockCount(p.CompressedSize, 1, ac21DataBlockSize)
	raw, err := slicePage(data, entry.Address, rsPageSize(blocks))
	if err != nil {
		return nil, err
	}
	decoded, err := Deinterleave(raw, blocks, ac21DataBlockSize)
	if err != nil {
		return nil, err
	}

	return ac21Body(decoded, p.CompressedSize, p.Size)
}

// slicePage returns up to size bytes at address. A page may be cut short by the end of the
// file as long as it starts inside it.
func slicePage(data []byte, address int64, size int) ([]byte, error) {
	if address < 0 || address >= int64(len(data)) || size < 0 {
		return nil, fmt.Errorf("%w: page at 0x%X", errs.ErrTruncatedPage, address)
	}
	end := min(address+int64(size), int64(len(data)))

	return data[address:end], nil
}
