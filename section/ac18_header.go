package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

const (
	ac18MetadataOffset = 0x80
	ac18FileIDString   = "AcFssFcAJMB\x00"
	ac18CRCOffset      = 0x68
)

// FileInfo holds the fixed fields every file header variant starts with.
type FileInfo struct {
	Version            format.Version
	Maintenance        uint8
	PreviewAddress     int32
	AppVersion         uint8
	AppMaintenance     uint8
	CodePage           uint16
	SecurityType       int32
	SummaryInfoAddress int32
	VBAProjectAddress  int32
	AppInfoAddress     int32
}

// AC18Header is the 0x100-byte file header of R2004-class files. The fields after FileInfo
// live in the masked 0x6C-byte metadata block at 0x80.
type AC18Header struct {
	FileInfo

	RootTreeNodeGap     int32
	LeftGap             int32
	RightGap            int32
	LastPageID          int32
	LastPageEndAddress  uint64
	SecondHeaderAddress uint64
	GapAmount           uint32
	PageAmount          uint32
	PageMapID           uint32
	PageMapAddress      uint64 // relative to FileHeaderSize
	SectionMapID        uint32
	PageArraySize       uint32
	GapArraySize        uint32
	CRC                 uint32
}

// ParseAC18Header parses and unmasks the file header at the start of data.
//
// Returns:
//   - AC18Header: parsed header
//   - bool: whether the metadata CRC matches
//   - error: errs.ErrUnsupportedVersion or errs.ErrInvalidFileHeader
func ParseAC18Header(data []byte) (AC18Header, bool, error) {
	if len(data) < format.FileHeaderSize {
		return AC18Header{}, false, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFileHeader, len(data))
	}

	version, ok := format.ParseVersion(string(data[:format.VersionTagSize]))
	if !ok || version.Generation() != format.GenerationAC18 {
		return AC18Header{}, false, fmt.Errorf("%w: %q", errs.ErrUnsupportedVersion, data[:format.VersionTagSize])
	}

	engine := endian.GetLittleEndianEngine()
	h := AC18Header{FileInfo: parseFileInfo(data, version)}

	meta := make([]byte, format.EncryptedHeaderSize)
	copy(meta, data[ac18MetadataOffset:])
	xorMagic(meta)

	if !bytes.Equal(meta[:len(ac18FileIDString)], []byte(ac18FileIDString)) {
		return h, false, fmt.Errorf("%w: bad file id string", errs.ErrInvalidFileHeader)
	}

	h.RootTreeNodeGap = int32(engine.Uint32(meta[0x18:]))
	h.LeftGap = int32(engine.Uint32(meta[0x1C:]))
	h.RightGap = int32(engine.Uint32(meta[0x20:]))
	h.LastPageID = int32(engine.Uint32(meta[0x28:]))
	h.LastPageEndAddress = engine.Uint64(meta[0x2C:])
	h.SecondHeaderAddress = engine.Uint64(meta[0x34:])
	h.GapAmount = engine.Uint32(meta[0x3C:])
	h.PageAmount = engine.Uint32(meta[0x40:])
	h.PageMapID = engine.Uint32(meta[0x50:])
	h.PageMapAddress = engine.Uint64(meta[0x54:])
	h.SectionMapID = engine.Uint32(meta[0x5C:])
	h.PageArraySize = engine.Uint32(meta[0x60:])
	h.GapArraySize = engine.Uint32(meta[0x64:])
	h.CRC = engine.Uint32(meta[ac18CRCOffset:])

	engine.PutUint32(meta[ac18CRCOffset:], 0)

	return h, CRC32(meta) == h.CRC, nil
}

// parseFileInfo reads the fixed fields shared by the AC18 and AC21 headers.
func parseFileInfo(data []byte, version format.Version) FileInfo {
	engine := endian.GetLittleEndianEngine()

	return FileInfo{
		Version:            version,
		Maintenance:        data[0x0B],
		PreviewAddress:     int32(engine.Uint32(data[0x0D:])),
		AppVersion:         data[0x11],
		AppMaintenance:     data[0x12],
		CodePage:           engine.Uint16(data[0x13:]),
		SecurityType:       int32(engine.Uint32(data[0x18:])),
		SummaryInfoAddress: int32(engine.Uint32(data[0x20:])),
		VBAProjectAddress:  int32(engine.Uint32(data[0x24:])),
		AppInfoAddress:     int32(engine.Uint32(data[0x2C:])),
	}
}

func (h *FileInfo) put(b []byte) {
	engine := endian.GetLittleEndianEngine()
	copy(b, h.Version.Tag())
	b[0x0B] = h.Maintenance
	b[0x0C] = 0x03
	engine.PutUint32(b[0x0D:], uint32(h.PreviewAddress))
	b[0x11] = h.AppVersion
	b[0x12] = h.AppMaintenance
	engine.PutUint16(b[0x13:], h.CodePage)
	engine.PutUint32(b[0x18:], uint32(h.SecurityType))
	engine.PutUint32(b[0x20:], uint32(h.SummaryInfoAddress))
	engine.PutUint32(b[0x24:], uint32(h.VBAProjectAddress))
	engine.PutUint32(b[0x28:], ac18MetadataOffset)
	engine.PutUint32(b[0x2C:], uint32(h.AppInfoAddress))
}

// Bytes serializes the header into FileHeaderSize bytes, computing the metadata CRC and
// masking the metadata block.
func (h *AC18Header) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()

	b := make([]byte, format.FileHeaderSize)
	h.FileInfo.put(b)

	meta := b[ac18MetadataOffset : ac18MetadataOffset+format.EncryptedHeaderSize]
	copy(meta, ac18FileIDString)
	engine.PutUint32(meta[0x10:], format.EncryptedHeaderSize)
	engine.PutUint32(meta[0x14:], 0x04)
	engine.PutUint32(meta[0x18:], uint32(h.RootTreeNodeGap))
	engine.PutUint32(meta[0x1C:], uint32(h.LeftGap))
	engine.PutUint32(meta[0x20:], uint32(h.RightGap))
	engine.PutUint32(meta[0x24:], 0x01)
	engine.PutUint32(meta[0x28:], uint32(h.LastPageID))
	engine.PutUint64(meta[0x2C:], h.LastPageEndAddress)
	engine.PutUint64(meta[0x34:], h.SecondHeaderAddress)
	engine.PutUint32(meta[0x3C:], h.GapAmount)
	engine.PutUint32(meta[0x40:], h.PageAmount)
	engine.PutUint32(meta[0x44:], 0x20)
	engine.PutUint32(meta[0x48:], 0x80)
	engine.PutUint32(meta[0x4C:], 0x40)
	engine.PutUint32(meta[0x50:], h.PageMapID)
	engine.PutUint64(meta[0x54:], h.PageMapAddress)
	engine.PutUint32(meta[0x5C:], h.SectionMapID)
	engine.PutUint32(meta[0x60:], h.PageArraySize)
	engine.PutUint32(meta[0x64:], h.GapArraySize)

	h.CRC = CRC32(meta)
	engine.PutUint32(meta[ac18CRCOffset:], h.CRC)
	xorMagic(meta)

	tail := b[ac18MetadataOffset+format.EncryptedHeaderSize:]
	copy(tail, magicSequence[format.EncryptedHeaderSize:])

	return b
}

// SystemPageHeader precedes the page map and section map pages. It is not masked.
type SystemPageHeader struct {
	Type             uint32
	DecompressedSize uint32
	CompressedSize   uint32
	Compression      uint32
	Checksum         uint32
}

// ParseSystemPageHeader reads a system page header and checks its page type.
func ParseSystemPageHeader(data []byte, want uint32) (SystemPageHeader, error) {
	if len(data) < format.SystemPageHeaderSize {
		return SystemPageHeader{}, fmt.Errorf("%w: system page header", errs.ErrTruncatedPage)
	}

	engine := endian.GetLittleEndianEngine()
	h := SystemPageHeader{
		Type:             engine.Uint32(data[0:]),
		DecompressedSize: engine.Uint32(data[4:]),
		CompressedSize:   engine.Uint32(data[8:]),
		Compression:      engine.Uint32(data[12:]),
		Checksum:         engine.Uint32(data[16:]),
	}
	if h.Type != want {
		return h, fmt.Errorf("%w: 0x%08X, want 0x%08X", errs.ErrInvalidPageType, h.Type, want)
	}

	return h, nil
}

// Bytes serializes the header.
func (h SystemPageHeader) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()
	b := make([]byte, 0, format.SystemPageHeaderSize)
	b = engine.AppendUint32(b, h.Type)
	b = engine.AppendUint32(b, h.DecompressedSize)
	b = engine.AppendUint32(b, h.CompressedSize)
	b = engine.AppendUint32(b, h.Compression)

	return engine.AppendUint32(b, h.Checksum)
}

// ComputeChecksum returns the checksum of the header (with a zero checksum field) followed
// by the page body.
func (h SystemPageHeader) ComputeChecksum(body []byte) uint32 {
	h.Checksum = 0
	return Checksum(Checksum(0, h.Bytes()), body)
}

// DataPageHeader precedes every data page. On disk it is masked with the page address.
type DataPageHeader struct {
	Type           uint32
	SectionID      uint32
	DataSize       uint32 // stored body size
	PageSize       uint32 // decompressed size
	Offset         uint64 // start within the section stream
	HeaderChecksum uint32
	DataChecksum   uint32
}

// ParseDataPageHeader unmasks and parses the header of the data page at address.
// data is not modified.
func ParseDataPageHeader(data []byte, address int64) (DataPageHeader, error) {
	if len(data) < format.DataPageHeaderSize {
		return DataPageHeader{}, fmt.Errorf("%w: data page header", errs.ErrTruncatedPage)
	}

	var raw [format.DataPageHeaderSize]byte
	copy(raw[:], data)
	Mask(raw[:], uint32(address), 0, len(raw))

	engine := endian.GetLittleEndianEngine()
	h := DataPageHeader{
		Type:           engine.Uint32(raw[0:]),
		SectionID:      engine.Uint32(raw[4:]),
		DataSize:       engine.Uint32(raw[8:]),
		PageSize:       engine.Uint32(raw[12:]),
		Offset:         engine.Uint64(raw[16:]),
		HeaderChecksum: engine.Uint32(raw[24:]),
		DataChecksum:   engine.Uint32(raw[28:]),
	}
	if h.Type != format.PageTypeData {
		return h, fmt.Errorf("%w: 0x%08X at 0x%X", errs.ErrInvalidPageType, h.Type, address)
	}

	return h, nil
}

func (h DataPageHeader) plain() []byte {
	engine := endian.GetLittleEndianEngine()
	b := make([]byte, 0, format.DataPageHeaderSize)
	b = engine.AppendUint32(b, h.Type)
	b = engine.AppendUint32(b, h.SectionID)
	b = engine.AppendUint32(b, h.DataSize)
	b = engine.AppendUint32(b, h.PageSize)
	b = engine.AppendUint64(b, h.Offset)
	b = engine.AppendUint32(b, h.HeaderChecksum)

	return engine.AppendUint32(b, h.DataChecksum)
}

// Bytes serializes and masks the header for a page at address.
func (h DataPageHeader) Bytes(address int64) []byte {
	b := h.plain()
	Mask(b, uint32(address), 0, len(b))

	return b
}

// ComputeChecksums returns the header and data checksums for body: the data checksum covers
// the body, the header checksum covers the header with both checksum fields zeroed, seeded
// with the data checksum.
func (h DataPageHeader) ComputeChecksums(body []byte) (header, data uint32) {
	data = Checksum(0, body)
	h.HeaderChecksum = 0
	h.DataChecksum = 0

	return Checksum(data, h.plain()), data
}
