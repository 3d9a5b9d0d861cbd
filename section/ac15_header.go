package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

const (
	ac15LocatorOffset = 0x19
	ac15LocatorSize   = 9
)

// Locator points at one section of an AC15 file.
type Locator struct {
	Number  uint8
	Address int32
	Size    int32
}

// AC15Header is the file header of R13 to R2000 files: fixed fields followed by the
// section locator records, a CRC and the file header end sentinel.
// Only the FileInfo fields up to CodePage exist in this variant.
type AC15Header struct {
	FileInfo

	Locators []Locator
	CRC      uint16
}

// AC15HeaderSize returns the encoded size of a header with n locator records.
func AC15HeaderSize(n int) int {
	return ac15LocatorOffset + n*ac15LocatorSize + 2 + format.SentinelSize
}

// ac15CRCMask returns the value the header CRC is XORed with for a locator count.
func ac15CRCMask(n int) uint16 {
	switch n {
	case 3:
		return 0xA598
	case 4:
		return 0x8101
	case 5:
		return 0x3CC4
	case 6:
		return 0x8461
	default:
		return 0
	}
}

// Locator returns the record with the given number.
func (h *AC15Header) Locator(number uint8) (Locator, bool) {
	for _, l := range h.Locators {
		if l.Number == number {
			return l, true
		}
	}

	return Locator{}, false
}

// ParseAC15Header parses the header at the start of data.
//
// Returns:
//   - AC15Header: parsed header
//   - bool: whether the stored CRC matches
//   - error: errs.ErrInvalidFileHeader on truncated data or a bad end sentinel
func ParseAC15Header(data []byte) (AC15Header, bool, error) {
	if len(data) < ac15LocatorOffset+4 {
		return AC15Header{}, false, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFileHeader, len(data))
	}

	version, ok := format.ParseVersion(string(data[:format.VersionTagSize]))
	if !ok || version.Generation() != format.GenerationAC15 {
		return AC15Header{}, false, fmt.Errorf("%w: %q", errs.ErrUnsupportedVersion, data[:format.VersionTagSize])
	}

	engine := endian.GetLittleEndianEngine()
	h := AC15Header{FileInfo: FileInfo{
		Version:        version,
		Maintenance:    data[0x0B],
		PreviewAddress: int32(engine.Uint32(data[0x0D:])),
		AppVersion:     data[0x11],
		AppMaintenance: data[0x12],
		CodePage:       engine.Uint16(data[0x13:]),
	}}

	count := int(engine.Uint32(data[0x15:]))
	if count > 0xFF || len(data) < AC15HeaderSize(count) {
		return AC15Header{}, false, fmt.Errorf("%w: %d locator records", errs.ErrInvalidFileHeader, count)
	}

	h.Locators = make([]Locator, count)
	for i := range h.Locators {
		rec := data[ac15LocatorOffset+i*ac15LocatorSize:]
		h.Locators[i] = Locator{
			Number:  rec[0],
			Address: int32(engine.Uint32(rec[1:])),
			Size:    int32(engine.Uint32(rec[5:])),
		}
	}

	crcPos := ac15LocatorOffset + count*ac15LocatorSize
	h.CRC = engine.Uint16(data[crcPos:])
	crcOK := h.CRC == CRC16(CRC16Seed, data[:crcPos])^ac15CRCMask(count)

	if !bytes.Equal(data[crcPos+2:crcPos+2+format.SentinelSize], format.FileHeaderEndSentinel[:]) {
		return h, crcOK, fmt.Errorf("%w: file header end", errs.ErrInvalidSentinel)
	}

	return h, crcOK, nil
}

// Bytes serializes the header and computes its CRC.
func (h *AC15Header) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()

	b := make([]byte, ac15LocatorOffset, AC15HeaderSize(len(h.Locators)))
	copy(b, h.Version.Tag())
	b[0x0B] = h.Maintenance
	b[0x0C] = 0x01
	engine.PutUint32(b[0x0D:], uint32(h.PreviewAddress))
	b[0x11] = h.AppVersion
	b[0x12] = h.AppMaintenance
	engine.PutUint16(b[0x13:], h.CodePage)
	engine.PutUint32(b[0x15:], uint32(len(h.Locators)))

	for _, l := range h.Locators {
		b = append(b, l.Number)
		b = engine.AppendUint32(b, uint32(l.Address))
		b = engine.AppendUint32(b, uint32(l.Size))
	}

	h.CRC = CRC16(CRC16Seed, b) ^ ac15CRCMask(len(h.Locators))
	b = engine.AppendUint16(b, h.CRC)

	return append(b, format.FileHeaderEndSentinel[:]...)
}
