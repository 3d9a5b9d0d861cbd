package document

import (
	"bytes"
	"fmt"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/section"
)

// Sentinel-framed section layout:
//
//	start sentinel | RL size | body | RS CRC over size and body | end sentinel

const framedOverhead = 2*format.SentinelSize + 4 + 2

// Class item ids.
const (
	classItemEntity uint16 = 0x1F2
	classItemObject uint16 = 0x1F3
)

// SectionConfig controls how framed sections are checked.
type SectionConfig struct {
	Version         format.Version
	CodePage        uint16
	Diagnostics     *diag.Collector
	StrictChecksums bool
}

// readFramed returns the body of a sentinel-framed section.
func readFramed(data []byte, name string, start format.Sentinel, cfg SectionConfig) ([]byte, error) {
	if len(data) < framedOverhead {
		return nil, errs.Structural(name, fmt.Errorf("%w: %d bytes", errs.ErrInvalidSectionSize, len(data)))
	}
	if !bytes.Equal(data[:format.SentinelSize], start[:]) {
		return nil, errs.Structural(name, fmt.Errorf("%w: start", errs.ErrInvalidSentinel))
	}

	engine := endian.GetLittleEndianEngine()
	sizeAt := format.SentinelSize
	size := uint64(engine.Uint32(data[sizeAt:]))
	bodyAt := uint64(sizeAt + 4)
	if size > uint64(len(data))-bodyAt-2-format.SentinelSize {
		return nil, errs.Structural(name, fmt.Errorf("%w: body of %d bytes in %d", errs.ErrInvalidSectionSize, size, len(data)))
	}
	body := data[bodyAt : bodyAt+size]

	crcAt := bodyAt + size
	stored := engine.Uint16(data[crcAt:])
	if crc := section.CRC16(section.CRC16Seed, data[sizeAt:crcAt]); crc != stored {
		err := fmt.Errorf("%w: stored 0x%04X computed 0x%04X", errs.ErrCRCMismatch, stored, crc)
		if cfg.StrictChecksums {
			return nil, errs.Structural(name, err)
		}
		cfg.Diagnostics.Warn(diag.KindIntegrity, name, 0, err, "section crc")
	}

	end := start.Complement()
	if !bytes.Equal(data[crcAt+2:crcAt+2+format.SentinelSize], end[:]) {
		return nil, errs.Structural(name, fmt.Errorf("%w: end", errs.ErrInvalidSentinel))
	}

	return body, nil
}

// appendFramed appends body framed by start and its complement.
func appendFramed(dst []byte, start format.Sentinel, body []byte) []byte {
	engine := endian.GetLittleEndianEngine()
	dst = append(dst, start[:]...)
	sizeAt := len(dst)
	dst = engine.AppendUint32(dst, uint32(len(body)))
	dst = append(dst, body...)
	dst = engine.AppendUint16(dst, section.CRC16(section.CRC16Seed, dst[sizeAt:]))
	end := start.Complement()

	return append(dst, end[:]...)
}

// ParseHeader returns the header variables block of an AcDb:Header section. The variables
// are kept as an opaque bitstream.
func ParseHeader(data []byte, cfg SectionConfig) ([]byte, error) {
	body, err := readFramed(data, format.SectionHeader, format.HeaderStartSentinel, cfg)
	if err != nil {
		return nil, err
	}

	return bytes.Clone(body), nil
}

// EncodeHeader frames a header variables block as an AcDb:Header section.
func EncodeHeader(vars []byte) []byte {
	return appendFramed(make([]byte, 0, len(vars)+framedOverhead), format.HeaderStartSentinel, vars)
}

// Class is one entry of the class section. Custom object types with codes from 500 are
// defined here.
type Class struct {
	Number        format.ObjectType
	ProxyFlags    uint16
	AppName       string
	CppName       string
	DXFName       string
	WasZombie     bool
	IsEntity      bool
	InstanceCount int32
	DWGVersion    int32
	Maintenance   int32
}

// ParseClasses decodes an AcDb:Classes section.
//
// From R2004 the body starts with the highest class number; earlier versions list classes
// until the body ends. From R2007 strings come from a string stream placed after the data.
func ParseClasses(data []byte, cfg SectionConfig) ([]Class, error) {
	body, err := readFramed(data, format.SectionClasses, format.ClassesStartSentinel, cfg)
	if err != nil {
		return nil, err
	}

	v := cfg.Version
	r := bitstream.NewReader(body, v)
	r.SetCodePage(bitstream.CodePageEncoding(cfg.CodePage))

	var s *bitstream.Streams
	if v.AtLeast(format.VersionR2007) {
		bits := int64(uint32(r.ReadRawLong()))
		end := r.PositionInBits() + bits
		if bits == 0 || end > int64(len(body))*8 {
			return nil, errs.Decode(format.SectionClasses, 0, fmt.Errorf("%w: %d bits", errs.ErrInvalidSectionSize, bits))
		}
		s = bitstream.SplitStreams(r, end, end)
	} else {
		s = bitstream.NewInlineStreams(r)
	}
	d := s.Data

	count := -1
	if v.AtLeast(format.VersionR2004) {
		last := int(uint16(d.ReadBitShort()))
		d.ReadRawChar()
		d.ReadRawChar()
		d.ReadBit()
		count = max(0, last-int(format.ObjectCustomClassStart)+1)
	}

	var classes []Class
	for i := 0; count < 0 && d.Remaining() >= 8 || i < count; i++ {
		c := Class{
			Number:     format.ObjectType(uint16(d.ReadBitShort())),
			ProxyFlags: uint16(d.ReadBitShort()),
			AppName:    s.ReadText(),
			CppName:    s.ReadText(),
			DXFName:    s.ReadText(),
			WasZombie:  d.ReadBit(),
			IsEntity:   uint16(d.ReadBitShort()) == classItemEntity,
		}
		if v.AtLeast(format.VersionR2004) {
			c.InstanceCount = d.ReadBitLong()
			c.DWGVersion = d.ReadBitLong()
			c.Maintenance = d.ReadBitLong()
			d.ReadBitLong()
			d.ReadBitLong()
		}
		if err := s.Err(); err != nil {
			return nil, errs.Decode(format.SectionClasses, d.Position(), fmt.Errorf("class %d: %w", i, err))
		}
		classes = append(classes, c)
	}

	return classes, nil
}

// EncodeClasses encodes classes as an AcDb:Classes section.
func EncodeClasses(classes []Class, cfg SectionConfig) ([]byte, error) {
	v := cfg.Version
	w := bitstream.NewStreamsWriter(v)
	w.SetCodePage(cfg.CodePage)
	d := w.Data

	if v.AtLeast(format.VersionR2004) {
		last := int(format.ObjectCustomClassStart) - 1
		for _, c := range classes {
			last = max(last, int(c.Number))
		}
		d.WriteBitShort(int16(uint16(last)))
		d.WriteRawChar(0)
		d.WriteRawChar(0)
		d.WriteBit(true)
	}
	for _, c := range classes {
		d.WriteBitShort(int16(c.Number))
		d.WriteBitShort(int16(c.ProxyFlags))
		w.WriteText(c.AppName)
		w.WriteText(c.CppName)
		w.WriteText(c.DXFName)
		d.WriteBit(c.WasZombie)
		item := classItemObject
		if c.IsEntity {
			item = classItemEntity
		}
		d.WriteBitShort(int16(item))
		if v.AtLeast(format.VersionR2004) {
			d.WriteBitLong(c.InstanceCount)
			d.WriteBitLong(c.DWGVersion)
			d.WriteBitLong(c.Maintenance)
			d.WriteBitLong(0)
			d.WriteBitLong(0)
		}
	}

	body, err := w.Body()
	if err != nil {
		return nil, errs.Decode(format.SectionClasses, 0, err)
	}

	out := bitstream.NewWriter(v)
	if v.AtLeast(format.VersionR2007) {
		out.WriteRawLong(int32(body.PositionInBits()))
	}
	out.WriteBitsFrom(body)
	if err := out.Err(); err != nil {
		return nil, err
	}

	return appendFramed(nil, format.ClassesStartSentinel, out.Bytes()), nil
}
