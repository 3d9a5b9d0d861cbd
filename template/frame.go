package template

import (
	"fmt"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
	"github.com/arloliu/dwgkit/section"
)

// Record framing:
//
//	MS size | R2010+: UMC handle bits | OT type | R2000-R2007: RL handle start | data | handles | CRC
//
// size counts the bytes from the type to the end of the handle stream. The handle stream start
// is measured in bits from the type. R13 and R14 keep the RL inside the data stream, after the
// extended data of objects and after the preview graphics of entities.

const recordCRCSize = 2

// ReadConfig carries what ReadRecord needs besides the bytes.
type ReadConfig struct {
	Version         format.Version
	CodePage        uint16
	Factory         *record.Factory
	Diagnostics     *diag.Collector
	StrictChecksums bool
}

// Frame is the decoded envelope of one record.
type Frame struct {
	Type        format.ObjectType
	Offset      int64
	BodyOffset  int64
	Size        int
	HandleStart int64
	HandleBits  uint64
	Body        []byte
}

// ReadFrame decodes the record envelope at offset and positions the returned reader on the
// first data bit.
func ReadFrame(data []byte, offset int64, cfg ReadConfig) (Frame, *bitstream.Reader, error) {
	r := bitstream.NewReader(data, cfg.Version)
	r.SetCodePage(bitstream.CodePageEncoding(cfg.CodePage))
	if offset < 0 || offset >= int64(len(data)) {
		return Frame{}, nil, fmt.Errorf("%w: offset 0x%X", errs.ErrInvalidObjectSize, offset)
	}
	r.SetPosition(offset)

	f := Frame{Offset: offset, Size: int(r.ReadModularShort())}
	if cfg.Version.AtLeast(format.VersionR2010) {
		f.HandleBits = r.ReadUnsignedModularChar()
	}
	if err := r.Err(); err != nil {
		return Frame{}, nil, err
	}

	f.BodyOffset = r.Position()
	end := f.BodyOffset + int64(f.Size)
	if f.Size == 0 || end > int64(len(data)) {
		return Frame{}, nil, fmt.Errorf("%w: %d bytes at 0x%X", errs.ErrInvalidObjectSize, f.Size, offset)
	}
	f.Body = data[f.BodyOffset:end]
	r.SetLimitInBits(end * 8)

	f.Type = r.ReadObjectType()
	switch {
	case cfg.Version.AtLeast(format.VersionR2010):
		f.HandleStart = int64(f.Size)*8 - int64(f.HandleBits)
	case cfg.Version.AtLeast(format.VersionR2000):
		f.HandleStart = int64(uint32(r.ReadRawLong()))
	default:
		start, err := legacyHandleStart(r.Clone(), cfg.Factory.IsEntity(f.Type))
		if err != nil {
			return Frame{}, nil, fmt.Errorf("%w: record at 0x%X: %w", errs.ErrInvalidObjectSize, offset, err)
		}
		f.HandleStart = start
	}
	if err := r.Err(); err != nil {
		return Frame{}, nil, err
	}
	if f.HandleStart < 0 || f.HandleStart > int64(f.Size)*8 {
		return Frame{}, nil, fmt.Errorf("%w: handle stream at bit %d of %d bytes", errs.ErrInvalidObjectSize,
			f.HandleStart, f.Size)
	}

	if end+recordCRCSize <= int64(len(data)) {
		stored := endian.GetLittleEndianEngine().Uint16(data[end:])
		if crc := section.CRC16(section.CRC16Seed, data[offset:end]); crc != stored {
			err := fmt.Errorf("%w: record at 0x%X stored 0x%04X computed 0x%04X", errs.ErrCRCMismatch, offset, stored, crc)
			if cfg.StrictChecksums {
				return Frame{}, nil, err
			}
			cfg.Diagnostics.Warn(diag.KindIntegrity, format.SectionObjects, 0, err, "record crc")
		}
	}

	return f, r, nil
}

// legacyHandleStart reads the R13-R14 object size from a cursor placed after the type. The
// cursor is consumed.
func legacyHandleStart(r *bitstream.Reader, entity bool) (int64, error) {
	readHead(r)
	if entity && r.ReadBit() {
		size := uint32(r.ReadRawLong())
		if int64(size) > r.Remaining()/8 {
			return 0, fmt.Errorf("preview of %d bytes", size)
		}
		r.SetPositionInBits(r.PositionInBits() + int64(size)*8)
	}
	start := int64(uint32(r.ReadRawLong()))

	return start, r.Err()
}

// ReadRecord decodes the record at offset into a template.
//
// Returns:
//   - Template: the decoded template; an *Unknown when the type has no registered kind
//   - bool: whether the type is known
//   - error: envelope or field decode failure
func ReadRecord(data []byte, offset int64, cfg ReadConfig) (Template, bool, error) {
	f, r, err := ReadFrame(data, offset, cfg)
	if err != nil {
		return nil, false, err
	}

	t, known := New(f.Type, cfg.Factory)
	if u, ok := t.(*Unknown); ok {
		u.rec.Raw = append([]byte(nil), f.Body...)
		u.rec.HandleBits = f.HandleBits
		u.rec.Version = cfg.Version
	}

	start := f.BodyOffset * 8
	s := bitstream.SplitStreams(r, start+f.HandleStart, start+int64(f.Size)*8)
	if err := t.Decode(s); err != nil {
		return t, known, err
	}

	return t, known, nil
}

// WriteRecord encodes the template of one record, envelope and CRC included.
func WriteRecord(t Template, version format.Version, codePage uint16) ([]byte, error) {
	var body []byte
	var handleBits uint64
	var err error

	if u, ok := t.(*Unknown); ok {
		rec := u.Typed()
		if rec.Version != version || len(rec.Raw) == 0 {
			return nil, fmt.Errorf("%w: %s", errs.ErrRecordNotEncodable, rec.Type())
		}
		body, handleBits = rec.Raw, rec.HandleBits
	} else {
		body, handleBits, err = encodeBody(t, version, codePage)
		if err != nil {
			return nil, err
		}
	}

	out := bitstream.AppendModularShort(nil, uint64(len(body)))
	if version.AtLeast(format.VersionR2010) {
		out = bitstream.AppendUnsignedModularChar(out, handleBits)
	}
	out = append(out, body...)

	return endian.GetLittleEndianEngine().AppendUint16(out, section.CRC16(section.CRC16Seed, out)), nil
}

func encodeBody(t Template, version format.Version, codePage uint16) ([]byte, uint64, error) {
	w := bitstream.NewWriter(version)
	w.WriteObjectType(t.Record().Type())
	typeBits := w.PositionInBits()

	sw, data, err := encodeStreams(t, version, codePage, 0)
	if err != nil {
		return nil, 0, err
	}
	if version.Before(format.VersionR2000) {
		// The size field has a fixed width, so the second pass has the measured length.
		size := typeBits + data.PositionInBits()
		if sw, data, err = encodeStreams(t, version, codePage, uint32(size)); err != nil {
			return nil, 0, err
		}
	}

	if version.AtLeast(format.VersionR2000) && version.Before(format.VersionR2010) {
		w.WriteRawLong(int32(typeBits + 32 + data.PositionInBits()))
	}
	w.WriteBitsFrom(data)
	handleStart := w.PositionInBits()
	w.WriteBitsFrom(sw.Handles)

	body := w.Bytes()
	if err := w.Err(); err != nil {
		return nil, 0, err
	}

	return body, uint64(int64(len(body))*8 - handleStart), nil
}

func encodeStreams(t Template, version format.Version, codePage uint16, size uint32) (*bitstream.StreamsWriter, *bitstream.Writer, error) {
	sw := bitstream.NewStreamsWriter(version)
	sw.SetCodePage(codePage)
	sw.ObjectBits = size
	if err := t.Encode(sw); err != nil {
		return nil, nil, err
	}
	data, err := sw.Body()
	if err != nil {
		return nil, nil, err
	}

	return sw, data, nil
}
