// Package bitstream implements the bit-addressable cursor used to decode and encode drawing
// objects, section headers and the class table.
//
// Bits are consumed most-significant first within each byte. Multi-byte raw values are
// little-endian. The packed primitives (BS, BL, BD, DD, MC, MS, H, T, CMC, OT) follow the
// version-dependent rules of the file format.
//
// Reader keeps a sticky error: after the first failed read every primitive returns its zero
// value and Err reports the failure. Callers decode a whole record and check Err once, the
// same way bitio's Try* methods are used.
package bitstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Reader is a bit cursor over an in-memory buffer.
type Reader struct {
	buf      []byte
	pos      int64 // bit position
	limit    int64 // bit limit, exclusive
	version  format.Version
	codePage encoding.Encoding
	err      error
}

// NewReader creates a reader over buf for the given format version.
//
// Parameters:
//   - buf: Buffer to decode; it is not copied
//   - version: Format version selecting the version-dependent primitive encodings
//
// Returns:
//   - *Reader: Reader positioned at bit 0 using the Windows-1252 code page
func NewReader(buf []byte, version format.Version) *Reader {
	return &Reader{
		buf:      buf,
		limit:    int64(len(buf)) * 8,
		version:  version,
		codePage: charmap.Windows1252,
	}
}

// SetCodePage sets the encoding used for pre-R2007 text.
func (r *Reader) SetCodePage(enc encoding.Encoding) {
	if enc != nil {
		r.codePage = enc
	}
}

// Clone returns an independent cursor over the same buffer.
func (r *Reader) Clone() *Reader {
	c := *r
	return &c
}

// Version returns the format version.
func (r *Reader) Version() format.Version { return r.version }

// Err returns the first error encountered, or nil.
func (r *Reader) Err() error { return r.err }

// PositionInBits returns the cursor position in bits.
func (r *Reader) PositionInBits() int64 { return r.pos }

// Position returns the cursor position in whole bytes.
func (r *Reader) Position() int64 { return r.pos >> 3 }

// Len returns the buffer length in bytes.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bits before the limit.
func (r *Reader) Remaining() int64 {
	if r.pos >= r.limit {
		return 0
	}

	return r.limit - r.pos
}

// SetPositionInBits moves the cursor to an absolute bit position.
func (r *Reader) SetPositionInBits(pos int64) {
	if pos < 0 {
		r.fail(errs.ErrNegativeSeek)
		return
	}
	r.pos = pos
}

// SetPosition moves the cursor to an absolute byte position.
func (r *Reader) SetPosition(pos int64) {
	r.SetPositionInBits(pos * 8)
}

// SetLimitInBits bounds reads to bits before limit; reading past it fails with ErrEndOfStream.
func (r *Reader) SetLimitInBits(limit int64) {
	maxBits := int64(len(r.buf)) * 8
	if limit < 0 || limit > maxBits {
		limit = maxBits
	}
	r.limit = limit
}

// Align advances the cursor to the next byte boundary.
func (r *Reader) Align() {
	r.pos = (r.pos + 7) &^ 7
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("bit %d: %w", r.pos, err)
	}
}

func (r *Reader) ensure(n int64) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > r.limit {
		r.fail(errs.ErrEndOfStream)
		return false
	}

	return true
}

// ReadBits reads n (<= 64) bits MSB first.
func (r *Reader) ReadBits(n uint8) uint64 {
	if n == 0 || !r.ensure(int64(n)) {
		return 0
	}

	var v uint64
	remaining := n
	for remaining > 0 {
		b := r.buf[r.pos>>3]
		offset := uint8(r.pos & 7)
		avail := 8 - offset
		take := min(avail, remaining)
		chunk := (b >> (avail - take)) & byte(uint16(1)<<take-1)
		v = v<<take | uint64(chunk)
		r.pos += int64(take)
		remaining -= take
	}

	return v
}

// ReadBit reads a single bit (B).
func (r *Reader) ReadBit() bool {
	return r.ReadBits(1) == 1
}

// Read2Bits reads a 2-bit code (BB).
func (r *Reader) Read2Bits() uint8 {
	return uint8(r.ReadBits(2))
}

// Read3Bits reads a 3B value: 0, 2, 6 or 7.
func (r *Reader) Read3Bits() uint8 {
	if !r.ReadBit() {
		return 0
	}
	if !r.ReadBit() {
		return 2
	}
	if !r.ReadBit() {
		return 6
	}

	return 7
}

// ReadRawChar reads an unaligned byte (RC).
func (r *Reader) ReadRawChar() uint8 {
	return uint8(r.ReadBits(8))
}

// ReadBytes reads n unaligned bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if n < 0 {
		r.fail(errs.ErrEndOfStream)
		return nil
	}
	if !r.ensure(int64(n) * 8) {
		return nil
	}

	out := make([]byte, n)
	if r.pos&7 == 0 {
		start := r.pos >> 3
		copy(out, r.buf[start:start+int64(n)])
		r.pos += int64(n) * 8

		return out
	}

	for i := range out {
		out[i] = r.ReadRawChar()
	}

	return out
}

func (r *Reader) readLE(n int) uint64 {
	var v uint64
	for i := range n {
		v |= uint64(r.ReadRawChar()) << (8 * i)
	}
	if r.err != nil {
		return 0
	}

	return v
}

// ReadRawShort reads a little-endian 16-bit value (RS).
func (r *Reader) ReadRawShort() int16 {
	return int16(r.readLE(2))
}

// ReadRawLong reads a little-endian 32-bit value (RL).
func (r *Reader) ReadRawLong() int32 {
	return int32(r.readLE(4))
}

// ReadRawLongLong reads a little-endian 64-bit value (RLL).
func (r *Reader) ReadRawLongLong() uint64 {
	return r.readLE(8)
}

// ReadRawDouble reads an IEEE-754 double (RD).
func (r *Reader) ReadRawDouble() float64 {
	return math.Float64frombits(r.readLE(8))
}

// Read2RawDouble reads two RD values.
func (r *Reader) Read2RawDouble() Vector2 {
	return Vector2{X: r.ReadRawDouble(), Y: r.ReadRawDouble()}
}

// Read3RawDouble reads three RD values.
func (r *Reader) Read3RawDouble() Vector3 {
	return Vector3{X: r.ReadRawDouble(), Y: r.ReadRawDouble(), Z: r.ReadRawDouble()}
}

// ReadBitShort reads a BS: 00 raw short, 01 unsigned char, 10 zero, 11 256.
func (r *Reader) ReadBitShort() int16 {
	switch r.Read2Bits() {
	case 0:
		return r.ReadRawShort()
	case 1:
		return int16(r.ReadRawChar())
	case 2:
		return 0
	default:
		return 256
	}
}

// ReadBitLong reads a BL: 00 raw long, 01 unsigned char, 10 zero.
func (r *Reader) ReadBitLong() int32 {
	switch r.Read2Bits() {
	case 0:
		return r.ReadRawLong()
	case 1:
		return int32(r.ReadRawChar())
	case 2:
		return 0
	default:
		r.fail(errs.ErrInvalidBitCode)
		return 0
	}
}

// ReadBitLongLong reads a BLL: a 3-bit byte count followed by that many little-endian bytes.
func (r *Reader) ReadBitLongLong() uint64 {
	n := int(r.ReadBits(3))
	return r.readLE(n)
}

// ReadBitDouble reads a BD: 00 raw double, 01 one, 10 zero.
func (r *Reader) ReadBitDouble() float64 {
	switch r.Read2Bits() {
	case 0:
		return r.ReadRawDouble()
	case 1:
		return 1.0
	case 2:
		return 0.0
	default:
		r.fail(errs.ErrInvalidBitCode)
		return 0
	}
}

// Read2BitDouble reads two BD values.
func (r *Reader) Read2BitDouble() Vector2 {
	return Vector2{X: r.ReadBitDouble(), Y: r.ReadBitDouble()}
}

// Read3BitDouble reads three BD values.
func (r *Reader) Read3BitDouble() Vector3 {
	return Vector3{X: r.ReadBitDouble(), Y: r.ReadBitDouble(), Z: r.ReadBitDouble()}
}

// ReadBitDoubleDefault reads a DD relative to def.
//
// The 2-bit code selects: 00 use def; 01 replace the low four bytes of def; 10 replace bytes
// 4-5 then bytes 0-3; 11 a full raw double.
func (r *Reader) ReadBitDoubleDefault(def float64) float64 {
	code := r.Read2Bits()
	if r.err != nil {
		return 0
	}

	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(def))

	switch code {
	case 0:
		return def
	case 1:
		for i := range 4 {
			b[i] = r.ReadRawChar()
		}
	case 2:
		b[4] = r.ReadRawChar()
		b[5] = r.ReadRawChar()
		for i := range 4 {
			b[i] = r.ReadRawChar()
		}
	default:
		return r.ReadRawDouble()
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

// Read2BitDoubleDefault reads two DD values against def.
func (r *Reader) Read2BitDoubleDefault(def Vector2) Vector2 {
	return Vector2{X: r.ReadBitDoubleDefault(def.X), Y: r.ReadBitDoubleDefault(def.Y)}
}

// Read3BitDoubleDefault reads three DD values against def.
func (r *Reader) Read3BitDoubleDefault(def Vector3) Vector3 {
	return Vector3{
		X: r.ReadBitDoubleDefault(def.X),
		Y: r.ReadBitDoubleDefault(def.Y),
		Z: r.ReadBitDoubleDefault(def.Z),
	}
}

// ReadBitThickness reads a BT. From R2000 a set bit means zero thickness.
func (r *Reader) ReadBitThickness() float64 {
	if r.version.AtLeast(format.VersionR2000) && r.ReadBit() {
		return 0
	}

	return r.ReadBitDouble()
}

// ReadBitExtrusion reads a BE. From R2000 a set bit means the default (0,0,1) extrusion.
func (r *Reader) ReadBitExtrusion() Vector3 {
	if r.version.AtLeast(format.VersionR2000) && r.ReadBit() {
		return DefaultExtrusion
	}

	return r.Read3BitDouble()
}

// ReadModularChar reads a signed MC.
func (r *Reader) ReadModularChar() int64 {
	var v uint64
	var shift uint
	for range 10 {
		b := r.ReadRawChar()
		if r.err != nil {
			return 0
		}
		if b&0x80 != 0 {
			v |= uint64(b&0x7F) << shift
			shift += 7

			continue
		}

		negative := b&0x40 != 0
		v |= uint64(b&0x3F) << shift
		if negative {
			return -int64(v)
		}

		return int64(v)
	}

	r.fail(errs.ErrInvalidBitCode)

	return 0
}

// ReadUnsignedModularChar reads an unsigned MC.
func (r *Reader) ReadUnsignedModularChar() uint64 {
	var v uint64
	var shift uint
	for range 10 {
		b := r.ReadRawChar()
		if r.err != nil {
			return 0
		}
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v
		}
		shift += 7
	}

	r.fail(errs.ErrInvalidBitCode)

	return 0
}

// ReadModularShort reads an MS: little-endian 16-bit words carrying 15 bits each.
func (r *Reader) ReadModularShort() uint64 {
	var v uint64
	var shift uint
	for range 5 {
		w := uint16(r.ReadRawShort())
		if r.err != nil {
			return 0
		}
		v |= uint64(w&0x7FFF) << shift
		if w&0x8000 == 0 {
			return v
		}
		shift += 15
	}

	r.fail(errs.ErrInvalidBitCode)

	return 0
}

// ReadHandle reads a raw H value: code and byte count nibbles followed by big-endian bytes.
func (r *Reader) ReadHandle() Handle {
	head := r.ReadRawChar()
	if r.err != nil {
		return Handle{}
	}

	h := Handle{Code: head >> 4}
	counter := int(head & 0x0F)
	if counter > handleMaxByteCount {
		r.fail(errs.ErrInvalidHandleCode)
		return Handle{}
	}
	for range counter {
		h.Value = h.Value<<8 | uint64(r.ReadRawChar())
	}

	return h
}

// ReadHandleRef reads a handle and resolves it against ref.
func (r *Reader) ReadHandleRef(ref uint64) uint64 {
	return r.ReadHandle().Resolve(ref)
}

// ReadText reads a T value for pre-R2007 versions and a TU value otherwise.
func (r *Reader) ReadText() string {
	if r.version.AtLeast(format.VersionR2007) {
		return r.ReadUnicodeText()
	}

	n := int(uint16(r.ReadBitShort()))
	raw := r.ReadBytes(n)
	if r.err != nil || n == 0 {
		return ""
	}
	raw = bytes.TrimRight(raw, "\x00")

	s, err := r.codePage.NewDecoder().Bytes(raw)
	if err != nil {
		r.fail(err)
		return ""
	}

	return string(s)
}

// ReadUnicodeText reads a TU value: a BS character count followed by UTF-16LE units.
func (r *Reader) ReadUnicodeText() string {
	n := int(uint16(r.ReadBitShort()))
	raw := r.ReadBytes(n * 2)
	if r.err != nil || n == 0 {
		return ""
	}

	s, err := utf16le.NewDecoder().Bytes(raw)
	if err != nil {
		r.fail(err)
		return ""
	}

	return strings.TrimRight(string(s), "\x00")
}

// ReadColor reads a CMC value.
func (r *Reader) ReadColor() Color {
	c := Color{Index: r.ReadBitShort()}
	if r.version.Before(format.VersionR2004) {
		return c
	}

	c.RGB = uint32(r.ReadBitLong())
	c.Flags = r.ReadRawChar()
	if c.Flags&ColorHasName != 0 {
		c.Name = r.ReadText()
	}
	if c.Flags&ColorHasBookName != 0 {
		c.BookName = r.ReadText()
	}

	return c
}

// ReadObjectType reads an object type code: a BS before R2010, the packed OT form after.
func (r *Reader) ReadObjectType() format.ObjectType {
	if r.version.Before(format.VersionR2010) {
		return format.ObjectType(uint16(r.ReadBitShort()))
	}

	switch r.Read2Bits() {
	case 0:
		return format.ObjectType(r.ReadRawChar())
	case 1:
		return format.ObjectType(r.ReadRawChar()) + 0x1F0
	default:
		return format.ObjectType(uint16(r.ReadRawShort()))
	}
}

// ReadSentinel reads 16 bytes and compares them with want.
func (r *Reader) ReadSentinel(want format.Sentinel) error {
	got := r.ReadBytes(format.SentinelSize)
	if r.err != nil {
		return r.err
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("%w: got % X", errs.ErrInvalidSentinel, got)
	}

	return nil
}

// SetPositionByFlag locates an R2007+ string stream whose presence flag is the bit at flagPos.
//
// The flag is preceded by a 15-bit size (RS at flagPos-16); when its top bit is set a second
// RS at flagPos-32 holds the high bits. The stream data ends where the size fields begin.
//
// Returns:
//   - bool: true when a string stream is present and the cursor now points at its first bit
func (r *Reader) SetPositionByFlag(flagPos int64) bool {
	r.SetPositionInBits(flagPos)
	if !r.ReadBit() {
		return false
	}

	start := flagPos - 16
	r.SetPositionInBits(start)
	size := uint64(uint16(r.ReadRawShort()))
	if size&0x8000 != 0 {
		start -= 16
		r.SetPositionInBits(start)
		hi := uint64(uint16(r.ReadRawShort()))
		size = size&0x7FFF | hi<<15
	}
	if r.err != nil {
		return false
	}

	dataStart := start - int64(size)
	if dataStart < 0 {
		r.fail(errs.ErrEndOfStream)
		return false
	}
	r.SetPositionInBits(dataStart)
	r.SetLimitInBits(start)

	return true
}
