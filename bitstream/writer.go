package bitstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/icza/bitio"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

// Writer is the encoding dual of Reader, built on bitio's MSB-first writer.
//
// Writer tracks its own bit position and keeps a sticky error like Reader. Bytes finalizes
// the stream by padding the last partial byte with zero bits; the writer must not be used
// afterwards.
type Writer struct {
	buf      bytes.Buffer
	bw       *bitio.Writer
	bits     int64
	version  format.Version
	codePage encoding.Encoding
	closed   bool
	err      error
}

// NewWriter creates a writer for the given format version.
func NewWriter(version format.Version) *Writer {
	w := &Writer{version: version, codePage: charmap.Windows1252}
	w.bw = bitio.NewWriter(&w.buf)

	return w
}

// SetCodePage sets the encoding used for pre-R2007 text.
func (w *Writer) SetCodePage(enc encoding.Encoding) {
	if enc != nil {
		w.codePage = enc
	}
}

// Version returns the format version.
func (w *Writer) Version() format.Version { return w.version }

// Err returns the first error encountered, or nil.
func (w *Writer) Err() error {
	if w.err != nil {
		return w.err
	}

	return w.bw.TryError
}

// PositionInBits returns the number of bits written so far.
func (w *Writer) PositionInBits() int64 { return w.bits }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = fmt.Errorf("bit %d: %w", w.bits, err)
	}
}

// Bytes pads the final byte and returns the encoded stream.
func (w *Writer) Bytes() []byte {
	if !w.closed {
		w.closed = true
		if err := w.bw.Close(); err != nil {
			w.fail(err)
		}
	}

	return w.buf.Bytes()
}

// WriteBits writes the n (<= 64) low bits of v, MSB first.
func (w *Writer) WriteBits(v uint64, n uint8) {
	if n == 0 {
		return
	}
	w.bw.TryWriteBits(v, n)
	w.bits += int64(n)
}

// WriteBit writes a single bit (B).
func (w *Writer) WriteBit(b bool) {
	w.bw.TryWriteBool(b)
	w.bits++
}

// Write2Bits writes a 2-bit code (BB).
func (w *Writer) Write2Bits(v uint8) {
	w.WriteBits(uint64(v&3), 2)
}

// Write3Bits writes a 3B value; v must be 0, 2, 6 or 7.
func (w *Writer) Write3Bits(v uint8) {
	switch v {
	case 0:
		w.WriteBits(0, 1)
	case 2:
		w.WriteBits(0b10, 2)
	case 6:
		w.WriteBits(0b110, 3)
	case 7:
		w.WriteBits(0b111, 3)
	default:
		w.fail(errs.ErrInvalidBitCode)
	}
}

// WriteRawChar writes an unaligned byte (RC).
func (w *Writer) WriteRawChar(v uint8) {
	w.WriteBits(uint64(v), 8)
}

// WriteBytes writes raw bytes at the current bit position.
func (w *Writer) WriteBytes(p []byte) {
	if w.bits&7 == 0 {
		w.bw.TryWrite(p)
		w.bits += int64(len(p)) * 8

		return
	}
	for _, b := range p {
		w.WriteRawChar(b)
	}
}

func (w *Writer) writeLE(v uint64, n int) {
	for i := range n {
		w.WriteRawChar(uint8(v >> (8 * i)))
	}
}

// WriteRawShort writes a little-endian 16-bit value (RS).
func (w *Writer) WriteRawShort(v int16) {
	w.writeLE(uint64(uint16(v)), 2)
}

// WriteRawLong writes a little-endian 32-bit value (RL).
func (w *Writer) WriteRawLong(v int32) {
	w.writeLE(uint64(uint32(v)), 4)
}

// WriteRawLongLong writes a little-endian 64-bit value (RLL).
func (w *Writer) WriteRawLongLong(v uint64) {
	w.writeLE(v, 8)
}

// WriteRawDouble writes an IEEE-754 double (RD).
func (w *Writer) WriteRawDouble(v float64) {
	w.writeLE(math.Float64bits(v), 8)
}

// Write2RawDouble writes two RD values.
func (w *Writer) Write2RawDouble(v Vector2) {
	w.WriteRawDouble(v.X)
	w.WriteRawDouble(v.Y)
}

// Write3RawDouble writes three RD values.
func (w *Writer) Write3RawDouble(v Vector3) {
	w.WriteRawDouble(v.X)
	w.WriteRawDouble(v.Y)
	w.WriteRawDouble(v.Z)
}

// WriteBitShort writes the shortest BS form of v.
func (w *Writer) WriteBitShort(v int16) {
	switch {
	case v == 0:
		w.Write2Bits(2)
	case v == 256:
		w.Write2Bits(3)
	case v > 0 && v < 256:
		w.Write2Bits(1)
		w.WriteRawChar(uint8(v))
	default:
		w.Write2Bits(0)
		w.WriteRawShort(v)
	}
}

// WriteBitLong writes the shortest BL form of v.
func (w *Writer) WriteBitLong(v int32) {
	switch {
	case v == 0:
		w.Write2Bits(2)
	case v > 0 && v < 256:
		w.Write2Bits(1)
		w.WriteRawChar(uint8(v))
	default:
		w.Write2Bits(0)
		w.WriteRawLong(v)
	}
}

// WriteBitLongLong writes a BLL with the minimal byte count.
func (w *Writer) WriteBitLongLong(v uint64) {
	n := 0
	for x := v; x != 0; x >>= 8 {
		n++
	}
	if n > 7 {
		w.fail(errs.ErrInvalidBitCode)
		return
	}
	w.WriteBits(uint64(n), 3)
	w.writeLE(v, n)
}

// WriteBitDouble writes the shortest BD form of v. Negative zero is written in full.
func (w *Writer) WriteBitDouble(v float64) {
	switch math.Float64bits(v) {
	case 0:
		w.Write2Bits(2)
	case math.Float64bits(1.0):
		w.Write2Bits(1)
	default:
		w.Write2Bits(0)
		w.WriteRawDouble(v)
	}
}

// Write2BitDouble writes two BD values.
func (w *Writer) Write2BitDouble(v Vector2) {
	w.WriteBitDouble(v.X)
	w.WriteBitDouble(v.Y)
}

// Write3BitDouble writes three BD values.
func (w *Writer) Write3BitDouble(v Vector3) {
	w.WriteBitDouble(v.X)
	w.WriteBitDouble(v.Y)
	w.WriteBitDouble(v.Z)
}

// WriteBitDoubleDefault writes v as a DD relative to def, patching as few bytes as possible.
func (w *Writer) WriteBitDoubleDefault(def, v float64) {
	var d, b [8]byte
	binary.LittleEndian.PutUint64(d[:], math.Float64bits(def))
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))

	switch {
	case b == d:
		w.Write2Bits(0)
	case bytes.Equal(b[4:], d[4:]):
		w.Write2Bits(1)
		w.WriteBytes(b[:4])
	case bytes.Equal(b[6:], d[6:]):
		w.Write2Bits(2)
		w.WriteRawChar(b[4])
		w.WriteRawChar(b[5])
		w.WriteBytes(b[:4])
	default:
		w.Write2Bits(3)
		w.WriteRawDouble(v)
	}
}

// Write2BitDoubleDefault writes two DD values against def.
func (w *Writer) Write2BitDoubleDefault(def, v Vector2) {
	w.WriteBitDoubleDefault(def.X, v.X)
	w.WriteBitDoubleDefault(def.Y, v.Y)
}

// Write3BitDoubleDefault writes three DD values against def.
func (w *Writer) Write3BitDoubleDefault(def, v Vector3) {
	w.WriteBitDoubleDefault(def.X, v.X)
	w.WriteBitDoubleDefault(def.Y, v.Y)
	w.WriteBitDoubleDefault(def.Z, v.Z)
}

// WriteBitThickness writes a BT.
func (w *Writer) WriteBitThickness(v float64) {
	if w.version.AtLeast(format.VersionR2000) {
		if math.Float64bits(v) == 0 {
			w.WriteBit(true)
			return
		}
		w.WriteBit(false)
	}
	w.WriteBitDouble(v)
}

// WriteBitExtrusion writes a BE.
func (w *Writer) WriteBitExtrusion(v Vector3) {
	if w.version.AtLeast(format.VersionR2000) {
		if v == DefaultExtrusion && math.Float64bits(v.X) == 0 && math.Float64bits(v.Y) == 0 {
			w.WriteBit(true)
			return
		}
		w.WriteBit(false)
	}
	w.Write3BitDouble(v)
}

// WriteModularChar writes a signed MC.
func (w *Writer) WriteModularChar(v int64) {
	var scratch [10]byte
	w.WriteBytes(AppendModularChar(scratch[:0], v))
}

// WriteUnsignedModularChar writes an unsigned MC.
func (w *Writer) WriteUnsignedModularChar(v uint64) {
	var scratch [10]byte
	w.WriteBytes(AppendUnsignedModularChar(scratch[:0], v))
}

// AppendModularChar appends the signed MC encoding of v to dst. The final byte carries the
// sign in bit 6.
func AppendModularChar(dst []byte, v int64) []byte {
	var sign uint8
	u := uint64(v)
	if v < 0 {
		sign = 0x40
		u = uint64(-v)
	}
	for u >= 0x40 {
		dst = append(dst, uint8(u&0x7F)|0x80)
		u >>= 7
	}

	return append(dst, uint8(u)|sign)
}

// AppendUnsignedModularChar appends the unsigned MC encoding of v to dst.
func AppendUnsignedModularChar(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, uint8(v&0x7F)|0x80)
		v >>= 7
	}

	return append(dst, uint8(v))
}

// WriteModularShort writes an MS.
func (w *Writer) WriteModularShort(v uint64) {
	var scratch [10]byte
	w.WriteBytes(AppendModularShort(scratch[:0], v))
}

// AppendModularShort appends the MS encoding of v to dst: little-endian 16-bit words carrying
// 15 bits each, bit 15 set on every word but the last.
func AppendModularShort(dst []byte, v uint64) []byte {
	for v >= 0x8000 {
		w := uint16(v&0x7FFF) | 0x8000
		dst = append(dst, byte(w), byte(w>>8))
		v >>= 15
	}

	return append(dst, byte(v), byte(v>>8))
}

// WriteHandle writes a raw H value with the minimal byte count.
func (w *Writer) WriteHandle(code uint8, value uint64) {
	n := 0
	for x := value; x != 0; x >>= 8 {
		n++
	}
	w.WriteRawChar(code<<4 | uint8(n))
	for i := n - 1; i >= 0; i-- {
		w.WriteRawChar(uint8(value >> (8 * i)))
	}
}

// WriteHandleRelative writes target relative to ref using codes 6, 8, 0xA or 0xC.
func (w *Writer) WriteHandleRelative(ref, target uint64) {
	switch {
	case target == ref+1:
		w.WriteHandle(HandlePlusOne, 0)
	case ref > 0 && target == ref-1:
		w.WriteHandle(HandleMinusOne, 0)
	case target > ref:
		w.WriteHandle(HandlePlusOffset, target-ref)
	case target < ref:
		w.WriteHandle(HandleMinusOffset, ref-target)
	default:
		w.WriteHandle(HandleHardPointer, target)
	}
}

// WriteText writes a T value before R2007 and a TU value otherwise.
func (w *Writer) WriteText(s string) {
	if w.version.AtLeast(format.VersionR2007) {
		w.WriteUnicodeText(s)
		return
	}

	raw, err := encoding.ReplaceUnsupported(w.codePage.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		w.fail(err)
		return
	}
	if len(raw) > math.MaxUint16 {
		w.fail(errs.ErrTextTooLong)
		return
	}
	w.WriteBitShort(int16(uint16(len(raw))))
	w.WriteBytes(raw)
}

// WriteUnicodeText writes a TU value.
func (w *Writer) WriteUnicodeText(s string) {
	raw, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		w.fail(err)
		return
	}
	if len(raw)/2 > math.MaxUint16 {
		w.fail(errs.ErrTextTooLong)
		return
	}
	w.WriteBitShort(int16(uint16(len(raw) / 2)))
	w.WriteBytes(raw)
}

// WriteColor writes a CMC value.
func (w *Writer) WriteColor(c Color) {
	w.WriteBitShort(c.Index)
	if w.version.Before(format.VersionR2004) {
		return
	}

	flags := c.Flags &^ (ColorHasName | ColorHasBookName)
	if c.Name != "" {
		flags |= ColorHasName
	}
	if c.BookName != "" {
		flags |= ColorHasBookName
	}
	w.WriteBitLong(int32(c.RGB))
	w.WriteRawChar(flags)
	if c.Name != "" {
		w.WriteText(c.Name)
	}
	if c.BookName != "" {
		w.WriteText(c.BookName)
	}
}

// WriteObjectType writes an object type code in the version's form.
func (w *Writer) WriteObjectType(t format.ObjectType) {
	if w.version.Before(format.VersionR2010) {
		w.WriteBitShort(int16(uint16(t)))
		return
	}

	switch {
	case t < 0x100:
		w.Write2Bits(0)
		w.WriteRawChar(uint8(t))
	case t >= 0x1F0 && t < 0x2F0:
		w.Write2Bits(1)
		w.WriteRawChar(uint8(t - 0x1F0))
	default:
		w.Write2Bits(2)
		w.WriteRawShort(int16(uint16(t)))
	}
}

// WriteSentinel writes a 16-byte sentinel.
func (w *Writer) WriteSentinel(s format.Sentinel) {
	w.WriteBytes(s[:])
}

// WriteBitsFrom appends every bit written to src, which is finalized.
func (w *Writer) WriteBitsFrom(src *Writer) {
	n := src.PositionInBits()
	data := src.Bytes()
	if err := src.Err(); err != nil {
		w.fail(err)
		return
	}

	full := int(n / 8)
	w.WriteBytes(data[:full])
	if rem := uint8(n % 8); rem > 0 {
		w.WriteBits(uint64(data[full]>>(8-rem)), rem)
	}
}

// Align pads with zero bits to the next byte boundary.
func (w *Writer) Align() {
	if pad := uint8((8 - w.bits%8) % 8); pad > 0 {
		w.WriteBits(0, pad)
	}
}
