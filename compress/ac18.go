package compress

import (
	"fmt"

	"github.com/arloliu/dwgkit/errs"
)

const (
	ac18MaxDistance = 0xBFFF
	ac18NearWindow  = 0x400  // reach of the 0x40-0xFF opcodes
	ac18MidWindow   = 0x4000 // reach of the 0x20-0x3F opcodes
	ac18MaxLength   = 0xFFFF
	ac18Terminator  = 0x11
)

// AC18Compressor implements the LZ77 variant used by R2004-class data and system pages.
//
// The stream interleaves literal runs and back-references. Opcodes 0x40-0xFF carry short
// near matches, 0x20-0x3F matches within 16KiB, 0x10-0x1F matches up to 48KiB away, and 0x11
// terminates. The low two bits of the last byte of each match give the following literal
// count; zero means an explicit literal length or the next opcode follows.
type AC18Compressor struct{}

var (
	_ Codec             = (*AC18Compressor)(nil)
	_ SizedDecompressor = (*AC18Compressor)(nil)
)

// NewAC18Compressor creates a new AC18 LZ77 codec.
func NewAC18Compressor() AC18Compressor {
	return AC18Compressor{}
}

// Decompress decodes an AC18 stream of unknown decompressed size.
func (c AC18Compressor) Decompress(data []byte) ([]byte, error) {
	return decompressAC18(data, -1)
}

// DecompressSize decodes an AC18 stream into at most size bytes.
//
// Parameters:
//   - data: Compressed page body
//   - size: Decompressed page size from the page header
//
// Returns:
//   - []byte: Decoded bytes, possibly shorter than size when the stream ends early
//   - error: errs.ErrInvalidOpcode, errs.ErrInputOverrun, errs.ErrOutputOverrun or
//     errs.ErrLookbehindOverrun on malformed input
func (c AC18Compressor) DecompressSize(data []byte, size int) ([]byte, error) {
	return decompressAC18(data, size)
}

type ac18Decoder struct {
	src []byte
	pos int
}

func (d *ac18Decoder) next() (byte, error) {
	if d.pos >= len(d.src) {
		return 0, errs.ErrInputOverrun
	}
	b := d.src[d.pos]
	d.pos++

	return b, nil
}

// literalLength reads a literal run length. A byte of 0x10 or more is not a length but the
// next opcode, which is returned with a zero length.
func (d *ac18Decoder) literalLength() (int, byte, error) {
	if d.pos >= len(d.src) {
		return 0, 0, nil
	}

	b, _ := d.next()
	switch {
	case b >= 0x01 && b <= 0x0F:
		return int(b) + 3, 0, nil
	case b == 0:
		total := 0x0F
		for {
			b, err := d.next()
			if err != nil {
				return 0, 0, err
			}
			if b != 0 {
				return total + int(b) + 3, 0, nil
			}
			total += 0xFF
		}
	default:
		return 0, b, nil
	}
}

func (d *ac18Decoder) longLength() (int, error) {
	b, err := d.next()
	if err != nil {
		return 0, err
	}
	if b != 0 {
		return int(b), nil
	}

	total := 0xFF
	for {
		b, err := d.next()
		if err != nil {
			return 0, err
		}
		if b != 0 {
			return total + int(b), nil
		}
		total += 0xFF
	}
}

func (d *ac18Decoder) twoByteOffset() (offset, literal int, err error) {
	b1, err := d.next()
	if err != nil {
		return 0, 0, err
	}
	b2, err := d.next()
	if err != nil {
		return 0, 0, err
	}

	return int(b1>>2) | int(b2)<<6, int(b1 & 0x03), nil
}

func (d *ac18Decoder) copyLiteral(out []byte, n, limit int) ([]byte, error) {
	if n == 0 {
		return out, nil
	}
	if d.pos+n > len(d.src) {
		return out, errs.ErrInputOverrun
	}
	if limit >= 0 && len(out)+n > limit {
		return out, errs.ErrOutputOverrun
	}
	out = append(out, d.src[d.pos:d.pos+n]...)
	d.pos += n

	return out, nil
}

func decompressAC18(src []byte, size int) ([]byte, error) {
	d := ac18Decoder{src: src}
	limit := size
	if limit < 0 {
		limit = unsizedLimit
	}
	out := make([]byte, 0, max(size, len(src)*2))

	lit, op, err := d.literalLength()
	if err != nil {
		return nil, err
	}
	if out, err = d.copyLiteral(out, lit, limit); err != nil {
		return nil, err
	}

	for {
		if op == 0 {
			if d.pos >= len(d.src) {
				return out, nil
			}
			op, _ = d.next()
		}

		var length, dist int
		switch {
		case op >= 0x40:
			b, err := d.next()
			if err != nil {
				return nil, err
			}
			length = int(op>>4) - 1
			dist = (int(op>>2)&0x03 | int(b)<<2) + 1
			lit = int(op & 0x03)
		case op >= 0x21:
			length = int(op) - 0x1E
			if dist, lit, err = d.twoByteOffset(); err != nil {
				return nil, err
			}
			dist++
		case op == 0x20:
			if length, err = d.longLength(); err != nil {
				return nil, err
			}
			length += 0x21
			if dist, lit, err = d.twoByteOffset(); err != nil {
				return nil, err
			}
			dist++
		case op == ac18Terminator:
			return out, nil
		case op >= 0x10:
			length = int(op & 0x07)
			if length == 0 {
				if length, err = d.longLength(); err != nil {
					return nil, err
				}
				length += 9
			} else {
				length += 2
			}
			if dist, lit, err = d.twoByteOffset(); err != nil {
				return nil, err
			}
			dist += int(op&0x08)<<11 + 0x4000
		default:
			return nil, fmt.Errorf("%w: 0x%02X at %d", errs.ErrInvalidOpcode, op, d.pos-1)
		}

		op = 0
		if lit == 0 {
			if lit, op, err = d.literalLength(); err != nil {
				return nil, err
			}
		}

		if out, err = copyMatch(out, dist, length, limit); err != nil {
			return nil, err
		}
		if out, err = d.copyLiteral(out, lit, limit); err != nil {
			return nil, err
		}
	}
}

// Compress encodes data as an AC18 stream ending with 0x11 0x00 0x00.
//
// Streams cannot start with a literal run of one to three bytes, so inputs of that length
// return errs.ErrShortInput; page writers pad such pages.
func (c AC18Compressor) Compress(data []byte) ([]byte, error) {
	n := len(data)
	if n > 0 && n < 4 {
		return nil, errs.ErrShortInput
	}

	out := make([]byte, 0, n/2+16)
	if n == 0 {
		return append(out, ac18Terminator, 0, 0), nil
	}

	m := acquireMatchFinder(n)
	defer releaseMatchFinder(m)

	var pending ac18Match // match waiting for its trailing literal count
	havePending := false
	litStart := 0

	flush := func(litEnd int) {
		lit := data[litStart:litEnd]
		if !havePending {
			out = appendAC18LiteralLength(out, len(lit))
		} else {
			out = pending.appendTo(out, len(lit))
		}
		out = append(out, lit...)
	}

	i := 0
	for i < n {
		dist, length := m.find(data, i, ac18MaxDistance, ac18MaxLength)
		if length > 0 && dist > ac18MidWindow && length < 4 {
			length = 0
		}
		if length > 0 && !havePending && i < 4 {
			length = 0
		}
		if length == 0 {
			m.insert(data, i)
			i++

			continue
		}

		flush(i)
		pending = ac18Match{dist: dist, length: length}
		havePending = true
		for k := range length {
			m.insert(data, i+k)
		}
		i += length
		litStart = i
	}
	flush(n)

	return append(out, ac18Terminator, 0, 0), nil
}

type ac18Match struct {
	dist   int
	length int
}

// appendTo emits the match with lit trailing literals. Runs of one to three bytes are carried
// in the low bits; longer runs follow as an explicit literal length.
func (m ac18Match) appendTo(out []byte, lit int) []byte {
	low := 0
	if lit <= 3 {
		low = lit
	}

	off := m.dist - 1
	switch {
	case m.dist <= ac18NearWindow && m.length <= 14:
		out = append(out, byte((m.length+1)<<4|(off&0x03)<<2|low), byte(off>>2))
	case m.dist <= ac18MidWindow && m.length <= 0x21:
		out = append(out, byte(m.length+0x1E), byte((off&0x3F)<<2|low), byte(off>>6))
	case m.dist <= ac18MidWindow:
		out = append(out, 0x20)
		out = appendAC18LongLength(out, m.length-0x21)
		out = append(out, byte((off&0x3F)<<2|low), byte(off>>6))
	default:
		rem := m.dist - 0x4000
		var op byte = 0x10
		if rem >= 0x4000 {
			op |= 0x08
			rem -= 0x4000
		}
		if m.length <= 9 {
			out = append(out, op|byte(m.length-2))
		} else {
			out = append(out, op)
			out = appendAC18LongLength(out, m.length-9)
		}
		out = append(out, byte((rem&0x3F)<<2|low), byte(rem>>6))
	}

	if lit > 3 {
		out = appendAC18LiteralLength(out, lit)
	}

	return out
}

// appendAC18LiteralLength encodes a literal run of n >= 4 bytes; n == 0 emits nothing.
func appendAC18LiteralLength(out []byte, n int) []byte {
	if n == 0 {
		return out
	}

	v := n - 3
	if v <= 0x0F {
		return append(out, byte(v))
	}

	out = append(out, 0)
	v -= 0x0F
	for v > 0xFF {
		out = append(out, 0)
		v -= 0xFF
	}

	return append(out, byte(v))
}

// appendAC18LongLength encodes the extension of a long match length (v >= 1).
func appendAC18LongLength(out []byte, v int) []byte {
	if v <= 0xFF {
		return append(out, byte(v))
	}

	out = append(out, 0)
	v -= 0xFF
	for v > 0xFF {
		out = append(out, 0)
		v -= 0xFF
	}

	return append(out, byte(v))
}
