package compress

import (
	"fmt"

	"github.com/arloliu/dwgkit/errs"
)

const (
	ac21MaxDistance = 0xFFFF
	ac21MaxLength   = 0x100 + 0xFFFF
	ac21Block       = 32
)

// AC21Compressor implements the LZ77 variant used by R2007-class pages.
//
// Literal runs are stored permuted: each 32-byte block and the final partial block are
// shuffled through a fixed table of 1, 2, 3, 4, 8 and 16-byte copies. Match instructions are
// selected by the high nibble of the opcode, and the low three bits of the last instruction
// byte give the following literal count.
type AC21Compressor struct{}

var (
	_ Codec             = (*AC21Compressor)(nil)
	_ SizedDecompressor = (*AC21Compressor)(nil)
)

// NewAC21Compressor creates a new AC21 LZ77 codec.
func NewAC21Compressor() AC21Compressor {
	return AC21Compressor{}
}

// copy segment kinds
const (
	segStraight = iota // bytes copied in order
	segReversed        // 2 and 3-byte copies reverse their bytes
	segSwapped         // 16-byte copies swap their 8-byte halves
)

type copySegment struct {
	dst, src, n, kind int
}

func seg1(dst, src int) copySegment { return copySegment{dst, src, 1, segStraight} }
func seg2(dst, src int) copySegment { return copySegment{dst, src, 2, segReversed} }
func seg3(dst, src int) copySegment { return copySegment{dst, src, 3, segReversed} }
func seg4(dst, src int) copySegment { return copySegment{dst, src, 4, segStraight} }
func seg8(dst, src int) copySegment { return copySegment{dst, src, 8, segStraight} }
func seg16(dst, src int) copySegment { return copySegment{dst, src, 16, segSwapped} }

// literalCopies lists, per run length, the copies that place source bytes in the output.
var literalCopies = [ac21Block + 1][]copySegment{
	1:  {seg1(0, 0)},
	2:  {seg2(0, 0)},
	3:  {seg3(0, 0)},
	4:  {seg4(0, 0)},
	5:  {seg1(0, 4), seg4(1, 0)},
	6:  {seg1(0, 5), seg4(1, 1), seg1(5, 0)},
	7:  {seg2(0, 5), seg4(2, 1), seg1(6, 0)},
	8:  {seg8(0, 0)},
	9:  {seg1(0, 8), seg8(1, 0)},
	10: {seg1(0, 9), seg8(1, 1), seg1(9, 0)},
	11: {seg2(0, 9), seg8(2, 1), seg1(10, 0)},
	12: {seg4(0, 8), seg8(4, 0)},
	13: {seg1(0, 12), seg4(1, 8), seg8(5, 0)},
	14: {seg1(0, 13), seg4(1, 9), seg8(5, 1), seg1(13, 0)},
	15: {seg2(0, 13), seg4(2, 9), seg8(6, 1), seg1(14, 0)},
	16: {seg16(0, 0)},
	17: {seg8(0, 9), seg1(8, 8), seg8(9, 0)},
	18: {seg1(0, 17), seg16(1, 1), seg1(17, 0)},
	19: {seg3(0, 16), seg16(3, 0)},
	20: {seg4(0, 16), seg16(4, 0)},
	21: {seg1(0, 20), seg4(1, 16), seg16(5, 0)},
	22: {seg2(0, 20), seg4(2, 16), seg16(6, 0)},
	23: {seg3(0, 20), seg4(3, 16), seg16(7, 0)},
	24: {seg8(0, 16), seg16(8, 0)},
	25: {seg8(0, 17), seg1(8, 16), seg16(9, 0)},
	26: {seg1(0, 25), seg8(1, 17), seg1(9, 16), seg16(10, 0)},
	27: {seg2(0, 25), seg8(2, 17), seg1(10, 16), seg16(11, 0)},
	28: {seg4(0, 24), seg8(4, 16), seg8(12, 8), seg8(20, 0)},
	29: {seg1(0, 28), seg4(1, 24), seg8(5, 16), seg8(13, 8), seg8(21, 0)},
	30: {seg2(0, 28), seg4(2, 24), seg8(6, 16), seg8(14, 8), seg8(22, 0)},
	31: {seg1(0, 30), seg4(1, 26), seg2(5, 24), seg8(7, 16), seg8(15, 8), seg8(23, 0)},
	32: {seg16(0, 16), seg16(16, 0)},
}

// literalPerm[n][i] is the source index of output byte i in an n-byte literal block.
var literalPerm = buildLiteralPerms()

func buildLiteralPerms() [ac21Block + 1][]int {
	var perms [ac21Block + 1][]int
	for n := 1; n <= ac21Block; n++ {
		perm := make([]int, n)
		for _, s := range literalCopies[n] {
			for k := range s.n {
				src := s.src + k
				switch s.kind {
				case segReversed:
					src = s.src + s.n - 1 - k
				case segSwapped:
					src = s.src + (k+8)%16
				}
				perm[s.dst+k] = src
			}
		}
		perms[n] = perm
	}

	return perms
}

// unpermute copies n stored literal bytes from src into their output order.
func unpermute(out, src []byte) []byte {
	for len(src) > 0 {
		n := min(len(src), ac21Block)
		perm := literalPerm[n]
		for i := range n {
			out = append(out, src[perm[i]])
		}
		src = src[n:]
	}

	return out
}

// permute is the inverse of unpermute.
func permute(out, lit []byte) []byte {
	for len(lit) > 0 {
		n := min(len(lit), ac21Block)
		perm := literalPerm[n]
		base := len(out)
		out = append(out, make([]byte, n)...)
		for i := range n {
			out[base+perm[i]] = lit[i]
		}
		lit = lit[n:]
	}

	return out
}

// Decompress decodes an AC21 stream of unknown decompressed size.
func (c AC21Compressor) Decompress(data []byte) ([]byte, error) {
	return decompressAC21(data, -1)
}

// DecompressSize decodes an AC21 stream into at most size bytes.
func (c AC21Compressor) DecompressSize(data []byte, size int) ([]byte, error) {
	return decompressAC21(data, size)
}

type ac21Decoder struct {
	src []byte
	pos int
}

func (d *ac21Decoder) next() (byte, error) {
	if d.pos >= len(d.src) {
		return 0, errs.ErrInputOverrun
	}
	b := d.src[d.pos]
	d.pos++

	return b, nil
}

func (d *ac21Decoder) literalLength(op byte) (int, error) {
	length := int(op) + 8
	if length != 0x17 {
		return length, nil
	}

	b, err := d.next()
	if err != nil {
		return 0, err
	}
	length += int(b)
	if b != 0xFF {
		return length, nil
	}

	for {
		lo, err := d.next()
		if err != nil {
			return 0, err
		}
		hi, err := d.next()
		if err != nil {
			return 0, err
		}
		w := int(lo) | int(hi)<<8
		length += w
		if w != 0xFFFF {
			return length, nil
		}
	}
}

// instruction decodes one match. It returns the last byte read, whose low three bits hold
// the following literal count.
func (d *ac21Decoder) instruction(op byte) (last byte, dist, length int, err error) {
	var b1, b2 byte
	switch op >> 4 {
	case 0:
		if b1, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		if b2, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		length = int(op&0x0F) + 0x13 + int(b2>>3)&0x10
		dist = int(b1) + int(b2&0x78)<<5 + 1

		return b2, dist, length, nil
	case 1:
		if b1, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		if b2, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		length = int(op&0x0F) + 3
		dist = int(b1) + int(b2&0xF8)<<5 + 1

		return b2, dist, length, nil
	case 2:
		if b1, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		if b2, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		dist = int(b1) | int(b2)<<8
		length = int(op & 0x07)
		b3, err := d.next()
		if err != nil {
			return 0, 0, 0, err
		}
		if op&0x08 == 0 {
			length += int(b3 & 0xF8)
			return b3, dist, length, nil
		}

		b4, err := d.next()
		if err != nil {
			return 0, 0, 0, err
		}
		dist++
		length += int(b3)<<3 + int(b4&0xF8)<<8 + 0x100

		return b4, dist, length, nil
	default:
		if b1, err = d.next(); err != nil {
			return 0, 0, 0, err
		}
		length = int(op >> 4)
		dist = int(op&0x0F) + int(b1&0xF8)<<1 + 1

		return b1, dist, length, nil
	}
}

func (d *ac21Decoder) copyLiteral(out []byte, n, limit int) ([]byte, error) {
	if d.pos+n > len(d.src) {
		return out, errs.ErrInputOverrun
	}
	if limit >= 0 && len(out)+n > limit {
		return out, errs.ErrOutputOverrun
	}
	out = unpermute(out, d.src[d.pos:d.pos+n])
	d.pos += n

	return out, nil
}

func decompressAC21(src []byte, size int) ([]byte, error) {
	out := make([]byte, 0, max(size, len(src)*2))
	if len(src) == 0 {
		return out, nil
	}

	limit := size
	if limit < 0 {
		limit = unsizedLimit
	}

	d := ac21Decoder{src: src}
	op, _ := d.next()
	length := 0
	if op&0xF0 == 0x20 {
		d.pos += 2
		b, err := d.next()
		if err != nil {
			return nil, err
		}
		length = int(b & 0x07)
	}

	var err error
	for d.pos < len(d.src) {
		if length == 0 {
			if length, err = d.literalLength(op); err != nil {
				return nil, err
			}
		}
		if out, err = d.copyLiteral(out, length, limit); err != nil {
			return nil, err
		}
		length = 0
		if d.pos >= len(d.src) {
			return out, nil
		}

		op, _ = d.next()
		for {
			last, dist, n, err := d.instruction(op)
			if err != nil {
				return nil, err
			}
			if out, err = copyMatch(out, dist, n, limit); err != nil {
				return nil, fmt.Errorf("%w at output %d", err, len(out))
			}

			length = int(last & 0x07)
			if length != 0 || d.pos >= len(d.src) {
				break
			}
			op, _ = d.next()
			if op>>4 == 0 {
				break
			}
			if op>>4 == 0x0F {
				op &= 0x0F
			}
		}
	}

	return out, nil
}

// Compress encodes data as an AC21 stream.
func (c AC21Compressor) Compress(data []byte) ([]byte, error) {
	n := len(data)
	out := make([]byte, 0, n/2+16)
	if n == 0 {
		return out, nil
	}

	m := acquireMatchFinder(n)
	defer releaseMatchFinder(m)

	type match struct {
		dist, length int
		afterLiteral bool
	}
	var pending match
	havePending := false
	litStart := 0

	flush := func(litEnd int) {
		lit := data[litStart:litEnd]
		if !havePending {
			out = appendAC21FirstLiteral(out, len(lit))
		} else {
			out = appendAC21Match(out, pending.dist, pending.length, len(lit), pending.afterLiteral)
		}
		out = permute(out, lit)
	}

	// The first match must follow at least one literal; position 0 has no history anyway.
	i := 0
	for i < n {
		dist, length := m.find(data, i, ac21MaxDistance, ac21MaxLength)
		if length == 0 {
			m.insert(data, i)
			i++

			continue
		}

		afterLiteral := i > litStart
		flush(i)
		pending = match{dist: dist, length: length, afterLiteral: afterLiteral}
		havePending = true
		for k := range length {
			m.insert(data, i+k)
		}
		i += length
		litStart = i
	}
	flush(n)

	return out, nil
}

// appendAC21FirstLiteral writes the opening literal length.
func appendAC21FirstLiteral(out []byte, n int) []byte {
	if n < 8 {
		return append(out, 0x20, 0, 0, byte(n))
	}

	return appendAC21LiteralLength(out, n)
}

// appendAC21LiteralLength writes an explicit literal run length (n >= 8).
func appendAC21LiteralLength(out []byte, n int) []byte {
	if n < 0x17 {
		return append(out, byte(n-8))
	}

	out = append(out, 0x0F)
	v := n - 0x17
	if v < 0xFF {
		return append(out, byte(v))
	}

	out = append(out, 0xFF)
	v -= 0xFF
	for v >= 0xFFFF {
		out = append(out, 0xFF, 0xFF)
		v -= 0xFFFF
	}

	return append(out, byte(v), byte(v>>8))
}

// appendAC21Match writes one match followed by its lit trailing literal count. A long-length
// instruction that directly follows another match carries the 0xF escape nibble, since a zero
// high nibble there announces a literal run.
func appendAC21Match(out []byte, dist, length, lit int, afterLiteral bool) []byte {
	low := byte(0)
	if lit < 8 {
		low = byte(lit)
	}

	off := dist - 1
	switch {
	case length <= 14 && off <= 0x1FF:
		out = append(out, byte(length<<4|off&0x0F), byte(off>>4)<<3|low)
	case length <= 18 && off <= 0x1FFF:
		out = append(out, byte(0x10|(length-3)), byte(off), byte(off>>8)<<3|low)
	case length >= 0x13 && length <= 0x32 && off <= 0xFFF:
		v := length - 0x13
		b2 := byte(off>>8)<<3 | low
		if v >= 0x10 {
			b2 |= 0x80
			v -= 0x10
		}
		op := byte(v)
		if !afterLiteral {
			op |= 0xF0
		}
		out = append(out, op, byte(off), b2)
	case length < 0x100:
		out = append(out, 0x20|byte(length&0x07), byte(dist), byte(dist>>8), byte(length&0xF8)|low)
	default:
		v := length - 0x100
		out = append(out, 0x28|byte(v&0x07), byte(off), byte(off>>8), byte(v>>3), byte(v>>11)<<3|low)
	}

	if lit >= 8 {
		out = appendAC21LiteralLength(out, lit)
	}

	return out
}
