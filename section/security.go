package section

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/arloliu/dwgkit/format"
)

// Mask XORs buf[off:off+length] with the page key derived from pos, the page's absolute
// file position. The key is PageMaskSeed^pos in little-endian order, applied in 4-byte
// strides starting at off; a tail shorter than 4 bytes uses the key prefix.
// Masking is its own inverse.
func Mask(buf []byte, pos uint32, off, length int) {
	if off < 0 || length <= 0 || off >= len(buf) {
		return
	}
	if end := off + length; end > len(buf) || end < off {
		length = len(buf) - off
	}

	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], format.PageMaskSeed^pos)

	region := buf[off : off+length]
	for len(region) >= 4 {
		region[0] ^= key[0]
		region[1] ^= key[1]
		region[2] ^= key[2]
		region[3] ^= key[3]
		region = region[4:]
	}
	for i := range region {
		region[i] ^= key[i]
	}
}

const (
	checksumModulus = 0xFFF1
	checksumChunk   = 0x15B0
)

// Checksum computes the page checksum of data continuing from seed.
// It is an Adler-32 variant that reduces both sums modulo 0xFFF1 every 0x15B0 bytes.
func Checksum(seed uint32, data []byte) uint32 {
	sum1 := seed & 0xFFFF
	sum2 := seed >> 16

	for len(data) > 0 {
		n := min(len(data), checksumChunk)
		for _, b := range data[:n] {
			sum1 += uint32(b)
			sum2 += sum1
		}
		sum1 %= checksumModulus
		sum2 %= checksumModulus
		data = data[n:]
	}

	return sum2<<16 | sum1
}

var crc16Table = func() [256]uint16 {
	var t [256]uint16
	for i := range t {
		c := uint16(i)
		for range 8 {
			if c&1 != 0 {
				c = c>>1 ^ 0xA001
			} else {
				c >>= 1
			}
		}
		t[i] = c
	}

	return t
}()

// CRC16 continues the reflected 0xA001 CRC used for file headers, object records and handle
// map blocks.
func CRC16(seed uint16, data []byte) uint16 {
	for _, b := range data {
		seed = seed>>8 ^ crc16Table[byte(seed)^b]
	}

	return seed
}

// CRC16Seed is the initial value for object record and handle map CRCs.
const CRC16Seed uint16 = 0xC0C1

// CRC32 returns the IEEE CRC-32 of data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// magicSequence is the byte stream produced by the container's linear congruential
// generator seeded with 1. It masks the AC18 header metadata and pads the header area.
var magicSequence = func() [0x100]byte {
	var seq [0x100]byte
	seed := uint32(1)
	for i := range seq {
		seed = seed*0x343FD + 0x269EC3
		seq[i] = byte(seed >> 16)
	}

	return seq
}()

// MagicSequence returns a copy of the first n bytes of the header mask sequence.
func MagicSequence(n int) []byte {
	n = min(max(n, 0), len(magicSequence))
	out := make([]byte, n)
	copy(out, magicSequence[:n])

	return out
}

func xorMagic(buf []byte) {
	for i := range buf {
		buf[i] ^= magicSequence[i%len(magicSequence)]
	}
}
