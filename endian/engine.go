// Package endian provides the byte order engines used by the drawing container.
//
// Everything in the container is little-endian except the handle map, whose block sizes and
// CRCs are big-endian. EndianEngine combines binary.ByteOrder and binary.AppendByteOrder so
// decoders and encoders share one value:
//
//	engine := endian.GetLittleEndianEngine()
//	buf = engine.AppendUint32(buf, pageType)
//	size := endian.GetBigEndianEngine().Uint16(block)
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine used for pages, headers and sections.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine used for handle map blocks.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Uint16At reads a uint16 at off, reporting false when buf is too short.
func Uint16At(engine EndianEngine, buf []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(buf) {
		return 0, false
	}

	return engine.Uint16(buf[off:]), true
}

// Uint32At reads a uint32 at off, reporting false when buf is too short.
func Uint32At(engine EndianEngine, buf []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(buf) {
		return 0, false
	}

	return engine.Uint32(buf[off:]), true
}

// Uint64At reads a uint64 at off, reporting false when buf is too short.
func Uint64At(engine EndianEngine, buf []byte, off int) (uint64, bool) {
	if off < 0 || off+8 > len(buf) {
		return 0, false
	}

	return engine.Uint64(buf[off:]), true
}
