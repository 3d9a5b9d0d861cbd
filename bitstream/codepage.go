package bitstream

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Drawing code page identifiers as stored in the file header.
const (
	CodePageUSASCII  uint16 = 1
	CodePageISO88591 uint16 = 2
	CodePageCP437    uint16 = 11
	CodePageCP850    uint16 = 12
	CodePageCP866    uint16 = 27
	CodePageANSI1250 uint16 = 28
	CodePageANSI1251 uint16 = 29
	CodePageANSI1252 uint16 = 30
	CodePageANSI1253 uint16 = 32
	CodePageANSI1254 uint16 = 33
	CodePageANSI1255 uint16 = 34
	CodePageANSI1256 uint16 = 35
	CodePageANSI1257 uint16 = 36
	CodePageANSI874  uint16 = 37
)

var codePages = map[uint16]*charmap.Charmap{
	CodePageUSASCII:  charmap.Windows1252,
	CodePageISO88591: charmap.ISO8859_1,
	3:                charmap.ISO8859_2,
	4:                charmap.ISO8859_3,
	5:                charmap.ISO8859_4,
	6:                charmap.ISO8859_5,
	7:                charmap.ISO8859_6,
	8:                charmap.ISO8859_7,
	9:                charmap.ISO8859_8,
	10:               charmap.ISO8859_9,
	CodePageCP437:    charmap.CodePage437,
	CodePageCP850:    charmap.CodePage850,
	13:               charmap.CodePage852,
	14:               charmap.CodePage855,
	16:               charmap.CodePage860,
	19:               charmap.CodePage863,
	20:               charmap.CodePage865,
	23:               charmap.Macintosh,
	CodePageCP866:    charmap.CodePage866,
	CodePageANSI1250: charmap.Windows1250,
	CodePageANSI1251: charmap.Windows1251,
	CodePageANSI1252: charmap.Windows1252,
	CodePageANSI1253: charmap.Windows1253,
	CodePageANSI1254: charmap.Windows1254,
	CodePageANSI1255: charmap.Windows1255,
	CodePageANSI1256: charmap.Windows1256,
	CodePageANSI1257: charmap.Windows1257,
	CodePageANSI874:  charmap.Windows874,
}

// CodePageEncoding returns the single-byte encoding for a drawing code page id.
// Unknown ids fall back to Windows-1252.
func CodePageEncoding(id uint16) encoding.Encoding {
	if cm, ok := codePages[id]; ok {
		return cm
	}

	return charmap.Windows1252
}
