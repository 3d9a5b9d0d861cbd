package format

type (
	CompressionType uint8
	EncryptionType  uint8
)

const (
	CompressionNone     CompressionType = 0x1 // CompressionNone stores data as-is.
	CompressionZstd     CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2       CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4      CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionLZ77AC18 CompressionType = 0x5 // CompressionLZ77AC18 is the R2004-class page compressor.
	CompressionLZ77AC21 CompressionType = 0x6 // CompressionLZ77AC21 is the R2007-class page compressor.
)

// Section map compression codes as stored in the AC18 section map.
const (
	SectionStored     int32 = 1
	SectionCompressed int32 = 2
)

const (
	EncryptionNone    EncryptionType = 0
	EncryptionYes     EncryptionType = 1
	EncryptionUnknown EncryptionType = 2
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionLZ77AC18:
		return "LZ77AC18"
	case CompressionLZ77AC21:
		return "LZ77AC21"
	default:
		return "Unknown"
	}
}

// ParseCompressionType maps a lower-case name to a CompressionType.
func ParseCompressionType(name string) (CompressionType, bool) {
	switch name {
	case "none", "":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	case "ac18":
		return CompressionLZ77AC18, true
	case "ac21":
		return CompressionLZ77AC21, true
	default:
		return 0, false
	}
}

func (e EncryptionType) String() string {
	switch e {
	case EncryptionNone:
		return "None"
	case EncryptionYes:
		return "Encrypted"
	default:
		return "Unknown"
	}
}
