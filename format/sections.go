package format

// Section names as they appear in the AC18/AC21 section map.
const (
	SectionHeader       = "AcDb:Header"
	SectionClasses      = "AcDb:Classes"
	SectionHandles      = "AcDb:Handles"
	SectionObjects      = "AcDb:AcDbObjects"
	SectionObjFreeSpace = "AcDb:ObjFreeSpace"
	SectionTemplate     = "AcDb:Template"
	SectionAuxHeader    = "AcDb:AuxHeader"
	SectionSummaryInfo  = "AcDb:SummaryInfo"
	SectionPreview      = "AcDb:Preview"
	SectionVBAProject   = "AcDb:VBAProject"
	SectionAppInfo      = "AcDb:AppInfo"
	SectionFileDepList  = "AcDb:FileDepList"
	SectionRevHistory   = "AcDb:RevHistory"
	SectionSecurity     = "AcDb:Security"
)

// MandatorySections are the sections a document cannot be built without.
var MandatorySections = []string{SectionHeader, SectionClasses, SectionHandles}

// IsMandatory reports whether name is a mandatory section.
func IsMandatory(name string) bool {
	for _, s := range MandatorySections {
		if s == name {
			return true
		}
	}

	return false
}

// Locator record numbers used by the AC15 file header.
const (
	LocatorHeader       = 0
	LocatorClasses      = 1
	LocatorHandles      = 2
	LocatorObjFreeSpace = 3
	LocatorTemplate     = 4
	LocatorAuxHeader    = 5
)

// LocatorSectionName maps an AC15 locator record number to its section name.
func LocatorSectionName(number uint8) (string, bool) {
	switch number {
	case LocatorHeader:
		return SectionHeader, true
	case LocatorClasses:
		return SectionClasses, true
	case LocatorHandles:
		return SectionHandles, true
	case LocatorObjFreeSpace:
		return SectionObjFreeSpace, true
	case LocatorTemplate:
		return SectionTemplate, true
	case LocatorAuxHeader:
		return SectionAuxHeader, true
	default:
		return "", false
	}
}

// SentinelSize is the length of every section start/end sentinel.
const SentinelSize = 16

type Sentinel [SentinelSize]byte

var (
	HeaderStartSentinel   = Sentinel{0xCF, 0x7B, 0x1F, 0x23, 0xFD, 0xDE, 0x38, 0xA9, 0x5F, 0x7C, 0x68, 0xB8, 0x4E, 0x6D, 0x33, 0x5F}
	ClassesStartSentinel  = Sentinel{0x8D, 0xA1, 0xC4, 0xB8, 0xC4, 0xA9, 0xF8, 0xC5, 0xC0, 0xDC, 0xF4, 0x5F, 0xE7, 0xCF, 0xB6, 0x8A}
	PreviewStartSentinel  = Sentinel{0x1F, 0x25, 0x6D, 0x07, 0xD4, 0x36, 0x28, 0x28, 0x9D, 0x57, 0xCA, 0x3F, 0x9D, 0x44, 0x10, 0x2B}
	FileHeaderEndSentinel = Sentinel{0x95, 0xA0, 0x4E, 0x28, 0x99, 0x82, 0x1A, 0xE5, 0x5E, 0x41, 0xE0, 0x5F, 0x9D, 0x3A, 0x4D, 0x00}

	HeaderEndSentinel  = HeaderStartSentinel.Complement()
	ClassesEndSentinel = ClassesStartSentinel.Complement()
	PreviewEndSentinel = PreviewStartSentinel.Complement()
)

// Complement returns the bitwise complement; end sentinels are the complement of their start.
func (s Sentinel) Complement() Sentinel {
	var out Sentinel
	for i, b := range s {
		out[i] = ^b
	}

	return out
}

// Page layout constants shared by the AC18 container.
const (
	DefaultPageSize      = 0x7400 // max decompressed size of a data page
	FileHeaderSize       = 0x100  // reserved header area before the first page
	EncryptedHeaderSize  = 0x6C   // masked metadata block at 0x80
	PageAlignment        = 0x20   // pages start and end on this boundary
	DataPageHeaderSize   = 0x20   // masked data page header
	SystemPageHeaderSize = 0x14   // section page map / section map page header
	HandleMapBlockLimit  = 2032   // max data bytes per handle map block

	PageTypeData       uint32 = 0x4163043B
	PageTypePageMap    uint32 = 0x41630E3B
	PageTypeSectionMap uint32 = 0x4163003B

	PageMaskSeed uint32 = 0x4164536B
)

// AC21 container constants.
const (
	AC21HeaderOffset = 0x80
	AC21HeaderSize   = 0x400
	AC21PagesBase    = 0x480
	AC21MetadataSize = 0x110
	ReedSolomonBlock = 255
	ReedSolomonData  = 239
	ReedSolomonPage  = 251
)
