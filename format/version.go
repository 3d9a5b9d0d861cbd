package format

// Version identifies a drawing format revision by its 6-byte file tag.
type Version uint8

const (
	VersionUnknown Version = iota
	VersionR13             // AC1012
	VersionR14             // AC1014
	VersionR2000           // AC1015
	VersionR2004           // AC1018
	VersionR2007           // AC1021
	VersionR2010           // AC1024
	VersionR2013           // AC1027
	VersionR2018           // AC1032
)

// Generation groups versions that share a container layout.
type Generation uint8

const (
	GenerationUnknown Generation = iota
	GenerationAC15               // locator-record file header, no pages
	GenerationAC18               // masked system/data pages, LZ77 AC18
	GenerationAC21               // Reed-Solomon interleaved pages, LZ77 AC21
)

// VersionTagSize is the length of the version tag at file offset 0.
const VersionTagSize = 6

var versionTags = map[string]Version{
	"AC1012": VersionR13,
	"AC1014": VersionR14,
	"AC1015": VersionR2000,
	"AC1018": VersionR2004,
	"AC1021": VersionR2007,
	"AC1024": VersionR2010,
	"AC1027": VersionR2013,
	"AC1032": VersionR2018,
}

// ParseVersion returns the version for a 6-byte tag.
func ParseVersion(tag string) (Version, bool) {
	v, ok := versionTags[tag]
	return v, ok
}

// Tag returns the 6-byte file tag, or an empty string for unknown versions.
func (v Version) Tag() string {
	for tag, ver := range versionTags {
		if ver == v {
			return tag
		}
	}

	return ""
}

func (v Version) String() string {
	switch v {
	case VersionR13:
		return "R13"
	case VersionR14:
		return "R14"
	case VersionR2000:
		return "R2000"
	case VersionR2004:
		return "R2004"
	case VersionR2007:
		return "R2007"
	case VersionR2010:
		return "R2010"
	case VersionR2013:
		return "R2013"
	case VersionR2018:
		return "R2018"
	default:
		return "Unknown"
	}
}

// Generation returns the container layout used by the version.
func (v Version) Generation() Generation {
	switch v {
	case VersionR13, VersionR14, VersionR2000:
		return GenerationAC15
	case VersionR2004, VersionR2010, VersionR2013, VersionR2018:
		return GenerationAC18
	case VersionR2007:
		return GenerationAC21
	default:
		return GenerationUnknown
	}
}

// AtLeast reports whether v is the same as or newer than other.
func (v Version) AtLeast(other Version) bool {
	return v >= other
}

// Before reports whether v is strictly older than other.
func (v Version) Before(other Version) bool {
	return v < other
}

// Writable reports whether the container writer can produce this version.
func (v Version) Writable() bool {
	switch v {
	case VersionR2000, VersionR2004, VersionR2010, VersionR2013, VersionR2018:
		return true
	default:
		return false
	}
}

func (g Generation) String() string {
	switch g {
	case GenerationAC15:
		return "AC15"
	case GenerationAC18:
		return "AC18"
	case GenerationAC21:
		return "AC21"
	default:
		return "Unknown"
	}
}
