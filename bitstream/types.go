package bitstream

// Vector2 is a 2D point or vector.
type Vector2 struct {
	X, Y float64
}

// Vector3 is a 3D point or vector.
type Vector3 struct {
	X, Y, Z float64
}

// DefaultExtrusion is the extrusion direction encoded by a single bit in BE fields.
var DefaultExtrusion = Vector3{Z: 1}

// Handle is a raw handle reference: a 4-bit code and the value that followed it.
type Handle struct {
	Code  uint8
	Value uint64
}

// Handle reference codes.
const (
	HandleSoftOwner    uint8 = 0x2
	HandleHardOwner    uint8 = 0x3
	HandleSoftPointer  uint8 = 0x4
	HandleHardPointer  uint8 = 0x5
	HandlePlusOne      uint8 = 0x6
	HandleMinusOne     uint8 = 0x8
	HandlePlusOffset   uint8 = 0xA
	HandleMinusOffset  uint8 = 0xC
	handleMaxByteCount       = 8
)

// Resolve returns the absolute handle value, interpreting relative codes against ref.
func (h Handle) Resolve(ref uint64) uint64 {
	switch h.Code {
	case HandlePlusOne:
		return ref + 1
	case HandleMinusOne:
		return ref - 1
	case HandlePlusOffset:
		return ref + h.Value
	case HandleMinusOffset:
		return ref - h.Value
	default:
		return h.Value
	}
}

// Color is a CMC color. Only Index is stored before R2004.
type Color struct {
	Index    int16
	RGB      uint32
	Flags    uint8
	Name     string
	BookName string
}

// Color flag bits.
const (
	ColorHasName     uint8 = 0x1
	ColorHasBookName uint8 = 0x2
)
