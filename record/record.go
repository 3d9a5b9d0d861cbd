// Package record defines the live records of a resolved drawing.
//
// Records reference each other with Go pointers once a document has been resolved. Handles
// that point at kinds this package does not model are kept as raw values.
package record

import (
	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/format"
)

// Record is any object stored in a drawing.
type Record interface {
	// Base returns the data shared by every object.
	Base() *Object
	// Type returns the object type code.
	Type() format.ObjectType
}

// Entity is a record with entity common data.
type Entity interface {
	Record
	Entity() *EntityCommon
}

// Entry is a named table entry.
type Entry interface {
	Record
	Entry() *TableEntry
}

// ExtendedData is one application's extended entity data, kept as stored.
type ExtendedData struct {
	AppID uint64
	Data  []byte
}

// Object holds the fields every record carries.
type Object struct {
	Handle       uint64
	Owner        Record
	XDictionary  *Dictionary
	Reactors     []Record
	ExtendedData []ExtendedData
}

func (o *Object) Base() *Object { return o }

// Entity space modes.
const (
	ModeOwned uint8 = 0
	ModePaper uint8 = 1
	ModeModel uint8 = 2
)

// Line type and plot style reference flags. Only FlagsByHandle carries a handle.
const (
	FlagsByLayer  uint8 = 0
	FlagsByBlock  uint8 = 1
	FlagsContinue uint8 = 2
	FlagsByHandle uint8 = 3
)

// EntityCommon holds the fields shared by graphical records.
type EntityCommon struct {
	Object

	Mode          uint8
	Graphics      []byte
	Layer         *Layer
	LineType      *LineType
	LineTypeFlags uint8
	Color         bitstream.Color
	ColorBook     uint64
	Transparency  uint32
	LineTypeScale float64
	Invisible     bool
	LineWeight    uint8

	PlotStyleFlags uint8
	PlotStyle      uint64
	MaterialFlags  uint8
	Material       uint64
	ShadowFlags    uint8
	VisualStyles   [3]uint64
}

func (e *EntityCommon) Entity() *EntityCommon { return e }

// TableEntry holds the fields shared by symbol table entries.
type TableEntry struct {
	Object

	Name       string
	Referenced bool
	XRefIndex  int16
	XRefDep    bool
	XRefBlock  uint64
}

func (e *TableEntry) Entry() *TableEntry { return e }

// Unknown preserves a record of a type this package does not model.
type Unknown struct {
	Object

	Code       format.ObjectType
	ClassName  string
	Raw        []byte
	HandleBits uint64
	Version    format.Version
}

func (u *Unknown) Type() format.ObjectType { return u.Code }
