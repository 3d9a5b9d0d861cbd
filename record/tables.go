package record

import (
	"strings"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/format"
)

// Control is a symbol table: the control object that owns every entry of one kind.
type Control[T Entry] struct {
	Object

	code    format.ObjectType
	Entries []T
	index   map[*Object]struct{}
}

func (c *Control[T]) Type() format.ObjectType { return c.code }

// Add appends e unless it is already present.
func (c *Control[T]) Add(e T) {
	c.index = syncIndex(c.index, c.Entries)
	if _, dup := c.index[e.Base()]; dup {
		return
	}
	c.index[e.Base()] = struct{}{}
	c.Entries = append(c.Entries, e)
}

// syncIndex returns the identity set of list. The set is rebuilt when list was changed
// without it, which is detected by a length mismatch.
func syncIndex[T Record](index map[*Object]struct{}, list []T) map[*Object]struct{} {
	if index != nil && len(index) == len(list) {
		return index
	}

	index = make(map[*Object]struct{}, len(list))
	for _, r := range list {
		index[r.Base()] = struct{}{}
	}

	return index
}

// Lookup finds an entry by name. Names compare case-insensitively.
func (c *Control[T]) Lookup(name string) (T, bool) {
	for _, e := range c.Entries {
		if strings.EqualFold(e.Entry().Name, name) {
			return e, true
		}
	}

	var zero T

	return zero, false
}

// BlockControl is the block record table. It also references the two layout blocks, which
// are not listed among its entries.
type BlockControl struct {
	Control[*BlockRecord]

	ModelSpace *BlockRecord
	PaperSpace *BlockRecord
}

// LineTypeControl is the line type table. ByBlock and ByLayer are referenced separately
// from the listed entries.
type LineTypeControl struct {
	Control[*LineType]

	ByBlock *LineType
	ByLayer *LineType
}

type (
	LayerControl = Control[*Layer]
	StyleControl = Control[*TextStyle]
)

func NewBlockControl() *BlockControl {
	return &BlockControl{Control: Control[*BlockRecord]{code: format.ObjectBlockControl}}
}

func NewLayerControl() *LayerControl {
	return &LayerControl{code: format.ObjectLayerControl}
}

func NewStyleControl() *StyleControl {
	return &StyleControl{code: format.ObjectStyleControl}
}

func NewLineTypeControl() *LineTypeControl {
	return &LineTypeControl{Control: Control[*LineType]{code: format.ObjectLTypeControl}}
}

// Names of the two layout block records.
const (
	ModelSpaceName = "*Model_Space"
	PaperSpaceName = "*Paper_Space"
)

// BlockRecord is a block definition. Entities lists the records between Block and End.
type BlockRecord struct {
	TableEntry

	Anonymous     bool
	HasAttributes bool
	IsXRef        bool
	IsOverlaid    bool
	IsLoadedXRef  bool
	BasePoint     bitstream.Vector3
	XRefPath      string
	Description   string
	Preview       []byte
	Units         int16
	Explodable    bool
	Scaling       uint8

	Block    *Block
	End      *EndBlock
	Entities []Entity
	Inserts  []uint64
	Layout   uint64

	entities map[*Object]struct{}
}

func (*BlockRecord) Type() format.ObjectType { return format.ObjectBlockHeader }

// AddEntity appends e to the entity list unless it is already there.
func (b *BlockRecord) AddEntity(e Entity) {
	b.entities = syncIndex(b.entities, b.Entities)
	if _, dup := b.entities[e.Base()]; dup {
		return
	}
	b.entities[e.Base()] = struct{}{}
	b.Entities = append(b.Entities, e)
}

type Layer struct {
	TableEntry

	Frozen      bool
	Off         bool
	FrozenInNew bool
	Locked      bool
	Plotting    bool
	LineWeight  uint8
	Color       bitstream.Color
	LineType    *LineType
	PlotStyle   uint64
	Material    uint64
}

func (*Layer) Type() format.ObjectType { return format.ObjectLayer }

type TextStyle struct {
	TableEntry

	Vertical    bool
	ShapeFile   bool
	FixedHeight float64
	WidthFactor float64
	Oblique     float64
	Generation  uint8
	LastHeight  float64
	FontName    string
	BigFontName string
}

func (*TextStyle) Type() format.ObjectType { return format.ObjectStyle }

// Dash is one element of a line type pattern.
type Dash struct {
	Length     float64
	ShapeCode  int16
	Offset     bitstream.Vector2
	Scale      float64
	Rotation   float64
	ShapeFlags int16
	ShapeFile  uint64
}

// Dash shape flag holding text in the line type's string area.
const DashHasText int16 = 0x2

type LineType struct {
	TableEntry

	Description   string
	PatternLength float64
	Alignment     uint8
	Dashes        []Dash
	StringArea    []byte
}

func (*LineType) Type() format.ObjectType { return format.ObjectLType }
