package record

import (
	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/format"
)

// Text is a single line of text.
type Text struct {
	EntityCommon

	Elevation           float64
	Insertion           bitstream.Vector2
	Alignment           bitstream.Vector2
	Extrusion           bitstream.Vector3
	Thickness           float64
	Oblique             float64
	Rotation            float64
	Height              float64
	WidthFactor         float64
	Value               string
	Generation          int16
	HorizontalAlignment int16
	VerticalAlignment   int16
	Style               *TextStyle
}

func (*Text) Type() format.ObjectType { return format.ObjectText }

// Block opens the entity list of a block record.
type Block struct {
	EntityCommon

	Name string
}

func (*Block) Type() format.ObjectType { return format.ObjectBlock }

// EndBlock closes the entity list of a block record.
type EndBlock struct {
	EntityCommon
}

func (*EndBlock) Type() format.ObjectType { return format.ObjectEndBlock }

// SeqEnd terminates a vertex or attribute sequence.
type SeqEnd struct {
	EntityCommon
}

func (*SeqEnd) Type() format.ObjectType { return format.ObjectSeqEnd }

// Arc is a circular arc. Angles are in radians.
type Arc struct {
	EntityCommon

	Center     bitstream.Vector3
	Radius     float64
	Thickness  float64
	Extrusion  bitstream.Vector3
	StartAngle float64
	EndAngle   float64
}

func (*Arc) Type() format.ObjectType { return format.ObjectArc }

type Circle struct {
	EntityCommon

	Center    bitstream.Vector3
	Radius    float64
	Thickness float64
	Extrusion bitstream.Vector3
}

func (*Circle) Type() format.ObjectType { return format.ObjectCircle }

type Line struct {
	EntityCommon

	Start     bitstream.Vector3
	End       bitstream.Vector3
	Thickness float64
	Extrusion bitstream.Vector3
}

func (*Line) Type() format.ObjectType { return format.ObjectLine }

type Point struct {
	EntityCommon

	Location   bitstream.Vector3
	Thickness  float64
	Extrusion  bitstream.Vector3
	XAxisAngle float64
}

func (*Point) Type() format.ObjectType { return format.ObjectPoint }
