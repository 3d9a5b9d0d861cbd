package template

import (
	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Text data flags. A set bit means the field is absent and takes its default.
const (
	textNoElevation  = 0x01
	textNoAlignment  = 0x02
	textNoOblique    = 0x04
	textNoRotation   = 0x08
	textNoWidth      = 0x10
	textNoGeneration = 0x20
	textNoHorizontal = 0x40
	textNoVertical   = 0x80
)

type Text struct {
	entity[*record.Text]

	Style uint64
}

func (t *Text) Decode(s *bitstream.Streams) error {
	t.decodeEntity(s)
	x := t.rec
	d := s.Data

	if s.Version().Before(format.VersionR2000) {
		x.Elevation = d.ReadBitDouble()
		x.Insertion = d.Read2RawDouble()
		x.Alignment = d.Read2RawDouble()
		x.Extrusion = d.Read3BitDouble()
		x.Thickness = d.ReadBitDouble()
		x.Oblique = d.ReadBitDouble()
		x.Rotation = d.ReadBitDouble()
		x.Height = d.ReadBitDouble()
		x.WidthFactor = d.ReadBitDouble()
		x.Value = s.ReadText()
		x.Generation = d.ReadBitShort()
		x.HorizontalAlignment = d.ReadBitShort()
		x.VerticalAlignment = d.ReadBitShort()
	} else {
		flags := d.ReadRawChar()
		x.Elevation = 0
		if flags&textNoElevation == 0 {
			x.Elevation = d.ReadRawDouble()
		}
		x.Insertion = d.Read2RawDouble()
		x.Alignment = bitstream.Vector2{}
		if flags&textNoAlignment == 0 {
			x.Alignment = d.Read2BitDoubleDefault(x.Insertion)
		}
		x.Extrusion = d.ReadBitExtrusion()
		x.Thickness = d.ReadBitThickness()
		x.Oblique = 0
		if flags&textNoOblique == 0 {
			x.Oblique = d.ReadRawDouble()
		}
		x.Rotation = 0
		if flags&textNoRotation == 0 {
			x.Rotation = d.ReadRawDouble()
		}
		x.Height = d.ReadRawDouble()
		x.WidthFactor = 1
		if flags&textNoWidth == 0 {
			x.WidthFactor = d.ReadRawDouble()
		}
		x.Value = s.ReadText()
		x.Generation, x.HorizontalAlignment, x.VerticalAlignment = 0, 0, 0
		if flags&textNoGeneration == 0 {
			x.Generation = d.ReadBitShort()
		}
		if flags&textNoHorizontal == 0 {
			x.HorizontalAlignment = d.ReadBitShort()
		}
		if flags&textNoVertical == 0 {
			x.VerticalAlignment = d.ReadBitShort()
		}
	}

	t.Style = s.ReadHandleRef(x.Handle)

	return s.Err()
}

func (t *Text) Encode(w *bitstream.StreamsWriter) error {
	t.encodeEntity(w)
	x := t.rec
	d := w.Data

	if d.Version().Before(format.VersionR2000) {
		d.WriteBitDouble(x.Elevation)
		d.Write2RawDouble(x.Insertion)
		d.Write2RawDouble(x.Alignment)
		d.Write3BitDouble(x.Extrusion)
		d.WriteBitDouble(x.Thickness)
		d.WriteBitDouble(x.Oblique)
		d.WriteBitDouble(x.Rotation)
		d.WriteBitDouble(x.Height)
		d.WriteBitDouble(x.WidthFactor)
		w.WriteText(x.Value)
		d.WriteBitShort(x.Generation)
		d.WriteBitShort(x.HorizontalAlignment)
		d.WriteBitShort(x.VerticalAlignment)
	} else {
		var flags uint8
		if x.Elevation == 0 {
			flags |= textNoElevation
		}
		if x.Alignment == (bitstream.Vector2{}) {
			flags |= textNoAlignment
		}
		if x.Oblique == 0 {
			flags |= textNoOblique
		}
		if x.Rotation == 0 {
			flags |= textNoRotation
		}
		if x.WidthFactor == 1 {
			flags |= textNoWidth
		}
		if x.Generation == 0 {
			flags |= textNoGeneration
		}
		if x.HorizontalAlignment == 0 {
			flags |= textNoHorizontal
		}
		if x.VerticalAlignment == 0 {
			flags |= textNoVertical
		}

		d.WriteRawChar(flags)
		if flags&textNoElevation == 0 {
			d.WriteRawDouble(x.Elevation)
		}
		d.Write2RawDouble(x.Insertion)
		if flags&textNoAlignment == 0 {
			d.Write2BitDoubleDefault(x.Insertion, x.Alignment)
		}
		d.WriteBitExtrusion(x.Extrusion)
		d.WriteBitThickness(x.Thickness)
		if flags&textNoOblique == 0 {
			d.WriteRawDouble(x.Oblique)
		}
		if flags&textNoRotation == 0 {
			d.WriteRawDouble(x.Rotation)
		}
		d.WriteRawDouble(x.Height)
		if flags&textNoWidth == 0 {
			d.WriteRawDouble(x.WidthFactor)
		}
		w.WriteText(x.Value)
		if flags&textNoGeneration == 0 {
			d.WriteBitShort(x.Generation)
		}
		if flags&textNoHorizontal == 0 {
			d.WriteBitShort(x.HorizontalAlignment)
		}
		if flags&textNoVertical == 0 {
			d.WriteBitShort(x.VerticalAlignment)
		}
	}

	w.WriteHandle(bitstream.HandleHardPointer, t.Style)

	return d.Err()
}

func (t *Text) Resolve(r Resolver) {
	t.resolveEntity(r)
	t.rec.Style = Lookup[*record.TextStyle](r, t.rec.Handle, "text style", t.Style)
}

func (t *Text) Capture() {
	t.captureEntity()
	t.Style = handleOf(t.rec.Style)
}

type Block struct {
	entity[*record.Block]
}

func (b *Block) Decode(s *bitstream.Streams) error {
	b.decodeEntity(s)
	b.rec.Name = s.ReadText()

	return s.Err()
}

func (b *Block) Encode(w *bitstream.StreamsWriter) error {
	b.encodeEntity(w)
	w.WriteText(b.rec.Name)

	return w.Data.Err()
}

func (b *Block) Resolve(r Resolver) { b.resolveEntity(r) }
func (b *Block) Capture() { b.captureEntity() }

// EndBlock and SeqEnd carry nothing beyond the entity common data.
type EndBlock struct {
	entity[*record.EndBlock]
}

func (e *EndBlock) Decode(s *bitstream.Streams) error {
	e.decodeEntity(s)
	return s.Err()
}

func (e *EndBlock) Encode(w *bitstream.StreamsWriter) error {
	e.encodeEntity(w)
	return w.Data.Err()
}

func (e *EndBlock) Resolve(r Resolver) { e.resolveEntity(r) }
func (e *EndBlock) Capture() { e.captureEntity() }

type SeqEnd struct {
	entity[*record.SeqEnd]
}

func (e *SeqEnd) Decode(s *bitstream.Streams) error {
	e.decodeEntity(s)
	return s.Err()
}

func (e *SeqEnd) Encode(w *bitstream.StreamsWriter) error {
	e.encodeEntity(w)
	return w.Data.Err()
}

func (e *SeqEnd) Resolve(r Resolver) { e.resolveEntity(r) }
func (e *SeqEnd) Capture() { e.captureEntity() }

type Arc struct {
	entity[*record.Arc]
}

func (a *Arc) Decode(s *bitstream.Streams) error {
	a.decodeEntity(s)
	x, d := a.rec, s.Data
	x.Center = d.Read3BitDouble()
	x.Radius = d.ReadBitDouble()
	x.Thickness = d.ReadBitThickness()
	x.Extrusion = d.ReadBitExtrusion()
	x.StartAngle = d.ReadBitDouble()
	x.EndAngle = d.ReadBitDouble()

	return s.Err()
}

func (a *Arc) Encode(w *bitstream.StreamsWriter) error {
	a.encodeEntity(w)
	x, d := a.rec, w.Data
	d.Write3BitDouble(x.Center)
	d.WriteBitDouble(x.Radius)
	d.WriteBitThickness(x.Thickness)
	d.WriteBitExtrusion(x.Extrusion)
	d.WriteBitDouble(x.StartAngle)
	d.WriteBitDouble(x.EndAngle)

	return d.Err()
}

func (a *Arc) Resolve(r Resolver) { a.resolveEntity(r) }
func (a *Arc) Capture() { a.captureEntity() }

type Circle struct {
	entity[*record.Circle]
}

func (c *Circle) Decode(s *bitstream.Streams) error {
	c.decodeEntity(s)
	x, d := c.rec, s.Data
	x.Center = d.Read3BitDouble()
	x.Radius = d.ReadBitDouble()
	x.Thickness = d.ReadBitThickness()
	x.Extrusion = d.ReadBitExtrusion()

	return s.Err()
}

func (c *Circle) Encode(w *bitstream.StreamsWriter) error {
	c.encodeEntity(w)
	x, d := c.rec, w.Data
	d.Write3BitDouble(x.Center)
	d.WriteBitDouble(x.Radius)
	d.WriteBitThickness(x.Thickness)
	d.WriteBitExtrusion(x.Extrusion)

	return d.Err()
}

func (c *Circle) Resolve(r Resolver) { c.resolveEntity(r) }
func (c *Circle) Capture() { c.captureEntity() }

type Line struct {
	entity[*record.Line]
}

// Decode reads the line. From R2000 the end point is stored as defaults against the start
// point and both Z values can be omitted together.
func (l *Line) Decode(s *bitstream.Streams) error {
	l.decodeEntity(s)
	x, d := l.rec, s.Data

	if s.Version().Before(format.VersionR2000) {
		x.Start = d.Read3BitDouble()
		x.End = d.Read3BitDouble()
	} else {
		zIsZero := d.ReadBit()
		x.Start.X = d.ReadRawDouble()
		x.End.X = d.ReadBitDoubleDefault(x.Start.X)
		x.Start.Y = d.ReadRawDouble()
		x.End.Y = d.ReadBitDoubleDefault(x.Start.Y)
		x.Start.Z, x.End.Z = 0, 0
		if !zIsZero {
			x.Start.Z = d.ReadRawDouble()
			x.End.Z = d.ReadBitDoubleDefault(x.Start.Z)
		}
	}
	x.Thickness = d.ReadBitThickness()
	x.Extrusion = d.ReadBitExtrusion()

	return s.Err()
}

func (l *Line) Encode(w *bitstream.StreamsWriter) error {
	l.encodeEntity(w)
	x, d := l.rec, w.Data

	if d.Version().Before(format.VersionR2000) {
		d.Write3BitDouble(x.Start)
		d.Write3BitDouble(x.End)
	} else {
		zIsZero := x.Start.Z == 0 && x.End.Z == 0
		d.WriteBit(zIsZero)
		d.WriteRawDouble(x.Start.X)
		d.WriteBitDoubleDefault(x.Start.X, x.End.X)
		d.WriteRawDouble(x.Start.Y)
		d.WriteBitDoubleDefault(x.Start.Y, x.End.Y)
		if !zIsZero {
			d.WriteRawDouble(x.Start.Z)
			d.WriteBitDoubleDefault(x.Start.Z, x.End.Z)
		}
	}
	d.WriteBitThickness(x.Thickness)
	d.WriteBitExtrusion(x.Extrusion)

	return d.Err()
}

func (l *Line) Resolve(r Resolver) { l.resolveEntity(r) }
func (l *Line) Capture() { l.captureEntity() }

type Point struct {
	entity[*record.Point]
}

func (p *Point) Decode(s *bitstream.Streams) error {
	p.decodeEntity(s)
	x, d := p.rec, s.Data
	x.Location = d.Read3BitDouble()
	x.Thickness = d.ReadBitThickness()
	x.Extrusion = d.ReadBitExtrusion()
	x.XAxisAngle = d.ReadBitDouble()

	return s.Err()
}

func (p *Point) Encode(w *bitstream.StreamsWriter) error {
	p.encodeEntity(w)
	x, d := p.rec, w.Data
	d.Write3BitDouble(x.Location)
	d.WriteBitThickness(x.Thickness)
	d.WriteBitExtrusion(x.Extrusion)
	d.WriteBitDouble(x.XAxisAngle)

	return d.Err()
}

func (p *Point) Resolve(r Resolver) { p.resolveEntity(r) }
func (p *Point) Capture() { p.captureEntity() }
