package template

import (
	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Line type string area sizes.
const (
	stringAreaR13   = 256
	stringAreaR2007 = 512
)

func decodeControl[T record.Record](b *Base[T], s *bitstream.Streams) []uint64 {
	b.decodeObject(s)
	n := readCount(s)
	b.decodeOwnership(s, true)

	return readHandles(s, b.rec.Base().Handle, n)
}

func encodeControl[T record.Record](b *Base[T], w *bitstream.StreamsWriter, entries []uint64) {
	b.encodeObject(w)
	w.Data.WriteBitLong(int32(len(entries)))
	b.encodeOwnership(w, true)
	for _, h := range entries {
		w.WriteHandle(bitstream.HandleSoftOwner, h)
	}
}

// Control decodes the layer and text style tables.
type Control[E record.Entry] struct {
	Base[*record.Control[E]]

	Entries []uint64
}

func (*Control[E]) Stage() Stage { return StageControl }

func (c *Control[E]) Decode(s *bitstream.Streams) error {
	c.Entries = decodeControl(&c.Base, s)
	return s.Err()
}

func (c *Control[E]) Encode(w *bitstream.StreamsWriter) error {
	encodeControl(&c.Base, w, c.Entries)
	return w.Data.Err()
}

func (c *Control[E]) Resolve(r Resolver) {
	c.resolveObject(r)
	for _, e := range lookupAll[E](r, c.rec.Handle, "table entry", c.Entries) {
		c.rec.Add(e)
	}
}

func (c *Control[E]) Capture() {
	c.captureObject()
	c.Entries = handlesOf(c.rec.Entries)
}

// BlockControl decodes the block record table and its two layout block references.
type BlockControl struct {
	Base[*record.BlockControl]

	Entries    []uint64
	ModelSpace uint64
	PaperSpace uint64
}

func (*BlockControl) Stage() Stage { return StageControl }

func (c *BlockControl) Decode(s *bitstream.Streams) error {
	c.Entries = decodeControl(&c.Base, s)
	c.ModelSpace = s.ReadHandleRef(c.rec.Handle)
	c.PaperSpace = s.ReadHandleRef(c.rec.Handle)

	return s.Err()
}

func (c *BlockControl) Encode(w *bitstream.StreamsWriter) error {
	encodeControl(&c.Base, w, c.Entries)
	w.WriteHandle(bitstream.HandleHardOwner, c.ModelSpace)
	w.WriteHandle(bitstream.HandleHardOwner, c.PaperSpace)

	return w.Data.Err()
}

func (c *BlockControl) Resolve(r Resolver) {
	c.resolveObject(r)
	x := c.rec
	for _, e := range lookupAll[*record.BlockRecord](r, x.Handle, "block record", c.Entries) {
		x.Add(e)
	}
	x.ModelSpace = Lookup[*record.BlockRecord](r, x.Handle, "model space", c.ModelSpace)
	x.PaperSpace = Lookup[*record.BlockRecord](r, x.Handle, "paper space", c.PaperSpace)
}

func (c *BlockControl) Capture() {
	c.captureObject()
	c.Entries = handlesOf(c.rec.Entries)
	c.ModelSpace = handleOf(c.rec.ModelSpace)
	c.PaperSpace = handleOf(c.rec.PaperSpace)
}

// LineTypeControl decodes the line type table and its ByBlock and ByLayer references.
type LineTypeControl struct {
	Base[*record.LineTypeControl]

	Entries []uint64
	ByBlock uint64
	ByLayer uint64
}

func (*LineTypeControl) Stage() Stage { return StageControl }

func (c *LineTypeControl) Decode(s *bitstream.Streams) error {
	c.Entries = decodeControl(&c.Base, s)
	c.ByBlock = s.ReadHandleRef(c.rec.Handle)
	c.ByLayer = s.ReadHandleRef(c.rec.Handle)

	return s.Err()
}

func (c *LineTypeControl) Encode(w *bitstream.StreamsWriter) error {
	encodeControl(&c.Base, w, c.Entries)
	w.WriteHandle(bitstream.HandleHardOwner, c.ByBlock)
	w.WriteHandle(bitstream.HandleHardOwner, c.ByLayer)

	return w.Data.Err()
}

func (c *LineTypeControl) Resolve(r Resolver) {
	c.resolveObject(r)
	x := c.rec
	for _, e := range lookupAll[*record.LineType](r, x.Handle, "line type", c.Entries) {
		x.Add(e)
	}
	x.ByBlock = Lookup[*record.LineType](r, x.Handle, "by-block line type", c.ByBlock)
	x.ByLayer = Lookup[*record.LineType](r, x.Handle, "by-layer line type", c.ByLayer)
}

func (c *LineTypeControl) Capture() {
	c.captureObject()
	c.Entries = handlesOf(c.rec.Entries)
	c.ByBlock = handleOf(c.rec.ByBlock)
	c.ByLayer = handleOf(c.rec.ByLayer)
}

// BlockRecord decodes a block header. Before R2004 its entities are a linked chain from First
// to Last; later versions list them as owned handles.
type BlockRecord struct {
	entry[*record.BlockRecord]

	First   uint64
	Last    uint64
	Owned   []uint64
	Block   uint64
	End     uint64
	Inserts []uint64
	chained bool
}

func (*BlockRecord) Stage() Stage { return StageBlockRecord }

func (b *BlockRecord) Decode(s *bitstream.Streams) error {
	b.decodeEntry(s)
	x, d, v := b.rec, s.Data, s.Version()

	x.Anonymous = d.ReadBit()
	x.HasAttributes = d.ReadBit()
	x.IsXRef = d.ReadBit()
	x.IsOverlaid = d.ReadBit()
	if v.AtLeast(format.VersionR2000) {
		x.IsLoadedXRef = d.ReadBit()
	}
	owned := 0
	if v.AtLeast(format.VersionR2004) {
		owned = readCount(s)
	}
	x.BasePoint = d.Read3BitDouble()
	x.XRefPath = s.ReadText()

	inserts := 0
	if v.AtLeast(format.VersionR2000) {
		for d.ReadRawChar() != 0 && d.Err() == nil {
			inserts++
		}
		x.Description = s.ReadText()
		size := d.ReadBitLong()
		x.Preview = nil
		if size != 0 {
			x.Preview = d.ReadBytes(int(size))
		}
	}
	if v.AtLeast(format.VersionR2007) {
		x.Units = d.ReadBitShort()
		x.Explodable = d.ReadBit()
		x.Scaling = d.ReadRawChar()
	}

	b.decodeEntryHandles(s)
	h := x.Handle
	b.Block = s.ReadHandleRef(h)
	b.chained = v.Before(format.VersionR2004)
	b.First, b.Last, b.Owned = 0, 0, nil
	if !x.IsXRef && !x.IsOverlaid {
		if b.chained {
			b.First = s.ReadHandleRef(h)
			b.Last = s.ReadHandleRef(h)
		} else {
			b.Owned = readHandles(s, h, owned)
		}
	}
	b.End = s.ReadHandleRef(h)
	b.Inserts = nil
	if v.AtLeast(format.VersionR2000) {
		b.Inserts = readHandles(s, h, inserts)
		x.Layout = s.ReadHandleRef(h)
	}
	x.Inserts = b.Inserts

	return s.Err()
}

func (b *BlockRecord) Encode(w *bitstream.StreamsWriter) error {
	b.encodeEntry(w)
	x, d, v := b.rec, w.Data, w.Data.Version()

	d.WriteBit(x.Anonymous)
	d.WriteBit(x.HasAttributes)
	d.WriteBit(x.IsXRef)
	d.WriteBit(x.IsOverlaid)
	if v.AtLeast(format.VersionR2000) {
		d.WriteBit(x.IsLoadedXRef)
	}
	if v.AtLeast(format.VersionR2004) {
		d.WriteBitLong(int32(len(b.Owned)))
	}
	d.Write3BitDouble(x.BasePoint)
	w.WriteText(x.XRefPath)

	if v.AtLeast(format.VersionR2000) {
		for range b.Inserts {
			d.WriteRawChar(1)
		}
		d.WriteRawChar(0)
		w.WriteText(x.Description)
		d.WriteBitLong(int32(len(x.Preview)))
		d.WriteBytes(x.Preview)
	}
	if v.AtLeast(format.VersionR2007) {
		d.WriteBitShort(x.Units)
		d.WriteBit(x.Explodable)
		d.WriteRawChar(x.Scaling)
	}

	b.encodeEntryHandles(w)
	w.WriteHandle(bitstream.HandleHardOwner, b.Block)
	if !x.IsXRef && !x.IsOverlaid {
		if v.Before(format.VersionR2004) {
			w.WriteHandle(bitstream.HandleSoftPointer, b.First)
			w.WriteHandle(bitstream.HandleSoftPointer, b.Last)
		} else {
			for _, h := range b.Owned {
				w.WriteHandle(bitstream.HandleHardOwner, h)
			}
		}
	}
	w.WriteHandle(bitstream.HandleHardOwner, b.End)
	if v.AtLeast(format.VersionR2000) {
		for _, h := range b.Inserts {
			w.WriteHandle(bitstream.HandleSoftPointer, h)
		}
		w.WriteHandle(bitstream.HandleSoftPointer, x.Layout)
	}

	return d.Err()
}

func (b *BlockRecord) Resolve(r Resolver) {
	resolveEntry(&b.Base, r, func(owner record.Record, e *record.BlockRecord) bool {
		c, ok := owner.(*record.BlockControl)
		if !ok {
			return false
		}
		if c.ModelSpace != e && c.PaperSpace != e {
			c.Add(e)
		}

		return true
	})

	x := b.rec
	x.Block = Lookup[*record.Block](r, x.Handle, "block entity", b.Block)
	x.End = Lookup[*record.EndBlock](r, x.Handle, "end block entity", b.End)
	if b.chained {
		b.walkChain(r)
		return
	}
	for _, e := range lookupAll[record.Entity](r, x.Handle, "owned entity", b.Owned) {
		x.AddEntity(e)
	}
}

// walkChain collects the entities linked from First. It stops after Last, at a null or
// unknown link, or when a handle repeats.
func (b *BlockRecord) walkChain(r Resolver) {
	x := b.rec
	seen := make(map[uint64]struct{})
	for h := b.First; h != 0; {
		if _, dup := seen[h]; dup {
			r.Diagnostics().Warn(diag.KindStructural, format.SectionObjects, x.Handle, errs.ErrOwnershipCycle,
				"entity chain revisits 0x%X", h)

			return
		}
		seen[h] = struct{}{}

		if e := Lookup[record.Entity](r, x.Handle, "chained entity", h); e != nil {
			x.AddEntity(e)
		}
		if h == b.Last {
			return
		}

		t, ok := r.Template(h)
		if !ok {
			return
		}
		l, ok := t.(Linked)
		if !ok {
			return
		}
		_, next, noLinks := l.Links()
		if noLinks {
			next = h + 1
		}
		h = next
	}
}

func (b *BlockRecord) Capture() {
	b.captureObject()
	x := b.rec
	b.Block = handleOf(x.Block)
	b.End = handleOf(x.End)
	b.Owned = handlesOf(x.Entities)
	b.First, b.Last = 0, 0
	if n := len(x.Entities); n > 0 {
		b.First = handleOf(x.Entities[0])
		b.Last = handleOf(x.Entities[n-1])
	}
	b.Inserts = x.Inserts
}

type Layer struct {
	entry[*record.Layer]

	LineType uint64
}

// Layer flag bits from R2000.
const (
	layerFrozen      = 0x01
	layerOff         = 0x02
	layerFrozenInNew = 0x04
	layerLocked      = 0x08
	layerPlotting    = 0x10
	layerWeightShift = 5
	layerWeightMask  = 0x1F
)

func (l *Layer) Decode(s *bitstream.Streams) error {
	l.decodeEntry(s)
	x, d, v := l.rec, s.Data, s.Version()

	if v.Before(format.VersionR2000) {
		x.Frozen = d.ReadBit()
		x.Off = !d.ReadBit()
		x.FrozenInNew = d.ReadBit()
		x.Locked = d.ReadBit()
	} else {
		flags := d.ReadBitShort()
		x.Frozen = flags&layerFrozen != 0
		x.Off = flags&layerOff != 0
		x.FrozenInNew = flags&layerFrozenInNew != 0
		x.Locked = flags&layerLocked != 0
		x.Plotting = flags&layerPlotting != 0
		x.LineWeight = uint8(flags>>layerWeightShift) & layerWeightMask
	}
	x.Color = s.ReadColor()

	l.decodeEntryHandles(s)
	h := x.Handle
	x.PlotStyle, x.Material = 0, 0
	if v.AtLeast(format.VersionR2000) {
		x.PlotStyle = s.ReadHandleRef(h)
	}
	if v.AtLeast(format.VersionR2007) {
		x.Material = s.ReadHandleRef(h)
	}
	l.LineType = s.ReadHandleRef(h)

	return s.Err()
}

func (l *Layer) Encode(w *bitstream.StreamsWriter) error {
	l.encodeEntry(w)
	x, d, v := l.rec, w.Data, w.Data.Version()

	if v.Before(format.VersionR2000) {
		d.WriteBit(x.Frozen)
		d.WriteBit(!x.Off)
		d.WriteBit(x.FrozenInNew)
		d.WriteBit(x.Locked)
	} else {
		var flags int16
		if x.Frozen {
			flags |= layerFrozen
		}
		if x.Off {
			flags |= layerOff
		}
		if x.FrozenInNew {
			flags |= layerFrozenInNew
		}
		if x.Locked {
			flags |= layerLocked
		}
		if x.Plotting {
			flags |= layerPlotting
		}
		flags |= int16(x.LineWeight&layerWeightMask) << layerWeightShift
		d.WriteBitShort(flags)
	}
	w.WriteColor(x.Color)

	l.encodeEntryHandles(w)
	if v.AtLeast(format.VersionR2000) {
		w.WriteHandle(bitstream.HandleHardPointer, x.PlotStyle)
	}
	if v.AtLeast(format.VersionR2007) {
		w.WriteHandle(bitstream.HandleHardPointer, x.Material)
	}
	w.WriteHandle(bitstream.HandleHardPointer, l.LineType)

	return d.Err()
}

func (l *Layer) Resolve(r Resolver) {
	resolveEntry(&l.Base, r, func(owner record.Record, e *record.Layer) bool {
		c, ok := owner.(*record.LayerControl)
		if ok {
			c.Add(e)
		}

		return ok
	})
	l.rec.LineType = Lookup[*record.LineType](r, l.rec.Handle, "line type", l.LineType)
}

func (l *Layer) Capture() {
	l.captureObject()
	l.LineType = handleOf(l.rec.LineType)
}

type TextStyle struct {
	entry[*record.TextStyle]
}

func (t *TextStyle) Decode(s *bitstream.Streams) error {
	t.decodeEntry(s)
	x, d := t.rec, s.Data
	x.Vertical = d.ReadBit()
	x.ShapeFile = d.ReadBit()
	x.FixedHeight = d.ReadBitDouble()
	x.WidthFactor = d.ReadBitDouble()
	x.Oblique = d.ReadBitDouble()
	x.Generation = d.ReadRawChar()
	x.LastHeight = d.ReadBitDouble()
	x.FontName = s.ReadText()
	x.BigFontName = s.ReadText()
	t.decodeEntryHandles(s)

	return s.Err()
}

func (t *TextStyle) Encode(w *bitstream.StreamsWriter) error {
	t.encodeEntry(w)
	x, d := t.rec, w.Data
	d.WriteBit(x.Vertical)
	d.WriteBit(x.ShapeFile)
	d.WriteBitDouble(x.FixedHeight)
	d.WriteBitDouble(x.WidthFactor)
	d.WriteBitDouble(x.Oblique)
	d.WriteRawChar(x.Generation)
	d.WriteBitDouble(x.LastHeight)
	w.WriteText(x.FontName)
	w.WriteText(x.BigFontName)
	t.encodeEntryHandles(w)

	return d.Err()
}

func (t *TextStyle) Resolve(r Resolver) {
	resolveEntry(&t.Base, r, func(owner record.Record, e *record.TextStyle) bool {
		c, ok := owner.(*record.StyleControl)
		if ok {
			c.Add(e)
		}

		return ok
	})
}

func (t *TextStyle) Capture() { t.captureObject() }

type LineType struct {
	entry[*record.LineType]
}

// stringAreaSize returns the size of the line type text area for version v.
func stringAreaSize(v format.Version, dashes []record.Dash) int {
	if v.Before(format.VersionR2007) {
		return stringAreaR13
	}
	for _, d := range dashes {
		if d.ShapeFlags&record.DashHasText != 0 {
			return stringAreaR2007
		}
	}

	return 0
}

func (l *LineType) Decode(s *bitstream.Streams) error {
	l.decodeEntry(s)
	x, d := l.rec, s.Data
	x.Description = s.ReadText()
	x.PatternLength = d.ReadBitDouble()
	x.Alignment = d.ReadRawChar()

	n := int(d.ReadRawChar())
	x.Dashes = make([]record.Dash, n)
	for i := range x.Dashes {
		dash := &x.Dashes[i]
		dash.Length = d.ReadBitDouble()
		dash.ShapeCode = d.ReadBitShort()
		dash.Offset = bitstream.Vector2{X: d.ReadRawDouble(), Y: d.ReadRawDouble()}
		dash.Scale = d.ReadBitDouble()
		dash.Rotation = d.ReadBitDouble()
		dash.ShapeFlags = d.ReadBitShort()
	}
	x.StringArea = nil
	if size := stringAreaSize(s.Version(), x.Dashes); size > 0 {
		x.StringArea = d.ReadBytes(size)
	}

	l.decodeEntryHandles(s)
	for i := range x.Dashes {
		x.Dashes[i].ShapeFile = s.ReadHandleRef(x.Handle)
	}

	return s.Err()
}

func (l *LineType) Encode(w *bitstream.StreamsWriter) error {
	l.encodeEntry(w)
	x, d := l.rec, w.Data
	if len(x.Dashes) > 0xFF {
		return errs.ErrRecordNotEncodable
	}

	w.WriteText(x.Description)
	d.WriteBitDouble(x.PatternLength)
	d.WriteRawChar(x.Alignment)
	d.WriteRawChar(uint8(len(x.Dashes)))
	for _, dash := range x.Dashes {
		d.WriteBitDouble(dash.Length)
		d.WriteBitShort(dash.ShapeCode)
		d.WriteRawDouble(dash.Offset.X)
		d.WriteRawDouble(dash.Offset.Y)
		d.WriteBitDouble(dash.Scale)
		d.WriteBitDouble(dash.Rotation)
		d.WriteBitShort(dash.ShapeFlags)
	}
	if size := stringAreaSize(d.Version(), x.Dashes); size > 0 {
		area := make([]byte, size)
		copy(area, x.StringArea)
		d.WriteBytes(area)
	}

	l.encodeEntryHandles(w)
	for _, dash := range x.Dashes {
		w.WriteHandle(bitstream.HandleHardPointer, dash.ShapeFile)
	}

	return d.Err()
}

func (l *LineType) Resolve(r Resolver) {
	resolveEntry(&l.Base, r, func(owner record.Record, e *record.LineType) bool {
		c, ok := owner.(*record.LineTypeControl)
		if !ok {
			return false
		}
		if c.ByBlock != e && c.ByLayer != e {
			c.Add(e)
		}

		return true
	})
}

func (l *LineType) Capture() { l.captureObject() }
