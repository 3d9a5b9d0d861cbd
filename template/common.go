package template

import (
	"fmt"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Entity color flags of the R2004+ encoded color.
const (
	colorFlagRGB          = 0x8000
	colorFlagBook         = 0x4000
	colorFlagTransparency = 0x2000
	colorIndexMask        = 0x1FF
)

// Base holds the handles every object carries and the record being built.
type Base[T record.Record] struct {
	rec T

	Owner       uint64
	XDictionary uint64
	Reactors    []uint64
	xdicMissing bool
	reactors    int
}

func (b *Base[T]) Record() record.Record { return b.rec }

// Typed returns the record with its concrete type.
func (b *Base[T]) Typed() T { return b.rec }

// readHead reads the own handle and the extended data.
func readHead(r *bitstream.Reader) (uint64, []record.ExtendedData) {
	handle := r.ReadHandle().Value

	var eed []record.ExtendedData
	for {
		size := int(uint16(r.ReadBitShort()))
		if size == 0 || r.Err() != nil {
			break
		}
		app := r.ReadHandle().Value
		data := r.ReadBytes(size)
		if r.Err() != nil {
			break
		}
		eed = append(eed, record.ExtendedData{AppID: app, Data: data})
	}

	return handle, eed
}

func (b *Base[T]) decodeHead(s *bitstream.Streams) {
	o := b.rec.Base()
	o.Handle, o.ExtendedData = readHead(s.Data)
}

// skipObjectSize passes over the R13-R14 object size; the frame has already used it.
func skipObjectSize(s *bitstream.Streams) {
	if s.Version().Before(format.VersionR2000) {
		s.Data.ReadRawLong()
	}
}

func writeObjectSize(w *bitstream.StreamsWriter) {
	if w.Data.Version().Before(format.VersionR2000) {
		w.Data.WriteRawLong(int32(w.ObjectBits))
	}
}

func (b *Base[T]) encodeHead(w *bitstream.StreamsWriter) {
	o := b.rec.Base()
	w.Data.WriteHandle(0, o.Handle)
	for _, x := range o.ExtendedData {
		w.Data.WriteBitShort(int16(uint16(len(x.Data))))
		w.Data.WriteHandle(bitstream.HandleHardPointer, x.AppID)
		w.Data.WriteBytes(x.Data)
	}
	w.Data.WriteBitShort(0)
}

// decodeReactorFlags reads the reactor count and the flags that follow it.
func (b *Base[T]) decodeReactorFlags(s *bitstream.Streams) {
	b.reactors = readCount(s)
	if s.Version().AtLeast(format.VersionR2004) {
		b.xdicMissing = s.Data.ReadBit()
	}
	if s.Version().AtLeast(format.VersionR2013) {
		s.Data.ReadBit()
	}
}

func (b *Base[T]) encodeReactorFlags(w *bitstream.StreamsWriter) {
	w.Data.WriteBitLong(int32(len(b.Reactors)))
	if w.Data.Version().AtLeast(format.VersionR2004) {
		w.Data.WriteBit(b.XDictionary == 0)
	}
	if w.Data.Version().AtLeast(format.VersionR2013) {
		w.Data.WriteBit(false)
	}
}

// decodeObject reads the common data of a non-graphical object.
func (b *Base[T]) decodeObject(s *bitstream.Streams) {
	b.decodeHead(s)
	skipObjectSize(s)
	b.decodeReactorFlags(s)
}

func (b *Base[T]) encodeObject(w *bitstream.StreamsWriter) {
	b.encodeHead(w)
	writeObjectSize(w)
	b.encodeReactorFlags(w)
}

// decodeOwnership reads the owner, reactor and extension dictionary handles.
func (b *Base[T]) decodeOwnership(s *bitstream.Streams, hasOwner bool) {
	h := b.rec.Base().Handle
	b.Owner = 0
	if hasOwner {
		b.Owner = s.ReadHandleRef(h)
	}
	b.Reactors = readHandles(s, h, b.reactors)
	b.XDictionary = 0
	if !b.xdicMissing {
		b.XDictionary = s.ReadHandleRef(h)
	}
}

func (b *Base[T]) encodeOwnership(w *bitstream.StreamsWriter, hasOwner bool) {
	if hasOwner {
		w.WriteHandle(bitstream.HandleSoftPointer, b.Owner)
	}
	for _, r := range b.Reactors {
		w.WriteHandle(bitstream.HandleSoftPointer, r)
	}
	if w.Data.Version().Before(format.VersionR2004) || b.XDictionary != 0 {
		w.WriteHandle(bitstream.HandleHardOwner, b.XDictionary)
	}
}

func (b *Base[T]) resolveObject(r Resolver) {
	o := b.rec.Base()
	if owner := Lookup[record.Record](r, o.Handle, "owner", b.Owner); owner != nil {
		o.Owner = owner
	}
	o.Reactors = lookupAll[record.Record](r, o.Handle, "reactor", b.Reactors)
	o.XDictionary = Lookup[*record.Dictionary](r, o.Handle, "extension dictionary", b.XDictionary)
}

func (b *Base[T]) captureObject() {
	o := b.rec.Base()
	b.Owner = 0
	if !isNil(o.Owner) {
		b.Owner = o.Owner.Base().Handle
	}
	b.Reactors = handlesOf(o.Reactors)
	b.XDictionary = handleOf(o.XDictionary)
}

// entity adds the entity common data to Base.
type entity[T record.Entity] struct {
	Base[T]

	Layer     uint64
	LineType  uint64
	Prev      uint64
	Next      uint64
	noLinks   bool
	byLayerLT bool
}

func (*entity[T]) Stage() Stage { return StageEntity }

func (e *entity[T]) Links() (prev, next uint64, noLinks bool) {
	return e.Prev, e.Next, e.noLinks
}

func (e *entity[T]) SetLinks(prev, next uint64) {
	e.Prev, e.Next = prev, next
	e.noLinks = false
}

func (e *entity[T]) decodeEntity(s *bitstream.Streams) {
	c := e.rec.Entity()
	v := s.Version()
	e.decodeHead(s)

	c.Graphics = nil
	if s.Data.ReadBit() {
		var size uint64
		if v.AtLeast(format.VersionR2010) {
			size = s.Data.ReadBitLongLong()
		} else {
			size = uint64(uint32(s.Data.ReadRawLong()))
		}
		if size > uint64(s.Data.Remaining()/8) {
			s.Data.ReadBytes(-1)
		} else {
			c.Graphics = s.Data.ReadBytes(int(size))
		}
	}
	skipObjectSize(s)

	c.Mode = s.Data.Read2Bits()
	e.decodeReactorFlags(s)
	if v.Before(format.VersionR2000) {
		e.byLayerLT = s.Data.ReadBit()
	}
	e.noLinks = true
	if v.Before(format.VersionR2004) {
		e.noLinks = s.Data.ReadBit()
	}

	if v.AtLeast(format.VersionR2004) {
		e.decodeEncodedColor(s)
	} else {
		c.Color = s.Data.ReadColor()
	}
	c.LineTypeScale = s.Data.ReadBitDouble()

	c.LineTypeFlags = record.FlagsByHandle
	if v.Before(format.VersionR2000) && e.byLayerLT {
		c.LineTypeFlags = record.FlagsByLayer
	}
	if v.AtLeast(format.VersionR2000) {
		c.LineTypeFlags = s.Data.Read2Bits()
		c.PlotStyleFlags = s.Data.Read2Bits()
	}
	if v.AtLeast(format.VersionR2007) {
		c.MaterialFlags = s.Data.Read2Bits()
		c.ShadowFlags = s.Data.ReadRawChar()
	}
	var visual [3]bool
	if v.AtLeast(format.VersionR2010) {
		for i := range visual {
			visual[i] = s.Data.ReadBit()
		}
	}
	c.Invisible = s.Data.ReadBitShort()&1 != 0
	if v.AtLeast(format.VersionR2000) {
		c.LineWeight = s.Data.ReadRawChar()
	}

	e.decodeOwnership(s, c.Mode == record.ModeOwned)
	h := c.Handle
	e.Layer, e.LineType, e.Prev, e.Next = 0, 0, 0, 0
	if v.Before(format.VersionR2000) {
		e.Layer = s.ReadHandleRef(h)
		if !e.byLayerLT {
			e.LineType = s.ReadHandleRef(h)
		}
	}
	if v.Before(format.VersionR2004) && !e.noLinks {
		e.Prev = s.ReadHandleRef(h)
		e.Next = s.ReadHandleRef(h)
	}
	if v.AtLeast(format.VersionR2004) && c.ColorBook != 0 {
		c.ColorBook = s.ReadHandleRef(h)
	}
	if v.AtLeast(format.VersionR2000) {
		e.Layer = s.ReadHandleRef(h)
		if c.LineTypeFlags == record.FlagsByHandle {
			e.LineType = s.ReadHandleRef(h)
		}
	}
	c.Material = 0
	if v.AtLeast(format.VersionR2007) && c.MaterialFlags == record.FlagsByHandle {
		c.Material = s.ReadHandleRef(h)
	}
	c.PlotStyle = 0
	if v.AtLeast(format.VersionR2000) && c.PlotStyleFlags == record.FlagsByHandle {
		c.PlotStyle = s.ReadHandleRef(h)
	}
	c.VisualStyles = [3]uint64{}
	for i, set := range visual {
		if set {
			c.VisualStyles[i] = s.ReadHandleRef(h)
		}
	}
}

// decodeEncodedColor reads the R2004+ entity color: a BS of flags and index, followed by the
// RGB value and transparency when flagged. A color book reference is marked in ColorBook and
// read from the handle stream later.
func (e *entity[T]) decodeEncodedColor(s *bitstream.Streams) {
	c := e.rec.Entity()
	raw := uint16(s.Data.ReadBitShort())

	c.Color = bitstream.Color{Index: int16(raw & colorIndexMask)}
	if raw&colorFlagRGB != 0 {
		c.Color.RGB = uint32(s.Data.ReadBitLong())
	}
	c.Transparency = 0
	if raw&colorFlagTransparency != 0 {
		c.Transparency = uint32(s.Data.ReadBitLong())
	}
	c.ColorBook = 0
	if raw&colorFlagBook != 0 {
		c.ColorBook = 1
	}
}

func (e *entity[T]) encodeEntity(w *bitstream.StreamsWriter) {
	c := e.rec.Entity()
	v := w.Data.Version()
	e.encodeHead(w)

	w.Data.WriteBit(len(c.Graphics) > 0)
	if len(c.Graphics) > 0 {
		if v.AtLeast(format.VersionR2010) {
			w.Data.WriteBitLongLong(uint64(len(c.Graphics)))
		} else {
			w.Data.WriteRawLong(int32(len(c.Graphics)))
		}
		w.Data.WriteBytes(c.Graphics)
	}
	writeObjectSize(w)

	w.Data.Write2Bits(c.Mode)
	e.encodeReactorFlags(w)
	byLayerLT := c.LineTypeFlags != record.FlagsByHandle
	if v.Before(format.VersionR2000) {
		w.Data.WriteBit(byLayerLT)
	}
	if v.Before(format.VersionR2004) {
		w.Data.WriteBit(e.noLinks)
	}

	if v.AtLeast(format.VersionR2004) {
		raw := uint16(c.Color.Index) & colorIndexMask
		if c.Color.RGB != 0 {
			raw |= colorFlagRGB
		}
		if c.Transparency != 0 {
			raw |= colorFlagTransparency
		}
		if c.ColorBook != 0 {
			raw |= colorFlagBook
		}
		w.Data.WriteBitShort(int16(raw))
		if c.Color.RGB != 0 {
			w.Data.WriteBitLong(int32(c.Color.RGB))
		}
		if c.Transparency != 0 {
			w.Data.WriteBitLong(int32(c.Transparency))
		}
	} else {
		w.Data.WriteColor(c.Color)
	}
	w.Data.WriteBitDouble(c.LineTypeScale)

	if v.AtLeast(format.VersionR2000) {
		w.Data.Write2Bits(c.LineTypeFlags)
		w.Data.Write2Bits(c.PlotStyleFlags)
	}
	if v.AtLeast(format.VersionR2007) {
		w.Data.Write2Bits(c.MaterialFlags)
		w.Data.WriteRawChar(c.ShadowFlags)
	}
	if v.AtLeast(format.VersionR2010) {
		for _, h := range c.VisualStyles {
			w.Data.WriteBit(h != 0)
		}
	}
	var invisible int16
	if c.Invisible {
		invisible = 1
	}
	w.Data.WriteBitShort(invisible)
	if v.AtLeast(format.VersionR2000) {
		w.Data.WriteRawChar(c.LineWeight)
	}

	e.encodeOwnership(w, c.Mode == record.ModeOwned)
	if v.Before(format.VersionR2000) {
		w.WriteHandle(bitstream.HandleHardPointer, e.Layer)
		if !byLayerLT {
			w.WriteHandle(bitstream.HandleHardPointer, e.LineType)
		}
	}
	if v.Before(format.VersionR2004) && !e.noLinks {
		w.WriteHandle(bitstream.HandleSoftPointer, e.Prev)
		w.WriteHandle(bitstream.HandleSoftPointer, e.Next)
	}
	if v.AtLeast(format.VersionR2004) && c.ColorBook != 0 {
		w.WriteHandle(bitstream.HandleHardPointer, c.ColorBook)
	}
	if v.AtLeast(format.VersionR2000) {
		w.WriteHandle(bitstream.HandleHardPointer, e.Layer)
		if c.LineTypeFlags == record.FlagsByHandle {
			w.WriteHandle(bitstream.HandleHardPointer, e.LineType)
		}
	}
	if v.AtLeast(format.VersionR2007) && c.MaterialFlags == record.FlagsByHandle {
		w.WriteHandle(bitstream.HandleHardPointer, c.Material)
	}
	if v.AtLeast(format.VersionR2000) && c.PlotStyleFlags == record.FlagsByHandle {
		w.WriteHandle(bitstream.HandleHardPointer, c.PlotStyle)
	}
	if v.AtLeast(format.VersionR2010) {
		for _, h := range c.VisualStyles {
			if h != 0 {
				w.WriteHandle(bitstream.HandleHardPointer, h)
			}
		}
	}
}

func (e *entity[T]) resolveEntity(r Resolver) {
	c := e.rec.Entity()
	e.resolveObject(r)
	c.Layer = Lookup[*record.Layer](r, c.Handle, "layer", e.Layer)
	c.LineType = Lookup[*record.LineType](r, c.Handle, "line type", e.LineType)
}

func (e *entity[T]) captureEntity() {
	c := e.rec.Entity()
	e.captureObject()
	e.Layer = handleOf(c.Layer)
	e.LineType = handleOf(c.LineType)
}

// entry adds the table entry common data to Base.
type entry[T record.Entry] struct {
	Base[T]
}

func (*entry[T]) Stage() Stage { return StageEntry }

func (e *entry[T]) decodeEntry(s *bitstream.Streams) {
	te := e.rec.Entry()
	e.decodeObject(s)
	te.Name = s.ReadText()
	te.Referenced = s.Data.ReadBit()
	te.XRefIndex = s.Data.ReadBitShort() - 1
	te.XRefDep = s.Data.ReadBit()
}

func (e *entry[T]) decodeEntryHandles(s *bitstream.Streams) {
	te := e.rec.Entry()
	e.decodeOwnership(s, true)
	te.XRefBlock = s.ReadHandleRef(te.Handle)
}

func (e *entry[T]) encodeEntry(w *bitstream.StreamsWriter) {
	te := e.rec.Entry()
	e.encodeObject(w)
	w.WriteText(te.Name)
	w.Data.WriteBit(te.Referenced)
	w.Data.WriteBitShort(te.XRefIndex + 1)
	w.Data.WriteBit(te.XRefDep)
}

func (e *entry[T]) encodeEntryHandles(w *bitstream.StreamsWriter) {
	e.encodeOwnership(w, true)
	w.WriteHandle(bitstream.HandleHardPointer, e.rec.Entry().XRefBlock)
}

// resolveEntry resolves the common handles and registers the entry with its table.
func resolveEntry[E record.Entry](b *Base[E], r Resolver, register func(owner record.Record, e E) bool) {
	b.resolveObject(r)
	o := b.rec.Base()
	if isNil(o.Owner) {
		return
	}
	if !register(o.Owner, b.rec) {
		r.Diagnostics().Warn(diag.KindUnresolvedReference, format.SectionObjects, o.Handle,
			fmt.Errorf("%w: owner 0x%X is %s", errs.ErrUnexpectedRecord, o.Owner.Base().Handle, o.Owner.Type()),
			"table entry owner")
	}
}

// readCount reads a BL count of handles. A count that cannot fit in the handle stream fails
// the data stream.
func readCount(s *bitstream.Streams) int {
	n := s.Data.ReadBitLong()
	if n < 0 || int64(n) > s.Handles.Remaining()/8 {
		s.Data.ReadBytes(-1)
		return 0
	}

	return int(n)
}

func readHandles(s *bitstream.Streams, ref uint64, n int) []uint64 {
	if n == 0 {
		return nil
	}

	out := make([]uint64, 0, n)
	for range n {
		out = append(out, s.ReadHandleRef(ref))
		if s.Handles.Err() != nil {
			break
		}
	}

	return out
}
