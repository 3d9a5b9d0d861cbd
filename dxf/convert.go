package dxf

import (
	"fmt"
	"math"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/record"
)

// pairs accumulates the pair stream of one document.
type pairs []Pair

func (p *pairs) str(code int, s string) { *p = append(*p, String(code, s)) }
func (p *pairs) dbl(code int, f float64) { *p = append(*p, Double(code, f)) }
func (p *pairs) integer(code int, i int64) { *p = append(*p, Int(code, i)) }
func (p *pairs) flag(code int, b bool) { *p = append(*p, Bool(code, b)) }
func (p *pairs) handle(code int, h uint64) { *p = append(*p, Handle(code, h)) }

// small writes a bool as the int16 flag most codes in the 270-289 range use.
func (p *pairs) small(code int, b bool) {
	var i int64
	if b {
		i = 1
	}
	p.integer(code, i)
}

func (p *pairs) point(code int, v bitstream.Vector3) {
	p.dbl(code, v.X)
	p.dbl(code+10, v.Y)
	p.dbl(code+20, v.Z)
}

func (p *pairs) ref(code int, rec record.Record) {
	if rec != nil {
		p.handle(code, rec.Base().Handle)
	}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Pairs converts the resolved tables, blocks, entities and dictionaries of doc into a DXF pair
// stream ending with the EOF marker. Records of kinds without a DXF mapping are skipped.
func Pairs(doc *document.Document) []Pair {
	var p pairs

	p.header(doc)
	p.classes(doc)
	p.tables(doc)
	p.blocks(doc)

	p.section("ENTITIES")
	for _, e := range doc.ModelSpace {
		p.entity(e, doc.ModelSpaceBlock())
	}
	for _, e := range doc.PaperSpace {
		p.entity(e, doc.PaperSpaceBlock())
	}
	p.str(0, "ENDSEC")

	p.section("OBJECTS")
	for _, rec := range doc.All() {
		if d, ok := rec.(*record.Dictionary); ok {
			p.dictionary(d)
		}
	}
	p.str(0, "ENDSEC")
	p.str(0, "EOF")

	return p
}

// Encode writes the pair stream of doc to w. The caller flushes w.
func Encode(w *Writer, doc *document.Document) error {
	return w.WriteAll(Pairs(doc)...)
}

func (p *pairs) section(name string) {
	p.str(0, "SECTION")
	p.str(2, name)
}

func (p *pairs) header(doc *document.Document) {
	p.section("HEADER")
	p.str(9, "$ACADVER")
	p.str(1, doc.Version.Tag())
	p.str(9, "$ACADMAINTVER")
	p.integer(70, int64(doc.Maintenance))
	if doc.CodePage != 0 {
		p.str(9, "$DWGCODEPAGE")
		p.str(3, fmt.Sprintf("ANSI_%d", codePageNumber(doc.CodePage)))
	}
	var seed uint64
	if hs := doc.Handles(); len(hs) > 0 {
		seed = hs[len(hs)-1] + 1
	}
	p.str(9, "$HANDSEED")
	p.handle(5, seed)
	p.str(0, "ENDSEC")
}

// codePageNumber maps the ANSI drawing code pages to their Windows numbers.
func codePageNumber(id uint16) int {
	switch {
	case id >= bitstream.CodePageANSI1250 && id <= bitstream.CodePageANSI1252:
		return 1250 + int(id-bitstream.CodePageANSI1250)
	case id >= bitstream.CodePageANSI1253 && id <= bitstream.CodePageANSI1257:
		return 1253 + int(id-bitstream.CodePageANSI1253)
	case id == bitstream.CodePageANSI874:
		return 874
	default:
		return 1252
	}
}

func (p *pairs) classes(doc *document.Document) {
	p.section("CLASSES")
	for _, c := range doc.Classes {
		p.str(0, "CLASS")
		p.str(1, c.DXFName)
		p.str(2, c.CppName)
		p.str(3, c.AppName)
		p.integer(90, int64(c.ProxyFlags))
		p.integer(91, int64(c.InstanceCount))
		p.small(280, c.WasZombie)
		p.small(281, c.IsEntity)
	}
	p.str(0, "ENDSEC")
}

func (p *pairs) table(name string, h uint64, n int, entries func()) {
	p.str(0, "TABLE")
	p.str(2, name)
	p.handle(5, h)
	p.handle(330, 0)
	p.str(100, "AcDbSymbolTable")
	p.integer(70, int64(n))
	entries()
	p.str(0, "ENDTAB")
}

func (p *pairs) entry(kind, subclass string, e *record.TableEntry) {
	p.str(0, kind)
	p.handle(5, e.Handle)
	p.ref(330, e.Owner)
	p.str(100, "AcDbSymbolTableRecord")
	p.str(100, subclass)
	p.str(2, e.Name)
}

func entryFlags(e *record.TableEntry) int64 {
	var f int64
	if e.XRefDep {
		f |= 16
	}
	if e.Referenced {
		f |= 64
	}

	return f
}

func (p *pairs) tables(doc *document.Document) {
	p.section("TABLES")

	if lt := doc.LineTypes; lt != nil {
		all := make([]*record.LineType, 0, len(lt.Entries)+2)
		for _, l := range []*record.LineType{lt.ByBlock, lt.ByLayer} {
			if l != nil {
				all = append(all, l)
			}
		}
		all = append(all, lt.Entries...)
		p.table("LTYPE", lt.Handle, len(all), func() {
			for _, l := range all {
				p.lineType(l)
			}
		})
	}

	if layers := doc.Layers; layers != nil {
		p.table("LAYER", layers.Handle, len(layers.Entries), func() {
			for _, l := range layers.Entries {
				p.layer(l)
			}
		})
	}

	if styles := doc.Styles; styles != nil {
		p.table("STYLE", styles.Handle, len(styles.Entries), func() {
			for _, s := range styles.Entries {
				p.style(s)
			}
		})
	}

	if blocks := doc.BlockRecords; blocks != nil {
		all := layoutBlocks(doc)
		p.table("BLOCK_RECORD", blocks.Handle, len(all), func() {
			for _, b := range all {
				p.entry("BLOCK_RECORD", "AcDbBlockTableRecord", &b.TableEntry)
				p.integer(70, int64(b.Units))
				p.small(280, b.Explodable)
				p.integer(281, int64(b.Scaling))
			}
		})
	}

	p.str(0, "ENDSEC")
}

func (p *pairs) lineType(l *record.LineType) {
	p.entry("LTYPE", "AcDbLinetypeTableRecord", &l.TableEntry)
	p.integer(70, entryFlags(&l.TableEntry))
	p.str(3, l.Description)
	p.integer(72, int64(l.Alignment))
	p.integer(73, int64(len(l.Dashes)))
	p.dbl(40, l.PatternLength)
	for _, d := range l.Dashes {
		p.dbl(49, d.Length)
		p.integer(74, int64(d.ShapeFlags))
	}
}

func (p *pairs) layer(l *record.Layer) {
	flags := entryFlags(&l.TableEntry)
	if l.Frozen {
		flags |= 1
	}
	if l.FrozenInNew {
		flags |= 2
	}
	if l.Locked {
		flags |= 4
	}
	color := int64(l.Color.Index)
	if l.Off {
		color = -color
	}
	lineType := "Continuous"
	if l.LineType != nil {
		lineType = l.LineType.Name
	}

	p.entry("LAYER", "AcDbLayerTableRecord", &l.TableEntry)
	p.integer(70, flags)
	p.integer(62, color)
	p.str(6, lineType)
	p.flag(290, l.Plotting)
	p.integer(370, int64(int8(l.LineWeight)))
}

func (p *pairs) style(s *record.TextStyle) {
	flags := entryFlags(&s.TableEntry)
	if s.ShapeFile {
		flags |= 1
	}
	if s.Vertical {
		flags |= 4
	}

	p.entry("STYLE", "AcDbTextStyleTableRecord", &s.TableEntry)
	p.integer(70, flags)
	p.dbl(40, s.FixedHeight)
	p.dbl(41, s.WidthFactor)
	p.dbl(50, degrees(s.Oblique))
	p.integer(71, int64(s.Generation))
	p.dbl(42, s.LastHeight)
	p.str(3, s.FontName)
	p.str(4, s.BigFontName)
}

// layoutBlocks returns model space, paper space and the other block records.
func layoutBlocks(doc *document.Document) []*record.BlockRecord {
	var all []*record.BlockRecord
	for _, b := range []*record.BlockRecord{doc.ModelSpaceBlock(), doc.PaperSpaceBlock()} {
		if b != nil {
			all = append(all, b)
		}
	}

	return append(all, doc.BlockRecords.Entries...)
}

func (p *pairs) blocks(doc *document.Document) {
	p.section("BLOCKS")
	if doc.BlockRecords != nil {
		model, paper := doc.ModelSpaceBlock(), doc.PaperSpaceBlock()
		for _, b := range layoutBlocks(doc) {
			if b.Block != nil {
				p.common("BLOCK", b.Block, b)
				p.str(100, "AcDbBlockBegin")
				p.str(2, b.Name)
				p.integer(70, 0)
				p.point(10, b.BasePoint)
				p.str(3, b.Name)
				p.str(1, b.XRefPath)
			}
			// Layout entities are written to the ENTITIES section.
			if b != model && b != paper {
				for _, e := range b.Entities {
					p.entity(e, b)
				}
			}
			if b.End != nil {
				p.common("ENDBLK", b.End, b)
				p.str(100, "AcDbBlockEnd")
			}
		}
	}
	p.str(0, "ENDSEC")
}

// common writes the entity header. owner stands in for entities whose owner is implied by
// their layout mode.
func (p *pairs) common(kind string, e record.Entity, owner *record.BlockRecord) {
	c := e.Entity()
	p.str(0, kind)
	p.handle(5, c.Handle)
	switch {
	case c.Owner != nil:
		p.ref(330, c.Owner)
	case owner != nil:
		p.handle(330, owner.Handle)
	}
	p.str(100, "AcDbEntity")
	if c.Mode == record.ModePaper {
		p.integer(67, 1)
	}
	layer := "0"
	if c.Layer != nil {
		layer = c.Layer.Name
	}
	p.str(8, layer)
	switch {
	case c.LineTypeFlags == record.FlagsByHandle && c.LineType != nil:
		p.str(6, c.LineType.Name)
	case c.LineTypeFlags == record.FlagsByBlock:
		p.str(6, "ByBlock")
	case c.LineTypeFlags == record.FlagsContinue:
		p.str(6, "Continuous")
	}
	if c.Color.Index != 256 {
		p.integer(62, int64(c.Color.Index))
	}
	if c.LineTypeScale != 1 {
		p.dbl(48, c.LineTypeScale)
	}
	if c.Invisible {
		p.integer(60, 1)
	}
}

func (p *pairs) extrusion(v bitstream.Vector3) {
	if v != bitstream.DefaultExtrusion {
		p.point(210, v)
	}
}

func (p *pairs) entity(e record.Entity, owner *record.BlockRecord) {
	switch x := e.(type) {
	case *record.Line:
		p.common("LINE", x, owner)
		p.str(100, "AcDbLine")
		p.dbl(39, x.Thickness)
		p.point(10, x.Start)
		p.point(11, x.End)
		p.extrusion(x.Extrusion)
	case *record.Circle:
		p.common("CIRCLE", x, owner)
		p.str(100, "AcDbCircle")
		p.dbl(39, x.Thickness)
		p.point(10, x.Center)
		p.dbl(40, x.Radius)
		p.extrusion(x.Extrusion)
	case *record.Arc:
		p.common("ARC", x, owner)
		p.str(100, "AcDbCircle")
		p.dbl(39, x.Thickness)
		p.point(10, x.Center)
		p.dbl(40, x.Radius)
		p.extrusion(x.Extrusion)
		p.str(100, "AcDbArc")
		p.dbl(50, degrees(x.StartAngle))
		p.dbl(51, degrees(x.EndAngle))
	case *record.Point:
		p.common("POINT", x, owner)
		p.str(100, "AcDbPoint")
		p.point(10, x.Location)
		p.dbl(39, x.Thickness)
		p.extrusion(x.Extrusion)
		p.dbl(50, degrees(x.XAxisAngle))
	case *record.Text:
		p.common("TEXT", x, owner)
		p.str(100, "AcDbText")
		p.dbl(39, x.Thickness)
		p.point(10, bitstream.Vector3{X: x.Insertion.X, Y: x.Insertion.Y, Z: x.Elevation})
		p.dbl(40, x.Height)
		p.str(1, x.Value)
		p.dbl(50, degrees(x.Rotation))
		p.dbl(41, x.WidthFactor)
		p.dbl(51, degrees(x.Oblique))
		if x.Style != nil {
			p.str(7, x.Style.Name)
		}
		p.integer(71, int64(x.Generation))
		p.integer(72, int64(x.HorizontalAlignment))
		p.point(11, bitstream.Vector3{X: x.Alignment.X, Y: x.Alignment.Y, Z: x.Elevation})
		p.extrusion(x.Extrusion)
		p.str(100, "AcDbText")
		p.integer(73, int64(x.VerticalAlignment))
	}
}

func (p *pairs) dictionary(d *record.Dictionary) {
	p.str(0, "DICTIONARY")
	p.handle(5, d.Handle)
	if d.Owner != nil {
		p.ref(330, d.Owner)
	} else {
		p.handle(330, 0)
	}
	p.str(100, "AcDbDictionary")
	p.small(280, d.HardOwner)
	p.integer(281, int64(d.CloningFlags))
	for _, e := range d.Entries {
		if e.Value == nil {
			continue
		}
		p.str(3, e.Name)
		code := 350
		if d.HardOwner {
			code = 360
		}
		p.handle(code, e.Value.Base().Handle)
	}
}
