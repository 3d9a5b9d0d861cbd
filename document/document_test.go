package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/handlemap"
	"github.com/arloliu/dwgkit/record"
)

var testVersions = []format.Version{
	format.VersionR14, format.VersionR2000, format.VersionR2004,
	format.VersionR2007, format.VersionR2010, format.VersionR2018,
}

func object(h uint64, owner record.Record) record.Object {
	return record.Object{Handle: h, Owner: owner}
}

func entry(h uint64, owner record.Record, name string) record.TableEntry {
	return record.TableEntry{Object: object(h, owner), Name: name, XRefIndex: -1}
}

func common(h uint64, mode uint8, owner record.Record, layer *record.Layer) record.EntityCommon {
	c := record.EntityCommon{
		Object:        object(h, nil),
		Mode:          mode,
		Layer:         layer,
		LineTypeFlags: record.FlagsByLayer,
		Color:         bitstream.Color{Index: 256},
		LineTypeScale: 1,
	}
	if mode == record.ModeOwned {
		c.Owner = owner
	}

	return c
}

// sampleDocument builds a small drawing with every supported kind: the four tables, model and
// paper space, a user block and a root dictionary.
func sampleDocument(t *testing.T, v format.Version) *Document {
	t.Helper()

	doc := New(v, bitstream.CodePageANSI1252)
	add := func(recs ...record.Record) {
		for _, rec := range recs {
			require.NoError(t, doc.Add(rec))
		}
	}

	blocks := record.NewBlockControl()
	blocks.Handle = 0x1
	layers := record.NewLayerControl()
	layers.Handle = 0x2
	styles := record.NewStyleControl()
	styles.Handle = 0x3
	ltypes := record.NewLineTypeControl()
	ltypes.Handle = 0x5

	root := &record.Dictionary{Object: object(0xC, nil)}
	groups := &record.Dictionary{Object: object(0xD, root)}
	root.Set("ACAD_GROUP", groups)

	byBlock := &record.LineType{TableEntry: entry(0x14, ltypes, "ByBlock")}
	byLayer := &record.LineType{TableEntry: entry(0x15, ltypes, "ByLayer")}
	continuous := &record.LineType{TableEntry: entry(0x16, ltypes, "Continuous"), Description: "Solid line"}
	ltypes.ByBlock, ltypes.ByLayer = byBlock, byLayer
	ltypes.Add(continuous)

	layer0 := &record.Layer{TableEntry: entry(0x10, layers, "0"), Color: bitstream.Color{Index: 7}, LineType: continuous}
	layers.Add(layer0)
	standard := &record.TextStyle{TableEntry: entry(0x11, styles, "Standard"), WidthFactor: 1, LastHeight: 2.5, FontName: "txt"}
	styles.Add(standard)

	model := &record.BlockRecord{TableEntry: entry(0x1F, blocks, record.ModelSpaceName)}
	paper := &record.BlockRecord{TableEntry: entry(0x1B, blocks, record.PaperSpaceName)}
	door := &record.BlockRecord{TableEntry: entry(0x30, blocks, "DOOR"), BasePoint: bitstream.Vector3{X: 1}}
	blocks.ModelSpace, blocks.PaperSpace = model, paper
	blocks.Add(door)

	model.Block = &record.Block{EntityCommon: common(0x20, record.ModeOwned, model, layer0), Name: record.ModelSpaceName}
	model.End = &record.EndBlock{EntityCommon: common(0x21, record.ModeOwned, model, layer0)}
	paper.Block = &record.Block{EntityCommon: common(0x1C, record.ModeOwned, paper, layer0), Name: record.PaperSpaceName}
	paper.End = &record.EndBlock{EntityCommon: common(0x1D, record.ModeOwned, paper, layer0)}
	door.Block = &record.Block{EntityCommon: common(0x31, record.ModeOwned, door, layer0), Name: "DOOR"}
	door.End = &record.EndBlock{EntityCommon: common(0x32, record.ModeOwned, door, layer0)}

	line := &record.Line{EntityCommon: common(0x22, record.ModeModel, nil, layer0), End: bitstream.Vector3{X: 10, Y: 10}, Extrusion: bitstream.DefaultExtrusion}
	circle := &record.Circle{EntityCommon: common(0x23, record.ModeModel, nil, layer0), Center: bitstream.Vector3{X: 5, Y: 5}, Radius: 2, Extrusion: bitstream.DefaultExtrusion}
	text := &record.Text{EntityCommon: common(0x24, record.ModeModel, nil, layer0), Height: 2.5, WidthFactor: 1, Value: "door", Extrusion: bitstream.DefaultExtrusion, Style: standard}
	point := &record.Point{EntityCommon: common(0x25, record.ModePaper, nil, layer0), Location: bitstream.Vector3{X: 1, Y: 1}, Extrusion: bitstream.DefaultExtrusion}
	arc := &record.Arc{EntityCommon: common(0x33, record.ModeOwned, door, layer0), Radius: 0.9, EndAngle: 1.5, Extrusion: bitstream.DefaultExtrusion}

	model.AddEntity(line)
	model.AddEntity(circle)
	model.AddEntity(text)
	paper.AddEntity(point)
	door.AddEntity(arc)

	add(blocks, layers, styles, ltypes, root, groups, byBlock, byLayer, continuous, layer0, standard,
		model, paper, door, model.Block, model.End, paper.Block, paper.End, door.Block, door.End,
		line, circle, text, point, arc)
	doc.Collect()

	return doc
}

func serialize(t *testing.T, doc *Document, v format.Version) ([]byte, *handlemap.Map) {
	t.Helper()

	objects, m, err := Serializer{Version: v, CodePage: doc.CodePage}.Serialize(context.Background(), doc)
	require.NoError(t, err)

	return objects, m
}

func build(t *testing.T, objects []byte, m *handlemap.Map, cfg Config) (*Document, *diag.Collector) {
	t.Helper()

	collector := diag.NewCollector(nil, nil)
	cfg.Diagnostics = collector
	b := NewBuilder(objects, m, cfg)
	require.NoError(t, b.Parse(context.Background()))
	doc, err := b.Resolve(context.Background())
	require.NoError(t, err)

	return doc, collector
}

func entityHandles(ents []record.Entity) []uint64 {
	out := make([]uint64, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Base().Handle)
	}

	return out
}

func TestDocument_RoundTrip(t *testing.T) {
	for _, v := range testVersions {
		t.Run(v.String(), func(t *testing.T) {
			src := sampleDocument(t, v)
			objects, m := serialize(t, src, v)
			require.Equal(t, src.Len(), m.Len())

			doc, collector := build(t, objects, m, Config{Version: v, CodePage: src.CodePage})
			require.Zero(t, collector.Len(), "%v", collector.All())
			require.Equal(t, src.Handles(), doc.Handles())

			require.NotNil(t, doc.BlockRecords)
			require.NotNil(t, doc.Layers)
			require.NotNil(t, doc.Styles)
			require.NotNil(t, doc.LineTypes)
			require.NotNil(t, doc.RootDictionary)
			require.Equal(t, uint64(0xC), doc.RootDictionary.Handle)

			groups, ok := doc.RootDictionary.Lookup("ACAD_GROUP")
			require.True(t, ok)
			require.Equal(t, uint64(0xD), groups.Base().Handle)
			require.Same(t, doc.RootDictionary, groups.Base().Owner)

			layer0, ok := doc.Layers.Lookup("0")
			require.True(t, ok)
			require.Len(t, doc.Layers.Entries, 1)
			require.Same(t, doc.Layers, layer0.Owner)
			require.Equal(t, "Continuous", layer0.LineType.Name)

			require.Len(t, doc.LineTypes.Entries, 1)
			require.Equal(t, "ByBlock", doc.LineTypes.ByBlock.Name)
			require.Equal(t, "ByLayer", doc.LineTypes.ByLayer.Name)
			_, ok = doc.Styles.Lookup("STANDARD")
			require.True(t, ok)

			model := doc.ModelSpaceBlock()
			require.NotNil(t, model)
			require.Equal(t, []uint64{0x22, 0x23, 0x24}, entityHandles(model.Entities))
			require.Equal(t, uint64(0x20), model.Block.Handle)
			require.Equal(t, uint64(0x21), model.End.Handle)
			require.Equal(t, []uint64{0x25}, entityHandles(doc.PaperSpaceBlock().Entities))

			require.Len(t, doc.BlockRecords.Entries, 1)
			door := doc.BlockRecords.Entries[0]
			require.Equal(t, "DOOR", door.Name)
			require.Equal(t, []uint64{0x33}, entityHandles(door.Entities))
			require.Same(t, door, door.Entities[0].Base().Owner)

			require.Equal(t, []uint64{0x22, 0x23, 0x24}, entityHandles(doc.ModelSpace))
			require.Equal(t, []uint64{0x25}, entityHandles(doc.PaperSpace))

			rec, ok := doc.Record(0x24)
			require.True(t, ok)
			text := rec.(*record.Text)
			require.Equal(t, "door", text.Value)
			require.Same(t, layer0, text.Layer)
			require.Equal(t, "Standard", text.Style.Name)
		})
	}
}

func TestDocument_ReserializeIsStable(t *testing.T) {
	for _, v := range testVersions {
		t.Run(v.String(), func(t *testing.T) {
			objects, m := serialize(t, sampleDocument(t, v), v)
			doc, _ := build(t, objects, m, Config{Version: v, CodePage: bitstream.CodePageANSI1252})

			again, m2 := serialize(t, doc, v)
			require.Equal(t, objects, again)
			require.Equal(t, m.Entries(), m2.Entries())
		})
	}
}

func TestResolve_ExactlyOneDiagnosticForDanglingHandle(t *testing.T) {
	v := format.VersionR2004
	src := sampleDocument(t, v)
	ghost := &record.Layer{TableEntry: entry(0x99, nil, "ghost")}
	stray := &record.Line{EntityCommon: common(0x40, record.ModeModel, nil, ghost), Extrusion: bitstream.DefaultExtrusion}
	require.NoError(t, src.Add(stray))

	objects, m := serialize(t, src, v)
	doc, collector := build(t, objects, m, Config{Version: v})

	require.Equal(t, 1, collector.Len())
	d := collector.All()[0]
	require.Equal(t, diag.KindUnresolvedReference, d.Kind)
	require.Equal(t, uint64(0x40), d.Handle)
	require.ErrorIs(t, d.Err, errs.ErrUnresolvedHandle)

	rec, ok := doc.Record(0x40)
	require.True(t, ok)
	require.Nil(t, rec.(*record.Line).Layer)
	require.Len(t, doc.Diagnostics(), 1)
}

func TestBuilder_UnknownRecords(t *testing.T) {
	v := format.VersionR2010
	src := sampleDocument(t, v)
	objects, m := serialize(t, src, v)

	dropped, collector := build(t, objects, m, Config{Version: v, Factory: &record.Factory{}})
	require.Zero(t, dropped.Len())
	require.Equal(t, src.Len(), collector.Count(diag.KindUnknownType))
	require.ErrorIs(t, collector.All()[0].Err, errs.ErrUnknownObjectType)

	kept, collector := build(t, objects, m, Config{Version: v, Factory: &record.Factory{}, KeepUnknown: true})
	require.Equal(t, src.Len(), kept.Len())
	require.Zero(t, collector.Count(diag.KindUnresolvedReference))
	rec, ok := kept.Record(0x22)
	require.True(t, ok)
	require.IsType(t, &record.Unknown{}, rec)

	again, _ := serialize(t, kept, v)
	require.Equal(t, objects, again)

	collector = diag.NewCollector(nil, nil)
	other, m2, err := Serializer{Version: format.VersionR2018, Diagnostics: collector}.Serialize(context.Background(), kept)
	require.NoError(t, err)
	require.Len(t, other, ObjectsPrefixSize(format.VersionR2018))
	require.Zero(t, m2.Len())
	require.Equal(t, src.Len(), collector.Count(diag.KindUnknownType))
}

func TestBuilder_BadRecords(t *testing.T) {
	v := format.VersionR2000
	objects, m := serialize(t, sampleDocument(t, v), v)

	entries := m.Entries()
	offsets := make(map[uint64]int64, len(entries))
	for _, e := range entries {
		offsets[e.Handle] = e.Offset
	}
	broken := []handlemap.Entry{
		{Handle: 0x22, Offset: offsets[0x23]},
		{Handle: 0x23, Offset: offsets[0x23]},
		{Handle: 0x50, Offset: int64(len(objects)) + 10},
	}
	bm, err := handlemap.New(broken)
	require.NoError(t, err)

	collector := diag.NewCollector(nil, nil)
	b := NewBuilder(objects, bm, Config{Version: v, Diagnostics: collector})
	require.NoError(t, b.Parse(context.Background()))
	require.Equal(t, 1, b.Len())
	require.Equal(t, 1, collector.Count(diag.KindStructural))
	require.Equal(t, 1, collector.Count(diag.KindDecode))

	all := collector.All()
	require.ErrorIs(t, all[0].Err, errs.ErrHandleMismatch)
	require.ErrorIs(t, all[1].Err, errs.ErrInvalidObjectSize)
}

func TestBuilder_ObjectsMagic(t *testing.T) {
	v := format.VersionR2004
	objects, m := serialize(t, sampleDocument(t, v), v)
	objects[0] ^= 0xFF

	_, collector := build(t, objects, m, Config{Version: v})
	require.Equal(t, 1, collector.Count(diag.KindStructural))
	require.ErrorIs(t, collector.All()[0].Err, errs.ErrInvalidSentinel)
}

func TestBuilder_Cancelled(t *testing.T) {
	v := format.VersionR2004
	objects, m := serialize(t, sampleDocument(t, v), v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(objects, m, Config{Version: v})
	require.ErrorIs(t, b.Parse(ctx), context.Canceled)

	b = NewBuilder(objects, m, Config{Version: v})
	require.NoError(t, b.Parse(context.Background()))
	_, err := b.Resolve(ctx)
	require.ErrorIs(t, err, context.Canceled)

	_, _, err = Serializer{Version: v}.Serialize(ctx, sampleDocument(t, v))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDocument_Add(t *testing.T) {
	doc := New(format.VersionR2018, 0)
	require.ErrorIs(t, doc.Add(&record.Line{}), errs.ErrZeroHandleDelta)

	line := &record.Line{EntityCommon: common(0x10, record.ModeModel, nil, nil)}
	require.NoError(t, doc.Add(line))
	require.ErrorIs(t, doc.Add(line), errs.ErrDuplicateHandle)

	doc.Collect()
	require.Equal(t, []record.Entity{line}, doc.ModelSpace)
	require.Nil(t, doc.ModelSpaceBlock())

	for h, rec := range doc.All() {
		require.Equal(t, uint64(0x10), h)
		require.Same(t, line, rec)
	}

	_, _, err := Serializer{Version: format.VersionR2018}.Serialize(context.Background(), nil)
	require.ErrorIs(t, err, errs.ErrNilDocument)
}
