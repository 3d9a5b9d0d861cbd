package template

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

var allVersions = []format.Version{
	format.VersionR13, format.VersionR14, format.VersionR2000, format.VersionR2004,
	format.VersionR2007, format.VersionR2010, format.VersionR2013, format.VersionR2018,
}

type fakeResolver struct {
	records   map[uint64]record.Record
	templates map[uint64]Template
	diag      *diag.Collector
}

func newResolver(recs ...record.Record) *fakeResolver {
	r := &fakeResolver{
		records:   make(map[uint64]record.Record),
		templates: make(map[uint64]Template),
		diag:      diag.NewCollector(nil, nil),
	}
	for _, rec := range recs {
		r.records[rec.Base().Handle] = rec
	}

	return r
}

func (r *fakeResolver) Record(h uint64) (record.Record, bool) {
	rec, ok := r.records[h]
	return rec, ok
}

func (r *fakeResolver) Template(h uint64) (Template, bool) {
	t, ok := r.templates[h]
	return t, ok
}

func (r *fakeResolver) Diagnostics() *diag.Collector { return r.diag }

// decodeOnly writes tmpl and reads it back without resolving.
func decodeOnly(t *testing.T, v format.Version, tmpl Template) Template {
	t.Helper()

	data, err := WriteRecord(tmpl, v, bitstream.CodePageANSI1252)
	require.NoError(t, err)

	got, known, err := ReadRecord(data, 0, ReadConfig{
		Version:         v,
		CodePage:        bitstream.CodePageANSI1252,
		Factory:         record.NewFactory(),
		StrictChecksums: true,
	})
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, tmpl.Record().Type(), got.Record().Type())

	return got
}

// roundTrip captures rec, writes and reads it, then resolves it against res.
func roundTrip(t *testing.T, v format.Version, rec record.Record, res *fakeResolver) record.Record {
	t.Helper()

	tmpl := For(rec)
	tmpl.Capture()
	got := decodeOnly(t, v, tmpl)
	res.templates[got.Record().Base().Handle] = got
	got.Resolve(res)

	return got.Record()
}

func entityCommon(handle uint64, layer *record.Layer) record.EntityCommon {
	return record.EntityCommon{
		Object:        record.Object{Handle: handle},
		Mode:          record.ModeModel,
		Layer:         layer,
		LineTypeFlags: record.FlagsByLayer,
		Color:         bitstream.Color{Index: 256},
		LineTypeScale: 1,
	}
}

func TestEntities_RoundTrip(t *testing.T) {
	for _, v := range allVersions {
		t.Run(v.String(), func(t *testing.T) {
			layer := &record.Layer{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x10}, Name: "0"}}
			style := &record.TextStyle{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x11}, Name: "Standard"}}
			reactor := &record.Dictionary{Object: record.Object{Handle: 0x12}}
			res := newResolver(layer, style, reactor)

			line := &record.Line{
				EntityCommon: entityCommon(0x40, layer),
				Start:        bitstream.Vector3{X: 1, Y: 2},
				End:          bitstream.Vector3{X: 4, Y: 6},
				Extrusion:    bitstream.DefaultExtrusion,
			}
			line.Reactors = []record.Record{reactor}
			line.ExtendedData = []record.ExtendedData{{AppID: 0x12, Data: []byte{1, 2, 3}}}

			line3D := &record.Line{
				EntityCommon: entityCommon(0x41, layer),
				Start:        bitstream.Vector3{X: 1, Y: 2, Z: 3},
				End:          bitstream.Vector3{X: 1, Y: -2, Z: 7.5},
				Thickness:    0.25,
				Extrusion:    bitstream.Vector3{X: 0.6, Z: 0.8},
			}

			text := &record.Text{
				EntityCommon: entityCommon(0x42, layer),
				Insertion:    bitstream.Vector2{X: 10, Y: 20},
				Alignment:    bitstream.Vector2{X: 10, Y: 25},
				Extrusion:    bitstream.DefaultExtrusion,
				Rotation:     0.5,
				Height:       2.5,
				WidthFactor:  1,
				Value:        "Größe 1",
				Generation:   2,
				Style:        style,
			}

			owned := entityCommon(0x43, layer)
			owned.Mode = record.ModeOwned
			owned.Owner = reactor
			owned.Graphics = []byte{0xDE, 0xAD}

			recs := []record.Record{
				line,
				line3D,
				text,
				&record.Arc{EntityCommon: owned, Center: bitstream.Vector3{X: 5}, Radius: 2, Extrusion: bitstream.DefaultExtrusion, StartAngle: 0.1, EndAngle: 3},
				&record.Circle{EntityCommon: entityCommon(0x44, layer), Center: bitstream.Vector3{Y: -1}, Radius: 9, Extrusion: bitstream.DefaultExtrusion},
				&record.Point{EntityCommon: entityCommon(0x45, layer), Location: bitstream.Vector3{X: 1, Y: 1, Z: 1}, Extrusion: bitstream.DefaultExtrusion, XAxisAngle: 1.5},
				&record.Block{EntityCommon: entityCommon(0x46, layer), Name: "*Model_Space"},
				&record.EndBlock{EntityCommon: entityCommon(0x47, layer)},
				&record.SeqEnd{EntityCommon: entityCommon(0x48, layer)},
			}

			for _, rec := range recs {
				got := roundTrip(t, v, rec, res)
				require.Equal(t, rec, got, rec.Type().String())
			}
			require.Zero(t, res.diag.Len())
		})
	}
}

func TestEntity_ColorAndReferencesFromR2004(t *testing.T) {
	for _, v := range []format.Version{format.VersionR2004, format.VersionR2010, format.VersionR2018} {
		t.Run(v.String(), func(t *testing.T) {
			ltype := &record.LineType{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x20}, Name: "DASHED"}}
			res := newResolver(ltype)

			c := entityCommon(0x50, nil)
			c.Color = bitstream.Color{Index: 5, RGB: 0xC2FF8000}
			c.Transparency = 0x020000FF
			c.LineType = ltype
			c.LineTypeFlags = record.FlagsByHandle
			c.PlotStyleFlags = record.FlagsByHandle
			c.PlotStyle = 0x99
			c.LineWeight = 13
			if v.AtLeast(format.VersionR2010) {
				c.VisualStyles = [3]uint64{0, 0x77, 0}
				c.MaterialFlags = record.FlagsByHandle
				c.Material = 0x88
				c.ShadowFlags = 2
			}
			circle := &record.Circle{EntityCommon: c, Radius: 1, Extrusion: bitstream.DefaultExtrusion}

			got := roundTrip(t, v, circle, res)
			require.Equal(t, circle, got)
			require.Zero(t, res.diag.Len())
		})
	}
}

func TestEntity_LinksBeforeR2004(t *testing.T) {
	for _, v := range []format.Version{format.VersionR14, format.VersionR2000} {
		t.Run(v.String(), func(t *testing.T) {
			tmpl := For(&record.Point{EntityCommon: entityCommon(0x31, nil), Extrusion: bitstream.DefaultExtrusion})
			tmpl.Capture()
			tmpl.(Linked).SetLinks(0x30, 0x35)

			got := decodeOnly(t, v, tmpl)
			prev, next, noLinks := got.(Linked).Links()
			require.Equal(t, uint64(0x30), prev)
			require.Equal(t, uint64(0x35), next)
			require.False(t, noLinks)
		})
	}

	tmpl := For(&record.Point{EntityCommon: entityCommon(0x31, nil)})
	tmpl.Capture()
	got := decodeOnly(t, format.VersionR2004, tmpl)
	_, _, noLinks := got.(Linked).Links()
	require.True(t, noLinks)
}

func TestTables_RoundTrip(t *testing.T) {
	for _, v := range allVersions {
		t.Run(v.String(), func(t *testing.T) {
			layers := record.NewLayerControl()
			layers.Handle = 0x2
			styles := record.NewStyleControl()
			styles.Handle = 0x3
			ltypes := record.NewLineTypeControl()
			ltypes.Handle = 0x5
			continuous := &record.LineType{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x14, Owner: ltypes}, Name: "CONTINUOUS"}}
			byLayer := &record.LineType{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x15, Owner: ltypes}, Name: "ByLayer"}}
			res := newResolver(layers, styles, ltypes, continuous, byLayer)

			layer := &record.Layer{
				TableEntry:  record.TableEntry{Object: record.Object{Handle: 0x10, Owner: layers}, Name: "Walls", Referenced: true, XRefIndex: -1},
				Frozen:      true,
				FrozenInNew: true,
				Color:       bitstream.Color{Index: 3},
				LineType:    continuous,
			}
			got := roundTrip(t, v, layer, res)
			require.Equal(t, layer, got)
			require.Len(t, layers.Entries, 1)
			require.Same(t, got, layers.Entries[0])

			style := &record.TextStyle{
				TableEntry:  record.TableEntry{Object: record.Object{Handle: 0x11, Owner: styles}, Name: "Standard", XRefIndex: -1},
				FixedHeight: 2.5,
				WidthFactor: 0.8,
				Generation:  4,
				LastHeight:  3,
				FontName:    "txt",
			}
			got = roundTrip(t, v, style, res)
			require.Equal(t, style, got)
			require.Len(t, styles.Entries, 1)

			ltype := &record.LineType{
				TableEntry:    record.TableEntry{Object: record.Object{Handle: 0x13, Owner: ltypes}, Name: "DASHED", XRefIndex: -1},
				Description:   "__ __ __",
				PatternLength: 0.75,
				Alignment:     'A',
				Dashes: []record.Dash{
					{Length: 0.5, Scale: 1},
					{Length: -0.25, Scale: 1, ShapeFlags: record.DashHasText, Offset: bitstream.Vector2{X: 0.1, Y: -0.1}},
				},
				StringArea: []byte("GAS"),
			}
			decoded := roundTrip(t, v, ltype, res).(*record.LineType)
			require.Equal(t, ltype.Dashes, decoded.Dashes)
			require.Equal(t, ltype.Description, decoded.Description)
			require.Len(t, decoded.StringArea, stringAreaSize(v, ltype.Dashes))
			require.Equal(t, []byte("GAS"), decoded.StringArea[:3])

			ltypes.ByLayer = byLayer
			ltypes.Entries = nil
			ltypes.Add(continuous)
			ctl := roundTrip(t, v, ltypes, newResolver(continuous, byLayer)).(*record.LineTypeControl)
			require.Equal(t, []*record.LineType{continuous}, ctl.Entries)
			require.Same(t, byLayer, ctl.ByLayer)
			require.Nil(t, ctl.ByBlock)
		})
	}
}

func TestBlockRecord_Entities(t *testing.T) {
	for _, v := range allVersions {
		t.Run(v.String(), func(t *testing.T) {
			blocks := record.NewBlockControl()
			blocks.Handle = 0x1
			model := &record.BlockRecord{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x1F, Owner: blocks}, Name: record.ModelSpaceName}}
			blocks.ModelSpace = model

			begin := &record.Block{EntityCommon: entityCommon(0x20, nil), Name: "DOOR"}
			end := &record.EndBlock{EntityCommon: entityCommon(0x21, nil)}
			ents := []record.Entity{
				&record.Line{EntityCommon: entityCommon(0x22, nil), Extrusion: bitstream.DefaultExtrusion},
				&record.Circle{EntityCommon: entityCommon(0x27, nil), Radius: 1, Extrusion: bitstream.DefaultExtrusion},
				&record.Point{EntityCommon: entityCommon(0x23, nil), Extrusion: bitstream.DefaultExtrusion},
			}
			res := newResolver(blocks, model, begin, end)
			for i, e := range ents {
				res.records[e.Base().Handle] = e
				tmpl := For(e)
				tmpl.Capture()
				var prev, next uint64
				if i > 0 {
					prev = ents[i-1].Base().Handle
				}
				if i < len(ents)-1 {
					next = ents[i+1].Base().Handle
				}
				tmpl.(Linked).SetLinks(prev, next)
				res.templates[e.Base().Handle] = decodeOnly(t, v, tmpl)
			}

			door := &record.BlockRecord{
				TableEntry: record.TableEntry{Object: record.Object{Handle: 0x1E, Owner: blocks}, Name: "DOOR"},
				BasePoint:  bitstream.Vector3{X: 1},
				Block:      begin,
				End:        end,
				Entities:   ents,
			}
			if v.AtLeast(format.VersionR2000) {
				door.Description = "swing door"
				door.Preview = []byte{1, 2, 3, 4}
			}
			if v.AtLeast(format.VersionR2007) {
				door.Units = 4
				door.Explodable = true
			}

			got := roundTrip(t, v, door, res).(*record.BlockRecord)
			require.Equal(t, door, got)
			require.Zero(t, res.diag.Len())
			require.Equal(t, []*record.BlockRecord{got}, blocks.Entries)

			mt := For(model)
			mt.Capture()
			gotModel := decodeOnly(t, v, mt)
			blocks.ModelSpace = gotModel.Record().(*record.BlockRecord)
			gotModel.Resolve(res)
			require.Equal(t, model, gotModel.Record())
			require.Len(t, blocks.Entries, 1)
		})
	}
}

func TestBlockRecord_ChainCycle(t *testing.T) {
	v := format.VersionR2000
	res := newResolver()
	for _, link := range [][3]uint64{{0x22, 0x23, 0}, {0x23, 0x22, 0}} {
		p := &record.Point{EntityCommon: entityCommon(link[0], nil), Extrusion: bitstream.DefaultExtrusion}
		res.records[link[0]] = p
		tmpl := For(p)
		tmpl.Capture()
		tmpl.(Linked).SetLinks(link[2], link[1])
		res.templates[link[0]] = decodeOnly(t, v, tmpl)
	}

	br := &BlockRecord{entry: entry[*record.BlockRecord]{Base: Base[*record.BlockRecord]{rec: &record.BlockRecord{}}}}
	br.First, br.Last, br.chained = 0x22, 0x99, true
	br.Resolve(res)

	require.Len(t, br.rec.Entities, 2)
	require.Equal(t, 1, res.diag.Len())
	require.ErrorIs(t, res.diag.All()[0].Err, errs.ErrOwnershipCycle)
}

func TestDictionary_RoundTrip(t *testing.T) {
	for _, v := range allVersions {
		t.Run(v.String(), func(t *testing.T) {
			groups := &record.Dictionary{Object: record.Object{Handle: 0xD}}
			layouts := &record.Dictionary{Object: record.Object{Handle: 0x1A}}
			res := newResolver(groups, layouts)

			root := &record.Dictionary{
				Object: record.Object{Handle: 0xC},
				Entries: []record.DictionaryEntry{
					{Name: "ACAD_GROUP", Value: groups},
					{Name: "ACAD_LAYOUT", Value: layouts},
				},
			}
			if v.AtLeast(format.VersionR2000) {
				root.CloningFlags = 1
				root.HardOwner = true
			}

			got := roundTrip(t, v, root, res)
			require.Equal(t, root, got)
			require.Zero(t, res.diag.Len())
		})
	}
}

func TestResolve_Diagnostics(t *testing.T) {
	layer := &record.Layer{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x10}, Name: "0"}}
	res := newResolver(layer)

	root := &record.Dictionary{
		Object: record.Object{Handle: 0xC},
		Entries: []record.DictionaryEntry{
			{Name: "GONE", Value: &record.Dictionary{Object: record.Object{Handle: 0x77}}},
			{Name: "LAYER", Value: layer},
		},
	}
	got := roundTrip(t, format.VersionR2004, root, res).(*record.Dictionary)
	require.Len(t, got.Entries, 1)
	require.Equal(t, 1, res.diag.Count(diag.KindUnresolvedReference))
	require.ErrorIs(t, res.diag.All()[0].Err, errs.ErrUnresolvedHandle)

	text := &record.Text{EntityCommon: entityCommon(0x40, nil), WidthFactor: 1, Extrusion: bitstream.DefaultExtrusion}
	text.Style = &record.TextStyle{TableEntry: record.TableEntry{Object: record.Object{Handle: 0x10}}}
	gotText := roundTrip(t, format.VersionR2004, text, res).(*record.Text)
	require.Nil(t, gotText.Style)
	require.Equal(t, 2, res.diag.Count(diag.KindUnresolvedReference))
	require.ErrorIs(t, res.diag.All()[1].Err, errs.ErrUnexpectedRecord)
}

func TestUnknown_PreservesRecord(t *testing.T) {
	line := &record.Line{EntityCommon: entityCommon(0x40, nil), End: bitstream.Vector3{X: 1}, Extrusion: bitstream.DefaultExtrusion}
	tmpl := For(line)
	tmpl.Capture()
	data, err := WriteRecord(tmpl, format.VersionR2010, 0)
	require.NoError(t, err)

	got, known, err := ReadRecord(data, 0, ReadConfig{Version: format.VersionR2010, Factory: &record.Factory{}})
	require.NoError(t, err)
	require.False(t, known)
	u, ok := got.(*Unknown)
	require.True(t, ok)
	require.Equal(t, uint64(0x40), u.Typed().Handle)
	require.Equal(t, format.ObjectLine, u.Typed().Type())
	require.Equal(t, StageOther, u.Stage())

	again, err := WriteRecord(u, format.VersionR2010, 0)
	require.NoError(t, err)
	require.Equal(t, data, again)

	_, err = WriteRecord(u, format.VersionR2018, 0)
	require.ErrorIs(t, err, errs.ErrRecordNotEncodable)
}

func TestReadRecord_Errors(t *testing.T) {
	tmpl := For(&record.Point{EntityCommon: entityCommon(0x40, nil)})
	tmpl.Capture()
	data, err := WriteRecord(tmpl, format.VersionR2000, 0)
	require.NoError(t, err)

	_, _, err = ReadRecord(data[:len(data)-4], 0, ReadConfig{Version: format.VersionR2000, Factory: record.NewFactory()})
	require.ErrorIs(t, err, errs.ErrInvalidObjectSize)

	_, _, err = ReadRecord(data, int64(len(data)), ReadConfig{Version: format.VersionR2000, Factory: record.NewFactory()})
	require.ErrorIs(t, err, errs.ErrInvalidObjectSize)

	corrupt := append([]byte(nil), data...)
	corrupt[len(corrupt)-1] ^= 0xFF
	collector := diag.NewCollector(nil, nil)
	_, _, err = ReadRecord(corrupt, 0, ReadConfig{Version: format.VersionR2000, Factory: record.NewFactory(), Diagnostics: collector})
	require.NoError(t, err)
	require.Equal(t, 1, collector.Count(diag.KindIntegrity))

	_, _, err = ReadRecord(corrupt, 0, ReadConfig{Version: format.VersionR2000, Factory: record.NewFactory(), StrictChecksums: true})
	require.ErrorIs(t, err, errs.ErrCRCMismatch)
}

func TestStage_Order(t *testing.T) {
	require.Less(t, For(record.NewLayerControl()).Stage(), For(&record.Layer{}).Stage())
	require.Less(t, For(&record.Layer{}).Stage(), For(&record.BlockRecord{}).Stage())
	require.Less(t, For(&record.BlockRecord{}).Stage(), For(&record.Line{}).Stage())
	require.Less(t, For(&record.Line{}).Stage(), For(&record.Dictionary{}).Stage())
	require.Less(t, For(&record.Dictionary{}).Stage(), For(&record.Unknown{}).Stage())
	require.Equal(t, "block-record", StageBlockRecord.String())
}
