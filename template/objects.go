package template

import (
	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Dictionary decodes a name to object map. Names are data, values are handles.
type Dictionary struct {
	Base[*record.Dictionary]

	Names []string
	Items []uint64
}

func (*Dictionary) Stage() Stage { return StageDictionary }

func (t *Dictionary) Decode(s *bitstream.Streams) error {
	t.decodeObject(s)
	x, d, v := t.rec, s.Data, s.Version()

	n := readCount(s)
	if v == format.VersionR14 {
		d.ReadRawChar()
	}
	if v.AtLeast(format.VersionR2000) {
		x.CloningFlags = d.ReadBitShort()
		x.HardOwner = d.ReadRawChar() != 0
	}
	t.Names = make([]string, 0, n)
	for range n {
		t.Names = append(t.Names, s.ReadText())
	}

	t.decodeOwnership(s, true)
	t.Items = readHandles(s, x.Handle, n)

	return s.Err()
}

func (t *Dictionary) Encode(w *bitstream.StreamsWriter) error {
	t.encodeObject(w)
	x, d, v := t.rec, w.Data, w.Data.Version()

	d.WriteBitLong(int32(len(t.Items)))
	if v == format.VersionR14 {
		d.WriteRawChar(0)
	}
	if v.AtLeast(format.VersionR2000) {
		d.WriteBitShort(x.CloningFlags)
		var hard uint8
		if x.HardOwner {
			hard = 1
		}
		d.WriteRawChar(hard)
	}
	for _, name := range t.Names {
		w.WriteText(name)
	}

	t.encodeOwnership(w, true)
	code := bitstream.HandleSoftOwner
	if x.HardOwner {
		code = bitstream.HandleHardOwner
	}
	for _, h := range t.Items {
		w.WriteHandle(code, h)
	}

	return d.Err()
}

// Resolve fills the entries. An item that does not resolve is dropped with its name.
func (t *Dictionary) Resolve(r Resolver) {
	t.resolveObject(r)
	x := t.rec
	x.Entries = x.Entries[:0]
	for i, h := range t.Items {
		if i >= len(t.Names) {
			break
		}
		if rec := Lookup[record.Record](r, x.Handle, "dictionary entry "+t.Names[i], h); rec != nil {
			x.Entries = append(x.Entries, record.DictionaryEntry{Name: t.Names[i], Value: rec})
		}
	}
}

func (t *Dictionary) Capture() {
	t.captureObject()
	t.Names = t.Names[:0]
	t.Items = t.Items[:0]
	for _, e := range t.rec.Entries {
		t.Names = append(t.Names, e.Name)
		t.Items = append(t.Items, handleOf(e.Value))
	}
}

// Unknown keeps a record of an unsupported type. Only the own handle is decoded; the record
// bytes are kept by the frame and written back unchanged.
type Unknown struct {
	Base[*record.Unknown]
}

func (*Unknown) Stage() Stage { return StageOther }

func (u *Unknown) Decode(s *bitstream.Streams) error {
	u.rec.Handle = s.Data.ReadHandle().Value
	return s.Data.Err()
}

func (u *Unknown) Encode(*bitstream.StreamsWriter) error {
	return errs.ErrRecordNotEncodable
}

func (u *Unknown) Resolve(Resolver) {}

func (u *Unknown) Capture() {}
