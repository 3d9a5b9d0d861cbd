package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/handlemap"
	"github.com/arloliu/dwgkit/internal/pool"
	"github.com/arloliu/dwgkit/record"
	"github.com/arloliu/dwgkit/template"
)

// ObjectsMagic is the RL that starts the objects stream from R2004.
const ObjectsMagic uint32 = 0x0DCA

// ObjectsPrefixSize returns the number of bytes before the first record of an objects stream.
func ObjectsPrefixSize(v format.Version) int {
	if v.AtLeast(format.VersionR2004) {
		return 4
	}

	return 0
}

// Serializer writes the records of a document as an objects stream.
type Serializer struct {
	Version     format.Version
	CodePage    uint16
	Diagnostics *diag.Collector
}

// Serialize encodes every record of doc in handle order.
//
// Before R2004 the entities of each block record are linked into a chain in the order of
// BlockRecord.Entities. Records of unknown types are written back unchanged when they were
// read from the same version and dropped with a diagnostic otherwise.
//
// Returns:
//   - []byte: the objects stream
//   - *handlemap.Map: record offsets relative to the start of the stream
//   - error: an encoding failure or the context error
func (s Serializer) Serialize(ctx context.Context, doc *Document) ([]byte, *handlemap.Map, error) {
	if doc == nil {
		return nil, nil, errs.ErrNilDocument
	}

	handles := doc.Handles()
	templates := make(map[uint64]template.Template, len(handles))
	for _, h := range handles {
		t := template.For(doc.records[h])
		t.Capture()
		templates[h] = t
	}
	if s.Version.Before(format.VersionR2004) {
		linkChains(doc, templates)
	}

	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)

	if ObjectsPrefixSize(s.Version) > 0 {
		buf.MustWrite(endian.GetLittleEndianEngine().AppendUint32(nil, ObjectsMagic))
	}

	entries := make([]handlemap.Entry, 0, len(handles))
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		t := templates[h]
		data, err := template.WriteRecord(t, s.Version, s.CodePage)
		if errors.Is(err, errs.ErrRecordNotEncodable) {
			s.Diagnostics.Warn(diag.KindUnknownType, format.SectionObjects, h, err, "record dropped")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("record 0x%X: %w", h, err)
		}

		entries = append(entries, handlemap.Entry{Handle: h, Offset: int64(buf.Len())})
		buf.MustWrite(data)
	}

	m, err := handlemap.New(entries)
	if err != nil {
		return nil, nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, m, nil
}

// linkChains stores the previous and next entity of every block record member.
func linkChains(doc *Document, templates map[uint64]template.Template) {
	for _, rec := range doc.All() {
		br, ok := rec.(*record.BlockRecord)
		if !ok {
			continue
		}
		for i, e := range br.Entities {
			l, ok := templates[e.Base().Handle].(template.Linked)
			if !ok {
				continue
			}
			var prev, next uint64
			if i > 0 {
				prev = br.Entities[i-1].Base().Handle
			}
			if i < len(br.Entities)-1 {
				next = br.Entities[i+1].Base().Handle
			}
			l.SetLinks(prev, next)
		}
	}
}
