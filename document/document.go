// Package document holds the resolved object graph of a drawing and the two-phase builder
// that produces it from an objects stream and a handle map.
//
// # Reading
//
// A Builder decodes every record listed in the handle map into a template (Parse), then
// resolves the handles of all templates into Go pointers in a fixed stage order (Resolve):
//
//	b := document.NewBuilder(objects, handles, document.Config{Version: v, Factory: f})
//	if err := b.Parse(ctx); err != nil { ... }
//	doc, err := b.Resolve(ctx)
//
// Resolution never fails on a bad reference. Missing or mistyped targets are reported as
// diagnostics and leave the field nil.
//
// # Writing
//
// A Serializer turns a Document back into an objects stream and a handle map.
package document

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Document is a resolved drawing: a handle-keyed store of records plus the named collections
// built from it.
type Document struct {
	Version     format.Version
	Maintenance uint8
	CodePage    uint16

	// Header is the raw header variables block.
	Header []byte
	// Classes defines the custom object types.
	Classes []Class
	// Sections keeps the raw streams of sections the document does not interpret.
	Sections map[string][]byte

	BlockRecords   *record.BlockControl
	Layers         *record.LayerControl
	Styles         *record.StyleControl
	LineTypes      *record.LineTypeControl
	RootDictionary *record.Dictionary

	// ModelSpace and PaperSpace list the entities whose entity mode places them in a layout,
	// in handle order.
	ModelSpace []record.Entity
	PaperSpace []record.Entity

	records map[uint64]record.Record
	diag    *diag.Collector
}

// New creates an empty document.
func New(version format.Version, codePage uint16) *Document {
	return &Document{
		Version:  version,
		CodePage: codePage,
		Sections: make(map[string][]byte),
		records:  make(map[uint64]record.Record),
	}
}

// Add stores rec under its handle.
//
// Returns:
//   - error: errs.ErrZeroHandleDelta for a null handle, errs.ErrDuplicateHandle when the
//     handle is taken
func (d *Document) Add(rec record.Record) error {
	h := rec.Base().Handle
	if h == 0 {
		return fmt.Errorf("%w: %s record", errs.ErrZeroHandleDelta, rec.Type())
	}
	if _, ok := d.records[h]; ok {
		return fmt.Errorf("%w: 0x%X", errs.ErrDuplicateHandle, h)
	}
	d.records[h] = rec

	return nil
}

// Record returns the record with handle h.
func (d *Document) Record(h uint64) (record.Record, bool) {
	rec, ok := d.records[h]
	return rec, ok
}

// Len returns the number of records.
func (d *Document) Len() int {
	return len(d.records)
}

// Handles returns all handles in increasing order.
func (d *Document) Handles() []uint64 {
	return slices.Sorted(maps.Keys(d.records))
}

// All iterates over the records in handle order.
func (d *Document) All() iter.Seq2[uint64, record.Record] {
	return func(yield func(uint64, record.Record) bool) {
		for _, h := range d.Handles() {
			if !yield(h, d.records[h]) {
				return
			}
		}
	}
}

// Diagnostics returns the findings collected while the document was read.
func (d *Document) Diagnostics() []diag.Diagnostic {
	return d.diag.All()
}

// ModelSpaceBlock returns the block record of the model space layout, if known.
func (d *Document) ModelSpaceBlock() *record.BlockRecord {
	if d.BlockRecords == nil {
		return nil
	}

	return d.BlockRecords.ModelSpace
}

// PaperSpaceBlock returns the block record of the active paper space layout, if known.
func (d *Document) PaperSpaceBlock() *record.BlockRecord {
	if d.BlockRecords == nil {
		return nil
	}

	return d.BlockRecords.PaperSpace
}

// Collect fills the named collections from the record store. Tables and the root dictionary
// already set are kept; the layout entity lists are rebuilt.
func (d *Document) Collect() {
	d.ModelSpace, d.PaperSpace = nil, nil
	for _, rec := range d.All() {
		switch x := rec.(type) {
		case *record.BlockControl:
			if d.BlockRecords == nil {
				d.BlockRecords = x
			}
		case *record.LayerControl:
			if d.Layers == nil {
				d.Layers = x
			}
		case *record.StyleControl:
			if d.Styles == nil {
				d.Styles = x
			}
		case *record.LineTypeControl:
			if d.LineTypes == nil {
				d.LineTypes = x
			}
		case *record.Dictionary:
			if d.RootDictionary == nil && x.Owner == nil {
				d.RootDictionary = x
			}
		case record.Entity:
			switch x.Entity().Mode {
			case record.ModeModel:
				d.ModelSpace = append(d.ModelSpace, x)
			case record.ModePaper:
				d.PaperSpace = append(d.PaperSpace, x)
			}
		}
	}
}
