// Package template decodes and encodes object records.
//
// A Template is a record under construction: the scalar fields are decoded straight into the
// record while every cross reference is held as a raw handle. Resolve later replaces the
// handles with live records, and Capture does the reverse before a record is encoded.
package template

import (
	"fmt"
	"reflect"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// Stage orders templates during resolution.
type Stage uint8

const (
	StageControl Stage = iota
	StageEntry
	StageBlockRecord
	StageEntity
	StageDictionary
	StageOther
)

func (s Stage) String() string {
	switch s {
	case StageControl:
		return "control"
	case StageEntry:
		return "entry"
	case StageBlockRecord:
		return "block-record"
	case StageEntity:
		return "entity"
	case StageDictionary:
		return "dictionary"
	default:
		return "other"
	}
}

// Template is one object record between decoding and resolution.
type Template interface {
	// Record returns the record the template fills in.
	Record() record.Record
	// Stage returns the resolution stage of the record kind.
	Stage() Stage
	// Decode reads the record body from its streams.
	Decode(s *bitstream.Streams) error
	// Encode writes the record body.
	Encode(w *bitstream.StreamsWriter) error
	// Resolve turns the stored handles into live records.
	Resolve(r Resolver)
	// Capture stores the handles of the records referenced by the record.
	Capture()
}

// Linked is implemented by entity templates, which can carry previous and next entity links
// before R2004.
type Linked interface {
	// Links returns the stored links. When noLinks is set the neighbours are the adjacent
	// handles.
	Links() (prev, next uint64, noLinks bool)
	// SetLinks stores explicit links for encoding.
	SetLinks(prev, next uint64)
}

// Resolver looks up records and templates by handle during resolution.
type Resolver interface {
	Record(handle uint64) (record.Record, bool)
	Template(handle uint64) (Template, bool)
	Diagnostics() *diag.Collector
}

// New creates the template for code using f. Codes without a registered kind produce an
// *Unknown template.
func New(code format.ObjectType, f *record.Factory) (Template, bool) {
	rec, ok := f.New(code)
	return For(rec), ok
}

// For wraps rec in the template of its kind.
func For(rec record.Record) Template {
	switch r := rec.(type) {
	case *record.Text:
		return &Text{entity: entity[*record.Text]{Base: Base[*record.Text]{rec: r}}}
	case *record.Block:
		return &Block{entity: entity[*record.Block]{Base: Base[*record.Block]{rec: r}}}
	case *record.EndBlock:
		return &EndBlock{entity: entity[*record.EndBlock]{Base: Base[*record.EndBlock]{rec: r}}}
	case *record.SeqEnd:
		return &SeqEnd{entity: entity[*record.SeqEnd]{Base: Base[*record.SeqEnd]{rec: r}}}
	case *record.Arc:
		return &Arc{entity: entity[*record.Arc]{Base: Base[*record.Arc]{rec: r}}}
	case *record.Circle:
		return &Circle{entity: entity[*record.Circle]{Base: Base[*record.Circle]{rec: r}}}
	case *record.Line:
		return &Line{entity: entity[*record.Line]{Base: Base[*record.Line]{rec: r}}}
	case *record.Point:
		return &Point{entity: entity[*record.Point]{Base: Base[*record.Point]{rec: r}}}
	case *record.Dictionary:
		return &Dictionary{Base: Base[*record.Dictionary]{rec: r}}
	case *record.BlockControl:
		return &BlockControl{Base: Base[*record.BlockControl]{rec: r}}
	case *record.LayerControl:
		return &Control[*record.Layer]{Base: Base[*record.LayerControl]{rec: r}}
	case *record.StyleControl:
		return &Control[*record.TextStyle]{Base: Base[*record.StyleControl]{rec: r}}
	case *record.LineTypeControl:
		return &LineTypeControl{Base: Base[*record.LineTypeControl]{rec: r}}
	case *record.BlockRecord:
		return &BlockRecord{entry: entry[*record.BlockRecord]{Base: Base[*record.BlockRecord]{rec: r}}}
	case *record.Layer:
		return &Layer{entry: entry[*record.Layer]{Base: Base[*record.Layer]{rec: r}}}
	case *record.TextStyle:
		return &TextStyle{entry: entry[*record.TextStyle]{Base: Base[*record.TextStyle]{rec: r}}}
	case *record.LineType:
		return &LineType{entry: entry[*record.LineType]{Base: Base[*record.LineType]{rec: r}}}
	case *record.Unknown:
		return &Unknown{Base: Base[*record.Unknown]{rec: r}}
	default:
		return &Unknown{Base: Base[*record.Unknown]{rec: &record.Unknown{Code: rec.Type()}}}
	}
}

// Lookup resolves handle to a record of type R.
//
// A null handle yields the zero value silently. A missing record or one of another type is
// reported as an unresolved reference from the object from and yields the zero value.
func Lookup[R record.Record](r Resolver, from uint64, field string, handle uint64) R {
	var zero R
	if handle == 0 {
		return zero
	}

	rec, ok := r.Record(handle)
	if !ok {
		r.Diagnostics().Warn(diag.KindUnresolvedReference, format.SectionObjects, from,
			fmt.Errorf("%w: 0x%X", errs.ErrUnresolvedHandle, handle), "%s", field)

		return zero
	}

	typed, ok := rec.(R)
	if !ok {
		r.Diagnostics().Warn(diag.KindUnresolvedReference, format.SectionObjects, from,
			fmt.Errorf("%w: 0x%X is %s", errs.ErrUnexpectedRecord, handle, rec.Type()), "%s", field)

		return zero
	}

	return typed
}

// lookupAll resolves a handle list, dropping the entries that do not resolve.
func lookupAll[R record.Record](r Resolver, from uint64, field string, handles []uint64) []R {
	if len(handles) == 0 {
		return nil
	}

	out := make([]R, 0, len(handles))
	for _, h := range handles {
		if h == 0 {
			continue
		}
		if rec := Lookup[R](r, from, field, h); !isNil(rec) {
			out = append(out, rec)
		}
	}

	return out
}

// handleOf returns the handle of rec, or zero for a nil record.
func handleOf[R record.Record](rec R) uint64 {
	if isNil(rec) {
		return 0
	}

	return rec.Base().Handle
}

func handlesOf[R record.Record](recs []R) []uint64 {
	if len(recs) == 0 {
		return nil
	}

	out := make([]uint64, 0, len(recs))
	for _, rec := range recs {
		out = append(out, handleOf(rec))
	}

	return out
}

func isNil(rec any) bool {
	if rec == nil {
		return true
	}
	v := reflect.ValueOf(rec)

	return v.Kind() == reflect.Pointer && v.IsNil()
}
