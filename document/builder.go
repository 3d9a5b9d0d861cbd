package document

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/endian"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/handlemap"
	"github.com/arloliu/dwgkit/record"
	"github.com/arloliu/dwgkit/template"
)

// Config controls how a Builder decodes records.
type Config struct {
	Version  format.Version
	CodePage uint16
	// Factory creates the record placeholders; nil uses record.NewFactory.
	Factory *record.Factory
	// Diagnostics receives every finding; nil drops them.
	Diagnostics *diag.Collector
	// KeepUnknown stores records of unsupported types in the document. They take part in
	// resolution either way.
	KeepUnknown bool
}

// Builder turns an objects stream into a Document in two phases: Parse decodes every record
// into a template, Resolve links the templates into records.
//
// Note: a Builder is single use and not safe for concurrent use.
type Builder struct {
	cfg     Config
	objects []byte
	handles *handlemap.Map

	templates map[uint64]template.Template
	records   map[uint64]record.Record
	unknown   map[uint64]struct{}
}

// NewBuilder creates a builder over objects, whose record offsets are given by handles.
func NewBuilder(objects []byte, handles *handlemap.Map, cfg Config) *Builder {
	if cfg.Factory == nil {
		cfg.Factory = record.NewFactory()
	}

	return &Builder{
		cfg:       cfg,
		objects:   objects,
		handles:   handles,
		templates: make(map[uint64]template.Template, handles.Len()),
		records:   make(map[uint64]record.Record, handles.Len()),
		unknown:   make(map[uint64]struct{}),
	}
}

// Parse decodes the record at every handle map offset.
//
// A record that fails to decode is skipped with a decode diagnostic. Records of unknown types
// become template.Unknown.
//
// Returns:
//   - error: the context error when ctx is done
func (b *Builder) Parse(ctx context.Context) error {
	cfg := template.ReadConfig{
		Version:     b.cfg.Version,
		CodePage:    b.cfg.CodePage,
		Factory:     b.cfg.Factory,
		Diagnostics: b.cfg.Diagnostics,
	}

	if n := ObjectsPrefixSize(b.cfg.Version); n > 0 {
		if len(b.objects) < n || endian.GetLittleEndianEngine().Uint32(b.objects) != ObjectsMagic {
			b.cfg.Diagnostics.Warn(diag.KindStructural, format.SectionObjects, 0, errs.ErrInvalidSentinel,
				"objects stream does not start with 0x%04X", ObjectsMagic)
		}
	}

	for _, e := range b.handles.Entries() {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, known, err := template.ReadRecord(b.objects, e.Offset, cfg)
		if err != nil {
			b.cfg.Diagnostics.Warn(diag.KindDecode, format.SectionObjects, e.Handle, err, "record at 0x%X", e.Offset)
			continue
		}

		rec := t.Record()
		if h := rec.Base().Handle; h != e.Handle {
			b.cfg.Diagnostics.Warn(diag.KindStructural, format.SectionObjects, e.Handle,
				fmt.Errorf("%w: record at 0x%X holds 0x%X", errs.ErrHandleMismatch, e.Offset, h), "record handle")

			continue
		}
		if !known {
			b.unknown[e.Handle] = struct{}{}
			b.cfg.Diagnostics.Record(diag.Diagnostic{
				Kind:     diag.KindUnknownType,
				Severity: diag.SeverityInfo,
				Section:  format.SectionObjects,
				Handle:   e.Handle,
				Message:  "record kept undecoded",
				Err:      fmt.Errorf("%w: %s", errs.ErrUnknownObjectType, rec.Type()),
			})
		}

		b.templates[e.Handle] = t
		b.records[e.Handle] = rec
	}

	return nil
}

// Resolve links every parsed template and builds the document.
//
// Templates resolve by stage (control tables, table entries, block records, entities,
// dictionaries, others) and by handle within a stage, so table entries find their tables
// already resolved and block records find the entity templates of their chains.
//
// Returns:
//   - *Document: the resolved graph
//   - error: the context error when ctx is done
func (b *Builder) Resolve(ctx context.Context) (*Document, error) {
	order := slices.SortedFunc(maps.Values(b.templates), func(x, y template.Template) int {
		if c := cmp.Compare(x.Stage(), y.Stage()); c != 0 {
			return c
		}

		return cmp.Compare(x.Record().Base().Handle, y.Record().Base().Handle)
	})

	for _, t := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.Resolve(b)
	}

	doc := New(b.cfg.Version, b.cfg.CodePage)
	doc.diag = b.cfg.Diagnostics
	for h, rec := range b.records {
		if _, ok := b.unknown[h]; ok && !b.cfg.KeepUnknown {
			continue
		}
		doc.records[h] = rec
	}
	doc.Collect()

	return doc, nil
}

// Len returns the number of parsed records.
func (b *Builder) Len() int {
	return len(b.templates)
}

// Record implements template.Resolver.
func (b *Builder) Record(h uint64) (record.Record, bool) {
	rec, ok := b.records[h]
	return rec, ok
}

// Template implements template.Resolver.
func (b *Builder) Template(h uint64) (template.Template, bool) {
	t, ok := b.templates[h]
	return t, ok
}

// Diagnostics implements template.Resolver.
func (b *Builder) Diagnostics() *diag.Collector {
	return b.cfg.Diagnostics
}
