// Package container reads and writes complete drawing files.
//
// Read and Open accept every supported version from R13 to R2018. Write produces R2000 and
// the R2004-class versions (R2004, R2010, R2013, R2018).
//
// Non-fatal findings never abort a read. They are collected on the document and forwarded
// to the notifier and logger given as options:
//
//	doc, err := container.Read(ctx, data,
//		container.WithNotifier(func(d diag.Diagnostic) { log.Println(d) }),
//		container.WithStrictChecksums(true),
//	)
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/handlemap"
	"github.com/arloliu/dwgkit/record"
	"github.com/arloliu/dwgkit/section"
)

// interpreted lists the sections Read decodes; all others are kept raw on the document.
var interpreted = map[string]bool{
	format.SectionHeader:  true,
	format.SectionClasses: true,
	format.SectionHandles: true,
	format.SectionObjects: true,
}

// Read decodes a complete file held in memory. The document does not reference data.
//
// Returns:
//   - *document.Document: the resolved drawing with its diagnostics
//   - error: a StructuralError when the file header, a map or a mandatory section is
//     unusable, an option error, or the context error
func Read(ctx context.Context, data []byte, opts ...Option) (*document.Document, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	collector := cfg.collector()
	m, err := section.Load(data, cfg.sectionConfig(collector))
	if err != nil {
		return nil, err
	}

	return readDocument(ctx, m, cfg, collector)
}

func (c *Config) sectionConfig(collector *diag.Collector) section.Config {
	return section.Config{
		Cache:           c.cache,
		Diagnostics:     collector,
		StrictChecksums: c.strictChecksums,
	}
}

func readDocument(ctx context.Context, m *section.Map, cfg *Config, collector *diag.Collector) (*document.Document, error) {
	version := m.Version()
	codePage := m.Info.CodePage
	if cfg.codePage != 0 {
		codePage = cfg.codePage
	}
	scfg := document.SectionConfig{
		Version:         version,
		CodePage:        codePage,
		Diagnostics:     collector,
		StrictChecksums: cfg.strictChecksums,
	}

	raw, err := readMandatory(m, format.SectionHeader)
	if err != nil {
		return nil, err
	}
	header, err := document.ParseHeader(raw, scfg)
	if err != nil {
		return nil, err
	}

	raw, err = readMandatory(m, format.SectionClasses)
	if err != nil {
		return nil, err
	}
	classes, err := document.ParseClasses(raw, scfg)
	if err != nil {
		return nil, err
	}
	factory := record.NewFactory()
	for _, c := range classes {
		factory.RegisterClass(c.Number, c.DXFName, c.IsEntity)
	}

	raw, err = readMandatory(m, format.SectionHandles)
	if err != nil {
		return nil, err
	}
	handles, err := handlemap.Decode(raw, handlemap.Config{
		Diagnostics:     collector,
		StrictChecksums: cfg.strictChecksums,
	})
	if err != nil {
		return nil, errs.Structural(format.SectionHandles, err)
	}

	// AC15 handle offsets are file addresses, so the objects "stream" is the whole file.
	objects := m.Data()
	if version.Generation() != format.GenerationAC15 {
		objects, err = readMandatory(m, format.SectionObjects)
		if err != nil {
			return nil, err
		}
	}

	b := document.NewBuilder(objects, handles, document.Config{
		Version:     version,
		CodePage:    codePage,
		Factory:     factory,
		Diagnostics: collector,
		KeepUnknown: cfg.keepUnknown,
	})
	if err := b.Parse(ctx); err != nil {
		return nil, err
	}
	doc, err := b.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	doc.Maintenance = m.Info.Maintenance
	doc.Header = header
	doc.Classes = classes
	for _, name := range m.Names() {
		if interpreted[name] {
			continue
		}
		data, err := m.Read(name)
		if err != nil {
			if errs.IsStructural(err) {
				return nil, err
			}
			collector.Warn(diag.KindDecode, name, 0, err, "section not kept")

			continue
		}
		doc.Sections[name] = data
	}

	return doc, nil
}

// readMandatory reads a section the document cannot be built without.
func readMandatory(m *section.Map, name string) ([]byte, error) {
	data, err := m.Read(name)
	if errors.Is(err, errs.ErrSectionNotFound) {
		return nil, errs.Structural(name, fmt.Errorf("%w: %w", errs.ErrMissingMandatory, err))
	}
	if err != nil && !errs.IsStructural(err) {
		return nil, errs.Structural(name, err)
	}

	return data, err
}
