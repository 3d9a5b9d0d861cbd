package container

import (
	"context"
	"fmt"
	"slices"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/section"
)

// Write encodes doc as a complete file.
//
// The output version is WithVersion when given, otherwise doc.Version. Sections kept raw on
// the document are written back; on AC15 files only those with a locator record survive.
//
// Returns:
//   - []byte: the file bytes
//   - error: errs.ErrVersionNotWritable, errs.ErrNilDocument, an option or encoding error,
//     or the context error
func Write(ctx context.Context, doc *document.Document, opts ...Option) ([]byte, error) {
	if doc == nil {
		return nil, errs.ErrNilDocument
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	info := section.FileInfo{
		Version:     doc.Version,
		Maintenance: doc.Maintenance,
		CodePage:    doc.CodePage,
	}
	if cfg.version != format.VersionUnknown {
		info.Version = cfg.version
	}
	if cfg.maintenanceSet {
		info.Maintenance = cfg.maintenance
	}
	if cfg.codePage != 0 {
		info.CodePage = cfg.codePage
	}
	if !info.Version.Writable() {
		return nil, fmt.Errorf("%w: %s", errs.ErrVersionNotWritable, info.Version)
	}

	collector := cfg.collector()
	scfg := document.SectionConfig{Version: info.Version, CodePage: info.CodePage, Diagnostics: collector}

	objects, handles, err := document.Serializer{
		Version:     info.Version,
		CodePage:    info.CodePage,
		Diagnostics: collector,
	}.Serialize(ctx, doc)
	if err != nil {
		return nil, err
	}

	header := document.EncodeHeader(doc.Header)
	classes, err := document.EncodeClasses(doc.Classes, scfg)
	if err != nil {
		return nil, err
	}

	if info.Version.Generation() == format.GenerationAC15 {
		parts := []section.AC15Part{
			{Locator: format.LocatorHeader, Data: header},
			{Locator: format.LocatorClasses, Data: classes},
			{Locator: -1, Data: objects},
			{Locator: format.LocatorHandles},
		}
		for _, name := range preserved(doc) {
			n, ok := locatorOf(name)
			if !ok {
				collector.Warn(diag.KindStructural, name, 0, errs.ErrSectionNotFound, "section has no locator record and is not written")
				continue
			}
			parts = append(parts, section.AC15Part{Locator: int(n), Data: doc.Sections[name]})
		}

		// Handle offsets are file addresses; part addresses do not depend on part contents
		// after the objects part, so the layout can be taken before the map is encoded.
		addrs := section.AC15Layout(parts)
		rebased, err := handles.Rebase(addrs[2])
		if err != nil {
			return nil, err
		}
		parts[3].Data = rebased.Encode()

		return section.BuildAC15(info, parts)
	}

	b, err := section.NewAC18Builder(info)
	if err != nil {
		return nil, err
	}
	b.Add(section.Stream{Name: format.SectionHeader, Data: header, Compressed: true})
	b.Add(section.Stream{Name: format.SectionClasses, Data: classes, Compressed: true})
	b.Add(section.Stream{Name: format.SectionHandles, Data: handles.Encode(), Compressed: true})
	b.Add(section.Stream{Name: format.SectionObjects, Data: objects, Compressed: true})
	for _, name := range preserved(doc) {
		b.Add(section.Stream{Name: name, Data: doc.Sections[name], Compressed: true})
	}

	return b.Build()
}

// preserved returns the names of the raw sections to write back, sorted.
func preserved(doc *document.Document) []string {
	names := make([]string, 0, len(doc.Sections))
	for name := range doc.Sections {
		if !interpreted[name] {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	return names
}

func locatorOf(name string) (uint8, bool) {
	for n := range uint8(format.LocatorAuxHeader + 1) {
		if s, _ := format.LocatorSectionName(n); s == name {
			return n, true
		}
	}

	return 0, false
}
