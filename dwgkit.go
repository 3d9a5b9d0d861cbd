// Package dwgkit reads and writes DWG drawing files.
//
// A drawing is a container of named sections: a header, class definitions, a handle map
// and the objects stream. dwgkit loads the container (R13 to R2018), decompresses and
// reassembles its pages, decodes every object record and resolves the handles between them
// into a graph of Go pointers.
//
// # Core Features
//
//   - AC15 (R13-R2000), AC18 (R2004, R2010-R2018) and AC21 (R2007) containers
//   - LZ77 codecs for both page compression schemes
//   - Zero-page reconstruction of sparse sections
//   - Two-phase object decoding: parse every record, then resolve references
//   - Diagnostics instead of failures for damaged or unknown records
//   - Writing R2000 and R2004-class files, and DXF export
//
// # Basic Usage
//
// Reading a drawing:
//
//	doc, err := dwgkit.ReadFile(ctx, "plan.dwg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range doc.ModelSpace {
//	    fmt.Println(e.Type(), e.Entity().Layer.Name)
//	}
//	for _, d := range doc.Diagnostics() {
//	    log.Println(d)
//	}
//
// Writing it back as another version:
//
//	err = dwgkit.WriteFile(ctx, "plan-2000.dwg", doc, container.WithVersion(format.VersionR2000))
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the container, document and
// dxf packages. For page-level access use container.Open, and for custom pipelines use
// document.Builder and document.Serializer directly.
package dwgkit

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/arloliu/dwgkit/container"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/dxf"
	"github.com/arloliu/dwgkit/format"
)

// NewDocument creates an empty document that will be written as version with the given
// drawing code page (for example bitstream.CodePageANSI1252).
func NewDocument(version format.Version, codePage uint16) *document.Document {
	return document.New(version, codePage)
}

// Read decodes a drawing held in memory.
//
// Parameters:
//   - data: the complete file
//   - opts: container options (see container.Option)
//
// Returns:
//   - *document.Document: the resolved drawing
//   - error: a StructuralError when the file cannot be read
//
// Available options:
//   - container.WithLogger(logger) / container.WithNotifier(fn)
//   - container.WithStrictChecksums(true|false)
//   - container.WithKeepUnknown(true|false)
//   - container.WithPageCache(size)
//   - container.WithCodePage(id)
func Read(ctx context.Context, data []byte, opts ...container.Option) (*document.Document, error) {
	return container.Read(ctx, data, opts...)
}

// ReadFile maps the file at path and decodes it. The document does not keep the mapping.
func ReadFile(ctx context.Context, path string, opts ...container.Option) (doc *document.Document, err error) {
	f, err := container.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return f.Document(ctx)
}

// Write encodes doc as a complete file.
//
// Available options:
//   - container.WithVersion(v): one of R2000, R2004, R2010, R2013, R2018
//   - container.WithMaintenanceVersion(n)
//   - container.WithCodePage(id)
//   - container.WithLogger(logger) / container.WithNotifier(fn)
func Write(ctx context.Context, doc *document.Document, opts ...container.Option) ([]byte, error) {
	return container.Write(ctx, doc, opts...)
}

// WriteFile encodes doc and writes it to path.
func WriteFile(ctx context.Context, path string, doc *document.Document, opts ...container.Option) error {
	data, err := container.Write(ctx, doc, opts...)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// WriteDXF writes the tables, blocks, entities and dictionaries of doc as a DXF file.
// Text uses the drawing code page before R2007 and UTF-8 from R2007 on.
func WriteDXF(w io.Writer, doc *document.Document, binary bool) error {
	codePage := doc.CodePage
	if doc.Version.AtLeast(format.VersionR2007) {
		codePage = 0
	}

	dw := dxf.NewWriter(w, binary, codePage)
	if err := dxf.Encode(dw, doc); err != nil {
		return err
	}

	return dw.Flush()
}
