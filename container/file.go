package container

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/section"
)

// File is a drawing file mapped into memory. Sections are decoded on demand, so listing or
// extracting a few sections of a large file touches only their pages.
//
// Note: File is not safe for concurrent use. Documents and section streams returned by a
// File stay valid after Close.
type File struct {
	f    *os.File
	mm   mmap.MMap
	m    *section.Map
	cfg  *Config
	diag *diag.Collector
}

// Open maps the file at path read-only and loads its section table.
//
// Returns:
//   - *File: the opened file; call Close when done
//   - error: an I/O error or the StructuralError from loading the section table
func Open(path string, opts ...Option) (*File, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.Size() < format.VersionTagSize {
		f.Close()
		return nil, errs.Structural(section.FileHeaderName, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFileHeader, st.Size()))
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	collector := cfg.collector()
	m, err := section.Load(mm, cfg.sectionConfig(collector))
	if err != nil {
		return nil, errors.Join(err, mm.Unmap(), f.Close())
	}

	return &File{f: f, mm: mm, m: m, cfg: cfg, diag: collector}, nil
}

// Version returns the format version of the file.
func (f *File) Version() format.Version {
	return f.m.Version()
}

// Info returns the fixed file header fields.
func (f *File) Info() section.FileInfo {
	return f.m.Info
}

// Sections returns the names of all sections, sorted.
func (f *File) Sections() []string {
	return f.m.Names()
}

// Descriptor returns the page layout of a named section.
func (f *File) Descriptor(name string) (*section.Descriptor, bool) {
	return f.m.Descriptor(name)
}

// Section returns a copy of the decompressed stream of a named section.
func (f *File) Section(name string) ([]byte, error) {
	return f.m.Read(name)
}

// Document decodes the whole drawing.
func (f *File) Document(ctx context.Context) (*document.Document, error) {
	return readDocument(ctx, f.m, f.cfg, f.diag)
}

// Diagnostics returns the findings recorded so far, including those of Document calls.
func (f *File) Diagnostics() []diag.Diagnostic {
	return f.diag.All()
}

// Close unmaps and closes the file.
func (f *File) Close() error {
	if f.mm == nil {
		return nil
	}
	err := errors.Join(f.mm.Unmap(), f.f.Close())
	f.mm = nil

	return err
}
