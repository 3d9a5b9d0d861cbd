package section

import (
	"fmt"
	"sort"

	"github.com/arloliu/dwgkit/compress"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/internal/pagecache"
)

// FileHeaderName labels diagnostics about the file header itself.
const FileHeaderName = "FileHeader"

// Config controls how a Map reads pages.
type Config struct {
	// Cache keeps decompressed pages; nil disables caching.
	Cache *pagecache.Cache
	// Diagnostics receives integrity and decode findings; nil drops them.
	Diagnostics *diag.Collector
	// StrictChecksums turns checksum mismatches on mandatory sections into structural errors.
	StrictChecksums bool
}

// Map is the loaded section table of one file.
type Map struct {
	Info        FileInfo
	AC15        *AC15Header
	AC18        *AC18Header
	AC21        *AC21Header
	Pages       []PageEntry
	Directory   PageDirectory
	Descriptors []*Descriptor

	data []byte
	cfg  Config
}

// Load parses the file header and the page and section maps of data.
// data must stay unchanged for the lifetime of the Map.
//
// Returns:
//   - *Map: the section table with zero pages reconstructed
//   - error: errs.StructuralError wrapping the header or map failure
func Load(data []byte, cfg Config) (*Map, error) {
	if len(data) < format.VersionTagSize {
		return nil, errs.Structural(FileHeaderName, fmt.Errorf("%w: %d bytes", errs.ErrInvalidFileHeader, len(data)))
	}
	version, ok := format.ParseVersion(string(data[:format.VersionTagSize]))
	if !ok {
		return nil, errs.Structural(FileHeaderName, fmt.Errorf("%w: %q", errs.ErrUnsupportedVersion, data[:format.VersionTagSize]))
	}

	m := &Map{data: data, cfg: cfg}

	var err error
	switch version.Generation() {
	case format.GenerationAC15:
		err = m.loadAC15()
	case format.GenerationAC18:
		err = m.loadAC18()
	case format.GenerationAC21:
		err = m.loadAC21()
	default:
		err = fmt.Errorf("%w: %s", errs.ErrUnsupportedVersion, version)
	}
	if err != nil {
		if errs.IsStructural(err) {
			return nil, err
		}

		return nil, errs.Structural(FileHeaderName, err)
	}

	return m, nil
}

func (m *Map) integrity(section string, err error, msg string, args ...any) error {
	m.cfg.Diagnostics.Warn(diag.KindIntegrity, section, 0, err, msg, args...)
	if m.cfg.StrictChecksums && (section == FileHeaderName || format.IsMandatory(section)) {
		return errs.Structural(section, err)
	}

	return nil
}

func (m *Map) loadAC15() error {
	h, crcOK, err := ParseAC15Header(m.data)
	if err != nil {
		return err
	}
	m.AC15 = &h
	m.Info = h.FileInfo
	if !crcOK {
		if err := m.integrity(FileHeaderName, errs.ErrCRCMismatch, "file header crc 0x%04X", h.CRC); err != nil {
			return err
		}
	}

	for _, l := range h.Locators {
		name, ok := format.LocatorSectionName(l.Number)
		if !ok || l.Size <= 0 {
			continue
		}
		size := uint64(l.Size)
		m.Descriptors = append(m.Descriptors, &Descriptor{
			Name:        name,
			Size:        size,
			PageSize:    size,
			Compression: format.SectionStored,
			ID:          int32(l.Number),
			Pages: []LocalPage{{
				Number:         int32(l.Number) + 1,
				CompressedSize: size,
				Size:           size,
				Address:        int64(l.Address),
			}},
		})
	}

	return nil
}

func (m *Map) loadAC18() error {
	h, crcOK, err := ParseAC18Header(m.data)
	if err != nil {
		return err
	}
	m.AC18 = &h
	m.Info = h.FileInfo
	if !crcOK {
		if err := m.integrity(FileHeaderName, errs.ErrCRCMismatch, "file header crc 0x%08X", h.CRC); err != nil {
			return err
		}
	}

	pageMap, err := m.readAC18SystemPage(int64(h.PageMapAddress)+format.FileHeaderSize, format.PageTypePageMap, "page map")
	if err != nil {
		return err
	}
	if m.Pages, err = ParsePageMap(pageMap); err != nil {
		return err
	}
	m.Directory = NewPageDirectory(m.Pages)

	entry, err := m.Directory.Lookup(int32(h.SectionMapID))
	if err != nil {
		return fmt.Errorf("section map: %w", err)
	}
	sectionMap, err := m.readAC18SystemPage(entry.Address, format.PageTypeSectionMap, "section map")
	if err != nil {
		return err
	}
	if m.Descriptors, err = ParseSectionMap(sectionMap); err != nil {
		return err
	}

	return m.resolvePages()
}

func (m *Map) readAC18SystemPage(address int64, pageType uint32, what string) ([]byte, error) {
	raw, err := slicePage(m.data, address, format.SystemPageHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	h, err := ParseSystemPageHeader(raw, pageType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	bodyStart := address + format.SystemPageHeaderSize
	body, err := slicePage(m.data, bodyStart, int(h.CompressedSize))
	if err != nil || uint64(len(body)) < uint64(h.CompressedSize) {
		return nil, fmt.Errorf("%s: %w", what, errs.ErrTruncatedPage)
	}

	if sum := h.ComputeChecksum(body); sum != h.Checksum {
		if err := m.integrity(FileHeaderName, errs.ErrChecksumMismatch, "%s checksum 0x%08X, computed 0x%08X", what, h.Checksum, sum); err != nil {
			return nil, err
		}
	}

	if h.Compression != uint32(format.SectionCompressed) {
		return body, nil
	}

	out, err := compress.NewAC18Compressor().DecompressSize(body, int(h.DecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}

	return out, nil
}

func (m *Map) loadAC21() error {
	h, err := ParseAC21Header(m.data)
	if err != nil {
		return err
	}
	m.AC21 = &h
	m.Info = h.FileInfo
	meta := &h.Metadata

	pageMap, err := readAC21SystemPage(m.data, int64(format.AC21PagesBase+meta.PagesMapOffset),
		meta.PagesMapSizeCompressed, meta.PagesMapSizeUncompressed, meta.PagesMapCorrection)
	if err != nil {
		return fmt.Errorf("page map: %w", err)
	}
	if m.Pages, err = ParseAC21PageMap(pageMap); err != nil {
		return err
	}
	m.Directory = NewPageDirectory(m.Pages)

	entry, err := m.Directory.Lookup(int32(meta.SectionsMapID))
	if err != nil {
		return fmt.Errorf("section map: %w", err)
	}
	sectionMap, err := readAC21SystemPage(m.data, entry.Address,
		meta.SectionsMapSizeCompressed, meta.SectionsMapSizeUncompressed, meta.SectionsMapCorrection)
	if err != nil {
		return fmt.Errorf("section map: %w", err)
	}
	if m.Descriptors, err = ParseAC21SectionMap(sectionMap); err != nil {
		return err
	}

	return m.resolvePages()
}

// resolvePages reconstructs missing pages and fills in page addresses. A descriptor that
// cannot be reconstructed is fatal only when it is mandatory.
func (m *Map) resolvePages() error {
	for _, d := range m.Descriptors {
		if err := d.Reconstruct(); err != nil {
			if format.IsMandatory(d.Name) {
				return errs.Structural(d.Name, err)
			}
			m.cfg.Diagnostics.Warn(diag.KindStructural, d.Name, 0, err, "section map entry")

			continue
		}

		for i := range d.Pages {
			p := &d.Pages[i]
			if p.Missing {
				continue
			}
			entry, err := m.Directory.Lookup(p.Number)
			if err != nil {
				if format.IsMandatory(d.Name) {
					return errs.Structural(d.Name, err)
				}
				m.cfg.Diagnostics.Warn(diag.KindStructural, d.Name, 0, err, "page %d", p.Number)

				continue
			}
			p.Address = entry.Address
		}
	}

	return nil
}

// Version returns the file version.
func (m *Map) Version() format.Version {
	return m.Info.Version
}

// Data returns the raw file bytes.
func (m *Map) Data() []byte {
	return m.data
}

// Descriptor returns the descriptor for a section name.
func (m *Map) Descriptor(name string) (*Descriptor, bool) {
	for _, d := range m.Descriptors {
		if d.Name == name {
			return d, true
		}
	}

	return nil, false
}

// Names returns the names of all non-empty sections, sorted.
func (m *Map) Names() []string {
	names := make([]string, 0, len(m.Descriptors))
	for _, d := range m.Descriptors {
		if d.Name != "" {
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)

	return names
}

// Read assembles the decompressed stream of a named section. Missing pages read as zeros.
//
// Returns:
//   - []byte: the section stream, exactly Descriptor.Size bytes long
//   - error: errs.ErrSectionNotFound, errs.ErrEncryptedSection, a DecodeError for a bad page,
//     or a StructuralError for a checksum mismatch under StrictChecksums
func (m *Map) Read(name string) ([]byte, error) {
	d, ok := m.Descriptor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrSectionNotFound, name)
	}
	if d.Encryption == format.EncryptionYes {
		return nil, fmt.Errorf("%w: %s", errs.ErrEncryptedSection, name)
	}

	out := make([]byte, d.Size)
	for _, p := range d.Pages {
		if p.Missing {
			continue
		}

		page, err := m.readPage(d, p)
		if err != nil {
			if errs.IsStructural(err) {
				return nil, err
			}

			return nil, errs.Decode(name, p.Address, err)
		}

		end := min(p.Offset+p.Size, d.Size)
		n := copy(out[p.Offset:end], page)
		if uint64(n) < end-p.Offset {
			m.cfg.Diagnostics.Warn(diag.KindDecode, name, 0, errs.ErrSizeMismatch,
				"page %d decoded to %d bytes, expected %d", p.Number, n, end-p.Offset)
		}
	}

	return out, nil
}

func (m *Map) readPage(d *Descriptor, p LocalPage) ([]byte, error) {
	switch m.Info.Version.Generation() {
	case format.GenerationAC15:
		raw, err := slicePage(m.data, p.Address, int(p.Size))
		if err != nil {
			return nil, err
		}
		if uint64(len(raw)) < p.Size {
			return nil, errs.ErrTruncatedPage
		}

		return raw, nil
	case format.GenerationAC21:
		entry, err := m.Directory.Lookup(p.Number)
		if err != nil {
			return nil, err
		}

		return m.cached(entry, p.Size, func() ([]byte, error) {
			return readAC21DataPage(m.data, entry, d, p)
		})
	default:
		return m.readAC18DataPage(d, p)
	}
}

func (m *Map) readAC18DataPage(d *Descriptor, p LocalPage) ([]byte, error) {
	raw, err := slicePage(m.data, p.Address, format.DataPageHeaderSize)
	if err != nil {
		return nil, err
	}
	h, err := ParseDataPageHeader(raw, p.Address)
	if err != nil {
		return nil, err
	}

	body, err := slicePage(m.data, p.Address+format.DataPageHeaderSize, int(h.DataSize))
	if err != nil {
		return nil, err
	}
	if uint64(len(body)) < uint64(h.DataSize) {
		return nil, errs.ErrTruncatedPage
	}

	headerSum, dataSum := h.ComputeChecksums(body)
	if headerSum != h.HeaderChecksum || dataSum != h.DataChecksum {
		if err := m.integrity(d.Name, errs.ErrChecksumMismatch, "page %d checksum", p.Number); err != nil {
			return nil, err
		}
	}

	if !d.Compressed() {
		return body, nil
	}

	key := pagecache.Key(body, uint64(h.PageSize))
	if page, ok := m.cfg.Cache.Get(key); ok {
		return page, nil
	}
	page, err := compress.NewAC18Compressor().DecompressSize(body, int(h.PageSize))
	if err != nil {
		return nil, err
	}
	m.cfg.Cache.Add(key, page)

	return page, nil
}

// cached keys a page by its whole on-disk extent.
func (m *Map) cached(entry PageEntry, size uint64, read func() ([]byte, error)) ([]byte, error) {
	raw, err := slicePage(m.data, entry.Address, int(entry.Size))
	if err != nil {
		return nil, err
	}
	key := pagecache.Key(raw, size)
	if page, ok := m.cfg.Cache.Get(key); ok {
		return page, nil
	}

	page, err := read()
	if err != nil {
		return nil, err
	}
	m.cfg.Cache.Add(key, page)

	return page, nil
}
