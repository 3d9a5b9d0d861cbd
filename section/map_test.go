package section

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/internal/pagecache"
	"github.com/stretchr/testify/require"
)

func ac18Info() FileInfo {
	return FileInfo{Version: format.VersionR2004, Maintenance: 0x19, AppVersion: 0x19, CodePage: 30}
}

func buildAC18(t *testing.T, streams ...Stream) []byte {
	t.Helper()

	b, err := NewAC18Builder(ac18Info())
	require.NoError(t, err)
	for _, s := range streams {
		b.Add(s)
	}
	data, err := b.Build()
	require.NoError(t, err)

	return data
}

// headerStream is three pages long; only the first one holds data.
func headerStream() []byte {
	data := make([]byte, 2*format.DefaultPageSize+0x1000)
	for i := range format.DefaultPageSize {
		data[i] = byte(i*7 + i/13)
	}

	return data
}

func TestMap_MissingPagesEndToEnd(t *testing.T) {
	for _, compressed := range []bool{true, false} {
		want := headerStream()
		file := buildAC18(t, Stream{Name: format.SectionHeader, Data: want, Compressed: compressed})

		m, err := Load(file, Config{})
		require.NoError(t, err)
		require.Equal(t, format.VersionR2004, m.Version())

		d, ok := m.Descriptor(format.SectionHeader)
		require.True(t, ok)
		require.Equal(t, 1, d.StoredPages())
		require.Equal(t, []uint64{0x7400, 0x7400, 0x1000}, pageSizes(d))
		require.Equal(t, []bool{false, true, true}, missing(d))

		got, err := m.Read(format.SectionHeader)
		require.NoError(t, err)
		require.Len(t, got, 2*0x7400+0x1000)
		require.Equal(t, want, got)
	}
}

func TestMap_MultipleSections(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	random := make([]byte, 0x9000)
	rng.Read(random)

	streams := []Stream{
		{Name: format.SectionHeader, Data: bytes.Repeat([]byte("HEADERVARS"), 300), Compressed: true},
		{Name: format.SectionClasses, Data: []byte{0x8D, 0xA1}, Compressed: true},
		{Name: format.SectionHandles, Data: random, Compressed: true},
		{Name: format.SectionPreview, Data: random[:0x500], Compressed: false},
		{Name: format.SectionObjFreeSpace, Data: nil, Compressed: true},
		{Name: format.SectionTemplate, Data: make([]byte, 0x80), Compressed: true, PageSize: 0x40},
	}
	file := buildAC18(t, streams...)

	m, err := Load(file, Config{})
	require.NoError(t, err)
	require.Len(t, m.Names(), len(streams))

	for _, s := range streams {
		got, err := m.Read(s.Name)
		require.NoError(t, err, s.Name)
		if len(s.Data) == 0 {
			require.Empty(t, got)
			continue
		}
		require.Equal(t, s.Data, got, s.Name)
	}

	d, _ := m.Descriptor(format.SectionTemplate)
	require.Equal(t, 0, d.StoredPages())
	require.Len(t, d.Pages, 2)

	_, err = m.Read(format.SectionVBAProject)
	require.ErrorIs(t, err, errs.ErrSectionNotFound)
}

func TestMap_SecondHeaderCopy(t *testing.T) {
	file := buildAC18(t, Stream{Name: format.SectionHeader, Data: []byte("abcdefgh"), Compressed: true})

	m, err := Load(file, Config{})
	require.NoError(t, err)
	addr := m.AC18.SecondHeaderAddress
	require.Equal(t, file[:format.FileHeaderSize], file[addr:addr+format.FileHeaderSize])
}

func TestMap_ChecksumMismatch(t *testing.T) {
	want := bytes.Repeat([]byte{0x42}, 0x80)
	file := buildAC18(t, Stream{Name: format.SectionHeader, Data: want, Compressed: false})

	// Stored page body starts right after the first data page header.
	body := format.FileHeaderSize + format.DataPageHeaderSize
	file[body] ^= 0xFF

	collector := diag.NewCollector(nil, nil)
	m, err := Load(file, Config{Diagnostics: collector})
	require.NoError(t, err)

	got, err := m.Read(format.SectionHeader)
	require.NoError(t, err, "checksums are advisory by default")
	require.Equal(t, byte(0x42^0xFF), got[0])
	require.Equal(t, 1, collector.Count(diag.KindIntegrity))

	strict, err := Load(file, Config{StrictChecksums: true})
	require.NoError(t, err)
	_, err = strict.Read(format.SectionHeader)
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
	require.True(t, errs.IsStructural(err))
}

func TestMap_CorruptPage(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	data := make([]byte, 0x200)
	rng.Read(data)
	file := buildAC18(t, Stream{Name: format.SectionAppInfo, Data: data, Compressed: true})

	// Break the page type inside the masked header.
	file[format.FileHeaderSize] ^= 0xFF

	m, err := Load(file, Config{})
	require.NoError(t, err)

	_, err = m.Read(format.SectionAppInfo)
	require.ErrorIs(t, err, errs.ErrInvalidPageType)

	var de *errs.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, format.SectionAppInfo, de.Section)
}

func TestMap_HeaderCRC(t *testing.T) {
	file := buildAC18(t, Stream{Name: format.SectionHeader, Data: []byte("abcdefgh"), Compressed: true})
	file[0x80+0x48] ^= 0x01 // constant field inside the masked metadata

	collector := diag.NewCollector(nil, nil)
	_, err := Load(file, Config{Diagnostics: collector})
	require.NoError(t, err)
	require.Equal(t, 1, collector.Count(diag.KindIntegrity))

	_, err = Load(file, Config{StrictChecksums: true})
	require.ErrorIs(t, err, errs.ErrCRCMismatch)
	require.True(t, errs.IsStructural(err))
}

func TestMap_PageCache(t *testing.T) {
	cache, err := pagecache.New(8)
	require.NoError(t, err)

	want := bytes.Repeat([]byte("cached page "), 100)
	file := buildAC18(t, Stream{Name: format.SectionSummaryInfo, Data: want, Compressed: true})

	m, err := Load(file, Config{Cache: cache})
	require.NoError(t, err)

	first, err := m.Read(format.SectionSummaryInfo)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	second, err := m.Read(format.SectionSummaryInfo)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, cache.Len())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load([]byte("AC"), Config{})
	require.ErrorIs(t, err, errs.ErrInvalidFileHeader)
	require.True(t, errs.IsStructural(err))

	_, err = Load([]byte("AC9999 and then some"), Config{})
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)

	file := buildAC18(t, Stream{Name: format.SectionHeader, Data: []byte("abcdefgh"), Compressed: true})
	_, err = Load(file[:0x120], Config{})
	require.Error(t, err)
	require.True(t, errs.IsStructural(err))
}

func TestAC15_BuildAndLoad(t *testing.T) {
	header := append(format.HeaderStartSentinel[:], []byte("vars")...)
	classes := append(format.ClassesStartSentinel[:], []byte("classes")...)
	objects := []byte("objects live here")
	handles := []byte{0x00, 0x02}

	parts := []AC15Part{
		{Locator: format.LocatorHeader, Data: header},
		{Locator: format.LocatorClasses, Data: classes},
		{Locator: -1, Data: objects},
		{Locator: format.LocatorHandles, Data: handles},
	}
	addrs := AC15Layout(parts)

	info := FileInfo{Version: format.VersionR2000, CodePage: 30}
	file, err := BuildAC15(info, parts)
	require.NoError(t, err)
	require.Equal(t, objects, file[addrs[2]:addrs[2]+int64(len(objects))])

	m, err := Load(file, Config{})
	require.NoError(t, err)
	require.NotNil(t, m.AC15)
	require.Equal(t, []string{format.SectionClasses, format.SectionHandles, format.SectionHeader}, m.Names())

	got, err := m.Read(format.SectionHeader)
	require.NoError(t, err)
	require.Equal(t, header, got)

	got, err = m.Read(format.SectionHandles)
	require.NoError(t, err)
	require.Equal(t, handles, got)

	_, err = BuildAC15(ac18Info(), parts)
	require.ErrorIs(t, err, errs.ErrVersionNotWritable)
}

func TestNewAC18Builder_Version(t *testing.T) {
	_, err := NewAC18Builder(FileInfo{Version: format.VersionR2007})
	require.ErrorIs(t, err, errs.ErrVersionNotWritable)

	for _, v := range []format.Version{format.VersionR2004, format.VersionR2010, format.VersionR2013, format.VersionR2018} {
		b, err := NewAC18Builder(FileInfo{Version: v})
		require.NoError(t, err)
		b.Add(Stream{Name: format.SectionHeader, Data: []byte("12345"), Compressed: true})
		file, err := b.Build()
		require.NoError(t, err)

		m, err := Load(file, Config{})
		require.NoError(t, err)
		require.Equal(t, v, m.Version())
	}
}
