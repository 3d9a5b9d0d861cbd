package document

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/diag"
	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
)

func TestHeader_RoundTrip(t *testing.T) {
	vars := []byte{0x01, 0x02, 0x03, 0xFF, 0x00, 0x7F}
	data := EncodeHeader(vars)
	require.Len(t, data, len(vars)+framedOverhead)

	got, err := ParseHeader(data, SectionConfig{Version: format.VersionR2004})
	require.NoError(t, err)
	require.Equal(t, vars, got)

	empty, err := ParseHeader(EncodeHeader(nil), SectionConfig{})
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestHeader_Errors(t *testing.T) {
	data := EncodeHeader([]byte("variables"))

	t.Run("start sentinel", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] ^= 0xFF
		_, err := ParseHeader(bad, SectionConfig{})
		require.ErrorIs(t, err, errs.ErrInvalidSentinel)
		require.True(t, errs.IsStructural(err))
	})

	t.Run("end sentinel", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-1] ^= 0xFF
		_, err := ParseHeader(bad, SectionConfig{})
		require.ErrorIs(t, err, errs.ErrInvalidSentinel)
	})

	t.Run("size", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[format.SentinelSize] = 0xF0
		_, err := ParseHeader(bad, SectionConfig{})
		require.ErrorIs(t, err, errs.ErrInvalidSectionSize)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := ParseHeader(data[:20], SectionConfig{})
		require.ErrorIs(t, err, errs.ErrInvalidSectionSize)
	})

	t.Run("crc", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[format.SentinelSize+4] ^= 0x01

		collector := diag.NewCollector(nil, nil)
		got, err := ParseHeader(bad, SectionConfig{Diagnostics: collector})
		require.NoError(t, err)
		require.Equal(t, []byte("wariables"), got)
		require.Equal(t, 1, collector.Count(diag.KindIntegrity))

		_, err = ParseHeader(bad, SectionConfig{StrictChecksums: true})
		require.ErrorIs(t, err, errs.ErrCRCMismatch)
	})
}

func TestClasses_RoundTrip(t *testing.T) {
	classes := []Class{
		{Number: 500, ProxyFlags: 0x481, AppName: "ObjectDBX Classes", CppName: "AcDbDictionaryWithDefault", DXFName: "ACDBDICTIONARYWDFLT"},
		{Number: 501, AppName: "ObjectDBX Classes", CppName: "AcDbPlaceHolder", DXFName: "ACDBPLACEHOLDER", WasZombie: true},
		{Number: 502, ProxyFlags: 0x7FF, AppName: "AutoCAD 2000", CppName: "AcDbWipeout", DXFName: "WIPEOUT", IsEntity: true},
	}

	for _, v := range []format.Version{format.VersionR14, format.VersionR2000, format.VersionR2004, format.VersionR2007, format.VersionR2010, format.VersionR2018} {
		t.Run(v.String(), func(t *testing.T) {
			want := append([]Class(nil), classes...)
			if v.AtLeast(format.VersionR2004) {
				want[0].InstanceCount = 3
				want[0].DWGVersion = 31
				want[0].Maintenance = 2
			}
			cfg := SectionConfig{Version: v, CodePage: bitstream.CodePageANSI1252}

			data, err := EncodeClasses(want, cfg)
			require.NoError(t, err)
			got, err := ParseClasses(data, cfg)
			require.NoError(t, err)
			require.Equal(t, want, got)

			data, err = EncodeClasses(nil, cfg)
			require.NoError(t, err)
			got, err = ParseClasses(data, cfg)
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestClasses_Errors(t *testing.T) {
	cfg := SectionConfig{Version: format.VersionR2010}
	data, err := EncodeClasses([]Class{{Number: 500, DXFName: "X"}, {Number: 503, DXFName: "Y"}}, cfg)
	require.NoError(t, err)

	_, err = ParseClasses(data, SectionConfig{Version: format.VersionR2010})
	require.ErrorIs(t, err, errs.ErrEndOfStream)
	var de *errs.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, format.SectionClasses, de.Section)

	_, err = ParseClasses(EncodeHeader(nil), cfg)
	require.ErrorIs(t, err, errs.ErrInvalidSentinel)
}
