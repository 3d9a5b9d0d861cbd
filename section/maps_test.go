package section

import (
	"testing"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/stretchr/testify/require"
)

func TestPageMap_RoundTrip(t *testing.T) {
	entries := []PageEntry{
		{Number: 1, Address: 0x100, Size: 0x7420},
		{Number: 2, Address: 0x7520, Size: 0x40},
		{Number: -3, Address: 0x7560, Size: 0x20},
		{Number: 4, Address: 0x7580, Size: 0x60},
	}

	data := EncodePageMap(entries)
	require.Len(t, data, 4*8+16)

	parsed, err := ParsePageMap(data)
	require.NoError(t, err)
	require.Equal(t, entries, parsed)

	dir := NewPageDirectory(parsed)
	require.Len(t, dir, 3)
}

func TestParsePageMap_TruncatedGap(t *testing.T) {
	data := EncodePageMap([]PageEntry{{Number: -1, Size: 0x20}})

	_, err := ParsePageMap(data[:12])
	require.ErrorIs(t, err, errs.ErrInvalidSectionMap)
}

func TestSectionMap_RoundTrip(t *testing.T) {
	descs := []*Descriptor{
		{
			Name:        format.SectionHeader,
			Size:        0x1000,
			PageSize:    format.DefaultPageSize,
			Compression: format.SectionCompressed,
			ID:          1,
			Pages:       []LocalPage{{Number: 1, CompressedSize: 0x3F0, Offset: 0}},
		},
		{
			Name:        format.SectionPreview,
			Size:        0x9000,
			PageSize:    format.DefaultPageSize,
			Compression: format.SectionStored,
			Encryption:  format.EncryptionNone,
			ID:          2,
			Pages: []LocalPage{
				{Number: 2, CompressedSize: 0x7400, Offset: 0},
				{Number: 0, Offset: 0x7400, Size: 0x1C00, Missing: true},
			},
		},
		{Name: "", ID: 0},
	}

	data := EncodeSectionMap(descs)
	parsed, err := ParseSectionMap(data)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	require.Equal(t, format.SectionHeader, parsed[0].Name)
	require.Equal(t, descs[0].Pages, parsed[0].Pages)
	require.True(t, parsed[0].Compressed())

	require.Equal(t, format.SectionPreview, parsed[1].Name)
	require.Len(t, parsed[1].Pages, 1, "missing pages are not written")
	require.Equal(t, uint64(0x9000), parsed[1].Size)
	require.False(t, parsed[1].Compressed())

	require.NoError(t, parsed[1].Reconstruct())
	require.Equal(t, []bool{false, true}, missing(parsed[1]))
	require.Equal(t, uint64(0x1C00), parsed[1].Pages[1].Size)

	require.Empty(t, parsed[2].Name)
}

func TestParseSectionMap_Errors(t *testing.T) {
	descs := []*Descriptor{{
		Name:  format.SectionClasses,
		Size:  0x200,
		Pages: []LocalPage{{Number: 1, CompressedSize: 0x80}},
	}}
	data := EncodeSectionMap(descs)

	_, err := ParseSectionMap(data[:10])
	require.ErrorIs(t, err, errs.ErrInvalidSectionMap)

	_, err = ParseSectionMap(data[:len(data)-4])
	require.ErrorIs(t, err, errs.ErrInvalidSectionMap)

	inflated := append([]byte(nil), data...)
	inflated[0] = 0xFF
	_, err = ParseSectionMap(inflated)
	require.ErrorIs(t, err, errs.ErrInvalidSectionMap)
}
