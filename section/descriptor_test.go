package section

import (
	"testing"

	"github.com/arloliu/dwgkit/errs"
	"github.com/arloliu/dwgkit/format"
	"github.com/stretchr/testify/require"
)

func pageSizes(d *Descriptor) []uint64 {
	sizes := make([]uint64, len(d.Pages))
	for i, p := range d.Pages {
		sizes[i] = p.Size
	}

	return sizes
}

func missing(d *Descriptor) []bool {
	flags := make([]bool, len(d.Pages))
	for i, p := range d.Pages {
		flags[i] = p.Missing
	}

	return flags
}

func TestDescriptor_Reconstruct_TrailingZeroPages(t *testing.T) {
	d := &Descriptor{
		Name:     format.SectionHeader,
		Size:     2*format.DefaultPageSize + 0x1000,
		PageSize: format.DefaultPageSize,
		Pages:    []LocalPage{{Number: 1, Offset: 0}},
	}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []uint64{0x7400, 0x7400, 0x1000}, pageSizes(d))
	require.Equal(t, []bool{false, true, true}, missing(d))
	require.Equal(t, uint64(0x7400), d.Pages[1].Offset)
	require.Equal(t, uint64(0xE800), d.Pages[2].Offset)
	require.Equal(t, 1, d.StoredPages())
}

func TestDescriptor_Reconstruct_GapMidSequence(t *testing.T) {
	d := &Descriptor{
		Name:     format.SectionObjects,
		Size:     4 * 0x100,
		PageSize: 0x100,
		Pages: []LocalPage{
			{Number: 3, Offset: 0},
			{Number: 4, Offset: 0x300},
		},
	}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []bool{false, true, true, false}, missing(d))
	require.Equal(t, []uint64{0, 0x100, 0x200, 0x300}, []uint64{
		d.Pages[0].Offset, d.Pages[1].Offset, d.Pages[2].Offset, d.Pages[3].Offset,
	})
	require.Equal(t, int32(4), d.Pages[3].Number)
}

func TestDescriptor_Reconstruct_LeadingGap(t *testing.T) {
	d := &Descriptor{
		Size:     0x250,
		PageSize: 0x100,
		Pages:    []LocalPage{{Number: 9, Offset: 0x200}},
	}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []bool{true, true, false}, missing(d))
	require.Equal(t, []uint64{0x100, 0x100, 0x50}, pageSizes(d), "last page cut to the remainder")
}

func TestDescriptor_Reconstruct_NoPages(t *testing.T) {
	d := &Descriptor{Size: 0x180, PageSize: 0x100}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []uint64{0x100, 0x80}, pageSizes(d))
	require.Equal(t, 0, d.StoredPages())

	empty := &Descriptor{}
	require.NoError(t, empty.Reconstruct())
	require.Empty(t, empty.Pages)
	require.Equal(t, uint64(format.DefaultPageSize), empty.PageSize)
}

func TestDescriptor_Reconstruct_KeepsDeclaredSizes(t *testing.T) {
	d := &Descriptor{
		Size:     0x180,
		PageSize: 0x100,
		Pages: []LocalPage{
			{Number: 1, Offset: 0, Size: 0x100},
			{Number: 2, Offset: 0x100, Size: 0x80},
		},
	}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []uint64{0x100, 0x80}, pageSizes(d))
}

func TestDescriptor_Reconstruct_LastPageFollowsDeclaredSize(t *testing.T) {
	d := &Descriptor{
		Size:     0x1C0,
		PageSize: 0x100,
		Pages: []LocalPage{
			{Number: 1, Offset: 0, Size: 0x100},
			{Number: 2, Offset: 0x100, Size: 0x100},
		},
	}

	require.NoError(t, d.Reconstruct())
	require.Equal(t, []uint64{0x100, 0xC0}, pageSizes(d))
	require.Equal(t, []bool{false, false}, missing(d))
}

func TestDescriptor_Reconstruct_Errors(t *testing.T) {
	overlap := &Descriptor{
		Size:     0x200,
		PageSize: 0x100,
		Pages:    []LocalPage{{Number: 1, Offset: 0}, {Number: 2, Offset: 0x80}},
	}
	require.ErrorIs(t, overlap.Reconstruct(), errs.ErrInvalidSectionMap)

	tooLong := &Descriptor{
		Size:     0x100,
		PageSize: 0x100,
		Pages:    []LocalPage{{Number: 1, Offset: 0}, {Number: 2, Offset: 0x100}},
	}
	require.ErrorIs(t, tooLong.Reconstruct(), errs.ErrInvalidSectionSize)
	require.Len(t, tooLong.Pages, 2, "pages untouched on failure")
}

func TestPageDirectory_Lookup(t *testing.T) {
	dir := NewPageDirectory([]PageEntry{
		{Number: 1, Address: 0x100, Size: 0x40},
		{Number: -2, Address: 0x140, Size: 0x20},
		{Number: 3, Address: 0x160, Size: 0x80},
	})

	e, err := dir.Lookup(3)
	require.NoError(t, err)
	require.Equal(t, int64(0x160), e.Address)

	_, err = dir.Lookup(-2)
	require.ErrorIs(t, err, errs.ErrPageNotFound)
	_, err = dir.Lookup(7)
	require.ErrorIs(t, err, errs.ErrPageNotFound)
}
