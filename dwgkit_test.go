package dwgkit

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/dwgkit/bitstream"
	"github.com/arloliu/dwgkit/container"
	"github.com/arloliu/dwgkit/document"
	"github.com/arloliu/dwgkit/dxf"
	"github.com/arloliu/dwgkit/format"
	"github.com/arloliu/dwgkit/record"
)

// sample builds a model space holding one text entity with a non-ASCII value.
func sample(t *testing.T, v format.Version) *document.Document {
	t.Helper()

	doc := NewDocument(v, bitstream.CodePageANSI1252)
	blocks := record.NewBlockControl()
	blocks.Handle = 0x1
	model := &record.BlockRecord{TableEntry: record.TableEntry{
		Object: record.Object{Handle: 0x1F, Owner: blocks}, Name: record.ModelSpaceName, XRefIndex: -1,
	}}
	blocks.ModelSpace = model
	text := &record.Text{
		EntityCommon: record.EntityCommon{Object: record.Object{Handle: 0x22}, Mode: record.ModeModel, Color: bitstream.Color{Index: 256}, LineTypeScale: 1},
		Height:       2.5,
		WidthFactor:  1,
		Value:        "Größe",
		Extrusion:    bitstream.DefaultExtrusion,
	}
	model.AddEntity(text)
	for _, rec := range []record.Record{blocks, model, text} {
		require.NoError(t, doc.Add(rec))
	}
	doc.Collect()

	return doc
}

func TestReadWrite(t *testing.T) {
	ctx := context.Background()
	src := sample(t, format.VersionR2013)

	data, err := Write(ctx, src)
	require.NoError(t, err)

	doc, err := Read(ctx, data)
	require.NoError(t, err)
	require.Equal(t, src.Handles(), doc.Handles())
	require.Len(t, doc.ModelSpace, 1)
	require.Equal(t, "Größe", doc.ModelSpace[0].(*record.Text).Value)
}

func TestReadWriteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sample.dwg")

	require.NoError(t, WriteFile(ctx, path, sample(t, format.VersionR2018), container.WithVersion(format.VersionR2000)))

	doc, err := ReadFile(ctx, path)
	require.NoError(t, err)
	require.Equal(t, format.VersionR2000, doc.Version)
	require.Len(t, doc.ModelSpace, 1)

	_, err = ReadFile(ctx, filepath.Join(t.TempDir(), "missing.dwg"))
	require.Error(t, err)
}

func TestWriteDXF(t *testing.T) {
	tests := []struct {
		version  format.Version
		codePage uint16
		raw      string
	}{
		{format.VersionR2004, bitstream.CodePageANSI1252, "Gr\xF6\xDFe"},
		{format.VersionR2010, 0, "Größe"},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteDXF(&buf, sample(t, tt.version), false))
			require.Contains(t, buf.String(), "\r\n"+tt.raw+"\r\n")

			r, err := dxf.NewReader(&buf, tt.codePage)
			require.NoError(t, err)
			pairs, err := r.All()
			require.NoError(t, err)
			require.Contains(t, pairs, dxf.String(1, "Größe"))
		})
	}
}
