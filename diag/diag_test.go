package diag

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollector_Record(t *testing.T) {
	var seen []Diagnostic
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := NewCollector(func(d Diagnostic) { seen = append(seen, d) }, logger)
	c.Warn(KindUnresolvedReference, "AcDb:AcDbObjects", 0x1F, nil, "layer 0x%X not found", 0x10)
	c.Error(KindDecode, "AcDb:Classes", 0, errors.New("boom"), "bad class")
	c.Info(KindIntegrity, "", 0, "checked")

	require.Len(t, seen, 3)
	require.Equal(t, 3, c.Len())
	require.Equal(t, 1, c.Count(KindUnresolvedReference))
	require.Equal(t, 0, c.Count(KindUnknownType))

	all := c.All()
	require.Equal(t, "layer 0x10 not found", all[0].Message)
	require.Equal(t, uint64(0x1F), all[0].Handle)
	require.Contains(t, buf.String(), "section=AcDb:AcDbObjects")
	require.Contains(t, buf.String(), "handle=0x1F")
	require.Contains(t, buf.String(), "level=ERROR")
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	c.Warn(KindDecode, "x", 0, nil, "ignored")
	require.Equal(t, 0, c.Len())
	require.Nil(t, c.All())
	require.Equal(t, 0, c.Count(KindDecode))
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Kind:     KindUnknownType,
		Severity: SeverityWarning,
		Section:  "AcDb:AcDbObjects",
		Handle:   0x2A,
		Message:  "type 0x1F5",
		Err:      errors.New("unsupported"),
	}
	require.Equal(t, "[warning/unknown-type] AcDb:AcDbObjects handle=0x2A: type 0x1F5: unsupported", d.String())
}
