package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Dismissal 2026-10-16",
		Summary: []string{"Total: 2", "Dismissed: 1"},
		Headers: []string{"Position", "Student", "Status"},
		Rows: []map[string]string{
			{"Position": "1", "Student": "Ana, Ruiz", "Status": "dismissed"},
			{"Position": "2", "Student": "Ben Ortiz", "Status": "waiting"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Position,Student,Status", lines[0])
	assert.Equal(t, `1,"Ana, Ruiz",dismissed`, lines[1])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter(map[string]float64{"Student": 3})
	out, err := exporter.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", exporter.ContentType())
}

func TestPDFColumnWidthsFillPage(t *testing.T) {
	widths := NewPDFExporter(map[string]float64{"Student": 2}).columnWidths([]string{"Position", "Student", "Status"})
	assert.InDelta(t, pageWidth/4, widths[0], 0.001)
	assert.InDelta(t, pageWidth/2, widths[1], 0.001)
}
