package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title: "Security Activity",
		Columns: []Column{
			{Field: "time", Title: "Time"},
			{Field: "action", Title: "Action"},
		},
		Rows: []map[string]string{
			{"time": "2026-01-01T00:00:00Z", "action": "LOGIN"},
			{"action": "LOGOUT"},
		},
	}
}

func TestCSVRenderOrdersCellsByColumn(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Time,Action", lines[0])
	assert.Equal(t, "2026-01-01T00:00:00Z,LOGIN", lines[1])
	assert.Equal(t, ",LOGOUT", lines[2])
}

func TestCSVRenderRejectsEmptyLayout(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
