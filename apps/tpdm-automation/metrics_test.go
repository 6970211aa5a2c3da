package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsUsesOwnRegistry(t *testing.T) {
	a := initMetrics()
	b := initMetrics()

	a.stageErrors.WithLabelValues("ingest").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.stageErrors.WithLabelValues("ingest")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.stageErrors.WithLabelValues("ingest")))
}

func TestClassifyRowsRecordsPredictions(t *testing.T) {
	model := trainedSeedModel(t)
	metrics := initMetrics()

	rows := []*Row{
		{SourceSheet: "Employees", RowNumber: 2, Comment: "New employee joining the team"},
		{SourceSheet: "Employees", RowNumber: 3, Comment: ""},
		{SourceSheet: "Employees", RowNumber: 4, Comment: "Employee termination effective immediately"},
	}
	classifyRows(model, rows, metrics)

	assert.Equal(t, LabelAdd, rows[0].Label)
	assert.Equal(t, LabelAdd, rows[1].Label)
	assert.Equal(t, LabelTerm, rows[2].Label)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.predictions.WithLabelValues("ADD", "model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.predictions.WithLabelValues("ADD", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.predictions.WithLabelValues("TERM", "model")))

	assert.Equal(t, map[Label]int{LabelAdd: 2, LabelTerm: 1}, labelCounts(rows))
}

func TestWriteTextfile(t *testing.T) {
	metrics := initMetrics()
	metrics.exportedRows.WithLabelValues("ADD").Add(3)

	path := filepath.Join(t.TempDir(), "tpdm.prom")
	require.NoError(t, metrics.writeTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `tpdm_exported_rows_total{label="ADD"} 3`)
}
