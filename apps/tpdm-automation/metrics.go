package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one run.
type Metrics struct {
	registry *prometheus.Registry

	rowsIngested     *prometheus.CounterVec
	predictions      *prometheus.CounterVec
	exportedRows     *prometheus.CounterVec
	modelLoads       *prometheus.CounterVec
	stageErrors      *prometheus.CounterVec
	trainingDuration prometheus.Histogram
}

func initMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpdm_rows_ingested_total",
				Help: "Number of data rows read from the input workbook",
			},
			[]string{"sheet"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpdm_predictions_total",
				Help: "Predicted actions by label and by whether the model or the blank-comment default decided",
			},
			[]string{"label", "source"},
		),
		exportedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpdm_exported_rows_total",
				Help: "Rows written to per-label output workbooks",
			},
			[]string{"label"},
		),
		modelLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpdm_model_loads_total",
				Help: "How the classifier was obtained (disk, s3, trained)",
			},
			[]string{"source"},
		),
		stageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tpdm_stage_errors_total",
				Help: "Errors by pipeline stage",
			},
			[]string{"stage"},
		),
		trainingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tpdm_training_duration_seconds",
				Help:    "Time taken to train the classifier",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		),
	}

	m.registry.MustRegister(
		m.rowsIngested,
		m.predictions,
		m.exportedRows,
		m.modelLoads,
		m.stageErrors,
		m.trainingDuration,
	)

	return m
}

// writeTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
