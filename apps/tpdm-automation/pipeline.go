package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	statusCompleted = "completed"
	statusEmpty     = "empty"
	statusFailed    = "failed"
)

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID        string
	InputPath    string
	Status       string
	StartedAt    time.Time
	CompletedAt  time.Time
	Rows         int
	Counts       map[Label]int
	Files        []string
	UploadedKeys []string
	Err          error
}

// Pipeline runs ingestion, classification and export over one input workbook.
type Pipeline struct {
	cfg       *Config
	logger    *zap.Logger
	metrics   *Metrics
	artifacts *artifactStore
	recorder  runRecorder
}

// newPipeline wires the optional collaborators selected by cfg.
func newPipeline(ctx context.Context, cfg *Config, logger *zap.Logger) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		logger:   logger,
		metrics:  initMetrics(),
		recorder: noopRecorder{},
	}

	if cfg.S3.Bucket != "" {
		client, err := initS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		p.artifacts = newArtifactStore(client, cfg.S3, logger)
	}

	recorder, err := initRecorder(ctx, cfg.DatabaseURL, p.metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	p.recorder = recorder

	return p, nil
}

// Close releases the audit database connection.
func (p *Pipeline) Close() error {
	return p.recorder.Close()
}

// Run executes one pass over the configured input. The returned report is
// always non-nil.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		InputPath: p.cfg.InputPath,
		StartedAt: time.Now().UTC(),
		Counts:    make(map[Label]int),
	}
	logger := p.logger.With(zap.String("run_id", report.RunID))

	rows, err := p.run(ctx, report, logger)

	report.CompletedAt = time.Now().UTC()
	report.Err = err
	switch {
	case err == nil:
		report.Status = statusCompleted
	case errors.Is(err, errNoRows):
		report.Status = statusEmpty
	default:
		report.Status = statusFailed
	}

	// The audit trail and metrics never change the outcome of a run.
	if recErr := p.recorder.RecordRun(ctx, report, rows); recErr != nil {
		logger.Warn("Failed to record run", zap.Error(recErr))
	}
	if p.cfg.MetricsTextfile != "" {
		if mErr := p.metrics.writeTextfile(p.cfg.MetricsTextfile); mErr != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("path", p.cfg.MetricsTextfile), zap.Error(mErr))
		}
	}

	return report, err
}

func (p *Pipeline) run(ctx context.Context, report *RunReport, logger *zap.Logger) ([]*Row, error) {
	if err := p.prepareDirs(); err != nil {
		p.metrics.stageErrors.WithLabelValues("bootstrap").Inc()
		return nil, err
	}

	if p.cfg.CreateSample {
		if _, err := os.Stat(p.cfg.InputPath); errors.Is(err, os.ErrNotExist) {
			if err := writeSampleWorkbook(p.cfg.InputPath); err != nil {
				return nil, fmt.Errorf("%w: failed to create sample input: %w", ErrOutputUnwritable, err)
			}
			logger.Info("Created sample input workbook", zap.String("path", p.cfg.InputPath))
		}
	}

	model, err := p.loadModel(ctx, logger)
	if err != nil {
		p.metrics.stageErrors.WithLabelValues("model").Inc()
		return nil, err
	}

	sheets, err := readSheets(p.cfg.InputPath)
	if err != nil {
		p.metrics.stageErrors.WithLabelValues("ingest").Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrInputUnreadable, p.cfg.InputPath, err)
	}

	rows := buildRows(sheets, logger)
	for _, row := range rows {
		p.metrics.rowsIngested.WithLabelValues(row.SourceSheet).Inc()
	}
	report.Rows = len(rows)
	logger.Info("Read input workbook",
		zap.String("path", p.cfg.InputPath),
		zap.Int("sheets", len(sheets)),
		zap.Int("rows", len(rows)),
	)
	if len(rows) == 0 {
		return nil, errNoRows
	}

	classifyRows(model, rows, p.metrics)
	report.Counts = labelCounts(rows)

	groups := partitionRows(rows)
	files, err := exportGroups(p.cfg.OutputDir, groups)
	report.Files = files
	if err != nil {
		p.metrics.stageErrors.WithLabelValues("export").Inc()
		return rows, err
	}
	for _, group := range groups {
		p.metrics.exportedRows.WithLabelValues(string(group.Label)).Add(float64(len(group.Rows)))
		logger.Info("Created output workbook",
			zap.String("file", group.FileName()),
			zap.Int("rows", len(group.Rows)),
		)
	}

	if p.artifacts != nil {
		keys, err := p.artifacts.uploadOutputs(ctx, report.RunID, groups, files)
		report.UploadedKeys = keys
		if err != nil {
			// Local outputs are complete; the bucket copy is best effort.
			p.metrics.stageErrors.WithLabelValues("upload").Inc()
			logger.Warn("Failed to upload outputs", zap.Error(err))
		}
	}

	return rows, nil
}

// prepareDirs creates the output and model directories when missing.
func (p *Pipeline) prepareDirs() error {
	for _, dir := range []string{p.cfg.OutputDir, filepath.Dir(p.cfg.ModelPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: failed to create directory %s: %w", ErrOutputUnwritable, dir, err)
		}
	}
	return nil
}

// loadModel returns the persisted model, the bucket copy, or a freshly
// trained one, in that order. Retrain skips the first two.
func (p *Pipeline) loadModel(ctx context.Context, logger *zap.Logger) (*Model, error) {
	path := p.cfg.ModelPath

	if !p.cfg.Retrain {
		if _, err := os.Stat(path); err == nil {
			model, err := LoadModel(path)
			if err != nil {
				return nil, err
			}
			p.metrics.modelLoads.WithLabelValues("disk").Inc()
			logger.Info("Loaded existing model", zap.String("path", path))
			return model, nil
		}

		if p.artifacts != nil {
			found, err := p.artifacts.fetchModel(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
			}
			if found {
				model, err := LoadModel(path)
				if err != nil {
					return nil, err
				}
				p.metrics.modelLoads.WithLabelValues("s3").Inc()
				return model, nil
			}
		}
	}

	return p.trainModel(ctx, logger)
}

// trainModel trains on the seed corpus and persists the result.
func (p *Pipeline) trainModel(ctx context.Context, logger *zap.Logger) (*Model, error) {
	corpus, err := SeedCorpus()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	model, err := Train(corpus, DefaultTrainOptions())
	p.metrics.trainingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if err := model.Save(p.cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: failed to save model: %w", ErrOutputUnwritable, err)
	}
	p.metrics.modelLoads.WithLabelValues("trained").Inc()
	logger.Info("Trained model",
		zap.String("path", p.cfg.ModelPath),
		zap.Int("examples", len(corpus)),
		zap.Int("features", model.Featurizer.Dim()),
		zap.Duration("took", time.Since(start)),
	)

	if p.artifacts != nil {
		if err := p.artifacts.uploadModel(ctx, p.cfg.ModelPath); err != nil {
			p.metrics.stageErrors.WithLabelValues("upload").Inc()
			logger.Warn("Failed to upload model", zap.Error(err))
		}
	}

	return model, nil
}
