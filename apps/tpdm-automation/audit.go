package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// runRecorder persists an audit trail of each run.
type runRecorder interface {
	RecordRun(ctx context.Context, report *RunReport, rows []*Row) error
	Close() error
}

// noopRecorder is used when no database is configured.
type noopRecorder struct{}

func (noopRecorder) RecordRun(context.Context, *RunReport, []*Row) error { return nil }
func (noopRecorder) Close() error                                       { return nil }

type postgresRecorder struct {
	db      *sql.DB
	metrics *Metrics
	logger  *zap.Logger
}

// initRecorder connects to the audit database, or returns a no-op recorder
// when dbURL is empty.
func initRecorder(ctx context.Context, dbURL string, metrics *Metrics, logger *zap.Logger) (runRecorder, error) {
	if dbURL == "" {
		logger.Debug("DATABASE_URL not set, running without audit log")
		return noopRecorder{}, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single pass never needs more than one connection at a time.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema setup failed: %w", err)
	}

	return &postgresRecorder{
		db:      db,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "audit")),
	}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE SCHEMA IF NOT EXISTS stage`,
		`CREATE TABLE IF NOT EXISTS stage.tpdm_runs (
			run_id TEXT PRIMARY KEY,
			input_path TEXT,
			status TEXT,
			rows_total INTEGER,
			label_counts JSONB,
			output_files TEXT[],
			error_message TEXT,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS stage.tpdm_predictions (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT REFERENCES stage.tpdm_runs(run_id) ON DELETE CASCADE,
			source_sheet TEXT,
			row_number INTEGER,
			comment TEXT,
			predicted_label TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create audit table: %w", err)
		}
	}
	return nil
}

// RecordRun stores the run summary and every prediction in one transaction.
func (p *postgresRecorder) RecordRun(ctx context.Context, report *RunReport, rows []*Row) error {
	counts := make(map[string]int, len(report.Counts))
	for label, n := range report.Counts {
		counts[string(label)] = n
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal label counts: %w", err)
	}

	errMsg := ""
	if report.Err != nil {
		errMsg = report.Err.Error()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		p.metrics.stageErrors.WithLabelValues("audit").Inc()
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stage.tpdm_runs (
			run_id, input_path, status, rows_total, label_counts,
			output_files, error_message, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		report.RunID, report.InputPath, report.Status, report.Rows, countsJSON,
		pq.Array(report.Files), errMsg, report.StartedAt, report.CompletedAt,
	)
	if err != nil {
		p.metrics.stageErrors.WithLabelValues("audit").Inc()
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyInSchema("stage", "tpdm_predictions",
			"run_id", "source_sheet", "row_number", "comment", "predicted_label",
		))
		if err != nil {
			p.metrics.stageErrors.WithLabelValues("audit").Inc()
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				report.RunID, row.SourceSheet, row.RowNumber, row.Comment, string(row.Label),
			); err != nil {
				p.metrics.stageErrors.WithLabelValues("audit").Inc()
				return fmt.Errorf("failed to copy prediction: %w", err)
			}
		}

		// Flush the COPY buffer
		if _, err := stmt.ExecContext(ctx); err != nil {
			p.metrics.stageErrors.WithLabelValues("audit").Inc()
			return fmt.Errorf("failed to execute bulk insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		p.metrics.stageErrors.WithLabelValues("audit").Inc()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	p.logger.Info("Recorded run", zap.String("run_id", report.RunID), zap.Int("predictions", len(rows)))
	return nil
}

func (p *postgresRecorder) Close() error {
	return p.db.Close()
}
