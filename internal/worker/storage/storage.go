package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bioforge/refinery-be/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimJob marks the job as started. The start_time guard makes the claim
// exclusive, a second worker delivering the same message gets
// ErrJobAlreadyClaimed.
func (s *Storage) ClaimJob(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET start_time = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1
		  AND start_time IS NULL
		RETURNING job_id, kind, pipeline_name, ram_amount_mb
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.JobID,
		&job.Kind,
		&job.PipelineName,
		&job.RAMAmountMB,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed successfully",
		slog.String("job_id", jobID),
		slog.String("pipeline", job.PipelineName),
	)

	return &job, nil
}

// CompleteJob closes the job's lifecycle with its outcome.
func (s *Storage) CompleteJob(ctx context.Context, jobID string, success bool) error {
	query := `
		UPDATE jobs
		SET end_time = NOW(),
		    success = $2,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, success)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job completed",
		slog.String("job_id", jobID),
		slog.Bool("success", success),
	)

	return nil
}
