package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `job_id, kind, pipeline_name, ram_amount_mb, start_time, end_time, success, created_at, updated_at`

func insertJob(ctx context.Context, q sqlx.ExtContext, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, kind, pipeline_name, ram_amount_mb,
			start_time, end_time, success, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := q.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Kind,
		job.PipelineName,
		job.RAMAmountMB,
		job.StartTime,
		job.EndTime,
		job.Success,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// CreateJob appends a job row to the ledger. Survey and downloader jobs are
// created here by their collaborators; processor jobs go through the
// dispatch transaction instead.
func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	return insertJob(ctx, s.db, job)
}

// GetJobByID fetches a job by id.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter is the allow-listed set of job query parameters.
type JobFilter struct {
	Kind     string
	Pipeline string
	Success  *bool
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is a keyset pagination cursor over (created_at, job_id).
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs matching the filter; the extra row
// tells the caller whether more results exist.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, filter.Kind)
		argIdx++
	}

	if filter.Pipeline != "" {
		query += fmt.Sprintf(" AND pipeline_name = $%d", argIdx)
		args = append(args, filter.Pipeline)
		argIdx++
	}

	if filter.Success != nil {
		query += fmt.Sprintf(" AND success = $%d", argIdx)
		args = append(args, *filter.Success)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// RecordJobStart stamps start_time. Idempotent by overwrite; the ledger
// trusts the execution runtime to call it once.
func (s *Storage) RecordJobStart(ctx context.Context, jobID string, at time.Time) error {
	query := `
		UPDATE jobs
		SET start_time = $2, updated_at = $3
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, at, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record job start: %w", err)
	}

	return checkJobAffected(result)
}

// RecordJobEnd stamps end_time and the success flag.
func (s *Storage) RecordJobEnd(ctx context.Context, jobID string, at time.Time, success bool) error {
	query := `
		UPDATE jobs
		SET end_time = $2, success = $3, updated_at = $4
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, at, success, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record job end: %w", err)
	}

	return checkJobAffected(result)
}

func checkJobAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ListJobLifecycles returns the (start_time, end_time) projection of every
// job of the given kind, as one consistent snapshot for the stats aggregator.
func (s *Storage) ListJobLifecycles(ctx context.Context, kind string) ([]model.JobLifecycle, error) {
	query := `SELECT start_time, end_time FROM jobs WHERE kind = $1`

	var rows []model.JobLifecycle
	err := s.db.SelectContext(ctx, &rows, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list job lifecycles: %w", err)
	}

	return rows, nil
}
