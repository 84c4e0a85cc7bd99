package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/bioforge/refinery-be/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the API service.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

const datasetColumns = `dataset_id, data, aggregate_by, email, is_processing, created_at, updated_at`

// CreateDataset inserts a new dataset row.
func (s *Storage) CreateDataset(ctx context.Context, ds *model.Dataset) error {
	query := `
		INSERT INTO datasets (
			dataset_id, data, aggregate_by, email,
			is_processing, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		ds.DatasetID,
		ds.Data,
		ds.AggregateBy,
		ds.Email,
		ds.IsProcessing,
		ds.CreatedAt,
		ds.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

// GetDataset fetches a dataset snapshot by id.
func (s *Storage) GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error) {
	var ds model.Dataset
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE dataset_id = $1`

	err := s.db.GetContext(ctx, &ds, query, datasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return &ds, nil
}

// getDatasetForUpdate locks the dataset row for the rest of the transaction.
func getDatasetForUpdate(ctx context.Context, tx *sqlx.Tx, datasetID string) (*model.Dataset, error) {
	var ds model.Dataset
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE dataset_id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &ds, query, datasetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to lock dataset: %w", err)
	}

	return &ds, nil
}

func saveDataset(ctx context.Context, tx *sqlx.Tx, ds *model.Dataset) error {
	query := `
		UPDATE datasets
		SET data = $2,
		    aggregate_by = $3,
		    email = $4,
		    is_processing = $5,
		    updated_at = $6
		WHERE dataset_id = $1
	`

	ds.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(
		ctx,
		query,
		ds.DatasetID,
		ds.Data,
		ds.AggregateBy,
		ds.Email,
		ds.IsProcessing,
		ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	return nil
}

// UpdateDataset applies a patch to a dataset inside a row-locked transaction.
// Returns the updated snapshot and the names of fields dropped because the
// dataset is already processing.
func (s *Storage) UpdateDataset(ctx context.Context, datasetID string, patch *model.DatasetPatch) (*model.Dataset, []string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ds, err := getDatasetForUpdate(ctx, tx, datasetID)
	if err != nil {
		return nil, nil, err
	}

	ignored := ds.Apply(patch)

	if err := saveDataset(ctx, tx, ds); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit dataset update: %w", err)
	}

	if len(ignored) > 0 {
		s.logger.Info("Dropped immutable dataset fields from patch",
			slog.String("dataset_id", datasetID),
			slog.Any("ignored_fields", ignored),
		)
	}

	return ds, ignored, nil
}

// DispatchDataset performs the start transition as one atomic unit: lock the
// dataset row, re-check is_processing, apply the patch, insert the processor
// job and its dataset link, flip is_processing, then run beforeCommit (the
// queue submission) and commit. Any failure after the lock rolls everything
// back, so is_processing never becomes visible without a dispatched job.
//
// When the dataset is already processing the start is a no-op: only the
// mutable subset of the patch is applied and started is false.
func (s *Storage) DispatchDataset(ctx context.Context, datasetID string, patch *model.DatasetPatch, job *model.Job, beforeCommit func(*model.Job) error) (*model.Dataset, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ds, err := getDatasetForUpdate(ctx, tx, datasetID)
	if err != nil {
		return nil, false, err
	}

	if ds.IsProcessing {
		// Duplicate start: never create a second job. Email updates still land.
		ds.Apply(patch)
		if err := saveDataset(ctx, tx, ds); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("failed to commit dataset update: %w", err)
		}

		s.logger.Info("Dataset already processing, start request absorbed",
			slog.String("dataset_id", datasetID),
		)
		return ds, false, nil
	}

	ds.Apply(patch)
	ds.IsProcessing = true

	if err := insertJob(ctx, tx, job); err != nil {
		return nil, false, err
	}

	link := &model.DatasetJobLink{
		DatasetID: ds.DatasetID,
		JobID:     job.JobID,
		CreatedAt: time.Now().UTC(),
	}
	if err := insertDatasetJobLink(ctx, tx, link); err != nil {
		return nil, false, err
	}

	if err := saveDataset(ctx, tx, ds); err != nil {
		return nil, false, err
	}

	if beforeCommit != nil {
		if err := beforeCommit(job); err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit dispatch: %w", err)
	}

	s.logger.Info("Dataset dispatched",
		slog.String("dataset_id", datasetID),
		slog.String("job_id", job.JobID),
		slog.String("pipeline", job.PipelineName),
	)

	return ds, true, nil
}

func insertDatasetJobLink(ctx context.Context, tx *sqlx.Tx, link *model.DatasetJobLink) error {
	query := `
		INSERT INTO dataset_job_links (dataset_id, job_id, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := tx.ExecContext(ctx, query, link.DatasetID, link.JobID, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dataset job link: %w", err)
	}

	return nil
}
