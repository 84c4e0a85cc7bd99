package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/google/uuid"
)

// Store is the slice of storage the dispatcher needs: the token gate and the
// atomic dataset start transition.
type Store interface {
	GetToken(ctx context.Context, tokenID string) (*model.AccessToken, error)
	DispatchDataset(ctx context.Context, datasetID string, patch *model.DatasetPatch, job *model.Job, beforeCommit func(*model.Job) error) (*model.Dataset, bool, error)
}

// Queue is the external execution queue. Fire and forget; no response
// payload is consumed.
type Queue interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// StartOptions tunes a single start request.
type StartOptions struct {
	// Patch is applied together with the transition (email, selection edits
	// arriving on the same request).
	Patch *model.DatasetPatch

	// SuppressSubmit skips the queue submission. Test-only escape hatch
	// (the no_send_job request flag).
	SuppressSubmit bool
}

// jobMessage is the payload handed to the execution queue.
type jobMessage struct {
	JobID    string `json:"job_id"`
	Pipeline string `json:"pipeline"`
}

// Dispatcher owns the dataset start operation: token validation, the
// processing transition, processor job creation and queue submission.
type Dispatcher struct {
	store  Store
	queue  Queue
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store Store, queue Queue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		queue:  queue,
		logger: logger,
	}
}

// newProcessorJob builds the smasher job dispatched for a dataset start.
func newProcessorJob() *model.Job {
	now := time.Now().UTC()
	return &model.Job{
		JobID:        uuid.New().String(),
		Kind:         domain.JobKindProcessor,
		PipelineName: domain.SmasherPipeline,
		RAMAmountMB:  domain.SmasherRAMAmountMB,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start transitions the dataset into processing and submits the smasher job.
//
// The token must exist and be activated or the request is rejected with
// domain.ErrTokenNotActive before anything is touched. A start on a dataset
// that is already processing is absorbed: the snapshot is returned, no
// second job is created. Everything else happens inside one storage
// transaction; a failed queue submission rolls it back.
func (d *Dispatcher) Start(ctx context.Context, datasetID, tokenID string, opts StartOptions) (*model.Dataset, error) {
	token, err := d.store.GetToken(ctx, tokenID)
	if err != nil {
		d.logger.Warn("Dataset start rejected, token lookup failed",
			slog.String("dataset_id", datasetID),
			slog.Any("error", err),
		)
		return nil, domain.ErrTokenNotActive
	}
	if !token.IsActivated {
		d.logger.Warn("Dataset start rejected, token not activated",
			slog.String("dataset_id", datasetID),
			slog.String("token_id", tokenID),
		)
		return nil, domain.ErrTokenNotActive
	}

	job := newProcessorJob()

	submit := func(j *model.Job) error {
		if opts.SuppressSubmit {
			return nil
		}
		return d.submit(ctx, j)
	}

	ds, started, err := d.store.DispatchDataset(ctx, datasetID, opts.Patch, job, submit)
	if err != nil {
		return nil, err
	}

	if started {
		d.logger.Info("Dataset start dispatched",
			slog.String("dataset_id", datasetID),
			slog.String("job_id", job.JobID),
			slog.Bool("submitted", !opts.SuppressSubmit),
		)
	} else {
		d.logger.Info("Duplicate dataset start ignored",
			slog.String("dataset_id", datasetID),
		)
	}

	return ds, nil
}

func (d *Dispatcher) submit(ctx context.Context, job *model.Job) error {
	body, err := json.Marshal(jobMessage{
		JobID:    job.JobID,
		Pipeline: job.PipelineName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	return d.queue.Publish(ctx, body, "application/json")
}
