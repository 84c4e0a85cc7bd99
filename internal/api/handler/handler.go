package handler

import (
	"context"
	"log/slog"

	"github.com/bioforge/refinery-be/internal/api/dispatch"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/bioforge/refinery-be/internal/api/stats"
	"github.com/bioforge/refinery-be/internal/api/storage"
)

// DatasetStore is the dataset repository surface the handlers need.
type DatasetStore interface {
	CreateDataset(ctx context.Context, ds *model.Dataset) error
	GetDataset(ctx context.Context, datasetID string) (*model.Dataset, error)
	UpdateDataset(ctx context.Context, datasetID string, patch *model.DatasetPatch) (*model.Dataset, []string, error)
}

// TokenStore is the API token repository surface the handlers need.
type TokenStore interface {
	CreateToken(ctx context.Context, token *model.AccessToken) error
	GetToken(ctx context.Context, tokenID string) (*model.AccessToken, error)
	SetTokenActivation(ctx context.Context, tokenID string, activated bool) (*model.AccessToken, error)
}

// JobStore is the job ledger surface the handlers need.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]model.Job, error)
}

// Starter triggers the dataset start operation.
type Starter interface {
	Start(ctx context.Context, datasetID, tokenID string, opts dispatch.StartOptions) (*model.Dataset, error)
}

// Summarizer computes per-kind job statistics.
type Summarizer interface {
	Summarize(ctx context.Context, kind string) (*stats.Summary, error)
}

// HealthChecker reports backing-store health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Datasets   DatasetStore
	Tokens     TokenStore
	Jobs       JobStore
	Dispatcher Starter
	Stats      Summarizer
	DB         HealthChecker
}
