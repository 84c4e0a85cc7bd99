package model

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Dataset is a user-defined selection of samples plus an aggregation
// strategy, to be smashed into a deliverable artifact.
type Dataset struct {
	DatasetID    string         `db:"dataset_id"`
	Data         types.JSONText `db:"data"`
	AggregateBy  string         `db:"aggregate_by"`
	Email        string         `db:"email"`
	IsProcessing bool           `db:"is_processing"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// AccessToken gates who may start a dataset. Tokens are issued
// unactivated and must be activated by the holder before use.
type AccessToken struct {
	TokenID     string    `db:"token_id"`
	IsActivated bool      `db:"is_activated"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Job is a single ledger row. Survey, downloader and processor jobs share
// the structure; Kind tells them apart. StartTime, EndTime and Success are
// written by the execution runtime after creation.
type Job struct {
	JobID        string       `db:"job_id"`
	Kind         string       `db:"kind"`
	PipelineName string       `db:"pipeline_name"`
	RAMAmountMB  int          `db:"ram_amount_mb"`
	StartTime    sql.NullTime `db:"start_time"`
	EndTime      sql.NullTime `db:"end_time"`
	Success      sql.NullBool `db:"success"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// DatasetJobLink binds a processor job to the dataset it smashes.
// Rows are immutable and inserted in the same transaction as the job.
type DatasetJobLink struct {
	DatasetID string    `db:"dataset_id"`
	JobID     string    `db:"job_id"`
	CreatedAt time.Time `db:"created_at"`
}

// JobLifecycle is the stats projection of a job row.
type JobLifecycle struct {
	StartTime sql.NullTime `db:"start_time"`
	EndTime   sql.NullTime `db:"end_time"`
}
