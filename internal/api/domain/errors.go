package domain

import (
	"errors"
)

var (
	// ErrDatasetNotFound is returned when a dataset id is unknown
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrTokenNotFound is returned when an API token id is unknown
	ErrTokenNotFound = errors.New("token not found")

	// ErrJobNotFound is returned when a job id is unknown
	ErrJobNotFound = errors.New("job not found")

	// ErrTokenNotActive is returned when a dataset start request carries a
	// missing, unknown or unactivated API token
	ErrTokenNotActive = errors.New("must provide an active API token")

	// ErrSubmissionFailed is returned when the execution queue rejects the
	// job submission; the whole dispatch transaction is rolled back
	ErrSubmissionFailed = errors.New("failed to submit job to execution queue")
)
