package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bioforge/refinery-be/internal/worker/domain"
)

// processJob claims the job, runs its pipeline and records the outcome.
//
// The claim is the at-most-once gate: when a redelivered or duplicated
// message reaches a job whose start_time is already set, the claim fails
// and the run is skipped.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("pipeline", msg.Pipeline),
		slog.String("worker_id", w.workerID),
	)

	job, err := w.storage.ClaimJob(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("claim rejected: %w", err)
		}
		// Database error - could be transient
		w.logger.Error("Failed to claim job",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	runErr := w.runPipeline(jobCtx, job)

	if err := w.storage.CompleteJob(ctx, job.JobID, runErr == nil); err != nil {
		w.logger.Error("Failed to record job outcome",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		// The run happened, the claim stands. ACK anyway so the job is
		// not re-run, the open lifecycle is visible in stats.
		return nil
	}

	if runErr != nil {
		w.logger.Error("Pipeline run failed",
			slog.String("job_id", job.JobID),
			slog.String("pipeline", job.PipelineName),
			slog.String("error", runErr.Error()),
		)
		if errors.Is(runErr, domain.ErrUnknownPipeline) {
			return runErr
		}
		// Failure is recorded on the ledger, the message is done.
		return nil
	}

	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.JobID),
		slog.String("pipeline", job.PipelineName),
	)

	return nil
}

// runPipeline executes the pipeline named on the job.
func (w *Worker) runPipeline(ctx context.Context, job *domain.Job) error {
	switch job.PipelineName {
	case domain.PipelineSmasher:
		return w.runSmasher(ctx, job)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownPipeline, job.PipelineName)
	}
}

// runSmasher stands in for the aggregation pipeline. The real work is
// done by an external compute backend, here the run is simulated so the
// lifecycle and ledger semantics are exercised end to end.
func (w *Worker) runSmasher(ctx context.Context, job *domain.Job) error {
	w.logger.Info("Running smasher pipeline",
		slog.String("job_id", job.JobID),
		slog.Int("ram_amount_mb", job.RAMAmountMB),
	)

	select {
	case <-time.After(2 * time.Second):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline run canceled: %w", ctx.Err())
	}
}
