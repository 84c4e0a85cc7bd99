package stats

import (
	"context"
	"fmt"

	"github.com/bioforge/refinery-be/internal/api/model"
)

// Ledger is the read model the aggregator consumes.
type Ledger interface {
	ListJobLifecycles(ctx context.Context, kind string) ([]model.JobLifecycle, error)
}

// Summary holds the per-kind job statistics. AverageTime is the mean
// duration in seconds over jobs with both timestamps, nil when there are
// none.
type Summary struct {
	Total       int
	Pending     int
	Completed   int
	Open        int
	AverageTime *float64
}

// Aggregator computes job statistics on demand.
type Aggregator struct {
	ledger Ledger
}

// NewAggregator creates an Aggregator over the given ledger.
func NewAggregator(ledger Ledger) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// Summarize counts jobs of the given kind by lifecycle state and averages
// the duration of the jobs that ran to completion.
//
// pending: start_time unset; open: started but not ended; completed:
// end_time set.
func (a *Aggregator) Summarize(ctx context.Context, kind string) (*Summary, error) {
	rows, err := a.ledger.ListJobLifecycles(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s jobs: %w", kind, err)
	}

	summary := &Summary{Total: len(rows)}

	var durationSum float64
	var durationCount int

	// The buckets are counted independently, the way the ledger queries
	// define them: a row can be pending and completed at once only if the
	// runtime wrote end_time without start_time, and then it counts as both.
	for _, row := range rows {
		if !row.StartTime.Valid {
			summary.Pending++
		}
		if row.EndTime.Valid {
			summary.Completed++
		}
		if row.StartTime.Valid && !row.EndTime.Valid {
			summary.Open++
		}

		if row.StartTime.Valid && row.EndTime.Valid {
			durationSum += row.EndTime.Time.Sub(row.StartTime.Time).Seconds()
			durationCount++
		}
	}

	if durationCount > 0 {
		avg := durationSum / float64(durationCount)
		summary.AverageTime = &avg
	}

	return summary, nil
}
