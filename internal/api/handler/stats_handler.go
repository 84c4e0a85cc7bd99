package handler

import (
	"log/slog"
	"net/http"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/dto"
	"github.com/bioforge/refinery-be/internal/api/stats"
	"github.com/gin-gonic/gin"
)

// StatsHandler handles job statistics HTTP requests
type StatsHandler struct {
	logger *slog.Logger
	stats  Summarizer
}

// NewStatsHandler creates a new StatsHandler instance
func NewStatsHandler(deps *Dependencies) *StatsHandler {
	return &StatsHandler{
		logger: deps.Logger,
		stats:  deps.Stats,
	}
}

// GetStats handles GET /api/v1/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	resp := dto.StatsResponse{}
	buckets := map[string]*dto.JobStatsDTO{
		domain.JobKindSurvey:     &resp.SurveyJobs,
		domain.JobKindDownloader: &resp.DownloaderJobs,
		domain.JobKindProcessor:  &resp.ProcessorJobs,
	}

	for _, kind := range domain.JobKinds {
		summary, err := h.stats.Summarize(ctx, kind)
		if err != nil {
			h.logger.Error("Failed to compute job stats",
				slog.String("kind", kind),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to compute stats",
			})
			return
		}
		*buckets[kind] = toJobStatsDTO(summary)
	}

	c.JSON(http.StatusOK, resp)
}

func toJobStatsDTO(summary *stats.Summary) dto.JobStatsDTO {
	return dto.JobStatsDTO{
		Total:       summary.Total,
		Pending:     summary.Pending,
		Completed:   summary.Completed,
		Open:        summary.Open,
		AverageTime: summary.AverageTime,
	}
}
