package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/dto"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/bioforge/refinery-be/internal/api/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// JobHandler handles job ledger HTTP requests
type JobHandler struct {
	logger *slog.Logger
	store  JobStore
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		store:  deps.Jobs,
	}
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := storage.JobFilter{
		Kind:     req.Kind,
		Pipeline: req.Pipeline,
		Success:  req.Success,
		PageSize: pageSize,
	}
	if req.Cursor != "" {
		cursor, err := decodeJobCursor(req.Cursor)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid cursor",
			})
			return
		}
		filter.Cursor = cursor
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	// The store fetches one extra row to detect a following page.
	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, 0, len(jobs))}
	hasMore := len(jobs) > pageSize
	if hasMore {
		jobs = jobs[:pageSize]
	}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, toJobDTO(&jobs[i]))
	}
	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = encodeJobCursor(storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

func toJobDTO(job *model.Job) dto.JobDTO {
	out := dto.JobDTO{
		JobID:        job.JobID,
		Kind:         job.Kind,
		PipelineName: job.PipelineName,
		RAMAmountMB:  job.RAMAmountMB,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    job.UpdatedAt.Format(time.RFC3339),
	}
	if job.StartTime.Valid {
		v := job.StartTime.Time.Format(time.RFC3339)
		out.StartTime = &v
	}
	if job.EndTime.Valid {
		v := job.EndTime.Time.Format(time.RFC3339)
		out.EndTime = &v
	}
	if job.Success.Valid {
		v := job.Success.Bool
		out.Success = &v
	}
	return out
}
