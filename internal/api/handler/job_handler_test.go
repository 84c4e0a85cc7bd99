package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/dto"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/bioforge/refinery-be/internal/api/storage"
	"github.com/bioforge/refinery-be/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	jobs map[string]*model.Job
	err  error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*model.Job)}
}

func (s *fakeJobStore) GetJobByID(_ context.Context, jobID string) (*model.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := *job
	return &out, nil
}

// ListJobs mirrors the SQL store: filtered, keyset ordered by
// (created_at DESC, job_id DESC), one row past the page size.
func (s *fakeJobStore) ListJobs(_ context.Context, filter storage.JobFilter) ([]model.Job, error) {
	if s.err != nil {
		return nil, s.err
	}

	var out []model.Job
	for _, job := range s.jobs {
		if filter.Kind != "" && job.Kind != filter.Kind {
			continue
		}
		if filter.Pipeline != "" && job.PipelineName != filter.Pipeline {
			continue
		}
		if filter.Success != nil && (!job.Success.Valid || job.Success.Bool != *filter.Success) {
			continue
		}
		if filter.Cursor != nil {
			after := job.CreatedAt.Before(filter.Cursor.CreatedAt) ||
				(job.CreatedAt.Equal(filter.Cursor.CreatedAt) && job.JobID < filter.Cursor.JobID)
			if !after {
				continue
			}
		}
		out = append(out, *job)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID > out[j].JobID
	})

	if len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

func newJobRouter(store JobStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJobHandler(&Dependencies{
		Logger: logger.NewDefault().Logger,
		Jobs:   store,
	})
	r := gin.New()
	r.GET("/api/v1/jobs", h.ListJobs)
	r.GET("/api/v1/jobs/:job_id", h.GetJob)
	return r
}

func seedJob(store *fakeJobStore, kind string, createdAt time.Time) *model.Job {
	job := &model.Job{
		JobID:        uuid.New().String(),
		Kind:         kind,
		PipelineName: domain.SmasherPipeline,
		RAMAmountMB:  domain.SmasherRAMAmountMB,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	store.jobs[job.JobID] = job
	return job
}

func TestGetJob(t *testing.T) {
	store := newFakeJobStore()
	job := seedJob(store, domain.JobKindProcessor, time.Now().UTC())
	job.StartTime = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	r := newJobRouter(store)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.JobID, nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.JobDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, job.JobID, resp.JobID)
		assert.Equal(t, domain.JobKindProcessor, resp.Kind)
		assert.Equal(t, domain.SmasherPipeline, resp.PipelineName)
		assert.NotNil(t, resp.StartTime)
		assert.Nil(t, resp.EndTime)
		assert.Nil(t, resp.Success)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.New().String(), nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/42", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobsPagination(t *testing.T) {
	store := newFakeJobStore()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		seedJob(store, domain.JobKindProcessor, base.Add(time.Duration(i)*time.Minute))
	}
	r := newJobRouter(store)

	var seen []string
	cursor := ""
	for page := 0; page < 3; page++ {
		url := "/api/v1/jobs?page_size=2"
		if cursor != "" {
			url += "&cursor=" + cursor
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, job := range resp.Jobs {
			seen = append(seen, job.JobID)
		}
		cursor = resp.NextCursor
		if cursor == "" {
			break
		}
	}

	assert.Len(t, seen, 5)
	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	assert.Len(t, unique, 5)
}

func TestListJobsFilters(t *testing.T) {
	store := newFakeJobStore()
	now := time.Now().UTC()
	seedJob(store, domain.JobKindSurvey, now)
	seedJob(store, domain.JobKindProcessor, now.Add(time.Second))
	failed := seedJob(store, domain.JobKindProcessor, now.Add(2*time.Second))
	failed.Success = sql.NullBool{Bool: false, Valid: true}
	r := newJobRouter(store)

	t.Run("by kind", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?kind=PROCESSOR", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Jobs, 2)
	})

	t.Run("by success", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?success=false", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListJobsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 1)
		assert.Equal(t, failed.JobID, resp.Jobs[0].JobID)
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?kind=CLEANER", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad cursor rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs?cursor=%21%21%21", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListJobsPageSizeCap(t *testing.T) {
	store := newFakeJobStore()
	base := time.Now().UTC()
	for i := 0; i < maxPageSize+10; i++ {
		seedJob(store, domain.JobKindDownloader, base.Add(time.Duration(i)*time.Second))
	}
	r := newJobRouter(store)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs?page_size=%d", maxPageSize*5), nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, maxPageSize)
	assert.NotEmpty(t, resp.NextCursor)
}
