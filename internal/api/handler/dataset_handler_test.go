package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bioforge/refinery-be/internal/api/dispatch"
	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/bioforge/refinery-be/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDatasetStore struct {
	datasets map[string]*model.Dataset
	err      error
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{datasets: make(map[string]*model.Dataset)}
}

func (s *fakeDatasetStore) CreateDataset(_ context.Context, ds *model.Dataset) error {
	if s.err != nil {
		return s.err
	}
	stored := *ds
	s.datasets[ds.DatasetID] = &stored
	return nil
}

func (s *fakeDatasetStore) GetDataset(_ context.Context, datasetID string) (*model.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	ds, ok := s.datasets[datasetID]
	if !ok {
		return nil, domain.ErrDatasetNotFound
	}
	out := *ds
	return &out, nil
}

func (s *fakeDatasetStore) UpdateDataset(_ context.Context, datasetID string, patch *model.DatasetPatch) (*model.Dataset, []string, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	ds, ok := s.datasets[datasetID]
	if !ok {
		return nil, nil, domain.ErrDatasetNotFound
	}
	ignored := ds.Apply(patch)
	out := *ds
	return &out, ignored, nil
}

type fakeStarter struct {
	dataset  *model.Dataset
	err      error
	gotToken string
	gotOpts  dispatch.StartOptions
}

func (s *fakeStarter) Start(_ context.Context, datasetID, tokenID string, opts dispatch.StartOptions) (*model.Dataset, error) {
	s.gotToken = tokenID
	s.gotOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

func newDatasetRouter(store DatasetStore, starter Starter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDatasetHandler(&Dependencies{
		Logger:     logger.NewDefault().Logger,
		Datasets:   store,
		Dispatcher: starter,
	})
	r := gin.New()
	r.POST("/api/v1/datasets", h.CreateDataset)
	r.GET("/api/v1/datasets/:dataset_id", h.GetDataset)
	r.PUT("/api/v1/datasets/:dataset_id", h.UpdateDataset)
	return r
}

func seedStoredDataset(store *fakeDatasetStore, processing bool) *model.Dataset {
	ds := &model.Dataset{
		DatasetID:    uuid.New().String(),
		Data:         types.JSONText(`{"E-1":["S-1","S-2"]}`),
		AggregateBy:  domain.AggregateByExperiment,
		IsProcessing: processing,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	store.datasets[ds.DatasetID] = ds
	return ds
}

func TestCreateDataset(t *testing.T) {
	store := newFakeDatasetStore()
	r := newDatasetRouter(store, &fakeStarter{})

	body := `{"data":{"E-1":["S-1","S-2"]},"aggregate_by":"SPECIES","email":"lab@example.org"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SPECIES", resp["aggregate_by"])
	assert.Equal(t, "lab@example.org", resp["email"])
	assert.Equal(t, false, resp["is_processing"])
	_, err := uuid.Parse(resp["id"].(string))
	assert.NoError(t, err)
	assert.Len(t, store.datasets, 1)
}

func TestCreateDatasetValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing data",
			body: `{"aggregate_by":"ALL"}`,
		},
		{
			name: "bad aggregate_by",
			body: `{"data":{"E-1":["S-1"]},"aggregate_by":"GENUS"}`,
		},
		{
			name: "bad email",
			body: `{"data":{"E-1":["S-1"]},"email":"not-an-email"}`,
		},
		{
			name: "malformed json",
			body: `{"data":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newDatasetRouter(newFakeDatasetStore(), &fakeStarter{})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateDatasetDefaultsAggregateBy(t *testing.T) {
	store := newFakeDatasetStore()
	r := newDatasetRouter(store, &fakeStarter{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", bytes.NewBufferString(`{"data":{"E-1":["S-1"]}}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.AggregateByExperiment, resp["aggregate_by"])
}

func TestGetDataset(t *testing.T) {
	store := newFakeDatasetStore()
	ds := seedStoredDataset(store, false)
	r := newDatasetRouter(store, &fakeStarter{})

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+ds.DatasetID, nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ds.DatasetID, resp["id"])
		data := resp["data"].(map[string]any)
		assert.Len(t, data["E-1"], 2)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+uuid.New().String(), nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets/not-a-uuid", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateDatasetPatch(t *testing.T) {
	store := newFakeDatasetStore()
	ds := seedStoredDataset(store, false)
	r := newDatasetRouter(store, &fakeStarter{})

	body := `{"email":"new@example.org","aggregate_by":"ALL"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasets/"+ds.DatasetID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new@example.org", resp["email"])
	assert.Equal(t, "ALL", resp["aggregate_by"])
	_, hasIgnored := resp["ignored_fields"]
	assert.False(t, hasIgnored)
}

func TestUpdateDatasetReportsIgnoredFields(t *testing.T) {
	store := newFakeDatasetStore()
	ds := seedStoredDataset(store, true)
	r := newDatasetRouter(store, &fakeStarter{})

	body := `{"data":{"E-2":["S-9"]},"aggregate_by":"ALL","email":"new@example.org"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/datasets/"+ds.DatasetID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []any{"data", "aggregate_by"}, resp["ignored_fields"])
	assert.Equal(t, "new@example.org", resp["email"])
	// frozen inputs untouched
	data := resp["data"].(map[string]any)
	_, kept := data["E-1"]
	assert.True(t, kept)
}

func TestUpdateDatasetStart(t *testing.T) {
	tokenID := uuid.New().String()

	t.Run("dispatches", func(t *testing.T) {
		store := newFakeDatasetStore()
		ds := seedStoredDataset(store, false)
		started := *ds
		started.IsProcessing = true
		starter := &fakeStarter{dataset: &started}
		r := newDatasetRouter(store, starter)

		body := `{"start":true,"token_id":"` + tokenID + `","no_send_job":true}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/v1/datasets/"+ds.DatasetID, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tokenID, starter.gotToken)
		assert.True(t, starter.gotOpts.SuppressSubmit)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["is_processing"])
	})

	t.Run("inactive token is forbidden", func(t *testing.T) {
		store := newFakeDatasetStore()
		ds := seedStoredDataset(store, false)
		starter := &fakeStarter{err: domain.ErrTokenNotActive}
		r := newDatasetRouter(store, starter)

		body := `{"start":true,"token_id":"` + tokenID + `"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/v1/datasets/"+ds.DatasetID, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "active API token")
	})

	t.Run("submission failure is a server error", func(t *testing.T) {
		store := newFakeDatasetStore()
		ds := seedStoredDataset(store, false)
		starter := &fakeStarter{err: errors.Join(domain.ErrSubmissionFailed, errors.New("broker down"))}
		r := newDatasetRouter(store, starter)

		body := `{"start":true,"token_id":"` + tokenID + `"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/v1/datasets/"+ds.DatasetID, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
