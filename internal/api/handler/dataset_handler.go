package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bioforge/refinery-be/internal/api/dispatch"
	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/dto"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// DatasetHandler handles dataset HTTP requests
type DatasetHandler struct {
	logger     *slog.Logger
	store      DatasetStore
	dispatcher Starter
}

// NewDatasetHandler creates a new DatasetHandler instance
func NewDatasetHandler(deps *Dependencies) *DatasetHandler {
	return &DatasetHandler{
		logger:     deps.Logger,
		store:      deps.Datasets,
		dispatcher: deps.Dispatcher,
	}
}

// CreateDataset handles POST /api/v1/datasets
func (h *DatasetHandler) CreateDataset(c *gin.Context) {
	var req dto.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	data, err := json.Marshal(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid dataset data",
		})
		return
	}

	aggregateBy := req.AggregateBy
	if aggregateBy == "" {
		aggregateBy = domain.AggregateByExperiment
	}

	now := time.Now().UTC()
	ds := model.Dataset{
		DatasetID:   uuid.New().String(),
		Data:        types.JSONText(data),
		AggregateBy: aggregateBy,
		Email:       req.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.CreateDataset(c.Request.Context(), &ds); err != nil {
		h.logger.Error("Failed to create dataset", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create dataset",
		})
		return
	}

	h.logger.Info("Dataset created",
		slog.String("dataset_id", ds.DatasetID),
		slog.String("aggregate_by", ds.AggregateBy),
	)

	c.JSON(http.StatusCreated, toDatasetDTO(&ds, nil))
}

// GetDataset handles GET /api/v1/datasets/:dataset_id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	datasetID := c.Param("dataset_id")
	if _, err := uuid.Parse(datasetID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "dataset_id must be a valid UUID",
		})
		return
	}

	ds, err := h.store.GetDataset(c.Request.Context(), datasetID)
	if err != nil {
		if errors.Is(err, domain.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Dataset not found",
			})
			return
		}
		h.logger.Error("Failed to get dataset", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get dataset",
		})
		return
	}

	c.JSON(http.StatusOK, toDatasetDTO(ds, nil))
}

// UpdateDataset handles PUT /api/v1/datasets/:dataset_id
//
// A plain patch edits the dataset; inputs already frozen by processing are
// reported back in ignored_fields. With start=true and a valid activated
// token the dataset is handed to the dispatcher.
func (h *DatasetHandler) UpdateDataset(c *gin.Context) {
	datasetID := c.Param("dataset_id")
	if _, err := uuid.Parse(datasetID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "dataset_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	patch := &model.DatasetPatch{
		AggregateBy: req.AggregateBy,
		Email:       req.Email,
	}
	if req.Data != nil {
		data, err := json.Marshal(req.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid dataset data",
			})
			return
		}
		patch.Data = types.JSONText(data)
	}

	if req.Start {
		h.startDataset(c, datasetID, patch, &req)
		return
	}

	ds, ignored, err := h.store.UpdateDataset(c.Request.Context(), datasetID, patch)
	if err != nil {
		h.respondDatasetError(c, datasetID, err)
		return
	}

	c.JSON(http.StatusOK, toDatasetDTO(ds, ignored))
}

func (h *DatasetHandler) startDataset(c *gin.Context, datasetID string, patch *model.DatasetPatch, req *dto.UpdateDatasetRequest) {
	ds, err := h.dispatcher.Start(c.Request.Context(), datasetID, req.TokenID, dispatch.StartOptions{
		Patch:          patch,
		SuppressSubmit: req.NoSendJob,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotActive) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "You must provide an active API token",
			})
			return
		}
		h.respondDatasetError(c, datasetID, err)
		return
	}

	c.JSON(http.StatusOK, toDatasetDTO(ds, nil))
}

func (h *DatasetHandler) respondDatasetError(c *gin.Context, datasetID string, err error) {
	if errors.Is(err, domain.ErrDatasetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Dataset not found",
		})
		return
	}

	h.logger.Error("Dataset operation failed",
		slog.String("dataset_id", datasetID),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to update dataset",
	})
}

func toDatasetDTO(ds *model.Dataset, ignored []string) dto.DatasetDTO {
	var data map[string][]string
	if len(ds.Data) > 0 {
		// Stored payloads always round-trip; a decode failure leaves data null.
		_ = json.Unmarshal(ds.Data, &data)
	}

	return dto.DatasetDTO{
		ID:            ds.DatasetID,
		Data:          data,
		AggregateBy:   ds.AggregateBy,
		Email:         ds.Email,
		IsProcessing:  ds.IsProcessing,
		IgnoredFields: ignored,
		CreatedAt:     ds.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     ds.UpdatedAt.Format(time.RFC3339),
	}
}
