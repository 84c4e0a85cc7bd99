package dto

// CreateDatasetRequest is the body of POST /api/v1/datasets.
// Data maps experiment accession codes to sample accession codes.
type CreateDatasetRequest struct {
	Data        map[string][]string `json:"data" binding:"required"`
	AggregateBy string              `json:"aggregate_by" binding:"omitempty,oneof=ALL EXPERIMENT SPECIES"`
	Email       string              `json:"email" binding:"omitempty,email"`
}

// UpdateDatasetRequest is the body of PUT /api/v1/datasets/:dataset_id.
// Setting start together with an activated token_id begins smashing and
// delivery; no_send_job suppresses the queue submission for tests.
type UpdateDatasetRequest struct {
	Data        map[string][]string `json:"data"`
	AggregateBy *string             `json:"aggregate_by" binding:"omitempty,oneof=ALL EXPERIMENT SPECIES"`
	Email       *string             `json:"email" binding:"omitempty,email"`
	Start       bool                `json:"start"`
	TokenID     string              `json:"token_id"`
	NoSendJob   bool                `json:"no_send_job"`
}

// DatasetDTO is the dataset representation returned by the API.
type DatasetDTO struct {
	ID            string              `json:"id"`
	Data          map[string][]string `json:"data"`
	AggregateBy   string              `json:"aggregate_by"`
	Email         string              `json:"email,omitempty"`
	IsProcessing  bool                `json:"is_processing"`
	IgnoredFields []string            `json:"ignored_fields,omitempty"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}
