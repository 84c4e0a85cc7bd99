package dto

// ActivateTokenRequest is the body of POST /api/v1/tokens/:token_id/activate.
type ActivateTokenRequest struct {
	IsActivated *bool `json:"is_activated" binding:"required"`
}

// TokenDTO is the API token representation returned by the API.
type TokenDTO struct {
	ID          string `json:"id"`
	IsActivated bool   `json:"is_activated"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
