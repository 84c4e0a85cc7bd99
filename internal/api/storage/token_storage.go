package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/model"
)

const tokenColumns = `token_id, is_activated, created_at, updated_at`

// CreateToken inserts a new, unactivated API token.
func (s *Storage) CreateToken(ctx context.Context, token *model.AccessToken) error {
	query := `
		INSERT INTO api_tokens (token_id, is_activated, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		token.TokenID,
		token.IsActivated,
		token.CreatedAt,
		token.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetToken fetches a token by id.
func (s *Storage) GetToken(ctx context.Context, tokenID string) (*model.AccessToken, error) {
	var token model.AccessToken
	query := `SELECT ` + tokenColumns + ` FROM api_tokens WHERE token_id = $1`

	err := s.db.GetContext(ctx, &token, query, tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// SetTokenActivation sets is_activated to the desired state and returns the
// updated token. A plain boolean overwrite, so re-activation is idempotent.
func (s *Storage) SetTokenActivation(ctx context.Context, tokenID string, activated bool) (*model.AccessToken, error) {
	var token model.AccessToken
	query := `
		UPDATE api_tokens
		SET is_activated = $2, updated_at = $3
		WHERE token_id = $1
		RETURNING ` + tokenColumns

	err := s.db.GetContext(ctx, &token, query, tokenID, activated, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to set token activation: %w", err)
	}

	return &token, nil
}
