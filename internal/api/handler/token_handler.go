package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bioforge/refinery-be/internal/api/domain"
	"github.com/bioforge/refinery-be/internal/api/dto"
	"github.com/bioforge/refinery-be/internal/api/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TokenHandler handles API token HTTP requests
type TokenHandler struct {
	logger *slog.Logger
	store  TokenStore
}

// NewTokenHandler creates a new TokenHandler instance
func NewTokenHandler(deps *Dependencies) *TokenHandler {
	return &TokenHandler{
		logger: deps.Logger,
		store:  deps.Tokens,
	}
}

// CreateToken handles POST /api/v1/tokens
//
// Tokens are issued deactivated and must be activated before they can
// authorize a dataset start.
func (h *TokenHandler) CreateToken(c *gin.Context) {
	now := time.Now().UTC()
	token := model.AccessToken{
		TokenID:   uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateToken(c.Request.Context(), &token); err != nil {
		h.logger.Error("Failed to create token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create token",
		})
		return
	}

	h.logger.Info("Token issued", slog.String("token_id", token.TokenID))

	c.JSON(http.StatusCreated, toTokenDTO(&token))
}

// GetToken handles GET /api/v1/tokens/:token_id
func (h *TokenHandler) GetToken(c *gin.Context) {
	tokenID := c.Param("token_id")
	if _, err := uuid.Parse(tokenID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "token_id must be a valid UUID",
		})
		return
	}

	token, err := h.store.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		h.respondTokenError(c, tokenID, err)
		return
	}

	c.JSON(http.StatusOK, toTokenDTO(token))
}

// ActivateToken handles POST /api/v1/tokens/:token_id/activate
//
// Overwrites the activation flag, so repeating the call is harmless.
func (h *TokenHandler) ActivateToken(c *gin.Context) {
	tokenID := c.Param("token_id")
	if _, err := uuid.Parse(tokenID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "token_id must be a valid UUID",
		})
		return
	}

	var req dto.ActivateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	token, err := h.store.SetTokenActivation(c.Request.Context(), tokenID, *req.IsActivated)
	if err != nil {
		h.respondTokenError(c, tokenID, err)
		return
	}

	h.logger.Info("Token activation changed",
		slog.String("token_id", token.TokenID),
		slog.Bool("is_activated", token.IsActivated),
	)

	c.JSON(http.StatusOK, toTokenDTO(token))
}

func (h *TokenHandler) respondTokenError(c *gin.Context, tokenID string, err error) {
	if errors.Is(err, domain.ErrTokenNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Token not found",
		})
		return
	}

	h.logger.Error("Token operation failed",
		slog.String("token_id", tokenID),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Token operation failed",
	})
}

func toTokenDTO(token *model.AccessToken) dto.TokenDTO {
	return dto.TokenDTO{
		ID:          token.TokenID,
		IsActivated: token.IsActivated,
		CreatedAt:   token.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   token.UpdatedAt.Format(time.RFC3339),
	}
}
