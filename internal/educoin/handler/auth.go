package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/educoin/internal/auth"
	"go.uber.org/zap"
)

// LoginRequest is the body of POST /auth/teacher.
type LoginRequest struct {
	Teacher string `json:"teacher" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// AuthHandler exchanges the shared teacher secret for a session token.
type AuthHandler struct {
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/teacher", h.Login)
}

// Login handles POST /auth/teacher.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": CodeBadRequest})
		return
	}

	token, err := h.tokens.Login(req.Teacher, req.Secret)
	if errors.Is(err, auth.ErrBadSecret) {
		h.logger.Warn("teacher login rejected", zap.String("teacher", req.Teacher))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid teacher secret"})
		return
	}
	if err != nil {
		h.logger.Error("issue teacher token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TTL().Seconds()),
	})
}
