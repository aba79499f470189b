package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wikigen-ai/backend-go/internal/database/repository"
	"github.com/wikigen-ai/backend-go/internal/database/service"
)

// Stable error kinds carried in the "kind" field of every error response so
// clients can branch without parsing messages.
const (
	KindAccountLocked      = "account_locked"
	KindTokenReused        = "token_reused"
	KindInvalidCredentials = "invalid_credentials"
	KindTokenInvalid       = "token_invalid"
	KindTokenExpired       = "token_expired"
	KindUsernameTaken      = "username_taken"
	KindEmailTaken         = "email_taken"
	KindWeakPassword       = "weak_password"
	KindSessionNotFound    = "session_not_found"
	KindUserNotFound       = "user_not_found"
	KindStorageUnavailable = "storage_unavailable"
	KindInternal           = "internal"
)

// respondServiceError maps service errors to HTTP responses. Shared by every
// handler so the error surface stays uniform.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	var locked *service.AccountLockedError
	switch {
	case errors.As(err, &locked):
		retry := int64(locked.RetryAfter.Round(time.Second) / time.Second)
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retry, 10))
		c.JSON(http.StatusLocked, gin.H{
			"error":       "Account temporarily locked due to repeated failures",
			"kind":        KindAccountLocked,
			"retry_after": retry,
		})
	case errors.Is(err, service.ErrTokenReused):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":           "Token reuse detected, all sessions revoked",
			"kind":            KindTokenReused,
			"reauth_required": true,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password", "kind": KindInvalidCredentials})
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired", "kind": KindTokenExpired})
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "kind": KindTokenInvalid})
	case errors.Is(err, service.ErrUsernameAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken", "kind": KindUsernameTaken})
	case errors.Is(err, service.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered", "kind": KindEmailTaken})
	case errors.Is(err, service.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters and contain a letter and a digit", "kind": KindWeakPassword})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "kind": KindSessionNotFound})
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "kind": KindUserNotFound})
	case errors.Is(err, service.ErrStorageUnavailable):
		logger.Error("❌ [Handler] Storage unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable", "kind": KindStorageUnavailable})
	default:
		logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "kind": KindInternal})
	}
}

// deviceMetadata collects the per-request context recorded on sessions and
// audit events.
func deviceMetadata(c *gin.Context, label string) service.DeviceMetadata {
	return service.DeviceMetadata{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Label:     label,
	}
}
