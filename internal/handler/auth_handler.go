package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikigen-ai/backend-go/internal/config"
	"github.com/wikigen-ai/backend-go/internal/database/service"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service      service.AuthService
	authRequired bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		authRequired: cfg.AuthRequired,
		logger:       logger,
	}
}

// Request/Response DTOs
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
	FullName string `json:"full_name" binding:"omitempty,max=100"`
	Bio      string `json:"bio" binding:"omitempty,max=500"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	Label      string `json:"label" binding:"omitempty,max=100"`
}

type ValidateRequest struct {
	Code string `json:"code" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	RevokeAll    bool   `json:"revoke_all"`
}

type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         interface{} `json:"user,omitempty"`
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Username and password required."})
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.FullName, req.Bio, req.Password)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	// Registration does not sign in; the client logs in explicitly.
	c.JSON(http.StatusCreated, user)
}

// Login handles user login. When authentication is disabled for the
// deployment, an empty credential resolves to the anonymous identity.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	meta := deviceMetadata(c, req.Label)

	if req.Username == "" && !h.authRequired {
		user, tokens, err := h.service.AnonymousLogin(c.Request.Context(), meta)
		if err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, authResponse(tokens, user))
		return
	}

	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password required"})
		return
	}

	cred := service.Credential{
		Method:   service.MethodPassword,
		Username: req.Username,
		Secret:   req.Password,
	}
	user, tokens, err := h.service.Login(c.Request.Context(), cred, req.RememberMe, meta)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse(tokens, user))
}

// Validate handles legacy shared-code login. The code maps onto a fixed
// pseudo-user and flows through the same session pipeline as a password login.
func (h *AuthHandler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code required"})
		return
	}

	cred := service.Credential{
		Method: service.MethodAuthCode,
		Secret: req.Code,
	}
	user, tokens, err := h.service.Login(c.Request.Context(), cred, false, deviceMetadata(c, ""))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse(tokens, user))
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid refresh request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	tokens, err := h.service.RefreshToken(c.Request.Context(), req.RefreshToken, deviceMetadata(c, ""))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse(tokens, nil))
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid logout request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken, req.RevokeAll, deviceMetadata(c, "")); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Status reports whether the deployment requires authentication
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auth_required": h.authRequired})
}

func authResponse(tokens *service.TokenPair, user interface{}) AuthResponse {
	return AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    tokens.ExpiresIn,
		User:         user,
	}
}
