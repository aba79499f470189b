package tests

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wikigen-ai/backend-go/internal/config"
)

func TestLoadConfig_Success(t *testing.T) {
	// Set environment variables
	os.Setenv("API_SERVICE_PORT", "9090")
	os.Setenv("JWT_SECRET", "super-secret")
	os.Setenv("ACCESS_TOKEN_EXPIRATION", "600")
	os.Setenv("LOCKOUT_THRESHOLD", "10")
	os.Setenv("AUTH_REQUIRED", "false")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "9090", cfg.ApiServicePort)
	assert.Equal(t, "super-secret", cfg.JWTSecret)
	assert.Equal(t, int64(600), cfg.AccessTokenExpiration)
	assert.Equal(t, int64(10), cfg.LockoutThreshold)
	assert.False(t, cfg.AuthRequired)
}

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	// Test that defaults are applied
	assert.Equal(t, "8080", cfg.ApiServicePort)
	assert.Equal(t, int64(900), cfg.AccessTokenExpiration)
	assert.Equal(t, int64(604800), cfg.RefreshTokenExpiration)
	assert.Equal(t, int64(2592000), cfg.RememberMeExpiration)
	assert.Equal(t, int64(5), cfg.LockoutThreshold)
	assert.Equal(t, int64(900), cfg.LockoutCooldown)
	assert.True(t, cfg.AuthRequired)
	assert.Empty(t, cfg.AuthCode)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	os.Setenv("ACCESS_TOKEN_EXPIRATION", "invalid")
	os.Setenv("AUTH_REQUIRED", "not-a-bool")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	// Should use defaults when invalid
	assert.NotNil(t, cfg)
	assert.Equal(t, int64(900), cfg.AccessTokenExpiration)
	assert.True(t, cfg.AuthRequired)
}

func TestLoadConfig_LogLevel(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg := config.LoadConfig()

	assert.NotNil(t, cfg)
	assert.NotNil(t, cfg.LogLevel)
}
