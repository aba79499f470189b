package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wikigen-ai/backend-go/internal/database/models"
	"github.com/wikigen-ai/backend-go/internal/database/service"
	"github.com/wikigen-ai/backend-go/tests/testutil"
)

// ==================== AUTH HANDLER TESTS ====================

func performJSON(t *testing.T, router http.Handler, method, url string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]interface{}
		setupMocks func(*testutil.MockAuthService)
		wantStatus int
	}{
		{
			name:    "created",
			payload: map[string]interface{}{"username": "newuser", "password": "password123"},
			setupMocks: func(svc *testutil.MockAuthService) {
				svc.On("Register", mock.Anything, "newuser", "", "", "", "password123").
					Return(&models.User{ID: 101, Username: "newuser"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:    "duplicate username",
			payload: map[string]interface{}{"username": "taken", "password": "password123"},
			setupMocks: func(svc *testutil.MockAuthService) {
				svc.On("Register", mock.Anything, "taken", "", "", "", "password123").
					Return(nil, service.ErrUsernameAlreadyExists)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:    "weak password",
			payload: map[string]interface{}{"username": "newuser", "password": "short"},
			setupMocks: func(svc *testutil.MockAuthService) {
				svc.On("Register", mock.Anything, "newuser", "", "", "", "short").
					Return(nil, service.ErrWeakPassword)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing username rejected by binding",
			payload:    map[string]interface{}{"password": "password123"},
			setupMocks: func(svc *testutil.MockAuthService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(testutil.MockAuthService)
			tt.setupMocks(svc)
			router := testutil.SetupRouterWithMocks(svc, nil)

			w := performJSON(t, router, http.MethodPost, testutil.RegisterEndpoint, tt.payload, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	pair := &service.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}

	t.Run("success returns bearer pair", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("Login", mock.Anything, mock.MatchedBy(func(cred service.Credential) bool {
			return cred.Method == service.MethodPassword && cred.Username == "testuser"
		}), true, mock.Anything).Return(&models.User{ID: 101, Username: "testuser"}, pair, nil)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint,
			map[string]interface{}{"username": "testuser", "password": "password", "remember_me": true}, "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "access", body["access_token"])
		assert.Equal(t, "Bearer", body["token_type"])
		assert.Equal(t, float64(900), body["expires_in"])
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything, false, mock.Anything).
			Return(nil, nil, service.ErrInvalidCredentials)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint,
			map[string]interface{}{"username": "testuser", "password": "wrong"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", decodeBody(t, w)["kind"])
	})

	t.Run("locked account gets 423 with Retry-After", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything, false, mock.Anything).
			Return(nil, nil, &service.AccountLockedError{RetryAfter: 10 * time.Minute})

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint,
			map[string]interface{}{"username": "testuser", "password": "password"}, "")

		require.Equal(t, http.StatusLocked, w.Code)
		assert.Equal(t, "600", w.Header().Get("Retry-After"))
		body := decodeBody(t, w)
		assert.Equal(t, float64(600), body["retry_after"])
		assert.Equal(t, "account_locked", body["kind"])
	})

	t.Run("missing credentials", func(t *testing.T) {
		router := testutil.SetupRouterWithMocks(new(testutil.MockAuthService), nil)
		w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint,
			map[string]interface{}{"username": "testuser"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous fallback when auth disabled", func(t *testing.T) {
		cfg := testutil.TestConfig()
		cfg.AuthRequired = false

		svc := new(testutil.MockAuthService)
		svc.On("AnonymousLogin", mock.Anything, mock.Anything).
			Return(&models.User{ID: models.AnonymousUserID, Username: "anonymous"}, pair, nil)

		router := testutil.SetupRouterWithMocks(svc, cfg)
		w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint, map[string]interface{}{}, "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestAuthHandler_Validate(t *testing.T) {
	pair := &service.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}

	svc := new(testutil.MockAuthService)
	svc.On("Login", mock.Anything, mock.MatchedBy(func(cred service.Credential) bool {
		return cred.Method == service.MethodAuthCode && cred.Secret == "shared-code"
	}), false, mock.Anything).Return(&models.User{ID: models.LegacyUserID}, pair, nil)

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodPost, testutil.ValidateEndpoint,
		map[string]interface{}{"code": "shared-code"}, "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("RefreshToken", mock.Anything, "old-refresh", mock.Anything).
			Return(&service.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900}, nil)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.RefreshTokenEndpoint,
			map[string]interface{}{"refresh_token": "old-refresh"}, "")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "new-refresh", body["refresh_token"])
	})

	t.Run("reuse flags reauthentication", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("RefreshToken", mock.Anything, "stolen", mock.Anything).
			Return(nil, service.ErrTokenReused)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.RefreshTokenEndpoint,
			map[string]interface{}{"refresh_token": "stolen"}, "")

		require.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["reauth_required"])
		assert.Equal(t, "token_reused", body["kind"])
	})

	t.Run("expired", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("RefreshToken", mock.Anything, "stale", mock.Anything).
			Return(nil, service.ErrTokenExpired)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodPost, testutil.RefreshTokenEndpoint,
			map[string]interface{}{"refresh_token": "stale"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "token_expired", decodeBody(t, w)["kind"])
	})
}

func TestAuthHandler_StorageOutage(t *testing.T) {
	svc := new(testutil.MockAuthService)
	svc.On("Login", mock.Anything, mock.Anything, false, mock.Anything).
		Return(nil, nil, fmt.Errorf("%w: dial tcp: connection refused", service.ErrStorageUnavailable))

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodPost, testutil.LoginEndpoint,
		map[string]interface{}{"username": "testuser", "password": "password"}, "")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "storage_unavailable", decodeBody(t, w)["kind"])
}

func TestAuthHandler_Logout(t *testing.T) {
	svc := new(testutil.MockAuthService)
	svc.On("Logout", mock.Anything, "refresh", true, mock.Anything).Return(nil)

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodPost, testutil.LogoutEndpoint,
		map[string]interface{}{"refresh_token": "refresh", "revoke_all": true}, "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Status(t *testing.T) {
	router := testutil.SetupRouterWithMocks(new(testutil.MockAuthService), nil)
	w := performJSON(t, router, http.MethodGet, testutil.StatusEndpoint, nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["auth_required"])
}

func TestUserHandler_RequiresBearer(t *testing.T) {
	router := testutil.SetupRouterWithMocks(new(testutil.MockAuthService), nil)

	w := performJSON(t, router, http.MethodGet, testutil.MeEndpoint, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, testutil.MeEndpoint, nil)
	req.Header.Set("Authorization", "NotBearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserHandler_Me(t *testing.T) {
	jti := uuid.New()
	svc := new(testutil.MockAuthService)
	svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
	svc.On("GetProfile", mock.Anything, uint(101)).
		Return(&models.User{ID: 101, Username: "testuser"}, nil)

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodGet, testutil.MeEndpoint, nil, "valid-token")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "testuser", body["username"])
}

func TestUserHandler_UpdateMe(t *testing.T) {
	jti := uuid.New()
	svc := new(testutil.MockAuthService)
	svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
	svc.On("UpdateProfile", mock.Anything, uint(101), mock.MatchedBy(func(u service.ProfileUpdate) bool {
		return u.FullName != nil && *u.FullName == "New Name" && u.Email == nil
	})).Return(&models.User{ID: 101, Username: "testuser", FullName: "New Name"}, nil)

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodPut, testutil.MeEndpoint,
		map[string]interface{}{"full_name": "New Name"}, "valid-token")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_ChangePassword(t *testing.T) {
	jti := uuid.New()
	svc := new(testutil.MockAuthService)
	svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
	svc.On("ChangePassword", mock.Anything, uint(101), "old-password1", "new-password2", mock.Anything).Return(nil)

	router := testutil.SetupRouterWithMocks(svc, nil)
	w := performJSON(t, router, http.MethodPost, testutil.ChangePasswordEndpoint,
		map[string]interface{}{"current_password": "old-password1", "new_password": "new-password2"}, "valid-token")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_Sessions(t *testing.T) {
	jti := uuid.New()

	t.Run("list", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
		svc.On("ListSessions", mock.Anything, uint(101), jti).Return([]service.SessionSummary{
			{ID: jti, IsCurrent: true},
			{ID: uuid.New()},
		}, nil)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodGet, testutil.SessionsEndpoint, nil, "valid-token")

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		sessions := body["sessions"].([]interface{})
		assert.Len(t, sessions, 2)
	})

	t.Run("revoke", func(t *testing.T) {
		target := uuid.New()
		svc := new(testutil.MockAuthService)
		svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
		svc.On("RevokeSession", mock.Anything, uint(101), target, mock.Anything).Return(nil)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodDelete, testutil.SessionDeleteURL+target.String(), nil, "valid-token")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("revoke unknown session", func(t *testing.T) {
		target := uuid.New()
		svc := new(testutil.MockAuthService)
		svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)
		svc.On("RevokeSession", mock.Anything, uint(101), target, mock.Anything).Return(service.ErrSessionNotFound)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodDelete, testutil.SessionDeleteURL+target.String(), nil, "valid-token")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("revoke with malformed id", func(t *testing.T) {
		svc := new(testutil.MockAuthService)
		svc.On("ValidateAccessToken", "valid-token").Return(uint(101), jti, nil)

		router := testutil.SetupRouterWithMocks(svc, nil)
		w := performJSON(t, router, http.MethodDelete, testutil.SessionDeleteURL+"not-a-uuid", nil, "valid-token")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := testutil.SetupRouterWithMocks(new(testutil.MockAuthService), nil)
	w := performJSON(t, router, http.MethodGet, testutil.HealthCheckEndpoint, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
