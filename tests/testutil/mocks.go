package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"

	"github.com/wikigen-ai/backend-go/internal/api"
	"github.com/wikigen-ai/backend-go/internal/config"
	"github.com/wikigen-ai/backend-go/internal/database/models"
	"github.com/wikigen-ai/backend-go/internal/database/service"
	"github.com/wikigen-ai/backend-go/internal/handler"
	"github.com/wikigen-ai/backend-go/internal/middleware"
)

// ==================== MOCK USER REPOSITORY ====================

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if len(args) > 1 && args.Get(0) != nil {
		user.ID = args.Get(0).(uint)
	}
	return args.Error(len(args) - 1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uint, when time.Time) error {
	args := m.Called(ctx, id, when)
	return args.Error(0)
}

// ==================== MOCK REFRESH TOKEN REPOSITORY ====================

// MockRefreshTokenRepository implements repository.RefreshTokenRepository for testing
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByJTI(ctx context.Context, jti uuid.UUID) (*models.RefreshToken, error) {
	args := m.Called(ctx, jti)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Rotate(ctx context.Context, oldJTI uuid.UUID, successor *models.RefreshToken) error {
	args := m.Called(ctx, oldJTI, successor)
	if successor.ExpiresAt.IsZero() {
		successor.ExpiresAt = successor.IssuedAt.Add(time.Hour)
	}
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, jti uuid.UUID) error {
	args := m.Called(ctx, jti)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeOwned(ctx context.Context, userID uint, jti uuid.UUID) error {
	args := m.Called(ctx, userID, jti)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// ==================== MOCK AUTH EVENT REPOSITORY ====================

// MockAuthEventRepository implements repository.AuthEventRepository for testing
type MockAuthEventRepository struct {
	mock.Mock
}

func (m *MockAuthEventRepository) Record(ctx context.Context, event *models.AuthEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuthEventRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.AuthEvent, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuthEvent), args.Error(1)
}

// ==================== MOCK LOCKOUT POLICY ====================

// MockLockoutPolicy implements service.LockoutPolicy for testing
type MockLockoutPolicy struct {
	mock.Mock
}

func (m *MockLockoutPolicy) Check(ctx context.Context, userID uint) (*service.LockoutStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LockoutStatus), args.Error(1)
}

func (m *MockLockoutPolicy) RecordFailure(ctx context.Context, userID uint) (*service.LockoutStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LockoutStatus), args.Error(1)
}

func (m *MockLockoutPolicy) Reset(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// OpenLockout returns a lockout mock that reports every account unlocked and
// accepts failures and resets without ever tripping.
func OpenLockout() *MockLockoutPolicy {
	lockout := new(MockLockoutPolicy)
	lockout.On("Check", mock.Anything, mock.Anything).Return(&service.LockoutStatus{}, nil).Maybe()
	lockout.On("RecordFailure", mock.Anything, mock.Anything).Return(&service.LockoutStatus{}, nil).Maybe()
	lockout.On("Reset", mock.Anything, mock.Anything).Return(nil).Maybe()
	return lockout
}

// ==================== MOCK AUTH SERVICE ====================

// MockAuthService implements service.AuthService for testing
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, fullName, bio, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, fullName, bio, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, cred service.Credential, rememberMe bool, meta service.DeviceMetadata) (*models.User, *service.TokenPair, error) {
	args := m.Called(ctx, cred, rememberMe, meta)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*service.TokenPair), args.Error(2)
}

func (m *MockAuthService) AnonymousLogin(ctx context.Context, meta service.DeviceMetadata) (*models.User, *service.TokenPair, error) {
	args := m.Called(ctx, meta)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.User), args.Get(1).(*service.TokenPair), args.Error(2)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string, meta service.DeviceMetadata) (*service.TokenPair, error) {
	args := m.Called(ctx, refreshToken, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenPair), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string, revokeAll bool, meta service.DeviceMetadata) error {
	args := m.Called(ctx, refreshToken, revokeAll, meta)
	return args.Error(0)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string, meta service.DeviceMetadata) error {
	args := m.Called(ctx, userID, currentPassword, newPassword, meta)
	return args.Error(0)
}

func (m *MockAuthService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID uint, update service.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) ListSessions(ctx context.Context, userID uint, currentJTI uuid.UUID) ([]service.SessionSummary, error) {
	args := m.Called(ctx, userID, currentJTI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SessionSummary), args.Error(1)
}

func (m *MockAuthService) RevokeSession(ctx context.Context, userID uint, sessionID uuid.UUID, meta service.DeviceMetadata) error {
	args := m.Called(ctx, userID, sessionID, meta)
	return args.Error(0)
}

func (m *MockAuthService) ValidateAccessToken(tokenString string) (uint, uuid.UUID, error) {
	args := m.Called(tokenString)
	return args.Get(0).(uint), args.Get(1).(uuid.UUID), args.Error(2)
}

// ==================== TEST CONFIGURATION ====================

// TestConfig returns a config suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		ApiServicePort:         "8080",
		JWTSecret:              "test-secret-key-for-testing-purposes",
		AccessTokenExpiration:  900,
		RefreshTokenExpiration: 604800,
		RememberMeExpiration:   2592000,
		StoreTimeout:           5,
		AuthRequired:           true,
		AuthCode:               "",
		LockoutThreshold:       5,
		LockoutCooldown:        900,
	}
}

// TestLogger returns a silent logger for testing
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestClock returns a fake clock pinned to a fixed instant
func TestClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

// ==================== SERVICE AND ROUTER SETUP HELPERS ====================

// CreateAuthServiceWithMocks creates an auth service with mock collaborators
// for unit testing. The lockout policy stays open unless the test arms it.
func CreateAuthServiceWithMocks(
	userRepo *MockUserRepository,
	tokenRepo *MockRefreshTokenRepository,
	eventRepo *MockAuthEventRepository,
	lockout *MockLockoutPolicy,
	clock clockwork.Clock,
	cfg *config.Config,
) service.AuthService {
	if eventRepo == nil {
		eventRepo = new(MockAuthEventRepository)
		eventRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
	}
	if lockout == nil {
		lockout = OpenLockout()
	}
	if clock == nil {
		clock = TestClock()
	}
	if cfg == nil {
		cfg = TestConfig()
	}
	verifier := service.NewCredentialVerifier()
	codec := service.NewTokenCodec(cfg, clock)
	return service.NewAuthService(userRepo, tokenRepo, eventRepo, verifier, codec, lockout, clock, cfg, TestLogger())
}

// SetupRouterWithMocks creates a router backed by a mock auth service
func SetupRouterWithMocks(authService service.AuthService, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if cfg == nil {
		cfg = TestConfig()
	}
	logger := TestLogger()

	authHandler := handler.NewAuthHandler(authService, cfg, logger)
	userHandler := handler.NewUserHandler(authService, logger)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	return api.SetupRouter(authHandler, userHandler, authMiddleware)
}

// SetupAuthRouterWithRepos creates a router whose auth service runs on mock
// repositories, exercising the real service and handler together.
func SetupAuthRouterWithRepos(
	userRepo *MockUserRepository,
	tokenRepo *MockRefreshTokenRepository,
) *gin.Engine {
	authService := CreateAuthServiceWithMocks(userRepo, tokenRepo, nil, nil, nil, nil)
	return SetupRouterWithMocks(authService, nil)
}
