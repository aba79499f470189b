package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wikigen-ai/backend-go/internal/config"
	"github.com/wikigen-ai/backend-go/internal/database/models"
	"github.com/wikigen-ai/backend-go/internal/database/repository"
)

// CredentialMethod selects how a login secret is interpreted. The method is
// explicit: the password field is never re-tried as an authorization code.
type CredentialMethod string

const (
	MethodPassword CredentialMethod = "password"
	MethodAuthCode CredentialMethod = "auth_code"
)

// Credential is one login attempt. Username is empty for the auth-code
// method, which maps onto a fixed pseudo-user.
type Credential struct {
	Method   CredentialMethod
	Username string
	Secret   string
}

// DeviceMetadata is the opaque per-session context recorded on the session
// row and in the audit trail.
type DeviceMetadata struct {
	IP        string
	UserAgent string
	Label     string
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// SessionSummary is one active session as reported to its owner.
type SessionSummary struct {
	ID        uuid.UUID `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Label     string    `json:"label,omitempty"`
	IsCurrent bool      `json:"is_current"`
}

// ProfileUpdate carries a partial profile update; nil fields are untouched.
type ProfileUpdate struct {
	Email    *string
	FullName *string
	Bio      *string
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, username, email, fullName, bio, password string) (*models.User, error)
	Login(ctx context.Context, cred Credential, rememberMe bool, meta DeviceMetadata) (*models.User, *TokenPair, error)
	AnonymousLogin(ctx context.Context, meta DeviceMetadata) (*models.User, *TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string, meta DeviceMetadata) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string, revokeAll bool, meta DeviceMetadata) error
	ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string, meta DeviceMetadata) error
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error)
	ListSessions(ctx context.Context, userID uint, currentJTI uuid.UUID) ([]SessionSummary, error)
	RevokeSession(ctx context.Context, userID uint, sessionID uuid.UUID, meta DeviceMetadata) error
	ValidateAccessToken(tokenString string) (uint, uuid.UUID, error)
}

type authService struct {
	userRepo     repository.UserRepository
	tokenRepo    repository.RefreshTokenRepository
	eventRepo    repository.AuthEventRepository
	verifier     *CredentialVerifier
	codec        *TokenCodec
	lockout      LockoutPolicy
	clock        clockwork.Clock
	storeTimeout time.Duration
	authCode     string
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	eventRepo repository.AuthEventRepository,
	verifier *CredentialVerifier,
	codec *TokenCodec,
	lockout LockoutPolicy,
	clock clockwork.Clock,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		eventRepo:    eventRepo,
		verifier:     verifier,
		codec:        codec,
		lockout:      lockout,
		clock:        clock,
		storeTimeout: time.Duration(cfg.StoreTimeout) * time.Second,
		authCode:     cfg.AuthCode,
		logger:       logger,
	}
}

// opCtx bounds a single store interaction so a slow database surfaces a
// retryable error instead of hanging the request.
func (s *authService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// storeErr maps infrastructure failures from the durable store onto the
// retryable storage sentinel. Domain sentinels and nil pass through, so a
// store outage is never mistaken for an auth decision.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

func (s *authService) Register(ctx context.Context, username, email, fullName, bio, password string) (*models.User, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "username", username)

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := validatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error checking username", "error", err)
		return nil, storeErr(err)
	}
	if existing != nil {
		s.logger.Warn("⚠️ [AuthService] Username already taken", "username", username)
		return nil, ErrUsernameAlreadyExists
	}

	if email != "" {
		existing, err = s.userRepo.FindByEmail(ctx, email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Error("❌ [AuthService] Database error checking email", "error", err)
			return nil, storeErr(err)
		}
		if existing != nil {
			s.logger.Warn("⚠️ [AuthService] Email already registered", "email", email)
			return nil, ErrEmailAlreadyExists
		}
	}

	hashed, err := s.verifier.Hash(password)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		FullName:     fullName,
		Bio:          bio,
		PasswordHash: hashed,
		IsActive:     true,
	}
	if email != "" {
		user.Email = &email
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUsernameAlreadyExists
		}
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return nil, storeErr(err)
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, nil
}

func (s *authService) Login(ctx context.Context, cred Credential, rememberMe bool, meta DeviceMetadata) (*models.User, *TokenPair, error) {
	switch cred.Method {
	case MethodPassword:
		return s.loginWithPassword(ctx, cred.Username, cred.Secret, rememberMe, meta)
	case MethodAuthCode:
		return s.loginWithAuthCode(ctx, cred.Secret, meta)
	default:
		return nil, nil, ErrInvalidCredentials
	}
}

func (s *authService) loginWithPassword(ctx context.Context, username, password string, rememberMe bool, meta DeviceMetadata) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Login attempt", "username", username)

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Unknown username", "username", username)
			s.recordEvent(ctx, nil, models.EventLoginFailure, meta)
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, storeErr(err)
	}

	if !user.IsActive || user.IsReserved() {
		s.recordEvent(ctx, &user.ID, models.EventLoginFailure, meta)
		return nil, nil, ErrInvalidCredentials
	}

	// The lock gate comes before password verification so a locked account
	// costs no hashing work.
	status, err := s.lockout.Check(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if status.Locked {
		s.logger.Warn("🔒 [AuthService] Login rejected, account locked", "user_id", user.ID)
		return nil, nil, &AccountLockedError{RetryAfter: status.RetryAfter}
	}

	if !s.verifier.Verify(password, user.PasswordHash) {
		status, err := s.lockout.RecordFailure(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		s.recordEvent(ctx, &user.ID, models.EventLoginFailure, meta)
		if status.Locked {
			s.recordEvent(ctx, &user.ID, models.EventLockoutTriggered, meta)
		}
		s.logger.Warn("⚠️ [AuthService] Invalid password", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.lockout.Reset(ctx, user.ID); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueSession(ctx, user, rememberMe, meta)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("⚠️ [AuthService] Failed to stamp last login", "user_id", user.ID, "error", err)
	}
	user.LastLogin = &now

	s.recordEvent(ctx, &user.ID, models.EventLoginSuccess, meta)
	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, tokens, nil
}

// loginWithAuthCode authenticates a deployment-wide shared code against the
// fixed legacy pseudo-user. Downstream token handling is identical to the
// password path.
func (s *authService) loginWithAuthCode(ctx context.Context, code string, meta DeviceMetadata) (*models.User, *TokenPair, error) {
	s.logger.Info("🔐 [AuthService] Shared-code login attempt")

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if !s.verifier.VerifyCode(code, s.authCode) {
		s.recordEvent(ctx, nil, models.EventLoginFailure, meta)
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByID(ctx, models.LegacyUserID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Legacy pseudo-user missing", "error", err)
		return nil, nil, storeErr(err)
	}

	tokens, err := s.issueSession(ctx, user, false, meta)
	if err != nil {
		return nil, nil, err
	}

	s.recordEvent(ctx, &user.ID, models.EventLoginSuccess, meta)
	return user, tokens, nil
}

// AnonymousLogin issues a token pair for the reserved anonymous identity.
// Intended only for deployments that disable authentication; lockout and
// credential verification are bypassed.
func (s *authService) AnonymousLogin(ctx context.Context, meta DeviceMetadata) (*models.User, *TokenPair, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, models.AnonymousUserID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Anonymous pseudo-user missing", "error", err)
		return nil, nil, storeErr(err)
	}

	tokens, err := s.issueSession(ctx, user, false, meta)
	if err != nil {
		return nil, nil, err
	}

	s.recordEvent(ctx, &user.ID, models.EventLoginSuccess, meta)
	return user, tokens, nil
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string, meta DeviceMetadata) (*TokenPair, error) {
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	claims, err := s.codec.Decode(refreshToken, TokenTypeRefresh)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid refresh token", "error", err)
		return nil, err
	}

	successor := &models.RefreshToken{
		JTI:       uuid.New(),
		UserID:    claims.UserID,
		IssuedAt:  s.clock.Now(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Label:     meta.Label,
	}

	switch err := s.tokenRepo.Rotate(ctx, claims.JTI(), successor); {
	case err == nil:
	case errors.Is(err, repository.ErrTokenReused):
		s.logger.Warn("🚨 [AuthService] Refresh token reuse detected, session family revoked",
			"user_id", claims.UserID,
		)
		s.recordEvent(ctx, &claims.UserID, models.EventTokenReuse, meta)
		return nil, ErrTokenReused
	case errors.Is(err, repository.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, repository.ErrTokenNotFound):
		return nil, ErrInvalidToken
	default:
		s.logger.Error("❌ [AuthService] Rotation failed", "error", err)
		return nil, storeErr(err)
	}

	accessToken, err := s.codec.IssueAccess(claims.UserID, successor.JTI)
	if err != nil {
		return nil, err
	}
	newRefreshToken, err := s.codec.IssueRefresh(claims.UserID, successor.JTI, successor.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, &claims.UserID, models.EventTokenRefresh, meta)
	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", claims.UserID)
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    s.codec.AccessTTLSeconds(),
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string, revokeAll bool, meta DeviceMetadata) error {
	s.logger.Info("👋 [AuthService] Logout attempt")

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	claims, err := s.codec.Decode(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}

	if revokeAll {
		err = s.tokenRepo.RevokeAllForUser(ctx, claims.UserID)
	} else {
		err = s.tokenRepo.Revoke(ctx, claims.JTI())
	}
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return storeErr(err)
	}

	s.recordEvent(ctx, &claims.UserID, models.EventLogout, meta)
	s.logger.Info("✅ [AuthService] User logged out successfully", "user_id", claims.UserID)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string, meta DeviceMetadata) error {
	s.logger.Info("🔑 [AuthService] Password change attempt", "user_id", userID)

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return storeErr(err)
	}

	if !s.verifier.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := s.verifier.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return storeErr(err)
	}

	// Every outstanding session is retired so the old credential cannot keep
	// a foothold anywhere.
	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return storeErr(err)
	}

	s.recordEvent(ctx, &userID, models.EventPasswordChanged, meta)
	s.logger.Info("✅ [AuthService] Password changed, all sessions revoked", "user_id", userID)
	return nil
}

func (s *authService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	user, err := s.userRepo.FindByID(ctx, userID)
	return user, storeErr(err)
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*models.User, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if update.Email != nil && *update.Email != "" {
		existing, err := s.userRepo.FindByEmail(ctx, *update.Email)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, storeErr(err)
		}
		if existing != nil && existing.ID != userID {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = update.Email
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *authService) ListSessions(ctx context.Context, userID uint, currentJTI uuid.UUID) ([]SessionSummary, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tokens, err := s.tokenRepo.ListActive(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, storeErr(err)
	}

	// An access token outlives the rotation that retired its refresh jti, so
	// the caller's jti may name a revoked predecessor. Walk the rotation
	// chain to the live head before matching.
	currentJTI = s.resolveLineageHead(ctx, currentJTI)

	sessions := make([]SessionSummary, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionSummary{
			ID:        t.JTI,
			IssuedAt:  t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
			IP:        t.IP,
			UserAgent: t.UserAgent,
			Label:     t.Label,
			IsCurrent: t.JTI == currentJTI,
		})
	}
	return sessions, nil
}

// resolveLineageHead follows replaced_by links from jti to the newest token
// in its rotation chain. The hop cap bounds the walk; a lookup failure stops
// at the last resolved jti.
func (s *authService) resolveLineageHead(ctx context.Context, jti uuid.UUID) uuid.UUID {
	const maxHops = 32
	for i := 0; i < maxHops; i++ {
		token, err := s.tokenRepo.FindByJTI(ctx, jti)
		if err != nil || token.ReplacedBy == nil {
			return jti
		}
		jti = *token.ReplacedBy
	}
	return jti
}

func (s *authService) RevokeSession(ctx context.Context, userID uint, sessionID uuid.UUID, meta DeviceMetadata) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.tokenRepo.RevokeOwned(ctx, userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrSessionNotFound
		}
		return storeErr(err)
	}

	s.recordEvent(ctx, &userID, models.EventSessionRevoked, meta)
	return nil
}

func (s *authService) ValidateAccessToken(tokenString string) (uint, uuid.UUID, error) {
	claims, err := s.codec.Decode(tokenString, TokenTypeAccess)
	if err != nil {
		return 0, uuid.Nil, err
	}
	return claims.UserID, claims.JTI(), nil
}

// issueSession creates a new session lineage and mints its token pair.
func (s *authService) issueSession(ctx context.Context, user *models.User, rememberMe bool, meta DeviceMetadata) (*TokenPair, error) {
	token := &models.RefreshToken{
		JTI:       uuid.New(),
		UserID:    user.ID,
		IssuedAt:  s.clock.Now(),
		ExpiresAt: s.codec.RefreshExpiry(rememberMe),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Label:     meta.Label,
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create session", "error", err)
		return nil, storeErr(err)
	}

	accessToken, err := s.codec.IssueAccess(user.ID, token.JTI)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.IssueRefresh(user.ID, token.JTI, token.ExpiresAt)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.codec.AccessTTLSeconds(),
	}, nil
}

// recordEvent appends to the audit trail best-effort; a write failure is
// logged and never fails the flow.
func (s *authService) recordEvent(ctx context.Context, userID *uint, eventType string, meta DeviceMetadata) {
	event := &models.AuthEvent{
		UserID:    userID,
		EventType: eventType,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.eventRepo.Record(ctx, event); err != nil {
		s.logger.Warn("⚠️ [AuthService] Failed to record auth event",
			"event_type", eventType,
			"error", err,
		)
	}
}

// validatePassword enforces the registration password policy.
func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

// AccountLockedError reports a locked account with a coarse retry hint. The
// exact unlock timestamp is never exposed.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.RetryAfter.Round(time.Second))
}

// Service errors
var (
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrUsernameAlreadyExists = errors.New("username already taken")
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrWeakPassword          = errors.New("password does not meet the policy")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenReused           = errors.New("token reuse detected, reauthentication required")
	ErrSessionNotFound       = errors.New("session not found")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)
