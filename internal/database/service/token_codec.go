package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/wikigen-ai/backend-go/internal/config"
)

// Token types carried in the typ claim. Decode rejects a token whose type
// does not match the expected use.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the payload of both access and refresh tokens. The jti
// lives in RegisteredClaims.ID.
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenCodec mints and decodes signed bearer tokens. The signing key is
// fixed at construction; rotating it invalidates every outstanding token.
type TokenCodec struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rememberTTL time.Duration
	clock       clockwork.Clock
}

// NewTokenCodec creates a token codec from the process configuration.
func NewTokenCodec(cfg *config.Config, clock clockwork.Clock) *TokenCodec {
	return &TokenCodec{
		secret:      []byte(cfg.JWTSecret),
		accessTTL:   time.Duration(cfg.AccessTokenExpiration) * time.Second,
		refreshTTL:  time.Duration(cfg.RefreshTokenExpiration) * time.Second,
		rememberTTL: time.Duration(cfg.RememberMeExpiration) * time.Second,
		clock:       clock,
	}
}

// IssueAccess mints a short-lived access token bound to the session's jti.
func (c *TokenCodec) IssueAccess(userID uint, jti uuid.UUID) (string, error) {
	now := c.clock.Now()
	return c.sign(&TokenClaims{
		UserID:    userID,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	})
}

// IssueRefresh mints a refresh token with the given expiry, which must match
// the session row in the registry.
func (c *TokenCodec) IssueRefresh(userID uint, jti uuid.UUID, expiresAt time.Time) (string, error) {
	return c.sign(&TokenClaims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(c.clock.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
}

func (c *TokenCodec) sign(claims *TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// RefreshExpiry returns the expiry timestamp for a new refresh lineage.
func (c *TokenCodec) RefreshExpiry(rememberMe bool) time.Time {
	if rememberMe {
		return c.clock.Now().Add(c.rememberTTL)
	}
	return c.clock.Now().Add(c.refreshTTL)
}

// AccessTTLSeconds returns the access token lifetime reported to clients.
func (c *TokenCodec) AccessTTLSeconds() int64 {
	return int64(c.accessTTL / time.Second)
}

// Decode validates signature, expiry, and token type, failing closed on any
// mismatch. Decoding performs no I/O.
func (c *TokenCodec) Decode(tokenString, expectedType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return c.secret, nil
		},
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.TokenType != expectedType {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JTI returns the parsed session id. Decode has already validated the format.
func (cl *TokenClaims) JTI() uuid.UUID {
	jti, _ := uuid.Parse(cl.ID)
	return jti
}
