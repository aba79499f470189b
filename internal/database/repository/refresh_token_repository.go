package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wikigen-ai/backend-go/internal/database/models"
)

// RefreshTokenRepository is the registry of issued sessions. Rotation and
// revocation are the only mutations; rows are never deleted so that a
// rotated-out token presented again can be recognized as reuse.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByJTI(ctx context.Context, jti uuid.UUID) (*models.RefreshToken, error)
	Rotate(ctx context.Context, oldJTI uuid.UUID, successor *models.RefreshToken) error
	Revoke(ctx context.Context, jti uuid.UUID) error
	RevokeOwned(ctx context.Context, userID uint, jti uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uint) error
	ListActive(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindByJTI(ctx context.Context, jti uuid.UUID) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

// Rotate retires oldJTI and inserts its successor in one transaction.
//
// The guard is a compare-and-swap on the revoked flag: concurrent rotations
// of the same token serialize on the row, exactly one update takes effect,
// and every loser observes an already-revoked row. An already-revoked row
// means the token was presented after rotation, so the whole session family
// for that user is retired before ErrTokenReused is reported. The family
// revocation must survive the transaction, which is why reuse is signalled
// through a flag rather than an error return from the transaction callback.
func (r *refreshTokenRepository) Rotate(ctx context.Context, oldJTI uuid.UUID, successor *models.RefreshToken) error {
	var reused bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Updates(map[string]interface{}{"revoked": true, "replaced_by": successor.JTI})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var old models.RefreshToken
			if err := tx.Where("jti = ?", oldJTI).First(&old).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTokenNotFound
				}
				return err
			}
			if err := tx.Model(&models.RefreshToken{}).
				Where("user_id = ? AND revoked = ?", old.UserID, false).
				Update("revoked", true).Error; err != nil {
				return err
			}
			reused = true
			return nil
		}

		var old models.RefreshToken
		if err := tx.Where("jti = ?", oldJTI).First(&old).Error; err != nil {
			return err
		}
		if !successor.IssuedAt.Before(old.ExpiresAt) {
			// Rolling back undoes the revocation above; an expired token is
			// dead either way.
			return ErrTokenExpired
		}
		if successor.ExpiresAt.IsZero() {
			// The successor inherits the predecessor's issuance window, so a
			// remember-me lineage keeps its long lifetime across rotations.
			successor.ExpiresAt = successor.IssuedAt.Add(old.ExpiresAt.Sub(old.IssuedAt))
		}

		return tx.Create(successor).Error
	})
	if err != nil {
		return err
	}
	if reused {
		return ErrTokenReused
	}
	return nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, jti uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ?", jti).
		Update("revoked", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeOwned(ctx context.Context, userID uint, jti uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND user_id = ?", jti, userID).
		Update("revoked", true)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Missing and not-owned are indistinguishable to the caller.
		return ErrTokenNotFound
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (r *refreshTokenRepository) ListActive(ctx context.Context, userID uint, now time.Time) ([]models.RefreshToken, error) {
	var tokens []models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, now).
		Order("issued_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// DeleteExpired removes rows past their expiry, a maintenance sweep invoked
// by an operator job, never the request path. The sweep cannot weaken reuse
// detection: a refresh token's signed expiry matches its row, so any token
// whose row this deletes is rejected at decode before the registry is read.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Repository errors
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenReused   = errors.New("token already rotated")
)
