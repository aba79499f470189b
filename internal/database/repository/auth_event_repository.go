package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wikigen-ai/backend-go/internal/database/models"
)

// AuthEventRepository is the append-only audit trail. Nothing in the hot
// path reads it back.
type AuthEventRepository interface {
	Record(ctx context.Context, event *models.AuthEvent) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.AuthEvent, error)
}

type authEventRepository struct {
	db *gorm.DB
}

// NewAuthEventRepository creates a new auth event repository instance
func NewAuthEventRepository(db *gorm.DB) AuthEventRepository {
	return &authEventRepository{db: db}
}

func (r *authEventRepository) Record(ctx context.Context, event *models.AuthEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *authEventRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.AuthEvent, error) {
	var events []models.AuthEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
