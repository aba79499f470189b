package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wikigen-ai/backend-go/internal/database/models"
	"github.com/wikigen-ai/backend-go/internal/database/repository"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.AuthEvent{})
	require.NoError(t, err)

	return db
}

// ==================== USER REPOSITORY TESTS ====================

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := setupUserTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	email := "test@example.com"
	user := &models.User{
		Username:     "testuser",
		Email:        &email,
		PasswordHash: "hashedpassword",
		IsActive:     true,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	byName, err := repo.FindByUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", byID.Username)
}

func TestUserRepository_NotFound(t *testing.T) {
	db := setupUserTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := setupUserTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "testuser", PasswordHash: "x"}))

	err := repo.Create(ctx, &models.User{Username: "testuser", PasswordHash: "y"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	db := setupUserTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "testuser", PasswordHash: "x"}
	require.NoError(t, repo.Create(ctx, user))

	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, when))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.WithinDuration(t, when, *found.LastLogin, time.Second)
}

func TestUserModel_ReservedIDs(t *testing.T) {
	assert.True(t, (&models.User{ID: models.AnonymousUserID}).IsReserved())
	assert.True(t, (&models.User{ID: models.LegacyUserID}).IsReserved())
	assert.True(t, (&models.User{ID: models.ReservedIDCeiling}).IsReserved())
	assert.False(t, (&models.User{ID: models.ReservedIDCeiling + 1}).IsReserved())
}

// ==================== AUTH EVENT REPOSITORY TESTS ====================

func TestAuthEventRepository_RecordAndList(t *testing.T) {
	db := setupUserTestDB(t)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewAuthEventRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "testuser", PasswordHash: "x"}
	require.NoError(t, userRepo.Create(ctx, user))

	for _, eventType := range []string{models.EventLoginFailure, models.EventLoginSuccess, models.EventLogout} {
		require.NoError(t, eventRepo.Record(ctx, &models.AuthEvent{
			UserID:    &user.ID,
			EventType: eventType,
			IP:        "10.0.0.1",
		}))
	}
	// An event without a subject, e.g. a failed login for an unknown name.
	require.NoError(t, eventRepo.Record(ctx, &models.AuthEvent{EventType: models.EventLoginFailure}))

	events, err := eventRepo.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.NotEqual(t, "", e.ID.String())
	}

	limited, err := eventRepo.ListByUser(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
