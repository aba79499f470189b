package tests

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikigen-ai/backend-go/internal/database/service"
	"github.com/wikigen-ai/backend-go/tests/testutil"
)

// ==================== LOCKOUT POLICY TESTS ====================

func setupLockout(t *testing.T) (*miniredis.Miniredis, service.LockoutPolicy) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := testutil.TestConfig()
	cfg.LockoutThreshold = 3
	cfg.LockoutCooldown = 60

	policy := service.NewLockoutPolicy(client, cfg, testutil.TestLogger())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, policy
}

func TestLockoutPolicy_OpenBelowThreshold(t *testing.T) {
	_, policy := setupLockout(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
		assert.False(t, status.Locked)
	}

	status, err := policy.Check(ctx, 101)
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

func TestLockoutPolicy_TripsAtThreshold(t *testing.T) {
	_, policy := setupLockout(t)
	ctx := context.Background()

	var status *service.LockoutStatus
	var err error
	for i := 0; i < 3; i++ {
		status, err = policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
	}
	assert.True(t, status.Locked)
	assert.Equal(t, 60*time.Second, status.RetryAfter)

	status, err = policy.Check(ctx, 101)
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Greater(t, status.RetryAfter, time.Duration(0))
}

func TestLockoutPolicy_LockExpiresAfterCooldown(t *testing.T) {
	mr, policy := setupLockout(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
	}

	status, err := policy.Check(ctx, 101)
	require.NoError(t, err)
	require.True(t, status.Locked)

	// Key TTL is the lock lifetime; past the cooldown the account opens
	// without any unlock step.
	mr.FastForward(61 * time.Second)

	status, err = policy.Check(ctx, 101)
	require.NoError(t, err)
	assert.False(t, status.Locked)

	// The counter was cleared when the lock armed, so the next failure
	// starts a fresh streak.
	status, err = policy.RecordFailure(ctx, 101)
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

func TestLockoutPolicy_ResetClearsStreak(t *testing.T) {
	_, policy := setupLockout(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
	}

	require.NoError(t, policy.Reset(ctx, 101))

	// Two more failures after the reset stay below the threshold.
	for i := 0; i < 2; i++ {
		status, err := policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
		assert.False(t, status.Locked)
	}
}

func TestLockoutPolicy_AccountsAreIndependent(t *testing.T) {
	_, policy := setupLockout(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := policy.RecordFailure(ctx, 101)
		require.NoError(t, err)
	}

	status, err := policy.Check(ctx, 202)
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

func TestLockoutPolicy_StorageDown(t *testing.T) {
	mr, policy := setupLockout(t)
	ctx := context.Background()
	mr.Close()

	_, err := policy.Check(ctx, 101)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)

	_, err = policy.RecordFailure(ctx, 101)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
}
