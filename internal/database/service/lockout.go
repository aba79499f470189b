package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wikigen-ai/backend-go/internal/config"
)

// LockoutStatus describes the lock state observed for an account.
type LockoutStatus struct {
	Locked     bool
	RetryAfter time.Duration
}

// LockoutPolicy tracks consecutive failed logins per account and arms a
// temporary lock once the threshold is reached. Counters live in Redis so
// the policy stays atomic across replicas; lock expiry is the key's TTL, so
// no timer is needed and expiry is observed lazily on the next check.
type LockoutPolicy interface {
	Check(ctx context.Context, userID uint) (*LockoutStatus, error)
	RecordFailure(ctx context.Context, userID uint) (*LockoutStatus, error)
	Reset(ctx context.Context, userID uint) error
}

type redisLockoutPolicy struct {
	client    *redis.Client
	threshold int64
	cooldown  time.Duration
	logger    *slog.Logger
}

// NewLockoutPolicy creates a Redis-backed lockout policy.
func NewLockoutPolicy(client *redis.Client, cfg *config.Config, logger *slog.Logger) LockoutPolicy {
	return &redisLockoutPolicy{
		client:    client,
		threshold: cfg.LockoutThreshold,
		cooldown:  time.Duration(cfg.LockoutCooldown) * time.Second,
		logger:    logger,
	}
}

func failuresKey(userID uint) string {
	return fmt.Sprintf("auth:lockout:fails:%d", userID)
}

func lockKey(userID uint) string {
	return fmt.Sprintf("auth:lockout:until:%d", userID)
}

func (p *redisLockoutPolicy) Check(ctx context.Context, userID uint) (*LockoutStatus, error) {
	ttl, err := p.client.PTTL(ctx, lockKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lockout check: %v", ErrStorageUnavailable, err)
	}
	if ttl > 0 {
		return &LockoutStatus{Locked: true, RetryAfter: ttl}, nil
	}
	return &LockoutStatus{}, nil
}

// RecordFailure increments the failure counter. INCR is atomic, so two
// replicas counting the same account cannot lose an update; when the count
// reaches the threshold the lock key is armed with the cooldown as TTL and
// the counter is cleared.
func (p *redisLockoutPolicy) RecordFailure(ctx context.Context, userID uint) (*LockoutStatus, error) {
	count, err := p.client.Incr(ctx, failuresKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: lockout increment: %v", ErrStorageUnavailable, err)
	}
	if count < p.threshold {
		return &LockoutStatus{}, nil
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, lockKey(userID), count, p.cooldown)
	pipe.Del(ctx, failuresKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: lockout arm: %v", ErrStorageUnavailable, err)
	}

	p.logger.Warn("🔒 [Lockout] Account locked after repeated failures",
		"user_id", userID,
		"failures", count,
		"cooldown", p.cooldown,
	)

	return &LockoutStatus{Locked: true, RetryAfter: p.cooldown}, nil
}

func (p *redisLockoutPolicy) Reset(ctx context.Context, userID uint) error {
	if err := p.client.Del(ctx, failuresKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: lockout reset: %v", ErrStorageUnavailable, err)
	}
	return nil
}
