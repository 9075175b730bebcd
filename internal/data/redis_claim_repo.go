package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "webhook:claim:"

// RedisClaimRepo implements the ClaimStore interface using Redis.
// A claim is a short-lived NX key that fences concurrent processing of
// the same delivery ID across instances before the database decides the
// idempotency outcome. The TTL bounds how long a crashed holder can
// block redelivery.
type RedisClaimRepo struct {
	client redis.UniversalClient
}

// NewRedisClaimRepo creates a new RedisClaimRepo with the given Redis client.
func NewRedisClaimRepo(client redis.UniversalClient) *RedisClaimRepo {
	return &RedisClaimRepo{client: client}
}

// TryClaim atomically claims a delivery ID for processing. Returns true
// when this caller won the claim, false when another holder owns it.
func (r *RedisClaimRepo) TryClaim(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	if deliveryID == "" {
		return false, errors.New("delivery ID cannot be empty")
	}

	actualTTL := ttl
	if ttl <= 0 {
		actualTTL = time.Second
	}

	// SET with NX + TTL is atomic; SETNX followed by EXPIRE is not.
	cmd := r.client.SetArgs(ctx, claimKeyPrefix+deliveryID, "1", redis.SetArgs{Mode: "NX", TTL: actualTTL})
	status, err := cmd.Result()
	if err != nil {
		// When the NX condition fails Redis returns a nil reply, which
		// go-redis surfaces as redis.Nil; that means "not claimed".
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}

	return status == "OK", nil
}

// ReleaseClaim drops the claim for a delivery ID once its attempt has
// been recorded in the database. Missing keys are not an error; the TTL
// may already have expired them.
func (r *RedisClaimRepo) ReleaseClaim(ctx context.Context, deliveryID string) error {
	if deliveryID == "" {
		return errors.New("delivery ID cannot be empty")
	}

	if err := r.client.Del(ctx, claimKeyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (r *RedisClaimRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
