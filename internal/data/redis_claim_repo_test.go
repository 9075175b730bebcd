package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddyhq/webhook-ingest/internal/testutil"
)

func TestRedisClaimRepo_TryClaim(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	repo := NewRedisClaimRepo(client)
	deliveryID := uniqueDeliveryID("claim")

	won, err := repo.TryClaim(ctx, deliveryID, time.Minute)
	require.NoError(t, err)
	assert.True(t, won, "first claim should win")

	won, err = repo.TryClaim(ctx, deliveryID, time.Minute)
	require.NoError(t, err)
	assert.False(t, won, "second claim while held should lose")
}

func TestRedisClaimRepo_ReleaseAllowsReclaim(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	repo := NewRedisClaimRepo(client)
	deliveryID := uniqueDeliveryID("release")

	won, err := repo.TryClaim(ctx, deliveryID, time.Minute)
	require.NoError(t, err)
	require.True(t, won)

	require.NoError(t, repo.ReleaseClaim(ctx, deliveryID))

	won, err = repo.TryClaim(ctx, deliveryID, time.Minute)
	require.NoError(t, err)
	assert.True(t, won, "claim should be available again after release")
}

func TestRedisClaimRepo_ClaimExpires(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	repo := NewRedisClaimRepo(client)
	deliveryID := uniqueDeliveryID("expire")

	won, err := repo.TryClaim(ctx, deliveryID, 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, won)

	time.Sleep(200 * time.Millisecond)

	won, err = repo.TryClaim(ctx, deliveryID, time.Minute)
	require.NoError(t, err)
	assert.True(t, won, "expired claim should be winnable")
}

func TestRedisClaimRepo_EmptyDeliveryID(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	repo := NewRedisClaimRepo(client)

	_, err := repo.TryClaim(ctx, "", time.Minute)
	require.Error(t, err)

	err = repo.ReleaseClaim(ctx, "")
	require.Error(t, err)
}

func TestRedisClaimRepo_ReleaseMissingClaimIsNoOp(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisClaimRepo(client)
	require.NoError(t, repo.ReleaseClaim(context.Background(), uniqueDeliveryID("ghost")))
}
