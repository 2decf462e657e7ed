package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTrustStore_SnapshotRoundTrip(t *testing.T) {
	mr, client := setupRedis(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	store := NewTrustStore(client)
	store.now = func() time.Time { return now }

	live := pdp_model.CacheKey{IdentityID: "user1", DeviceID: "deviceA"}
	other := pdp_model.CacheKey{IdentityID: "user2", DeviceID: "deviceB"}
	expired := pdp_model.CacheKey{IdentityID: "user3", DeviceID: "deviceC"}
	entries := map[pdp_model.CacheKey]pdp_model.CacheEntry{
		live:    {TrustScore: 92, Expiry: now.Add(5 * time.Minute)},
		other:   {TrustScore: 40, Expiry: now.Add(time.Minute)},
		expired: {TrustScore: 70, Expiry: now.Add(-time.Second)},
	}

	require.NoError(t, store.SaveSnapshot(context.Background(), entries))

	assert.True(t, mr.Exists("trust:user1:deviceA"))
	assert.False(t, mr.Exists("trust:user3:deviceC"))
	assert.Equal(t, 5*time.Minute, mr.TTL("trust:user1:deviceA"))
	assert.Equal(t, time.Minute, mr.TTL("trust:user2:deviceB"))

	loaded, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 92, loaded[live].TrustScore)
	assert.True(t, loaded[live].Expiry.Equal(now.Add(5*time.Minute)))
	assert.Equal(t, 40, loaded[other].TrustScore)
}

func TestTrustStore_SaveNothing(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewTrustStore(client)

	require.NoError(t, store.SaveSnapshot(context.Background(), nil))
	require.NoError(t, store.SaveSnapshot(context.Background(), map[pdp_model.CacheKey]pdp_model.CacheEntry{
		{IdentityID: "u", DeviceID: "d"}: {TrustScore: 10, Expiry: time.Now().Add(-time.Hour)},
	}))
	assert.Empty(t, mr.Keys())
}

func TestTrustStore_LoadSkipsMalformed(t *testing.T) {
	mr, client := setupRedis(t)
	require.NoError(t, mr.Set("trust:bad:entry", "not-json"))
	require.NoError(t, mr.Set("unrelated", "{}"))
	require.NoError(t, mr.Set("trust:user1:deviceA", `{"identityId":"user1","deviceId":"deviceA","trustScore":88,"expiry":"2030-01-01T00:00:00Z"}`))

	loaded, err := NewTrustStore(client).LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 88, loaded[pdp_model.CacheKey{IdentityID: "user1", DeviceID: "deviceA"}].TrustScore)
}

func TestTrustStore_Unavailable(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()
	store := NewTrustStore(client)

	_, err := store.LoadSnapshot(context.Background())
	assert.Error(t, err)

	err = store.SaveSnapshot(context.Background(), map[pdp_model.CacheKey]pdp_model.CacheEntry{
		{IdentityID: "u", DeviceID: "d"}: {TrustScore: 10, Expiry: time.Now().Add(time.Hour)},
	})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	mr, client := setupRedis(t)
	previous := RedisClient
	RedisClient = client
	t.Cleanup(func() { RedisClient = previous })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := RateLimit(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
	allowed, err := RateLimit(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = RateLimit(ctx, "10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
}
