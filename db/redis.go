// db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

var RedisClient *redis.Client

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

const trustKeyPrefix = "trust:"

type trustRecord struct {
	IdentityID string    `json:"identityId"`
	DeviceID   string    `json:"deviceId"`
	TrustScore int       `json:"trustScore"`
	Expiry     time.Time `json:"expiry"`
}

// TrustStore persists trust cache snapshots under trust:{identityId}:{deviceId}
// with a native TTL matching each entry's expiry.
type TrustStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewTrustStore(client *redis.Client) *TrustStore {
	return &TrustStore{client: client, now: time.Now}
}

func trustKey(key pdp_model.CacheKey) string {
	return fmt.Sprintf("%s%s:%s", trustKeyPrefix, key.IdentityID, key.DeviceID)
}

// SaveSnapshot writes every still-valid entry in one pipeline.
func (s *TrustStore) SaveSnapshot(ctx context.Context, entries map[pdp_model.CacheKey]pdp_model.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := s.now()
	pipe := s.client.Pipeline()
	queued := 0
	for key, entry := range entries {
		ttl := entry.Expiry.Sub(now)
		if ttl <= 0 {
			continue
		}
		payload, err := json.Marshal(trustRecord{
			IdentityID: key.IdentityID,
			DeviceID:   key.DeviceID,
			TrustScore: entry.TrustScore,
			Expiry:     entry.Expiry.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal trust entry: %w", err)
		}
		pipe.Set(ctx, trustKey(key), payload, ttl)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save trust snapshot: %w", err)
	}
	logger.Debug("Trust snapshot saved", zap.Int("entries", queued))
	return nil
}

// LoadSnapshot reads every stored entry. Unreadable records are skipped.
func (s *TrustStore) LoadSnapshot(ctx context.Context) (map[pdp_model.CacheKey]pdp_model.CacheEntry, error) {
	out := make(map[pdp_model.CacheKey]pdp_model.CacheEntry)
	iter := s.client.Scan(ctx, 0, trustKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read trust entry: %w", err)
		}
		var rec trustRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warn("Skipping malformed trust entry", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		out[pdp_model.CacheKey{IdentityID: rec.IdentityID, DeviceID: rec.DeviceID}] = pdp_model.CacheEntry{
			TrustScore: rec.TrustScore,
			Expiry:     rec.Expiry,
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan trust entries: %w", err)
	}
	return out, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
