package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetStats(ctx context.Context, fileID string) (*models.Statistics, bool, error) {
	var stats models.Statistics
	ok, err := c.getJSON(ctx, statsKey(fileID), &stats)
	if !ok || err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisCache) SetStats(ctx context.Context, fileID string, stats models.Statistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, statsKey(fileID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats for %s: %w", fileID, err)
	}
	return nil
}

func (c *RedisCache) GetComparison(ctx context.Context, fileID, otherFileID string) (*models.ComparisonResult, bool, error) {
	var result models.ComparisonResult
	ok, err := c.getJSON(ctx, pairKey(fileID, otherFileID), &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

// SetComparison stores the result and records the pair key under both ids so
// Invalidate can find it from either side.
func (c *RedisCache) SetComparison(ctx context.Context, fileID, otherFileID string, result models.ComparisonResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := pairKey(fileID, otherFileID)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	for _, id := range []string{fileID, otherFileID} {
		pipe.SAdd(ctx, pairIndexKey(id), key)
		pipe.Expire(ctx, pairIndexKey(id), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache comparison %s/%s: %w", fileID, otherFileID, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, fileID string) error {
	pairs, err := c.client.SMembers(ctx, pairIndexKey(fileID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to list cached comparisons for %s: %w", fileID, err)
	}

	keys := append([]string{statsKey(fileID), pairIndexKey(fileID)}, pairs...)
	deleted, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", fileID, err)
	}

	log.Debug().Str("file_id", fileID).Int64("keys", deleted).Msg("Cache invalidated")
	return nil
}

func (c *RedisCache) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		// A corrupt entry is treated as a miss and overwritten later.
		log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cache entry")
		return false, nil
	}
	return true, nil
}

// RedisStatusStore keeps one key per report with a 12h TTL.
type RedisStatusStore struct {
	client *redis.Client
}

func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func (s *RedisStatusStore) SetStatus(ctx context.Context, reportID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}

	rkey := statusKey(reportID)
	err := s.client.Set(ctx, rkey, string(step), statusTTL).Err()
	if err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("report_id", reportID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().Str("report_id", reportID).Str("step", string(step)).Msg("Status updated")
	return nil
}

func (s *RedisStatusStore) GetStatus(ctx context.Context, reportID string) (models.Step, bool, error) {
	val, err := s.client.Get(ctx, statusKey(reportID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read status: %w", err)
	}
	return models.Step(val), true, nil
}
