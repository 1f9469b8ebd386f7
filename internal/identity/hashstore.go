package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// HashStore maps content digests to the id of their canonical file.
// The Index serializes its own read-modify-write sequences; a HashStore only
// has to make each single call safe.
type HashStore interface {
	Get(ctx context.Context, digest string) (id string, ok bool, err error)
	Set(ctx context.Context, digest, id string) error
	Remove(ctx context.Context, digest string) error
	All(ctx context.Context) (map[string]string, error)
}

// MemoryHashStore is a process-local HashStore.
type MemoryHashStore struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func NewMemoryHashStore() *MemoryHashStore {
	return &MemoryHashStore{hashes: make(map[string]string)}
}

func (s *MemoryHashStore) Get(_ context.Context, digest string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.hashes[digest]
	return id, ok, nil
}

func (s *MemoryHashStore) Set(_ context.Context, digest, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[digest] = id
	return nil
}

func (s *MemoryHashStore) Remove(_ context.Context, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, digest)
	return nil
}

func (s *MemoryHashStore) All(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes))
	for digest, id := range s.hashes {
		out[digest] = id
	}
	return out, nil
}

// Len returns the number of digests held.
func (s *MemoryHashStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes)
}

// RedisHashStore keeps the digest map in a single Redis hash so it survives
// restarts of the storage service.
type RedisHashStore struct {
	client *redis.Client
	key    string
}

func NewRedisHashStore(client *redis.Client, key string) *RedisHashStore {
	if key == "" {
		key = "textscan:content-hashes"
	}
	return &RedisHashStore{client: client, key: key}
}

func (s *RedisHashStore) Get(ctx context.Context, digest string) (string, bool, error) {
	id, err := s.client.HGet(ctx, s.key, digest).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read hash %s from redis: %w", digest, err)
	}
	return id, true, nil
}

func (s *RedisHashStore) Set(ctx context.Context, digest, id string) error {
	if err := s.client.HSet(ctx, s.key, digest, id).Err(); err != nil {
		return fmt.Errorf("failed to write hash %s to redis: %w", digest, err)
	}
	return nil
}

func (s *RedisHashStore) Remove(ctx context.Context, digest string) error {
	if err := s.client.HDel(ctx, s.key, digest).Err(); err != nil {
		return fmt.Errorf("failed to delete hash %s from redis: %w", digest, err)
	}
	return nil
}

func (s *RedisHashStore) All(ctx context.Context) (map[string]string, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hashes from redis: %w", err)
	}
	return entries, nil
}
