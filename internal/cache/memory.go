package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

type entry struct {
	value   any
	expires time.Time
}

// MemoryCache is the in-process Cache used when no Redis is configured.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	pairs   map[string]map[string]struct{}
	now     func() time.Time
	swept   time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		pairs:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (c *MemoryCache) GetStats(_ context.Context, fileID string) (*models.Statistics, bool, error) {
	v, ok := c.get(statsKey(fileID))
	if !ok {
		return nil, false, nil
	}
	stats := v.(models.Statistics)
	return &stats, true, nil
}

func (c *MemoryCache) SetStats(_ context.Context, fileID string, stats models.Statistics) error {
	c.set(statsKey(fileID), stats)
	return nil
}

func (c *MemoryCache) GetComparison(_ context.Context, fileID, otherFileID string) (*models.ComparisonResult, bool, error) {
	v, ok := c.get(pairKey(fileID, otherFileID))
	if !ok {
		return nil, false, nil
	}
	result := v.(models.ComparisonResult)
	return &result, true, nil
}

func (c *MemoryCache) SetComparison(_ context.Context, fileID, otherFileID string, result models.ComparisonResult) error {
	key := pairKey(fileID, otherFileID)
	c.set(key, result)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range []string{fileID, otherFileID} {
		if c.pairs[id] == nil {
			c.pairs[id] = make(map[string]struct{})
		}
		c.pairs[id][key] = struct{}{}
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, fileID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, statsKey(fileID))
	for key := range c.pairs[fileID] {
		delete(c.entries, key)
	}
	delete(c.pairs, fileID)
	return nil
}

func (c *MemoryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.ttl > 0 && now.Sub(c.swept) >= c.ttl {
		c.sweepLocked(now)
	}
	c.entries[key] = entry{value: value, expires: now.Add(c.ttl)}
}

// sweepLocked drops expired entries and the pair index keys that named them.
// It runs from set at most once per ttl.
func (c *MemoryCache) sweepLocked(now time.Time) {
	c.swept = now
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
		}
	}
	for id, keys := range c.pairs {
		for key := range keys {
			if _, ok := c.entries[key]; !ok {
				delete(keys, key)
			}
		}
		if len(keys) == 0 {
			delete(c.pairs, id)
		}
	}
}

// MemoryStatusStore keeps job steps in process. Entries do not expire.
type MemoryStatusStore struct {
	mu    sync.RWMutex
	steps map[string]models.Step
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{steps: make(map[string]models.Step)}
}

func (s *MemoryStatusStore) SetStatus(_ context.Context, reportID string, step models.Step) error {
	if !validSteps[step] {
		return fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	s.mu.Lock()
	s.steps[reportID] = step
	s.mu.Unlock()
	return nil
}

func (s *MemoryStatusStore) GetStatus(_ context.Context, reportID string) (models.Step, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.steps[reportID]
	return step, ok, nil
}
