// Package cache provides a short-TTL cache for resolved day schedules
// and a fixed-window rate limiter. Schedule reads are not time-sensitive
// (overrides change rarely) so a seconds-scale TTL is safe; capacity
// counts are never cached.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"hearth/internal/model"
)

// ScheduleCache stores resolved day schedules.
type ScheduleCache interface {
	Get(ctx context.Context, kitchenID int64, date time.Time) (*model.DaySchedule, error)
	Set(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule) error
	Invalidate(ctx context.Context, kitchenID int64, date time.Time) error
}

func scheduleKey(kitchenID int64, date time.Time) string {
	return fmt.Sprintf("schedule:%d:%s", kitchenID, date.Format("2006-01-02"))
}

// RedisCache is a redis-backed schedule cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a redis schedule cache with the given TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached schedule, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, kitchenID int64, date time.Time) (*model.DaySchedule, error) {
	data, err := c.client.Get(ctx, scheduleKey(kitchenID, date)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var day model.DaySchedule
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, fmt.Errorf("decode cached schedule: %w", err)
	}
	return &day, nil
}

// Set stores the schedule under the TTL.
func (c *RedisCache) Set(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule) error {
	data, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	return c.client.Set(ctx, scheduleKey(kitchenID, date), data, c.ttl).Err()
}

// Invalidate drops the cached schedule for one kitchen and date.
func (c *RedisCache) Invalidate(ctx context.Context, kitchenID int64, date time.Time) error {
	return c.client.Del(ctx, scheduleKey(kitchenID, date)).Err()
}

type memoryEntry struct {
	day       model.DaySchedule
	expiresAt time.Time
}

// MemoryCache is an in-process schedule cache used as the failover
// target when redis is down.
type MemoryCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an in-memory schedule cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

// Get returns the cached schedule, or nil on a miss or expiry.
func (c *MemoryCache) Get(ctx context.Context, kitchenID int64, date time.Time) (*model.DaySchedule, error) {
	c.mu.RLock()
	entry, ok := c.entries[scheduleKey(kitchenID, date)]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	day := entry.day
	return &day, nil
}

// Set stores the schedule under the TTL.
func (c *MemoryCache) Set(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scheduleKey(kitchenID, date)] = memoryEntry{day: day, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

// Invalidate drops the cached schedule for one kitchen and date.
func (c *MemoryCache) Invalidate(ctx context.Context, kitchenID int64, date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scheduleKey(kitchenID, date))
	return nil
}
