package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"hearth/internal/model"
)

// FailoverCache serves from a primary cache and falls back to a
// secondary when the primary errors. After a failure the primary is
// marked down and probed again once the recovery interval passes.
type FailoverCache struct {
	primary  ScheduleCache
	fallback ScheduleCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	lastFail atomic.Int64 // unix nanos of the last primary failure
	recovery time.Duration
}

// NewFailoverCache creates a failover cache around primary and fallback.
func NewFailoverCache(primary, fallback ScheduleCache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recovery: time.Minute,
	}
}

func (c *FailoverCache) usePrimary() bool {
	if !c.isDown.Load() {
		return true
	}
	if time.Since(time.Unix(0, c.lastFail.Load())) >= c.recovery {
		// Probe the primary again.
		return true
	}
	return false
}

func (c *FailoverCache) markDown(err error) {
	c.lastFail.Store(time.Now().UnixNano())
	c.isDown.Store(true)
	c.logger.Warn().Err(err).Msg("schedule cache primary down, using fallback")
}

func (c *FailoverCache) markUp() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("schedule cache primary recovered")
	}
}

// Get reads from the primary when healthy, otherwise the fallback.
func (c *FailoverCache) Get(ctx context.Context, kitchenID int64, date time.Time) (*model.DaySchedule, error) {
	if c.usePrimary() {
		day, err := c.primary.Get(ctx, kitchenID, date)
		if err == nil {
			c.markUp()
			return day, nil
		}
		c.markDown(err)
	}
	return c.fallback.Get(ctx, kitchenID, date)
}

// Set writes to the primary when healthy, otherwise the fallback.
func (c *FailoverCache) Set(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule) error {
	if c.usePrimary() {
		if err := c.primary.Set(ctx, kitchenID, date, day); err == nil {
			c.markUp()
			return nil
		} else {
			c.markDown(err)
		}
	}
	return c.fallback.Set(ctx, kitchenID, date, day)
}

// Invalidate drops the entry from both caches so a stale primary entry
// cannot resurface after recovery.
func (c *FailoverCache) Invalidate(ctx context.Context, kitchenID int64, date time.Time) error {
	var firstErr error
	if err := c.primary.Invalidate(ctx, kitchenID, date); err != nil {
		firstErr = err
	}
	if err := c.fallback.Invalidate(ctx, kitchenID, date); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
