package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hearth/internal/metrics"
	"hearth/internal/model"
)

// Cache stores resolved day schedules for a short TTL.
type Cache interface {
	Get(ctx context.Context, kitchenID int64, date time.Time) (*model.DaySchedule, error)
	Set(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule) error
	Invalidate(ctx context.Context, kitchenID int64, date time.Time) error
}

// CachedResolver wraps a Resolver with a seconds-TTL cache. Schedule
// rows change rarely, so serving slightly stale windows is acceptable;
// capacity is always read fresh elsewhere.
type CachedResolver struct {
	resolver *Resolver
	cache    Cache
	logger   zerolog.Logger
}

// NewCachedResolver wraps resolver with cache.
func NewCachedResolver(resolver *Resolver, cache Cache, logger zerolog.Logger) *CachedResolver {
	return &CachedResolver{
		resolver: resolver,
		cache:    cache,
		logger:   logger.With().Str("component", "schedule_cache").Logger(),
	}
}

// Resolve returns the effective schedule, consulting the cache first.
// Cache failures degrade to a direct resolve, never to an error.
func (c *CachedResolver) Resolve(ctx context.Context, kitchenID int64, date time.Time) (model.DaySchedule, error) {
	cached, err := c.cache.Get(ctx, kitchenID, date)
	if err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache read failed")
	}
	if cached != nil {
		metrics.IncScheduleCache("hit")
		return *cached, nil
	}
	metrics.IncScheduleCache("miss")

	day, err := c.resolver.Resolve(ctx, kitchenID, date)
	if err != nil {
		return model.Closed(), err
	}
	if err := c.cache.Set(ctx, kitchenID, date, day); err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache write failed")
	}
	return day, nil
}

// Invalidate drops the cached schedule after an override or rule write.
func (c *CachedResolver) Invalidate(ctx context.Context, kitchenID int64, date time.Time) {
	if err := c.cache.Invalidate(ctx, kitchenID, date); err != nil {
		c.logger.Warn().Err(err).Msg("schedule cache invalidate failed")
	}
}
