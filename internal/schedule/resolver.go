// Package schedule resolves a kitchen's effective operating hours for a
// date by layering date overrides over the recurring weekly rules.
package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hearth/internal/model"
)

// Store provides the schedule rows the resolver layers.
type Store interface {
	// GetOverride returns the override for a date, or nil when none exists.
	GetOverride(ctx context.Context, kitchenID int64, date time.Time) (*model.ScheduleOverride, error)

	// GetWeeklyRule returns the rule for a day of week, or nil when absent.
	GetWeeklyRule(ctx context.Context, kitchenID int64, dayOfWeek int) (*model.WeeklyRule, error)
}

// Resolver computes the effective day schedule.
type Resolver struct {
	store  Store
	logger zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger.With().Str("component", "schedule").Logger(),
	}
}

// Resolve returns the effective schedule for a kitchen and date.
//
// An override always wins over the weekly rule: a closed override closes
// the day regardless of the rule, an open override with complete hours
// replaces the rule's window. An open override with missing hours is an
// operator data-quality problem; the day is treated as closed and the
// issue logged, never guessed. Without an override the weekly rule for
// the date's day of week applies; an absent or closed rule means closed.
func (r *Resolver) Resolve(ctx context.Context, kitchenID int64, date time.Time) (model.DaySchedule, error) {
	override, err := r.store.GetOverride(ctx, kitchenID, date)
	if err != nil {
		return model.Closed(), err
	}

	if override != nil {
		if !override.IsOpen {
			return model.Closed(), nil
		}
		if override.StartTime == "" || override.EndTime == "" {
			r.logger.Warn().
				Int64("kitchen_id", kitchenID).
				Str("date", date.Format("2006-01-02")).
				Str("start", override.StartTime).
				Str("end", override.EndTime).
				Msg("open override with missing hours, treating day as closed")
			return model.Closed(), nil
		}
		capacity, err := r.overrideCapacity(ctx, override, date)
		if err != nil {
			return model.Closed(), err
		}
		return model.DaySchedule{
			Open:      true,
			StartTime: override.StartTime,
			EndTime:   override.EndTime,
			Capacity:  capacity,
		}, nil
	}

	rule, err := r.store.GetWeeklyRule(ctx, kitchenID, int(date.Weekday()))
	if err != nil {
		return model.Closed(), err
	}
	if rule == nil || !rule.IsOpen {
		return model.Closed(), nil
	}
	return model.DaySchedule{
		Open:      true,
		StartTime: rule.StartTime,
		EndTime:   rule.EndTime,
		Capacity:  rule.Capacity,
	}, nil
}

// overrideCapacity falls back to the weekly rule's capacity when the
// override does not set one.
func (r *Resolver) overrideCapacity(ctx context.Context, override *model.ScheduleOverride, date time.Time) (int, error) {
	if override.Capacity != nil && *override.Capacity > 0 {
		return *override.Capacity, nil
	}
	rule, err := r.store.GetWeeklyRule(ctx, override.KitchenID, int(date.Weekday()))
	if err != nil {
		return 0, err
	}
	if rule != nil && rule.Capacity > 0 {
		return rule.Capacity, nil
	}
	return 1, nil
}
