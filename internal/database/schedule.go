package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/model"
)

// DefaultScheduleConfig provides default values for weekly rules.
var DefaultScheduleConfig = struct {
	StartTime string
	EndTime   string
	Capacity  int
}{
	StartTime: "09:00",
	EndTime:   "17:00",
	Capacity:  1,
}

// UpsertWeeklyRule creates or updates the rule for (kitchen, day of week).
// The UNIQUE constraint guarantees at most one rule per pair.
func (db *DB) UpsertWeeklyRule(ctx context.Context, r *model.WeeklyRule) error {
	if r == nil {
		return fmt.Errorf("rule is nil")
	}
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return fmt.Errorf("day of week %d out of range", r.DayOfWeek)
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO weekly_rules (
			kitchen_id, day_of_week, is_open, start_time, end_time, capacity, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kitchen_id, day_of_week) DO UPDATE SET
			is_open = excluded.is_open,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			capacity = excluded.capacity,
			updated_at = excluded.updated_at`,
		r.KitchenID, r.DayOfWeek, r.IsOpen, r.StartTime, r.EndTime, r.Capacity, now, now,
	)
	return err
}

// GetWeeklyRule returns the rule for a day of week, or nil when absent.
func (db *DB) GetWeeklyRule(ctx context.Context, kitchenID int64, dayOfWeek int) (*model.WeeklyRule, error) {
	var r model.WeeklyRule
	err := db.QueryRowContext(ctx, `
		SELECT id, kitchen_id, day_of_week, is_open, start_time, end_time, capacity, created_at, updated_at
		FROM weekly_rules
		WHERE kitchen_id = ? AND day_of_week = ?
		LIMIT 1`,
		kitchenID, dayOfWeek,
	).Scan(&r.ID, &r.KitchenID, &r.DayOfWeek, &r.IsOpen, &r.StartTime, &r.EndTime, &r.Capacity, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EnsureDefaultRules creates default weekly rules for all active kitchens
// that have none yet. Missing days stay closed until an operator opens them.
func (db *DB) EnsureDefaultRules(ctx context.Context, openDays []int) error {
	kitchens, err := db.ListActiveKitchens(ctx)
	if err != nil {
		return fmt.Errorf("list kitchens: %w", err)
	}

	isOpen := make(map[int]bool, len(openDays))
	for _, d := range openDays {
		isOpen[d] = true
	}

	for _, k := range kitchens {
		for dayOfWeek := 0; dayOfWeek <= 6; dayOfWeek++ {
			existing, err := db.GetWeeklyRule(ctx, k.ID, dayOfWeek)
			if err != nil {
				return fmt.Errorf("check rule: %w", err)
			}
			if existing != nil {
				continue
			}

			capacity := k.Capacity
			if capacity <= 0 {
				capacity = DefaultScheduleConfig.Capacity
			}
			rule := &model.WeeklyRule{
				KitchenID: k.ID,
				DayOfWeek: dayOfWeek,
				IsOpen:    isOpen[dayOfWeek],
				StartTime: DefaultScheduleConfig.StartTime,
				EndTime:   DefaultScheduleConfig.EndTime,
				Capacity:  capacity,
			}
			if err := db.UpsertWeeklyRule(ctx, rule); err != nil {
				return fmt.Errorf("create rule for kitchen %d day %d: %w", k.ID, dayOfWeek, err)
			}
		}
	}
	return nil
}

// UpsertOverride creates or updates the override for (kitchen, date).
// The ON CONFLICT upsert enforces at most one override per date; duplicates
// are structurally impossible rather than tie-broken at read time.
func (db *DB) UpsertOverride(ctx context.Context, o *model.ScheduleOverride) error {
	if o == nil {
		return fmt.Errorf("override is nil")
	}

	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO schedule_overrides (
			kitchen_id, date, is_open, start_time, end_time, capacity, reason, created_at, updated_at
		) VALUES (?, date(?), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kitchen_id, date) DO UPDATE SET
			is_open = excluded.is_open,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			capacity = excluded.capacity,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		o.KitchenID, o.Date, o.IsOpen, o.StartTime, o.EndTime, o.Capacity, o.Reason, now, now,
	)
	return err
}

// GetOverride returns the override for a date, or nil when none exists.
func (db *DB) GetOverride(ctx context.Context, kitchenID int64, date time.Time) (*model.ScheduleOverride, error) {
	var o model.ScheduleOverride
	var startTime, endTime, reason sql.NullString
	var capacity sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT id, kitchen_id, date, is_open, start_time, end_time, capacity, reason, created_at, updated_at
		FROM schedule_overrides
		WHERE kitchen_id = ? AND date(date) = date(?)
		LIMIT 1`,
		kitchenID, date,
	).Scan(&o.ID, &o.KitchenID, &o.Date, &o.IsOpen, &startTime, &endTime, &capacity, &reason, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if startTime.Valid {
		o.StartTime = startTime.String
	}
	if endTime.Valid {
		o.EndTime = endTime.String
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		o.Capacity = &c
	}
	if reason.Valid {
		o.Reason = reason.String
	}
	return &o, nil
}

// DeleteOverride removes an override for a specific date.
func (db *DB) DeleteOverride(ctx context.Context, kitchenID int64, date time.Time) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM schedule_overrides WHERE kitchen_id = ? AND date(date) = date(?)",
		kitchenID, date,
	)
	return err
}

// SetDayClosed marks a specific date as closed.
func (db *DB) SetDayClosed(ctx context.Context, kitchenID int64, date time.Time, reason string) error {
	return db.UpsertOverride(ctx, &model.ScheduleOverride{
		KitchenID: kitchenID,
		Date:      date,
		IsOpen:    false,
		Reason:    reason,
	})
}

// SetSpecialHours sets special operating hours for a specific date.
func (db *DB) SetSpecialHours(ctx context.Context, kitchenID int64, date time.Time, startTime, endTime string, capacity *int, reason string) error {
	return db.UpsertOverride(ctx, &model.ScheduleOverride{
		KitchenID: kitchenID,
		Date:      date,
		IsOpen:    true,
		StartTime: startTime,
		EndTime:   endTime,
		Capacity:  capacity,
		Reason:    reason,
	})
}

// ListOverrides returns all overrides for a kitchen within a date range.
func (db *DB) ListOverrides(ctx context.Context, kitchenID int64, from, to time.Time) ([]model.ScheduleOverride, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, kitchen_id, date, is_open, start_time, end_time, capacity, reason, created_at, updated_at
		FROM schedule_overrides
		WHERE kitchen_id = ? AND date(date) >= date(?) AND date(date) <= date(?)
		ORDER BY date`,
		kitchenID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []model.ScheduleOverride
	for rows.Next() {
		var o model.ScheduleOverride
		var startTime, endTime, reason sql.NullString
		var capacity sql.NullInt64
		if err := rows.Scan(&o.ID, &o.KitchenID, &o.Date, &o.IsOpen, &startTime, &endTime, &capacity, &reason, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if startTime.Valid {
			o.StartTime = startTime.String
		}
		if endTime.Valid {
			o.EndTime = endTime.String
		}
		if capacity.Valid {
			c := int(capacity.Int64)
			o.Capacity = &c
		}
		if reason.Valid {
			o.Reason = reason.String
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
