package model

import "time"

// Kitchen is a bookable commercial kitchen belonging to a kitchen group.
type Kitchen struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"` // default concurrent reservations per slot
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WeeklyRule defines recurring operating hours for one day of week.
// At most one rule exists per (kitchen, day_of_week).
type WeeklyRule struct {
	ID        int64     `json:"id"`
	KitchenID int64     `json:"kitchen_id"`
	DayOfWeek int       `json:"day_of_week"` // 0-6 (Sunday-Saturday)
	IsOpen    bool      `json:"is_open"`
	StartTime string    `json:"start_time"` // "09:00"
	EndTime   string    `json:"end_time"`   // "17:00"
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleOverride is a date-specific exception to the weekly rule.
// At most one override exists per (kitchen, date); writes upsert.
type ScheduleOverride struct {
	ID        int64     `json:"id"`
	KitchenID int64     `json:"kitchen_id"`
	Date      time.Time `json:"date"`
	IsOpen    bool      `json:"is_open"`
	StartTime string    `json:"start_time"` // empty when closed
	EndTime   string    `json:"end_time"`
	Capacity  *int      `json:"capacity,omitempty"` // nil falls back to the weekly rule
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaySchedule is the effective resolved schedule for one kitchen and date.
type DaySchedule struct {
	Open      bool   `json:"open"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Capacity  int    `json:"capacity"`
}

// Closed is the canonical closed-day result.
func Closed() DaySchedule {
	return DaySchedule{Open: false}
}
