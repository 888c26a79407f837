// Package slots turns a resolved day schedule into discrete bookable
// slots and tracks per-slot capacity.
package slots

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hearth/internal/model"
)

// Slot is one fixed-granularity bookable time unit.
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Capacity  int       `json:"capacity"`
	Booked    int       `json:"booked"`
	Available int       `json:"available"`
	Full      bool      `json:"full"`
}

// SlotInfo is a simplified representation for API responses.
type SlotInfo struct {
	Start     string `json:"start"` // "10:00"
	End       string `json:"end"`   // "11:00"
	Available int    `json:"available"`
	Full      bool   `json:"full"`
}

// ReservationSource supplies the active reservations for a day.
type ReservationSource interface {
	GetActiveReservationsOnDate(ctx context.Context, kitchenID int64, date time.Time) ([]model.Reservation, error)
}

// Generator generates slots and their occupancy for a date.
type Generator struct {
	source      ReservationSource
	granularity time.Duration
}

// NewGenerator creates a slot generator. Granularity is fixed per
// deployment; zero or negative falls back to hourly.
func NewGenerator(source ReservationSource, granularity time.Duration) *Generator {
	if granularity <= 0 {
		granularity = time.Hour
	}
	return &Generator{source: source, granularity: granularity}
}

// Granularity returns the configured slot granularity.
func (g *Generator) Granularity() time.Duration {
	return g.granularity
}

// Generate produces the slot boundaries for a resolved day schedule.
// Slots never extend past the end of the operating window.
func (g *Generator) Generate(date time.Time, day model.DaySchedule) ([]Slot, error) {
	if !day.Open {
		return nil, nil
	}

	start, err := ParseTimeOnDate(date, day.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := ParseTimeOnDate(date, day.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}

	var result []Slot
	for cursor := start; !cursor.Add(g.granularity).After(end); cursor = cursor.Add(g.granularity) {
		result = append(result, Slot{
			StartTime: cursor,
			EndTime:   cursor.Add(g.granularity),
			Capacity:  day.Capacity,
			Available: day.Capacity,
		})
	}
	return result, nil
}

// FillOccupancy counts, for each slot, the active reservations whose
// interval contains the slot start. A reservation spanning several slots
// counts against every slot it overlaps.
func (g *Generator) FillOccupancy(ctx context.Context, kitchenID int64, date time.Time, generated []Slot) ([]Slot, error) {
	if len(generated) == 0 {
		return generated, nil
	}

	reservations, err := g.source.GetActiveReservationsOnDate(ctx, kitchenID, date)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	for i := range generated {
		booked := 0
		for j := range reservations {
			if reservations[j].ContainsTime(generated[i].StartTime) {
				booked++
			}
		}
		generated[i].Booked = booked
		generated[i].Available = generated[i].Capacity - booked
		if generated[i].Available < 0 {
			generated[i].Available = 0
		}
		generated[i].Full = booked >= generated[i].Capacity
	}
	return generated, nil
}

// CapacityAt reports the occupancy of the single slot starting at slotStart.
func (g *Generator) CapacityAt(ctx context.Context, kitchenID int64, date time.Time, day model.DaySchedule, slotStart time.Time) (Slot, error) {
	generated, err := g.Generate(date, day)
	if err != nil {
		return Slot{}, err
	}
	generated, err = g.FillOccupancy(ctx, kitchenID, date, generated)
	if err != nil {
		return Slot{}, err
	}
	for _, s := range generated {
		if s.StartTime.Equal(slotStart) {
			return s, nil
		}
	}
	return Slot{}, fmt.Errorf("no slot starts at %s", slotStart.Format("15:04"))
}

// ToSlotInfo converts slots for API responses.
func ToSlotInfo(generated []Slot) []SlotInfo {
	result := make([]SlotInfo, len(generated))
	for i, s := range generated {
		result[i] = SlotInfo{
			Start:     s.StartTime.Format("15:04"),
			End:       s.EndTime.Format("15:04"),
			Available: s.Available,
			Full:      s.Full,
		}
	}
	return result
}

// AvailableOnly filters out full slots.
func AvailableOnly(generated []Slot) []Slot {
	var available []Slot
	for _, s := range generated {
		if !s.Full {
			available = append(available, s)
		}
	}
	return available
}

// Aligned reports whether t sits exactly on a slot boundary measured
// from the window start.
func Aligned(windowStart, t time.Time, granularity time.Duration) bool {
	if granularity <= 0 {
		return false
	}
	diff := t.Sub(windowStart)
	return diff >= 0 && diff%granularity == 0
}

// ParseTimeOnDate combines a calendar date with an "HH:MM" clock string.
func ParseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("time out of range: %s", timeStr)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
