package model

import "time"

// Reservation statuses. Cancelled reservations are kept for audit and
// excluded from all capacity counting.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Reservation is a booking of a kitchen for a time window on one date.
type Reservation struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"` // confirmation code shown to the requester
	KitchenID   int64      `json:"kitchen_id"`
	RequesterID int64      `json:"requester_id"`
	Date        time.Time  `json:"date"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the reservation still occupies capacity.
func (r *Reservation) IsActive() bool {
	return r.Status != ReservationCancelled
}

// Duration returns the booked duration.
func (r *Reservation) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// SlotCount returns how many slots of the given granularity the
// reservation spans.
func (r *Reservation) SlotCount(granularity time.Duration) int {
	if granularity <= 0 {
		return 0
	}
	return int(r.Duration() / granularity)
}

// OverlapsWith checks interval overlap with another reservation.
// Intervals are half-open [start, end).
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.StartTime.Before(other.EndTime) && other.StartTime.Before(r.EndTime)
}

// ContainsTime checks if t falls within [start, end).
func (r *Reservation) ContainsTime(t time.Time) bool {
	return !t.Before(r.StartTime) && t.Before(r.EndTime)
}
