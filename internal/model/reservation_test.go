package model

import (
	"testing"
	"time"
)

func res(start, end time.Time) *Reservation {
	return &Reservation{StartTime: start, EndTime: end, Status: ReservationPending}
}

func TestOverlapsWith(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name     string
		a, b     *Reservation
		expected bool
	}{
		{"identical", res(at(10), at(12)), res(at(10), at(12)), true},
		{"partial overlap", res(at(10), at(12)), res(at(11), at(13)), true},
		{"contained", res(at(10), at(14)), res(at(11), at(12)), true},
		{"back to back", res(at(10), at(12)), res(at(12), at(14)), false},
		{"disjoint", res(at(8), at(9)), res(at(12), at(14)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.OverlapsWith(tt.b); got != tt.expected {
				t.Errorf("OverlapsWith: expected %v, got %v", tt.expected, got)
			}
			// Overlap is symmetric.
			if got := tt.b.OverlapsWith(tt.a); got != tt.expected {
				t.Errorf("OverlapsWith reversed: expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestContainsTime(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	r := res(base.Add(10*time.Hour), base.Add(12*time.Hour))

	if !r.ContainsTime(base.Add(10 * time.Hour)) {
		t.Error("start boundary should be contained")
	}
	if !r.ContainsTime(base.Add(11 * time.Hour)) {
		t.Error("interior point should be contained")
	}
	if r.ContainsTime(base.Add(12 * time.Hour)) {
		t.Error("end boundary is exclusive")
	}
	if r.ContainsTime(base.Add(9 * time.Hour)) {
		t.Error("point before start should not be contained")
	}
}

func TestSlotCount(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := res(base, base.Add(3*time.Hour))

	if got := r.SlotCount(time.Hour); got != 3 {
		t.Errorf("expected 3 hourly slots, got %d", got)
	}
	if got := r.SlotCount(30 * time.Minute); got != 6 {
		t.Errorf("expected 6 half-hour slots, got %d", got)
	}
	if got := r.SlotCount(0); got != 0 {
		t.Errorf("expected 0 for zero granularity, got %d", got)
	}
}

func TestIsActive(t *testing.T) {
	for _, status := range []string{ReservationPending, ReservationConfirmed} {
		r := &Reservation{Status: status}
		if !r.IsActive() {
			t.Errorf("%s reservation should be active", status)
		}
	}
	r := &Reservation{Status: ReservationCancelled}
	if r.IsActive() {
		t.Error("cancelled reservation should not be active")
	}
}
