// Package service orchestrates reservation creation: schedule
// resolution, slot alignment, capacity and the qualification gate.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hearth/internal/domain"
	"hearth/internal/events"
	"hearth/internal/metrics"
	"hearth/internal/model"
	"hearth/internal/slots"
)

// Repository provides reservation and kitchen storage.
type Repository interface {
	GetKitchen(ctx context.Context, id int64) (*model.Kitchen, error)
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	CreateReservationWithCapacity(ctx context.Context, r *model.Reservation, capacity int, granularity time.Duration) error
	ConfirmReservation(ctx context.Context, id int64) error
	CancelReservation(ctx context.Context, id int64) (bool, error)
	CountOverlapping(ctx context.Context, kitchenID int64, start, end time.Time) (int, error)
	CountActiveForRequester(ctx context.Context, requesterID int64, now time.Time) (int, error)
}

// ScheduleResolver returns the effective schedule for a kitchen and date.
type ScheduleResolver interface {
	Resolve(ctx context.Context, kitchenID int64, date time.Time) (model.DaySchedule, error)
}

// QualificationGate answers whether a requester may book in a group.
type QualificationGate interface {
	CheckBookingGate(ctx context.Context, requesterID, groupID int64) (bool, []string, error)
}

// EventBus publishes domain events.
type EventBus interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SlotGenerator produces slots and their occupancy.
type SlotGenerator interface {
	Granularity() time.Duration
	Generate(date time.Time, day model.DaySchedule) ([]slots.Slot, error)
	FillOccupancy(ctx context.Context, kitchenID int64, date time.Time, generated []slots.Slot) ([]slots.Slot, error)
}

// Policy holds booking-window rules from configuration.
type Policy struct {
	MinAdvance       time.Duration
	MaxAdvance       time.Duration
	MaxActivePerUser int
}

// ReservationRequest is the input to CreateReservation.
type ReservationRequest struct {
	KitchenID   int64
	RequesterID int64
	Date        time.Time
	StartTime   string // "10:00"
	EndTime     string // "12:00"
	Notes       string
}

// ReservationService validates and commits reservations.
type ReservationService struct {
	repo     Repository
	resolver ScheduleResolver
	slots    SlotGenerator
	gate     QualificationGate
	bus      EventBus
	policy   Policy
	logger   zerolog.Logger
}

// NewReservationService wires the reservation orchestrator.
func NewReservationService(
	repo Repository,
	resolver ScheduleResolver,
	generator SlotGenerator,
	gate QualificationGate,
	bus EventBus,
	policy Policy,
	logger zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		repo:     repo,
		resolver: resolver,
		slots:    generator,
		gate:     gate,
		bus:      bus,
		policy:   policy,
		logger:   logger.With().Str("component", "reservation").Logger(),
	}
}

// ResolveSchedule exposes the effective day schedule to callers.
func (s *ReservationService) ResolveSchedule(ctx context.Context, kitchenID int64, date time.Time) (model.DaySchedule, error) {
	if _, err := s.repo.GetKitchen(ctx, kitchenID); err != nil {
		return model.Closed(), err
	}
	return s.resolver.Resolve(ctx, kitchenID, date)
}

// ListAvailableSlots returns the day's slots with occupancy. A closed
// day yields an empty list; slots never fall outside the resolved window.
func (s *ReservationService) ListAvailableSlots(ctx context.Context, kitchenID int64, date time.Time) ([]slots.Slot, error) {
	day, err := s.ResolveSchedule(ctx, kitchenID, date)
	if err != nil {
		return nil, err
	}
	if !day.Open {
		return nil, nil
	}
	generated, err := s.slots.Generate(date, day)
	if err != nil {
		return nil, err
	}
	return s.slots.FillOccupancy(ctx, kitchenID, date, generated)
}

// CreateReservation validates the request and commits it. Checks run in
// order and short-circuit on the first failure: window sanity, schedule,
// slot alignment, capacity, qualification gate. The capacity check and
// the insert run in one transaction; a transaction conflict is retried
// once before surfacing as capacity exceeded.
func (s *ReservationService) CreateReservation(ctx context.Context, req ReservationRequest) (*model.Reservation, error) {
	kitchen, err := s.repo.GetKitchen(ctx, req.KitchenID)
	if err != nil {
		return nil, err
	}
	if !kitchen.IsActive {
		return nil, domain.Validationf("kitchen %d is not active", kitchen.ID)
	}

	start, err := slots.ParseTimeOnDate(req.Date, req.StartTime)
	if err != nil {
		return nil, domain.Validationf("invalid start time %q", req.StartTime)
	}
	end, err := slots.ParseTimeOnDate(req.Date, req.EndTime)
	if err != nil {
		return nil, domain.Validationf("invalid end time %q", req.EndTime)
	}
	if !start.Before(end) {
		return nil, domain.Validationf("start %s must be before end %s", req.StartTime, req.EndTime)
	}

	if err := s.checkPolicy(ctx, req.RequesterID, start); err != nil {
		return nil, err
	}

	day, err := s.resolver.Resolve(ctx, req.KitchenID, req.Date)
	if err != nil {
		return nil, err
	}
	if !day.Open {
		return nil, domain.Validationf("kitchen closed on %s", req.Date.Format("2006-01-02"))
	}

	windowStart, err := slots.ParseTimeOnDate(req.Date, day.StartTime)
	if err != nil {
		return nil, &domain.ConfigurationError{Detail: fmt.Sprintf("bad schedule start %q", day.StartTime)}
	}
	windowEnd, err := slots.ParseTimeOnDate(req.Date, day.EndTime)
	if err != nil {
		return nil, &domain.ConfigurationError{Detail: fmt.Sprintf("bad schedule end %q", day.EndTime)}
	}
	if start.Before(windowStart) || end.After(windowEnd) {
		return nil, domain.Validationf("requested %s-%s outside operating hours %s-%s",
			req.StartTime, req.EndTime, day.StartTime, day.EndTime)
	}

	granularity := s.slots.Granularity()
	if !slots.Aligned(windowStart, start, granularity) {
		return nil, domain.Validationf("start %s does not align to the %s slot grid", req.StartTime, granularity)
	}
	if end.Sub(start)%granularity != 0 {
		return nil, domain.Validationf("duration must be a multiple of %s", granularity)
	}

	// Read-only headroom check before the gate so a full slot surfaces
	// as capacity exceeded, not as a qualification problem. Counted per
	// slot, same as availability reports it: two disjoint bookings inside
	// the window must not add up against a multi-slot request. The write
	// below re-validates inside the transaction.
	for slot := start; slot.Before(end); slot = slot.Add(granularity) {
		overlapping, err := s.repo.CountOverlapping(ctx, req.KitchenID, slot, slot.Add(granularity))
		if err != nil {
			return nil, fmt.Errorf("count overlapping: %w", err)
		}
		if overlapping >= day.Capacity {
			metrics.IncCapacityConflict()
			return nil, fmt.Errorf("slot %s: %w", slot.Format("15:04"), domain.ErrCapacityExceeded)
		}
	}

	allowed, missing, err := s.gate.CheckBookingGate(ctx, req.RequesterID, kitchen.GroupID)
	if err != nil {
		return nil, fmt.Errorf("check qualification: %w", err)
	}
	if !allowed {
		return nil, &domain.NotQualifiedError{Missing: missing}
	}

	reservation := &model.Reservation{
		Code:        uuid.NewString(),
		KitchenID:   req.KitchenID,
		RequesterID: req.RequesterID,
		Date:        req.Date,
		StartTime:   start,
		EndTime:     end,
		Status:      model.ReservationPending,
		Notes:       req.Notes,
	}

	err = s.repo.CreateReservationWithCapacity(ctx, reservation, day.Capacity, granularity)
	if err != nil && isTxConflict(err) {
		// One retry on a transaction-level conflict; a second failure
		// surfaces as the slot no longer being available.
		s.logger.Warn().Err(err).Msg("reservation insert conflict, retrying once")
		err = s.repo.CreateReservationWithCapacity(ctx, reservation, day.Capacity, granularity)
		if err != nil && isTxConflict(err) {
			err = domain.ErrCapacityExceeded
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrCapacityExceeded) {
			metrics.IncCapacityConflict()
		}
		return nil, err
	}

	metrics.IncReservationCreated(reservation.Status)
	s.publish(events.ReservationCreated, reservationPayload(reservation))
	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("kitchen_id", reservation.KitchenID).
		Int64("requester_id", reservation.RequesterID).
		Str("window", req.StartTime+"-"+req.EndTime).
		Msg("reservation created")
	return reservation, nil
}

// ConfirmReservation moves a pending reservation to confirmed.
func (s *ReservationService) ConfirmReservation(ctx context.Context, id int64) error {
	if err := s.repo.ConfirmReservation(ctx, id); err != nil {
		return err
	}
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	s.publish(events.ReservationConfirmed, reservationPayload(reservation))
	return nil
}

// CancelReservation cancels a reservation. A requester may only cancel
// their own; operators pass requesterID 0. Idempotent, and the freed
// capacity is visible to the next availability query immediately.
func (s *ReservationService) CancelReservation(ctx context.Context, id, requesterID int64) error {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if requesterID != 0 && reservation.RequesterID != requesterID {
		return domain.Validationf("reservation %d does not belong to requester %d", id, requesterID)
	}

	changed, err := s.repo.CancelReservation(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	metrics.IncReservationCancelled()
	reservation.Status = model.ReservationCancelled
	s.publish(events.ReservationCancelled, reservationPayload(reservation))
	s.logger.Info().
		Int64("reservation_id", id).
		Int64("requester_id", requesterID).
		Msg("reservation cancelled")
	return nil
}

func (s *ReservationService) checkPolicy(ctx context.Context, requesterID int64, start time.Time) error {
	now := time.Now()
	if s.policy.MinAdvance > 0 && start.Before(now.Add(s.policy.MinAdvance)) {
		return domain.Validationf("reservations need at least %s notice", s.policy.MinAdvance)
	}
	if s.policy.MaxAdvance > 0 && start.After(now.Add(s.policy.MaxAdvance)) {
		return domain.Validationf("reservations open at most %s ahead", s.policy.MaxAdvance)
	}
	if s.policy.MaxActivePerUser > 0 {
		active, err := s.repo.CountActiveForRequester(ctx, requesterID, now)
		if err != nil {
			return fmt.Errorf("count active reservations: %w", err)
		}
		if active >= s.policy.MaxActivePerUser {
			return domain.Validationf("at most %d active reservations per requester", s.policy.MaxActivePerUser)
		}
	}
	return nil
}

func (s *ReservationService) publish(eventType string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("publish event failed")
	}
}

func reservationPayload(r *model.Reservation) map[string]interface{} {
	return map[string]interface{}{
		"reservation_id": r.ID,
		"code":           r.Code,
		"kitchen_id":     r.KitchenID,
		"requester_id":   r.RequesterID,
		"start_time":     r.StartTime,
		"end_time":       r.EndTime,
		"status":         r.Status,
	}
}

// isTxConflict detects sqlite busy/locked errors that indicate a lost
// write race rather than a full slot.
func isTxConflict(err error) bool {
	if err == nil || errors.Is(err, domain.ErrCapacityExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
