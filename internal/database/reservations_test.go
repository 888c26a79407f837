package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/domain"
	"hearth/internal/model"
)

func makeReservation(kitchenID, requesterID int64, date time.Time, startHour, endHour int) *model.Reservation {
	return &model.Reservation{
		Code:        fmt.Sprintf("code-%d-%d-%d", requesterID, startHour, endHour),
		KitchenID:   kitchenID,
		RequesterID: requesterID,
		Date:        date,
		StartTime:   date.Add(time.Duration(startHour) * time.Hour),
		EndTime:     date.Add(time.Duration(endHour) * time.Hour),
		Status:      model.ReservationPending,
	}
}

func TestCreateReservationWithCapacity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	first := makeReservation(kitchenID, 7, date, 10, 12)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, first, 1, time.Hour))
	assert.NotZero(t, first.ID)

	// Capacity 1: a second overlapping reservation is rejected.
	second := makeReservation(kitchenID, 8, date, 11, 13)
	err := db.CreateReservationWithCapacity(ctx, second, 1, time.Hour)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	// A disjoint window on the same day goes through.
	third := makeReservation(kitchenID, 8, date, 13, 14)
	assert.NoError(t, db.CreateReservationWithCapacity(ctx, third, 1, time.Hour))
}

func TestCreateReservationCapacityTwo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 1, date, 10, 11), 2, time.Hour))
	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 2, date, 10, 11), 2, time.Hour))

	err := db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 3, date, 10, 11), 2, time.Hour)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestCreateReservationMultiSlotCountsEverySlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	// 10:00-13:00 occupies three hourly slots.
	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 1, date, 10, 13), 1, time.Hour))

	// A one-hour request on the middle slot must see the occupancy.
	err := db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 2, date, 11, 12), 1, time.Hour)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}

func TestConcurrentCreatesOneWinner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	// Two racing requests for the same capacity-1 slot: exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := makeReservation(kitchenID, int64(i+1), date, 10, 11)
			errs[i] = db.CreateReservationWithCapacity(ctx, r, 1, time.Hour)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, winners, "exactly one of the racing requests may succeed")

	count, err := db.CountOverlapping(ctx, kitchenID, date.Add(10*time.Hour), date.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCancelFreesCapacityImmediately(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	r := makeReservation(kitchenID, 7, date, 10, 11)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, r, 1, time.Hour))

	changed, err := db.CancelReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// Cancelled rows stay for audit but stop counting.
	kept, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, kept.Status)
	assert.NotNil(t, kept.CancelledAt)

	count, err := db.CountOverlapping(ctx, kitchenID, date.Add(10*time.Hour), date.Add(11*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)

	// The freed slot is bookable again.
	assert.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 8, date, 10, 11), 1, time.Hour))
}

func TestCancelIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	r := makeReservation(kitchenID, 7, date, 10, 11)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, r, 1, time.Hour))

	changed, err := db.CancelReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.CancelReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second cancel is a no-op")

	_, err = db.CancelReservation(ctx, 99999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfirmReservation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	r := makeReservation(kitchenID, 7, date, 10, 11)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, r, 1, time.Hour))
	require.NoError(t, db.ConfirmReservation(ctx, r.ID))

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)

	// Confirming a non-pending reservation fails.
	assert.Error(t, db.ConfirmReservation(ctx, r.ID))
}

func TestCountActiveForRequester(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)

	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 7, date, 10, 11), 2, time.Hour))
	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 7, date, 12, 13), 2, time.Hour))
	cancelled := makeReservation(kitchenID, 7, date, 14, 15)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, cancelled, 2, time.Hour))
	_, err := db.CancelReservation(ctx, cancelled.ID)
	require.NoError(t, err)

	count, err := db.CountActiveForRequester(ctx, 7, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPurgeCancelledReservations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")

	old := time.Now().AddDate(0, -3, 0).Truncate(24 * time.Hour)
	recent := time.Now().AddDate(0, 0, -2).Truncate(24 * time.Hour)

	oldCancelled := makeReservation(kitchenID, 1, old, 10, 11)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, oldCancelled, 1, time.Hour))
	_, err := db.CancelReservation(ctx, oldCancelled.ID)
	require.NoError(t, err)

	oldActive := makeReservation(kitchenID, 2, old, 12, 13)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, oldActive, 1, time.Hour))

	recentCancelled := makeReservation(kitchenID, 3, recent, 10, 11)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, recentCancelled, 1, time.Hour))
	_, err = db.CancelReservation(ctx, recentCancelled.ID)
	require.NoError(t, err)

	deleted, err := db.PurgeCancelledReservations(ctx, 31*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Only the old cancelled row is gone.
	_, err = db.GetReservation(ctx, oldCancelled.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = db.GetReservation(ctx, oldActive.ID)
	assert.NoError(t, err)
	_, err = db.GetReservation(ctx, recentCancelled.ID)
	assert.NoError(t, err)
}

func TestGetActiveReservationsOnDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kitchenID := seedKitchen(t, db, "Dockside")
	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 1, date, 14, 15), 2, time.Hour))
	require.NoError(t, db.CreateReservationWithCapacity(ctx, makeReservation(kitchenID, 2, date, 9, 10), 2, time.Hour))
	cancelled := makeReservation(kitchenID, 3, date, 11, 12)
	require.NoError(t, db.CreateReservationWithCapacity(ctx, cancelled, 2, time.Hour))
	_, err := db.CancelReservation(ctx, cancelled.ID)
	require.NoError(t, err)

	got, err := db.GetActiveReservationsOnDate(ctx, kitchenID, date)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartTime.Before(got[1].StartTime), "ordered by start time")
}
