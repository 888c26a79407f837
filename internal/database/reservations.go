package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/domain"
	"hearth/internal/model"
)

func scanReservation(rows interface {
	Scan(dest ...interface{}) error
}) (*model.Reservation, error) {
	var r model.Reservation
	var notes sql.NullString
	var confirmedAt, cancelledAt sql.NullTime
	err := rows.Scan(
		&r.ID, &r.Code, &r.KitchenID, &r.RequesterID, &r.Date, &r.StartTime, &r.EndTime,
		&r.Status, &notes, &confirmedAt, &cancelledAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	if confirmedAt.Valid {
		r.ConfirmedAt = &confirmedAt.Time
	}
	if cancelledAt.Valid {
		r.CancelledAt = &cancelledAt.Time
	}
	return &r, nil
}

const reservationColumns = `id, code, kitchen_id, requester_id, date, start_time, end_time,
	       status, notes, confirmed_at, cancelled_at, created_at, updated_at`

// GetReservation returns a reservation by ID.
func (db *DB) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reservation %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetActiveReservationsOnDate returns all non-cancelled reservations for
// a kitchen and date, ordered by start time.
func (db *DB) GetActiveReservationsOnDate(ctx context.Context, kitchenID int64, date time.Time) ([]model.Reservation, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE kitchen_id = ?
		AND start_time >= ? AND start_time < ?
		AND status != 'cancelled'
		ORDER BY start_time`,
		kitchenID, startOfDay, endOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// CountOverlapping returns how many non-cancelled reservations overlap
// the half-open interval [start, end). Always reads fresh; cancelled
// reservations free their capacity the moment the status flips.
func (db *DB) CountOverlapping(ctx context.Context, kitchenID int64, start, end time.Time) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE kitchen_id = ?
		AND start_time < ? AND end_time > ?
		AND status != 'cancelled'`,
		kitchenID, end, start,
	).Scan(&count)
	return count, err
}

// CreateReservationWithCapacity inserts the reservation only if the peak
// concurrent occupancy over its window stays within capacity. The check
// and the insert run inside one immediate transaction so two racing
// writers serialize; the loser sees the winner's row and fails with
// domain.ErrCapacityExceeded.
func (db *DB) CreateReservationWithCapacity(ctx context.Context, r *model.Reservation, capacity int, granularity time.Duration) error {
	if r == nil {
		return fmt.Errorf("reservation is nil")
	}
	if capacity <= 0 {
		return domain.ErrCapacityExceeded
	}
	if granularity <= 0 {
		granularity = time.Hour
	}

	// The connection opens transactions with BEGIN IMMEDIATE, so the
	// occupancy reads below are serialized against concurrent inserts.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Peak occupancy check per slot: a reservation spanning multiple
	// slots counts against every slot it overlaps.
	for slot := r.StartTime; slot.Before(r.EndTime); slot = slot.Add(granularity) {
		var count int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM reservations
			WHERE kitchen_id = ?
			AND start_time <= ? AND end_time > ?
			AND status != 'cancelled'`,
			r.KitchenID, slot, slot,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("count occupancy: %w", err)
		}
		if count >= capacity {
			return domain.ErrCapacityExceeded
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			code, kitchen_id, requester_id, date, start_time, end_time, status, notes, created_at, updated_at
		) VALUES (?, ?, ?, date(?), ?, ?, ?, ?, ?, ?)`,
		r.Code, r.KitchenID, r.RequesterID, r.Date, r.StartTime, r.EndTime, r.Status, r.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.ID, _ = res.LastInsertId()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// ConfirmReservation moves a pending reservation to confirmed.
func (db *DB) ConfirmReservation(ctx context.Context, id int64) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, confirmed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		model.ReservationConfirmed, now, now, id, model.ReservationPending,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := db.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("reservation %d is %s, cannot confirm", id, existing.Status)
	}
	return nil
}

// CancelReservation marks a reservation cancelled. Idempotent: cancelling
// an already-cancelled reservation is a no-op. The row is retained for
// audit; only the status changes.
func (db *DB) CancelReservation(ctx context.Context, id int64) (bool, error) {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ? AND status != ?`,
		model.ReservationCancelled, now, now, id, model.ReservationCancelled,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Distinguish "already cancelled" from "unknown id".
		if _, err := db.GetReservation(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// GetRequesterReservations returns all reservations of a requester.
func (db *DB) GetRequesterReservations(ctx context.Context, requesterID int64) ([]model.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE requester_id = ?
		ORDER BY start_time DESC`,
		requesterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// CountActiveForRequester counts a requester's pending and confirmed
// reservations starting at or after now.
func (db *DB) CountActiveForRequester(ctx context.Context, requesterID int64, now time.Time) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE requester_id = ? AND start_time >= ? AND status != 'cancelled'`,
		requesterID, now,
	).Scan(&count)
	return count, err
}

// PurgeCancelledReservations hard-deletes cancelled reservations older
// than the given duration. This is the only code path that deletes
// reservation rows; everything else updates status.
func (db *DB) PurgeCancelledReservations(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := db.ExecContext(ctx,
		"DELETE FROM reservations WHERE status = 'cancelled' AND end_time < ?",
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
