package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/domain"
	"hearth/internal/model"
)

// GetKitchen returns a kitchen by ID.
func (db *DB) GetKitchen(ctx context.Context, id int64) (*model.Kitchen, error) {
	var k model.Kitchen
	err := db.QueryRowContext(ctx, `
		SELECT id, group_id, name, description, capacity, is_active, created_at, updated_at
		FROM kitchens WHERE id = ?`,
		id,
	).Scan(&k.ID, &k.GroupID, &k.Name, &k.Description, &k.Capacity, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("kitchen %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// ListActiveKitchens returns all active kitchens.
func (db *DB) ListActiveKitchens(ctx context.Context) ([]model.Kitchen, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, group_id, name, description, capacity, is_active, created_at, updated_at
		FROM kitchens WHERE is_active = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kitchens []model.Kitchen
	for rows.Next() {
		var k model.Kitchen
		if err := rows.Scan(&k.ID, &k.GroupID, &k.Name, &k.Description, &k.Capacity, &k.IsActive, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		kitchens = append(kitchens, k)
	}
	return kitchens, rows.Err()
}

// UpsertKitchen creates or updates a kitchen by name. Used by the seed
// file loader; identity is immutable, the active flag and metadata are not.
func (db *DB) UpsertKitchen(ctx context.Context, k *model.Kitchen) error {
	if k == nil {
		return fmt.Errorf("kitchen is nil")
	}
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO kitchens (group_id, name, description, capacity, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			group_id = excluded.group_id,
			description = excluded.description,
			capacity = excluded.capacity,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		k.GroupID, k.Name, k.Description, k.Capacity, k.IsActive, now, now,
	)
	return err
}

// SetKitchenActive flips the active flag.
func (db *DB) SetKitchenActive(ctx context.Context, id int64, active bool) error {
	res, err := db.ExecContext(ctx,
		"UPDATE kitchens SET is_active = ?, updated_at = ? WHERE id = ?",
		active, time.Now(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("kitchen %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
