// Package database provides sqlite-backed storage for kitchens,
// schedules, reservations and qualification records.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the booking core.
type DB struct {
	*sql.DB
}

// NewDB opens the database at path and runs migrations. Transactions
// take the write lock immediately so the capacity check and the insert
// in CreateReservationWithCapacity serialize against racing writers.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Kitchens
		`CREATE TABLE IF NOT EXISTS kitchens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id INTEGER NOT NULL,
			name TEXT UNIQUE NOT NULL,
			description TEXT,
			capacity INTEGER NOT NULL DEFAULT 1,
			is_active BOOLEAN DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Weekly rules: one per (kitchen, day of week)
		`CREATE TABLE IF NOT EXISTS weekly_rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kitchen_id INTEGER NOT NULL,
			day_of_week INTEGER NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT 1,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(kitchen_id, day_of_week),
			FOREIGN KEY (kitchen_id) REFERENCES kitchens(id)
		)`,

		// Date overrides: one per (kitchen, date), enforced by upsert
		`CREATE TABLE IF NOT EXISTS schedule_overrides (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kitchen_id INTEGER NOT NULL,
			date DATETIME NOT NULL,
			is_open BOOLEAN NOT NULL DEFAULT 0,
			start_time TEXT,
			end_time TEXT,
			capacity INTEGER,
			reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(kitchen_id, date),
			FOREIGN KEY (kitchen_id) REFERENCES kitchens(id)
		)`,

		// Reservations
		`CREATE TABLE IF NOT EXISTS reservations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code TEXT UNIQUE NOT NULL,
			kitchen_id INTEGER NOT NULL,
			requester_id INTEGER NOT NULL,
			date DATETIME NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT,
			confirmed_at DATETIME,
			cancelled_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (kitchen_id) REFERENCES kitchens(id)
		)`,

		// Qualification records: one per (requester, group)
		`CREATE TABLE IF NOT EXISTS qualification_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			requester_id INTEGER NOT NULL,
			group_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'in_review',
			current_stage INTEGER NOT NULL DEFAULT 1,
			stage1_completed_at DATETIME,
			stage2_completed_at DATETIME,
			stage3_submitted_at DATETIME,
			stage4_completed_at DATETIME,
			stage_data TEXT NOT NULL DEFAULT '{}',
			license_number TEXT,
			feedback TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(requester_id, group_id)
		)`,

		// Document verification statuses, written by the document store
		`CREATE TABLE IF NOT EXISTS document_statuses (
			record_id INTEGER NOT NULL,
			doc_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (record_id, doc_type),
			FOREIGN KEY (record_id) REFERENCES qualification_records(id)
		)`,

		// Per-group requirement catalog
		`CREATE TABLE IF NOT EXISTS group_requirements (
			group_id INTEGER PRIMARY KEY,
			require_profile BOOLEAN NOT NULL DEFAULT 1,
			require_identity_doc BOOLEAN NOT NULL DEFAULT 0,
			require_insurance_doc BOOLEAN NOT NULL DEFAULT 1,
			require_food_permit BOOLEAN NOT NULL DEFAULT 1,
			require_payment_method BOOLEAN NOT NULL DEFAULT 0,
			custom_fields TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Legacy direct access grants, read-only migration shim
		`CREATE TABLE IF NOT EXISTS legacy_access_grants (
			requester_id INTEGER NOT NULL,
			group_id INTEGER NOT NULL,
			granted_at DATETIME,
			PRIMARY KEY (requester_id, group_id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_kitchens_active ON kitchens(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_rules_kitchen ON weekly_rules(kitchen_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_kitchen_date ON schedule_overrides(kitchen_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_times ON reservations(kitchen_id, start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_status ON reservations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_requester ON reservations(requester_id)`,
		`CREATE INDEX IF NOT EXISTS idx_qualification_requester ON qualification_records(requester_id, group_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
