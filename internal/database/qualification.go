package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hearth/internal/domain"
	"hearth/internal/model"
)

func scanQualification(row interface {
	Scan(dest ...interface{}) error
}) (*model.QualificationRecord, error) {
	var r model.QualificationRecord
	var s1, s2, s3, s4 sql.NullTime
	var stageData string
	var license, feedback sql.NullString
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.GroupID, &r.Status, &r.CurrentStage,
		&s1, &s2, &s3, &s4, &stageData, &license, &feedback,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if s1.Valid {
		r.Stage1CompletedAt = &s1.Time
	}
	if s2.Valid {
		r.Stage2CompletedAt = &s2.Time
	}
	if s3.Valid {
		r.Stage3SubmittedAt = &s3.Time
	}
	if s4.Valid {
		r.Stage4CompletedAt = &s4.Time
	}
	if license.Valid {
		r.LicenseNumber = license.String
	}
	if feedback.Valid {
		r.Feedback = feedback.String
	}
	if err := json.Unmarshal([]byte(stageData), &r.StageData); err != nil {
		return nil, fmt.Errorf("decode stage data: %w", err)
	}
	return &r, nil
}

const qualificationColumns = `id, requester_id, group_id, status, current_stage,
	       stage1_completed_at, stage2_completed_at, stage3_submitted_at, stage4_completed_at,
	       stage_data, license_number, feedback, created_at, updated_at`

// GetQualificationRecord returns a record by ID.
func (db *DB) GetQualificationRecord(ctx context.Context, id int64) (*model.QualificationRecord, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+qualificationColumns+` FROM qualification_records WHERE id = ?`, id)
	r, err := scanQualification(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("qualification record %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetQualificationByRequester returns the record for (requester, group),
// or nil when the requester has never applied.
func (db *DB) GetQualificationByRequester(ctx context.Context, requesterID, groupID int64) (*model.QualificationRecord, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+qualificationColumns+` FROM qualification_records
		WHERE requester_id = ? AND group_id = ?`, requesterID, groupID)
	r, err := scanQualification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateQualificationRecord inserts a fresh record at stage 1. The
// UNIQUE(requester_id, group_id) constraint guarantees one record per pair.
func (db *DB) CreateQualificationRecord(ctx context.Context, r *model.QualificationRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	data, err := json.Marshal(r.StageData)
	if err != nil {
		return fmt.Errorf("encode stage data: %w", err)
	}

	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO qualification_records (
			requester_id, group_id, status, current_stage, stage_data, feedback, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequesterID, r.GroupID, r.Status, r.CurrentStage, string(data), r.Feedback, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert qualification record: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// UpdateQualificationRecord persists the mutable fields of a record.
// Stage timestamps are written as-is; callers enforce the set-once rule.
func (db *DB) UpdateQualificationRecord(ctx context.Context, r *model.QualificationRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	data, err := json.Marshal(r.StageData)
	if err != nil {
		return fmt.Errorf("encode stage data: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE qualification_records SET
			status = ?, current_stage = ?,
			stage1_completed_at = ?, stage2_completed_at = ?,
			stage3_submitted_at = ?, stage4_completed_at = ?,
			stage_data = ?, license_number = ?, feedback = ?, updated_at = ?
		WHERE id = ?`,
		r.Status, r.CurrentStage,
		r.Stage1CompletedAt, r.Stage2CompletedAt, r.Stage3SubmittedAt, r.Stage4CompletedAt,
		string(data), r.LicenseNumber, r.Feedback, time.Now(),
		r.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("qualification record %d: %w", r.ID, domain.ErrNotFound)
	}
	return nil
}

// GetDocumentStatuses returns document verification statuses for a record.
func (db *DB) GetDocumentStatuses(ctx context.Context, recordID int64) ([]model.DocumentStatus, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT record_id, doc_type, status, updated_at
		FROM document_statuses WHERE record_id = ?
		ORDER BY doc_type`,
		recordID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []model.DocumentStatus
	for rows.Next() {
		var s model.DocumentStatus
		if err := rows.Scan(&s.RecordID, &s.DocType, &s.Status, &s.UpdatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// SetDocumentStatus records a document verification result. Written by
// the document-store integration, read by the requirements check.
func (db *DB) SetDocumentStatus(ctx context.Context, s *model.DocumentStatus) error {
	if s == nil {
		return fmt.Errorf("status is nil")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO document_statuses (record_id, doc_type, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id, doc_type) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.RecordID, s.DocType, s.Status, time.Now(),
	)
	return err
}

// GetGroupRequirements returns the catalog for a group. Groups without a
// configured row get the defaults.
func (db *DB) GetGroupRequirements(ctx context.Context, groupID int64) (*model.GroupRequirements, error) {
	var g model.GroupRequirements
	var customFields string
	err := db.QueryRowContext(ctx, `
		SELECT group_id, require_profile, require_identity_doc, require_insurance_doc,
		       require_food_permit, require_payment_method, custom_fields, updated_at
		FROM group_requirements WHERE group_id = ?`,
		groupID,
	).Scan(&g.GroupID, &g.RequireProfile, &g.RequireIdentityDoc, &g.RequireInsuranceDoc,
		&g.RequireFoodPermitDoc, &g.RequirePaymentMethod, &customFields, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.GroupRequirements{
			GroupID:              groupID,
			RequireProfile:       true,
			RequireInsuranceDoc:  true,
			RequireFoodPermitDoc: true,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(customFields), &g.CustomFields); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	return &g, nil
}

// UpsertGroupRequirements stores the catalog for a group.
func (db *DB) UpsertGroupRequirements(ctx context.Context, g *model.GroupRequirements) error {
	if g == nil {
		return fmt.Errorf("requirements is nil")
	}
	fields, err := json.Marshal(g.CustomFields)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO group_requirements (
			group_id, require_profile, require_identity_doc, require_insurance_doc,
			require_food_permit, require_payment_method, custom_fields, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			require_profile = excluded.require_profile,
			require_identity_doc = excluded.require_identity_doc,
			require_insurance_doc = excluded.require_insurance_doc,
			require_food_permit = excluded.require_food_permit,
			require_payment_method = excluded.require_payment_method,
			custom_fields = excluded.custom_fields,
			updated_at = excluded.updated_at`,
		g.GroupID, g.RequireProfile, g.RequireIdentityDoc, g.RequireInsuranceDoc,
		g.RequireFoodPermitDoc, g.RequirePaymentMethod, string(fields), time.Now(),
	)
	return err
}

// HasLegacyGrant reports whether a legacy direct access grant exists for
// (requester, group). The table is a read-only migration shim; nothing
// in this codebase writes to it, and it never substitutes for the
// qualification gate.
func (db *DB) HasLegacyGrant(ctx context.Context, requesterID, groupID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM legacy_access_grants WHERE requester_id = ? AND group_id = ?",
		requesterID, groupID,
	).Scan(&count)
	return count > 0, err
}
