package model

import "time"

// Qualification record statuses.
const (
	QualificationInReview  = "in_review"
	QualificationApproved  = "approved"
	QualificationRejected  = "rejected"
	QualificationCancelled = "cancelled"
)

// Qualification stages. A requester clears stages in order; completing
// stage 2 is the gate that unlocks booking.
const (
	StageApplication = 1 // profile application, reviewed by an operator
	StageDocuments   = 2 // documents and required fields verified
	StageLicensing   = 3 // external licensing submission, informational
	StageLicense     = 4 // license entered, informational
)

// Document verification statuses supplied by the external document store.
const (
	DocumentPending  = "pending"
	DocumentApproved = "approved"
	DocumentRejected = "rejected"
)

// Document types the catalog can require.
const (
	DocInsurance  = "insurance"
	DocFoodPermit = "food_permit"
	DocIdentity   = "identity"
)

// QualificationRecord tracks one requester's progress through the
// qualification ladder of one kitchen group. One record exists per
// (requester, group). Stage timestamps are set once and never cleared.
type QualificationRecord struct {
	ID                int64             `json:"id"`
	RequesterID       int64             `json:"requester_id"`
	GroupID           int64             `json:"group_id"`
	Status            string            `json:"status"`
	CurrentStage      int               `json:"current_stage"`
	Stage1CompletedAt *time.Time        `json:"stage1_completed_at,omitempty"`
	Stage2CompletedAt *time.Time        `json:"stage2_completed_at,omitempty"`
	Stage3SubmittedAt *time.Time        `json:"stage3_submitted_at,omitempty"`
	Stage4CompletedAt *time.Time        `json:"stage4_completed_at,omitempty"`
	StageData         map[string]string `json:"stage_data"`
	LicenseNumber     string            `json:"license_number,omitempty"`
	Feedback          string            `json:"feedback,omitempty"` // operator feedback on rejection
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// BookingUnlocked reports whether the record clears the booking gate.
// Approval alone is not enough; stage 2 must have been verified.
func (r *QualificationRecord) BookingUnlocked() bool {
	return r.Stage2CompletedAt != nil
}

// StageTimestamp returns the completion/submission timestamp for a stage.
func (r *QualificationRecord) StageTimestamp(stage int) *time.Time {
	switch stage {
	case StageApplication:
		return r.Stage1CompletedAt
	case StageDocuments:
		return r.Stage2CompletedAt
	case StageLicensing:
		return r.Stage3SubmittedAt
	case StageLicense:
		return r.Stage4CompletedAt
	}
	return nil
}

// DocumentStatus is the verification state of one uploaded document,
// read-only from the core's point of view.
type DocumentStatus struct {
	RecordID  int64     `json:"record_id"`
	DocType   string    `json:"doc_type"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomField is an operator-defined per-stage requirement.
type CustomField struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Type     string `json:"type" yaml:"type"` // text, number, date, checkbox
	Required bool   `json:"required" yaml:"required"`
	Stage    int    `json:"stage" yaml:"stage"`
}

// GroupRequirements is the per-group qualification catalog: which
// built-in requirements apply at each stage plus custom fields.
type GroupRequirements struct {
	GroupID              int64         `json:"group_id"`
	RequireProfile       bool          `json:"require_profile"`        // stage 1
	RequireIdentityDoc   bool          `json:"require_identity_doc"`   // stage 1
	RequireInsuranceDoc  bool          `json:"require_insurance_doc"`  // stage 2
	RequireFoodPermitDoc bool          `json:"require_food_permit"`    // stage 2
	RequirePaymentMethod bool          `json:"require_payment_method"` // stage 2
	CustomFields         []CustomField `json:"custom_fields"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// FieldsForStage returns the custom fields that apply to a stage.
func (g *GroupRequirements) FieldsForStage(stage int) []CustomField {
	var fields []CustomField
	for _, f := range g.CustomFields {
		if f.Stage == stage {
			fields = append(fields, f)
		}
	}
	return fields
}
