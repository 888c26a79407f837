// Package qualification implements the tiered access-gating ladder a
// requester clears before booking is unlocked.
package qualification

import (
	"strings"

	"hearth/internal/model"
)

// RequirementsResult is the outcome of a stage requirements check.
type RequirementsResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing_requirements"`
}

// Missing-requirement identifiers for the built-in checks. Custom fields
// are reported by their operator-defined label.
const (
	MissingProfile       = "profile"
	MissingIdentityDoc   = "identity_document"
	MissingInsuranceDoc  = "insurance_document"
	MissingFoodPermitDoc = "food_handler_permit"
	MissingPaymentMethod = "payment_method"
)

// Stage-data keys for built-in stage-1 fields.
const (
	FieldProfileName   = "profile_name"
	FieldProfilePhone  = "profile_phone"
	FieldPaymentMethod = "payment_method"
)

// CheckRequirements cross-references the group catalog against the
// record's stage data and document statuses for one stage. It is pure:
// no side effects, and it accumulates every unmet requirement rather
// than stopping at the first.
func CheckRequirements(record *model.QualificationRecord, docs []model.DocumentStatus, reqs *model.GroupRequirements, stage int) RequirementsResult {
	var missing []string

	approved := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.Status == model.DocumentApproved {
			approved[d.DocType] = true
		}
	}

	switch stage {
	case model.StageApplication:
		if reqs.RequireProfile && !hasProfile(record) {
			missing = append(missing, MissingProfile)
		}
		if reqs.RequireIdentityDoc && !approved[model.DocIdentity] {
			missing = append(missing, MissingIdentityDoc)
		}
	case model.StageDocuments:
		if reqs.RequireInsuranceDoc && !approved[model.DocInsurance] {
			missing = append(missing, MissingInsuranceDoc)
		}
		if reqs.RequireFoodPermitDoc && !approved[model.DocFoodPermit] {
			missing = append(missing, MissingFoodPermitDoc)
		}
		if reqs.RequirePaymentMethod && !hasValue(record, FieldPaymentMethod) {
			missing = append(missing, MissingPaymentMethod)
		}
	case model.StageLicense:
		if record.LicenseNumber == "" && !hasValue(record, "license_number") {
			missing = append(missing, "license_number")
		}
	}

	for _, f := range reqs.FieldsForStage(stage) {
		if f.Required && !hasValue(record, f.ID) {
			missing = append(missing, f.Label)
		}
	}

	return RequirementsResult{Valid: len(missing) == 0, Missing: missing}
}

func hasProfile(record *model.QualificationRecord) bool {
	return hasValue(record, FieldProfileName) && hasValue(record, FieldProfilePhone)
}

func hasValue(record *model.QualificationRecord, key string) bool {
	if record.StageData == nil {
		return false
	}
	return strings.TrimSpace(record.StageData[key]) != ""
}
