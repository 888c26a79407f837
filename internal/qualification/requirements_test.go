package qualification

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hearth/internal/model"
)

func fullReqs() *model.GroupRequirements {
	return &model.GroupRequirements{
		GroupID:              1,
		RequireProfile:       true,
		RequireIdentityDoc:   true,
		RequireInsuranceDoc:  true,
		RequireFoodPermitDoc: true,
		RequirePaymentMethod: true,
	}
}

func TestCheckRequirementsStage1(t *testing.T) {
	record := &model.QualificationRecord{StageData: map[string]string{}}

	result := CheckRequirements(record, nil, fullReqs(), model.StageApplication)
	assert.False(t, result.Valid)
	// Every unmet requirement is reported, not just the first.
	assert.ElementsMatch(t, []string{MissingProfile, MissingIdentityDoc}, result.Missing)

	record.StageData = map[string]string{
		FieldProfileName:  "Rosa's Tamales",
		FieldProfilePhone: "+1 555 0101",
	}
	docs := []model.DocumentStatus{{RecordID: 1, DocType: model.DocIdentity, Status: model.DocumentApproved}}
	result = CheckRequirements(record, docs, fullReqs(), model.StageApplication)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Missing)
}

func TestCheckRequirementsStage2(t *testing.T) {
	record := &model.QualificationRecord{StageData: map[string]string{}}

	// Pending or rejected documents do not count as approved.
	docs := []model.DocumentStatus{
		{DocType: model.DocInsurance, Status: model.DocumentPending},
		{DocType: model.DocFoodPermit, Status: model.DocumentRejected},
	}
	result := CheckRequirements(record, docs, fullReqs(), model.StageDocuments)
	assert.False(t, result.Valid)
	assert.ElementsMatch(t,
		[]string{MissingInsuranceDoc, MissingFoodPermitDoc, MissingPaymentMethod},
		result.Missing)

	docs = []model.DocumentStatus{
		{DocType: model.DocInsurance, Status: model.DocumentApproved},
		{DocType: model.DocFoodPermit, Status: model.DocumentApproved},
	}
	record.StageData = map[string]string{FieldPaymentMethod: "card_on_file"}
	result = CheckRequirements(record, docs, fullReqs(), model.StageDocuments)
	assert.True(t, result.Valid)
}

func TestCheckRequirementsDisabledChecksSkipped(t *testing.T) {
	reqs := &model.GroupRequirements{GroupID: 1} // nothing required
	record := &model.QualificationRecord{}

	result := CheckRequirements(record, nil, reqs, model.StageApplication)
	assert.True(t, result.Valid)
	result = CheckRequirements(record, nil, reqs, model.StageDocuments)
	assert.True(t, result.Valid)
}

func TestCheckRequirementsCustomFields(t *testing.T) {
	reqs := &model.GroupRequirements{
		GroupID: 1,
		CustomFields: []model.CustomField{
			{ID: "lease", Label: "Lease agreement", Type: "text", Required: true, Stage: 2},
			{ID: "menu", Label: "Sample menu", Type: "text", Required: false, Stage: 2},
			{ID: "other", Label: "Stage three field", Type: "text", Required: true, Stage: 3},
		},
	}
	record := &model.QualificationRecord{StageData: map[string]string{"lease": "   "}}

	// Whitespace-only values do not satisfy a required field; missing
	// custom fields are reported by label.
	result := CheckRequirements(record, nil, reqs, model.StageDocuments)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"Lease agreement"}, result.Missing)

	record.StageData["lease"] = "signed-2026.pdf"
	result = CheckRequirements(record, nil, reqs, model.StageDocuments)
	assert.True(t, result.Valid)
}

func TestCheckRequirementsStage4License(t *testing.T) {
	record := &model.QualificationRecord{}
	result := CheckRequirements(record, nil, &model.GroupRequirements{}, model.StageLicense)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"license_number"}, result.Missing)

	record.StageData = map[string]string{"license_number": "FL-2026-0042"}
	result = CheckRequirements(record, nil, &model.GroupRequirements{}, model.StageLicense)
	assert.True(t, result.Valid)
}
