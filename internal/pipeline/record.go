package pipeline

import (
	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

// ValidateRecord checks that every candidate field is present before a row is written.
func ValidateRecord(rec llm.CandidateRecord) error {
	v := common.NewValidator()
	v.Field("name", rec.Name, common.Required)
	v.Field("mobile", rec.Mobile, common.Required)
	v.Field("email", rec.Email, common.Required)
	v.Field("justification", rec.Justification, common.Required)
	v.Field("category", string(rec.Category), common.Required, common.OneOf(constants.CategoryValues()...))
	v.Field("special_remarks", string(rec.SpecialRemarks), common.Required, common.OneOf(constants.RemarkValues()...))
	return v.Err()
}

// ApplicantFromRecord maps a classified candidate onto a table row.
func ApplicantFromRecord(rec llm.CandidateRecord, resumeURL string) *entity.Applicant {
	return &entity.Applicant{
		Name:              entity.Str(rec.Name),
		Mobile:            entity.Str(rec.Mobile),
		Email:             entity.Str(rec.Email),
		ResumeURL:         entity.Str(resumeURL),
		CandidateCategory: entity.Str(string(rec.Category)),
		SpecialRemarks:    entity.Str(string(rec.SpecialRemarks)),
		Justification:     entity.Str(rec.Justification),
	}
}
