package entity

import (
	"strconv"
	"time"
)

// Applicant is one row of the applicants table. Text columns are nullable so
// the report can count missing values.
type Applicant struct {
	ID                int64     `db:"id" json:"id"`
	Name              *string   `db:"name" json:"name"`
	Mobile            *string   `db:"mobile" json:"mobile"`
	Email             *string   `db:"email" json:"email"`
	ResumeURL         *string   `db:"resume_url" json:"resume_url"`
	CandidateCategory *string   `db:"candidate_category" json:"candidate_category"`
	SpecialRemarks    *string   `db:"special_remarks" json:"special_remarks"`
	Justification     *string   `db:"justification" json:"justification"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ApplicantColumns lists the report columns in display order.
var ApplicantColumns = []string{
	"id",
	"name",
	"mobile",
	"email",
	"resume_url",
	"candidate_category",
	"special_remarks",
	"justification",
}

// Values returns the row in ApplicantColumns order; nil marks a NULL column.
func (a Applicant) Values() []*string {
	id := strconv.FormatInt(a.ID, 10)
	return []*string{&id, a.Name, a.Mobile, a.Email, a.ResumeURL, a.CandidateCategory, a.SpecialRemarks, a.Justification}
}

// Str returns a pointer to s, for building rows.
func Str(s string) *string { return &s }

// Deref returns the value behind p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
