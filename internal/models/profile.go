package models

import "time"

// ProfileStatus tracks the student's placement.
type ProfileStatus string

const (
	ProfileApplying ProfileStatus = "applying"
	ProfileHired    ProfileStatus = "hired"
)

// StudentProfile stores placement data and the persisted requirement list (JSONB).
type StudentProfile struct {
	UserID           string        `db:"user_id" json:"userId"`
	Email            string        `db:"email" json:"email"`
	FullName         string        `db:"full_name" json:"fullName"`
	Status           ProfileStatus `db:"status" json:"status"`
	AppliedCompanyID *string       `db:"applied_company_id" json:"appliedCompanyId,omitempty"`
	FinalCompanyID   *string       `db:"final_company_id" json:"finalCompanyId,omitempty"`
	Requirements     []byte        `db:"requirements" json:"-"`
	AdviserID        *string       `db:"adviser_id" json:"adviserId,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updatedAt"`
}
