package dto

import (
	"time"

	"github.com/noah-isme/internquest-api/internal/models"
)

// ChecklistResponse is the reconciled requirement checklist of one student.
type ChecklistResponse struct {
	UserID               string               `json:"userId"`
	Requirements         []models.Requirement `json:"requirements"`
	Progress             float64              `json:"progress"`
	CompletedCount       int                  `json:"completedCount"`
	RequiredCount        int                  `json:"requiredCount"`
	AllRequiredSatisfied bool                 `json:"allRequiredSatisfied"`
	Degraded             []string             `json:"degraded,omitempty"`
	GeneratedAt          time.Time            `json:"generatedAt"`
	FromCache            bool                 `json:"-"`
}

// UploadRequirementFileRequest carries multipart form fields sent with a requirement file.
type UploadRequirementFileRequest struct {
	StoreMode string `form:"storeMode" json:"storeMode"`
}

// FileURLResponse is a short-lived link to an attachment.
type FileURLResponse struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
