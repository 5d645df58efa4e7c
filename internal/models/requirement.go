package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RequirementCategory groups checklist items.
type RequirementCategory string

const (
	CategoryDocuments      RequirementCategory = "documents"
	CategoryForms          RequirementCategory = "forms"
	CategoryCertifications RequirementCategory = "certifications"
	CategoryOther          RequirementCategory = "other"
)

// RequirementStatus is derived on every reconciliation pass.
type RequirementStatus string

const (
	RequirementPending   RequirementStatus = "pending"
	RequirementCompleted RequirementStatus = "completed"
	RequirementOverdue   RequirementStatus = "overdue"
)

// ApprovalStatus is overlaid from the approval records.
type ApprovalStatus string

const (
	ApprovalNotSubmitted  ApprovalStatus = "not_submitted"
	ApprovalPendingReview ApprovalStatus = "pending_review"
	ApprovalApproved      ApprovalStatus = "approved"
	ApprovalRejected      ApprovalStatus = "rejected"
)

// UploadedFile describes one attachment. Exactly one locator (URL, StoragePath, FileRecordID, DataURI) is expected.
type UploadedFile struct {
	Name            string     `json:"name"`
	ContentType     string     `json:"contentType,omitempty"`
	Size            int64      `json:"size,omitempty"`
	UploadedAt      *time.Time `json:"uploadedAt,omitempty"`
	ProvidedByAdmin bool       `json:"providedByAdmin,omitempty"`
	TemplateID      string     `json:"templateId,omitempty"`
	URL             string     `json:"url,omitempty"`
	StoragePath     string     `json:"storagePath,omitempty"`
	FileRecordID    string     `json:"fileRecordId,omitempty"`
	DataURI         string     `json:"dataUri,omitempty"`
}

// LocatorKey identifies the stored bytes independent of how the link was issued.
func (f UploadedFile) LocatorKey() string {
	switch {
	case f.StoragePath != "":
		return "path:" + f.StoragePath
	case f.FileRecordID != "":
		return "record:" + f.FileRecordID
	case f.URL != "":
		return "url:" + f.URL
	case f.DataURI != "":
		sum := sha256.Sum256([]byte(f.DataURI))
		return "data:" + hex.EncodeToString(sum[:])
	default:
		return "name:" + strings.ToLower(f.Name)
	}
}

// Requirement is one checklist item as stored on the student profile and returned to clients.
type Requirement struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Category        RequirementCategory `json:"category"`
	IsRequired      bool                `json:"isRequired"`
	AdminProvided   bool                `json:"adminProvided"`
	DueDate         string              `json:"dueDate,omitempty"`
	Status          RequirementStatus   `json:"status"`
	ApprovalStatus  ApprovalStatus      `json:"approvalStatus"`
	RejectionReason string              `json:"rejectionReason,omitempty"`
	AdviserNotes    string              `json:"adviserNotes,omitempty"`
	ReviewedBy      string              `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewedAt,omitempty"`
	UploadedFiles   []UploadedFile      `json:"uploadedFiles"`
}

// StudentFiles returns the attachments the student uploaded, skipping admin supplied ones.
func (r Requirement) StudentFiles() []UploadedFile {
	files := make([]UploadedFile, 0, len(r.UploadedFiles))
	for _, f := range r.UploadedFiles {
		if !f.ProvidedByAdmin {
			files = append(files, f)
		}
	}
	return files
}

// RequirementDefinition is the canonical shape of a checklist item.
type RequirementDefinition struct {
	ID            string
	Title         string
	Description   string
	Category      RequirementCategory
	IsRequired    bool
	AdminProvided bool
	DueDate       string
}

// NewRequirement returns a fresh requirement with no submission state.
func (d RequirementDefinition) NewRequirement() Requirement {
	return Requirement{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Category:       d.Category,
		IsRequired:     d.IsRequired,
		AdminProvided:  d.AdminProvided,
		DueDate:        d.DueDate,
		Status:         RequirementPending,
		ApprovalStatus: ApprovalNotSubmitted,
		UploadedFiles:  []UploadedFile{},
	}
}

// DefaultRequirementDefinitions returns the current canonical checklist.
func DefaultRequirementDefinitions() []RequirementDefinition {
	return []RequirementDefinition{
		{ID: "1", Title: "Proof of Enrollment (COM)", Description: "Certificate of matriculation for the current semester.", Category: CategoryDocuments, IsRequired: true},
		{ID: "2", Title: "Notarized Parental Consent", Description: "Parent or guardian consent to the training, notarized.", Category: CategoryForms, IsRequired: true},
		{ID: "3", Title: "Medical Certificate", Description: "Issued by a licensed physician within the last six months.", Category: CategoryCertifications, IsRequired: true},
		{ID: "4", Title: "Psychological Test Certification", Description: "Result of the psychological evaluation from the guidance office.", Category: CategoryCertifications, IsRequired: true},
		{ID: "5", Title: "Proof of Insurance", Description: "Accident insurance covering the training period.", Category: CategoryDocuments, IsRequired: true},
		{ID: "6", Title: "OJT Orientation Certificate", Description: "Certificate of attendance to the pre-deployment orientation.", Category: CategoryCertifications, IsRequired: true},
		{ID: "7", Title: "Memorandum of Agreement", Description: "Agreement between the school and the host company, provided by the OJT office.", Category: CategoryForms, IsRequired: true, AdminProvided: true},
		{ID: "8", Title: "Curriculum Vitae", Description: "Updated resume submitted to the host company.", Category: CategoryOther, IsRequired: false},
	}
}

// ParseDueDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ParseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
