package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RequirementSchemaVersion is written on every persisted requirement list.
const RequirementSchemaVersion = 2

type storedRequirements struct {
	Version int           `json:"version"`
	Items   []Requirement `json:"items"`
}

// legacyRequirement accepts the loosely typed records written by older clients.
type legacyRequirement struct {
	ID              json.RawMessage   `json:"id"`
	Title           string            `json:"title"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	IsRequired      *bool             `json:"isRequired"`
	Required        *bool             `json:"required"`
	AdminProvided   bool              `json:"adminProvided"`
	DueDate         string            `json:"dueDate"`
	Status          string            `json:"status"`
	Done            bool              `json:"done"`
	ApprovalStatus  string            `json:"approvalStatus"`
	Approval        string            `json:"approval"`
	RejectionReason string            `json:"rejectionReason"`
	AdviserNotes    string            `json:"adviserNotes"`
	ReviewedBy      string            `json:"reviewedBy"`
	ReviewedAt      json.RawMessage   `json:"reviewedAt"`
	UploadedFiles   []legacyFile      `json:"uploadedFiles"`
	Files           []json.RawMessage `json:"files"`
	FileName        string            `json:"fileName"`
	DownloadURL     string            `json:"downloadURL"`
}

type legacyFile struct {
	Name            string          `json:"name"`
	FileName        string          `json:"fileName"`
	URL             string          `json:"url"`
	DownloadURL     string          `json:"downloadURL"`
	StoragePath     string          `json:"storagePath"`
	Path            string          `json:"path"`
	FileRecordID    string          `json:"fileRecordId"`
	FileID          string          `json:"fileId"`
	DataURI         string          `json:"dataUri"`
	ContentType     string          `json:"contentType"`
	MimeType        string          `json:"mimeType"`
	Size            int64           `json:"size"`
	UploadedAt      json.RawMessage `json:"uploadedAt"`
	ProvidedByAdmin bool            `json:"providedByAdmin"`
	TemplateID      string          `json:"templateId"`
}

// DecodeStoredRequirements reads a persisted requirement list of any known version and
// returns it in the current shape together with the version it was stored as. Empty input yields no items.
func DecodeStoredRequirements(raw []byte) ([]Requirement, int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, 0, nil
	}

	switch trimmed[0] {
	case '[':
		var legacy []legacyRequirement
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, 1, fmt.Errorf("decode legacy requirements: %w", err)
		}
		items := make([]Requirement, 0, len(legacy))
		for _, item := range legacy {
			items = append(items, item.migrate())
		}
		return items, 1, nil
	case '{':
		var doc storedRequirements
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, 0, fmt.Errorf("decode requirements: %w", err)
		}
		if doc.Version > RequirementSchemaVersion {
			return nil, doc.Version, fmt.Errorf("unsupported requirements version %d", doc.Version)
		}
		for i := range doc.Items {
			doc.Items[i] = sanitizeRequirement(doc.Items[i])
		}
		return doc.Items, doc.Version, nil
	default:
		return nil, 0, fmt.Errorf("unrecognised requirements payload")
	}
}

// EncodeStoredRequirements writes the current schema version.
func EncodeStoredRequirements(items []Requirement) ([]byte, error) {
	if items == nil {
		items = []Requirement{}
	}
	payload, err := json.Marshal(storedRequirements{Version: RequirementSchemaVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	return payload, nil
}

func sanitizeRequirement(r Requirement) Requirement {
	if r.UploadedFiles == nil {
		r.UploadedFiles = []UploadedFile{}
	}
	switch r.Status {
	case RequirementPending, RequirementCompleted, RequirementOverdue:
	default:
		r.Status = RequirementPending
	}
	r.ApprovalStatus = normalizeApprovalStatus(string(r.ApprovalStatus))
	return r
}

func (l legacyRequirement) migrate() Requirement {
	title := l.Title
	if title == "" {
		title = l.Name
	}
	required := true
	if l.IsRequired != nil {
		required = *l.IsRequired
	} else if l.Required != nil {
		required = *l.Required
	}

	status := RequirementStatus(strings.ToLower(l.Status))
	if status == "" && l.Done {
		status = RequirementCompleted
	}
	approval := l.ApprovalStatus
	if approval == "" {
		approval = l.Approval
	}

	r := Requirement{
		ID:              rawID(l.ID),
		Title:           title,
		Description:     l.Description,
		Category:        RequirementCategory(strings.ToLower(l.Category)),
		IsRequired:      required,
		AdminProvided:   l.AdminProvided,
		DueDate:         l.DueDate,
		Status:          status,
		ApprovalStatus:  ApprovalStatus(approval),
		RejectionReason: l.RejectionReason,
		AdviserNotes:    l.AdviserNotes,
		ReviewedBy:      l.ReviewedBy,
		ReviewedAt:      rawTime(l.ReviewedAt),
	}

	files := make([]UploadedFile, 0, len(l.UploadedFiles)+len(l.Files)+1)
	for _, f := range l.UploadedFiles {
		files = append(files, f.migrate())
	}
	for _, rawFile := range l.Files {
		var url string
		if err := json.Unmarshal(rawFile, &url); err == nil {
			if url != "" {
				files = append(files, UploadedFile{Name: fileNameFromURL(url), URL: url})
			}
			continue
		}
		var f legacyFile
		if err := json.Unmarshal(rawFile, &f); err == nil {
			files = append(files, f.migrate())
		}
	}
	if len(files) == 0 && l.DownloadURL != "" {
		name := l.FileName
		if name == "" {
			name = fileNameFromURL(l.DownloadURL)
		}
		files = append(files, UploadedFile{Name: name, URL: l.DownloadURL})
	}
	r.UploadedFiles = files

	return sanitizeRequirement(r)
}

func (f legacyFile) migrate() UploadedFile {
	name := f.Name
	if name == "" {
		name = f.FileName
	}
	url := f.URL
	if url == "" {
		url = f.DownloadURL
	}
	path := f.StoragePath
	if path == "" {
		path = f.Path
	}
	record := f.FileRecordID
	if record == "" {
		record = f.FileID
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = f.MimeType
	}
	out := UploadedFile{
		Name:            name,
		ContentType:     contentType,
		Size:            f.Size,
		UploadedAt:      rawTime(f.UploadedAt),
		ProvidedByAdmin: f.ProvidedByAdmin,
		TemplateID:      f.TemplateID,
		URL:             url,
		StoragePath:     path,
		FileRecordID:    record,
		DataURI:         f.DataURI,
	}
	if out.Name == "" {
		out.Name = fileNameFromURL(out.URL)
	}
	return out
}

func normalizeApprovalStatus(raw string) ApprovalStatus {
	switch ApprovalStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case ApprovalApproved, "accepted":
		return ApprovalApproved
	case ApprovalRejected, "denied":
		return ApprovalRejected
	case ApprovalPendingReview, "pending":
		return ApprovalPendingReview
	default:
		return ApprovalNotSubmitted
	}
}

// rawID accepts both string and numeric identifiers.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawTime accepts RFC3339 strings and epoch milliseconds.
func rawTime(raw json.RawMessage) *time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, ok := ParseDueDate(s); ok {
			return &t
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.UnixMilli(ms).UTC()
			return &t
		}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		t := time.UnixMilli(int64(ms)).UTC()
		return &t
	}
	return nil
}

func fileNameFromURL(url string) string {
	trimmed := url
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "attachment"
	}
	return trimmed
}
