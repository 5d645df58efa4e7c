package models

import "time"

// TemplateKind separates reconciliation templates from help-desk material.
type TemplateKind string

const (
	TemplateKindRequirement TemplateKind = "requirement"
	TemplateKindHelpdesk    TemplateKind = "helpdesk"
)

// TemplateDoc is a centrally provided file or canned help-desk answer.
type TemplateDoc struct {
	ID          string       `db:"id" json:"id"`
	Kind        TemplateKind `db:"kind" json:"kind"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Body        *string      `db:"body" json:"body,omitempty"`
	URL         *string      `db:"url" json:"url,omitempty"`
	StoragePath *string      `db:"storage_path" json:"storagePath,omitempty"`
	ContentType string       `db:"content_type" json:"contentType"`
	SizeBytes   int64        `db:"size_bytes" json:"sizeBytes"`
	UploadedBy  string       `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt  time.Time    `db:"uploaded_at" json:"uploadedAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time   `db:"deleted_at" json:"deletedAt,omitempty"`

	// DownloadURL is filled by the service before templates are handed to clients or the reconciler.
	DownloadURL string `db:"-" json:"downloadUrl,omitempty"`
}

// TemplateFilter narrows template listings.
type TemplateFilter struct {
	Kind           TemplateKind
	IncludeDeleted bool
}
