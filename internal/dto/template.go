package dto

import "github.com/noah-isme/internquest-api/internal/models"

// CreateTemplateRequest contains metadata submitted alongside a template upload.
type CreateTemplateRequest struct {
	Kind        models.TemplateKind `form:"kind" json:"kind" validate:"required,oneof=requirement helpdesk"`
	Name        string              `form:"name" json:"name" validate:"required,max=200"`
	Description string              `form:"description" json:"description" validate:"max=2000"`
	Body        *string             `form:"body" json:"body"`
	URL         *string             `form:"url" json:"url" validate:"omitempty,url"`
}

// UpdateTemplateRequest patches template metadata. Nil fields are left unchanged.
type UpdateTemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Body        *string `json:"body"`
}
