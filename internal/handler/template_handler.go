package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/service"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/response"
)

type templateService interface {
	Create(ctx context.Context, meta dto.CreateTemplateRequest, upload *service.FileUpload, actor *models.JWTClaims) (*models.TemplateDoc, error)
	List(ctx context.Context, kind models.TemplateKind) ([]models.TemplateDoc, error)
	Get(ctx context.Context, id string) (*models.TemplateDoc, error)
	Update(ctx context.Context, id string, req dto.UpdateTemplateRequest, actor *models.JWTClaims) (*models.TemplateDoc, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// TemplateHandler manages admin provided requirement files and help-desk templates.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(svc templateService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Param kind query string false "requirement or helpdesk"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	kind := models.TemplateKind(strings.ToLower(strings.TrimSpace(c.Query("kind"))))
	switch kind {
	case "", models.TemplateKindRequirement, models.TemplateKindHelpdesk:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be requirement or helpdesk"))
		return
	}
	items, err := h.service.List(c.Request.Context(), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Create godoc
// @Summary Create template
// @Tags Templates
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "requirement or helpdesk"
// @Param name formData string true "Name"
// @Param description formData string false "Description"
// @Param body formData string false "Inline body"
// @Param url formData string false "External URL"
// @Param file formData file false "Template file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var meta dto.CreateTemplateRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template payload"))
		return
	}

	var upload *service.FileUpload
	if header, err := c.FormFile("file"); err == nil {
		opened, closeFn, err := openUpload(header)
		if err != nil {
			response.Error(c, err)
			return
		}
		defer closeFn()
		upload = &opened
	}

	tpl, err := h.service.Create(c.Request.Context(), meta, upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// Update godoc
// @Summary Update template metadata
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body dto.UpdateTemplateRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req dto.UpdateTemplateRequest
	if !bindJSON(c, &req, "invalid template payload") {
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Delete godoc
// @Summary Delete template
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
