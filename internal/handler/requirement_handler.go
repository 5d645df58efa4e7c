package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/middleware"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/service"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/response"
)

type checklistLoader interface {
	Load(ctx context.Context, userID string) (*dto.ChecklistResponse, error)
}

type requirementFiles interface {
	Upload(ctx context.Context, userID, requirementID string, upload service.FileUpload, storeMode string) (*models.Requirement, error)
	DeleteFile(ctx context.Context, userID, requirementID string, fileIndex int) (*models.Requirement, error)
	FileURL(ctx context.Context, userID, requirementID string, fileIndex int) (*dto.FileURLResponse, error)
}

// RequirementHandler exposes the student requirement checklist.
type RequirementHandler struct {
	checklists checklistLoader
	files      requirementFiles
}

// NewRequirementHandler constructs the handler.
func NewRequirementHandler(checklists checklistLoader, files requirementFiles) *RequirementHandler {
	return &RequirementHandler{checklists: checklists, files: files}
}

// Mine godoc
// @Summary Current student's checklist
// @Description Reconciles and returns the requirement checklist of the caller
// @Tags Requirements
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me/requirements [get]
func (h *RequirementHandler) Mine(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	h.respondChecklist(c, claims.UserID)
}

// ForStudent godoc
// @Summary Student checklist
// @Description Reconciles and returns the checklist of a student for review
// @Tags Requirements
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/requirements [get]
func (h *RequirementHandler) ForStudent(c *gin.Context) {
	h.respondChecklist(c, c.Param("id"))
}

func (h *RequirementHandler) respondChecklist(c *gin.Context, userID string) {
	checklist, err := h.checklists.Load(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, checklist.FromCache)
	meta := middleware.ExtractMeta(c)
	if len(checklist.Degraded) > 0 {
		meta["degraded"] = checklist.Degraded
	}
	response.JSON(c, http.StatusOK, checklist, nil, meta)
}

// Upload godoc
// @Summary Upload requirement file
// @Tags Requirements
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Requirement ID"
// @Param file formData file true "Requirement file"
// @Param storeMode formData string false "blob or inline"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /me/requirements/{id}/files [post]
func (h *RequirementHandler) Upload(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var form dto.UploadRequirementFileRequest
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	upload, closeFn, err := openUpload(header)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFn()

	req, err := h.files.Upload(c.Request.Context(), claims.UserID, c.Param("id"), upload, form.StoreMode)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, req)
}

// DeleteFile godoc
// @Summary Remove requirement file
// @Tags Requirements
// @Produce json
// @Param id path string true "Requirement ID"
// @Param index path int true "File index"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/requirements/{id}/files/{index} [delete]
func (h *RequirementHandler) DeleteFile(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	index, ok := fileIndexParam(c)
	if !ok {
		return
	}
	req, err := h.files.DeleteFile(c.Request.Context(), claims.UserID, c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// FileURL godoc
// @Summary Resolve requirement file link
// @Tags Requirements
// @Produce json
// @Param id path string true "Requirement ID"
// @Param index path int true "File index"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/requirements/{id}/files/{index}/url [get]
func (h *RequirementHandler) FileURL(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	h.respondFileURL(c, claims.UserID, c.Param("id"))
}

// StudentFileURL godoc
// @Summary Resolve a student's requirement file link
// @Tags Requirements
// @Produce json
// @Param id path string true "Student ID"
// @Param requirementId path string true "Requirement ID"
// @Param index path int true "File index"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/requirements/{requirementId}/files/{index}/url [get]
func (h *RequirementHandler) StudentFileURL(c *gin.Context) {
	h.respondFileURL(c, c.Param("id"), c.Param("requirementId"))
}

func (h *RequirementHandler) respondFileURL(c *gin.Context, userID, requirementID string) {
	index, ok := fileIndexParam(c)
	if !ok {
		return
	}
	res, err := h.files.FileURL(c.Request.Context(), userID, requirementID, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func fileIndexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file index must be a non-negative integer"))
		return 0, false
	}
	return index, true
}

// openUpload turns a multipart header into a service upload. The caller must invoke the returned close func.
func openUpload(header *multipart.FileHeader) (service.FileUpload, func(), error) {
	file, err := header.Open()
	if err != nil {
		return service.FileUpload{}, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unable to read uploaded file")
	}
	upload := service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}
	return upload, func() { _ = file.Close() }, nil
}
