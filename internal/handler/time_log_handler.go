package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/pkg/response"
)

type timeLogService interface {
	Calculate(req dto.CalculateHoursRequest) (*dto.CalculateHoursResponse, error)
	Save(ctx context.Context, userID string, req dto.SaveTimeLogRequest) (*models.TimeLog, error)
	List(ctx context.Context, userID string) ([]models.TimeLog, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string) (*dto.TimeLogSummary, error)
	Export(ctx context.Context, userID, format string) (*dto.ExportResponse, error)
}

// TimeLogHandler exposes OJT hour logging.
type TimeLogHandler struct {
	service timeLogService
}

// NewTimeLogHandler constructs the handler.
func NewTimeLogHandler(svc timeLogService) *TimeLogHandler {
	return &TimeLogHandler{service: svc}
}

// List godoc
// @Summary List own time logs
// @Tags TimeLogs
// @Produce json
// @Param page query int false "Page, all logs when omitted"
// @Param page_size query int false "Page size (default 20)"
// @Success 200 {object} response.Envelope
// @Router /me/time-logs [get]
func (h *TimeLogHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	logs, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("page") == "" {
		response.JSON(c, http.StatusOK, logs, nil)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := models.NewPagination(page, size, 20, 200, len(logs))
	start, end := pagination.Bounds()
	response.JSON(c, http.StatusOK, logs[start:end], &pagination)
}

// Save godoc
// @Summary Create or edit a time log
// @Tags TimeLogs
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimeLogRequest true "Time log"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/time-logs [post]
func (h *TimeLogHandler) Save(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.SaveTimeLogRequest
	if !bindJSON(c, &req, "invalid time log payload") {
		return
	}
	entry, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if req.EditingID != "" {
		status = http.StatusOK
	}
	response.JSON(c, status, entry, nil)
}

// Delete godoc
// @Summary Delete a time log
// @Tags TimeLogs
// @Param id path string true "Time log ID"
// @Success 204
// @Router /me/time-logs/{id} [delete]
func (h *TimeLogHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Logged hours against the OJT target
// @Tags TimeLogs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/time-logs/summary [get]
func (h *TimeLogHandler) Summary(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export own time logs
// @Tags TimeLogs
// @Produce json
// @Param format query string false "xlsx, csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /me/time-logs/export [post]
func (h *TimeLogHandler) Export(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	res, err := h.service.Export(c.Request.Context(), claims.UserID, c.DefaultQuery("format", "xlsx"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Calculate godoc
// @Summary Preview hours for a clock pair
// @Tags TimeLogs
// @Accept json
// @Produce json
// @Param payload body dto.CalculateHoursRequest true "Clock pair"
// @Success 200 {object} response.Envelope
// @Router /time-logs/calculate [post]
func (h *TimeLogHandler) Calculate(c *gin.Context) {
	var req dto.CalculateHoursRequest
	if !bindJSON(c, &req, "invalid calculation payload") {
		return
	}
	res, err := h.service.Calculate(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
