package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/pkg/response"
)

type approvalReviewer interface {
	Review(ctx context.Context, studentID string, req dto.ReviewRequirementRequest, actor *models.JWTClaims) (*models.ApprovalRecord, error)
	List(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.ApprovalRecord, error)
}

// ApprovalHandler exposes adviser verdicts on student requirements.
type ApprovalHandler struct {
	service approvalReviewer
}

// NewApprovalHandler constructs the handler.
func NewApprovalHandler(svc approvalReviewer) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

// List godoc
// @Summary List approvals of a student
// @Tags Approvals
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/approvals [get]
func (h *ApprovalHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Review godoc
// @Summary Record a verdict
// @Description Approve or reject one requirement of a student
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.ReviewRequirementRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id}/approvals [put]
func (h *ApprovalHandler) Review(c *gin.Context) {
	var req dto.ReviewRequirementRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	record, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
