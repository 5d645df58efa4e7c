package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type approvalReviewerMock struct {
	reviewed  *dto.ReviewRequirementRequest
	studentID string
	err       error
}

func (m *approvalReviewerMock) Review(ctx context.Context, studentID string, req dto.ReviewRequirementRequest, actor *models.JWTClaims) (*models.ApprovalRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.reviewed = &req
	m.studentID = studentID
	return &models.ApprovalRecord{ID: "a1", StudentID: studentID, Key: req.RequirementKey, Status: req.Status}, nil
}

func (m *approvalReviewerMock) List(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.ApprovalRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.ApprovalRecord{{ID: "a1", StudentID: studentID, Key: "resume", Status: "approved"}}, nil
}

func TestApprovalHandlerReview(t *testing.T) {
	svc := &approvalReviewerMock{}
	h := NewApprovalHandler(svc)
	body, _ := json.Marshal(dto.ReviewRequirementRequest{RequirementKey: "resume", Status: "approved"})
	c, w := newTestContext(http.MethodPut, "/students/s1/approvals", body)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	asUser(c, "adviser-1", models.RoleAdviser)

	h.Review(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.reviewed)
	assert.Equal(t, "s1", svc.studentID)
	assert.Equal(t, "resume", svc.reviewed.RequirementKey)
}

func TestApprovalHandlerReviewBadJSON(t *testing.T) {
	h := NewApprovalHandler(&approvalReviewerMock{})
	c, w := newTestContext(http.MethodPut, "/students/s1/approvals", []byte("{"))
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	h.Review(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApprovalHandlerListForbidden(t *testing.T) {
	h := NewApprovalHandler(&approvalReviewerMock{err: appErrors.ErrForbidden})
	c, w := newTestContext(http.MethodGet, "/students/s2/approvals", nil)
	c.Params = gin.Params{{Key: "id", Value: "s2"}}
	asUser(c, "s1", models.RoleStudent)

	h.List(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestApprovalHandlerList(t *testing.T) {
	h := NewApprovalHandler(&approvalReviewerMock{})
	c, w := newTestContext(http.MethodGet, "/students/s1/approvals", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	asUser(c, "s1", models.RoleStudent)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"resume"`)
}
