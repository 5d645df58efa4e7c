package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/service"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type templateServiceMock struct {
	created    *dto.CreateTemplateRequest
	fileBody   string
	hadFile    bool
	listedKind models.TemplateKind
	updated    *dto.UpdateTemplateRequest
	deletedID  string
	err        error
}

func (m *templateServiceMock) Create(ctx context.Context, meta dto.CreateTemplateRequest, upload *service.FileUpload, actor *models.JWTClaims) (*models.TemplateDoc, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &meta
	if upload != nil {
		m.hadFile = true
		raw, _ := io.ReadAll(upload.Content)
		m.fileBody = string(raw)
	}
	return &models.TemplateDoc{ID: "tpl-1", Kind: meta.Kind, Name: meta.Name}, nil
}

func (m *templateServiceMock) List(ctx context.Context, kind models.TemplateKind) ([]models.TemplateDoc, error) {
	m.listedKind = kind
	return []models.TemplateDoc{{ID: "tpl-1", Kind: models.TemplateKindHelpdesk, Name: "Leave form"}}, nil
}

func (m *templateServiceMock) Get(ctx context.Context, id string) (*models.TemplateDoc, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.TemplateDoc{ID: id}, nil
}

func (m *templateServiceMock) Update(ctx context.Context, id string, req dto.UpdateTemplateRequest, actor *models.JWTClaims) (*models.TemplateDoc, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updated = &req
	return &models.TemplateDoc{ID: id, Name: *req.Name}, nil
}

func (m *templateServiceMock) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if m.err != nil {
		return m.err
	}
	m.deletedID = id
	return nil
}

func TestTemplateHandlerCreateWithFile(t *testing.T) {
	svc := &templateServiceMock{}
	h := NewTemplateHandler(svc)
	fields := map[string]string{"kind": "requirement", "name": "MOA"}
	c, w := newMultipartContext(t, "/templates", fields, "moa.pdf", []byte("%PDF-1.4 moa"))
	asUser(c, "admin-1", models.RoleAdmin)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, models.TemplateKindRequirement, svc.created.Kind)
	assert.Equal(t, "MOA", svc.created.Name)
	assert.True(t, svc.hadFile)
	assert.Equal(t, "%PDF-1.4 moa", svc.fileBody)
}

func TestTemplateHandlerCreateWithoutFile(t *testing.T) {
	svc := &templateServiceMock{}
	h := NewTemplateHandler(svc)
	fields := map[string]string{"kind": "helpdesk", "name": "Leave form", "body": "Dear adviser"}
	c, w := newMultipartContext(t, "/templates", fields, "", nil)
	asUser(c, "admin-1", models.RoleAdmin)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, svc.hadFile)
	require.NotNil(t, svc.created.Body)
	assert.Equal(t, "Dear adviser", *svc.created.Body)
}

func TestTemplateHandlerCreateForbidden(t *testing.T) {
	h := NewTemplateHandler(&templateServiceMock{err: appErrors.ErrForbidden})
	c, w := newMultipartContext(t, "/templates", map[string]string{"kind": "helpdesk", "name": "x"}, "", nil)
	asUser(c, "s1", models.RoleStudent)

	h.Create(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTemplateHandlerListKind(t *testing.T) {
	svc := &templateServiceMock{}
	h := NewTemplateHandler(svc)

	c, w := newTestContext(http.MethodGet, "/templates?kind=HelpDesk", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TemplateKindHelpdesk, svc.listedKind)

	c, w = newTestContext(http.MethodGet, "/templates?kind=memo", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTemplateHandlerGetNotFound(t *testing.T) {
	h := NewTemplateHandler(&templateServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "template not found")})
	c, w := newTestContext(http.MethodGet, "/templates/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateHandlerUpdateAndDelete(t *testing.T) {
	svc := &templateServiceMock{}
	h := NewTemplateHandler(svc)

	c, w := newTestContext(http.MethodPut, "/templates/tpl-1", []byte(`{"name":"MOA 2024"}`))
	c.Params = gin.Params{{Key: "id", Value: "tpl-1"}}
	asUser(c, "admin-1", models.RoleAdmin)
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "MOA 2024"))

	c, w = newTestContext(http.MethodDelete, "/templates/tpl-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "tpl-1"}}
	asUser(c, "admin-1", models.RoleAdmin)
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tpl-1", svc.deletedID)
}
