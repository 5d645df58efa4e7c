package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/service"
)

type registerRepoStub struct {
	existing *models.User
	student  *models.StudentProfile
}

func (r *registerRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.existing != nil {
		return r.existing, nil
	}
	return nil, sql.ErrNoRows
}

func (r *registerRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (r *registerRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (r *registerRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (r *registerRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (r *registerRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return nil
}

func (r *registerRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}

func (r *registerRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func (r *registerRepoStub) CreateStudent(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	r.student = profile
	return nil
}

func (r *registerRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func newRegisterHandler(repo *registerRepoStub) *AuthHandler {
	return NewAuthHandler(service.NewAuthService(repo, nil, nil, service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Minute}))
}

func TestAuthHandlerRegister(t *testing.T) {
	repo := &registerRepoStub{}
	h := newRegisterHandler(repo)
	c, w := newTestContext(http.MethodPost, "/auth/register", []byte(`{"email":"Ana@Example.com","password":"interns2024","full_name":"Ana Cruz"}`))

	h.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.student)
	assert.Equal(t, "ana@example.com", repo.student.Email)
	assert.Equal(t, models.ProfileApplying, repo.student.Status)
	assert.Contains(t, w.Body.String(), `"STUDENT"`)
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	h := newRegisterHandler(&registerRepoStub{existing: &models.User{ID: "u1"}})
	c, w := newTestContext(http.MethodPost, "/auth/register", []byte(`{"email":"ana@example.com","password":"interns2024","full_name":"Ana Cruz"}`))

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlerRegisterBadPayload(t *testing.T) {
	h := newRegisterHandler(&registerRepoStub{})
	c, w := newTestContext(http.MethodPost, "/auth/register", []byte(`{"email":`))

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
