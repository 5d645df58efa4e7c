package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRoleValidAndCanReview(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleStudent.Valid())
	assert.False(t, UserRole("GUEST").Valid())

	assert.True(t, RoleAdviser.CanReview())
	assert.True(t, RoleAdmin.CanReview())
	assert.False(t, RoleStudent.CanReview())
}

func TestUserClaims(t *testing.T) {
	u := &User{ID: "u1", Email: "a@b.c", FullName: "Ana", Role: RoleStudent}
	claims := u.Claims()
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.Equal(t, "Ana", claims.FullName)
}

func TestPaginationBounds(t *testing.T) {
	p := NewPagination(2, 10, 20, 200, 25)
	start, end := p.Bounds()
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)

	p = NewPagination(4, 10, 20, 200, 25)
	start, end = p.Bounds()
	assert.Equal(t, 25, start)
	assert.Equal(t, 25, end)

	p = NewPagination(0, 500, 20, 200, 5)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PageSize)
	start, end = p.Bounds()
	assert.Equal(t, 0, start)
	assert.Equal(t, 5, end)
}
