package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleAdviser UserRole = "ADVISER"
	RoleStudent UserRole = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleAdviser, RoleStudent:
		return true
	}
	return false
}

// CanReview reports whether the role may read other students' checklists and record verdicts.
func (r UserRole) CanReview() bool {
	return r == RoleAdmin || r == RoleAdviser
}

// User is an account row. Students additionally own a StudentProfile keyed by the same id.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Claims builds the JWT claim set for the user.
func (u *User) Claims() JWTClaims {
	return JWTClaims{UserID: u.ID, Role: u.Role, Email: u.Email, FullName: u.FullName}
}
