package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internquest-api/internal/models"
)

const profileColumns = `user_id, email, full_name, status, applied_company_id, final_company_id, requirements, adviser_id, updated_at`

// ProfileRepository persists student profiles and their requirement documents.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID returns the profile or sql.ErrNoRows.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM student_profiles WHERE user_id = $1`
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get student profile: %w", err)
	}
	return &profile, nil
}

// UpdateRequirements replaces the stored requirement document.
func (r *ProfileRepository) UpdateRequirements(ctx context.Context, userID string, payload []byte, updatedAt time.Time) error {
	const query = `UPDATE student_profiles SET requirements = $2, updated_at = $3 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, payload, updatedAt)
	if err != nil {
		return fmt.Errorf("update requirements: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update requirements rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PromoteToHired copies the applied company into the final company and flips status to hired.
// It reports false when the profile was already promoted or has no applied company.
func (r *ProfileRepository) PromoteToHired(ctx context.Context, userID string, at time.Time) (bool, error) {
	const query = `UPDATE student_profiles
	SET status = 'hired', final_company_id = applied_company_id, updated_at = $2
	WHERE user_id = $1 AND applied_company_id IS NOT NULL AND applied_company_id <> ''
	  AND (final_company_id IS NULL OR final_company_id = '')`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return false, fmt.Errorf("promote to hired: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("promote to hired rows: %w", err)
	}
	return affected > 0, nil
}

func insertProfile(ctx context.Context, db sqlx.ExtContext, profile *models.StudentProfile) error {
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	if profile.Status == "" {
		profile.Status = models.ProfileApplying
	}
	const query = `INSERT INTO student_profiles (user_id, email, full_name, status, applied_company_id, final_company_id, requirements, adviser_id, updated_at)
	VALUES (:user_id, :email, :full_name, :status, :applied_company_id, :final_company_id, :requirements, :adviser_id, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, profile); err != nil {
		return mapWriteError("create student profile", err)
	}
	return nil
}
