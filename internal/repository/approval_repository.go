package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internquest-api/internal/models"
)

// ApprovalRepository stores reviewer verdicts keyed by (student, requirement key).
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// ListByStudent returns every verdict recorded for the student, most recent first.
func (r *ApprovalRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ApprovalRecord, error) {
	const query = `SELECT id, student_id, requirement_key, status, reason, notes, reviewed_by, reviewed_at, updated_at
	FROM requirement_approvals WHERE student_id = $1 ORDER BY updated_at DESC`
	var records []models.ApprovalRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces the verdict for the record's key.
func (r *ApprovalRepository) Upsert(ctx context.Context, record *models.ApprovalRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requirement_approvals (id, student_id, requirement_key, status, reason, notes, reviewed_by, reviewed_at, updated_at)
	VALUES (:id, :student_id, :requirement_key, :status, :reason, :notes, :reviewed_by, :reviewed_at, :updated_at)
	ON CONFLICT (student_id, requirement_key)
	DO UPDATE SET status = EXCLUDED.status, reason = EXCLUDED.reason, notes = EXCLUDED.notes,
	              reviewed_by = EXCLUDED.reviewed_by, reviewed_at = EXCLUDED.reviewed_at, updated_at = EXCLUDED.updated_at
	RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("upsert approval: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&record.ID); err != nil {
			return fmt.Errorf("scan approval id: %w", err)
		}
	}
	return rows.Err()
}
