package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internquest-api/internal/models"
)

// ChecklistDocumentRepository tracks the generated completion summary per student.
type ChecklistDocumentRepository struct {
	db *sqlx.DB
}

// NewChecklistDocumentRepository constructs the repository.
func NewChecklistDocumentRepository(db *sqlx.DB) *ChecklistDocumentRepository {
	return &ChecklistDocumentRepository{db: db}
}

// GetByUserID returns the document row or sql.ErrNoRows.
func (r *ChecklistDocumentRepository) GetByUserID(ctx context.Context, userID string) (*models.ChecklistDocument, error) {
	const query = `SELECT user_id, storage_path, generated_at, source_reviewed_at_ms FROM checklist_documents WHERE user_id = $1`
	var doc models.ChecklistDocument
	if err := r.db.GetContext(ctx, &doc, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get checklist document: %w", err)
	}
	return &doc, nil
}

// Upsert stores the document, never moving the watermark backwards.
func (r *ChecklistDocumentRepository) Upsert(ctx context.Context, doc *models.ChecklistDocument) error {
	const query = `INSERT INTO checklist_documents (user_id, storage_path, generated_at, source_reviewed_at_ms)
	VALUES (:user_id, :storage_path, :generated_at, :source_reviewed_at_ms)
	ON CONFLICT (user_id)
	DO UPDATE SET storage_path = EXCLUDED.storage_path, generated_at = EXCLUDED.generated_at,
	              source_reviewed_at_ms = EXCLUDED.source_reviewed_at_ms
	WHERE checklist_documents.source_reviewed_at_ms <= EXCLUDED.source_reviewed_at_ms`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("upsert checklist document: %w", err)
	}
	return nil
}
