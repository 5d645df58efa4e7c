package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internquest-api/internal/models"
)

const templateColumns = `id, kind, name, description, body, url, storage_path, content_type, size_bytes, uploaded_by, uploaded_at, updated_at, deleted_at`

// TemplateRepository handles template metadata persistence.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create stores a template row.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.TemplateDoc) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.UploadedAt.IsZero() {
		tpl.UploadedAt = time.Now().UTC()
	}
	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = tpl.UploadedAt
	}
	query := `INSERT INTO templates (` + templateColumns + `)
	VALUES (:id, :kind, :name, :description, :body, :url, :storage_path, :content_type, :size_bytes, :uploaded_by, :uploaded_at, :updated_at, :deleted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetByID retrieves one template row, deleted or not.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.TemplateDoc, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = $1`
	var tpl models.TemplateDoc
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &tpl, nil
}

// List returns templates applying filters and excluding deleted rows by default.
func (r *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateDoc, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + templateColumns + ` FROM templates`)
	args := make([]interface{}, 0, 1)
	conditions := make([]string, 0, 2)

	if !filter.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	var items []models.TemplateDoc
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return items, nil
}

// Update writes mutable metadata fields.
func (r *TemplateRepository) Update(ctx context.Context, tpl *models.TemplateDoc) error {
	const query = `UPDATE templates SET name = :name, description = :description, body = :body, updated_at = :updated_at
	WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, tpl)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks the template deleted.
func (r *TemplateRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE templates SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete template: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
