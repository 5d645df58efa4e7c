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

const timeLogColumns = `id, user_id, log_date, clock_in, clock_in_period, clock_out, clock_out_period, hours, task, created_at, updated_at`

// TimeLogRepository persists OJT time logs. Rows are keyed by (user_id, id).
type TimeLogRepository struct {
	db *sqlx.DB
}

// NewTimeLogRepository constructs the repository.
func NewTimeLogRepository(db *sqlx.DB) *TimeLogRepository {
	return &TimeLogRepository{db: db}
}

// GetByID returns one log or sql.ErrNoRows.
func (r *TimeLogRepository) GetByID(ctx context.Context, userID, id string) (*models.TimeLog, error) {
	query := `SELECT ` + timeLogColumns + ` FROM time_logs WHERE user_id = $1 AND id = $2`
	var entry models.TimeLog
	if err := r.db.GetContext(ctx, &entry, query, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get time log: %w", err)
	}
	return &entry, nil
}

// ListByUser returns the user's logs, newest date first.
func (r *TimeLogRepository) ListByUser(ctx context.Context, userID string) ([]models.TimeLog, error) {
	query := `SELECT ` + timeLogColumns + ` FROM time_logs WHERE user_id = $1 ORDER BY log_date DESC, created_at DESC`
	var entries []models.TimeLog
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list time logs: %w", err)
	}
	return entries, nil
}

// Create inserts a log. A clash on (user_id, id) returns ErrDuplicate.
func (r *TimeLogRepository) Create(ctx context.Context, entry *models.TimeLog) error {
	return insertTimeLog(ctx, r.db, entry)
}

// Replace swaps the log stored under oldID for entry, which may carry a new id.
func (r *TimeLogRepository) Replace(ctx context.Context, userID, oldID string, entry *models.TimeLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace time log tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM time_logs WHERE user_id = $1 AND id = $2`, userID, oldID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete replaced time log: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}
	if err := insertTimeLog(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace time log tx: %w", err)
	}
	return nil
}

// Delete removes one log or returns sql.ErrNoRows.
func (r *TimeLogRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_logs WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete time log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete time log rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func insertTimeLog(ctx context.Context, db sqlx.ExtContext, entry *models.TimeLog) error {
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}
	query := `INSERT INTO time_logs (` + timeLogColumns + `)
	VALUES (:id, :user_id, :log_date, :clock_in, :clock_in_period, :clock_out, :clock_out_period, :hours, :task, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, db, query, entry); err != nil {
		return mapWriteError("create time log", err)
	}
	return nil
}
