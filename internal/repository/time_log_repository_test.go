package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
)

func sampleTimeLog(id string) *models.TimeLog {
	return &models.TimeLog{
		ID:             id,
		UserID:         "u1",
		Date:           "2024-06-03",
		ClockIn:        "8:00",
		ClockInPeriod:  models.PeriodAM,
		ClockOut:       "5:00",
		ClockOutPeriod: models.PeriodPM,
		Hours:          9,
	}
}

func TestTimeLogRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	mock.ExpectExec("INSERT INTO time_logs").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), sampleTimeLog("2024-06-03_8-00"))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryReplaceRunsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM time_logs WHERE user_id = \\$1 AND id = \\$2").
		WithArgs("u1", "2024-06-03_8-00").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO time_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), "u1", "2024-06-03_8-00", sampleTimeLog("2024-06-03_9-00"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryReplaceMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM time_logs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "u1", "nope", sampleTimeLog("2024-06-03_9-00"))
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "log_date", "clock_in", "clock_in_period", "clock_out", "clock_out_period", "hours", "task", "created_at", "updated_at"}).
		AddRow("2024-06-03_8-00", "u1", "2024-06-03", "8:00", "AM", "5:00", "PM", 9, "onboarding", now, now)
	mock.ExpectQuery("FROM time_logs WHERE user_id = \\$1 ORDER BY log_date DESC").WithArgs("u1").WillReturnRows(rows)

	entries, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 9, entries[0].Hours)
	assert.Equal(t, models.PeriodPM, entries[0].ClockOutPeriod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeLogRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeLogRepository(db)

	mock.ExpectExec("DELETE FROM time_logs").WithArgs("u1", "x").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "u1", "x"), sql.ErrNoRows)
}
