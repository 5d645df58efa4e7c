package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
)

func TestApprovalRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "requirement_key", "status", "reason", "notes", "reviewed_by", "reviewed_at", "updated_at"}).
		AddRow("a1", "s1", "3", "denied", "blurry scan", nil, "adv1", now, now).
		AddRow("a2", "s1", "Medical Certificate", "accepted", nil, nil, "adv1", now, now)
	mock.ExpectQuery("FROM requirement_approvals WHERE student_id = \\$1 ORDER BY updated_at DESC").
		WithArgs("s1").
		WillReturnRows(rows)

	records, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "3", records[0].Key)
	require.NotNil(t, records[0].Reason)
	assert.Equal(t, "blurry scan", *records[0].Reason)
	assert.Nil(t, records[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRepositoryUpsertReturnsStoredID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectQuery("(?s)INSERT INTO requirement_approvals .*ON CONFLICT \\(student_id, requirement_key\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))

	record := &models.ApprovalRecord{StudentID: "s1", Key: "3", Status: "pending"}
	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.Equal(t, "existing-id", record.ID)
	assert.False(t, record.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
