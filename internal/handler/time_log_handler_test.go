package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type timeLogServiceMock struct {
	saved        *dto.SaveTimeLogRequest
	saveErr      error
	exportFormat string
	deletedID    string
}

func (m *timeLogServiceMock) Calculate(req dto.CalculateHoursRequest) (*dto.CalculateHoursResponse, error) {
	return &dto.CalculateHoursResponse{Hours: "9"}, nil
}

func (m *timeLogServiceMock) Save(ctx context.Context, userID string, req dto.SaveTimeLogRequest) (*models.TimeLog, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.saved = &req
	return &models.TimeLog{ID: "2024-06-03_8:00", UserID: userID, Date: req.Date, Hours: 9}, nil
}

func (m *timeLogServiceMock) List(ctx context.Context, userID string) ([]models.TimeLog, error) {
	return []models.TimeLog{
		{ID: "2024-06-05_8-00", UserID: userID, Hours: 9},
		{ID: "2024-06-04_8-00", UserID: userID, Hours: 8},
		{ID: "2024-06-03_8-00", UserID: userID, Hours: 9},
	}, nil
}

func (m *timeLogServiceMock) Delete(ctx context.Context, userID, id string) error {
	m.deletedID = id
	return nil
}

func (m *timeLogServiceMock) Summary(ctx context.Context, userID string) (*dto.TimeLogSummary, error) {
	return &dto.TimeLogSummary{TotalHours: 9, Entries: 1, RequiredHours: 486, RemainingHours: 477, Percentage: 1.85}, nil
}

func (m *timeLogServiceMock) Export(ctx context.Context, userID, format string) (*dto.ExportResponse, error) {
	m.exportFormat = format
	return &dto.ExportResponse{Format: format, URL: "https://files.example.com/e", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func saveBody(editingID string) []byte {
	body, _ := json.Marshal(dto.SaveTimeLogRequest{
		Date: "2024-06-03", ClockIn: "8:00", ClockInPeriod: models.PeriodAM,
		ClockOut: "5:00", ClockOutPeriod: models.PeriodPM, Task: "onboarding", EditingID: editingID,
	})
	return body
}

func TestTimeLogHandlerSaveCreatesAndEdits(t *testing.T) {
	svc := &timeLogServiceMock{}
	h := NewTimeLogHandler(svc)

	c, w := newTestContext(http.MethodPost, "/me/time-logs", saveBody(""))
	asUser(c, "u1", models.RoleStudent)
	h.Save(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "onboarding", svc.saved.Task)

	c, w = newTestContext(http.MethodPost, "/me/time-logs", saveBody("2024-06-03_8:00"))
	asUser(c, "u1", models.RoleStudent)
	h.Save(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimeLogHandlerSaveDuplicate(t *testing.T) {
	h := NewTimeLogHandler(&timeLogServiceMock{saveErr: appErrors.ErrDuplicateTimeLog})
	c, w := newTestContext(http.MethodPost, "/me/time-logs", saveBody(""))
	asUser(c, "u1", models.RoleStudent)

	h.Save(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE_TIME_LOG")
}

func TestTimeLogHandlerRequiresAuth(t *testing.T) {
	h := NewTimeLogHandler(&timeLogServiceMock{})
	for _, fn := range []gin.HandlerFunc{h.List, h.Save, h.Delete, h.Summary, h.Export} {
		c, w := newTestContext(http.MethodGet, "/me/time-logs", nil)
		fn(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestTimeLogHandlerExportDefaultsToXLSX(t *testing.T) {
	svc := &timeLogServiceMock{}
	h := NewTimeLogHandler(svc)

	c, w := newTestContext(http.MethodPost, "/me/time-logs/export", nil)
	asUser(c, "u1", models.RoleStudent)
	h.Export(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "xlsx", svc.exportFormat)

	c, _ = newTestContext(http.MethodPost, "/me/time-logs/export?format=csv", nil)
	asUser(c, "u1", models.RoleStudent)
	h.Export(c)
	assert.Equal(t, "csv", svc.exportFormat)
}

func TestTimeLogHandlerDeleteAndSummary(t *testing.T) {
	svc := &timeLogServiceMock{}
	h := NewTimeLogHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/me/time-logs/2024-06-03_8:00", nil)
	c.Params = gin.Params{{Key: "id", Value: "2024-06-03_8:00"}}
	asUser(c, "u1", models.RoleStudent)
	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2024-06-03_8:00", svc.deletedID)

	c, w = newTestContext(http.MethodGet, "/me/time-logs/summary", nil)
	asUser(c, "u1", models.RoleStudent)
	h.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remainingHours":477`)
}

func TestTimeLogHandlerCalculate(t *testing.T) {
	h := NewTimeLogHandler(&timeLogServiceMock{})
	c, w := newTestContext(http.MethodPost, "/time-logs/calculate", []byte(`{"clockIn":"8:00","clockInPeriod":"AM","clockOut":"5:00","clockOutPeriod":"PM"}`))

	h.Calculate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hours":"9"}`, string(decodeEnvelope(t, w)["data"]))
}

func TestTimeLogHandlerListPagination(t *testing.T) {
	h := NewTimeLogHandler(&timeLogServiceMock{})

	c, w := newTestContext(http.MethodGet, "/me/time-logs", nil)
	asUser(c, "u1", models.RoleStudent)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	_, paginated := decodeEnvelope(t, w)["pagination"]
	assert.False(t, paginated)

	c, w = newTestContext(http.MethodGet, "/me/time-logs?page=2&page_size=2", nil)
	asUser(c, "u1", models.RoleStudent)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.JSONEq(t, `{"page":2,"page_size":2,"total_count":3}`, string(envelope["pagination"]))
	var logs []models.TimeLog
	require.NoError(t, json.Unmarshal(envelope["data"], &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "2024-06-03_8-00", logs[0].ID)

	c, w = newTestContext(http.MethodGet, "/me/time-logs?page=9", nil)
	asUser(c, "u1", models.RoleStudent)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w)["data"]))
}
