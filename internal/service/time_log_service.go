package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/internal/repository"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/export"
)

type timeLogStore interface {
	GetByID(ctx context.Context, userID, id string) (*models.TimeLog, error)
	ListByUser(ctx context.Context, userID string) ([]models.TimeLog, error)
	Create(ctx context.Context, log *models.TimeLog) error
	Replace(ctx context.Context, userID, oldID string, log *models.TimeLog) error
	Delete(ctx context.Context, userID, id string) error
}

type exportSweeper interface {
	CleanupOlderThan(ctx context.Context, prefix string, ttl time.Duration) ([]string, error)
}

// Export formats supported for time logs.
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

var (
	timeLogExportHeaders = []string{"Date", "Clock In", "Clock Out", "Hours", "Task"}
	timeLogExportWeights = []float64{1.2, 1, 1, 0.7, 3}
)

// TimeLogServiceConfig holds hour targets and export retention.
type TimeLogServiceConfig struct {
	RequiredHours int
	ExportTTL     time.Duration
}

// TimeLogService manages daily OJT time logs and their exports.
type TimeLogService struct {
	repo      timeLogStore
	blobs     blobStore
	sweeper   exportSweeper
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimeLogServiceConfig
	now       func() time.Time
}

// NewTimeLogService constructs the service.
func NewTimeLogService(repo timeLogStore, blobs blobStore, sweeper exportSweeper, validate *validator.Validate, logger *zap.Logger, cfg TimeLogServiceConfig) *TimeLogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.RequiredHours <= 0 {
		cfg.RequiredHours = 486
	}
	if cfg.ExportTTL <= 0 {
		cfg.ExportTTL = 24 * time.Hour
	}
	return &TimeLogService{repo: repo, blobs: blobs, sweeper: sweeper, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Calculate previews the hours for a clock pair without saving anything.
func (s *TimeLogService) Calculate(req dto.CalculateHoursRequest) (*dto.CalculateHoursResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "clock in and clock out are required")
	}
	hours, err := CalculateHours(req.ClockIn, req.ClockInPeriod, req.ClockOut, req.ClockOutPeriod)
	if err != nil {
		return nil, err
	}
	return &dto.CalculateHoursResponse{Hours: hours}, nil
}

// Save creates a log, or replaces req.EditingID. A second log for the same date and clock-in is rejected.
func (s *TimeLogService) Save(ctx context.Context, userID string, req dto.SaveTimeLogRequest) (*models.TimeLog, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Task = strings.TrimSpace(req.Task)
	req.EditingID = strings.TrimSpace(req.EditingID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "date, clock in and clock out are required")
	}
	if !datePattern.MatchString(req.Date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is not a valid calendar day")
	}

	raw, err := CalculateHours(req.ClockIn, req.ClockInPeriod, req.ClockOut, req.ClockOutPeriod)
	if err != nil {
		return nil, err
	}
	hours, _ := strconv.Atoi(raw)

	now := s.now().UTC()
	entry := &models.TimeLog{
		ID:             TimeLogID(req.Date, req.ClockIn),
		UserID:         userID,
		Date:           req.Date,
		ClockIn:        strings.TrimSpace(req.ClockIn),
		ClockInPeriod:  normalizePeriod(req.ClockInPeriod),
		ClockOut:       strings.TrimSpace(req.ClockOut),
		ClockOutPeriod: normalizePeriod(req.ClockOutPeriod),
		Hours:          hours,
		Task:           req.Task,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	existing, err := s.repo.GetByID(ctx, userID, entry.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time log")
	}
	if existing != nil && existing.ID != req.EditingID {
		return nil, appErrors.ErrDuplicateTimeLog
	}

	if req.EditingID == "" {
		if err := s.repo.Create(ctx, entry); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, appErrors.ErrDuplicateTimeLog
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save time log")
		}
		return entry, nil
	}

	previous, err := s.repo.GetByID(ctx, userID, req.EditingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time log")
	}
	entry.CreatedAt = previous.CreatedAt
	if err := s.repo.Replace(ctx, userID, req.EditingID, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicateTimeLog
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time log")
	}
	return entry, nil
}

// List returns the user's logs, newest first.
func (s *TimeLogService) List(ctx context.Context, userID string) ([]models.TimeLog, error) {
	logs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time logs")
	}
	if logs == nil {
		logs = []models.TimeLog{}
	}
	return logs, nil
}

// Delete removes one log.
func (s *TimeLogService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time log not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time log")
	}
	return nil
}

// Summary totals logged hours against the required OJT hours.
func (s *TimeLogService) Summary(ctx context.Context, userID string) (*dto.TimeLogSummary, error) {
	logs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(logs, s.cfg.RequiredHours), nil
}

func summarize(logs []models.TimeLog, required int) *dto.TimeLogSummary {
	summary := &dto.TimeLogSummary{Entries: len(logs), RequiredHours: required}
	for _, l := range logs {
		summary.TotalHours += l.Hours
	}
	if remaining := required - summary.TotalHours; remaining > 0 {
		summary.RemainingHours = remaining
	}
	if required > 0 {
		pct := float64(summary.TotalHours) / float64(required) * 100
		if pct > 100 {
			pct = 100
		}
		summary.Percentage = float64(int(pct*100+0.5)) / 100
	}
	return summary
}

// Export renders the user's logs, stores the file under exports/ and returns a signed link.
func (s *TimeLogService) Export(ctx context.Context, userID, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatXLSX
	}
	logs, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: timeLogExportHeaders, Weights: timeLogExportWeights}
	total := 0
	for _, l := range logs {
		total += l.Hours
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":      l.Date,
			"Clock In":  fmt.Sprintf("%s %s", l.ClockIn, l.ClockInPeriod),
			"Clock Out": fmt.Sprintf("%s %s", l.ClockOut, l.ClockOutPeriod),
			"Hours":     strconv.Itoa(l.Hours),
			"Task":      l.Task,
		})
	}

	dataset.Footer = map[string]string{"Date": "Total", "Hours": strconv.Itoa(total)}

	var (
		content     []byte
		contentType string
	)
	switch format {
	case ExportFormatXLSX:
		content, err = export.NewXLSXExporter("Time Logs").Render(dataset)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatCSV:
		content, err = export.NewCSVExporter().Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		content, err = export.NewPDFExporter().Render(dataset, "OJT Time Logs")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be xlsx, csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	if s.blobs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
	}

	now := s.now().UTC()
	objectPath := path.Join("exports", userID, fmt.Sprintf("timelogs_%d_%s.%s", now.Unix(), randomSuffix(), format))
	if err := s.blobs.Put(ctx, objectPath, bytes.NewReader(content), contentType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	url, expiresAt, err := s.blobs.SignedURL(ctx, userID, objectPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}
	return &dto.ExportResponse{Format: format, URL: url, ExpiresAt: expiresAt}, nil
}

// CleanupExports removes exports older than the configured TTL. It is run by the scheduler.
func (s *TimeLogService) CleanupExports(ctx context.Context) error {
	if s.sweeper == nil {
		return nil
	}
	removed, err := s.sweeper.CleanupOlderThan(ctx, "exports", s.cfg.ExportTTL)
	if err != nil {
		return fmt.Errorf("cleanup exports: %w", err)
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return nil
}
