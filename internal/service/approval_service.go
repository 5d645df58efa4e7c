package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type approvalStore interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ApprovalRecord, error)
	Upsert(ctx context.Context, record *models.ApprovalRecord) error
}

type profileReader interface {
	GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

// ApprovalService records adviser verdicts that reconciliation overlays on requirements.
type ApprovalService struct {
	repo      approvalStore
	profiles    profileReader
	audit       auditLogger
	cache       *CacheService
	validator   *validator.Validate
	definitions []models.RequirementDefinition
	logger      *zap.Logger
	now         func() time.Time
}

// NewApprovalService constructs the service.
func NewApprovalService(repo approvalStore, profiles profileReader, audit auditLogger, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ApprovalService{
		repo:        repo,
		profiles:    profiles,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		definitions: models.DefaultRequirementDefinitions(),
		logger:      logger,
		now:         time.Now,
	}
}

// Review upserts the verdict for one requirement of a student. Title keys are stored under the
// canonical requirement id so the upload reset and later verdicts share one record.
func (s *ApprovalService) Review(ctx context.Context, studentID string, req dto.ReviewRequirementRequest, actor *models.JWTClaims) (*models.ApprovalRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.CanReview() {
		return nil, appErrors.ErrForbidden
	}
	req.RequirementKey = strings.TrimSpace(req.RequirementKey)
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.Reason = strings.TrimSpace(req.Reason)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid review payload")
	}
	if MapApprovalStatus(req.Status) == models.ApprovalRejected && req.Reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason is required when rejecting")
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	req.RequirementKey = CanonicalRequirementKey(s.definitions, req.RequirementKey)

	now := s.now().UTC()
	reviewer := actor.UserID
	record := &models.ApprovalRecord{
		StudentID:  studentID,
		Key:        req.RequirementKey,
		Status:     req.Status,
		Reason:     optionalString(req.Reason),
		Notes:      optionalString(req.Notes),
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
		UpdatedAt:  now,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save approval")
	}

	_ = s.cache.Invalidate(ctx, checklistCacheKey(studentID))
	emitAudit(ctx, s.audit, s.logger, "approval-service", &models.AuditLog{
		UserID:     &reviewer,
		Action:     models.AuditActionApprovalReview,
		Resource:   "approval",
		ResourceID: &record.ID,
		NewValues:  []byte(fmt.Sprintf(`{"student_id":%q,"key":%q,"status":%q}`, studentID, record.Key, record.Status)),
	})
	return record, nil
}

// List returns approval records of a student. Students may only read their own.
func (s *ApprovalService) List(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.ApprovalRecord, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.CanReview() && actor.UserID != studentID {
		return nil, appErrors.ErrForbidden
	}
	records, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approvals")
	}
	if records == nil {
		records = []models.ApprovalRecord{}
	}
	return records, nil
}

func (s *ApprovalService) ensureStudent(ctx context.Context, studentID string) error {
	if s.profiles == nil {
		return nil
	}
	if _, err := s.profiles.GetByUserID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
