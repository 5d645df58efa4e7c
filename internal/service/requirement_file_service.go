package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/pkg/config"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type approvalWriter interface {
	Upsert(ctx context.Context, record *models.ApprovalRecord) error
}

type templateLookup interface {
	Get(ctx context.Context, id string) (*models.TemplateDoc, error)
	ResolveURL(ctx context.Context, tpl *models.TemplateDoc) (string, error)
}

// RequirementFileServiceConfig holds upload limits and storage mode defaults.
type RequirementFileServiceConfig struct {
	MaxFileSize      int64
	AllowedMIMEs     []string
	InlineThreshold  int64
	DefaultStoreMode string
}

// RequirementFileService handles student uploads and removals on requirement items.
type RequirementFileService struct {
	profiles    profileStore
	approvals   approvalWriter
	templates   templateLookup
	blobs       blobStore
	diagnostics diagnosticRecorder
	audit       auditLogger
	cache       *CacheService
	metrics     *MetricsService
	locks       *KeyedMutex
	policy      UploadPolicy
	definitions []models.RequirementDefinition
	logger      *zap.Logger
	cfg         RequirementFileServiceConfig
	now         func() time.Time
}

// NewRequirementFileService constructs the service with defaults.
func NewRequirementFileService(
	profiles profileStore,
	approvals approvalWriter,
	templates templateLookup,
	blobs blobStore,
	diagnostics diagnosticRecorder,
	audit auditLogger,
	cache *CacheService,
	metrics *MetricsService,
	locks *KeyedMutex,
	logger *zap.Logger,
	cfg RequirementFileServiceConfig,
) *RequirementFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if cfg.InlineThreshold <= 0 {
		cfg.InlineThreshold = 700 * 1024
	}
	if cfg.DefaultStoreMode != config.StoreModeInline {
		cfg.DefaultStoreMode = config.StoreModeBlob
	}
	policy := NewUploadPolicy(cfg.MaxFileSize, cfg.AllowedMIMEs)
	cfg.MaxFileSize = policy.MaxFileSize
	return &RequirementFileService{
		profiles:    profiles,
		approvals:   approvals,
		templates:   templates,
		blobs:       blobs,
		diagnostics: diagnostics,
		audit:       audit,
		cache:       cache,
		metrics:     metrics,
		locks:       locks,
		policy:      policy,
		definitions: models.DefaultRequirementDefinitions(),
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Upload attaches a student file to a requirement and marks it for review.
func (s *RequirementFileService) Upload(ctx context.Context, userID, requirementID string, upload FileUpload, storeMode string) (*models.Requirement, error) {
	req, err := s.upload(ctx, userID, requirementID, upload, storeMode)
	result := "stored"
	if err != nil {
		result = strings.ToLower(appErrors.FromError(err).Code)
	}
	s.metrics.RecordUpload(result)
	return req, err
}

func (s *RequirementFileService) upload(ctx context.Context, userID, requirementID string, upload FileUpload, storeMode string) (*models.Requirement, error) {
	mimeType, err := s.policy.Validate(upload)
	if err != nil {
		return nil, err
	}
	mode := s.storeMode(storeMode, upload.Size)

	unlock := s.locks.Lock(userID)
	defer unlock()

	reqs, err := s.loadRequirements(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOfRequirement(reqs, requirementID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
	}
	if reqs[idx].AdminProvided {
		return nil, appErrors.ErrAdminProvided
	}

	now := s.now().UTC()
	file := models.UploadedFile{
		Name:        uploadName(upload.Filename, mimeType),
		ContentType: mimeType,
		Size:        upload.Size,
		UploadedAt:  &now,
	}

	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	var objectPath string
	if mode == config.StoreModeInline {
		raw, err := io.ReadAll(io.LimitReader(upload.Content, s.cfg.InlineThreshold+1))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
		}
		file.DataURI = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw)
	} else {
		if s.blobs == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
		}
		objectPath = path.Join("requirements", userID, slugify(reqs[idx].Title), objectName(upload.Filename, mimeType, now))
		if err := s.blobs.Put(ctx, objectPath, upload.Content, mimeType); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store requirement file")
		}
		file.StoragePath = objectPath
	}

	req := &reqs[idx]
	req.UploadedFiles = append(req.UploadedFiles, file)
	req.Status = models.RequirementCompleted
	req.ApprovalStatus = models.ApprovalPendingReview
	req.RejectionReason = ""

	if err := s.persist(ctx, userID, reqs, now); err != nil {
		if objectPath != "" {
			if delErr := s.blobs.Delete(ctx, objectPath); delErr != nil {
				s.logger.Warn("failed to roll back requirement file", zap.String("path", objectPath), zap.Error(delErr))
			}
		}
		return nil, err
	}

	// A new submission supersedes the previous verdict; otherwise a stale rejection would clear it on the next load.
	if s.approvals != nil {
		record := &models.ApprovalRecord{StudentID: userID, Key: req.ID, Status: "pending", UpdatedAt: now}
		if err := s.approvals.Upsert(ctx, record); err != nil {
			s.logger.Warn("failed to reset approval", zap.String("user_id", userID), zap.String("requirement_id", req.ID), zap.Error(err))
			recordDiagnostic(ctx, s.diagnostics, s.logger, userID, "approvals.reset", err)
		}
	}

	_ = s.cache.Invalidate(ctx, checklistCacheKey(userID))
	emitAudit(ctx, s.audit, s.logger, "requirement-service", &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionRequirementUpload,
		Resource:   "requirement",
		ResourceID: &req.ID,
		NewValues:  []byte(fmt.Sprintf(`{"name":%q,"size":%d,"mode":%q}`, file.Name, file.Size, mode)),
	})

	result := *req
	return &result, nil
}

// DeleteFile removes one student attachment. Blob removal is best-effort.
func (s *RequirementFileService) DeleteFile(ctx context.Context, userID, requirementID string, fileIndex int) (*models.Requirement, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	reqs, err := s.loadRequirements(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOfRequirement(reqs, requirementID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
	}
	req := &reqs[idx]
	if fileIndex < 0 || fileIndex >= len(req.UploadedFiles) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	removed := req.UploadedFiles[fileIndex]
	if removed.ProvidedByAdmin {
		return nil, appErrors.ErrAdminProvided
	}

	files := make([]models.UploadedFile, 0, len(req.UploadedFiles)-1)
	files = append(files, req.UploadedFiles[:fileIndex]...)
	files = append(files, req.UploadedFiles[fileIndex+1:]...)
	req.UploadedFiles = files
	if len(req.StudentFiles()) == 0 {
		req.Status = models.RequirementPending
		req.ApprovalStatus = models.ApprovalNotSubmitted
	}

	now := s.now().UTC()
	if err := s.persist(ctx, userID, reqs, now); err != nil {
		return nil, err
	}

	if removed.StoragePath != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, removed.StoragePath); err != nil {
			s.logger.Warn("failed to delete requirement blob", zap.String("user_id", userID), zap.String("path", removed.StoragePath), zap.Error(err))
			recordDiagnostic(ctx, s.diagnostics, s.logger, userID, "requirements.blob_delete", err)
		}
	}

	_ = s.cache.Invalidate(ctx, checklistCacheKey(userID))
	emitAudit(ctx, s.audit, s.logger, "requirement-service", &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionRequirementDelete,
		Resource:   "requirement",
		ResourceID: &req.ID,
		OldValues:  []byte(fmt.Sprintf(`{"name":%q}`, removed.Name)),
	})

	result := *req
	return &result, nil
}

// FileURL resolves an attachment locator into a URL the client can open.
func (s *RequirementFileService) FileURL(ctx context.Context, userID, requirementID string, fileIndex int) (*dto.FileURLResponse, error) {
	reqs, err := s.loadRequirements(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := indexOfRequirement(reqs, requirementID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "requirement not found")
	}
	files := reqs[idx].UploadedFiles
	if fileIndex < 0 || fileIndex >= len(files) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file := files[fileIndex]

	switch {
	case file.ProvidedByAdmin && file.TemplateID != "":
		return s.templateURL(ctx, file)
	case file.StoragePath != "":
		if s.blobs == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
		}
		url, expiresAt, err := s.blobs.SignedURL(ctx, userID, file.StoragePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign file url")
		}
		return &dto.FileURLResponse{URL: url, ExpiresAt: &expiresAt}, nil
	case file.URL != "":
		return &dto.FileURLResponse{URL: file.URL}, nil
	case file.DataURI != "":
		return &dto.FileURLResponse{URL: file.DataURI}, nil
	case file.FileRecordID != "" || file.TemplateID != "":
		return s.templateURL(ctx, file)
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file has no stored location")
	}
}

func (s *RequirementFileService) templateURL(ctx context.Context, file models.UploadedFile) (*dto.FileURLResponse, error) {
	if s.templates == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file record not available")
	}
	id := file.FileRecordID
	if id == "" {
		id = file.TemplateID
	}
	tpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.templates.ResolveURL(ctx, tpl)
	if err != nil {
		return nil, err
	}
	return &dto.FileURLResponse{URL: url}, nil
}

// loadRequirements returns the stored list merged onto the canonical definitions.
func (s *RequirementFileService) loadRequirements(ctx context.Context, userID string) ([]models.Requirement, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	saved, _, err := models.DecodeStoredRequirements(profile.Requirements)
	if err != nil {
		s.logger.Warn("stored requirements unreadable, rebuilding", zap.String("user_id", userID), zap.Error(err))
		saved = nil
	}
	return mergeSavedState(s.definitions, saved), nil
}

func (s *RequirementFileService) persist(ctx context.Context, userID string, reqs []models.Requirement, now time.Time) error {
	payload, err := models.EncodeStoredRequirements(reqs)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode requirements")
	}
	if err := s.profiles.UpdateRequirements(ctx, userID, payload, now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save requirements")
	}
	return nil
}

func (s *RequirementFileService) storeMode(requested string, size int64) string {
	mode := strings.ToLower(strings.TrimSpace(requested))
	if mode == "" {
		mode = s.cfg.DefaultStoreMode
	}
	if mode == config.StoreModeInline && size <= s.cfg.InlineThreshold {
		return config.StoreModeInline
	}
	return config.StoreModeBlob
}

func indexOfRequirement(reqs []models.Requirement, id string) int {
	for i := range reqs {
		if reqs[i].ID == id {
			return i
		}
	}
	return -1
}

func uploadName(original, mimeType string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "upload" + mimeExtension(mimeType)
	}
	return name
}
