package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

type templateStore interface {
	Create(ctx context.Context, tpl *models.TemplateDoc) error
	GetByID(ctx context.Context, id string) (*models.TemplateDoc, error)
	List(ctx context.Context, filter models.TemplateFilter) ([]models.TemplateDoc, error)
	Update(ctx context.Context, tpl *models.TemplateDoc) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

// TemplateService administers centrally provided requirement files and help-desk templates.
type TemplateService struct {
	repo      templateStore
	blobs     blobStore
	audit     auditLogger
	cache     *CacheService
	policy    UploadPolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTemplateService constructs the service.
func NewTemplateService(repo templateStore, blobs blobStore, audit auditLogger, cache *CacheService, policy UploadPolicy, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if policy.mimeSet == nil {
		policy = NewUploadPolicy(policy.MaxFileSize, policy.AllowedMIMEs)
	}
	return &TemplateService{repo: repo, blobs: blobs, audit: audit, cache: cache, policy: policy, validator: validate, logger: logger, now: time.Now}
}

// Create stores a template. Requirement templates need a file or URL; help-desk templates need a file, URL or body.
func (s *TemplateService) Create(ctx context.Context, meta dto.CreateTemplateRequest, upload *FileUpload, actor *models.JWTClaims) (*models.TemplateDoc, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	meta.Kind = models.TemplateKind(strings.ToLower(strings.TrimSpace(string(meta.Kind))))
	meta.Name = strings.TrimSpace(meta.Name)
	if err := s.validator.Struct(meta); err != nil {
		return nil, appErrors.Validation(err, "invalid template payload")
	}
	hasFile := upload != nil && upload.Content != nil
	hasURL := meta.URL != nil && strings.TrimSpace(*meta.URL) != ""
	hasBody := meta.Body != nil && strings.TrimSpace(*meta.Body) != ""
	switch meta.Kind {
	case models.TemplateKindRequirement:
		if !hasFile && !hasURL {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requirement templates need a file or url")
		}
	case models.TemplateKindHelpdesk:
		if !hasFile && !hasURL && !hasBody {
			return nil, appErrors.Clone(appErrors.ErrValidation, "help-desk templates need a file, url or body")
		}
	}

	now := s.now().UTC()
	tpl := &models.TemplateDoc{
		Kind:        meta.Kind,
		Name:        meta.Name,
		Description: strings.TrimSpace(meta.Description),
		Body:        meta.Body,
		UploadedBy:  actor.UserID,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if hasURL {
		url := strings.TrimSpace(*meta.URL)
		tpl.URL = &url
	}

	var objectPath string
	if hasFile {
		mimeType, err := s.policy.Validate(*upload)
		if err != nil {
			return nil, err
		}
		if s.blobs == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "file storage is not configured")
		}
		if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
		}
		objectPath = path.Join("templates", string(meta.Kind), objectName(upload.Filename, mimeType, now))
		if err := s.blobs.Put(ctx, objectPath, upload.Content, mimeType); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store template file")
		}
		tpl.StoragePath = &objectPath
		tpl.ContentType = mimeType
		tpl.SizeBytes = upload.Size
	}

	if err := s.repo.Create(ctx, tpl); err != nil {
		if objectPath != "" {
			_ = s.blobs.Delete(ctx, objectPath)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}

	s.invalidateChecklists(ctx, tpl.Kind)
	emitAudit(ctx, s.audit, s.logger, "template-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTemplateCreate,
		Resource:   "template",
		ResourceID: &tpl.ID,
		NewValues:  []byte(fmt.Sprintf(`{"name":%q,"kind":%q}`, tpl.Name, tpl.Kind)),
	})
	s.withDownloadURL(ctx, tpl)
	return tpl, nil
}

// List returns live templates of the given kind (all kinds when empty) with resolved download URLs.
// Templates whose URL cannot be resolved are returned without one.
func (s *TemplateService) List(ctx context.Context, kind models.TemplateKind) ([]models.TemplateDoc, error) {
	items, err := s.repo.List(ctx, models.TemplateFilter{Kind: kind})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	if items == nil {
		items = []models.TemplateDoc{}
	}
	for i := range items {
		s.withDownloadURL(ctx, &items[i])
	}
	return items, nil
}

// Get returns one live template.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.TemplateDoc, error) {
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if tpl.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	s.withDownloadURL(ctx, tpl)
	return tpl, nil
}

// Update patches template metadata.
func (s *TemplateService) Update(ctx context.Context, id string, req dto.UpdateTemplateRequest, actor *models.JWTClaims) (*models.TemplateDoc, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid template payload")
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		tpl.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		tpl.Description = strings.TrimSpace(*req.Description)
	}
	if req.Body != nil {
		tpl.Body = req.Body
	}
	tpl.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, tpl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}

	s.invalidateChecklists(ctx, tpl.Kind)
	emitAudit(ctx, s.audit, s.logger, "template-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTemplateUpdate,
		Resource:   "template",
		ResourceID: &tpl.ID,
		NewValues:  []byte(fmt.Sprintf(`{"name":%q}`, tpl.Name)),
	})
	return tpl, nil
}

// Delete soft deletes the template and removes its blob on a best-effort basis.
func (s *TemplateService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete template")
	}
	if tpl.StoragePath != nil && s.blobs != nil {
		if err := s.blobs.Delete(ctx, *tpl.StoragePath); err != nil {
			s.logger.Warn("failed to delete template blob", zap.String("template_id", id), zap.Error(err))
		}
	}

	s.invalidateChecklists(ctx, tpl.Kind)
	emitAudit(ctx, s.audit, s.logger, "template-service", &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTemplateDelete,
		Resource:   "template",
		ResourceID: &tpl.ID,
	})
	return nil
}

// ResolveURL returns a link for the template: its external URL, or a signed URL to the stored blob.
func (s *TemplateService) ResolveURL(ctx context.Context, tpl *models.TemplateDoc) (string, error) {
	if tpl == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}
	if tpl.URL != nil && *tpl.URL != "" {
		return *tpl.URL, nil
	}
	if tpl.StoragePath != nil && *tpl.StoragePath != "" && s.blobs != nil {
		url, _, err := s.blobs.SignedURL(ctx, "template:"+tpl.ID, *tpl.StoragePath)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign template url")
		}
		return url, nil
	}
	return "", appErrors.Clone(appErrors.ErrNotFound, "template has no file")
}

func (s *TemplateService) withDownloadURL(ctx context.Context, tpl *models.TemplateDoc) {
	if tpl.URL == nil && tpl.StoragePath == nil {
		return
	}
	url, err := s.ResolveURL(ctx, tpl)
	if err != nil {
		s.logger.Warn("failed to resolve template url", zap.String("template_id", tpl.ID), zap.Error(err))
		return
	}
	tpl.DownloadURL = url
}

// invalidateChecklists drops cached checklists since requirement templates feed every reconciliation.
func (s *TemplateService) invalidateChecklists(ctx context.Context, kind models.TemplateKind) {
	if kind != models.TemplateKindRequirement {
		return
	}
	_ = s.cache.Invalidate(ctx, checklistCacheKey("*"))
}
