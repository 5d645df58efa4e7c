package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/models"
	"github.com/noah-isme/internquest-api/pkg/export"
	"github.com/noah-isme/internquest-api/pkg/jobs"
)

type completionProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	PromoteToHired(ctx context.Context, userID string, at time.Time) (bool, error)
}

type checklistDocumentStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.ChecklistDocument, error)
	Upsert(ctx context.Context, doc *models.ChecklistDocument) error
}

type signatureSource interface {
	Fetch(ctx context.Context) ([]byte, string, error)
}

type summaryRenderer interface {
	Render(summary export.ChecklistSummary) ([]byte, error)
}

// CompletionService applies the side effects of a fully approved checklist.
type CompletionService struct {
	profiles  completionProfileStore
	documents checklistDocumentStore
	blobs     blobStore
	signature signatureSource
	renderer  summaryRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewCompletionService constructs the queue handler service.
func NewCompletionService(profiles completionProfileStore, documents checklistDocumentStore, blobs blobStore, signature signatureSource, renderer summaryRenderer, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewChecklistSummaryRenderer()
	}
	return &CompletionService{
		profiles:  profiles,
		documents: documents,
		blobs:     blobs,
		signature: signature,
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle is the jobs.Handler for completion commands. Both effects are idempotent so retries are safe.
func (s *CompletionService) Handle(ctx context.Context, job jobs.Job) error {
	cmd, err := decodeCompletionCommand(job.Payload)
	if err != nil {
		s.logger.Error("dropping malformed completion job", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	if cmd.PromoteToHired {
		promoted, err := s.profiles.PromoteToHired(ctx, cmd.UserID, s.now().UTC())
		if err != nil {
			return fmt.Errorf("promote %s: %w", cmd.UserID, err)
		}
		if promoted {
			s.logger.Info("student promoted to hired", zap.String("user_id", cmd.UserID))
		}
	}

	if cmd.RegenerateSummary {
		if err := s.regenerateSummary(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *CompletionService) regenerateSummary(ctx context.Context, cmd models.CompletionCommand) error {
	doc, err := s.documents.GetByUserID(ctx, cmd.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load checklist document: %w", err)
	}
	if doc != nil && doc.SourceReviewedAtMs >= cmd.LatestReviewedAtMs {
		s.logger.Debug("checklist summary up to date", zap.String("user_id", cmd.UserID))
		return nil
	}

	profile, err := s.profiles.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	reqs := cmd.Requirements
	if len(reqs) == 0 {
		if reqs, _, err = models.DecodeStoredRequirements(profile.Requirements); err != nil {
			return fmt.Errorf("decode requirements: %w", err)
		}
	}

	now := s.now().UTC()
	summary := export.ChecklistSummary{
		StudentName:  profile.FullName,
		StudentEmail: profile.Email,
		GeneratedAt:  now,
	}
	for _, r := range reqs {
		item := export.SummaryItem{
			Title:      r.Title,
			Status:     string(r.ApprovalStatus),
			Files:      len(r.UploadedFiles),
			ReviewedBy: r.ReviewedBy,
		}
		if r.ReviewedAt != nil {
			item.ReviewedAt = r.ReviewedAt.UTC().Format("2006-01-02")
		}
		summary.Items = append(summary.Items, item)
	}
	if s.signature != nil {
		image, url, err := s.signature.Fetch(ctx)
		if err != nil {
			s.logger.Warn("signature unavailable, printing url", zap.String("user_id", cmd.UserID), zap.Error(err))
		}
		summary.SignatureImage = image
		summary.SignatureURL = url
	}

	content, err := s.renderer.Render(summary)
	if err != nil {
		return fmt.Errorf("render checklist summary: %w", err)
	}
	objectPath := path.Join("checklists", cmd.UserID, fmt.Sprintf("summary_%d.pdf", cmd.LatestReviewedAtMs))
	if err := s.blobs.Put(ctx, objectPath, bytes.NewReader(content), "application/pdf"); err != nil {
		return fmt.Errorf("store checklist summary: %w", err)
	}
	next := &models.ChecklistDocument{
		UserID:             cmd.UserID,
		StoragePath:        objectPath,
		GeneratedAt:        now,
		SourceReviewedAtMs: cmd.LatestReviewedAtMs,
	}
	if err := s.documents.Upsert(ctx, next); err != nil {
		return fmt.Errorf("save checklist document: %w", err)
	}
	if doc != nil && doc.StoragePath != "" && doc.StoragePath != objectPath {
		if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
			s.logger.Warn("failed to delete previous checklist summary", zap.String("path", doc.StoragePath), zap.Error(err))
		}
	}
	s.logger.Info("checklist summary generated", zap.String("user_id", cmd.UserID), zap.String("path", objectPath))
	return nil
}

func decodeCompletionCommand(payload interface{}) (models.CompletionCommand, error) {
	switch v := payload.(type) {
	case models.CompletionCommand:
		if v.UserID == "" {
			return v, errors.New("completion command without user id")
		}
		return v, nil
	case *models.CompletionCommand:
		if v == nil || v.UserID == "" {
			return models.CompletionCommand{}, errors.New("completion command without user id")
		}
		return *v, nil
	default:
		return models.CompletionCommand{}, fmt.Errorf("unexpected payload %T", payload)
	}
}

// HTTPSignatureSource downloads the adviser signature image from a fixed URL.
type HTTPSignatureSource struct {
	url    string
	client *http.Client
}

// NewHTTPSignatureSource returns nil when no URL is configured.
func NewHTTPSignatureSource(url string, timeout time.Duration) *HTTPSignatureSource {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSignatureSource{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch returns the image bytes and the source URL. The URL is returned even on failure so callers can print it.
func (h *HTTPSignatureSource) Fetch(ctx context.Context) ([]byte, string, error) {
	if h == nil {
		return nil, "", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, h.url, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, h.url, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, h.url, fmt.Errorf("signature fetch: status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, h.url, err
	}
	return raw, h.url, nil
}
