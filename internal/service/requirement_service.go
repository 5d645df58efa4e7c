package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/internquest-api/internal/dto"
	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/jobs"
)

type profileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	UpdateRequirements(ctx context.Context, userID string, payload []byte, updatedAt time.Time) error
}

type requirementTemplateSource interface {
	List(ctx context.Context, kind models.TemplateKind) ([]models.TemplateDoc, error)
}

type approvalLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ApprovalRecord, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// Degraded sources reported on a checklist response.
const (
	DegradedProfile   = "profile"
	DegradedTemplates = "templates"
	DegradedApprovals = "approvals"
	DegradedPersist   = "persist"
)

// RequirementServiceConfig tunes caching for reconciled checklists.
type RequirementServiceConfig struct {
	CacheTTL time.Duration
}

// RequirementService loads, reconciles and persists student requirement checklists.
type RequirementService struct {
	profiles    profileStore
	templates   requirementTemplateSource
	approvals   approvalLister
	diagnostics diagnosticRecorder
	dispatcher  jobDispatcher
	cache       *CacheService
	metrics     *MetricsService
	locks       *KeyedMutex
	definitions []models.RequirementDefinition
	logger      *zap.Logger
	cfg         RequirementServiceConfig
	now         func() time.Time
}

// NewRequirementService wires the checklist service. locks must be shared with RequirementFileService.
func NewRequirementService(
	profiles profileStore,
	templates requirementTemplateSource,
	approvals approvalLister,
	diagnostics diagnosticRecorder,
	dispatcher jobDispatcher,
	cache *CacheService,
	metrics *MetricsService,
	locks *KeyedMutex,
	logger *zap.Logger,
	cfg RequirementServiceConfig,
) *RequirementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	return &RequirementService{
		profiles:    profiles,
		templates:   templates,
		approvals:   approvals,
		diagnostics: diagnostics,
		dispatcher:  dispatcher,
		cache:       cache,
		metrics:     metrics,
		locks:       locks,
		definitions: models.DefaultRequirementDefinitions(),
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Load returns the authoritative checklist for userID, writing it back when it drifted from storage.
func (s *RequirementService) Load(ctx context.Context, userID string) (*dto.ChecklistResponse, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}

	var cached dto.ChecklistResponse
	if hit, _ := s.cache.Get(ctx, checklistCacheKey(userID), &cached); hit {
		cached.FromCache = true
		return &cached, nil
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	now := s.now().UTC()
	resp := &dto.ChecklistResponse{UserID: userID, GeneratedAt: now}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to read student profile", zap.String("user_id", userID), zap.Error(err))
		}
		resp.Degraded = append(resp.Degraded, DegradedProfile)
		s.fill(resp, freshRequirements(s.definitions))
		s.metrics.RecordReconciliation("degraded", nil)
		return resp, nil
	}

	templates, approvals, degraded := s.fetchOverlays(ctx, userID)
	resp.Degraded = append(resp.Degraded, degraded...)

	saved, version, err := models.DecodeStoredRequirements(profile.Requirements)
	if err != nil {
		s.logger.Warn("stored requirements unreadable, rebuilding", zap.String("user_id", userID), zap.Error(err))
		saved, version = nil, models.RequirementSchemaVersion
	}

	result := Reconcile(ReconcileInput{
		Definitions:          s.definitions,
		Saved:                saved,
		Templates:            templates,
		TemplatesUnavailable: s.templates == nil || containsString(degraded, DegradedTemplates),
		Approvals:            approvals,
		Now:                  now,
	})
	if len(saved) > 0 && version < models.RequirementSchemaVersion {
		result.markDrift(DriftSchemaUpgrade)
	}

	if result.Drift {
		if err := s.persist(ctx, userID, result.Requirements, now); err != nil {
			s.logger.Warn("failed to persist reconciled requirements",
				zap.String("user_id", userID),
				zap.Any("drift", result.DriftReasons),
				zap.Error(err))
			recordDiagnostic(ctx, s.diagnostics, s.logger, userID, "requirements.persist", err)
			resp.Degraded = append(resp.Degraded, DegradedPersist)
		}
	}
	s.metrics.RecordReconciliation(reconcileOutcome(result, resp.Degraded), driftLabels(result.DriftReasons))

	s.fill(resp, result.Requirements)
	s.dispatchCompletion(profile, result.Requirements)

	if len(resp.Degraded) == 0 {
		_ = s.cache.Set(ctx, checklistCacheKey(userID), resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

func (s *RequirementService) fetchOverlays(ctx context.Context, userID string) ([]models.TemplateDoc, []models.ApprovalRecord, []string) {
	var (
		templates   []models.TemplateDoc
		approvals   []models.ApprovalRecord
		templateErr error
		appErr      error
	)

	// Each source degrades on its own, so the goroutines never return an error to the group.
	var g errgroup.Group
	if s.templates != nil {
		g.Go(func() error {
			templates, templateErr = s.templates.List(ctx, models.TemplateKindRequirement)
			return nil
		})
	}
	if s.approvals != nil {
		g.Go(func() error {
			approvals, appErr = s.approvals.ListByStudent(ctx, userID)
			return nil
		})
	}
	_ = g.Wait()

	var degraded []string
	if templateErr != nil {
		s.logger.Warn("failed to list requirement templates", zap.String("user_id", userID), zap.Error(templateErr))
		templates = nil
		degraded = append(degraded, DegradedTemplates)
	}
	if appErr != nil {
		s.logger.Warn("failed to list approvals", zap.String("user_id", userID), zap.Error(appErr))
		approvals = nil
		degraded = append(degraded, DegradedApprovals)
	}
	return templates, approvals, degraded
}

func (s *RequirementService) persist(ctx context.Context, userID string, reqs []models.Requirement, now time.Time) error {
	payload, err := models.EncodeStoredRequirements(reqs)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	return s.profiles.UpdateRequirements(ctx, userID, payload, now)
}

func (s *RequirementService) fill(resp *dto.ChecklistResponse, reqs []models.Requirement) {
	resp.Requirements = reqs
	resp.Progress = Progress(reqs)
	resp.CompletedCount, resp.RequiredCount = 0, 0
	for _, r := range reqs {
		if !r.IsRequired {
			continue
		}
		resp.RequiredCount++
		if r.Status == models.RequirementCompleted {
			resp.CompletedCount++
		}
	}
	resp.AllRequiredSatisfied = AllRequiredSatisfied(reqs)
}

// dispatchCompletion enqueues the completion side effects once every required item is approved.
func (s *RequirementService) dispatchCompletion(profile *models.StudentProfile, reqs []models.Requirement) {
	if s.dispatcher == nil || !AllRequiredSatisfied(reqs) {
		return
	}
	promote := profile.Status != models.ProfileHired &&
		profile.AppliedCompanyID != nil && *profile.AppliedCompanyID != "" &&
		(profile.FinalCompanyID == nil || *profile.FinalCompanyID == "")
	cmd := models.CompletionCommand{
		UserID:         profile.UserID,
		PromoteToHired: promote,
		Requirements:   reqs,
	}
	if latest := LatestRequiredReviewAt(reqs); latest != nil {
		cmd.RegenerateSummary = true
		cmd.LatestReviewedAtMs = latest.UnixMilli()
	}
	if !cmd.PromoteToHired && !cmd.RegenerateSummary {
		return
	}
	err := s.dispatcher.Enqueue(jobs.Job{ID: "completion:" + profile.UserID, Type: models.JobTypeCompletion, Payload: cmd})
	switch {
	case err == nil:
	case errors.Is(err, jobs.ErrDuplicateJob):
		s.logger.Debug("completion already queued", zap.String("user_id", profile.UserID))
	default:
		s.logger.Warn("failed to enqueue completion", zap.String("user_id", profile.UserID), zap.Error(err))
	}
}

func freshRequirements(defs []models.RequirementDefinition) []models.Requirement {
	reqs := make([]models.Requirement, 0, len(defs))
	for _, def := range defs {
		reqs = append(reqs, def.NewRequirement())
	}
	return reqs
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func reconcileOutcome(result ReconcileResult, degraded []string) string {
	switch {
	case len(degraded) > 0:
		return "degraded"
	case result.Drift:
		return "drift"
	default:
		return "clean"
	}
}

func driftLabels(reasons []DriftReason) []string {
	labels := make([]string, 0, len(reasons))
	for _, r := range reasons {
		labels = append(labels, string(r))
	}
	return labels
}
