package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/jobs"
)

type requirementFixture struct {
	profiles    *memProfileStore
	templates   *memTemplateSource
	approvals   *memApprovalStore
	diagnostics *memDiagnostics
	dispatcher  *memDispatcher
	cache       *memCacheRepo
	metrics     *MetricsService
	svc         *RequirementService
}

func newRequirementFixture(profiles ...*models.StudentProfile) *requirementFixture {
	f := &requirementFixture{
		profiles:    newMemProfileStore(profiles...),
		templates:   &memTemplateSource{},
		approvals:   &memApprovalStore{},
		diagnostics: &memDiagnostics{},
		dispatcher:  &memDispatcher{},
		cache:       &memCacheRepo{},
		metrics:     NewMetricsService(),
	}
	cache := NewCacheService(f.cache, f.metrics, time.Minute, zap.NewNop(), true)
	f.svc = NewRequirementService(f.profiles, f.templates, f.approvals, f.diagnostics, f.dispatcher, cache, f.metrics, NewKeyedMutex(), zap.NewNop(), RequirementServiceConfig{})
	f.svc.now = func() time.Time { return reconcileNow }
	return f
}

// approvedChecklist returns a saved list where every required item has a distinct file and an approval.
func approvedChecklist(studentID string) ([]models.Requirement, []models.ApprovalRecord) {
	reqs := canonicalRequirements()
	var approvals []models.ApprovalRecord
	for i := range reqs {
		r := &reqs[i]
		if !r.IsRequired {
			continue
		}
		r.Status = models.RequirementCompleted
		if !r.AdminProvided {
			r.UploadedFiles = []models.UploadedFile{{Name: r.ID + ".pdf", StoragePath: "requirements/" + studentID + "/" + r.ID + ".pdf"}}
		}
		reviewedAt := reconcileNow.Add(-time.Duration(i) * time.Hour)
		approvals = append(approvals, models.ApprovalRecord{
			StudentID:  studentID,
			Key:        r.ID,
			Status:     "accepted",
			ReviewedBy: strPtr("adviser-1"),
			ReviewedAt: &reviewedAt,
		})
	}
	return reqs, approvals
}

func TestRequirementServiceLoadRequiresUser(t *testing.T) {
	f := newRequirementFixture()
	_, err := f.svc.Load(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequirementServiceLoadPersistsFreshChecklist(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", nil))

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, resp.Degraded)
	assert.Len(t, resp.Requirements, 8)
	assert.Equal(t, 7, resp.RequiredCount)
	assert.Equal(t, 0, resp.CompletedCount)
	assert.False(t, resp.AllRequiredSatisfied)

	assert.Equal(t, 1, f.profiles.updates)
	assert.Len(t, f.profiles.stored(t, "u1"), 8)

	snapshot := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Reconciliations)
	assert.Equal(t, uint64(1), snapshot.ReconciliationDrifts)
	assert.Empty(t, f.dispatcher.jobs)
}

func TestRequirementServiceLoadCleanListIsNotRewritten(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", canonicalRequirements()))

	_, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.profiles.updates)
}

func TestRequirementServiceLoadUsesCache(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", canonicalRequirements()))
	ctx := context.Background()

	first, err := f.svc.Load(ctx, "u1")
	require.NoError(t, err)
	second, err := f.svc.Load(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.profiles.getCalls)
	assert.Equal(t, len(first.Requirements), len(second.Requirements))
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.True(t, f.cache.has(checklistCacheKey("u1")))
}

func TestRequirementServiceLoadRejectionClearsFilesAndPersists(t *testing.T) {
	saved := canonicalRequirements()
	saved[2].Status = models.RequirementCompleted
	saved[2].ApprovalStatus = models.ApprovalPendingReview
	saved[2].UploadedFiles = []models.UploadedFile{{Name: "med.pdf", StoragePath: "requirements/u1/medical/1.pdf"}}
	f := newRequirementFixture(storedProfile(t, "u1", saved))
	f.approvals.records = []models.ApprovalRecord{{StudentID: "u1", Key: "3", Status: "denied", Reason: strPtr("blurry scan")}}

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)

	medical := findReq(t, resp.Requirements, "3")
	assert.Equal(t, models.ApprovalRejected, medical.ApprovalStatus)
	assert.Equal(t, "blurry scan", medical.RejectionReason)
	assert.Empty(t, medical.UploadedFiles)
	assert.Equal(t, models.RequirementPending, medical.Status)

	assert.Equal(t, 1, f.profiles.updates)
	stored := findReq(t, f.profiles.stored(t, "u1"), "3")
	assert.Empty(t, stored.UploadedFiles)
}

func TestRequirementServiceLoadPersistFailureIsDegraded(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", nil))
	f.profiles.updateErr = errors.New("write timeout")

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, resp.Degraded, DegradedPersist)
	assert.Len(t, resp.Requirements, 8)

	require.Len(t, f.diagnostics.entries, 1)
	assert.Equal(t, "requirements.persist", f.diagnostics.entries[0].Operation)
	assert.False(t, f.cache.has(checklistCacheKey("u1")))
}

func TestRequirementServiceLoadProfileFailureReturnsCanonicalList(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", nil))
	f.profiles.getErr = errors.New("connection refused")

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{DegradedProfile}, resp.Degraded)
	assert.Len(t, resp.Requirements, 8)
	assert.Equal(t, 0, f.profiles.updates)
}

func TestRequirementServiceLoadCancelledContext(t *testing.T) {
	f := newRequirementFixture(storedProfile(t, "u1", nil))
	f.profiles.getErr = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Load(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRequirementServiceTemplateOutageKeepsAdminAttachment(t *testing.T) {
	saved := canonicalRequirements()
	uploadedAt := reconcileNow.Add(-48 * time.Hour)
	saved[6].Status = models.RequirementCompleted
	saved[6].UploadedFiles = []models.UploadedFile{{Name: "Signed MOA 2024", ProvidedByAdmin: true, TemplateID: "tpl-1", URL: "https://files.example.com/templates/moa.pdf", UploadedAt: &uploadedAt}}
	f := newRequirementFixture(storedProfile(t, "u1", saved))
	f.templates.err = errors.New("templates unavailable")

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{DegradedTemplates}, resp.Degraded)

	moa := findReq(t, resp.Requirements, "7")
	require.Len(t, moa.UploadedFiles, 1)
	assert.True(t, moa.UploadedFiles[0].ProvidedByAdmin)
	assert.Equal(t, 0, f.profiles.updates)
}

func TestRequirementServiceDispatchesCompletion(t *testing.T) {
	saved, approvals := approvedChecklist("u1")
	profile := storedProfile(t, "u1", saved)
	profile.AppliedCompanyID = strPtr("acme")
	f := newRequirementFixture(profile)
	f.templates.items = []models.TemplateDoc{moaTemplate()}
	f.approvals.records = approvals

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, resp.AllRequiredSatisfied)
	assert.Equal(t, 1.0, resp.Progress)

	require.Len(t, f.dispatcher.jobs, 1)
	job := f.dispatcher.jobs[0]
	assert.Equal(t, "completion:u1", job.ID)
	assert.Equal(t, models.JobTypeCompletion, job.Type)
	cmd, ok := job.Payload.(models.CompletionCommand)
	require.True(t, ok)
	assert.True(t, cmd.PromoteToHired)
	assert.True(t, cmd.RegenerateSummary)
	assert.Equal(t, reconcileNow.UnixMilli(), cmd.LatestReviewedAtMs)
	assert.Len(t, cmd.Requirements, 8)
}

func TestRequirementServiceHiredStudentOnlyRegeneratesSummary(t *testing.T) {
	saved, approvals := approvedChecklist("u1")
	profile := storedProfile(t, "u1", saved)
	profile.Status = models.ProfileHired
	profile.AppliedCompanyID = strPtr("acme")
	profile.FinalCompanyID = strPtr("acme")
	f := newRequirementFixture(profile)
	f.templates.items = []models.TemplateDoc{moaTemplate()}
	f.approvals.records = approvals

	_, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, f.dispatcher.jobs, 1)
	cmd := f.dispatcher.jobs[0].Payload.(models.CompletionCommand)
	assert.False(t, cmd.PromoteToHired)
	assert.True(t, cmd.RegenerateSummary)
}

func TestRequirementServiceDuplicateCompletionIsIgnored(t *testing.T) {
	saved, approvals := approvedChecklist("u1")
	profile := storedProfile(t, "u1", saved)
	profile.AppliedCompanyID = strPtr("acme")
	f := newRequirementFixture(profile)
	f.templates.items = []models.TemplateDoc{moaTemplate()}
	f.approvals.records = approvals
	f.dispatcher.err = jobs.ErrDuplicateJob

	resp, err := f.svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, resp.AllRequiredSatisfied)
}
