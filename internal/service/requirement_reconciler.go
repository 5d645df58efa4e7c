package service

import (
	"strings"
	"time"

	"github.com/noah-isme/internquest-api/internal/models"
)

// DriftReason explains why a reconciled list differs from what is persisted.
type DriftReason string

const (
	DriftTitleSetMismatch  DriftReason = "title_set_mismatch"
	DriftRejectionCleared  DriftReason = "rejection_cleared"
	DriftDuplicateRepaired DriftReason = "duplicate_repaired"
	DriftSchemaUpgrade     DriftReason = "schema_upgrade"
)

// adminAttachmentKeywords maps normalized title fragments of admin-provided requirements to template keywords.
var adminAttachmentKeywords = []struct {
	titleFragment string
	keywords      []string
}{
	{titleFragment: "memorandum of agreement", keywords: []string{"memorandum of agreement", "moa"}},
	{titleFragment: "training plan", keywords: []string{"training plan"}},
	{titleFragment: "endorsement letter", keywords: []string{"endorsement letter", "endorsement"}},
}

// ReconcileInput is everything a reconciliation pass reads. Template download URLs must already be resolved.
type ReconcileInput struct {
	Definitions []models.RequirementDefinition
	Saved       []models.Requirement
	Templates   []models.TemplateDoc
	// TemplatesUnavailable marks a failed template read. Saved admin attachments are then kept as-is
	// instead of being rebuilt from an empty template set.
	TemplatesUnavailable bool
	Approvals            []models.ApprovalRecord
	Now                  time.Time
}

// ReconcileResult is the authoritative checklist plus whether it must be written back.
type ReconcileResult struct {
	Requirements []models.Requirement
	Progress     float64
	Drift        bool
	DriftReasons []DriftReason
}

func (r *ReconcileResult) markDrift(reason DriftReason) {
	for _, existing := range r.DriftReasons {
		if existing == reason {
			return
		}
	}
	r.Drift = true
	r.DriftReasons = append(r.DriftReasons, reason)
}

// Reconcile merges canonical definitions with saved state, admin templates and approval verdicts.
// It performs no I/O and is idempotent on its own output.
func Reconcile(in ReconcileInput) ReconcileResult {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	result := ReconcileResult{}

	reqs := mergeSavedState(in.Definitions, in.Saved)
	if titleSetDiffers(in.Definitions, in.Saved) {
		result.markDrift(DriftTitleSetMismatch)
	}

	if !in.TemplatesUnavailable {
		for i := range reqs {
			if reqs[i].AdminProvided {
				reqs[i].UploadedFiles = attachAdminTemplate(reqs[i], in.Templates)
			}
		}
	}

	for i := range reqs {
		if overlayApproval(&reqs[i], in.Approvals) {
			result.markDrift(DriftRejectionCleared)
		}
	}

	for i := range reqs {
		normalizeStatus(&reqs[i], now)
	}

	if repairDuplicateAttachments(reqs) {
		result.markDrift(DriftDuplicateRepaired)
	}

	result.Requirements = reqs
	result.Progress = Progress(reqs)
	return result
}

func mergeSavedState(defs []models.RequirementDefinition, saved []models.Requirement) []models.Requirement {
	mapping := ReconcileTitles(defs, saved)
	reqs := make([]models.Requirement, 0, len(defs))
	for _, def := range defs {
		req := def.NewRequirement()
		if idx, ok := mapping[def.ID]; ok {
			prior := saved[idx]
			req.UploadedFiles = append([]models.UploadedFile{}, prior.UploadedFiles...)
			if prior.Status != "" {
				req.Status = prior.Status
			}
			if prior.ApprovalStatus != "" {
				req.ApprovalStatus = prior.ApprovalStatus
			}
			req.RejectionReason = prior.RejectionReason
			req.AdviserNotes = prior.AdviserNotes
			req.ReviewedBy = prior.ReviewedBy
			req.ReviewedAt = prior.ReviewedAt
			if req.DueDate == "" {
				req.DueDate = prior.DueDate
			}
		}
		reqs = append(reqs, req)
	}
	return reqs
}

func titleSetDiffers(defs []models.RequirementDefinition, saved []models.Requirement) bool {
	if len(defs) != len(saved) {
		return true
	}
	titles := make(map[string]int, len(saved))
	for _, s := range saved {
		titles[s.Title]++
	}
	for _, def := range defs {
		if titles[def.Title] == 0 {
			return true
		}
		titles[def.Title]--
	}
	return false
}

// attachAdminTemplate keeps student uploads and appends one fresh admin attachment when a template matches.
func attachAdminTemplate(req models.Requirement, templates []models.TemplateDoc) []models.UploadedFile {
	files := req.StudentFiles()
	template := findAdminTemplate(req.Title, templates)
	if template == nil {
		return files
	}
	uploadedAt := template.UploadedAt
	return append(files, models.UploadedFile{
		Name:            template.Name,
		ContentType:     template.ContentType,
		Size:            template.SizeBytes,
		UploadedAt:      &uploadedAt,
		ProvidedByAdmin: true,
		TemplateID:      template.ID,
		URL:             template.DownloadURL,
	})
}

func findAdminTemplate(title string, templates []models.TemplateDoc) *models.TemplateDoc {
	normalizedTitle := NormalizeTitle(title)
	keywords := make([]string, 0, 2)
	for _, entry := range adminAttachmentKeywords {
		if strings.Contains(normalizedTitle, entry.titleFragment) {
			keywords = append(keywords, entry.keywords...)
		}
	}
	if len(keywords) == 0 {
		keywords = append(keywords, normalizedTitle)
	}

	for _, keyword := range keywords {
		for i := range templates {
			t := &templates[i]
			if t.DeletedAt != nil || t.DownloadURL == "" {
				continue
			}
			if t.Kind != "" && t.Kind != models.TemplateKindRequirement {
				continue
			}
			if containsKeyword(NormalizeTitle(t.Name), keyword) || containsKeyword(NormalizeTitle(t.Description), keyword) {
				return t
			}
		}
	}
	return nil
}

// MapApprovalStatus folds raw reviewer values into the approval enum.
func MapApprovalStatus(raw string) models.ApprovalStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accepted", "approved":
		return models.ApprovalApproved
	case "denied", "rejected":
		return models.ApprovalRejected
	default:
		return models.ApprovalPendingReview
	}
}

// overlayApproval copies the first matching verdict onto req and reports whether student files were cleared.
func overlayApproval(req *models.Requirement, approvals []models.ApprovalRecord) bool {
	record := findApproval(*req, approvals)
	if record == nil {
		return false
	}
	req.ApprovalStatus = MapApprovalStatus(record.Status)
	req.RejectionReason = derefString(record.Reason)
	req.AdviserNotes = derefString(record.Notes)
	req.ReviewedBy = derefString(record.ReviewedBy)
	req.ReviewedAt = record.ReviewedAt

	if req.ApprovalStatus != models.ApprovalRejected {
		return false
	}
	studentFiles := len(req.StudentFiles())
	kept := make([]models.UploadedFile, 0, len(req.UploadedFiles)-studentFiles)
	for _, f := range req.UploadedFiles {
		if f.ProvidedByAdmin {
			kept = append(kept, f)
		}
	}
	req.UploadedFiles = kept
	req.Status = models.RequirementPending
	return studentFiles > 0
}

// approvalMatchTiers match a record key against a requirement title, strongest first.
var approvalMatchTiers = []func(req models.Requirement, key string) bool{
	func(req models.Requirement, key string) bool {
		return NormalizeTitle(req.Title) == NormalizeTitle(key)
	},
	func(req models.Requirement, key string) bool {
		return !blockedTitlePair(req.Title, key) && strings.Contains(strings.ToLower(req.Title), strings.ToLower(key))
	},
	func(req models.Requirement, key string) bool {
		normalizedKey := NormalizeTitle(key)
		return normalizedKey != "" && !blockedTitlePair(req.Title, key) && strings.Contains(NormalizeTitle(req.Title), normalizedKey)
	},
	func(req models.Requirement, key string) bool {
		return !blockedTitlePair(req.Title, key) && sharedWordCount(significantWords(req.Title, false), significantWords(key, false)) >= 2
	},
}

// findApproval picks the record keyed by the requirement id or, failing that, the first title match by tier.
// When both exist the more recently touched one wins; ties go to the id-keyed record.
func findApproval(req models.Requirement, approvals []models.ApprovalRecord) *models.ApprovalRecord {
	var byID *models.ApprovalRecord
	for i := range approvals {
		if req.ID != "" && strings.TrimSpace(approvals[i].Key) == req.ID {
			byID = &approvals[i]
			break
		}
	}
	byTitle := findApprovalByTitle(req, approvals)
	switch {
	case byID == nil:
		return byTitle
	case byTitle == nil:
		return byID
	case approvalActivity(byTitle).After(approvalActivity(byID)):
		return byTitle
	default:
		return byID
	}
}

func findApprovalByTitle(req models.Requirement, approvals []models.ApprovalRecord) *models.ApprovalRecord {
	for _, matches := range approvalMatchTiers {
		for i := range approvals {
			key := strings.TrimSpace(approvals[i].Key)
			if key == "" || key == req.ID {
				continue
			}
			if matches(req, key) {
				return &approvals[i]
			}
		}
	}
	return nil
}

func approvalActivity(record *models.ApprovalRecord) time.Time {
	if record.ReviewedAt != nil && record.ReviewedAt.After(record.UpdatedAt) {
		return *record.ReviewedAt
	}
	return record.UpdatedAt
}

// CanonicalRequirementKey resolves a reviewer supplied key (id or title) to the canonical requirement id
// using the same title tiers as the approval overlay. Unknown keys are returned trimmed.
func CanonicalRequirementKey(defs []models.RequirementDefinition, key string) string {
	key = strings.TrimSpace(key)
	for _, def := range defs {
		if def.ID == key {
			return def.ID
		}
	}
	for _, matches := range approvalMatchTiers {
		for _, def := range defs {
			if matches(models.Requirement{ID: def.ID, Title: def.Title}, key) {
				return def.ID
			}
		}
	}
	return key
}

func normalizeStatus(req *models.Requirement, now time.Time) {
	if req.UploadedFiles == nil {
		req.UploadedFiles = []models.UploadedFile{}
	}
	if len(req.UploadedFiles) == 0 {
		req.Status = models.RequirementPending
	} else if req.AdminProvided && req.ApprovalStatus != models.ApprovalRejected && hasAdminAttachment(*req) {
		// Students cannot upload to admin-provided items, so the office's file completes them.
		req.Status = models.RequirementCompleted
	}
	if due, ok := models.ParseDueDate(req.DueDate); ok && due.Before(now) {
		if len(req.UploadedFiles) > 0 {
			req.Status = models.RequirementCompleted
		} else {
			req.Status = models.RequirementOverdue
		}
	}
}

func hasAdminAttachment(req models.Requirement) bool {
	for _, f := range req.UploadedFiles {
		if f.ProvidedByAdmin {
			return true
		}
	}
	return false
}

// repairDuplicateAttachments clears student files on later requirements that share an attachment
// signature with an earlier, non-equivalent requirement.
func repairDuplicateAttachments(reqs []models.Requirement) bool {
	firstBySignature := make(map[string]int)
	repaired := false
	for i := range reqs {
		signature := attachmentSignature(reqs[i])
		if signature == "" {
			continue
		}
		first, seen := firstBySignature[signature]
		if !seen {
			firstBySignature[signature] = i
			continue
		}
		if TitlesEquivalent(reqs[first].Title, reqs[i].Title) {
			continue
		}
		kept := make([]models.UploadedFile, 0)
		for _, f := range reqs[i].UploadedFiles {
			if f.ProvidedByAdmin {
				kept = append(kept, f)
			}
		}
		reqs[i].UploadedFiles = kept
		reqs[i].Status = models.RequirementPending
		repaired = true
	}
	return repaired
}

func attachmentSignature(req models.Requirement) string {
	files := req.StudentFiles()
	if len(files) == 0 {
		return ""
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.LocatorKey())
	}
	return strings.Join(keys, "\n")
}

// Progress is the completed share of required requirements, 0 when nothing is required.
func Progress(reqs []models.Requirement) float64 {
	required, completed := 0, 0
	for _, r := range reqs {
		if !r.IsRequired {
			continue
		}
		required++
		if r.Status == models.RequirementCompleted {
			completed++
		}
	}
	if required == 0 {
		return 0
	}
	return float64(completed) / float64(required)
}

// AllRequiredSatisfied reports whether every required requirement is approved with at least one file.
func AllRequiredSatisfied(reqs []models.Requirement) bool {
	required := 0
	for _, r := range reqs {
		if !r.IsRequired {
			continue
		}
		required++
		if r.ApprovalStatus != models.ApprovalApproved || len(r.UploadedFiles) == 0 {
			return false
		}
	}
	return required > 0
}

// LatestRequiredReviewAt returns the newest review time among required requirements.
func LatestRequiredReviewAt(reqs []models.Requirement) *time.Time {
	var latest *time.Time
	for _, r := range reqs {
		if !r.IsRequired || r.ReviewedAt == nil {
			continue
		}
		if latest == nil || r.ReviewedAt.After(*latest) {
			reviewed := *r.ReviewedAt
			latest = &reviewed
		}
	}
	return latest
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
