package models

import "time"

// ChecklistDocument records the last generated completion summary.
// SourceReviewedAtMs is the newest required-review timestamp the document was built from.
type ChecklistDocument struct {
	UserID             string    `db:"user_id" json:"userId"`
	StoragePath        string    `db:"storage_path" json:"storagePath"`
	GeneratedAt        time.Time `db:"generated_at" json:"generatedAt"`
	SourceReviewedAtMs int64     `db:"source_reviewed_at_ms" json:"sourceReviewedAtMs"`
}

// JobTypeCompletion identifies queued completion commands.
const JobTypeCompletion = "checklist.completion"

// CompletionCommand carries post-reconciliation side effects for one student.
type CompletionCommand struct {
	UserID             string `json:"userId"`
	PromoteToHired     bool   `json:"promoteToHired"`
	RegenerateSummary  bool   `json:"regenerateSummary"`
	LatestReviewedAtMs int64  `json:"latestReviewedAtMs"`

	// Requirements is the reconciled checklist the command was raised from.
	Requirements []Requirement `json:"requirements,omitempty"`
}
