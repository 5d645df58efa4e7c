package models

import "time"

// ApprovalRecord is a reviewer verdict keyed by requirement id or title.
// Status holds the raw value ("accepted", "denied", ...) as written by the reviewer client.
type ApprovalRecord struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"studentId"`
	Key        string     `db:"requirement_key" json:"key"`
	Status     string     `db:"status" json:"status"`
	Reason     *string    `db:"reason" json:"reason,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewedAt,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updatedAt"`
}
