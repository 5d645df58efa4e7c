package models

import "time"

// Diagnostic is the latest non-blocking failure recorded on a user for later inspection.
type Diagnostic struct {
	Operation  string    `json:"operation"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}
