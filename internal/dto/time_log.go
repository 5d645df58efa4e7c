package dto

import (
	"time"

	"github.com/noah-isme/internquest-api/internal/models"
)

// SaveTimeLogRequest creates a log or, when EditingID is set, replaces an existing one.
type SaveTimeLogRequest struct {
	Date           string             `json:"date" validate:"required"`
	ClockIn        string             `json:"clockIn" validate:"required"`
	ClockInPeriod  models.ClockPeriod `json:"clockInPeriod" validate:"required"`
	ClockOut       string             `json:"clockOut" validate:"required"`
	ClockOutPeriod models.ClockPeriod `json:"clockOutPeriod" validate:"required"`
	Task           string             `json:"task" validate:"max=2000"`
	EditingID      string             `json:"editingId"`
}

// CalculateHoursRequest previews the hours for a clock-in/clock-out pair.
type CalculateHoursRequest struct {
	ClockIn        string             `json:"clockIn" validate:"required"`
	ClockInPeriod  models.ClockPeriod `json:"clockInPeriod" validate:"required"`
	ClockOut       string             `json:"clockOut" validate:"required"`
	ClockOutPeriod models.ClockPeriod `json:"clockOutPeriod" validate:"required"`
}

// CalculateHoursResponse returns hours as a decimal string ("8", "7.5") or "" when incomplete.
type CalculateHoursResponse struct {
	Hours string `json:"hours"`
}

// TimeLogSummary aggregates progress towards the required OJT hours.
type TimeLogSummary struct {
	TotalHours     int     `json:"totalHours"`
	Entries        int     `json:"entries"`
	RequiredHours  int     `json:"requiredHours"`
	RemainingHours int     `json:"remainingHours"`
	Percentage     float64 `json:"percentage"`
}

// ExportResponse points to a generated export file.
type ExportResponse struct {
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
