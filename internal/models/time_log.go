package models

import "time"

// ClockPeriod is the AM/PM designator of a clock time.
type ClockPeriod string

const (
	PeriodAM ClockPeriod = "AM"
	PeriodPM ClockPeriod = "PM"
)

// TimeLog is one day of OJT work. ID is the sanitized date_clockIn composite.
type TimeLog struct {
	ID             string      `db:"id" json:"id"`
	UserID         string      `db:"user_id" json:"userId"`
	Date           string      `db:"log_date" json:"date"`
	ClockIn        string      `db:"clock_in" json:"clockIn"`
	ClockInPeriod  ClockPeriod `db:"clock_in_period" json:"clockInPeriod"`
	ClockOut       string      `db:"clock_out" json:"clockOut"`
	ClockOutPeriod ClockPeriod `db:"clock_out_period" json:"clockOutPeriod"`
	Hours          int         `db:"hours" json:"hours"`
	Task           string      `db:"task" json:"task"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}
