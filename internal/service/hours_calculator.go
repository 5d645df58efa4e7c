package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

var (
	clockPattern     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
	timeLogIDUnsafe  = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	maxShiftDuration = 24.0
)

// CalculateHours returns the rounded number of hours between two clock times as a string.
// Overnight shifts wrap around midnight. A span longer than a day returns "" and ErrShiftExceedsDay.
func CalculateHours(clockIn string, inPeriod models.ClockPeriod, clockOut string, outPeriod models.ClockPeriod) (string, error) {
	start, err := clockToHours(clockIn, inPeriod)
	if err != nil {
		return "", err
	}
	end, err := clockToHours(clockOut, outPeriod)
	if err != nil {
		return "", err
	}

	diff, err := shiftSpan(start, end)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(math.Round(diff))), nil
}

// shiftSpan wraps a negative difference past midnight. Validated clock values always land under a day,
// so the ceiling only trips for spans computed outside clockToHours.
func shiftSpan(start, end float64) (float64, error) {
	diff := end - start
	if diff < 0 {
		diff += 24
	}
	if diff > maxShiftDuration {
		return 0, appErrors.Clone(appErrors.ErrShiftExceedsDay, "")
	}
	return diff, nil
}

// clockToHours converts "H", "HH:MM" plus AM/PM into fractional hours. 12 AM is midnight and PM adds 12 except at noon.
func clockToHours(value string, period models.ClockPeriod) (float64, error) {
	matches := clockPattern.FindStringSubmatch(strings.TrimSpace(value))
	if matches == nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "time must be formatted as HH:MM")
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes := 0
	if matches[2] != "" {
		minutes, _ = strconv.Atoi(matches[2])
	}
	if hours < 1 || hours > 12 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "hour must be between 1 and 12")
	}
	if minutes > 59 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "minutes must be between 00 and 59")
	}

	switch normalizePeriod(period) {
	case models.PeriodAM:
		if hours == 12 {
			hours = 0
		}
	case models.PeriodPM:
		if hours != 12 {
			hours += 12
		}
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "period must be AM or PM")
	}

	return float64(hours) + float64(minutes)/60, nil
}

func normalizePeriod(period models.ClockPeriod) models.ClockPeriod {
	return models.ClockPeriod(strings.ToUpper(strings.TrimSpace(string(period))))
}

// TimeLogID builds the composite key for a (date, clock-in) pair.
func TimeLogID(date, clockIn string) string {
	raw := strings.TrimSpace(date) + "_" + strings.TrimSpace(clockIn)
	return strings.Trim(timeLogIDUnsafe.ReplaceAllString(raw, "-"), "-")
}
