package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
)

func TestCalculateHours(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		inP      models.ClockPeriod
		out      string
		outP     models.ClockPeriod
		expected string
	}{
		{"day shift", "09:00", models.PeriodAM, "05:00", models.PeriodPM, "8"},
		{"overnight", "11:00", models.PeriodPM, "07:00", models.PeriodAM, "8"},
		{"noon start", "12:00", models.PeriodPM, "04:30", models.PeriodPM, "5"},
		{"midnight start", "12:00", models.PeriodAM, "06:20", models.PeriodAM, "6"},
		{"lowercase period and bare hour", "8", "am", "4", "pm", "8"},
		{"same time", "08:00", models.PeriodAM, "08:00", models.PeriodAM, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateHours(tc.in, tc.inP, tc.out, tc.outP)
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestShiftSpanExceedsDay(t *testing.T) {
	span, err := shiftSpan(22, 6)
	require.NoError(t, err)
	require.Equal(t, 8.0, span)

	_, err = shiftSpan(0, 25)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrShiftExceedsDay.Code, appErr.Code)
}

func TestCalculateHoursRejectsOutOfRangeHour(t *testing.T) {
	for _, in := range []struct {
		clock  string
		period models.ClockPeriod
	}{
		{"14:00", models.PeriodPM},
		{"13", models.PeriodAM},
		{"0:30", models.PeriodAM},
	} {
		got, err := CalculateHours("01:00", models.PeriodAM, in.clock, in.period)
		require.Equal(t, "", got, in.clock)

		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr), in.clock)
		require.Equal(t, appErrors.ErrValidation.Code, appErr.Code, in.clock)
	}
}

func TestCalculateHoursValidation(t *testing.T) {
	_, err := CalculateHours("9am", models.PeriodAM, "05:00", models.PeriodPM)
	require.Error(t, err)

	_, err = CalculateHours("09:75", models.PeriodAM, "05:00", models.PeriodPM)
	require.Error(t, err)

	_, err = CalculateHours("09:00", "XM", "05:00", models.PeriodPM)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTimeLogID(t *testing.T) {
	require.Equal(t, "2024-03-01_09-00", TimeLogID("2024-03-01", "09:00"))
	require.Equal(t, "2024-03-01_9-30", TimeLogID(" 2024-03-01 ", "9:30 "))
	require.Equal(t, "a-b_c", TimeLogID("a/b", "c"))
}
