package money

import (
	"testing"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":          "R$ 0,00",
		"5.5":        "R$ 5,50",
		"110":        "R$ 110,00",
		"1234.567":   "R$ 1.234,57",
		"1000000":    "R$ 1.000.000,00",
		"-250.75":    "-R$ 250,75",
		"999999.999": "R$ 1.000.000,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(decimal.RequireFromString(in)), in)
	}
}

func TestRound(t *testing.T) {
	assert.True(t, Round(decimal.RequireFromString("116.97204560978125")).Equal(decimal.RequireFromString("116.97")))
	assert.True(t, Round(decimal.RequireFromString("0.005")).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, ClampZero(decimal.NewFromInt(-3)).IsZero())
}

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	first := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	want := []string{
		"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30",
		"2024-05-31", "2024-06-30", "2024-07-31", "2024-08-31",
		"2024-09-30", "2024-10-31", "2024-11-30", "2024-12-31",
	}
	for i, w := range want {
		got, err := AddCadence(first, models.FrequencyMonthly, i)
		require.NoError(t, err)
		assert.Equal(t, w, got.Format(DateLayout), "installment %d", i)
	}

	assert.Equal(t, "2025-02-28", AddMonths(first, 13).Format(DateLayout))
}

func TestAddCadenceFixedSteps(t *testing.T) {
	first := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	steps := map[models.Frequency]string{
		models.FrequencyDaily:    "2024-03-04",
		models.FrequencyWeekly:   "2024-03-22",
		models.FrequencyBiweekly: "2024-04-15",
	}
	for freq, want := range steps {
		got, err := AddCadence(first, freq, 3)
		require.NoError(t, err)
		assert.Equal(t, want, got.Format(DateLayout), string(freq))
	}

	_, err := AddCadence(first, models.Frequency("yearly"), 1)
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	due := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysBetween(due, due))
	assert.Equal(t, 10, DaysBetween(due, due.AddDate(0, 0, 10)))
	assert.Equal(t, 1, DaysBetween(due, due.Add(2*time.Hour)))
}

func TestParseFrequency(t *testing.T) {
	for in, want := range map[string]models.Frequency{
		"Diário":    models.FrequencyDaily,
		"semanal":   models.FrequencyWeekly,
		"Quinzenal": models.FrequencyBiweekly,
		"monthly":   models.FrequencyMonthly,
		"":          models.FrequencyMonthly,
	} {
		got, err := ParseFrequency(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFrequency("hourly")
	assert.Error(t, err)
}

func TestSameDayUsesLocaleDate(t *testing.T) {
	a := time.Date(2024, time.June, 5, 8, 0, 0, 0, time.UTC)
	b := time.Date(2024, time.June, 5, 23, 59, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
	assert.Equal(t, "05/06/2024", FormatDate(a))
}
