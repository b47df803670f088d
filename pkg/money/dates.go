package money

import (
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
)

const (
	// DateLayout is the wire format for civil dates.
	DateLayout = "2006-01-02"
	// LocaleDateLayout is the pt-BR display format (dd/mm/yyyy).
	LocaleDateLayout = "02/01/2006"
)

// Midnight truncates t to the start of its civil day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Civil maps t to midnight UTC of its civil date, so dates recorded in
// different locations compare by calendar day.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same civil date.
func SameDay(a, b time.Time) bool {
	return FormatDate(a) == FormatDate(b)
}

// DaysBetween returns the number of whole days from -> to, rounding any partial
// day up. Calendar days are counted on civil dates so DST shifts do not leak in.
func DaysBetween(from, to time.Time) int {
	days := int(Civil(to).Sub(Civil(from)).Hours() / 24)

	// partial day on the reference side counts as a full day late
	if sinceMidnight(to) > sinceMidnight(from) {
		days++
	}
	return days
}

func sinceMidnight(t time.Time) time.Duration {
	return t.Sub(Midnight(t))
}

// AddMonths adds n calendar months to t, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29, never early March).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// AddCadence returns the due date of the i-th (0-indexed) installment of a
// schedule starting at first.
func AddCadence(first time.Time, freq models.Frequency, i int) (time.Time, error) {
	switch freq {
	case models.FrequencyDaily:
		return first.AddDate(0, 0, i), nil
	case models.FrequencyWeekly:
		return first.AddDate(0, 0, 7*i), nil
	case models.FrequencyBiweekly:
		return first.AddDate(0, 0, 15*i), nil
	case models.FrequencyMonthly:
		return AddMonths(first, i), nil
	}
	return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
}

// ParseFrequency accepts canonical names as well as the Portuguese labels used
// by older exports (Diário, Semanal, Quinzenal, Mensal).
func ParseFrequency(s string) (models.Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "diário", "diario":
		return models.FrequencyDaily, nil
	case "weekly", "semanal":
		return models.FrequencyWeekly, nil
	case "biweekly", "quinzenal":
		return models.FrequencyBiweekly, nil
	case "monthly", "mensal", "":
		return models.FrequencyMonthly, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// ParseDate parses a yyyy-mm-dd civil date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format(LocaleDateLayout)
}
