package fines

import (
	"testing"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var calc = NewCalculator(DefaultDailyRate)

func TestAccrue_TenDaysLate(t *testing.T) {
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ref := due.AddDate(0, 0, 10)

	got := calc.Accrue(decimal.NewFromInt(100), due, ref)

	// 100 * 1.0158^10
	assert.Equal(t, "116.97", money.Round(got).StringFixed(2))
	assert.True(t, got.Sub(decimal.RequireFromString("116.97")).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")))
	assert.Equal(t, "16.97", money.Round(calc.Fine(decimal.NewFromInt(100), due, ref)).StringFixed(2))
}

func TestAccrue_NotYetDue(t *testing.T) {
	due := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("250.75")

	for _, ref := range []time.Time{due.AddDate(0, 0, -30), due.AddDate(0, 0, -1), due} {
		assert.True(t, calc.Accrue(amount, due, ref).Equal(amount), ref.String())
	}
}

func TestAccrue_Monotonic(t *testing.T) {
	due := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("87.31")

	prev := amount
	for day := 0; day <= 400; day++ {
		got := calc.Accrue(amount, due, due.AddDate(0, 0, day))
		assert.True(t, got.GreaterThanOrEqual(prev), "day %d: %s < %s", day, got, prev)
		prev = got
	}
}

func TestAccrue_NoIntermediateRounding(t *testing.T) {
	due := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(1)

	// compounding day by day with cent rounding drifts from the exact value
	exact := calc.Accrue(amount, due, due.AddDate(0, 0, 90))
	want, _ := decimal.RequireFromString("1.0158").PowInt32(90)
	assert.True(t, exact.Equal(want))
}

func TestOutstanding(t *testing.T) {
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ref := due.AddDate(0, 0, 10)

	paid := models.Installment{Amount: decimal.NewFromInt(100), PaidAmount: decimal.NewFromInt(100), Status: models.InstallmentStatusPaid, DueDate: due}
	assert.True(t, calc.Outstanding(paid, ref).IsZero())

	partial := models.Installment{Amount: decimal.NewFromInt(200), PaidAmount: decimal.NewFromInt(100), Status: models.InstallmentStatusPartial, DueDate: due}
	assert.True(t, calc.Outstanding(partial, ref).Equal(calc.Accrue(decimal.NewFromInt(100), due, ref)))
}

func TestNewCalculatorCustomRate(t *testing.T) {
	c := NewCalculator(decimal.RequireFromString("0.01"))
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	got := c.Accrue(decimal.NewFromInt(100), due, due.AddDate(0, 0, 2))
	assert.True(t, got.Equal(decimal.RequireFromString("102.01")), got.String())
}

func TestNewCalculatorZeroRateDisablesFines(t *testing.T) {
	c := NewCalculator(decimal.Zero)
	due := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, c.DailyRate.IsZero())
	assert.True(t, c.Accrue(decimal.NewFromInt(100), due, due.AddDate(0, 0, 30)).Equal(decimal.NewFromInt(100)))
}
