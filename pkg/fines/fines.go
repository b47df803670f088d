package fines

import (
	"math"
	"time"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultDailyRate is the 1.58% per day surcharge compounded on late principal.
var DefaultDailyRate = decimal.RequireFromString("0.0158")

// Calculator projects the amount owed on late installments. It never mutates
// an installment; persisted amounts only change through the ledger.
type Calculator struct {
	DailyRate decimal.Decimal
}

// NewCalculator returns a Calculator compounding rate per day. A zero rate
// disables fines.
func NewCalculator(rate decimal.Decimal) Calculator {
	return Calculator{DailyRate: rate}
}

// DaysLate returns how many days past due ref is, or 0 when not yet due.
func DaysLate(due, ref time.Time) int {
	if ref.Before(due) {
		return 0
	}
	return money.DaysBetween(due, ref)
}

// Accrue returns amount compounded daily for every day ref is past due.
// The result is exact; callers round only for display.
func (c Calculator) Accrue(amount decimal.Decimal, due, ref time.Time) decimal.Decimal {
	days := DaysLate(due, ref)
	if days == 0 || !amount.IsPositive() {
		return amount
	}
	if days > math.MaxInt32 {
		days = math.MaxInt32
	}

	factor, err := decimal.NewFromInt(1).Add(c.DailyRate).PowInt32(int32(days))
	if err != nil {
		// only 0**0 errors, and the base is never zero here
		return amount
	}
	return amount.Mul(factor)
}

// Fine returns the surcharge portion of Accrue.
func (c Calculator) Fine(amount decimal.Decimal, due, ref time.Time) decimal.Decimal {
	return c.Accrue(amount, due, ref).Sub(amount)
}

// Outstanding projects the fine-adjusted amount still owed on inst. Paid
// installments owe nothing and partial ones accrue only on the unpaid part.
func (c Calculator) Outstanding(inst models.Installment, ref time.Time) decimal.Decimal {
	return c.Accrue(inst.Unpaid(), inst.DueDate, ref)
}
