// Package schedule builds installment plans from loan terms.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

// Mode selects how the installment amount is derived.
type Mode string

const (
	ModeRate             Mode = "rate"              // total = principal + principal*rate/100
	ModeFixedInstallment Mode = "fixed_installment" // installment amount given directly
)

// Terms describes a contract to be scheduled.
type Terms struct {
	Principal         decimal.Decimal
	Mode              Mode
	Rate              decimal.Decimal // Percent over the whole contract, ModeRate only
	InstallmentAmount decimal.Decimal // ModeFixedInstallment only
	Count             int
	AlreadyPaid       int // Installments settled before registration (data migration)
	Frequency         models.Frequency
	FirstDueDate      time.Time
	FirstNumber       int // Sequence number of the first installment; defaults to 1
}

// Plan is the result of scheduling a set of terms.
type Plan struct {
	TotalToPay        decimal.Decimal      `json:"total_to_pay"`
	InstallmentAmount decimal.Decimal      `json:"installment_amount"`
	BalanceDue        decimal.Decimal      `json:"balance_due"`
	EffectiveRate     decimal.Decimal      `json:"effective_rate"`
	Installments      []models.Installment `json:"installments"`
}

// InitialStatus is the status a customer created from this plan starts in.
func (p *Plan) InitialStatus() models.CustomerStatus {
	if p.BalanceDue.LessThanOrEqual(decimal.Zero) {
		return models.CustomerStatusPaid
	}
	return models.CustomerStatusActive
}

// InvalidTermError reports schedule parameters that cannot produce a plan.
type InvalidTermError struct {
	Field  string
	Reason string
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("invalid loan terms: %s %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &InvalidTermError{Field: field, Reason: reason}
}

func (t Terms) validate() error {
	if t.Count <= 0 {
		return invalid("count", "must be positive")
	}
	if !t.Principal.IsPositive() {
		return invalid("principal", "must be positive")
	}
	switch t.Mode {
	case ModeRate:
		if t.Rate.IsNegative() {
			return invalid("rate", "must not be negative")
		}
	case ModeFixedInstallment:
		if !t.InstallmentAmount.IsPositive() {
			return invalid("installment_amount", "must be positive")
		}
	default:
		return invalid("mode", fmt.Sprintf("%q is not supported", t.Mode))
	}
	if t.AlreadyPaid < 0 || t.AlreadyPaid > t.Count {
		return invalid("already_paid", fmt.Sprintf("must be between 0 and %d", t.Count))
	}
	if t.FirstDueDate.IsZero() {
		return invalid("first_due_date", "is required")
	}
	if _, err := money.AddCadence(t.FirstDueDate, t.Frequency, 0); err != nil {
		return invalid("frequency", err.Error())
	}
	return nil
}

// Generate produces the ordered installment list for t. It has no side effects.
func Generate(t Terms) (*Plan, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	count := decimal.NewFromInt(int64(t.Count))
	plan := &Plan{}

	switch t.Mode {
	case ModeRate:
		plan.TotalToPay = t.Principal.Add(t.Principal.Mul(money.Percent(t.Rate)))
		plan.InstallmentAmount = plan.TotalToPay.Div(count)
		plan.EffectiveRate = t.Rate
	case ModeFixedInstallment:
		plan.InstallmentAmount = t.InstallmentAmount
		plan.TotalToPay = t.InstallmentAmount.Mul(count)
		plan.EffectiveRate = plan.TotalToPay.Sub(t.Principal).Div(t.Principal).Mul(decimal.NewFromInt(100))
	}

	first := t.FirstNumber
	if first <= 0 {
		first = 1
	}

	// Amounts are fixed to cents; the last installment absorbs the residual so
	// the schedule reconciles with the contract total.
	each := money.Round(plan.InstallmentAmount)
	target := money.Round(plan.TotalToPay)
	allocated := decimal.Zero

	start := money.Midnight(t.FirstDueDate)
	plan.Installments = make([]models.Installment, 0, t.Count)
	plan.BalanceDue = decimal.Zero

	for i := 0; i < t.Count; i++ {
		due, _ := money.AddCadence(start, t.Frequency, i)

		amount := each
		if i == t.Count-1 {
			amount = money.ClampZero(target.Sub(allocated))
		}
		allocated = allocated.Add(amount)

		inst := models.Installment{
			ID:         uuid.New(),
			Number:     first + i,
			DueDate:    due,
			Amount:     amount,
			PaidAmount: decimal.Zero,
			Status:     models.InstallmentStatusPending,
		}
		if i < t.AlreadyPaid {
			inst.Status = models.InstallmentStatusPaid
			inst.PaidAmount = amount
		} else {
			plan.BalanceDue = plan.BalanceDue.Add(amount)
		}
		plan.Installments = append(plan.Installments, inst)
	}

	return plan, nil
}
