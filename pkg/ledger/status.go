package ledger

import (
	"fmt"

	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

// Stored transitions. Overdue never appears here; it is derived at read time.
var transitions = map[models.CustomerStatus][]models.CustomerStatus{
	models.CustomerStatusActive:   {models.CustomerStatusPaid, models.CustomerStatusInactive},
	models.CustomerStatusPaid:     {models.CustomerStatusActive, models.CustomerStatusInactive},
	models.CustomerStatusInactive: {models.CustomerStatusActive, models.CustomerStatusPaid},
}

func canTransition(from, to models.CustomerStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(c *models.Customer, to models.CustomerStatus) error {
	if !canTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return nil
}

// reconcile re-derives the stored status from the balance after an allocator
// mutation. A contract whose balance reaches zero is paid and every remaining
// installment is closed with it. Inactive contracts keep their status.
func reconcile(c *models.Customer) {
	c.BalanceDue = money.ClampZero(c.BalanceDue)
	if c.BalanceDue.IsPositive() {
		if c.Status == models.CustomerStatusOverdue {
			c.Status = models.CustomerStatusActive
		}
		return
	}
	for i := range c.Installments {
		c.Installments[i].Status = models.InstallmentStatusPaid
	}
	if c.Status != models.CustomerStatusInactive {
		c.Status = models.CustomerStatusPaid
	}
}

// normalize repairs loaded or imported customers so the stored invariants
// hold: no stored overdue, a balance that matches the open installments when
// it was left at zero, and paid status iff the balance is zero.
func normalize(c *models.Customer) {
	if c.Installments == nil {
		c.Installments = []models.Installment{}
	}
	if c.TotalLoaned.IsNegative() {
		c.TotalLoaned = decimal.Zero
	}

	open := decimal.Zero
	for i := range c.Installments {
		inst := &c.Installments[i]
		if inst.Number <= 0 {
			inst.Number = i + 1
		}
		switch inst.Status {
		case models.InstallmentStatusPaid:
			if inst.PaidAmount.IsZero() {
				inst.PaidAmount = inst.Amount
			}
		case models.InstallmentStatusPartial, models.InstallmentStatusPending, models.InstallmentStatusOverdue, "":
			if inst.PaidAmount.IsPositive() {
				inst.Status = models.InstallmentStatusPartial
			} else {
				inst.Status = models.InstallmentStatusPending
			}
		}
		open = open.Add(inst.Unpaid())
	}

	if c.BalanceDue.LessThanOrEqual(decimal.Zero) && open.IsPositive() && c.Status != models.CustomerStatusPaid {
		c.BalanceDue = open
	}
	if c.LoanFrequency == "" {
		c.LoanFrequency = models.FrequencyMonthly
	}

	switch c.Status {
	case models.CustomerStatusInactive:
		c.BalanceDue = money.ClampZero(c.BalanceDue)
	case models.CustomerStatusPaid:
		if c.BalanceDue.IsPositive() {
			c.Status = models.CustomerStatusActive
		}
		reconcile(c)
	default:
		c.Status = models.CustomerStatusActive
		reconcile(c)
	}
}
