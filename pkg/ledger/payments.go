package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/mcclellann/loanbook/pkg/schedule"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PayInstallment applies amount to one installment and records the income.
// A payment that covers the installment's remaining amount marks it paid,
// anything less leaves it partial. The contract balance drops by the full
// amount, never below zero.
func (l *Ledger) PayInstallment(customerID, installmentID uuid.UUID, amount decimal.Decimal) (models.Customer, *models.Transaction, error) {
	if err := positive(amount); err != nil {
		return models.Customer{}, nil, err
	}

	c, tx, err := l.mutate(customerID, func(c *models.Customer) (*models.Transaction, error) {
		i := c.InstallmentIndex(installmentID)
		if i < 0 {
			return nil, installmentNotFound(installmentID)
		}
		inst := &c.Installments[i]
		if inst.Status == models.InstallmentStatusPaid {
			return nil, ErrInstallmentPaid
		}

		inst.PaidAmount = inst.PaidAmount.Add(amount)
		excess := inst.PaidAmount.Sub(inst.Amount)
		if excess.IsNegative() {
			inst.Status = models.InstallmentStatusPartial
		} else {
			inst.Status = models.InstallmentStatusPaid
			if l.overpayment == OverpaymentCarryForward && excess.IsPositive() {
				inst.PaidAmount = inst.Amount
				carryForward(c.Installments[i+1:], excess)
			}
		}

		c.BalanceDue = money.ClampZero(c.BalanceDue.Sub(amount))
		reconcile(c)

		title := fmt.Sprintf("Installment %d: %s", inst.Number, c.Name)
		id := c.ID
		return l.newTransaction(models.TransactionTypeIncome, models.CategoryLoan, title, amount, &id), nil
	})
	if err != nil {
		return models.Customer{}, nil, err
	}

	l.logCommitted("installment paid", c,
		zap.String("installment_id", installmentID.String()),
		amountField("amount", amount),
	)
	return c, tx, nil
}

// carryForward spreads excess over the unpaid installments in order.
func carryForward(rest []models.Installment, excess decimal.Decimal) {
	for j := range rest {
		if !excess.IsPositive() {
			return
		}
		next := &rest[j]
		open := next.Unpaid()
		if !open.IsPositive() {
			continue
		}
		applied := decimal.Min(open, excess)
		next.PaidAmount = next.PaidAmount.Add(applied)
		excess = excess.Sub(applied)
		if applied.Equal(open) {
			next.Status = models.InstallmentStatusPaid
		} else {
			next.Status = models.InstallmentStatusPartial
		}
	}
}

// SettleAll closes the contract: every installment becomes paid, the balance
// goes to zero and the prior balance is booked as profit income.
func (l *Ledger) SettleAll(customerID uuid.UUID) (models.Customer, *models.Transaction, error) {
	var settled decimal.Decimal

	c, tx, err := l.mutate(customerID, func(c *models.Customer) (*models.Transaction, error) {
		settled = c.BalanceDue
		if !settled.IsPositive() {
			return nil, &InvalidAmountError{Amount: settled, Reason: "contract has no balance to settle"}
		}

		for i := range c.Installments {
			inst := &c.Installments[i]
			if inst.Status != models.InstallmentStatusPaid {
				inst.PaidAmount = money.Max(inst.PaidAmount, inst.Amount)
				inst.Status = models.InstallmentStatusPaid
			}
		}
		c.BalanceDue = decimal.Zero
		if c.Status != models.CustomerStatusInactive {
			c.Status = models.CustomerStatusPaid
		}

		title := fmt.Sprintf("Settlement: %s", c.Name)
		id := c.ID
		return l.newTransaction(models.TransactionTypeIncome, models.CategoryProfit, title, settled, &id), nil
	})
	if err != nil {
		return models.Customer{}, nil, err
	}

	l.logCommitted("contract settled", c, amountField("amount", settled))
	return c, tx, nil
}

// DeleteInstallment removes an installment from the schedule. Its unpaid part
// comes off the balance. No transaction is recorded.
func (l *Ledger) DeleteInstallment(customerID, installmentID uuid.UUID) (models.Customer, error) {
	var removed models.Installment

	c, _, err := l.mutate(customerID, func(c *models.Customer) (*models.Transaction, error) {
		i := c.InstallmentIndex(installmentID)
		if i < 0 {
			return nil, installmentNotFound(installmentID)
		}
		removed = c.Installments[i]
		c.Installments = append(c.Installments[:i], c.Installments[i+1:]...)

		if removed.Status != models.InstallmentStatusPaid {
			// partial payments already came off the balance; deduct only what is left
			c.BalanceDue = money.ClampZero(c.BalanceDue.Sub(removed.Unpaid()))
			reconcile(c)
		}
		return nil, nil
	})
	if err != nil {
		return models.Customer{}, err
	}

	l.logCommitted("installment deleted", c,
		zap.String("installment_id", installmentID.String()),
		amountField("unpaid", removed.Unpaid()),
	)
	return c, nil
}

// CycleRequest grants a new credit cycle on an existing contract.
type CycleRequest struct {
	Amount       decimal.Decimal  // Amount to be repaid over the new installments
	Installments int              // Number of new installments
	Frequency    models.Frequency // Defaults to the customer's frequency
	FirstDueDate time.Time        // Defaults to one cadence step from today
}

// ApplyNewCycle appends a new schedule to the contract, reopening it, and
// records the capital released as a loan expense. The outflow is the amount
// net of the configured cycle margin.
func (l *Ledger) ApplyNewCycle(customerID uuid.UUID, req CycleRequest) (models.Customer, *models.Transaction, error) {
	if err := positive(req.Amount); err != nil {
		return models.Customer{}, nil, err
	}
	outflow := money.Round(req.Amount.Div(decimal.NewFromInt(1).Add(money.Percent(l.cycleRate))))

	c, tx, err := l.mutate(customerID, func(c *models.Customer) (*models.Transaction, error) {
		freq := req.Frequency
		if freq == "" {
			freq = c.LoanFrequency
		}
		next := 1
		for _, inst := range c.Installments {
			if inst.Number >= next {
				next = inst.Number + 1
			}
		}

		terms, err := l.withDefaults(schedule.Terms{
			Principal:    req.Amount,
			Mode:         schedule.ModeRate,
			Rate:         decimal.Zero,
			Count:        req.Installments,
			Frequency:    freq,
			FirstDueDate: req.FirstDueDate,
			FirstNumber:  next,
		})
		if err != nil {
			return nil, err
		}
		plan, err := schedule.Generate(terms)
		if err != nil {
			return nil, err
		}

		c.Installments = append(c.Installments, plan.Installments...)
		c.TotalLoaned = c.TotalLoaned.Add(req.Amount)
		c.BalanceDue = c.BalanceDue.Add(req.Amount)
		c.LoanFrequency = terms.Frequency
		c.Status = models.CustomerStatusActive

		title := fmt.Sprintf("New cycle: %s", c.Name)
		id := c.ID
		return l.newTransaction(models.TransactionTypeExpense, models.CategoryLoan, title, outflow, &id), nil
	})
	if err != nil {
		return models.Customer{}, nil, err
	}

	l.logCommitted("credit cycle applied", c,
		amountField("amount", req.Amount),
		amountField("outflow", outflow),
		zap.Int("installments", req.Installments),
	)
	return c, tx, nil
}
