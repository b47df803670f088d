// Package portfolio derives read-only statistics, delinquency alerts and
// collection worklists from a snapshot of customers and transactions.
package portfolio

import (
	"time"

	"github.com/mcclellann/loanbook/pkg/fines"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/shopspring/decimal"
)

// Aggregator computes portfolio figures. It holds no state besides the fine
// calculator and is safe for concurrent use.
type Aggregator struct {
	Fines fines.Calculator
}

func NewAggregator(calc fines.Calculator) *Aggregator {
	return &Aggregator{Fines: calc}
}

type dueState int

const (
	dueLater dueState = iota
	dueToday
	dueOverdue
)

func classify(inst models.Installment, ref time.Time) dueState {
	if money.SameDay(inst.DueDate, ref) {
		return dueToday
	}
	if money.Civil(inst.DueDate).Before(money.Civil(ref)) {
		return dueOverdue
	}
	return dueLater
}

// Compute builds PortfolioStats as of ref. Calling it twice with the same
// inputs yields the same result; inputs are never modified.
func (a *Aggregator) Compute(customers []models.Customer, txs []models.Transaction, ref time.Time) models.PortfolioStats {
	stats := models.PortfolioStats{
		TotalOnStreet:    decimal.Zero,
		TotalLoaned:      decimal.Zero,
		DueToday:         decimal.Zero,
		OverdueWithFines: decimal.Zero,
		ProjectedFines:   decimal.Zero,
		CashBalance:      decimal.Zero,
		PaidToday:        decimal.Zero,
		Profit:           decimal.Zero,
		Alerts:           []models.Alert{},
	}

	for _, c := range customers {
		stats.TotalOnStreet = stats.TotalOnStreet.Add(c.BalanceDue)
		stats.TotalLoaned = stats.TotalLoaned.Add(c.TotalLoaned)

		customerOverdue := false
		for _, inst := range c.Installments {
			if inst.Status == models.InstallmentStatusPaid {
				continue
			}
			switch classify(inst, ref) {
			case dueToday:
				stats.DueToday = stats.DueToday.Add(inst.Amount)
				stats.Alerts = append(stats.Alerts, newAlert(c, inst, 0))
			case dueOverdue:
				customerOverdue = true
				stats.OverdueWithFines = stats.OverdueWithFines.Add(inst.Amount)
				stats.ProjectedFines = stats.ProjectedFines.Add(a.Fines.Outstanding(inst, ref))
				stats.Alerts = append(stats.Alerts, newAlert(c, inst, -1))
			}
		}

		switch c.Status {
		case models.CustomerStatusPaid:
			stats.PaidContracts++
		case models.CustomerStatusInactive:
		default:
			stats.ActiveContracts++
		}
		if customerOverdue && c.Status != models.CustomerStatusPaid {
			stats.OverdueCustomers++
		}
	}
	stats.TotalPaid = stats.TotalLoaned.Sub(stats.TotalOnStreet)

	for _, tx := range txs {
		stats.CashBalance = stats.CashBalance.Add(tx.Signed())
		if tx.Type != models.TransactionTypeIncome {
			continue
		}
		if money.SameDay(tx.Date, ref) {
			stats.PaidToday = stats.PaidToday.Add(tx.Amount)
		}
		if tx.Category == models.CategoryProfit {
			stats.Profit = stats.Profit.Add(tx.Amount)
		}
	}

	for _, alert := range stats.Alerts {
		if alert.DaysRemaining < 0 {
			stats.OverdueCount++
		}
	}
	return stats
}

func newAlert(c models.Customer, inst models.Installment, daysRemaining int) models.Alert {
	return models.Alert{
		InstallmentID: inst.ID,
		CustomerID:    c.ID,
		CustomerName:  c.Name,
		Amount:        inst.Amount,
		DueDate:       inst.DueDate,
		DaysRemaining: daysRemaining,
	}
}

// EffectiveStatus is the status to show for c as of ref. Overdue is never
// stored; an active contract with any unpaid installment due before ref is
// reported as overdue.
func EffectiveStatus(c models.Customer, ref time.Time) models.CustomerStatus {
	if c.Status != models.CustomerStatusActive && c.Status != models.CustomerStatusOverdue {
		return c.Status
	}
	for _, inst := range c.Installments {
		if inst.Status != models.InstallmentStatusPaid && classify(inst, ref) == dueOverdue {
			return models.CustomerStatusOverdue
		}
	}
	return models.CustomerStatusActive
}

// InstallmentStatus is the display status of inst as of ref.
func InstallmentStatus(inst models.Installment, ref time.Time) models.InstallmentStatus {
	if inst.Status != models.InstallmentStatusPaid && classify(inst, ref) == dueOverdue {
		return models.InstallmentStatusOverdue
	}
	return inst.Status
}
