package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Alert flags an installment that is due today (DaysRemaining 0) or overdue (DaysRemaining -1).
type Alert struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	DaysRemaining int             `json:"days_remaining"`
}

// PortfolioStats is derived from customers and transactions and never persisted.
type PortfolioStats struct {
	TotalOnStreet    decimal.Decimal `json:"total_on_street"`
	TotalLoaned      decimal.Decimal `json:"total_loaned"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	DueToday         decimal.Decimal `json:"due_today"`
	OverdueWithFines decimal.Decimal `json:"overdue_with_fines"` // Overdue principal before fines
	ProjectedFines   decimal.Decimal `json:"projected_fines"`    // Overdue principal with fines accrued to the reference date
	CashBalance      decimal.Decimal `json:"cash_balance"`
	PaidToday        decimal.Decimal `json:"paid_today"`
	Profit           decimal.Decimal `json:"profit"`
	OverdueCount     int             `json:"overdue_count"`
	ActiveContracts  int             `json:"active_contracts"`
	PaidContracts    int             `json:"paid_contracts"`
	OverdueCustomers int             `json:"overdue_customers"`
	Alerts           []Alert         `json:"alerts"`
}
