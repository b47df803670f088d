package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusOverdue  CustomerStatus = "overdue" // derived only, never stored by the ledger
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusPaid     CustomerStatus = "paid"
)

// Frequency is the repayment cadence of a contract.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPartial InstallmentStatus = "partial"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue" // derived only
)

type Address struct {
	Street     string `json:"street,omitempty"`
	Number     string `json:"number,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

type Installment struct {
	ID         uuid.UUID         `json:"id"`
	Number     int               `json:"number"`
	DueDate    time.Time         `json:"due_date"`
	Amount     decimal.Decimal   `json:"amount"`      // Nominal amount fixed at generation
	PaidAmount decimal.Decimal   `json:"paid_amount"` // Cumulative amount applied by payments
	Status     InstallmentStatus `json:"status"`
}

// Unpaid returns the part of the nominal amount not yet covered by payments.
func (i Installment) Unpaid() decimal.Decimal {
	if i.Status == InstallmentStatusPaid {
		return decimal.Zero
	}
	rest := i.Amount.Sub(i.PaidAmount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

type Customer struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	TaxID         string          `json:"tax_id,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Address       Address         `json:"address"`
	Status        CustomerStatus  `json:"status"`
	JoinedDate    time.Time       `json:"joined_date"`
	TotalLoaned   decimal.Decimal `json:"total_loaned"` // Sum disbursed (to be repaid) across the contract's life
	BalanceDue    decimal.Decimal `json:"balance_due"`
	LoanFrequency Frequency       `json:"loan_frequency"`
	Installments  []Installment   `json:"installments"`
}

// Clone returns a copy that shares no installment storage with c.
func (c Customer) Clone() Customer {
	out := c
	if c.Installments != nil {
		out.Installments = make([]Installment, len(c.Installments))
		copy(out.Installments, c.Installments)
	}
	return out
}

// InstallmentIndex returns the position of the installment with the given ID, or -1.
func (c Customer) InstallmentIndex(id uuid.UUID) int {
	for i := range c.Installments {
		if c.Installments[i].ID == id {
			return i
		}
	}
	return -1
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

type TransactionCategory string

const (
	CategoryLoan        TransactionCategory = "loan"
	CategoryProfit      TransactionCategory = "profit"
	CategoryOperational TransactionCategory = "operational"
	CategoryRent        TransactionCategory = "rent"
	CategorySale        TransactionCategory = "sale"
	CategoryAdjust      TransactionCategory = "adjust"
	CategoryMarketing   TransactionCategory = "marketing"
)

// Valid reports whether c is one of the known categories.
func (c TransactionCategory) Valid() bool {
	switch c {
	case CategoryLoan, CategoryProfit, CategoryOperational, CategoryRent, CategorySale, CategoryAdjust, CategoryMarketing:
		return true
	}
	return false
}

type Transaction struct {
	ID          uuid.UUID           `json:"id"`
	Type        TransactionType     `json:"type"`
	Category    TransactionCategory `json:"category"`
	Title       string              `json:"title"`
	Amount      decimal.Decimal     `json:"amount"` // Always positive; Type carries the sign
	Date        time.Time           `json:"date"`
	Description string              `json:"description,omitempty"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionTypeExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// BelongsTo reports whether the transaction is associated with the customer.
func (t Transaction) BelongsTo(customerID uuid.UUID) bool {
	return t.CustomerID != nil && *t.CustomerID == customerID
}
