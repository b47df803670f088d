package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntryRequest is a manual treasury movement: rent, marketing, a cash
// adjustment, a sale and so on.
type EntryRequest struct {
	Type        models.TransactionType
	Category    models.TransactionCategory
	Title       string
	Amount      decimal.Decimal
	Date        time.Time // Defaults to now
	Description string
	CustomerID  *uuid.UUID
}

func validateEntry(typ models.TransactionType, cat models.TransactionCategory, amount decimal.Decimal) error {
	if typ != models.TransactionTypeIncome && typ != models.TransactionTypeExpense {
		return &InvalidFieldError{Field: "type", Reason: "must be income or expense"}
	}
	if !cat.Valid() {
		return &InvalidFieldError{Field: "category", Reason: "unknown category " + string(cat)}
	}
	return positive(amount)
}

// RecordEntry appends a manual transaction to the ledger.
func (l *Ledger) RecordEntry(req EntryRequest) (models.Transaction, error) {
	if err := validateEntry(req.Type, req.Category, req.Amount); err != nil {
		return models.Transaction{}, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = string(req.Category)
	}
	tx := l.newTransaction(req.Type, req.Category, title, req.Amount, nil)
	tx.Description = req.Description
	if !req.Date.IsZero() {
		tx.Date = req.Date
	}

	l.mu.Lock()
	if req.CustomerID != nil {
		if _, err := l.indexOf(*req.CustomerID); err != nil {
			l.mu.Unlock()
			return models.Transaction{}, err
		}
		id := *req.CustomerID
		tx.CustomerID = &id
	}
	l.transactions = append(l.transactions, *tx)
	l.mu.Unlock()

	l.logger.Info("entry recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("category", string(tx.Category)),
		amountField("amount", tx.Amount),
	)
	return *tx, nil
}

// ClearHistory deletes every transaction associated with the customer and
// returns how many were removed. The customer need not exist any more.
func (l *Ledger) ClearHistory(customerID uuid.UUID) int {
	l.mu.Lock()
	kept := make([]models.Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		if !tx.BelongsTo(customerID) {
			kept = append(kept, tx)
		}
	}
	removed := len(l.transactions) - len(kept)
	l.transactions = kept
	l.mu.Unlock()

	l.logger.Info("history cleared", zap.String("customer_id", customerID.String()), zap.Int("removed", removed))
	return removed
}
