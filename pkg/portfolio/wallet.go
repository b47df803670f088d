package portfolio

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

// WalletSummary breaks the cash ledger down by treasury bucket.
type WalletSummary struct {
	Balance     decimal.Decimal                                `json:"balance"`
	Loan        decimal.Decimal                                `json:"loan"`        // Recoveries minus capital outflows
	Profit      decimal.Decimal                                `json:"profit"`      // Profit-category income
	Operational decimal.Decimal                                `json:"operational"` // Operational-category amounts
	Adjust      decimal.Decimal                                `json:"adjust"`      // Signed manual adjustments
	Expenses    map[models.TransactionCategory]decimal.Decimal `json:"expenses"`    // Expenses outside loan outflows
	TotalSpent  decimal.Decimal                                `json:"total_spent"`
}

// Wallet summarizes txs. Balance always equals the signed sum of the ledger.
func Wallet(txs []models.Transaction) WalletSummary {
	w := WalletSummary{
		Balance:     decimal.Zero,
		Loan:        decimal.Zero,
		Profit:      decimal.Zero,
		Operational: decimal.Zero,
		Adjust:      decimal.Zero,
		Expenses:    map[models.TransactionCategory]decimal.Decimal{},
		TotalSpent:  decimal.Zero,
	}

	for _, tx := range txs {
		w.Balance = w.Balance.Add(tx.Signed())

		switch tx.Category {
		case models.CategoryLoan:
			w.Loan = w.Loan.Add(tx.Signed())
		case models.CategoryProfit:
			if tx.Type == models.TransactionTypeIncome {
				w.Profit = w.Profit.Add(tx.Amount)
			}
		case models.CategoryOperational:
			w.Operational = w.Operational.Add(tx.Amount)
		case models.CategoryAdjust:
			w.Adjust = w.Adjust.Add(tx.Signed())
		}

		if tx.Type == models.TransactionTypeExpense && tx.Category != models.CategoryLoan {
			w.Expenses[tx.Category] = w.Expenses[tx.Category].Add(tx.Amount)
			w.TotalSpent = w.TotalSpent.Add(tx.Amount)
		}
	}
	return w
}

// CustomerHistory returns the transactions associated with customerID, newest first.
func CustomerHistory(txs []models.Transaction, customerID uuid.UUID) []models.Transaction {
	out := []models.Transaction{}
	for _, tx := range txs {
		if tx.BelongsTo(customerID) {
			out = append(out, tx)
		}
	}
	NewestFirst(out)
	return out
}

// NewestFirst sorts txs by date descending, keeping insertion order reversed
// for entries on the same day so the latest recorded comes first.
func NewestFirst(txs []models.Transaction) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})
}
