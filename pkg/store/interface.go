package store

import (
	"context"
	"fmt"

	"github.com/mcclellann/loanbook/pkg/models"
)

// Storage is the load/save contract between the ledger and its persistence.
// Implementations persist whole snapshots; the ledger never interleaves a save
// with a mutation.
type Storage interface {
	// LoadPortfolio returns every customer and transaction. An empty store
	// yields empty slices, not an error.
	LoadPortfolio(ctx context.Context) ([]models.Customer, []models.Transaction, error)
	// SavePortfolio replaces the stored snapshot with the given one.
	SavePortfolio(ctx context.Context, customers []models.Customer, transactions []models.Transaction) error

	Close() error
}

// LoadError wraps a failure to read the portfolio from storage.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load portfolio: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError wraps a failure to persist the portfolio.
type SaveError struct {
	Err error
}

func (e *SaveError) Error() string { return fmt.Sprintf("save portfolio: %v", e.Err) }
func (e *SaveError) Unwrap() error { return e.Err }
