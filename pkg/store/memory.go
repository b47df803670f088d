package store

import (
	"context"
	"errors"
	"sync"

	"github.com/mcclellann/loanbook/pkg/models"
)

var errClosed = errors.New("store is closed")

// MemoryStore keeps the snapshot in process memory. Values are copied on the
// way in and out so callers never share installment slices with the store.
type MemoryStore struct {
	mu           sync.Mutex
	customers    []models.Customer
	transactions []models.Transaction
	closed       bool

	// FailLoad and FailSave make the next calls return the given error.
	FailLoad error
	FailSave error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) LoadPortfolio(ctx context.Context) ([]models.Customer, []models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, &LoadError{Err: errClosed}
	}
	if m.FailLoad != nil {
		return nil, nil, &LoadError{Err: m.FailLoad}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, &LoadError{Err: err}
	}
	return cloneCustomers(m.customers), cloneTransactions(m.transactions), nil
}

func (m *MemoryStore) SavePortfolio(ctx context.Context, customers []models.Customer, transactions []models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &SaveError{Err: errClosed}
	}
	if m.FailSave != nil {
		return &SaveError{Err: m.FailSave}
	}
	if err := ctx.Err(); err != nil {
		return &SaveError{Err: err}
	}
	m.customers = cloneCustomers(customers)
	m.transactions = cloneTransactions(transactions)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneCustomers(in []models.Customer) []models.Customer {
	out := make([]models.Customer, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func cloneTransactions(in []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(in))
	for i, tx := range in {
		if tx.CustomerID != nil {
			id := *tx.CustomerID
			tx.CustomerID = &id
		}
		out[i] = tx
	}
	return out
}
