package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

func sampleCustomer() models.Customer {
	due := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)
	return models.Customer{
		ID:     uuid.New(),
		Name:   "Maria Souza",
		Email:  "maria@example.com",
		TaxID:  "123.456.789-00",
		Phone:  "+55 11 99999-0000",
		Status: models.CustomerStatusActive,
		Address: models.Address{
			Street:     "Rua das Flores",
			Number:     "42",
			City:       "Campinas",
			State:      "SP",
			PostalCode: "13010-000",
		},
		JoinedDate:    time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
		TotalLoaned:   decimal.RequireFromString("1100.00"),
		BalanceDue:    decimal.RequireFromString("1040.01"),
		LoanFrequency: models.FrequencyMonthly,
		Installments: []models.Installment{
			{ID: uuid.New(), Number: 1, DueDate: due, Amount: decimal.RequireFromString("110"), PaidAmount: decimal.RequireFromString("59.99"), Status: models.InstallmentStatusPartial},
			{ID: uuid.New(), Number: 2, DueDate: due.AddDate(0, 1, 0), Amount: decimal.RequireFromString("110"), PaidAmount: decimal.Zero, Status: models.InstallmentStatusPending},
		},
	}
}

func TestSQLiteStore_SaveAndLoadPortfolio(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test_portfolio.db")

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	customer := sampleCustomer()
	other := models.Customer{
		ID:            uuid.New(),
		Name:          "João",
		Status:        models.CustomerStatusPaid,
		JoinedDate:    time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
		TotalLoaned:   decimal.NewFromInt(300),
		BalanceDue:    decimal.Zero,
		LoanFrequency: models.FrequencyWeekly,
	}
	owner := customer.ID
	txs := []models.Transaction{
		{ID: uuid.New(), Type: models.TransactionTypeExpense, Category: models.CategoryLoan, Title: "Disbursement", Amount: decimal.NewFromInt(1000), Date: customer.JoinedDate, CustomerID: &owner},
		{ID: uuid.New(), Type: models.TransactionTypeExpense, Category: models.CategoryRent, Title: "Office", Amount: decimal.RequireFromString("75.25"), Date: customer.JoinedDate},
	}

	if err := s.SavePortfolio(context.Background(), []models.Customer{customer, other}, txs); err != nil {
		t.Fatalf("Failed to save portfolio: %v", err)
	}

	customers, loadedTxs, err := s.LoadPortfolio(context.Background())
	if err != nil {
		t.Fatalf("Failed to load portfolio: %v", err)
	}

	if len(customers) != 2 {
		t.Fatalf("Expected 2 customers, got %d", len(customers))
	}
	got := customers[0]
	if got.ID != customer.ID || got.Name != customer.Name {
		t.Errorf("Expected customer %s first, got %s (%s)", customer.Name, got.Name, got.ID)
	}
	if got.Address.City != "Campinas" {
		t.Errorf("Expected city Campinas, got %q", got.Address.City)
	}
	if !got.BalanceDue.Equal(customer.BalanceDue) {
		t.Errorf("Expected BalanceDue %s, got %s", customer.BalanceDue, got.BalanceDue)
	}
	if len(got.Installments) != 2 {
		t.Fatalf("Expected 2 installments, got %d", len(got.Installments))
	}
	if !got.Installments[0].PaidAmount.Equal(decimal.RequireFromString("59.99")) {
		t.Errorf("Expected PaidAmount 59.99, got %s", got.Installments[0].PaidAmount)
	}
	if !got.Installments[0].DueDate.Equal(customer.Installments[0].DueDate) {
		t.Errorf("Expected DueDate %s, got %s", customer.Installments[0].DueDate, got.Installments[0].DueDate)
	}
	if got.Installments[1].Number != 2 {
		t.Errorf("Expected installment order preserved, got number %d second", got.Installments[1].Number)
	}
	if len(customers[1].Installments) != 0 {
		t.Errorf("Expected no installments for %s, got %d", customers[1].Name, len(customers[1].Installments))
	}

	if len(loadedTxs) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(loadedTxs))
	}
	if loadedTxs[0].CustomerID == nil || *loadedTxs[0].CustomerID != owner {
		t.Errorf("Expected first transaction to belong to %s", owner)
	}
	if loadedTxs[1].CustomerID != nil {
		t.Errorf("Expected treasury transaction without customer, got %s", loadedTxs[1].CustomerID)
	}
	if !loadedTxs[1].Amount.Equal(decimal.RequireFromString("75.25")) {
		t.Errorf("Expected amount 75.25, got %s", loadedTxs[1].Amount)
	}
}

func TestSQLiteStore_SaveReplacesSnapshot(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test_replace.db")

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	first := sampleCustomer()
	if err := s.SavePortfolio(ctx, []models.Customer{first}, nil); err != nil {
		t.Fatalf("Failed to save portfolio: %v", err)
	}

	first.Installments = first.Installments[1:]
	if err := s.SavePortfolio(ctx, []models.Customer{first}, nil); err != nil {
		t.Fatalf("Failed to save portfolio: %v", err)
	}

	customers, txs, err := s.LoadPortfolio(ctx)
	if err != nil {
		t.Fatalf("Failed to load portfolio: %v", err)
	}
	if len(customers) != 1 || len(customers[0].Installments) != 1 {
		t.Fatalf("Expected 1 customer with 1 installment, got %+v", customers)
	}
	if len(txs) != 0 {
		t.Errorf("Expected no transactions, got %d", len(txs))
	}
}

func TestSQLiteStore_EmptyDatabase(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_empty.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	customers, txs, err := s.LoadPortfolio(context.Background())
	if err != nil {
		t.Fatalf("Expected empty load to succeed, got %v", err)
	}
	if len(customers) != 0 || len(txs) != 0 {
		t.Errorf("Expected empty portfolio, got %d customers and %d transactions", len(customers), len(txs))
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test_reopen.db")

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	customer := sampleCustomer()
	if err := s.SavePortfolio(context.Background(), []models.Customer{customer}, nil); err != nil {
		t.Fatalf("Failed to save portfolio: %v", err)
	}
	s.Close()

	// reopening runs the column migrations against an existing schema
	s, err = NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()

	customers, _, err := s.LoadPortfolio(context.Background())
	if err != nil {
		t.Fatalf("Failed to load portfolio: %v", err)
	}
	if len(customers) != 1 || customers[0].ID != customer.ID {
		t.Errorf("Expected customer %s after reopen, got %+v", customer.ID, customers)
	}
}

func TestSQLiteStore_ClosedReturnsTypedErrors(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_closed.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	s.Close()

	_, _, err = s.LoadPortfolio(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("Expected *LoadError, got %T: %v", err, err)
	}

	err = s.SavePortfolio(context.Background(), nil, nil)
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Errorf("Expected *SaveError, got %T: %v", err, err)
	}
}

func TestMemoryStore_CopiesSnapshot(t *testing.T) {
	m := NewMemoryStore()
	customer := sampleCustomer()

	if err := m.SavePortfolio(context.Background(), []models.Customer{customer}, nil); err != nil {
		t.Fatalf("Failed to save portfolio: %v", err)
	}
	customer.Installments[0].Status = models.InstallmentStatusPaid

	customers, _, err := m.LoadPortfolio(context.Background())
	if err != nil {
		t.Fatalf("Failed to load portfolio: %v", err)
	}
	if customers[0].Installments[0].Status != models.InstallmentStatusPartial {
		t.Errorf("Expected stored installment to be unaffected by caller mutation, got %s", customers[0].Installments[0].Status)
	}

	m.FailSave = errors.New("disk full")
	err = m.SavePortfolio(context.Background(), nil, nil)
	var saveErr *SaveError
	if !errors.As(err, &saveErr) {
		t.Errorf("Expected *SaveError, got %T", err)
	}
}
