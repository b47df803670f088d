package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/mcclellann/loanbook/pkg/schedule"
	"go.uber.org/zap"
)

// Profile holds the identity fields of a customer.
type Profile struct {
	Name    string
	Email   string
	TaxID   string
	Phone   string
	Address models.Address
}

func (p Profile) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &InvalidFieldError{Field: "name", Reason: "is required"}
	}
	return nil
}

// OriginationRequest registers a customer together with their first contract.
type OriginationRequest struct {
	Profile
	JoinedDate         time.Time // Defaults to today
	Terms              schedule.Terms
	RecordDisbursement bool // Book the principal as a loan expense
}

// Originate creates a customer from the scheduled terms. The contract starts
// paid when every installment was already settled before registration.
func (l *Ledger) Originate(req OriginationRequest) (models.Customer, error) {
	if err := req.Profile.validate(); err != nil {
		return models.Customer{}, err
	}
	terms, err := l.withDefaults(req.Terms)
	if err != nil {
		return models.Customer{}, err
	}
	plan, err := schedule.Generate(terms)
	if err != nil {
		return models.Customer{}, err
	}

	joined := req.JoinedDate
	if joined.IsZero() {
		joined = l.today()
	}

	c := models.Customer{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Email:         req.Email,
		TaxID:         req.TaxID,
		Phone:         req.Phone,
		Address:       req.Address,
		Status:        plan.InitialStatus(),
		JoinedDate:    joined,
		TotalLoaned:   money.Round(plan.TotalToPay),
		BalanceDue:    plan.BalanceDue,
		LoanFrequency: terms.Frequency,
		Installments:  plan.Installments,
	}

	var tx *models.Transaction
	if req.RecordDisbursement {
		id := c.ID
		tx = l.newTransaction(models.TransactionTypeExpense, models.CategoryLoan, fmt.Sprintf("Disbursement: %s", c.Name), terms.Principal, &id)
	}

	l.mu.Lock()
	l.customers = append(l.customers, c)
	if tx != nil {
		l.transactions = append(l.transactions, *tx)
	}
	l.mu.Unlock()

	l.logCommitted("customer originated", c,
		amountField("principal", terms.Principal),
		amountField("total_to_pay", plan.TotalToPay),
		zap.Int("installments", len(plan.Installments)),
	)
	return c.Clone(), nil
}

// CustomerUpdate edits identity data and, optionally, archives or reopens the
// contract. Schedules and balances change only through the allocator
// operations.
type CustomerUpdate struct {
	Profile
	LoanFrequency models.Frequency      // Unchanged when empty
	Status        models.CustomerStatus // active or inactive; unchanged when empty
}

// UpdateCustomer applies the profile edit and the status change as one
// commit. Asking for active on a paid contract fails; a paid contract reopens
// only through a new cycle.
func (l *Ledger) UpdateCustomer(id uuid.UUID, upd CustomerUpdate) (models.Customer, error) {
	if err := upd.Profile.validate(); err != nil {
		return models.Customer{}, err
	}
	if upd.LoanFrequency != "" {
		if _, err := money.AddCadence(l.today(), upd.LoanFrequency, 0); err != nil {
			return models.Customer{}, &InvalidFieldError{Field: "loan_frequency", Reason: err.Error()}
		}
	}
	switch upd.Status {
	case "", models.CustomerStatusActive, models.CustomerStatusInactive:
	default:
		return models.Customer{}, &InvalidFieldError{Field: "status", Reason: fmt.Sprintf("%q cannot be set directly", upd.Status)}
	}

	c, _, err := l.mutate(id, func(c *models.Customer) (*models.Transaction, error) {
		c.Name = strings.TrimSpace(upd.Name)
		c.Email = upd.Email
		c.TaxID = upd.TaxID
		c.Phone = upd.Phone
		c.Address = upd.Address
		if upd.LoanFrequency != "" {
			c.LoanFrequency = upd.LoanFrequency
		}

		switch {
		case upd.Status == "" || upd.Status == c.Status:
			return nil, nil
		case upd.Status == models.CustomerStatusInactive:
			return nil, transition(c, models.CustomerStatusInactive)
		case c.Status != models.CustomerStatusInactive:
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, upd.Status)
		default:
			return nil, reactivate(c)
		}
	})
	if err != nil {
		return models.Customer{}, err
	}
	l.logCommitted("customer updated", c)
	return c, nil
}

// DeleteCustomer removes the customer. Transactions already booked for them
// stay in the ledger until ClearHistory is called.
func (l *Ledger) DeleteCustomer(id uuid.UUID) error {
	l.mu.Lock()
	idx, err := l.indexOf(id)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.customers = append(l.customers[:idx], l.customers[idx+1:]...)
	l.mu.Unlock()

	l.logger.Info("customer deleted", zap.String("customer_id", id.String()))
	return nil
}

// SetInactive archives a contract without touching its balance.
func (l *Ledger) SetInactive(id uuid.UUID) (models.Customer, error) {
	c, _, err := l.mutate(id, func(c *models.Customer) (*models.Transaction, error) {
		return nil, transition(c, models.CustomerStatusInactive)
	})
	if err != nil {
		return models.Customer{}, err
	}
	l.logCommitted("customer deactivated", c)
	return c, nil
}

// Reactivate brings an inactive contract back, as paid when nothing is owed.
func (l *Ledger) Reactivate(id uuid.UUID) (models.Customer, error) {
	c, _, err := l.mutate(id, func(c *models.Customer) (*models.Transaction, error) {
		return nil, reactivate(c)
	})
	if err != nil {
		return models.Customer{}, err
	}
	l.logCommitted("customer reactivated", c)
	return c, nil
}

func reactivate(c *models.Customer) error {
	to := models.CustomerStatusActive
	if !c.BalanceDue.IsPositive() {
		to = models.CustomerStatusPaid
	}
	if c.Status != models.CustomerStatusInactive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	if err := transition(c, to); err != nil {
		return err
	}
	reconcile(c)
	return nil
}

// Import replaces the whole portfolio with a backup. Records are normalized
// first; a transaction that cannot be booked rejects the import and leaves
// the current portfolio as it was.
func (l *Ledger) Import(customers []models.Customer, txs []models.Transaction) error {
	in := make([]models.Customer, len(customers))
	seenCustomers := map[uuid.UUID]bool{}
	seenInstallments := map[uuid.UUID]bool{}
	for i, c := range customers {
		c = c.Clone()
		if err := (Profile{Name: c.Name}).validate(); err != nil {
			return fmt.Errorf("customer %d: %w", i+1, err)
		}
		c.ID = uniqueID(c.ID, seenCustomers)
		for j := range c.Installments {
			c.Installments[j].ID = uniqueID(c.Installments[j].ID, seenInstallments)
		}
		if c.JoinedDate.IsZero() {
			c.JoinedDate = l.today()
		}
		normalize(&c)
		in[i] = c
	}

	book := make([]models.Transaction, len(txs))
	seenTxs := map[uuid.UUID]bool{}
	for i, tx := range txs {
		tx.ID = uniqueID(tx.ID, seenTxs)
		if err := validateEntry(tx.Type, tx.Category, tx.Amount); err != nil {
			return fmt.Errorf("transaction %d: %w", i+1, err)
		}
		if tx.Date.IsZero() {
			tx.Date = l.clock.Now()
		}
		if tx.CustomerID != nil {
			cid := *tx.CustomerID
			tx.CustomerID = &cid
		}
		book[i] = tx
	}

	l.mu.Lock()
	l.customers = in
	l.transactions = book
	l.mu.Unlock()

	l.logger.Info("portfolio imported", zap.Int("customers", len(in)), zap.Int("transactions", len(book)))
	return nil
}

// uniqueID returns id, or a fresh one when id is nil or already in seen, and
// records the result.
func uniqueID(id uuid.UUID, seen map[uuid.UUID]bool) uuid.UUID {
	if id == uuid.Nil || seen[id] {
		id = uuid.New()
	}
	seen[id] = true
	return id
}
