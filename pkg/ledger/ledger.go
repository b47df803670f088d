// Package ledger owns the loan book: customers with their installment
// schedules and the cash transaction ledger. Every mutation validates a copy of
// the affected customer, then commits the copy and its transaction together.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/clock"
	"github.com/mcclellann/loanbook/pkg/fines"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/mcclellann/loanbook/pkg/portfolio"
	"github.com/mcclellann/loanbook/pkg/schedule"
	"github.com/mcclellann/loanbook/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OverpaymentPolicy decides what happens to the part of a payment that
// exceeds the installment it targets.
type OverpaymentPolicy string

const (
	// OverpaymentBalanceOnly lets the excess reduce only the contract balance.
	OverpaymentBalanceOnly OverpaymentPolicy = "balance_only"
	// OverpaymentCarryForward also applies the excess to the following
	// unpaid installments in schedule order.
	OverpaymentCarryForward OverpaymentPolicy = "carry_forward"
)

// DefaultCycleRate is the margin, in percent, assumed on top of the capital
// released by a new credit cycle.
var DefaultCycleRate = decimal.NewFromInt(10)

// Ledger handles the business logic for customers and transactions.
type Ledger struct {
	mu           sync.RWMutex
	customers    []models.Customer
	transactions []models.Transaction

	// saveMu orders saves: each one snapshots and writes before the next starts.
	saveMu sync.Mutex

	storage     store.Storage
	clock       clock.Clock
	logger      *zap.Logger
	fines       fines.Calculator
	aggregator  *portfolio.Aggregator
	cycleRate   decimal.Decimal
	overpayment OverpaymentPolicy
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithFineRate sets the daily compounding fine rate (0.0158 = 1.58%/day).
func WithFineRate(rate decimal.Decimal) Option {
	return func(l *Ledger) { l.fines = fines.NewCalculator(rate) }
}

// WithCycleRate sets the percent margin used to back out the capital
// outflow of a new credit cycle.
func WithCycleRate(rate decimal.Decimal) Option {
	return func(l *Ledger) { l.cycleRate = rate }
}

func WithOverpayment(p OverpaymentPolicy) Option {
	return func(l *Ledger) { l.overpayment = p }
}

// NewLedger creates an empty Ledger backed by s. Call Load to read the
// persisted portfolio.
func NewLedger(s store.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		customers:    []models.Customer{},
		transactions: []models.Transaction{},
		storage:      s,
		clock:        clock.System{},
		logger:       zap.NewNop(),
		fines:        fines.NewCalculator(fines.DefaultDailyRate),
		cycleRate:    DefaultCycleRate,
		overpayment:  OverpaymentBalanceOnly,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.aggregator = portfolio.NewAggregator(l.fines)
	return l
}

// Now is the ledger's reference instant.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

func (l *Ledger) today() time.Time {
	return money.Midnight(l.clock.Now())
}

// Location is the time zone civil dates are interpreted in.
func (l *Ledger) Location() *time.Location {
	return l.clock.Now().Location()
}

// Load replaces the in-memory portfolio with the stored one. Storage errors
// are returned unmodified and leave the current state untouched.
func (l *Ledger) Load(ctx context.Context) error {
	customers, txs, err := l.storage.LoadPortfolio(ctx)
	if err != nil {
		l.logger.Error("failed to load portfolio", zap.Error(err))
		return err
	}

	for i := range customers {
		normalize(&customers[i])
	}
	if customers == nil {
		customers = []models.Customer{}
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	l.mu.Lock()
	l.customers = customers
	l.transactions = txs
	l.mu.Unlock()

	l.logger.Info("portfolio loaded", zap.Int("customers", len(customers)), zap.Int("transactions", len(txs)))
	return nil
}

// Save persists a consistent snapshot. Saves run one at a time and each
// snapshots after the previous one finished writing. The store is called
// outside the state lock; a failure leaves the in-memory state as committed.
func (l *Ledger) Save(ctx context.Context) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	customers, txs := l.snapshot()
	if err := l.storage.SavePortfolio(ctx, customers, txs); err != nil {
		l.logger.Error("failed to save portfolio", zap.Error(err))
		return err
	}
	return nil
}

func (l *Ledger) snapshot() ([]models.Customer, []models.Transaction) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	customers := make([]models.Customer, len(l.customers))
	for i, c := range l.customers {
		customers[i] = c.Clone()
	}
	txs := make([]models.Transaction, len(l.transactions))
	copy(txs, l.transactions)
	return customers, txs
}

// indexOf returns the position of the customer. Callers hold the lock.
func (l *Ledger) indexOf(id uuid.UUID) (int, error) {
	for i := range l.customers {
		if l.customers[i].ID == id {
			return i, nil
		}
	}
	return -1, customerNotFound(id)
}

// mutate runs fn on a copy of the customer under the write lock and commits
// the copy plus any transaction fn returns only when fn succeeds.
func (l *Ledger) mutate(id uuid.UUID, fn func(c *models.Customer) (*models.Transaction, error)) (models.Customer, *models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, err := l.indexOf(id)
	if err != nil {
		return models.Customer{}, nil, err
	}

	c := l.customers[idx].Clone()
	tx, err := fn(&c)
	if err != nil {
		return models.Customer{}, nil, err
	}

	l.customers[idx] = c
	if tx != nil {
		l.transactions = append(l.transactions, *tx)
	}
	return c.Clone(), tx, nil
}

func (l *Ledger) newTransaction(typ models.TransactionType, cat models.TransactionCategory, title string, amount decimal.Decimal, customerID *uuid.UUID) *models.Transaction {
	return &models.Transaction{
		ID:         uuid.New(),
		Type:       typ,
		Category:   cat,
		Title:      title,
		Amount:     amount,
		Date:       l.clock.Now(),
		CustomerID: customerID,
	}
}

// Customer returns a copy of the customer with the given id.
func (l *Ledger) Customer(id uuid.UUID) (models.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, err := l.indexOf(id)
	if err != nil {
		return models.Customer{}, err
	}
	return l.customers[idx].Clone(), nil
}

// Customers returns copies of every customer in registration order.
func (l *Ledger) Customers() []models.Customer {
	customers, _ := l.snapshot()
	return customers
}

// Export returns the whole portfolio in insertion order, the shape Import
// accepts.
func (l *Ledger) Export() ([]models.Customer, []models.Transaction) {
	return l.snapshot()
}

// Transactions returns the ledger newest first.
func (l *Ledger) Transactions() []models.Transaction {
	_, txs := l.snapshot()
	portfolio.NewestFirst(txs)
	return txs
}

// CustomerHistory returns the transactions associated with the customer, newest first.
func (l *Ledger) CustomerHistory(id uuid.UUID) []models.Transaction {
	_, txs := l.snapshot()
	return portfolio.CustomerHistory(txs, id)
}

// Stats computes portfolio statistics as of now.
func (l *Ledger) Stats() models.PortfolioStats {
	customers, txs := l.snapshot()
	return l.aggregator.Compute(customers, txs, l.clock.Now())
}

// Collections returns the collection worklist as of now.
func (l *Ledger) Collections(lookaheadDays int) portfolio.Collections {
	customers, _ := l.snapshot()
	return l.aggregator.Collections(customers, l.clock.Now(), lookaheadDays)
}

func (l *Ledger) Wallet() portfolio.WalletSummary {
	_, txs := l.snapshot()
	return portfolio.Wallet(txs)
}

// Analytics builds the monthly, modality and income trend reports as of now.
func (l *Ledger) Analytics(trendDays int) portfolio.AnalyticsReport {
	customers, txs := l.snapshot()
	return portfolio.Analytics(customers, txs, l.clock.Now(), trendDays)
}

// Simulate schedules terms without touching the portfolio. Missing frequency
// and first due date default the same way Originate does.
func (l *Ledger) Simulate(terms schedule.Terms) (*schedule.Plan, error) {
	terms, err := l.withDefaults(terms)
	if err != nil {
		return nil, err
	}
	return schedule.Generate(terms)
}

func (l *Ledger) withDefaults(terms schedule.Terms) (schedule.Terms, error) {
	if terms.Frequency == "" {
		terms.Frequency = models.FrequencyMonthly
	}
	if terms.Mode == "" {
		terms.Mode = schedule.ModeRate
	}
	if terms.FirstDueDate.IsZero() {
		first, err := money.AddCadence(l.today(), terms.Frequency, 1)
		if err != nil {
			return terms, &schedule.InvalidTermError{Field: "frequency", Reason: err.Error()}
		}
		terms.FirstDueDate = first
	}
	return terms, nil
}

func (l *Ledger) logCommitted(msg string, c models.Customer, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("customer_id", c.ID.String()),
		zap.String("balance_due", c.BalanceDue.StringFixed(money.CentPlaces)),
		zap.String("status", string(c.Status)),
	}, fields...)
	l.logger.Info(msg, fields...)
}

func amountField(key string, d decimal.Decimal) zap.Field {
	return zap.String(key, d.StringFixed(money.CentPlaces))
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &InvalidAmountError{Amount: amount, Reason: "must be greater than zero"}
	}
	return nil
}
