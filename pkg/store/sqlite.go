package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/loanbook/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and snapshot persistence for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and initializes the schema.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err = db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the tables if they don't already exist and adds columns
// introduced after the first release. Decimal fields are TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		tax_id TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		joined_date DATETIME NOT NULL,
		total_loaned TEXT NOT NULL,
		balance_due TEXT NOT NULL,
		loan_frequency TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		number INTEGER NOT NULL,
		due_date DATETIME NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		FOREIGN KEY(customer_id) REFERENCES customers(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		date DATETIME NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		customer_id TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Columns added after the first schema; older databases get them on open.
	migrations := []struct{ table, column string }{
		{"customers", "street TEXT NOT NULL DEFAULT ''"},
		{"customers", "address_number TEXT NOT NULL DEFAULT ''"},
		{"customers", "district TEXT NOT NULL DEFAULT ''"},
		{"customers", "city TEXT NOT NULL DEFAULT ''"},
		{"customers", "state TEXT NOT NULL DEFAULT ''"},
		{"customers", "postal_code TEXT NOT NULL DEFAULT ''"},
		{"installments", "paid_amount TEXT NOT NULL DEFAULT '0'"},
	}
	for _, m := range migrations {
		_, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", m.table, m.column))
		if err != nil && !isDuplicateColumnError(err) {
			return fmt.Errorf("failed to add column %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

// isDuplicateColumnError checks if the error indicates a duplicate column.
func isDuplicateColumnError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "duplicate column name")
}

// LoadPortfolio reads every customer with its installments and every
// transaction, each in the order they were saved.
func (s *SQLiteStore) LoadPortfolio(ctx context.Context) ([]models.Customer, []models.Transaction, error) {
	customers, err := s.loadCustomers(ctx)
	if err != nil {
		return nil, nil, &LoadError{Err: err}
	}
	txs, err := s.loadTransactions(ctx)
	if err != nil {
		return nil, nil, &LoadError{Err: err}
	}
	return customers, txs, nil
}

func (s *SQLiteStore) loadCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, tax_id, phone, street, address_number, district, city, state, postal_code, status, joined_date, total_loaned, balance_due, loan_frequency FROM customers ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var c models.Customer
		var idStr string
		var joined time.Time
		if err := rows.Scan(&idStr, &c.Name, &c.Email, &c.TaxID, &c.Phone,
			&c.Address.Street, &c.Address.Number, &c.Address.District, &c.Address.City, &c.Address.State, &c.Address.PostalCode,
			&c.Status, &joined, &c.TotalLoaned, &c.BalanceDue, &c.LoanFrequency); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid customer id %q: %w", idStr, err)
		}
		c.ID = id
		c.JoinedDate = joined
		c.Installments = []models.Installment{}
		index[id] = len(customers)
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	instRows, err := s.db.QueryContext(ctx, `SELECT id, customer_id, number, due_date, amount, paid_amount, status FROM installments ORDER BY customer_id, position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get installments: %w", err)
	}
	defer instRows.Close()

	for instRows.Next() {
		var inst models.Installment
		var idStr, customerStr string
		var due time.Time
		if err := instRows.Scan(&idStr, &customerStr, &inst.Number, &due, &inst.Amount, &inst.PaidAmount, &inst.Status); err != nil {
			return nil, fmt.Errorf("failed to scan installment row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid installment id %q: %w", idStr, err)
		}
		customerID, err := uuid.Parse(customerStr)
		if err != nil {
			return nil, fmt.Errorf("invalid installment owner %q: %w", customerStr, err)
		}
		i, ok := index[customerID]
		if !ok {
			continue
		}
		inst.ID = id
		inst.DueDate = due
		customers[i].Installments = append(customers[i].Installments, inst)
	}
	if err := instRows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for installments: %w", err)
	}
	return customers, nil
}

func (s *SQLiteStore) loadTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, category, title, amount, date, description, customer_id FROM transactions ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var tx models.Transaction
		var idStr string
		var date time.Time
		var customer sql.NullString
		if err := rows.Scan(&idStr, &tx.Type, &tx.Category, &tx.Title, &tx.Amount, &date, &tx.Description, &customer); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction id %q: %w", idStr, err)
		}
		tx.ID = id
		tx.Date = date
		if customer.Valid && customer.String != "" {
			cid, err := uuid.Parse(customer.String)
			if err != nil {
				return nil, fmt.Errorf("invalid transaction customer %q: %w", customer.String, err)
			}
			tx.CustomerID = &cid
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for transactions: %w", err)
	}
	return txs, nil
}

// SavePortfolio replaces the stored snapshot within a single transaction.
func (s *SQLiteStore) SavePortfolio(ctx context.Context, customers []models.Customer, transactions []models.Transaction) error {
	if err := s.save(ctx, customers, transactions); err != nil {
		return &SaveError{Err: err}
	}
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, customers []models.Customer, transactions []models.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "installments", "customers"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for pos, c := range customers {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO customers (id, position, name, email, tax_id, phone, street, address_number, district, city, state, postal_code, status, joined_date, total_loaned, balance_due, loan_frequency)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), pos, c.Name, c.Email, c.TaxID, c.Phone,
			c.Address.Street, c.Address.Number, c.Address.District, c.Address.City, c.Address.State, c.Address.PostalCode,
			c.Status, c.JoinedDate, c.TotalLoaned, c.BalanceDue, c.LoanFrequency,
		)
		if err != nil {
			return fmt.Errorf("failed to save customer %s: %w", c.ID, err)
		}
		for ipos, inst := range c.Installments {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO installments (id, customer_id, position, number, due_date, amount, paid_amount, status)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				inst.ID.String(), c.ID.String(), ipos, inst.Number, inst.DueDate, inst.Amount, inst.PaidAmount, inst.Status,
			)
			if err != nil {
				return fmt.Errorf("failed to save installment %s: %w", inst.ID, err)
			}
		}
	}

	for pos, t := range transactions {
		var customer sql.NullString
		if t.CustomerID != nil {
			customer = sql.NullString{String: t.CustomerID.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, position, type, category, title, amount, date, description, customer_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID.String(), pos, t.Type, t.Category, t.Title, t.Amount, t.Date, t.Description, customer,
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
