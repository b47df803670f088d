package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/loanbook/pkg/ledger"
	"github.com/mcclellann/loanbook/pkg/models"
	"github.com/mcclellann/loanbook/pkg/money"
	"github.com/mcclellann/loanbook/pkg/portfolio"
	"github.com/mcclellann/loanbook/pkg/schedule"
	"github.com/mcclellann/loanbook/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// termsRequest carries loan terms as received over the wire.
type termsRequest struct {
	Principal         decimal.Decimal `json:"principal"`
	Mode              string          `json:"mode" validate:"omitempty,oneof=rate fixed_installment"`
	Rate              decimal.Decimal `json:"rate"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	Installments      int             `json:"installments" validate:"required,gt=0"`
	AlreadyPaid       int             `json:"already_paid" validate:"gte=0"`
	Frequency         string          `json:"frequency"`
	FirstDueDate      string          `json:"first_due_date" validate:"omitempty,datetime=2006-01-02"`
}

type profileRequest struct {
	Name    string         `json:"name" validate:"required"`
	Email   string         `json:"email" validate:"omitempty,email"`
	TaxID   string         `json:"tax_id"`
	Phone   string         `json:"phone"`
	Address models.Address `json:"address"`
}

func (p profileRequest) profile() ledger.Profile {
	return ledger.Profile{Name: p.Name, Email: p.Email, TaxID: p.TaxID, Phone: p.Phone, Address: p.Address}
}

type createCustomerRequest struct {
	profileRequest
	termsRequest
	JoinedDate         string `json:"joined_date" validate:"omitempty,datetime=2006-01-02"`
	RecordDisbursement bool   `json:"record_disbursement"`
}

type updateCustomerRequest struct {
	profileRequest
	LoanFrequency string `json:"loan_frequency"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type cycleRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments" validate:"required,gt=0"`
	Frequency    string          `json:"frequency"`
	FirstDueDate string          `json:"first_due_date" validate:"omitempty,datetime=2006-01-02"`
}

type entryRequest struct {
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Category    string          `json:"category" validate:"required"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string          `json:"description"`
	CustomerID  *uuid.UUID      `json:"customer_id"`
}

type importRequest struct {
	Customers    []models.Customer    `json:"customers"`
	Transactions []models.Transaction `json:"transactions"`
}

// customerResponse adds the read-time status to the stored customer.
type customerResponse struct {
	models.Customer
	EffectiveStatus  models.CustomerStatus `json:"effective_status"`
	BalanceFormatted string                `json:"balance_formatted"`
}

type mutationResponse struct {
	Customer    customerResponse    `json:"customer"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

func (s *Server) view(c models.Customer) customerResponse {
	ref := s.ledger.Now()
	for i := range c.Installments {
		c.Installments[i].Status = portfolio.InstallmentStatus(c.Installments[i], ref)
	}
	return customerResponse{
		Customer:         c,
		EffectiveStatus:  portfolio.EffectiveStatus(c, ref),
		BalanceFormatted: money.FormatBRL(c.BalanceDue),
	}
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers := s.ledger.Customers()
	out := make([]customerResponse, len(customers))
	for i, c := range customers {
		out[i] = s.view(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	terms, err := s.terms(req.termsRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	joined, err := s.optionalDate(req.JoinedDate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	c, err := s.ledger.Originate(ledger.OriginationRequest{
		Profile:            req.profile(),
		JoinedDate:         joined,
		Terms:              terms,
		RecordDisbursement: req.RecordDisbursement,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusCreated, s.view(c))
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := s.ledger.Customer(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(c))
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateCustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	var freq models.Frequency
	if req.LoanFrequency != "" {
		f, err := money.ParseFrequency(req.LoanFrequency)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		freq = f
	}

	c, err := s.ledger.UpdateCustomer(id, ledger.CustomerUpdate{
		Profile:       req.profile(),
		LoanFrequency: freq,
		Status:        models.CustomerStatus(req.Status),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusOK, s.view(c))
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.ledger.DeleteCustomer(id); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) payInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	installmentID, ok := pathID(w, r, "installmentId")
	if !ok {
		return
	}
	var req paymentRequest
	if !s.decode(w, r, &req) {
		return
	}

	c, tx, err := s.ledger.PayInstallment(id, installmentID, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Customer: s.view(c), Transaction: tx})
}

func (s *Server) deleteInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	installmentID, ok := pathID(w, r, "installmentId")
	if !ok {
		return
	}

	c, err := s.ledger.DeleteInstallment(id, installmentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusOK, s.view(c))
}

func (s *Server) settleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, tx, err := s.ledger.SettleAll(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Customer: s.view(c), Transaction: tx})
}

func (s *Server) newCycleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req cycleRequest
	if !s.decode(w, r, &req) {
		return
	}

	cycle := ledger.CycleRequest{Amount: req.Amount, Installments: req.Installments}
	if req.Frequency != "" {
		f, err := money.ParseFrequency(req.Frequency)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cycle.Frequency = f
	}
	first, err := s.optionalDate(req.FirstDueDate)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cycle.FirstDueDate = first

	c, tx, err := s.ledger.ApplyNewCycle(id, cycle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Customer: s.view(c), Transaction: tx})
}

func (s *Server) customerHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.CustomerHistory(id))
}

func (s *Server) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	removed := s.ledger.ClearHistory(id)
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Transactions())
}

func (s *Server) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !s.decode(w, r, &req) {
		return
	}
	date, err := s.optionalDate(req.Date)
	if err != nil {
		s.writeError(w, err)
		return
	}

	tx, err := s.ledger.RecordEntry(ledger.EntryRequest{
		Type:        models.TransactionType(req.Type),
		Category:    models.TransactionCategory(req.Category),
		Title:       req.Title,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
		CustomerID:  req.CustomerID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Stats())
}

func (s *Server) collectionsHandler(w http.ResponseWriter, r *http.Request) {
	days := s.lookaheadDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}
	writeJSON(w, http.StatusOK, s.ledger.Collections(days))
}

func (s *Server) walletHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Wallet())
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	days := portfolio.DefaultTrendDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > portfolio.MaxTrendDays {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}
	writeJSON(w, http.StatusOK, s.ledger.Analytics(days))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	customers, txs := s.ledger.Export()
	writeJSON(w, http.StatusOK, importRequest{Customers: customers, Transactions: txs})
}

func (s *Server) importHandler(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.ledger.Import(req.Customers, req.Transactions); err != nil {
		s.writeError(w, err)
		return
	}
	if !s.persist(r.Context(), w) {
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Stats())
}

func (s *Server) simulateHandler(w http.ResponseWriter, r *http.Request) {
	var req termsRequest
	if !s.decode(w, r, &req) {
		return
	}
	terms, err := s.terms(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	plan, err := s.ledger.Simulate(terms)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) terms(req termsRequest) (schedule.Terms, error) {
	freq, err := money.ParseFrequency(req.Frequency)
	if err != nil {
		return schedule.Terms{}, &schedule.InvalidTermError{Field: "frequency", Reason: err.Error()}
	}
	first, err := s.optionalDate(req.FirstDueDate)
	if err != nil {
		return schedule.Terms{}, err
	}
	return schedule.Terms{
		Principal:         req.Principal,
		Mode:              schedule.Mode(req.Mode),
		Rate:              req.Rate,
		InstallmentAmount: req.InstallmentAmount,
		Count:             req.Installments,
		AlreadyPaid:       req.AlreadyPaid,
		Frequency:         freq,
		FirstDueDate:      first,
	}, nil
}

func (s *Server) optionalDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := money.ParseDate(v, s.ledger.Location())
	if err != nil {
		return time.Time{}, &ledger.InvalidFieldError{Field: "date", Reason: err.Error()}
	}
	return t, nil
}

// persist saves after a committed mutation. The in-memory state stays
// committed when the store fails; the caller sees a 500.
func (s *Server) persist(ctx context.Context, w http.ResponseWriter) bool {
	if err := s.ledger.Save(ctx); err != nil {
		s.writeError(w, err)
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, err)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[key])
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid %s", key), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps ledger, schedule and storage errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		termErr    *schedule.InvalidTermError
		amountErr  *ledger.InvalidAmountError
		fieldErr   *ledger.InvalidFieldError
		validation validator.ValidationErrors
		notFound   *ledger.NotFoundError
		loadErr    *store.LoadError
		saveErr    *store.SaveError
	)

	switch {
	case errors.As(err, &termErr), errors.As(err, &amountErr), errors.As(err, &fieldErr), errors.As(err, &validation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrInstallmentPaid), errors.Is(err, ledger.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &loadErr), errors.As(err, &saveErr):
		s.logger.Error("storage failure", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		s.logger.Error("unexpected error", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
