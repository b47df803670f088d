package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mcclellann/loanbook/pkg/clock"
	"github.com/mcclellann/loanbook/pkg/config"
	"github.com/mcclellann/loanbook/pkg/ledger"
	"github.com/mcclellann/loanbook/pkg/logger"
	"github.com/mcclellann/loanbook/pkg/store"
	"go.uber.org/zap"
)

// Server holds the ledger instance.
type Server struct {
	ledger        *ledger.Ledger
	storage       store.Storage // Keep a reference to the storage to close it
	logger        *zap.Logger
	validate      *validator.Validate
	lookaheadDays int
}

func NewServer(s store.Storage, log *zap.Logger, lookaheadDays int, opts ...ledger.Option) *Server {
	opts = append(opts, ledger.WithLogger(log))
	return &Server{
		ledger:        ledger.NewLedger(s, opts...),
		storage:       s,
		logger:        log,
		validate:      validator.New(),
		lookaheadDays: lookaheadDays,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/customers", s.listCustomersHandler).Methods("GET")
	router.HandleFunc("/customers", s.createCustomerHandler).Methods("POST")
	router.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods("GET")
	router.HandleFunc("/customers/{id}", s.updateCustomerHandler).Methods("PUT")
	router.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods("DELETE")
	router.HandleFunc("/customers/{id}/installments/{installmentId}/payments", s.payInstallmentHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/installments/{installmentId}", s.deleteInstallmentHandler).Methods("DELETE")
	router.HandleFunc("/customers/{id}/settlement", s.settleHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/cycles", s.newCycleHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/transactions", s.customerHistoryHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/transactions", s.clearHistoryHandler).Methods("DELETE")

	router.HandleFunc("/transactions", s.listTransactionsHandler).Methods("GET")
	router.HandleFunc("/transactions", s.createTransactionHandler).Methods("POST")

	router.HandleFunc("/portfolio/stats", s.statsHandler).Methods("GET")
	router.HandleFunc("/portfolio/collections", s.collectionsHandler).Methods("GET")
	router.HandleFunc("/portfolio/wallet", s.walletHandler).Methods("GET")
	router.HandleFunc("/portfolio/analytics", s.analyticsHandler).Methods("GET")
	router.HandleFunc("/portfolio/export", s.exportHandler).Methods("GET")
	router.HandleFunc("/portfolio/import", s.importHandler).Methods("POST")

	router.HandleFunc("/simulations", s.simulateHandler).Methods("POST")
	return router
}

func openStorage(cfg *config.AppConfig) (store.Storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(cfg.Storage.DSN)
	}
}

func main() {
	cfg, err := config.LoadFromConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	storage, err := openStorage(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer storage.Close()

	server := NewServer(storage, zlog, cfg.Alerts.DaysBefore,
		ledger.WithClock(clock.System{Location: cfg.Location()}),
		ledger.WithFineRate(cfg.FineRate()),
		ledger.WithCycleRate(cfg.CycleRate()),
		ledger.WithOverpayment(ledger.OverpaymentPolicy(cfg.Ledger.Overpayment)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.ledger.Load(ctx); err != nil {
		zlog.Fatal("failed to load portfolio", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlog.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.Int("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server stopped", zap.Error(err))
	}
	zlog.Info("server stopped")
}
