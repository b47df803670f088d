package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInstallmentPaid is returned when a payment targets an installment
	// that is already settled.
	ErrInstallmentPaid = errors.New("installment is already paid")
	// ErrInvalidTransition is returned by explicit status changes the
	// contract state machine does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NotFoundError reports an unknown customer or installment id.
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidAmountError reports a monetary input the ledger refuses to apply.
type InvalidAmountError struct {
	Amount decimal.Decimal
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: %s", e.Amount.String(), e.Reason)
}

// InvalidFieldError reports a non-monetary input that fails validation.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func customerNotFound(id uuid.UUID) error {
	return &NotFoundError{Kind: "customer", ID: id}
}

func installmentNotFound(id uuid.UUID) error {
	return &NotFoundError{Kind: "installment", ID: id}
}
