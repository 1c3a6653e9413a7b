package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error kinds. Every error returned by the services matches exactly one of these with errors.Is.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrIntegrity         = errors.New("data integrity violation")
)

// Not found
var (
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrCategoryNotFound    = fmt.Errorf("category %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)
)

// Conflicts
var (
	ErrWalletNameTaken   = fmt.Errorf("%w: wallet name already exists", ErrConflict)
	ErrCategoryNameTaken = fmt.Errorf("%w: category already exists", ErrConflict)
	ErrWalletInUse       = fmt.Errorf("%w: cannot delete wallet with existing transactions", ErrConflict)
	ErrCategoryInUse     = fmt.Errorf("%w: cannot delete category that is in use", ErrConflict)
)

// ValidationError describes a single rejected input field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports kind membership for errors.Is
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InsufficientFundsError is returned when a transfer exceeds the source wallet balance
type InsufficientFundsError struct {
	WalletID  uuid.UUID
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: wallet %s has %s, requested %s", e.WalletID, e.Balance.String(), e.Requested.String())
}

// Is reports kind membership for errors.Is
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// IntegrityError signals that a partially applied operation could not be compensated.
// The ledger may be inconsistent until an operator reconciles the affected wallets.
type IntegrityError struct {
	Op              string
	Err             error
	CompensationErr error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: compensation failed after %v: %v", e.Op, e.Err, e.CompensationErr)
}

// Is reports kind membership for errors.Is
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// Unwrap exposes both the original failure and the compensation failure
func (e *IntegrityError) Unwrap() []error {
	return []error{e.Err, e.CompensationErr}
}

// Validation constants
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
	MaxTagLength         = 50
	MaxTags              = 20
	// MaxAmountScale is the number of fractional digits stored for money columns
	MaxAmountScale = 4
)
