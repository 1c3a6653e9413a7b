package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid reports whether t is income or expense
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"ownerId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  *uuid.UUID      `json:"categoryId,omitempty"`
	WalletID    *uuid.UUID      `json:"walletId,omitempty"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Tags        []string        `json:"tags"`
	TransferID  *uuid.UUID      `json:"transferId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SignedAmount is the amount as it affects a wallet balance: positive for income,
// negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return SignedAmount(t.Type, t.Amount)
}

// FitsAmountScale reports whether d is stored without rounding
func FitsAmountScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MaxAmountScale))
}

// SignedAmount applies the sign carried by the transaction type to a positive magnitude
func SignedAmount(txType TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

type TransactionFilters struct {
	Type       *TransactionType
	WalletID   *uuid.UUID
	CategoryID *uuid.UUID
	Tag        *string
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int32
	// Page is zero-based
	Page int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	Limit      int32          `json:"limit"`
	TotalItems int64          `json:"totalItems"`
}

// UpdateTransactionData holds the full post-update state written by the repository
type UpdateTransactionData struct {
	Amount      decimal.Decimal
	Type        TransactionType
	CategoryID  *uuid.UUID
	WalletID    *uuid.UUID
	Description string
	Date        time.Time
	Tags        []string
}

type MonthlyStats struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryStat is one (category, type) aggregation bucket. CategoryID is nil for
// uncategorized transactions.
type CategoryStat struct {
	CategoryID   *uuid.UUID      `json:"categoryId"`
	CategoryName *string         `json:"categoryName,omitempty"`
	Type         TransactionType `json:"type"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) (*Transaction, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	// GetByIDForUpdate reads the transaction and locks it for the rest of the unit of work
	GetByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, filters *TransactionFilters) (*PaginatedTransactions, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, data *UpdateTransactionData) (*Transaction, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	SumByTypeAndDateRange(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) (income, expense decimal.Decimal, err error)
	GetCategoryStats(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) ([]*CategoryStat, error)
	SumExpensesByCategories(ctx context.Context, ownerID uuid.UUID, categoryIDs []uuid.UUID, startDate, endDate time.Time) (decimal.Decimal, error)
}

// TxManager runs fn inside a single storage transaction. Repository calls made with the
// context passed to fn join that transaction; returning an error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
