package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletType string

const (
	WalletTypeCash       WalletType = "cash"
	WalletTypeBank       WalletType = "bank"
	WalletTypeCreditCard WalletType = "credit_card"
	WalletTypeEWallet    WalletType = "e-wallet"
)

// IsValid reports whether t is one of the storage-accepted wallet types
func (t WalletType) IsValid() bool {
	switch t {
	case WalletTypeCash, WalletTypeBank, WalletTypeCreditCard, WalletTypeEWallet:
		return true
	}
	return false
}

const DefaultCurrency = "VND"

type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	OwnerID          uuid.UUID       `json:"ownerId"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Type             WalletType      `json:"type"`
	Currency         string          `json:"currency"`
	InitialBalance   decimal.Decimal `json:"initialBalance"`
	Balance          decimal.Decimal `json:"balance"`
	Icon             string          `json:"icon"`
	Color            string          `json:"color"`
	IsActive         bool            `json:"isActive"`
	ExcludeFromStats bool            `json:"excludeFromStats"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// UpdateWalletData holds the mutable wallet fields. Balance is never part of it.
type UpdateWalletData struct {
	Name             string
	Description      string
	Type             WalletType
	Currency         string
	Icon             string
	Color            string
	IsActive         bool
	ExcludeFromStats bool
}

// CurrencyTotal is the summed balance of all counted wallets in one currency
type CurrencyTotal struct {
	Currency    string          `json:"currency"`
	Total       decimal.Decimal `json:"total"`
	WalletCount int32           `json:"walletCount"`
}

// WalletLedgerSums is the replay of every transaction referencing a wallet
type WalletLedgerSums struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *Wallet) (*Wallet, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Wallet, error)
	GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*Wallet, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, data *UpdateWalletData) (*Wallet, error)
	// Delete removes the wallet only if no transaction references it
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// AdjustBalance atomically adds delta (which may be negative) to the stored balance
	AdjustBalance(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*Wallet, error)
	// Withdraw atomically subtracts amount only while the balance covers it.
	// Returns *InsufficientFundsError otherwise.
	Withdraw(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) (*Wallet, error)
	CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
	GetTotalsByCurrency(ctx context.Context, ownerID uuid.UUID, currency *string) ([]*CurrencyTotal, error)
	GetLedgerSums(ctx context.Context, ownerID, id uuid.UUID) (*WalletLedgerSums, error)
}

// WalletReconciliation compares a stored balance against a replay of the wallet's transactions
type WalletReconciliation struct {
	WalletID        uuid.UUID       `json:"walletId"`
	InitialBalance  decimal.Decimal `json:"initialBalance"`
	Income          decimal.Decimal `json:"income"`
	Expense         decimal.Decimal `json:"expense"`
	ExpectedBalance decimal.Decimal `json:"expectedBalance"`
	StoredBalance   decimal.Decimal `json:"storedBalance"`
	Drift           decimal.Decimal `json:"drift"`
	Consistent      bool            `json:"consistent"`
}

// Transfer is the result of moving funds between two wallets
type Transfer struct {
	TransferID uuid.UUID    `json:"transferId"`
	Expense    *Transaction `json:"expense"`
	Income     *Transaction `json:"income"`
	From       *Wallet      `json:"fromWallet"`
	To         *Wallet      `json:"toWallet"`
}
