package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

const (
	defaultWalletIcon  = "fas fa-wallet"
	defaultWalletColor = "#007bff"
)

// WalletService handles wallet management and transfers between wallets
type WalletService struct {
	walletRepo         domain.WalletRepository
	transactionService *TransactionService
	defaultCurrency    string
	eventPublisher     websocket.EventPublisher
}

// NewWalletService creates a new WalletService. Transfers go through transactionService
// so balances only ever change through the transaction side-effect path.
func NewWalletService(walletRepo domain.WalletRepository, transactionService *TransactionService, defaultCurrency string) *WalletService {
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &WalletService{
		walletRepo:         walletRepo,
		transactionService: transactionService,
		defaultCurrency:    defaultCurrency,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *WalletService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *WalletService) publishEvent(ownerID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(ownerID, event)
	}
}

// CreateWalletInput holds the input for creating a wallet
type CreateWalletInput struct {
	Name             string
	Description      string
	Type             domain.WalletType
	Currency         string
	InitialBalance   decimal.Decimal
	Icon             string
	Color            string
	ExcludeFromStats bool
}

// UpdateWalletInput is a partial update. Nil fields keep their current value.
type UpdateWalletInput struct {
	Name             *string
	Description      *string
	Type             *domain.WalletType
	Currency         *string
	Icon             *string
	Color            *string
	IsActive         *bool
	ExcludeFromStats *bool
}

// TransferInput holds the input for a transfer between two wallets
type TransferInput struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	Description  string
	Date         *time.Time
}

// Create creates a wallet whose balance starts at the initial balance
func (s *WalletService) Create(ctx context.Context, ownerID uuid.UUID, input CreateWalletInput) (*domain.Wallet, error) {
	name := strings.TrimSpace(input.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	walletType := input.Type
	if walletType == "" {
		walletType = domain.WalletTypeCash
	}
	if !walletType.IsValid() {
		return nil, domain.NewValidationError("type", "must be one of cash, bank, credit_card, e-wallet")
	}

	if !domain.FitsAmountScale(input.InitialBalance) {
		return nil, domain.NewValidationError("initialBalance", fmt.Sprintf("must have at most %d decimal places", domain.MaxAmountScale))
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, domain.NewValidationError("currency", "must be a 3-letter ISO 4217 code")
	}

	icon := orDefault(input.Icon, defaultWalletIcon)
	color := orDefault(input.Color, defaultWalletColor)
	if !colorPattern.MatchString(color) {
		return nil, domain.NewValidationError("color", "must be a hex color like #1a2b3c")
	}

	wallet := &domain.Wallet{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Name:             name,
		Description:      strings.TrimSpace(input.Description),
		Type:             walletType,
		Currency:         currency,
		InitialBalance:   input.InitialBalance,
		Balance:          input.InitialBalance,
		Icon:             icon,
		Color:            color,
		IsActive:         true,
		ExcludeFromStats: input.ExcludeFromStats,
	}

	created, err := s.walletRepo.Create(ctx, wallet)
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("wallet_id", created.ID).
		Str("currency", created.Currency).
		Msg("Wallet created")

	s.publishEvent(ownerID, websocket.WalletCreated(created))
	return created, nil
}

// GetByID retrieves a wallet owned by ownerID
func (s *WalletService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Wallet, error) {
	return s.walletRepo.GetByID(ctx, ownerID, id)
}

// List retrieves the owner's wallets
func (s *WalletService) List(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Wallet, error) {
	return s.walletRepo.GetAllByOwner(ctx, ownerID, includeInactive)
}

// Update updates a wallet's descriptive fields. The balance is never written here.
func (s *WalletService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateWalletInput) (*domain.Wallet, error) {
	existing, err := s.walletRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	data := &domain.UpdateWalletData{
		Name:             existing.Name,
		Description:      existing.Description,
		Type:             existing.Type,
		Currency:         existing.Currency,
		Icon:             existing.Icon,
		Color:            existing.Color,
		IsActive:         existing.IsActive,
		ExcludeFromStats: existing.ExcludeFromStats,
	}
	if input.Name != nil {
		data.Name = strings.TrimSpace(*input.Name)
		if err := validateName(data.Name); err != nil {
			return nil, err
		}
	}
	if input.Description != nil {
		data.Description = strings.TrimSpace(*input.Description)
	}
	if input.Type != nil {
		if !input.Type.IsValid() {
			return nil, domain.NewValidationError("type", "must be one of cash, bank, credit_card, e-wallet")
		}
		data.Type = *input.Type
	}
	if input.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.Currency))
		if !currencyPattern.MatchString(currency) {
			return nil, domain.NewValidationError("currency", "must be a 3-letter ISO 4217 code")
		}
		if currency != existing.Currency {
			count, err := s.walletRepo.CountTransactions(ctx, ownerID, id)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, fmt.Errorf("%w: cannot change the currency of a wallet with transactions", domain.ErrConflict)
			}
		}
		data.Currency = currency
	}
	if input.Icon != nil {
		data.Icon = orDefault(*input.Icon, defaultWalletIcon)
	}
	if input.Color != nil {
		if !colorPattern.MatchString(*input.Color) {
			return nil, domain.NewValidationError("color", "must be a hex color like #1a2b3c")
		}
		data.Color = *input.Color
	}
	if input.IsActive != nil {
		data.IsActive = *input.IsActive
	}
	if input.ExcludeFromStats != nil {
		data.ExcludeFromStats = *input.ExcludeFromStats
	}

	updated, err := s.walletRepo.Update(ctx, ownerID, id, data)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ownerID, websocket.WalletUpdated(updated))
	return updated, nil
}

// Delete removes a wallet that no transaction references. The repository repeats
// the reference check inside the delete statement.
func (s *WalletService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	count, err := s.walletRepo.CountTransactions(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrWalletInUse
	}

	if err := s.walletRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("wallet_id", id).
		Msg("Wallet deleted")

	s.publishEvent(ownerID, websocket.WalletDeleted(map[string]any{"id": id}))
	return nil
}

// GetTotalBalance sums active, counted wallets per currency. Currencies are never converted.
func (s *WalletService) GetTotalBalance(ctx context.Context, ownerID uuid.UUID, currency *string) ([]*domain.CurrencyTotal, error) {
	if currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*currency))
		if !currencyPattern.MatchString(code) {
			return nil, domain.NewValidationError("currency", "must be a 3-letter ISO 4217 code")
		}
		currency = &code
	}
	return s.walletRepo.GetTotalsByCurrency(ctx, ownerID, currency)
}

// ReconcileBalance replays the wallet's transactions and reports any drift from the stored balance
func (s *WalletService) ReconcileBalance(ctx context.Context, ownerID, id uuid.UUID) (*domain.WalletReconciliation, error) {
	wallet, err := s.walletRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sums, err := s.walletRepo.GetLedgerSums(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	expected := wallet.InitialBalance.Add(sums.Income).Sub(sums.Expense)
	drift := wallet.Balance.Sub(expected)
	result := &domain.WalletReconciliation{
		WalletID:        id,
		InitialBalance:  wallet.InitialBalance,
		Income:          sums.Income,
		Expense:         sums.Expense,
		ExpectedBalance: expected,
		StoredBalance:   wallet.Balance,
		Drift:           drift,
		Consistent:      drift.IsZero(),
	}

	if !result.Consistent {
		log.Warn().
			Stringer("owner_id", ownerID).
			Stringer("wallet_id", id).
			Str("stored", wallet.Balance.String()).
			Str("expected", expected.String()).
			Msg("Wallet balance drift detected")
	}
	return result, nil
}

// Transfer moves amount from one wallet to another as an expense leg on the source and
// an income leg on the destination. If the income leg fails the expense leg is deleted
// again. A failed compensation is returned as *domain.IntegrityError.
func (s *WalletService) Transfer(ctx context.Context, ownerID uuid.UUID, input TransferInput) (*domain.Transfer, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	if input.FromWalletID == input.ToWalletID {
		return nil, domain.NewValidationError("toWalletId", "must differ from the source wallet")
	}
	description := strings.TrimSpace(input.Description)
	if len(description) > domain.MaxDescriptionLength {
		return nil, domain.NewValidationError("description", fmt.Sprintf("must be at most %d characters", domain.MaxDescriptionLength))
	}

	from, err := s.walletRepo.GetByID(ctx, ownerID, input.FromWalletID)
	if err != nil {
		return nil, err
	}
	to, err := s.walletRepo.GetByID(ctx, ownerID, input.ToWalletID)
	if err != nil {
		return nil, err
	}
	if from.Currency != to.Currency {
		return nil, domain.NewValidationError("toWalletId", "wallets must share a currency")
	}
	// Early rejection only. The debit leg re-checks funds atomically.
	if from.Balance.LessThan(input.Amount) {
		return nil, &domain.InsufficientFundsError{
			WalletID:  from.ID,
			Balance:   from.Balance,
			Requested: input.Amount,
		}
	}

	date := domain.Today()
	if input.Date != nil {
		date = domain.DateOf(*input.Date)
	}
	transferID := uuid.New()

	expense, err := s.transactionService.Create(ctx, ownerID, CreateTransactionInput{
		Amount:       input.Amount,
		Type:         domain.TransactionTypeExpense,
		WalletID:     &from.ID,
		Description:  description,
		Date:         date,
		TransferID:   &transferID,
		RequireFunds: true,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer debit: %w", err)
	}

	income, err := s.transactionService.Create(ctx, ownerID, CreateTransactionInput{
		Amount:      input.Amount,
		Type:        domain.TransactionTypeIncome,
		WalletID:    &to.ID,
		Description: description,
		Date:        date,
		TransferID:  &transferID,
	})
	if err != nil {
		if compErr := s.transactionService.Delete(ctx, ownerID, expense.ID); compErr != nil {
			log.Error().
				Err(err).
				AnErr("compensation_error", compErr).
				Str("incident", "data_integrity").
				Stringer("owner_id", ownerID).
				Stringer("transfer_id", transferID).
				Stringer("orphan_transaction_id", expense.ID).
				Stringer("wallet_id", from.ID).
				Msg("Transfer compensation failed; debit leg left without credit leg")
			return nil, &domain.IntegrityError{Op: "transfer", Err: err, CompensationErr: compErr}
		}
		log.Warn().
			Err(err).
			Stringer("owner_id", ownerID).
			Stringer("transfer_id", transferID).
			Msg("Transfer credit leg failed; debit leg compensated")
		return nil, fmt.Errorf("transfer credit: %w", err)
	}

	result := &domain.Transfer{TransferID: transferID, Expense: expense, Income: income}
	result.From, err = s.walletRepo.GetByID(ctx, ownerID, from.ID)
	if err == nil {
		result.To, err = s.walletRepo.GetByID(ctx, ownerID, to.ID)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("transfer_id", transferID).
		Stringer("from_wallet_id", from.ID).
		Stringer("to_wallet_id", to.ID).
		Str("amount", input.Amount.String()).
		Msg("Transfer completed")

	s.publishEvent(ownerID, websocket.WalletTransferred(result))
	return result, nil
}

func validateName(name string) error {
	if name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if len(name) > domain.MaxNameLength {
		return domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", domain.MaxNameLength))
	}
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
