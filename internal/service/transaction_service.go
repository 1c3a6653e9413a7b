package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TransactionService keeps transaction records and wallet balances consistent.
// Every mutation writes the record and its balance effect in one unit of work.
type TransactionService struct {
	txManager       domain.TxManager
	transactionRepo domain.TransactionRepository
	walletRepo      domain.WalletRepository
	categoryRepo    domain.CategoryRepository
	eventPublisher  websocket.EventPublisher
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	txManager domain.TxManager,
	transactionRepo domain.TransactionRepository,
	walletRepo domain.WalletRepository,
	categoryRepo domain.CategoryRepository,
) *TransactionService {
	return &TransactionService{
		txManager:       txManager,
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		categoryRepo:    categoryRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TransactionService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *TransactionService) publishEvent(ownerID uuid.UUID, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(ownerID, event)
	}
}

// CreateTransactionInput holds the input for creating a transaction
type CreateTransactionInput struct {
	Amount      decimal.Decimal
	Type        domain.TransactionType
	CategoryID  *uuid.UUID
	WalletID    *uuid.UUID
	Description string
	// Date defaults to today when zero
	Date time.Time
	Tags []string
	// TransferID links the two legs of a wallet transfer
	TransferID *uuid.UUID
	// RequireFunds rejects an expense the wallet balance does not cover
	RequireFunds bool
}

// UpdateTransactionInput is a partial update. Nil fields keep their current value.
type UpdateTransactionInput struct {
	Amount        *decimal.Decimal
	Type          *domain.TransactionType
	CategoryID    *uuid.UUID
	ClearCategory bool
	WalletID      *uuid.UUID
	ClearWallet   bool
	Description   *string
	Date          *time.Time
	Tags          []string // nil keeps the current tags, empty clears them
}

// Create validates and persists a transaction and applies its wallet effect atomically
func (s *TransactionService) Create(ctx context.Context, ownerID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner", "is required")
	}
	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(input.Description)
	date := input.Date
	if date.IsZero() {
		date = domain.Today()
	}
	if err := validateTransactionFields(input.Amount, input.Type, date, description); err != nil {
		return nil, err
	}

	transaction := &domain.Transaction{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Amount:      input.Amount,
		Type:        input.Type,
		CategoryID:  input.CategoryID,
		WalletID:    input.WalletID,
		Description: description,
		Date:        domain.DateOf(date),
		Tags:        tags,
		TransferID:  input.TransferID,
	}

	var (
		created *domain.Transaction
		wallet  *domain.Wallet
	)
	err = s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, ownerID, transaction.CategoryID, transaction.WalletID); err != nil {
			return err
		}

		var err error
		created, err = s.transactionRepo.Create(ctx, transaction)
		if err != nil {
			return err
		}

		if created.WalletID == nil {
			return nil
		}
		if input.RequireFunds && created.Type == domain.TransactionTypeExpense {
			wallet, err = s.walletRepo.Withdraw(ctx, ownerID, *created.WalletID, created.Amount)
		} else {
			wallet, err = s.walletRepo.AdjustBalance(ctx, ownerID, *created.WalletID, created.SignedAmount())
		}
		if err != nil {
			return fmt.Errorf("apply wallet balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("transaction_id", created.ID).
		Str("type", string(created.Type)).
		Str("amount", created.Amount.String()).
		Msg("Transaction created")

	s.publishEvent(ownerID, websocket.TransactionCreated(created))
	if wallet != nil {
		s.publishEvent(ownerID, websocket.WalletUpdated(wallet))
	}
	return created, nil
}

// Update applies a partial update. The old effect is reversed and the new effect
// applied in the same unit of work, so readers only ever see the net result.
func (s *TransactionService) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateTransactionInput) (*domain.Transaction, error) {
	var (
		updated *domain.Transaction
		wallets []*domain.Wallet
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.transactionRepo.GetByIDForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		data, err := mergeTransactionUpdate(existing, input)
		if err != nil {
			return err
		}

		if err := s.checkReferences(ctx, ownerID, changedID(existing.CategoryID, data.CategoryID), changedID(existing.WalletID, data.WalletID)); err != nil {
			return err
		}

		updated, err = s.transactionRepo.Update(ctx, ownerID, id, data)
		if err != nil {
			return err
		}

		wallets, err = s.applyNetEffect(ctx, ownerID, existing, updated)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("transaction_id", id).
		Msg("Transaction updated")

	s.publishEvent(ownerID, websocket.TransactionUpdated(updated))
	for _, w := range wallets {
		s.publishEvent(ownerID, websocket.WalletUpdated(w))
	}
	return updated, nil
}

// Delete reverses the transaction's wallet effect and removes the record in one unit of work
func (s *TransactionService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	var (
		deleted *domain.Transaction
		wallet  *domain.Wallet
	)
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.transactionRepo.GetByIDForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}

		if existing.WalletID != nil {
			wallet, err = s.walletRepo.AdjustBalance(ctx, ownerID, *existing.WalletID, existing.SignedAmount().Neg())
			if err != nil {
				return fmt.Errorf("reverse wallet balance: %w", err)
			}
		}

		if err := s.transactionRepo.Delete(ctx, ownerID, id); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Stringer("owner_id", ownerID).
		Stringer("transaction_id", id).
		Msg("Transaction deleted")

	s.publishEvent(ownerID, websocket.TransactionDeleted(deleted))
	if wallet != nil {
		s.publishEvent(ownerID, websocket.WalletUpdated(wallet))
	}
	return nil
}

// GetByID retrieves a transaction owned by ownerID
func (s *TransactionService) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, ownerID, id)
}

// List retrieves a page of transactions, newest first. Page is zero-based.
func (s *TransactionService) List(ctx context.Context, ownerID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	if filters.Type != nil && !filters.Type.IsValid() {
		return nil, domain.NewValidationError("type", "must be income or expense")
	}
	if filters.Page < 0 {
		return nil, domain.NewValidationError("page", "must not be negative")
	}
	if filters.Limit < 0 {
		return nil, domain.NewValidationError("limit", "must not be negative")
	}
	if filters.Limit == 0 {
		filters.Limit = domain.DefaultPageSize
	}
	if filters.Limit > domain.MaxPageSize {
		filters.Limit = domain.MaxPageSize
	}
	if filters.StartDate != nil && filters.EndDate != nil && domain.DateOf(*filters.StartDate).After(domain.DateOf(*filters.EndDate)) {
		return nil, domain.NewValidationError("startDate", "must not be after endDate")
	}
	return s.transactionRepo.GetByOwner(ctx, ownerID, filters)
}

// GetMonthlyStats sums income and expense inside a calendar month
func (s *TransactionService) GetMonthlyStats(ctx context.Context, ownerID uuid.UUID, year, month int) (*domain.MonthlyStats, error) {
	if year < 1 || year > 9999 {
		return nil, domain.NewValidationError("year", "must be between 1 and 9999")
	}
	if month < 1 || month > 12 {
		return nil, domain.NewValidationError("month", "must be between 1 and 12")
	}

	period := domain.MonthPeriod(year, time.Month(month))
	income, expense, err := s.transactionRepo.SumByTypeAndDateRange(ctx, ownerID, period.Start, period.End)
	if err != nil {
		return nil, err
	}

	return &domain.MonthlyStats{
		Year:    year,
		Month:   month,
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}, nil
}

// GetCategoryStats groups totals by category and type over an inclusive date range
func (s *TransactionService) GetCategoryStats(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) ([]*domain.CategoryStat, error) {
	if startDate.IsZero() || endDate.IsZero() {
		return nil, domain.NewValidationError("dateRange", "startDate and endDate are required")
	}
	if domain.DateOf(startDate).After(domain.DateOf(endDate)) {
		return nil, domain.NewValidationError("startDate", "must not be after endDate")
	}
	return s.transactionRepo.GetCategoryStats(ctx, ownerID, domain.DateOf(startDate), domain.DateOf(endDate))
}

// applyNetEffect reverses old's effect and applies updated's effect. The old wallet
// is settled before the new one and a wallet that appears on both sides receives a
// single combined delta.
func (s *TransactionService) applyNetEffect(ctx context.Context, ownerID uuid.UUID, old, updated *domain.Transaction) ([]*domain.Wallet, error) {
	type adjustment struct {
		walletID uuid.UUID
		delta    decimal.Decimal
	}
	var adjustments []adjustment
	add := func(walletID *uuid.UUID, delta decimal.Decimal) {
		if walletID == nil {
			return
		}
		for i := range adjustments {
			if adjustments[i].walletID == *walletID {
				adjustments[i].delta = adjustments[i].delta.Add(delta)
				return
			}
		}
		adjustments = append(adjustments, adjustment{walletID: *walletID, delta: delta})
	}
	add(old.WalletID, old.SignedAmount().Neg())
	add(updated.WalletID, updated.SignedAmount())

	var wallets []*domain.Wallet
	for _, adj := range adjustments {
		if adj.delta.IsZero() {
			continue
		}
		wallet, err := s.walletRepo.AdjustBalance(ctx, ownerID, adj.walletID, adj.delta)
		if err != nil {
			return nil, fmt.Errorf("apply wallet balance: %w", err)
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

// checkReferences verifies that referenced category and wallet exist and belong to the owner
func (s *TransactionService) checkReferences(ctx context.Context, ownerID uuid.UUID, categoryID, walletID *uuid.UUID) error {
	if categoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, ownerID, *categoryID); err != nil {
			return err
		}
	}
	if walletID != nil {
		if _, err := s.walletRepo.GetByID(ctx, ownerID, *walletID); err != nil {
			return err
		}
	}
	return nil
}

func mergeTransactionUpdate(existing *domain.Transaction, input UpdateTransactionInput) (*domain.UpdateTransactionData, error) {
	data := &domain.UpdateTransactionData{
		Amount:      existing.Amount,
		Type:        existing.Type,
		CategoryID:  existing.CategoryID,
		WalletID:    existing.WalletID,
		Description: existing.Description,
		Date:        existing.Date,
		Tags:        existing.Tags,
	}

	if input.Amount != nil {
		data.Amount = *input.Amount
	}
	if input.Type != nil {
		data.Type = *input.Type
	}
	if input.ClearCategory {
		data.CategoryID = nil
	} else if input.CategoryID != nil {
		data.CategoryID = input.CategoryID
	}
	if input.ClearWallet {
		data.WalletID = nil
	} else if input.WalletID != nil {
		data.WalletID = input.WalletID
	}
	if input.Description != nil {
		data.Description = strings.TrimSpace(*input.Description)
	}
	if input.Date != nil {
		data.Date = domain.DateOf(*input.Date)
	}
	if input.Tags != nil {
		tags, err := normalizeTags(input.Tags)
		if err != nil {
			return nil, err
		}
		data.Tags = tags
	}

	if err := validateTransactionFields(data.Amount, data.Type, data.Date, data.Description); err != nil {
		return nil, err
	}
	return data, nil
}

func validateTransactionFields(amount decimal.Decimal, txType domain.TransactionType, date time.Time, description string) error {
	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "must be a positive magnitude")
	}
	if !domain.FitsAmountScale(amount) {
		return domain.NewValidationError("amount", fmt.Sprintf("must have at most %d decimal places", domain.MaxAmountScale))
	}
	if !txType.IsValid() {
		return domain.NewValidationError("type", "must be income or expense")
	}
	if date.IsZero() {
		return domain.NewValidationError("date", "is required")
	}
	if len(description) > domain.MaxDescriptionLength {
		return domain.NewValidationError("description", fmt.Sprintf("must be at most %d characters", domain.MaxDescriptionLength))
	}
	return nil
}

// normalizeTags trims tags and drops blanks and duplicates, keeping first-seen order
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		if len(tag) > domain.MaxTagLength {
			return nil, domain.NewValidationError("tags", fmt.Sprintf("each tag must be at most %d characters", domain.MaxTagLength))
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) > domain.MaxTags {
		return nil, domain.NewValidationError("tags", fmt.Sprintf("at most %d tags allowed", domain.MaxTags))
	}
	return out, nil
}

// changedID returns next when it differs from prev, so unchanged references are not re-checked
func changedID(prev, next *uuid.UUID) *uuid.UUID {
	if next == nil {
		return nil
	}
	if prev != nil && *prev == *next {
		return nil
	}
	return next
}
