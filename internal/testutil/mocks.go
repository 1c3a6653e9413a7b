package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockWalletRepository is a mock implementation of domain.WalletRepository
type MockWalletRepository struct {
	Store           *MemoryStore
	CreateFn        func(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error)
	GetByIDFn       func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Wallet, error)
	DeleteFn        func(ctx context.Context, ownerID, id uuid.UUID) error
	AdjustBalanceFn func(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error)
	WithdrawFn      func(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	// AdjustCalls records every balance adjustment that reached the store
	AdjustCalls []BalanceAdjustment
}

// BalanceAdjustment is one recorded AdjustBalance call
type BalanceAdjustment struct {
	WalletID uuid.UUID
	Delta    decimal.Decimal
}

// NewMockWalletRepository creates a new MockWalletRepository
func NewMockWalletRepository(store *MemoryStore) *MockWalletRepository {
	return &MockWalletRepository{Store: store}
}

// Create creates a new wallet with balance = initial balance
func (m *MockWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) (*domain.Wallet, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, wallet)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.Wallets {
		if w.OwnerID == wallet.OwnerID && w.Name == wallet.Name {
			return nil, domain.ErrWalletNameTaken
		}
	}
	created := cloneWallet(wallet)
	created.Balance = created.InitialBalance
	created.CreatedAt = s.nextTimestamp()
	created.UpdatedAt = created.CreatedAt
	s.Wallets[created.ID] = created
	return cloneWallet(created), nil
}

// GetByID retrieves a wallet by ID for an owner
func (m *MockWalletRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Wallet, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, ownerID, id)
	}
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.Wallets[id]
	if !ok || w.OwnerID != ownerID {
		return nil, domain.ErrWalletNotFound
	}
	return cloneWallet(w), nil
}

// GetAllByOwner retrieves an owner's wallets ordered by name
func (m *MockWalletRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Wallet, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := []*domain.Wallet{}
	for _, w := range s.Wallets {
		if w.OwnerID == ownerID && (includeInactive || w.IsActive) {
			wallets = append(wallets, cloneWallet(w))
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return wallets, nil
}

// Update updates a wallet's descriptive fields
func (m *MockWalletRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateWalletData) (*domain.Wallet, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.Wallets[id]
	if !ok || w.OwnerID != ownerID {
		return nil, domain.ErrWalletNotFound
	}
	for _, other := range s.Wallets {
		if other.ID != id && other.OwnerID == ownerID && other.Name == data.Name {
			return nil, domain.ErrWalletNameTaken
		}
	}
	w.Name = data.Name
	w.Description = data.Description
	w.Type = data.Type
	w.Currency = data.Currency
	w.Icon = data.Icon
	w.Color = data.Color
	w.IsActive = data.IsActive
	w.ExcludeFromStats = data.ExcludeFromStats
	w.UpdatedAt = s.nextTimestamp()
	return cloneWallet(w), nil
}

// Delete removes a wallet unless a transaction references it
func (m *MockWalletRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, id)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.Wallets[id]
	if !ok || w.OwnerID != ownerID {
		return domain.ErrWalletNotFound
	}
	for _, t := range s.Transactions {
		if t.WalletID != nil && *t.WalletID == id {
			return domain.ErrWalletInUse
		}
	}
	delete(s.Wallets, id)
	return nil
}

// AdjustBalance adds delta to the stored balance
func (m *MockWalletRepository) AdjustBalance(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	if m.AdjustBalanceFn != nil {
		return m.AdjustBalanceFn(ctx, ownerID, id, delta)
	}
	return m.ApplyBalance(ownerID, id, delta)
}

// ApplyBalance is the store-backed AdjustBalance, callable from AdjustBalanceFn overrides
func (m *MockWalletRepository) ApplyBalance(ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.Wallets[id]
	if !ok || w.OwnerID != ownerID {
		return nil, domain.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(delta)
	w.UpdatedAt = s.nextTimestamp()
	m.AdjustCalls = append(m.AdjustCalls, BalanceAdjustment{WalletID: id, Delta: delta})
	return cloneWallet(w), nil
}

// Withdraw subtracts amount under the store lock when the balance covers it
func (m *MockWalletRepository) Withdraw(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error) {
	if m.WithdrawFn != nil {
		return m.WithdrawFn(ctx, ownerID, id, amount)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.Wallets[id]
	if !ok || w.OwnerID != ownerID {
		return nil, domain.ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return nil, &domain.InsufficientFundsError{WalletID: id, Balance: w.Balance, Requested: amount}
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = s.nextTimestamp()
	m.AdjustCalls = append(m.AdjustCalls, BalanceAdjustment{WalletID: id, Delta: amount.Neg()})
	return cloneWallet(w), nil
}

// CountTransactions counts the transactions referencing a wallet
func (m *MockWalletRepository) CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, t := range s.Transactions {
		if t.OwnerID == ownerID && t.WalletID != nil && *t.WalletID == id {
			count++
		}
	}
	return count, nil
}

// GetTotalsByCurrency sums active, counted wallets per currency
func (m *MockWalletRepository) GetTotalsByCurrency(ctx context.Context, ownerID uuid.UUID, currency *string) ([]*domain.CurrencyTotal, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCurrency := map[string]*domain.CurrencyTotal{}
	for _, w := range s.Wallets {
		if w.OwnerID != ownerID || !w.IsActive || w.ExcludeFromStats {
			continue
		}
		if currency != nil && w.Currency != *currency {
			continue
		}
		total, ok := byCurrency[w.Currency]
		if !ok {
			total = &domain.CurrencyTotal{Currency: w.Currency, Total: decimal.Zero}
			byCurrency[w.Currency] = total
		}
		total.Total = total.Total.Add(w.Balance)
		total.WalletCount++
	}
	totals := []*domain.CurrencyTotal{}
	for _, total := range byCurrency {
		totals = append(totals, total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
	return totals, nil
}

// GetLedgerSums replays the transactions referencing a wallet
func (m *MockWalletRepository) GetLedgerSums(ctx context.Context, ownerID, id uuid.UUID) (*domain.WalletLedgerSums, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	sums := &domain.WalletLedgerSums{Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range s.Transactions {
		if t.OwnerID != ownerID || t.WalletID == nil || *t.WalletID != id {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			sums.Income = sums.Income.Add(t.Amount)
		} else {
			sums.Expense = sums.Expense.Add(t.Amount)
		}
	}
	return sums, nil
}

// MockCategoryRepository is a mock implementation of domain.CategoryRepository
type MockCategoryRepository struct {
	Store    *MemoryStore
	CreateFn func(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteFn func(ctx context.Context, ownerID, id uuid.UUID) error
}

// NewMockCategoryRepository creates a new MockCategoryRepository
func NewMockCategoryRepository(store *MemoryStore) *MockCategoryRepository {
	return &MockCategoryRepository{Store: store}
}

// Create creates a new category
func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, category)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.Categories {
		if c.OwnerID == category.OwnerID && c.Name == category.Name {
			return nil, domain.ErrCategoryNameTaken
		}
	}
	created := cloneCategory(category)
	created.CreatedAt = s.nextTimestamp()
	created.UpdatedAt = created.CreatedAt
	s.Categories[created.ID] = created
	return cloneCategory(created), nil
}

// GetByID retrieves a category by ID for an owner
func (m *MockCategoryRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Category, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.Categories[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrCategoryNotFound
	}
	return cloneCategory(c), nil
}

// GetByName retrieves a category by name, case-insensitively
func (m *MockCategoryRepository) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Category, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.Categories {
		if c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
			return cloneCategory(c), nil
		}
	}
	return nil, domain.ErrCategoryNotFound
}

// GetAllByOwner retrieves an owner's categories, optionally of one type
func (m *MockCategoryRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, categoryType *domain.TransactionType) ([]*domain.Category, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := []*domain.Category{}
	for _, c := range s.Categories {
		if c.OwnerID != ownerID || (categoryType != nil && c.Type != *categoryType) {
			continue
		}
		categories = append(categories, cloneCategory(c))
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Type != categories[j].Type {
			return categories[i].Type < categories[j].Type
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// Update updates a category
func (m *MockCategoryRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateCategoryData) (*domain.Category, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Categories[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrCategoryNotFound
	}
	for _, other := range s.Categories {
		if other.ID != id && other.OwnerID == ownerID && other.Name == data.Name {
			return nil, domain.ErrCategoryNameTaken
		}
	}
	c.Name = data.Name
	c.Description = data.Description
	c.Color = data.Color
	c.Icon = data.Icon
	c.BudgetLimit = data.BudgetLimit
	c.UpdatedAt = s.nextTimestamp()
	return cloneCategory(c), nil
}

// Delete removes a category unless a transaction references it. Budget links are dropped.
func (m *MockCategoryRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, id)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Categories[id]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrCategoryNotFound
	}
	for _, t := range s.Transactions {
		if t.CategoryID != nil && *t.CategoryID == id {
			return domain.ErrCategoryInUse
		}
	}
	delete(s.Categories, id)
	for _, b := range s.Budgets {
		b.CategoryIDs = slices.DeleteFunc(b.CategoryIDs, func(cid uuid.UUID) bool { return cid == id })
	}
	return nil
}

// CountTransactions counts the transactions referencing a category
func (m *MockCategoryRepository) CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, t := range s.Transactions {
		if t.OwnerID == ownerID && t.CategoryID != nil && *t.CategoryID == id {
			count++
		}
	}
	return count, nil
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository
type MockTransactionRepository struct {
	Store    *MemoryStore
	CreateFn func(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error)
	UpdateFn func(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateTransactionData) (*domain.Transaction, error)
	DeleteFn func(ctx context.Context, ownerID, id uuid.UUID) error
	SumFn    func(ctx context.Context, ownerID uuid.UUID, categoryIDs []uuid.UUID, startDate, endDate time.Time) (decimal.Decimal, error)
}

// NewMockTransactionRepository creates a new MockTransactionRepository
func NewMockTransactionRepository(store *MemoryStore) *MockTransactionRepository {
	return &MockTransactionRepository{Store: store}
}

// Create creates a new transaction
func (m *MockTransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, transaction)
	}
	return m.Insert(transaction)
}

// Insert is the store-backed Create, callable from CreateFn overrides
func (m *MockTransactionRepository) Insert(transaction *domain.Transaction) (*domain.Transaction, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkReferences(transaction.OwnerID, transaction.WalletID, transaction.CategoryID); err != nil {
		return nil, err
	}
	created := cloneTransaction(transaction)
	created.Date = domain.DateOf(created.Date)
	created.CreatedAt = s.nextTimestamp()
	created.UpdatedAt = created.CreatedAt
	s.Transactions[created.ID] = created
	return cloneTransaction(created), nil
}

// checkReferences mirrors the foreign keys on transactions. Caller holds the lock.
func (s *MemoryStore) checkReferences(ownerID uuid.UUID, walletID, categoryID *uuid.UUID) error {
	if walletID != nil {
		if _, ok := s.Wallets[*walletID]; !ok {
			return fmt.Errorf("%w: referenced wallet or category does not exist", domain.ErrNotFound)
		}
	}
	if categoryID != nil {
		if _, ok := s.Categories[*categoryID]; !ok {
			return fmt.Errorf("%w: referenced wallet or category does not exist", domain.ErrNotFound)
		}
	}
	return nil
}

// GetByID retrieves a transaction by ID for an owner
func (m *MockTransactionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.Transactions[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}
	return cloneTransaction(t), nil
}

// GetByIDForUpdate behaves like GetByID; the store has no row locks
func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	return m.GetByID(ctx, ownerID, id)
}

// GetByOwner retrieves a filtered page of transactions, newest first
func (m *MockTransactionRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	if filters == nil {
		filters = &domain.TransactionFilters{}
	}
	s := m.Store
	s.mu.RLock()
	filtered := []*domain.Transaction{}
	for _, t := range s.Transactions {
		if t.OwnerID != ownerID || !matchesFilters(t, filters) {
			continue
		}
		filtered = append(filtered, cloneTransaction(t))
	}
	s.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.After(filtered[j].Date)
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	total := int64(len(filtered))
	start := int64(filters.Page) * int64(limit)
	end := start + int64(limit)
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &domain.PaginatedTransactions{
		Data:       filtered[start:end],
		Page:       filters.Page,
		Limit:      limit,
		TotalItems: total,
	}, nil
}

func matchesFilters(t *domain.Transaction, f *domain.TransactionFilters) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.WalletID != nil && (t.WalletID == nil || *t.WalletID != *f.WalletID) {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Tag != nil && !slices.Contains(t.Tags, *f.Tag) {
		return false
	}
	if f.StartDate != nil && t.Date.Before(domain.DateOf(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && t.Date.After(domain.DateOf(*f.EndDate)) {
		return false
	}
	return true
}

// Update replaces the mutable fields of a transaction
func (m *MockTransactionRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateTransactionData) (*domain.Transaction, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, ownerID, id, data)
	}
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transactions[id]
	if !ok || t.OwnerID != ownerID {
		return nil, domain.ErrTransactionNotFound
	}
	if err := s.checkReferences(ownerID, data.WalletID, data.CategoryID); err != nil {
		return nil, err
	}
	t.Amount = data.Amount
	t.Type = data.Type
	t.CategoryID = cloneUUIDPtr(data.CategoryID)
	t.WalletID = cloneUUIDPtr(data.WalletID)
	t.Description = data.Description
	t.Date = domain.DateOf(data.Date)
	t.Tags = append([]string{}, data.Tags...)
	t.UpdatedAt = s.nextTimestamp()
	return cloneTransaction(t), nil
}

// Delete removes a transaction
func (m *MockTransactionRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, id)
	}
	return m.Remove(ownerID, id)
}

// Remove is the store-backed Delete, callable from DeleteFn overrides
func (m *MockTransactionRepository) Remove(ownerID, id uuid.UUID) error {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.Transactions[id]
	if !ok || t.OwnerID != ownerID {
		return domain.ErrTransactionNotFound
	}
	delete(s.Transactions, id)
	return nil
}

// SumByTypeAndDateRange returns income and expense totals inside an inclusive range
func (m *MockTransactionRepository) SumByTypeAndDateRange(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) (income, expense decimal.Decimal, err error) {
	period := domain.Period{Start: domain.DateOf(startDate), End: domain.DateOf(endDate)}
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	income, expense = decimal.Zero, decimal.Zero
	for _, t := range s.Transactions {
		if t.OwnerID != ownerID || !period.Contains(t.Date) {
			continue
		}
		if t.Type == domain.TransactionTypeIncome {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return income, expense, nil
}

// GetCategoryStats groups totals by category and type inside an inclusive range
func (m *MockTransactionRepository) GetCategoryStats(ctx context.Context, ownerID uuid.UUID, startDate, endDate time.Time) ([]*domain.CategoryStat, error) {
	period := domain.Period{Start: domain.DateOf(startDate), End: domain.DateOf(endDate)}
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		category uuid.UUID
		txType   domain.TransactionType
	}
	groups := map[key]*domain.CategoryStat{}
	for _, t := range s.Transactions {
		if t.OwnerID != ownerID || !period.Contains(t.Date) {
			continue
		}
		k := key{txType: t.Type}
		if t.CategoryID != nil {
			k.category = *t.CategoryID
		}
		stat, ok := groups[k]
		if !ok {
			stat = &domain.CategoryStat{CategoryID: cloneUUIDPtr(t.CategoryID), Type: t.Type, Total: decimal.Zero}
			if t.CategoryID != nil {
				if c, ok := s.Categories[*t.CategoryID]; ok {
					name := c.Name
					stat.CategoryName = &name
				}
			}
			groups[k] = stat
		}
		stat.Total = stat.Total.Add(t.Amount)
		stat.Count++
	}

	stats := []*domain.CategoryStat{}
	for _, stat := range groups {
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Total.GreaterThan(stats[j].Total) })
	return stats, nil
}

// SumExpensesByCategories sums expenses in the given categories inside an inclusive range
func (m *MockTransactionRepository) SumExpensesByCategories(ctx context.Context, ownerID uuid.UUID, categoryIDs []uuid.UUID, startDate, endDate time.Time) (decimal.Decimal, error) {
	if m.SumFn != nil {
		return m.SumFn(ctx, ownerID, categoryIDs, startDate, endDate)
	}
	period := domain.Period{Start: domain.DateOf(startDate), End: domain.DateOf(endDate)}
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, t := range s.Transactions {
		if t.OwnerID != ownerID || t.Type != domain.TransactionTypeExpense || t.CategoryID == nil {
			continue
		}
		if !slices.Contains(categoryIDs, *t.CategoryID) || !period.Contains(t.Date) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

// MockBudgetRepository is a mock implementation of domain.BudgetRepository
type MockBudgetRepository struct {
	Store          *MemoryStore
	GetAlertableFn func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Budget, error)
}

// NewMockBudgetRepository creates a new MockBudgetRepository
func NewMockBudgetRepository(store *MemoryStore) *MockBudgetRepository {
	return &MockBudgetRepository{Store: store}
}

// Create creates a new budget
func (m *MockBudgetRepository) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range budget.CategoryIDs {
		if _, ok := s.Categories[id]; !ok {
			return nil, domain.ErrCategoryNotFound
		}
	}
	created := cloneBudget(budget)
	created.CategoryIDs = dedupeIDs(created.CategoryIDs)
	created.CreatedAt = s.nextTimestamp()
	created.UpdatedAt = created.CreatedAt
	s.Budgets[created.ID] = created
	return cloneBudget(created), nil
}

// GetByID retrieves a budget by ID for an owner
func (m *MockBudgetRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Budget, error) {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.Budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, domain.ErrBudgetNotFound
	}
	return cloneBudget(b), nil
}

// GetAllByOwner retrieves an owner's budgets ordered by name
func (m *MockBudgetRepository) GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*domain.Budget, error) {
	return m.list(ownerID, func(b *domain.Budget) bool { return includeInactive || b.IsActive }), nil
}

// GetAlertable retrieves active budgets with notifications enabled
func (m *MockBudgetRepository) GetAlertable(ctx context.Context, ownerID uuid.UUID) ([]*domain.Budget, error) {
	if m.GetAlertableFn != nil {
		return m.GetAlertableFn(ctx, ownerID)
	}
	return m.list(ownerID, func(b *domain.Budget) bool { return b.IsActive && b.NotificationsEnabled }), nil
}

func (m *MockBudgetRepository) list(ownerID uuid.UUID, keep func(*domain.Budget) bool) []*domain.Budget {
	s := m.Store
	s.mu.RLock()
	defer s.mu.RUnlock()
	budgets := []*domain.Budget{}
	for _, b := range s.Budgets {
		if b.OwnerID == ownerID && keep(b) {
			budgets = append(budgets, cloneBudget(b))
		}
	}
	sort.Slice(budgets, func(i, j int) bool { return budgets[i].Name < budgets[j].Name })
	return budgets
}

// Update replaces a budget's fields and category links
func (m *MockBudgetRepository) Update(ctx context.Context, ownerID, id uuid.UUID, data *domain.UpdateBudgetData) (*domain.Budget, error) {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Budgets[id]
	if !ok || b.OwnerID != ownerID {
		return nil, domain.ErrBudgetNotFound
	}
	for _, cid := range data.CategoryIDs {
		if _, ok := s.Categories[cid]; !ok {
			return nil, domain.ErrCategoryNotFound
		}
	}
	b.Name = data.Name
	b.Description = data.Description
	b.Amount = data.Amount
	b.Period = data.Period
	b.CategoryIDs = dedupeIDs(append([]uuid.UUID{}, data.CategoryIDs...))
	b.StartDate = domain.DateOf(data.StartDate)
	b.EndDate = nil
	if data.EndDate != nil {
		end := domain.DateOf(*data.EndDate)
		b.EndDate = &end
	}
	b.Color = data.Color
	b.Icon = data.Icon
	b.AlertThreshold = data.AlertThreshold
	b.NotificationsEnabled = data.NotificationsEnabled
	b.IsActive = data.IsActive
	b.UpdatedAt = s.nextTimestamp()
	return cloneBudget(b), nil
}

// Delete removes a budget
func (m *MockBudgetRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	s := m.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Budgets[id]
	if !ok || b.OwnerID != ownerID {
		return domain.ErrBudgetNotFound
	}
	delete(s.Budgets, id)
	return nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// PublishedEvent is one recorded Publish call
type PublishedEvent struct {
	OwnerID uuid.UUID
	Event   websocket.Event
}

// Publish records the event
func (m *MockEventPublisher) Publish(ownerID uuid.UUID, event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, PublishedEvent{OwnerID: ownerID, Event: event})
}

// Types returns the recorded event types in publish order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.Events))
	for i, e := range m.Events {
		types[i] = e.Event.Type
	}
	return types
}
