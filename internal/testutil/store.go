package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore is the shared in-memory backing for the mock repositories. Repositories
// built on the same store see each other's writes, and MockTxManager rolls the whole
// store back when a unit of work fails, the way a database transaction would.
type MemoryStore struct {
	mu sync.RWMutex

	Wallets      map[uuid.UUID]*domain.Wallet
	Categories   map[uuid.UUID]*domain.Category
	Transactions map[uuid.UUID]*domain.Transaction
	Budgets      map[uuid.UUID]*domain.Budget

	seq int64
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Wallets:      make(map[uuid.UUID]*domain.Wallet),
		Categories:   make(map[uuid.UUID]*domain.Category),
		Transactions: make(map[uuid.UUID]*domain.Transaction),
		Budgets:      make(map[uuid.UUID]*domain.Budget),
	}
}

// nextTimestamp returns a strictly increasing timestamp so created_at ordering is deterministic
func (s *MemoryStore) nextTimestamp() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

type storeSnapshot struct {
	wallets      map[uuid.UUID]*domain.Wallet
	categories   map[uuid.UUID]*domain.Category
	transactions map[uuid.UUID]*domain.Transaction
	budgets      map[uuid.UUID]*domain.Budget
}

func (s *MemoryStore) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := storeSnapshot{
		wallets:      make(map[uuid.UUID]*domain.Wallet, len(s.Wallets)),
		categories:   make(map[uuid.UUID]*domain.Category, len(s.Categories)),
		transactions: make(map[uuid.UUID]*domain.Transaction, len(s.Transactions)),
		budgets:      make(map[uuid.UUID]*domain.Budget, len(s.Budgets)),
	}
	for id, w := range s.Wallets {
		snap.wallets[id] = cloneWallet(w)
	}
	for id, c := range s.Categories {
		snap.categories[id] = cloneCategory(c)
	}
	for id, t := range s.Transactions {
		snap.transactions[id] = cloneTransaction(t)
	}
	for id, b := range s.Budgets {
		snap.budgets[id] = cloneBudget(b)
	}
	return snap
}

func (s *MemoryStore) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Wallets = snap.wallets
	s.Categories = snap.categories
	s.Transactions = snap.transactions
	s.Budgets = snap.budgets
}

// AddWallet seeds a wallet. Missing IDs, currency and timestamps are filled in.
func (s *MemoryStore) AddWallet(w *domain.Wallet) *domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Currency == "" {
		w.Currency = domain.DefaultCurrency
	}
	if w.Type == "" {
		w.Type = domain.WalletTypeCash
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.nextTimestamp()
		w.UpdatedAt = w.CreatedAt
	}
	s.Wallets[w.ID] = cloneWallet(w)
	return w
}

// AddCategory seeds a category
func (s *MemoryStore) AddCategory(c *domain.Category) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.nextTimestamp()
		c.UpdatedAt = c.CreatedAt
	}
	s.Categories[c.ID] = cloneCategory(c)
	return c
}

// AddTransaction seeds a transaction without touching any wallet balance
func (s *MemoryStore) AddTransaction(t *domain.Transaction) *domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.nextTimestamp()
		t.UpdatedAt = t.CreatedAt
	}
	s.Transactions[t.ID] = cloneTransaction(t)
	return t
}

// AddBudget seeds a budget
func (s *MemoryStore) AddBudget(b *domain.Budget) *domain.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.nextTimestamp()
		b.UpdatedAt = b.CreatedAt
	}
	s.Budgets[b.ID] = cloneBudget(b)
	return b
}

// Wallet returns a copy of the stored wallet, or nil
func (s *MemoryStore) Wallet(id uuid.UUID) *domain.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.Wallets[id]; ok {
		return cloneWallet(w)
	}
	return nil
}

// TransactionCount returns how many transactions are stored
func (s *MemoryStore) TransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Transactions)
}

// TransactionsFor returns copies of every stored transaction of an owner
func (s *MemoryStore) TransactionsFor(ownerID uuid.UUID) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range s.Transactions {
		if t.OwnerID == ownerID {
			out = append(out, cloneTransaction(t))
		}
	}
	return out
}

type txKey struct{}

// MockTxManager implements domain.TxManager over a MemoryStore
type MockTxManager struct {
	Store *MemoryStore
	// mu serializes outermost units so a rollback never discards another unit's writes
	mu sync.Mutex
	// BeginErr, when set, makes every WithinTx fail before running fn
	BeginErr error
	// Commits counts successful outermost units of work
	Commits int
	// Rollbacks counts failed outermost units of work
	Rollbacks int
}

// NewMockTxManager creates a new MockTxManager
func NewMockTxManager(store *MemoryStore) *MockTxManager {
	return &MockTxManager{Store: store}
}

// WithinTx runs fn and restores the store snapshot if fn fails. Nested calls join the outer unit.
// Outermost units run one at a time.
func (m *MockTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	if m.BeginErr != nil {
		return m.BeginErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.Store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.Store.restore(snap)
		m.Rollbacks++
		return err
	}
	m.Commits++
	return nil
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

func cloneCategory(c *domain.Category) *domain.Category {
	out := *c
	if c.BudgetLimit != nil {
		limit := *c.BudgetLimit
		out.BudgetLimit = &limit
	}
	return &out
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.Tags = append([]string{}, t.Tags...)
	c.CategoryID = cloneUUIDPtr(t.CategoryID)
	c.WalletID = cloneUUIDPtr(t.WalletID)
	c.TransferID = cloneUUIDPtr(t.TransferID)
	return &c
}

func cloneBudget(b *domain.Budget) *domain.Budget {
	c := *b
	c.CategoryIDs = append([]uuid.UUID{}, b.CategoryIDs...)
	if b.EndDate != nil {
		end := *b.EndDate
		c.EndDate = &end
	}
	return &c
}

func cloneUUIDPtr(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
