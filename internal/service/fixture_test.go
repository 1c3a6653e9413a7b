package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ledgerFixture wires every service over one MemoryStore so balance side effects are observable
type ledgerFixture struct {
	store           *testutil.MemoryStore
	txManager       *testutil.MockTxManager
	walletRepo      *testutil.MockWalletRepository
	categoryRepo    *testutil.MockCategoryRepository
	transactionRepo *testutil.MockTransactionRepository
	budgetRepo      *testutil.MockBudgetRepository
	publisher       *testutil.MockEventPublisher

	transactions *TransactionService
	wallets      *WalletService
	categories   *CategoryService
	budgets      *BudgetService

	ownerID uuid.UUID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	f := &ledgerFixture{
		store:           store,
		txManager:       testutil.NewMockTxManager(store),
		walletRepo:      testutil.NewMockWalletRepository(store),
		categoryRepo:    testutil.NewMockCategoryRepository(store),
		transactionRepo: testutil.NewMockTransactionRepository(store),
		budgetRepo:      testutil.NewMockBudgetRepository(store),
		publisher:       &testutil.MockEventPublisher{},
		ownerID:         domain.OwnerIDFromSubject("auth0|owner"),
	}

	f.transactions = NewTransactionService(f.txManager, f.transactionRepo, f.walletRepo, f.categoryRepo)
	f.transactions.SetEventPublisher(f.publisher)
	f.wallets = NewWalletService(f.walletRepo, f.transactions, domain.DefaultCurrency)
	f.wallets.SetEventPublisher(f.publisher)
	f.categories = NewCategoryService(f.txManager, f.categoryRepo, f.transactionRepo)
	f.categories.SetEventPublisher(f.publisher)
	f.budgets = NewBudgetService(f.txManager, f.budgetRepo, f.categoryRepo, f.transactionRepo)
	f.budgets.SetEventPublisher(f.publisher)
	return f
}

func (f *ledgerFixture) addWallet(name string, balance int64) *domain.Wallet {
	return f.store.AddWallet(&domain.Wallet{
		OwnerID:        f.ownerID,
		Name:           name,
		InitialBalance: decimal.NewFromInt(balance),
		Balance:        decimal.NewFromInt(balance),
		IsActive:       true,
	})
}

func (f *ledgerFixture) addCategory(name string, categoryType domain.TransactionType) *domain.Category {
	return f.store.AddCategory(&domain.Category{
		OwnerID: f.ownerID,
		Name:    name,
		Type:    categoryType,
		Color:   "#000000",
	})
}

func (f *ledgerFixture) balance(t *testing.T, walletID uuid.UUID) string {
	t.Helper()
	w := f.store.Wallet(walletID)
	require.NotNil(t, w, "wallet %s not in store", walletID)
	return w.Balance.StringFixed(0)
}

func (f *ledgerFixture) requireConsistent(t *testing.T, walletID uuid.UUID) {
	t.Helper()
	rec, err := f.wallets.ReconcileBalance(context.Background(), f.ownerID, walletID)
	require.NoError(t, err)
	require.True(t, rec.Consistent, "stored %s, expected %s", rec.StoredBalance, rec.ExpectedBalance)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func ptr[T any](v T) *T {
	return &v
}
