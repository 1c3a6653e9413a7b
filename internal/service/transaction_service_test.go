package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionService_Create_AdjustsWalletBalance(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000000)
	food := f.addCategory("Food", domain.TransactionTypeExpense)
	ctx := context.Background()

	expense, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:     amount(100000),
		Type:       domain.TransactionTypeExpense,
		CategoryID: &food.ID,
		WalletID:   &wallet.ID,
		Date:       day(2024, time.March, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "900000", f.balance(t, wallet.ID))

	_, err = f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(250000),
		Type:     domain.TransactionTypeIncome,
		WalletID: &wallet.ID,
		Date:     day(2024, time.March, 11),
	})
	require.NoError(t, err)
	assert.Equal(t, "1150000", f.balance(t, wallet.ID))

	assert.Equal(t, domain.TransactionTypeExpense, expense.Type)
	assert.Equal(t, 2, f.txManager.Commits)
	f.requireConsistent(t, wallet.ID)
	assert.Equal(t, []string{"transaction.created", "wallet.updated", "transaction.created", "wallet.updated"}, f.publisher.Types())
}

func TestTransactionService_Create_RequireFunds(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 500)
	ctx := context.Background()

	_, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:       amount(501),
		Type:         domain.TransactionTypeExpense,
		WalletID:     &wallet.ID,
		Date:         day(2024, time.April, 1),
		RequireFunds: true,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "500", f.balance(t, wallet.ID))
	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, 1, f.txManager.Rollbacks)

	_, err = f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:       amount(500),
		Type:         domain.TransactionTypeExpense,
		WalletID:     &wallet.ID,
		Date:         day(2024, time.April, 1),
		RequireFunds: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", f.balance(t, wallet.ID))

	// Without the guard an expense may take the wallet negative
	_, err = f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(20),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
		Date:     day(2024, time.April, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, "-20", f.balance(t, wallet.ID))
	f.requireConsistent(t, wallet.ID)
}

func TestTransactionService_Create_WithoutWalletLeavesBalancesAlone(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 500)

	created, err := f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount: amount(75),
		Type:   domain.TransactionTypeExpense,
		Date:   day(2024, time.January, 2),
	})

	require.NoError(t, err)
	assert.Nil(t, created.WalletID)
	assert.Equal(t, "500", f.balance(t, wallet.ID))
	assert.Empty(t, f.walletRepo.AdjustCalls)
}

func TestTransactionService_Create_DefaultsDateToToday(t *testing.T) {
	f := newLedgerFixture(t)

	created, err := f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount: amount(10),
		Type:   domain.TransactionTypeIncome,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.Today(), created.Date)
}

func TestTransactionService_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input CreateTransactionInput
		field string
	}{
		{"zero amount", CreateTransactionInput{Amount: decimal.Zero, Type: domain.TransactionTypeIncome}, "amount"},
		{"negative amount", CreateTransactionInput{Amount: amount(-5), Type: domain.TransactionTypeIncome}, "amount"},
		{"unknown type", CreateTransactionInput{Amount: amount(5), Type: "transfer"}, "type"},
		{"too many decimal places", CreateTransactionInput{Amount: decimal.RequireFromString("1.00005"), Type: domain.TransactionTypeIncome}, "amount"},
		{"tag too long", CreateTransactionInput{Amount: amount(5), Type: domain.TransactionTypeIncome, Tags: []string{strings.Repeat("x", domain.MaxTagLength+1)}}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t)

			_, err := f.transactions.Create(context.Background(), f.ownerID, tt.input)

			require.ErrorIs(t, err, domain.ErrValidation)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Equal(t, 0, f.store.TransactionCount())
		})
	}
}

func TestTransactionService_Update_RejectsUnstorableScale(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(100),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
		Date:     day(2024, time.May, 3),
	})
	require.NoError(t, err)

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{
		Amount: ptr(decimal.RequireFromString("100.00001")),
	})

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "900", f.balance(t, wallet.ID))
	f.requireConsistent(t, wallet.ID)
}

func TestTransactionService_Create_UnknownReferences(t *testing.T) {
	f := newLedgerFixture(t)
	other := domain.OwnerIDFromSubject("auth0|someone-else")
	foreignWallet := f.store.AddWallet(&domain.Wallet{OwnerID: other, Name: "Theirs", IsActive: true})
	missing := uuid.New()

	_, err := f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount:   amount(10),
		Type:     domain.TransactionTypeExpense,
		WalletID: &foreignWallet.ID,
	})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)

	_, err = f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount:     amount(10),
		Type:       domain.TransactionTypeExpense,
		CategoryID: &missing,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, "0", f.balance(t, foreignWallet.ID))
}

func TestTransactionService_Create_NormalizesTags(t *testing.T) {
	f := newLedgerFixture(t)

	created, err := f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount: amount(10),
		Type:   domain.TransactionTypeExpense,
		Tags:   []string{" lunch ", "work", "", "lunch"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"lunch", "work"}, created.Tags)
}

func TestTransactionService_Create_RollsBackWhenBalanceAdjustmentFails(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000)
	f.walletRepo.AdjustBalanceFn = func(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.transactions.Create(context.Background(), f.ownerID, CreateTransactionInput{
		Amount:   amount(100),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
	})

	require.Error(t, err)
	assert.Equal(t, 0, f.store.TransactionCount())
	assert.Equal(t, "1000", f.balance(t, wallet.ID))
	assert.Equal(t, 1, f.txManager.Rollbacks)
	assert.Empty(t, f.publisher.Events)
}

func TestTransactionService_Lifecycle_RestoresBalance(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Bank", 1000000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(100000),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
		Date:     day(2024, time.May, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "900000", f.balance(t, wallet.ID))

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{Amount: ptr(amount(150000))})
	require.NoError(t, err)
	assert.Equal(t, "850000", f.balance(t, wallet.ID))

	require.NoError(t, f.transactions.Delete(ctx, f.ownerID, created.ID))
	assert.Equal(t, "1000000", f.balance(t, wallet.ID))
	f.requireConsistent(t, wallet.ID)
}

func TestTransactionService_RoundTrip(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 0)
	salary := f.addCategory("Salary", domain.TransactionTypeIncome)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:      amount(4200000),
		Type:        domain.TransactionTypeIncome,
		CategoryID:  &salary.ID,
		WalletID:    &wallet.ID,
		Description: "March salary",
		Date:        time.Date(2024, time.March, 25, 18, 30, 0, 0, time.UTC),
		Tags:        []string{"work"},
	})
	require.NoError(t, err)

	read, err := f.transactions.GetByID(ctx, f.ownerID, created.ID)
	require.NoError(t, err)
	assert.True(t, read.Amount.Equal(amount(4200000)))
	assert.Equal(t, domain.TransactionTypeIncome, read.Type)
	assert.Equal(t, salary.ID, *read.CategoryID)
	assert.Equal(t, day(2024, time.March, 25), read.Date)
	assert.Equal(t, []string{"work"}, read.Tags)

	require.NoError(t, f.transactions.Delete(ctx, f.ownerID, created.ID))
	_, err = f.transactions.GetByID(ctx, f.ownerID, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionService_Update_IdenticalValuesKeepBalance(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(300),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
		Date:     day(2024, time.June, 3),
	})
	require.NoError(t, err)
	adjustmentsBefore := len(f.walletRepo.AdjustCalls)

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{
		Amount:   ptr(amount(300)),
		Type:     ptr(domain.TransactionTypeExpense),
		WalletID: &wallet.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, "700", f.balance(t, wallet.ID))
	assert.Len(t, f.walletRepo.AdjustCalls, adjustmentsBefore, "a zero net delta must not touch the wallet")
}

func TestTransactionService_Update_MovesBetweenWallets(t *testing.T) {
	f := newLedgerFixture(t)
	cash := f.addWallet("Cash", 1000)
	bank := f.addWallet("Bank", 5000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(200),
		Type:     domain.TransactionTypeExpense,
		WalletID: &cash.ID,
	})
	require.NoError(t, err)
	f.walletRepo.AdjustCalls = nil

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{
		Amount:   ptr(amount(250)),
		WalletID: &bank.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, "1000", f.balance(t, cash.ID))
	assert.Equal(t, "4750", f.balance(t, bank.ID))
	require.Len(t, f.walletRepo.AdjustCalls, 2)
	assert.Equal(t, cash.ID, f.walletRepo.AdjustCalls[0].WalletID, "old wallet settles first")
	assert.Equal(t, bank.ID, f.walletRepo.AdjustCalls[1].WalletID)
	f.requireConsistent(t, cash.ID)
	f.requireConsistent(t, bank.ID)
}

func TestTransactionService_Update_TypeFlipAppliesSingleDelta(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(100),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
	})
	require.NoError(t, err)
	f.walletRepo.AdjustCalls = nil

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{
		Type: ptr(domain.TransactionTypeIncome),
	})

	require.NoError(t, err)
	assert.Equal(t, "1100", f.balance(t, wallet.ID))
	require.Len(t, f.walletRepo.AdjustCalls, 1)
	assert.Equal(t, "200", f.walletRepo.AdjustCalls[0].Delta.String())
}

func TestTransactionService_Update_ClearWalletReversesEffect(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 1000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(400),
		Type:     domain.TransactionTypeIncome,
		WalletID: &wallet.ID,
	})
	require.NoError(t, err)

	updated, err := f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{ClearWallet: true})

	require.NoError(t, err)
	assert.Nil(t, updated.WalletID)
	assert.Equal(t, "1000", f.balance(t, wallet.ID))
}

func TestTransactionService_Update_RollsBackOnSecondWalletFailure(t *testing.T) {
	f := newLedgerFixture(t)
	cash := f.addWallet("Cash", 1000)
	bank := f.addWallet("Bank", 1000)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(100),
		Type:     domain.TransactionTypeExpense,
		WalletID: &cash.ID,
	})
	require.NoError(t, err)

	f.walletRepo.AdjustBalanceFn = func(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error) {
		if id == bank.ID {
			return nil, errors.New("deadlock detected")
		}
		return f.walletRepo.ApplyBalance(ownerID, id, delta)
	}

	_, err = f.transactions.Update(ctx, f.ownerID, created.ID, UpdateTransactionInput{WalletID: &bank.ID})

	require.Error(t, err)
	assert.Equal(t, "900", f.balance(t, cash.ID), "old wallet reversal must roll back")
	assert.Equal(t, "1000", f.balance(t, bank.ID))
	stored, err := f.transactions.GetByID(ctx, f.ownerID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, cash.ID, *stored.WalletID)
}

func TestTransactionService_Update_NotFound(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.transactions.Update(context.Background(), f.ownerID, uuid.New(), UpdateTransactionInput{Amount: ptr(amount(1))})

	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionService_Delete_OtherOwnerIsNotFound(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 100)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(10),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
	})
	require.NoError(t, err)

	err = f.transactions.Delete(ctx, domain.OwnerIDFromSubject("auth0|intruder"), created.ID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "90", f.balance(t, wallet.ID))
}

func TestTransactionService_Delete_RollsBackWhenRecordDeleteFails(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 100)
	ctx := context.Background()

	created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:   amount(10),
		Type:     domain.TransactionTypeExpense,
		WalletID: &wallet.ID,
	})
	require.NoError(t, err)
	f.transactionRepo.DeleteFn = func(ctx context.Context, ownerID, id uuid.UUID) error {
		return errors.New("statement timeout")
	}

	err = f.transactions.Delete(ctx, f.ownerID, created.ID)

	require.Error(t, err)
	assert.Equal(t, "90", f.balance(t, wallet.ID))
	assert.Equal(t, 1, f.store.TransactionCount())
}

func TestTransactionService_BalanceInvariantAcrossMutations(t *testing.T) {
	f := newLedgerFixture(t)
	cash := f.addWallet("Cash", 50000)
	bank := f.addWallet("Bank", 0)
	ctx := context.Background()

	var ids []uuid.UUID
	for i, a := range []int64{1200, 800, 4500, 300, 9900} {
		txType := domain.TransactionTypeExpense
		if i%2 == 1 {
			txType = domain.TransactionTypeIncome
		}
		walletID := cash.ID
		if i%3 == 0 {
			walletID = bank.ID
		}
		created, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
			Amount:   amount(a),
			Type:     txType,
			WalletID: &walletID,
			Date:     day(2024, time.July, i+1),
		})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	_, err := f.transactions.Update(ctx, f.ownerID, ids[0], UpdateTransactionInput{WalletID: &cash.ID, Amount: ptr(amount(2000))})
	require.NoError(t, err)
	_, err = f.transactions.Update(ctx, f.ownerID, ids[1], UpdateTransactionInput{Type: ptr(domain.TransactionTypeExpense)})
	require.NoError(t, err)
	_, err = f.transactions.Update(ctx, f.ownerID, ids[2], UpdateTransactionInput{ClearWallet: true})
	require.NoError(t, err)
	require.NoError(t, f.transactions.Delete(ctx, f.ownerID, ids[3]))

	f.requireConsistent(t, cash.ID)
	f.requireConsistent(t, bank.ID)
}

func TestTransactionService_List_FiltersAndPaginates(t *testing.T) {
	f := newLedgerFixture(t)
	wallet := f.addWallet("Cash", 0)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		txType := domain.TransactionTypeIncome
		tags := []string{}
		if i%5 == 0 {
			txType = domain.TransactionTypeExpense
			tags = []string{"rent"}
		}
		_, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
			Amount:   amount(int64(i)),
			Type:     txType,
			WalletID: &wallet.ID,
			Date:     day(2024, time.August, i),
			Tags:     tags,
		})
		require.NoError(t, err)
	}

	firstPage, err := f.transactions.List(ctx, f.ownerID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(25), firstPage.TotalItems)
	assert.Equal(t, int32(domain.DefaultPageSize), firstPage.Limit)
	require.Len(t, firstPage.Data, domain.DefaultPageSize)
	assert.Equal(t, day(2024, time.August, 25), firstPage.Data[0].Date, "newest first")

	secondPage, err := f.transactions.List(ctx, f.ownerID, &domain.TransactionFilters{Page: 1})
	require.NoError(t, err)
	assert.Len(t, secondPage.Data, 5)

	expenses, err := f.transactions.List(ctx, f.ownerID, &domain.TransactionFilters{Type: ptr(domain.TransactionTypeExpense)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), expenses.TotalItems)

	tagged, err := f.transactions.List(ctx, f.ownerID, &domain.TransactionFilters{
		Tag:       ptr("rent"),
		StartDate: ptr(day(2024, time.August, 10)),
		EndDate:   ptr(day(2024, time.August, 20)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), tagged.TotalItems)

	clamped, err := f.transactions.List(ctx, f.ownerID, &domain.TransactionFilters{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int32(domain.MaxPageSize), clamped.Limit)
}

func TestTransactionService_List_RejectsInvertedRange(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.transactions.List(context.Background(), f.ownerID, &domain.TransactionFilters{
		StartDate: ptr(day(2024, time.May, 2)),
		EndDate:   ptr(day(2024, time.May, 1)),
	})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransactionService_GetMonthlyStats(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	for _, in := range []CreateTransactionInput{
		{Amount: amount(5000), Type: domain.TransactionTypeIncome, Date: day(2024, time.February, 1)},
		{Amount: amount(1200), Type: domain.TransactionTypeExpense, Date: day(2024, time.February, 14)},
		{Amount: amount(300), Type: domain.TransactionTypeExpense, Date: day(2024, time.February, 29)},
		{Amount: amount(999), Type: domain.TransactionTypeExpense, Date: day(2024, time.March, 1)},
	} {
		_, err := f.transactions.Create(ctx, f.ownerID, in)
		require.NoError(t, err)
	}

	stats, err := f.transactions.GetMonthlyStats(ctx, f.ownerID, 2024, 2)

	require.NoError(t, err)
	assert.Equal(t, "5000", stats.Income.String())
	assert.Equal(t, "1500", stats.Expense.String())
	assert.Equal(t, "3500", stats.Balance.String())

	_, err = f.transactions.GetMonthlyStats(ctx, f.ownerID, 2024, 13)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransactionService_GetCategoryStats(t *testing.T) {
	f := newLedgerFixture(t)
	food := f.addCategory("Food", domain.TransactionTypeExpense)
	ctx := context.Background()

	for _, in := range []CreateTransactionInput{
		{Amount: amount(100), Type: domain.TransactionTypeExpense, CategoryID: &food.ID, Date: day(2024, time.April, 2)},
		{Amount: amount(50), Type: domain.TransactionTypeExpense, CategoryID: &food.ID, Date: day(2024, time.April, 3)},
		{Amount: amount(70), Type: domain.TransactionTypeExpense, Date: day(2024, time.April, 4)},
	} {
		_, err := f.transactions.Create(ctx, f.ownerID, in)
		require.NoError(t, err)
	}

	stats, err := f.transactions.GetCategoryStats(ctx, f.ownerID, day(2024, time.April, 1), day(2024, time.April, 30))

	require.NoError(t, err)
	require.Len(t, stats, 2)
	byCategory := map[bool]*domain.CategoryStat{}
	for _, s := range stats {
		byCategory[s.CategoryID != nil] = s
	}
	assert.Equal(t, "150", byCategory[true].Total.String())
	assert.Equal(t, int64(2), byCategory[true].Count)
	assert.Equal(t, "70", byCategory[false].Total.String())
}
