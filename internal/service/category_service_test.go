package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_Create_Success(t *testing.T) {
	f := newLedgerFixture(t)
	limit := decimal.NewFromInt(2000000)

	category, err := f.categories.Create(context.Background(), f.ownerID, CreateCategoryInput{
		Name:        "Groceries",
		Type:        domain.TransactionTypeExpense,
		BudgetLimit: &limit,
	})

	require.NoError(t, err)
	assert.Equal(t, "Groceries", category.Name)
	assert.Equal(t, defaultCategoryColor, category.Color)
	assert.Equal(t, defaultCategoryIcon, category.Icon)
	assert.False(t, category.IsDefault)
	require.NotNil(t, category.BudgetLimit)
	assert.True(t, category.BudgetLimit.Equal(limit))
	assert.Equal(t, []string{"category.created"}, f.publisher.Types())
}

func TestCategoryService_Create_Validation(t *testing.T) {
	f := newLedgerFixture(t)
	negative := decimal.NewFromInt(-1)
	ctx := context.Background()

	_, err := f.categories.Create(ctx, f.ownerID, CreateCategoryInput{Name: "", Type: domain.TransactionTypeExpense})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.categories.Create(ctx, f.ownerID, CreateCategoryInput{Name: "Gifts", Type: "transfer"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.categories.Create(ctx, f.ownerID, CreateCategoryInput{Name: "Gifts", Type: domain.TransactionTypeExpense, BudgetLimit: &negative})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCategoryService_Create_DuplicateName(t *testing.T) {
	f := newLedgerFixture(t)
	f.addCategory("Food", domain.TransactionTypeExpense)

	_, err := f.categories.Create(context.Background(), f.ownerID, CreateCategoryInput{Name: "Food", Type: domain.TransactionTypeExpense})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCategoryService_Update_KeepsType(t *testing.T) {
	f := newLedgerFixture(t)
	category := f.addCategory("Food", domain.TransactionTypeExpense)
	ctx := context.Background()

	updated, err := f.categories.Update(ctx, f.ownerID, category.ID, UpdateCategoryInput{
		Name:  ptr("Dining"),
		Color: ptr("#ff0000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dining", updated.Name)
	assert.Equal(t, "#ff0000", updated.Color)
	assert.Equal(t, domain.TransactionTypeExpense, updated.Type)

	limit := decimal.NewFromInt(500)
	updated, err = f.categories.Update(ctx, f.ownerID, category.ID, UpdateCategoryInput{BudgetLimit: &limit})
	require.NoError(t, err)
	require.NotNil(t, updated.BudgetLimit)

	updated, err = f.categories.Update(ctx, f.ownerID, category.ID, UpdateCategoryInput{ClearBudgetLimit: true})
	require.NoError(t, err)
	assert.Nil(t, updated.BudgetLimit)
}

func TestCategoryService_List_FiltersByType(t *testing.T) {
	f := newLedgerFixture(t)
	f.addCategory("Salary", domain.TransactionTypeIncome)
	f.addCategory("Food", domain.TransactionTypeExpense)
	f.addCategory("Rent", domain.TransactionTypeExpense)
	ctx := context.Background()

	all, err := f.categories.List(ctx, f.ownerID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	expenses, err := f.categories.List(ctx, f.ownerID, ptr(domain.TransactionTypeExpense))
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "Food", expenses[0].Name)

	_, err = f.categories.List(ctx, f.ownerID, ptr(domain.TransactionType("bogus")))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCategoryService_Delete_InUse(t *testing.T) {
	f := newLedgerFixture(t)
	category := f.addCategory("Food", domain.TransactionTypeExpense)
	ctx := context.Background()

	_, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:     amount(10),
		Type:       domain.TransactionTypeExpense,
		CategoryID: &category.ID,
	})
	require.NoError(t, err)

	err = f.categories.Delete(ctx, f.ownerID, category.ID)

	assert.ErrorIs(t, err, domain.ErrCategoryInUse)
	_, err = f.categories.GetByID(ctx, f.ownerID, category.ID)
	assert.NoError(t, err)
}

func TestCategoryService_Delete_DropsBudgetLinks(t *testing.T) {
	f := newLedgerFixture(t)
	food := f.addCategory("Food", domain.TransactionTypeExpense)
	rent := f.addCategory("Rent", domain.TransactionTypeExpense)
	budget := f.store.AddBudget(&domain.Budget{
		OwnerID:     f.ownerID,
		Name:        "Living",
		Amount:      amount(1000),
		Period:      domain.BudgetPeriodMonthly,
		CategoryIDs: []uuid.UUID{food.ID, rent.ID},
		IsActive:    true,
	})
	ctx := context.Background()

	require.NoError(t, f.categories.Delete(ctx, f.ownerID, food.ID))

	stored, err := f.budgets.GetByID(ctx, f.ownerID, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{rent.ID}, stored.CategoryIDs)
}

func TestCategoryService_CreateDefaultCategories_SkipsExisting(t *testing.T) {
	f := newLedgerFixture(t)
	f.addCategory("salary", domain.TransactionTypeIncome)
	ctx := context.Background()

	created, err := f.categories.CreateDefaultCategories(ctx, f.ownerID)
	require.NoError(t, err)
	assert.Len(t, created, len(domain.DefaultCategories)-1)
	for _, c := range created {
		assert.True(t, c.IsDefault)
		assert.NotEqual(t, "Salary", c.Name)
	}

	again, err := f.categories.CreateDefaultCategories(ctx, f.ownerID)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := f.categories.List(ctx, f.ownerID, nil)
	require.NoError(t, err)
	assert.Len(t, all, len(domain.DefaultCategories))
}

func TestCategoryService_CreateDefaultCategories_AllOrNothing(t *testing.T) {
	f := newLedgerFixture(t)
	calls := 0
	f.categoryRepo.CreateFn = func(ctx context.Context, category *domain.Category) (*domain.Category, error) {
		calls++
		if calls == 3 {
			return nil, domain.ErrCategoryNameTaken
		}
		f.store.AddCategory(category)
		return category, nil
	}

	_, err := f.categories.CreateDefaultCategories(context.Background(), f.ownerID)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, f.store.Categories)
}

func TestCategoryService_GetCategoryStats(t *testing.T) {
	f := newLedgerFixture(t)
	food := f.addCategory("Food", domain.TransactionTypeExpense)
	ctx := context.Background()

	_, err := f.transactions.Create(ctx, f.ownerID, CreateTransactionInput{
		Amount:     amount(120),
		Type:       domain.TransactionTypeExpense,
		CategoryID: &food.ID,
		Date:       day(2024, time.October, 5),
	})
	require.NoError(t, err)

	stats, err := f.categories.GetCategoryStats(ctx, f.ownerID, day(2024, time.October, 1), day(2024, time.October, 31))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, food.ID, *stats[0].CategoryID)
	assert.Equal(t, "120", stats[0].Total.String())

	_, err = f.categories.GetCategoryStats(ctx, f.ownerID, day(2024, time.October, 31), day(2024, time.October, 1))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
