package handler

import (
	"net/http"
	"testing"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCategory_Success(t *testing.T) {
	f := newAPIFixture(t)

	c, rec := f.newContext(http.MethodPost, "/api/v1/categories", `{"name": "Groceries", "type": "expense", "budgetLimit": "2000000"}`)

	require.NoError(t, f.categories.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	response := decodeJSON[CategoryResponse](t, rec)
	assert.Equal(t, "Groceries", response.Name)
	assert.Equal(t, "expense", response.Type)
	assert.Equal(t, "fas fa-tag", response.Icon)
	assert.Equal(t, "#6c757d", response.Color)
	require.NotNil(t, response.BudgetLimit)
	assert.Equal(t, "2000000", *response.BudgetLimit)
	assert.False(t, response.IsDefault)
}

func TestCreateCategory_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"type": "expense"}`, "name"},
		{"bad type", `{"name": "X", "type": "both"}`, "type"},
		{"bad limit", `{"name": "X", "type": "expense", "budgetLimit": "much"}`, "budgetLimit"},
		{"negative limit", `{"name": "X", "type": "expense", "budgetLimit": "-1"}`, "budgetLimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			c, rec := f.newContext(http.MethodPost, "/api/v1/categories", tt.body)

			require.NoError(t, f.categories.CreateCategory(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			problem := decodeJSON[ProblemDetails](t, rec)
			require.Len(t, problem.Errors, 1)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestGetCategories_FilterByType(t *testing.T) {
	f := newAPIFixture(t)
	f.addCategory("Salary", domain.TransactionTypeIncome)
	f.addCategory("Rent", domain.TransactionTypeExpense)
	f.addCategory("Food", domain.TransactionTypeExpense)

	c, rec := f.newContext(http.MethodGet, "/api/v1/categories?type=expense", "")
	require.NoError(t, f.categories.GetCategories(c))
	require.Equal(t, http.StatusOK, rec.Code)

	categories := decodeJSON[[]CategoryResponse](t, rec)
	require.Len(t, categories, 2)
	for _, cat := range categories {
		assert.Equal(t, "expense", cat.Type)
	}

	c, rec = f.newContext(http.MethodGet, "/api/v1/categories?type=transfer", "")
	require.NoError(t, f.categories.GetCategories(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCategory_ClearBudgetLimit(t *testing.T) {
	f := newAPIFixture(t)
	limit := amountOf(500)
	cat := f.store.AddCategory(&domain.Category{
		OwnerID:     f.ownerID,
		Name:        "Fun",
		Type:        domain.TransactionTypeExpense,
		Color:       "#000000",
		BudgetLimit: &limit,
	})

	c, rec := f.newContext(http.MethodPut, "/api/v1/categories/"+cat.ID.String(), `{"name": "Leisure", "clearBudgetLimit": true}`, "id", cat.ID.String())

	require.NoError(t, f.categories.UpdateCategory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeJSON[CategoryResponse](t, rec)
	assert.Equal(t, "Leisure", response.Name)
	assert.Equal(t, "expense", response.Type)
	assert.Nil(t, response.BudgetLimit)
}

func TestDeleteCategory_InUse(t *testing.T) {
	f := newAPIFixture(t)
	cat := f.addCategory("Food", domain.TransactionTypeExpense)
	f.store.AddTransaction(&domain.Transaction{
		OwnerID:    f.ownerID,
		Amount:     amountOf(1),
		Type:       domain.TransactionTypeExpense,
		CategoryID: &cat.ID,
		Date:       domain.Today(),
	})

	c, rec := f.newContext(http.MethodDelete, "/api/v1/categories/"+cat.ID.String(), "", "id", cat.ID.String())

	require.NoError(t, f.categories.DeleteCategory(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateDefaultCategories_Idempotent(t *testing.T) {
	f := newAPIFixture(t)

	c, rec := f.newContext(http.MethodPost, "/api/v1/categories/defaults", "")
	require.NoError(t, f.categories.CreateDefaultCategories(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeJSON[[]CategoryResponse](t, rec)
	assert.Len(t, created, len(domain.DefaultCategories))
	for _, cat := range created {
		assert.True(t, cat.IsDefault)
	}

	c, rec = f.newContext(http.MethodPost, "/api/v1/categories/defaults", "")
	require.NoError(t, f.categories.CreateDefaultCategories(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, decodeJSON[[]CategoryResponse](t, rec))
}

func TestGetCategoryStats_GroupsByCategory(t *testing.T) {
	f := newAPIFixture(t)
	food := f.addCategory("Food", domain.TransactionTypeExpense)
	date := domain.MonthPeriod(2024, 5).Start
	f.store.AddTransaction(&domain.Transaction{OwnerID: f.ownerID, Amount: amountOf(30), Type: domain.TransactionTypeExpense, CategoryID: &food.ID, Date: date})
	f.store.AddTransaction(&domain.Transaction{OwnerID: f.ownerID, Amount: amountOf(20), Type: domain.TransactionTypeExpense, CategoryID: &food.ID, Date: date})
	f.store.AddTransaction(&domain.Transaction{OwnerID: f.ownerID, Amount: amountOf(7), Type: domain.TransactionTypeExpense, Date: date})

	c, rec := f.newContext(http.MethodGet, "/api/v1/categories/stats?startDate=2024-05-01&endDate=2024-05-31", "")
	require.NoError(t, f.categories.GetCategoryStats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeJSON[[]CategoryStatResponse](t, rec)
	require.Len(t, stats, 2)

	byCategory := map[string]CategoryStatResponse{}
	for _, s := range stats {
		key := "uncategorized"
		if s.CategoryID != nil {
			key = *s.CategoryID
		}
		byCategory[key] = s
	}
	assert.Equal(t, "50", byCategory[food.ID.String()].Total)
	assert.Equal(t, int64(2), byCategory[food.ID.String()].Count)
	assert.Equal(t, "7", byCategory["uncategorized"].Total)
}
