package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID        `json:"id"`
	OwnerID     uuid.UUID        `json:"ownerId"`
	Name        string           `json:"name"`
	Type        TransactionType  `json:"type"`
	Description string           `json:"description"`
	Color       string           `json:"color"`
	Icon        string           `json:"icon"`
	IsDefault   bool             `json:"isDefault"`
	BudgetLimit *decimal.Decimal `json:"budgetLimit,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type UpdateCategoryData struct {
	Name        string
	Description string
	Color       string
	Icon        string
	BudgetLimit *decimal.Decimal
}

// DefaultCategory is a template used to seed a new owner's categories
type DefaultCategory struct {
	Name  string
	Type  TransactionType
	Icon  string
	Color string
}

// DefaultCategories is the built-in starter set
var DefaultCategories = []DefaultCategory{
	{Name: "Salary", Type: TransactionTypeIncome, Icon: "fas fa-money-bill-wave", Color: "#28a745"},
	{Name: "Bonus", Type: TransactionTypeIncome, Icon: "fas fa-gift", Color: "#20c997"},
	{Name: "Investment", Type: TransactionTypeIncome, Icon: "fas fa-chart-line", Color: "#17a2b8"},
	{Name: "Other Income", Type: TransactionTypeIncome, Icon: "fas fa-plus-circle", Color: "#6f42c1"},
	{Name: "Food & Dining", Type: TransactionTypeExpense, Icon: "fas fa-utensils", Color: "#dc3545"},
	{Name: "Transportation", Type: TransactionTypeExpense, Icon: "fas fa-car", Color: "#fd7e14"},
	{Name: "Shopping", Type: TransactionTypeExpense, Icon: "fas fa-shopping-bag", Color: "#e83e8c"},
	{Name: "Bills & Utilities", Type: TransactionTypeExpense, Icon: "fas fa-file-invoice", Color: "#ffc107"},
	{Name: "Entertainment", Type: TransactionTypeExpense, Icon: "fas fa-film", Color: "#6610f2"},
	{Name: "Health", Type: TransactionTypeExpense, Icon: "fas fa-heartbeat", Color: "#e74c3c"},
	{Name: "Education", Type: TransactionTypeExpense, Icon: "fas fa-graduation-cap", Color: "#007bff"},
	{Name: "Other Expense", Type: TransactionTypeExpense, Icon: "fas fa-ellipsis-h", Color: "#6c757d"},
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Category, error)
	GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*Category, error)
	GetAllByOwner(ctx context.Context, ownerID uuid.UUID, categoryType *TransactionType) ([]*Category, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, data *UpdateCategoryData) (*Category, error)
	// Delete removes the category only if no transaction references it
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	CountTransactions(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
}
