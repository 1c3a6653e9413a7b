package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BudgetPeriod string

const (
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// IsValid reports whether p is a supported period
func (p BudgetPeriod) IsValid() bool {
	switch p {
	case BudgetPeriodMonthly, BudgetPeriodQuarterly, BudgetPeriodYearly:
		return true
	}
	return false
}

const DefaultAlertThreshold = 80

type Budget struct {
	ID                   uuid.UUID       `json:"id"`
	OwnerID              uuid.UUID       `json:"ownerId"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Amount               decimal.Decimal `json:"amount"`
	Period               BudgetPeriod    `json:"period"`
	CategoryIDs          []uuid.UUID     `json:"categoryIds"`
	StartDate            time.Time       `json:"startDate"`
	EndDate              *time.Time      `json:"endDate,omitempty"`
	Color                string          `json:"color"`
	Icon                 string          `json:"icon"`
	AlertThreshold       int32           `json:"alertThreshold"`
	NotificationsEnabled bool            `json:"notificationsEnabled"`
	IsActive             bool            `json:"isActive"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// CoversDate reports whether date lies inside the budget's [StartDate, EndDate] window
func (b *Budget) CoversDate(date time.Time) bool {
	day := DateOf(date)
	if !b.StartDate.IsZero() && day.Before(DateOf(b.StartDate)) {
		return false
	}
	if b.EndDate != nil && day.After(DateOf(*b.EndDate)) {
		return false
	}
	return true
}

// UpdateBudgetData holds the full post-update budget state
type UpdateBudgetData struct {
	Name                 string
	Description          string
	Amount               decimal.Decimal
	Period               BudgetPeriod
	CategoryIDs          []uuid.UUID
	StartDate            time.Time
	EndDate              *time.Time
	Color                string
	Icon                 string
	AlertThreshold       int32
	NotificationsEnabled bool
	IsActive             bool
}

type BudgetProgress struct {
	BudgetID  uuid.UUID       `json:"budgetId"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	// Percentage is spent/amount*100 rounded to the nearest integer
	Percentage int64 `json:"percentage"`
	// Ratio is the unrounded spent/amount*100
	Ratio  decimal.Decimal `json:"ratio"`
	Period Period          `json:"period"`
}

type BudgetAlert struct {
	BudgetID   uuid.UUID       `json:"budgetId"`
	BudgetName string          `json:"budgetName"`
	Percentage decimal.Decimal `json:"percentage"`
	Threshold  int32           `json:"threshold"`
	Remaining  decimal.Decimal `json:"remaining"`
	Spent      decimal.Decimal `json:"spent"`
	Amount     decimal.Decimal `json:"amount"`
}

type BudgetRepository interface {
	Create(ctx context.Context, budget *Budget) (*Budget, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Budget, error)
	GetAllByOwner(ctx context.Context, ownerID uuid.UUID, includeInactive bool) ([]*Budget, error)
	GetAlertable(ctx context.Context, ownerID uuid.UUID) ([]*Budget, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, data *UpdateBudgetData) (*Budget, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
