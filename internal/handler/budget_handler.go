package handler

import (
	"net/http"
	"time"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/middleware"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// CreateBudgetRequest represents the create budget request body
type CreateBudgetRequest struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Amount               string   `json:"amount"`
	Period               string   `json:"period"`
	CategoryIDs          []string `json:"categoryIds"`
	StartDate            *string  `json:"startDate,omitempty"`
	EndDate              *string  `json:"endDate,omitempty"`
	Color                string   `json:"color"`
	Icon                 string   `json:"icon"`
	AlertThreshold       *int32   `json:"alertThreshold,omitempty"`
	NotificationsEnabled *bool    `json:"notificationsEnabled,omitempty"`
}

// UpdateBudgetRequest represents the update budget request body. A present categoryIds
// replaces the whole category set.
type UpdateBudgetRequest struct {
	Name                 *string  `json:"name,omitempty"`
	Description          *string  `json:"description,omitempty"`
	Amount               *string  `json:"amount,omitempty"`
	Period               *string  `json:"period,omitempty"`
	CategoryIDs          []string `json:"categoryIds"`
	StartDate            *string  `json:"startDate,omitempty"`
	EndDate              *string  `json:"endDate,omitempty"`
	ClearEndDate         bool     `json:"clearEndDate,omitempty"`
	Color                *string  `json:"color,omitempty"`
	Icon                 *string  `json:"icon,omitempty"`
	AlertThreshold       *int32   `json:"alertThreshold,omitempty"`
	NotificationsEnabled *bool    `json:"notificationsEnabled,omitempty"`
	IsActive             *bool    `json:"isActive,omitempty"`
}

// BudgetResponse represents a budget in API responses
type BudgetResponse struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Amount               string   `json:"amount"`
	Period               string   `json:"period"`
	CategoryIDs          []string `json:"categoryIds"`
	StartDate            string   `json:"startDate"`
	EndDate              *string  `json:"endDate,omitempty"`
	Color                string   `json:"color"`
	Icon                 string   `json:"icon"`
	AlertThreshold       int32    `json:"alertThreshold"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	IsActive             bool     `json:"isActive"`
	CreatedAt            string   `json:"createdAt"`
	UpdatedAt            string   `json:"updatedAt"`
}

// BudgetProgressResponse is the spend of a budget over one period
type BudgetProgressResponse struct {
	BudgetID    string `json:"budgetId"`
	Budget      string `json:"budget"`
	Spent       string `json:"spent"`
	Remaining   string `json:"remaining"`
	Percentage  int64  `json:"percentage"`
	PeriodStart string `json:"periodStart"`
	PeriodEnd   string `json:"periodEnd"`
}

// BudgetAlertResponse is a budget whose spend has reached its alert threshold
type BudgetAlertResponse struct {
	BudgetID   string `json:"budgetId"`
	BudgetName string `json:"budgetName"`
	Percentage string `json:"percentage"`
	Threshold  int32  `json:"threshold"`
	Remaining  string `json:"remaining"`
	Spent      string `json:"spent"`
	Amount     string `json:"amount"`
}

// CreateBudget handles POST /api/v1/budgets
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, fieldErr := parseDecimal("amount", req.Amount)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	categoryIDs, fieldErr := parseUUIDs("categoryIds", req.CategoryIDs)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	startDate, fieldErr := parseOptionalDate("startDate", req.StartDate)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	endDate, fieldErr := parseOptionalDate("endDate", req.EndDate)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	input := service.CreateBudgetInput{
		Name:                 req.Name,
		Description:          req.Description,
		Amount:               amount,
		Period:               domain.BudgetPeriod(req.Period),
		CategoryIDs:          categoryIDs,
		EndDate:              endDate,
		Color:                req.Color,
		Icon:                 req.Icon,
		AlertThreshold:       req.AlertThreshold,
		NotificationsEnabled: req.NotificationsEnabled,
	}
	if startDate != nil {
		input.StartDate = *startDate
	}

	budget, err := h.budgetService.Create(c.Request().Context(), ownerID, input)
	if err != nil {
		return respondError(c, err, "create budget")
	}
	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// GetBudgets handles GET /api/v1/budgets?includeInactive=
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	includeInactive, fieldErr := parseBoolQuery(c, "includeInactive")
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	budgets, err := h.budgetService.List(c.Request().Context(), ownerID, includeInactive)
	if err != nil {
		return respondError(c, err, "list budgets")
	}

	response := make([]BudgetResponse, len(budgets))
	for i, b := range budgets {
		response[i] = toBudgetResponse(b)
	}
	return c.JSON(http.StatusOK, response)
}

// GetBudget handles GET /api/v1/budgets/:id
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	budget, err := h.budgetService.GetByID(c.Request().Context(), ownerID, id)
	if err != nil {
		return respondError(c, err, "get budget")
	}
	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// UpdateBudget handles PUT /api/v1/budgets/:id
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateBudgetInput{
		Name:                 req.Name,
		Description:          req.Description,
		ClearEndDate:         req.ClearEndDate,
		Color:                req.Color,
		Icon:                 req.Icon,
		AlertThreshold:       req.AlertThreshold,
		NotificationsEnabled: req.NotificationsEnabled,
		IsActive:             req.IsActive,
	}
	if input.Amount, fieldErr = parseOptionalDecimal("amount", req.Amount); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if req.Period != nil {
		period := domain.BudgetPeriod(*req.Period)
		input.Period = &period
	}
	if input.CategoryIDs, fieldErr = parseUUIDs("categoryIds", req.CategoryIDs); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if input.StartDate, fieldErr = parseOptionalDate("startDate", req.StartDate); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if input.EndDate, fieldErr = parseOptionalDate("endDate", req.EndDate); fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	budget, err := h.budgetService.Update(c.Request().Context(), ownerID, id, input)
	if err != nil {
		return respondError(c, err, "update budget")
	}
	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// DeleteBudget handles DELETE /api/v1/budgets/:id
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	if err := h.budgetService.Delete(c.Request().Context(), ownerID, id); err != nil {
		return respondError(c, err, "delete budget")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBudgetProgress handles GET /api/v1/budgets/:id/progress?date=
// The period is the one containing date, or today when date is absent.
func (h *BudgetHandler) GetBudgetProgress(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	ref, fieldErr := parseDateQuery(c, "date")
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	var refDate time.Time
	if ref != nil {
		refDate = *ref
	}

	progress, err := h.budgetService.GetBudgetProgress(c.Request().Context(), ownerID, id, refDate)
	if err != nil {
		return respondError(c, err, "get budget progress")
	}

	return c.JSON(http.StatusOK, BudgetProgressResponse{
		BudgetID:    progress.BudgetID.String(),
		Budget:      progress.Budget.String(),
		Spent:       progress.Spent.String(),
		Remaining:   progress.Remaining.String(),
		Percentage:  progress.Percentage,
		PeriodStart: formatDate(progress.Period.Start),
		PeriodEnd:   formatDate(progress.Period.End),
	})
}

// GetBudgetAlerts handles GET /api/v1/budgets/alerts
func (h *BudgetHandler) GetBudgetAlerts(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	alerts, err := h.budgetService.CheckBudgetAlerts(c.Request().Context(), ownerID)
	if err != nil {
		return respondError(c, err, "check budget alerts")
	}

	response := make([]BudgetAlertResponse, len(alerts))
	for i, a := range alerts {
		response[i] = BudgetAlertResponse{
			BudgetID:   a.BudgetID.String(),
			BudgetName: a.BudgetName,
			Percentage: a.Percentage.StringFixed(2),
			Threshold:  a.Threshold,
			Remaining:  a.Remaining.String(),
			Spent:      a.Spent.String(),
			Amount:     a.Amount.String(),
		}
	}
	return c.JSON(http.StatusOK, response)
}

func toBudgetResponse(b *domain.Budget) BudgetResponse {
	categoryIDs := make([]string, len(b.CategoryIDs))
	for i, id := range b.CategoryIDs {
		categoryIDs[i] = id.String()
	}
	return BudgetResponse{
		ID:                   b.ID.String(),
		Name:                 b.Name,
		Description:          b.Description,
		Amount:               b.Amount.String(),
		Period:               string(b.Period),
		CategoryIDs:          categoryIDs,
		StartDate:            formatDate(b.StartDate),
		EndDate:              formatOptionalDate(b.EndDate),
		Color:                b.Color,
		Icon:                 b.Icon,
		AlertThreshold:       b.AlertThreshold,
		NotificationsEnabled: b.NotificationsEnabled,
		IsActive:             b.IsActive,
		CreatedAt:            formatTimestamp(b.CreatedAt),
		UpdatedAt:            formatTimestamp(b.UpdatedAt),
	}
}
