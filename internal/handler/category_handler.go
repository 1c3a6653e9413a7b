package handler

import (
	"net/http"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/middleware"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the create category request body
type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	BudgetLimit *string `json:"budgetLimit,omitempty"`
}

// UpdateCategoryRequest represents the update category request body. The type is fixed at creation.
type UpdateCategoryRequest struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	Color            *string `json:"color,omitempty"`
	Icon             *string `json:"icon,omitempty"`
	BudgetLimit      *string `json:"budgetLimit,omitempty"`
	ClearBudgetLimit bool    `json:"clearBudgetLimit,omitempty"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	Icon        string  `json:"icon"`
	IsDefault   bool    `json:"isDefault"`
	BudgetLimit *string `json:"budgetLimit,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	budgetLimit, fieldErr := parseOptionalDecimal("budgetLimit", req.BudgetLimit)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	category, err := h.categoryService.Create(c.Request().Context(), ownerID, service.CreateCategoryInput{
		Name:        req.Name,
		Type:        domain.TransactionType(req.Type),
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		BudgetLimit: budgetLimit,
	})
	if err != nil {
		return respondError(c, err, "create category")
	}

	return c.JSON(http.StatusCreated, toCategoryResponse(category))
}

// GetCategories handles GET /api/v1/categories?type=
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var categoryType *domain.TransactionType
	if raw := c.QueryParam("type"); raw != "" {
		t := domain.TransactionType(raw)
		if !t.IsValid() {
			return invalidField(c, &ValidationError{Field: "type", Message: "Must be one of: income, expense"})
		}
		categoryType = &t
	}

	categories, err := h.categoryService.List(c.Request().Context(), ownerID, categoryType)
	if err != nil {
		return respondError(c, err, "list categories")
	}
	return c.JSON(http.StatusOK, toCategoryResponses(categories))
}

// GetCategory handles GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	category, err := h.categoryService.GetByID(c.Request().Context(), ownerID, id)
	if err != nil {
		return respondError(c, err, "get category")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(category))
}

// UpdateCategory handles PUT /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	var req UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	budgetLimit, fieldErr := parseOptionalDecimal("budgetLimit", req.BudgetLimit)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	category, err := h.categoryService.Update(c.Request().Context(), ownerID, id, service.UpdateCategoryInput{
		Name:             req.Name,
		Description:      req.Description,
		Color:            req.Color,
		Icon:             req.Icon,
		BudgetLimit:      budgetLimit,
		ClearBudgetLimit: req.ClearBudgetLimit,
	})
	if err != nil {
		return respondError(c, err, "update category")
	}
	return c.JSON(http.StatusOK, toCategoryResponse(category))
}

// DeleteCategory handles DELETE /api/v1/categories/:id
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	if err := h.categoryService.Delete(c.Request().Context(), ownerID, id); err != nil {
		return respondError(c, err, "delete category")
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateDefaultCategories handles POST /api/v1/categories/defaults
func (h *CategoryHandler) CreateDefaultCategories(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	created, err := h.categoryService.CreateDefaultCategories(c.Request().Context(), ownerID)
	if err != nil {
		return respondError(c, err, "create default categories")
	}
	return c.JSON(http.StatusCreated, toCategoryResponses(created))
}

// GetCategoryStats handles GET /api/v1/categories/stats?startDate=&endDate=
func (h *CategoryHandler) GetCategoryStats(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	start, end, fieldErr := parseRangeQuery(c)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	stats, err := h.categoryService.GetCategoryStats(c.Request().Context(), ownerID, start, end)
	if err != nil {
		return respondError(c, err, "get category stats")
	}
	return c.JSON(http.StatusOK, toCategoryStatResponses(stats))
}

func toCategoryResponses(categories []*domain.Category) []CategoryResponse {
	response := make([]CategoryResponse, len(categories))
	for i, cat := range categories {
		response[i] = toCategoryResponse(cat)
	}
	return response
}

func toCategoryResponse(cat *domain.Category) CategoryResponse {
	response := CategoryResponse{
		ID:          cat.ID.String(),
		Name:        cat.Name,
		Type:        string(cat.Type),
		Description: cat.Description,
		Color:       cat.Color,
		Icon:        cat.Icon,
		IsDefault:   cat.IsDefault,
		CreatedAt:   formatTimestamp(cat.CreatedAt),
		UpdatedAt:   formatTimestamp(cat.UpdatedAt),
	}
	if cat.BudgetLimit != nil {
		limit := cat.BudgetLimit.String()
		response.BudgetLimit = &limit
	}
	return response
}
