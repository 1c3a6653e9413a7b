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

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	Amount      string   `json:"amount"`
	Type        string   `json:"type"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	WalletID    *string  `json:"walletId,omitempty"`
	Description string   `json:"description"`
	Date        *string  `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateTransactionRequest represents the update transaction request body. Absent fields
// are left unchanged; clearCategory and clearWallet detach the reference.
type UpdateTransactionRequest struct {
	Amount        *string  `json:"amount,omitempty"`
	Type          *string  `json:"type,omitempty"`
	CategoryID    *string  `json:"categoryId,omitempty"`
	ClearCategory bool     `json:"clearCategory,omitempty"`
	WalletID      *string  `json:"walletId,omitempty"`
	ClearWallet   bool     `json:"clearWallet,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Date          *string  `json:"date,omitempty"`
	Tags          []string `json:"tags"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          string   `json:"id"`
	Amount      string   `json:"amount"`
	Type        string   `json:"type"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	WalletID    *string  `json:"walletId,omitempty"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	TransferID  *string  `json:"transferId,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// PaginatedTransactionsResponse is one page of transactions
type PaginatedTransactionsResponse struct {
	Data       []TransactionResponse `json:"data"`
	Page       int32                 `json:"page"`
	Limit      int32                 `json:"limit"`
	TotalItems int64                 `json:"totalItems"`
	TotalPages int64                 `json:"totalPages"`
}

// MonthlyStatsResponse is the income/expense summary of one calendar month
type MonthlyStatsResponse struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

// CategoryStatResponse is one category aggregation bucket
type CategoryStatResponse struct {
	CategoryID   *string `json:"categoryId"`
	CategoryName *string `json:"categoryName,omitempty"`
	Type         string  `json:"type"`
	Total        string  `json:"total"`
	Count        int64   `json:"count"`
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, fieldErr := parseDecimal("amount", req.Amount)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	categoryID, fieldErr := parseOptionalUUID("categoryId", req.CategoryID)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	walletID, fieldErr := parseOptionalUUID("walletId", req.WalletID)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	date, fieldErr := parseOptionalDate("date", req.Date)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	input := service.CreateTransactionInput{
		Amount:      amount,
		Type:        domain.TransactionType(req.Type),
		CategoryID:  categoryID,
		WalletID:    walletID,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if date != nil {
		input.Date = *date
	}

	transaction, err := h.transactionService.Create(c.Request().Context(), ownerID, input)
	if err != nil {
		return respondError(c, err, "create transaction")
	}

	return c.JSON(http.StatusCreated, toTransactionResponse(transaction))
}

// GetTransactions handles GET /api/v1/transactions
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	filters := &domain.TransactionFilters{}

	if raw := c.QueryParam("type"); raw != "" {
		txType := domain.TransactionType(raw)
		if !txType.IsValid() {
			return invalidField(c, &ValidationError{Field: "type", Message: "Must be one of: income, expense"})
		}
		filters.Type = &txType
	}
	walletRaw := c.QueryParam("walletId")
	walletID, fieldErr := parseOptionalUUID("walletId", &walletRaw)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	filters.WalletID = walletID

	categoryRaw := c.QueryParam("categoryId")
	categoryID, fieldErr := parseOptionalUUID("categoryId", &categoryRaw)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	filters.CategoryID = categoryID

	if tag := c.QueryParam("tag"); tag != "" {
		filters.Tag = &tag
	}
	if filters.StartDate, fieldErr = parseDateQuery(c, "startDate"); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if filters.EndDate, fieldErr = parseDateQuery(c, "endDate"); fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	page, fieldErr := parseIntQuery(c, "page", 0)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	limit, fieldErr := parseIntQuery(c, "limit", domain.DefaultPageSize)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	filters.Page = int32(page)
	filters.Limit = int32(limit)

	result, err := h.transactionService.List(c.Request().Context(), ownerID, filters)
	if err != nil {
		return respondError(c, err, "list transactions")
	}

	data := make([]TransactionResponse, len(result.Data))
	for i, t := range result.Data {
		data[i] = toTransactionResponse(t)
	}

	var totalPages int64
	if result.Limit > 0 {
		totalPages = (result.TotalItems + int64(result.Limit) - 1) / int64(result.Limit)
	}

	return c.JSON(http.StatusOK, PaginatedTransactionsResponse{
		Data:       data,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	})
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	transaction, err := h.transactionService.GetByID(c.Request().Context(), ownerID, id)
	if err != nil {
		return respondError(c, err, "get transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// UpdateTransaction handles PUT /api/v1/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateTransactionInput{
		ClearCategory: req.ClearCategory,
		ClearWallet:   req.ClearWallet,
		Description:   req.Description,
		Tags:          req.Tags,
	}
	if input.Amount, fieldErr = parseOptionalDecimal("amount", req.Amount); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if req.Type != nil {
		txType := domain.TransactionType(*req.Type)
		input.Type = &txType
	}
	if input.CategoryID, fieldErr = parseOptionalUUID("categoryId", req.CategoryID); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if input.WalletID, fieldErr = parseOptionalUUID("walletId", req.WalletID); fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	if input.Date, fieldErr = parseOptionalDate("date", req.Date); fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	transaction, err := h.transactionService.Update(c.Request().Context(), ownerID, id, input)
	if err != nil {
		return respondError(c, err, "update transaction")
	}
	return c.JSON(http.StatusOK, toTransactionResponse(transaction))
}

// DeleteTransaction handles DELETE /api/v1/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	if err := h.transactionService.Delete(c.Request().Context(), ownerID, id); err != nil {
		return respondError(c, err, "delete transaction")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMonthlyStats handles GET /api/v1/transactions/stats/monthly?year=&month=
// Year and month default to the current UTC month.
func (h *TransactionHandler) GetMonthlyStats(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	now := domain.Today()
	year, fieldErr := parseIntQuery(c, "year", now.Year())
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	month, fieldErr := parseIntQuery(c, "month", int(now.Month()))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	stats, err := h.transactionService.GetMonthlyStats(c.Request().Context(), ownerID, year, month)
	if err != nil {
		return respondError(c, err, "get monthly stats")
	}

	return c.JSON(http.StatusOK, MonthlyStatsResponse{
		Year:    stats.Year,
		Month:   stats.Month,
		Income:  stats.Income.String(),
		Expense: stats.Expense.String(),
		Balance: stats.Balance.String(),
	})
}

// GetCategoryStats handles GET /api/v1/transactions/stats/categories?startDate=&endDate=
// The range defaults to the current UTC month.
func (h *TransactionHandler) GetCategoryStats(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	start, end, fieldErr := parseRangeQuery(c)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	stats, err := h.transactionService.GetCategoryStats(c.Request().Context(), ownerID, start, end)
	if err != nil {
		return respondError(c, err, "get category stats")
	}
	return c.JSON(http.StatusOK, toCategoryStatResponses(stats))
}

// parseRangeQuery reads startDate/endDate, falling back to the current month for either bound
func parseRangeQuery(c echo.Context) (time.Time, time.Time, *ValidationError) {
	today := domain.Today()
	month := domain.MonthPeriod(today.Year(), today.Month())

	start, fieldErr := parseDateQuery(c, "startDate")
	if fieldErr != nil {
		return time.Time{}, time.Time{}, fieldErr
	}
	end, fieldErr := parseDateQuery(c, "endDate")
	if fieldErr != nil {
		return time.Time{}, time.Time{}, fieldErr
	}
	if start == nil {
		start = &month.Start
	}
	if end == nil {
		end = &month.End
	}
	return *start, *end, nil
}

func toCategoryStatResponses(stats []*domain.CategoryStat) []CategoryStatResponse {
	response := make([]CategoryStatResponse, len(stats))
	for i, s := range stats {
		response[i] = CategoryStatResponse{
			CategoryID:   formatOptionalUUID(s.CategoryID),
			CategoryName: s.CategoryName,
			Type:         string(s.Type),
			Total:        s.Total.String(),
			Count:        s.Count,
		}
	}
	return response
}

func toTransactionResponse(t *domain.Transaction) TransactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TransactionResponse{
		ID:          t.ID.String(),
		Amount:      t.Amount.String(),
		Type:        string(t.Type),
		CategoryID:  formatOptionalUUID(t.CategoryID),
		WalletID:    formatOptionalUUID(t.WalletID),
		Description: t.Description,
		Date:        formatDate(t.Date),
		Tags:        tags,
		TransferID:  formatOptionalUUID(t.TransferID),
		CreatedAt:   formatTimestamp(t.CreatedAt),
		UpdatedAt:   formatTimestamp(t.UpdatedAt),
	}
}
