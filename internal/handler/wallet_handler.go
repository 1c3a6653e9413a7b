package handler

import (
	"net/http"

	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/middleware"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet-related HTTP requests
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new WalletHandler
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// CreateWalletRequest represents the create wallet request body
type CreateWalletRequest struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Type             string  `json:"type"`
	Currency         string  `json:"currency"`
	InitialBalance   *string `json:"initialBalance,omitempty"`
	Icon             string  `json:"icon"`
	Color            string  `json:"color"`
	ExcludeFromStats bool    `json:"excludeFromStats"`
}

// UpdateWalletRequest represents the update wallet request body. Absent fields are left unchanged.
type UpdateWalletRequest struct {
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	Type             *string `json:"type,omitempty"`
	Currency         *string `json:"currency,omitempty"`
	Icon             *string `json:"icon,omitempty"`
	Color            *string `json:"color,omitempty"`
	IsActive         *bool   `json:"isActive,omitempty"`
	ExcludeFromStats *bool   `json:"excludeFromStats,omitempty"`
}

// TransferRequest represents the wallet transfer request body
type TransferRequest struct {
	FromWalletID string  `json:"fromWalletId"`
	ToWalletID   string  `json:"toWalletId"`
	Amount       string  `json:"amount"`
	Description  string  `json:"description"`
	Date         *string `json:"date,omitempty"`
}

// WalletResponse represents a wallet in API responses
type WalletResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Type             string `json:"type"`
	Currency         string `json:"currency"`
	InitialBalance   string `json:"initialBalance"`
	Balance          string `json:"balance"`
	Icon             string `json:"icon"`
	Color            string `json:"color"`
	IsActive         bool   `json:"isActive"`
	ExcludeFromStats bool   `json:"excludeFromStats"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// CurrencyTotalResponse is one currency bucket of the total balance
type CurrencyTotalResponse struct {
	Currency    string `json:"currency"`
	Total       string `json:"total"`
	WalletCount int32  `json:"walletCount"`
}

// ReconciliationResponse compares a stored wallet balance with its replayed ledger
type ReconciliationResponse struct {
	WalletID        string `json:"walletId"`
	InitialBalance  string `json:"initialBalance"`
	Income          string `json:"income"`
	Expense         string `json:"expense"`
	ExpectedBalance string `json:"expectedBalance"`
	StoredBalance   string `json:"storedBalance"`
	Drift           string `json:"drift"`
	Consistent      bool   `json:"consistent"`
}

// TransferResponse represents a completed transfer
type TransferResponse struct {
	TransferID string              `json:"transferId"`
	Expense    TransactionResponse `json:"expense"`
	Income     TransactionResponse `json:"income"`
	FromWallet *WalletResponse     `json:"fromWallet,omitempty"`
	ToWallet   *WalletResponse     `json:"toWallet,omitempty"`
}

// CreateWallet handles POST /api/v1/wallets
func (h *WalletHandler) CreateWallet(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateWalletRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != nil && *req.InitialBalance != "" {
		parsed, fieldErr := parseDecimal("initialBalance", *req.InitialBalance)
		if fieldErr != nil {
			return invalidField(c, fieldErr)
		}
		initialBalance = parsed
	}

	wallet, err := h.walletService.Create(c.Request().Context(), ownerID, service.CreateWalletInput{
		Name:             req.Name,
		Description:      req.Description,
		Type:             domain.WalletType(req.Type),
		Currency:         req.Currency,
		InitialBalance:   initialBalance,
		Icon:             req.Icon,
		Color:            req.Color,
		ExcludeFromStats: req.ExcludeFromStats,
	})
	if err != nil {
		return respondError(c, err, "create wallet")
	}

	return c.JSON(http.StatusCreated, toWalletResponse(wallet))
}

// GetWallets handles GET /api/v1/wallets
func (h *WalletHandler) GetWallets(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	includeInactive, fieldErr := parseBoolQuery(c, "includeInactive")
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	wallets, err := h.walletService.List(c.Request().Context(), ownerID, includeInactive)
	if err != nil {
		return respondError(c, err, "list wallets")
	}

	response := make([]WalletResponse, len(wallets))
	for i, w := range wallets {
		response[i] = toWalletResponse(w)
	}
	return c.JSON(http.StatusOK, response)
}

// GetWallet handles GET /api/v1/wallets/:id
func (h *WalletHandler) GetWallet(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	wallet, err := h.walletService.GetByID(c.Request().Context(), ownerID, id)
	if err != nil {
		return respondError(c, err, "get wallet")
	}
	return c.JSON(http.StatusOK, toWalletResponse(wallet))
}

// UpdateWallet handles PUT /api/v1/wallets/:id
func (h *WalletHandler) UpdateWallet(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	var req UpdateWalletRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.UpdateWalletInput{
		Name:             req.Name,
		Description:      req.Description,
		Currency:         req.Currency,
		Icon:             req.Icon,
		Color:            req.Color,
		IsActive:         req.IsActive,
		ExcludeFromStats: req.ExcludeFromStats,
	}
	if req.Type != nil {
		walletType := domain.WalletType(*req.Type)
		input.Type = &walletType
	}

	wallet, err := h.walletService.Update(c.Request().Context(), ownerID, id, input)
	if err != nil {
		return respondError(c, err, "update wallet")
	}
	return c.JSON(http.StatusOK, toWalletResponse(wallet))
}

// DeleteWallet handles DELETE /api/v1/wallets/:id
func (h *WalletHandler) DeleteWallet(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	if err := h.walletService.Delete(c.Request().Context(), ownerID, id); err != nil {
		return respondError(c, err, "delete wallet")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetTotalBalance handles GET /api/v1/wallets/totals
func (h *WalletHandler) GetTotalBalance(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var currency *string
	if raw := c.QueryParam("currency"); raw != "" {
		currency = &raw
	}

	totals, err := h.walletService.GetTotalBalance(c.Request().Context(), ownerID, currency)
	if err != nil {
		return respondError(c, err, "get total balance")
	}

	response := make([]CurrencyTotalResponse, len(totals))
	for i, t := range totals {
		response[i] = CurrencyTotalResponse{
			Currency:    t.Currency,
			Total:       t.Total.String(),
			WalletCount: t.WalletCount,
		}
	}
	return c.JSON(http.StatusOK, response)
}

// ReconcileWallet handles GET /api/v1/wallets/:id/reconcile
func (h *WalletHandler) ReconcileWallet(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, fieldErr := parseUUID("id", c.Param("id"))
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	rec, err := h.walletService.ReconcileBalance(c.Request().Context(), ownerID, id)
	if err != nil {
		return respondError(c, err, "reconcile wallet")
	}

	return c.JSON(http.StatusOK, ReconciliationResponse{
		WalletID:        rec.WalletID.String(),
		InitialBalance:  rec.InitialBalance.String(),
		Income:          rec.Income.String(),
		Expense:         rec.Expense.String(),
		ExpectedBalance: rec.ExpectedBalance.String(),
		StoredBalance:   rec.StoredBalance.String(),
		Drift:           rec.Drift.String(),
		Consistent:      rec.Consistent,
	})
}

// Transfer handles POST /api/v1/wallets/transfer
func (h *WalletHandler) Transfer(c echo.Context) error {
	ownerID := middleware.GetOwnerID(c)
	if ownerID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req TransferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	fromID, fieldErr := parseUUID("fromWalletId", req.FromWalletID)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	toID, fieldErr := parseUUID("toWalletId", req.ToWalletID)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	amount, fieldErr := parseDecimal("amount", req.Amount)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}
	date, fieldErr := parseOptionalDate("date", req.Date)
	if fieldErr != nil {
		return invalidField(c, fieldErr)
	}

	transfer, err := h.walletService.Transfer(c.Request().Context(), ownerID, service.TransferInput{
		FromWalletID: fromID,
		ToWalletID:   toID,
		Amount:       amount,
		Description:  req.Description,
		Date:         date,
	})
	if err != nil {
		return respondError(c, err, "transfer between wallets")
	}

	response := TransferResponse{
		TransferID: transfer.TransferID.String(),
		Expense:    toTransactionResponse(transfer.Expense),
		Income:     toTransactionResponse(transfer.Income),
	}
	if transfer.From != nil {
		from := toWalletResponse(transfer.From)
		response.FromWallet = &from
	}
	if transfer.To != nil {
		to := toWalletResponse(transfer.To)
		response.ToWallet = &to
	}
	return c.JSON(http.StatusCreated, response)
}

func toWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:               w.ID.String(),
		Name:             w.Name,
		Description:      w.Description,
		Type:             string(w.Type),
		Currency:         w.Currency,
		InitialBalance:   w.InitialBalance.String(),
		Balance:          w.Balance.String(),
		Icon:             w.Icon,
		Color:            w.Color,
		IsActive:         w.IsActive,
		ExcludeFromStats: w.ExcludeFromStats,
		CreatedAt:        formatTimestamp(w.CreatedAt),
		UpdatedAt:        formatTimestamp(w.UpdatedAt),
	}
}
