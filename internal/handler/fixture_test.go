package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/domain"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/middleware"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/service"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/testutil"
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSubject = "auth0|handler-owner"

// apiFixture wires real services over an in-memory store behind the HTTP handlers
type apiFixture struct {
	store           *testutil.MemoryStore
	walletRepo      *testutil.MockWalletRepository
	transactionRepo *testutil.MockTransactionRepository

	budgetService *service.BudgetService

	wallets      *WalletHandler
	categories   *CategoryHandler
	transactions *TransactionHandler
	budgets      *BudgetHandler

	ownerID uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	txManager := testutil.NewMockTxManager(store)
	walletRepo := testutil.NewMockWalletRepository(store)
	categoryRepo := testutil.NewMockCategoryRepository(store)
	transactionRepo := testutil.NewMockTransactionRepository(store)
	budgetRepo := testutil.NewMockBudgetRepository(store)

	transactionService := service.NewTransactionService(txManager, transactionRepo, walletRepo, categoryRepo)
	walletService := service.NewWalletService(walletRepo, transactionService, domain.DefaultCurrency)
	categoryService := service.NewCategoryService(txManager, categoryRepo, transactionRepo)
	budgetService := service.NewBudgetService(txManager, budgetRepo, categoryRepo, transactionRepo)

	return &apiFixture{
		store:           store,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		budgetService:   budgetService,
		wallets:         NewWalletHandler(walletService),
		categories:      NewCategoryHandler(categoryService),
		transactions:    NewTransactionHandler(transactionService),
		budgets:         NewBudgetHandler(budgetService),
		ownerID:         domain.OwnerIDFromSubject(testSubject),
	}
}

// newContext builds an authenticated echo context. params alternates name, value.
func (f *apiFixture) newContext(method, path, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := context.WithValue(req.Context(), middleware.Auth0IDKey, testSubject)
	ctx = context.WithValue(ctx, middleware.OwnerIDKey, f.ownerID)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req.WithContext(ctx), rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func (f *apiFixture) addWallet(name string, balance int64) *domain.Wallet {
	return f.store.AddWallet(&domain.Wallet{
		OwnerID:        f.ownerID,
		Name:           name,
		InitialBalance: decimal.NewFromInt(balance),
		Balance:        decimal.NewFromInt(balance),
		Color:          "#000000",
		IsActive:       true,
	})
}

func (f *apiFixture) addCategory(name string, categoryType domain.TransactionType) *domain.Category {
	return f.store.AddCategory(&domain.Category{
		OwnerID: f.ownerID,
		Name:    name,
		Type:    categoryType,
		Color:   "#000000",
	})
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

// ownerValidator resolves "good-token" to the fixture owner and rejects anything else
type ownerValidator struct{}

func (ownerValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	if token != "good-token" {
		return nil, websocket.ErrInvalidToken
	}
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: testSubject},
	}, nil
}

// newRouter registers every route behind the real auth and rate limit middleware
func (f *apiFixture) newRouter(t *testing.T, db Pinger) *echo.Echo {
	t.Helper()

	rl := middleware.NewRateLimiterWithConfig(600, 100)
	t.Cleanup(rl.Stop)

	hub := websocket.NewHub()
	t.Cleanup(hub.Shutdown)

	e := echo.New()
	RegisterRoutes(
		e,
		middleware.NewAuthMiddlewareWithValidator(ownerValidator{}),
		rl,
		NewHealthHandler(db),
		f.wallets,
		f.categories,
		f.transactions,
		f.budgets,
		NewWebSocketHandler(hub, &mockTokenValidator{ownerID: f.ownerID}, testAllowedOrigins),
	)
	return e
}

func serve(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func amountOf(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}
