package handler

import (
	"github.com/dafibh/ledgerly/ledgerly-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes. Every /api/v1 route is authenticated and then
// rate limited per owner.
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	healthHandler *HealthHandler,
	walletHandler *WalletHandler,
	categoryHandler *CategoryHandler,
	transactionHandler *TransactionHandler,
	budgetHandler *BudgetHandler,
	wsHandler *WebSocketHandler,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// WebSocket authenticates with a query token instead of the Authorization header
	e.GET("/ws", wsHandler.HandleWS)

	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Wallet routes
	wallets := api.Group("/wallets")
	wallets.POST("", walletHandler.CreateWallet)
	wallets.GET("", walletHandler.GetWallets)
	wallets.GET("/totals", walletHandler.GetTotalBalance)
	wallets.POST("/transfer", walletHandler.Transfer)
	wallets.GET("/:id", walletHandler.GetWallet)
	wallets.PUT("/:id", walletHandler.UpdateWallet)
	wallets.DELETE("/:id", walletHandler.DeleteWallet)
	wallets.GET("/:id/reconcile", walletHandler.ReconcileWallet)

	// Category routes
	categories := api.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.POST("/defaults", categoryHandler.CreateDefaultCategories)
	categories.GET("/stats", categoryHandler.GetCategoryStats)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Transaction routes
	transactions := api.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/stats/monthly", transactionHandler.GetMonthlyStats)
	transactions.GET("/stats/categories", transactionHandler.GetCategoryStats)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	// Budget routes
	budgets := api.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/alerts", budgetHandler.GetBudgetAlerts)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)
}
