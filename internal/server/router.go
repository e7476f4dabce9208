// Package server wires services, handlers and middleware into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"kasku/internal/handlers"
	"kasku/internal/logger"
	"kasku/internal/middleware"
	"kasku/internal/services"
	"kasku/internal/session"
)

// Sessions resolves bearer tokens and issues or revokes them.
type Sessions interface {
	session.Resolver
	handlers.TokenIssuer
}

// Deps holds what the router needs from the outside world.
type Deps struct {
	DB                *gorm.DB
	Sessions          Sessions
	CORSAllowedOrigin string
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps Deps) *gin.Engine {
	db := deps.DB

	// Services
	userService := services.NewUserService(db)
	accessService := services.NewAccessService(db)
	accountService := services.NewAccountService(db)
	memberService := services.NewMemberService(db)
	walletService := services.NewWalletService(db)
	transactionService := services.NewTransactionService(db)
	budgetService := services.NewBudgetService(db)
	installmentService := services.NewInstallmentService(db)
	statCardService := services.NewStatCardService(db)
	dashboardService := services.NewDashboardService(db)
	auditService := services.NewAuditService(db)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, deps.Sessions)
	accountHandler := handlers.NewAccountHandler(accountService, auditService)
	memberHandler := handlers.NewMemberHandler(memberService, auditService)
	walletHandler := handlers.NewWalletHandler(walletService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	budgetHandler := handlers.NewBudgetHandler(budgetService, auditService)
	installmentHandler := handlers.NewInstallmentHandler(installmentService, auditService)
	statCardHandler := handlers.NewStatCardHandler(statCardService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.CORS(deps.CORSAllowedOrigin))
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	api.GET("/health", healthCheck(db))
	api.Use(middleware.Authenticate(deps.Sessions))

	// Public auth routes
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", middleware.RequireAuth(), authHandler.Logout)
	auth.GET("/me", middleware.RequireAuth(), authHandler.Me)

	// Account directory of the caller
	accounts := api.Group("/accounts", middleware.RequireAuth())
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/check-slug", accountHandler.CheckSlug)
	accounts.GET("/default", accountHandler.GetDefaultAccount)
	accounts.POST("/default", accountHandler.SetDefaultAccount)

	// Routes scoped to one account. Both groups share the prefix; the access
	// check differs.
	member := api.Group("/:account", middleware.AccountAccess(accessService, false))
	owner := api.Group("/:account", middleware.AccountAccess(accessService, true))

	member.GET("", accountHandler.GetAccount)
	owner.PATCH("", accountHandler.UpdateAccount)

	member.GET("/dashboard", dashboardHandler.GetDashboard)

	member.GET("/members", memberHandler.ListMembers)
	member.POST("/members/self", memberHandler.SelfExit)
	owner.POST("/members", memberHandler.CreateMember)
	owner.POST("/members/transfer-ownership", memberHandler.TransferOwnership)
	owner.PATCH("/members/:id", memberHandler.UpdateMember)
	owner.DELETE("/members/:id", memberHandler.RemoveMember)

	member.GET("/wallets", walletHandler.ListWallets)
	member.POST("/wallets", walletHandler.CreateWallet)
	owner.POST("/wallets/transfer", walletHandler.Transfer)
	member.GET("/wallets/:id", walletHandler.GetWallet)
	member.PATCH("/wallets/:id", walletHandler.UpdateWallet)
	member.DELETE("/wallets/:id", walletHandler.DeleteWallet)
	member.POST("/wallets/:id/adjust", walletHandler.AdjustBalance)

	member.GET("/transactions", transactionHandler.ListTransactions)
	member.POST("/transactions", transactionHandler.CreateTransaction)
	member.GET("/transactions/overview", transactionHandler.GetOverview)
	member.GET("/transactions/categories", transactionHandler.SuggestCategories)
	member.GET("/transactions/:id", transactionHandler.GetTransaction)
	member.PATCH("/transactions/:id", transactionHandler.UpdateTransaction)
	member.DELETE("/transactions/:id", transactionHandler.DeleteTransaction)

	member.GET("/budgets", budgetHandler.ListBudgets)
	member.POST("/budgets", budgetHandler.CreateBudget)
	member.PATCH("/budgets/:id", budgetHandler.UpdateBudget)
	member.DELETE("/budgets/:id", budgetHandler.DeleteBudget)
	member.GET("/budgets/:id/progress", budgetHandler.GetBudgetProgress)

	member.GET("/installments", installmentHandler.ListInstallments)
	member.POST("/installments", installmentHandler.CreateInstallment)
	member.PATCH("/installments/:id", installmentHandler.UpdateInstallment)
	member.DELETE("/installments/:id", installmentHandler.DeleteInstallment)
	member.POST("/installments/:id/pay", installmentHandler.PayInstallment)

	member.GET("/stat-cards", statCardHandler.ListStatCards)
	member.POST("/stat-cards", statCardHandler.CreateStatCard)
	member.PATCH("/stat-cards/:id", statCardHandler.UpdateStatCard)
	member.DELETE("/stat-cards/:id", statCardHandler.DeleteStatCard)

	return router
}

// healthCheck reports whether the database answers a ping.
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.Get().Errorw("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
