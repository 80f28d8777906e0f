package routes

import (
	"log/slog"
	"net/http"

	"github.com/LovationAdmin/family-budget-api/handlers"
	"github.com/LovationAdmin/family-budget-api/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Family      *handlers.FamilyHandler
	Transaction *handlers.TransactionHandler
	Budget      *handlers.BudgetHandler
	Category    *handlers.CategoryHandler
	Summary     *handlers.SummaryHandler
	Hub         *handlers.FamilyHub
	Health      gin.HandlerFunc
}

// Options configures the middleware chain of the router.
type Options struct {
	AllowedOrigins []string
	Tokens         middleware.TokenValidator
	RateLimiter    *middleware.RateLimiter
	Logger         *slog.Logger
}

// NewRouter builds the gin engine with CORS, request logging, rate limiting
// and the /api/v1 route tree.
func NewRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     opts.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if opts.Logger != nil {
		router.Use(middleware.RequestLogger(opts.Logger))
	}
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware())
	}

	if h.Health != nil {
		router.GET("/health", h.Health)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	v1 := router.Group("/api/v1")
	{
		SetupAuthRoutes(v1, h.Auth)
		if h.Hub != nil {
			v1.GET("/ws/families/:id", middleware.RequireAuthQuery(opts.Tokens), h.Hub.HandleWS)
		}

		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(opts.Tokens))
		{
			SetupUserRoutes(protected, h.User)
			SetupFamilyRoutes(protected, h.Family)
			SetupTransactionRoutes(protected, h.Transaction)
			SetupThreadRoutes(protected, h.Budget)
			SetupCategoryRoutes(protected, h.Category)
			SetupSummaryRoutes(protected, h.Summary)
		}
	}

	return router
}

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler) {
	rg.POST("/auth/signup", h.Signup)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/refresh", h.Refresh)
	rg.POST("/auth/logout", h.Logout)
}

// SetupUserRoutes sets up protected user routes.
func SetupUserRoutes(rg *gin.RouterGroup, h *handlers.UserHandler) {
	rg.GET("/user/profile", h.GetProfile)
	rg.PUT("/user/profile", h.UpdateProfile)
	rg.POST("/user/password", h.ChangePassword)
	rg.POST("/user/2fa/setup", h.SetupTOTP)
	rg.POST("/user/2fa/verify", h.VerifyTOTP)
	rg.POST("/user/2fa/disable", h.DisableTOTP)
	rg.PUT("/user/active-family", h.SetActiveFamily)
	rg.GET("/user/export", h.ExportData)
	rg.DELETE("/user/account", h.DeleteAccount)
}

// SetupFamilyRoutes sets up family and membership routes.
func SetupFamilyRoutes(rg *gin.RouterGroup, h *handlers.FamilyHandler) {
	rg.GET("/families", h.ListFamilies)
	rg.POST("/families", h.CreateFamily)
	rg.GET("/families/:id", h.GetFamily)
	rg.PUT("/families/:id", h.UpdateFamily)
	rg.DELETE("/families/:id", h.DeleteFamily)

	rg.POST("/families/:id/members", h.AddMember)
	rg.DELETE("/families/:id/members/:user_id", h.RemoveMember)
	rg.PUT("/families/:id/members/:user_id/role", h.SetMemberRole)
}

func SetupTransactionRoutes(rg *gin.RouterGroup, h *handlers.TransactionHandler) {
	rg.GET("/transactions", h.ListTransactions)
	rg.POST("/transactions", h.CreateTransaction)
	rg.GET("/transactions/:id", h.GetTransaction)
	rg.PUT("/transactions/:id", h.UpdateTransaction)
	rg.DELETE("/transactions/:id", h.DeleteTransaction)
}

// SetupThreadRoutes sets up budget thread routes.
func SetupThreadRoutes(rg *gin.RouterGroup, h *handlers.BudgetHandler) {
	rg.GET("/threads", h.ListBudgets)
	rg.POST("/threads", h.CreateBudget)
	rg.GET("/threads/:id", h.GetBudget)
	rg.PUT("/threads/:id", h.UpdateBudget)
	rg.DELETE("/threads/:id", h.DeleteBudget)
	rg.GET("/threads/:id/summary", h.GetBudgetSummary)
}

func SetupCategoryRoutes(rg *gin.RouterGroup, h *handlers.CategoryHandler) {
	rg.GET("/categories", h.ListCategories)
	rg.POST("/categories", h.CreateCategory)
	rg.DELETE("/categories/:id", h.DeleteCategory)
	rg.POST("/categories/suggest", h.SuggestCategory)
}

func SetupSummaryRoutes(rg *gin.RouterGroup, h *handlers.SummaryHandler) {
	rg.GET("/summary", h.GetSummary)
}
