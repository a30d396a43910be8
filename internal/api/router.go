package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api/handlers"
	"github.com/cordwell/shopapi/internal/api/middleware"
	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/config"
	"github.com/cordwell/shopapi/internal/db/repository"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	log *logrus.Logger,
	tokens *auth.TokenService,
	totpEngine *auth.TOTPEngine,
	userRepo *repository.UserRepository,
	categoryRepo *repository.CategoryRepository,
	productRepo *repository.ProductRepository,
	orderRepo *repository.OrderRepository,
	auditRepo *repository.AuditRepository,
) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))

	// Create handlers
	authHandler := handlers.NewAuthHandler(userRepo, tokens, auditRepo, log)
	otpHandler := handlers.NewOTPHandler(userRepo, totpEngine, auditRepo, log)
	adminHandler := handlers.NewAdminHandler(userRepo, auditRepo, log)
	catalogHandler := handlers.NewCatalogHandler(categoryRepo, productRepo, log)
	orderHandler := handlers.NewOrderHandler(orderRepo, productRepo, auditRepo, log)

	requireAuth := middleware.RequireAuth(tokens, log)

	// Public endpoints
	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.POST("/reset-password", authHandler.ResetPassword)
	// Pre-login second-factor check, deliberately outside the bearer gate
	router.POST("/otp/validate", otpHandler.Validate)
	router.GET("/categories", catalogHandler.ListCategories)
	router.GET("/products", catalogHandler.ListProducts)

	// Authenticated endpoints
	authed := router.Group("/")
	authed.Use(requireAuth)
	{
		authed.PUT("/password-change", authHandler.ChangePassword)
		authed.PUT("/profile", authHandler.UpdateProfile)
		authed.POST("/recovery-key", authHandler.GetRecoveryKey)

		authed.POST("/otp/generate", otpHandler.Generate)
		authed.POST("/otp/verify", otpHandler.Verify)
		authed.POST("/otp/disable", otpHandler.Disable)

		authed.POST("/orders", orderHandler.PlaceOrder)
		authed.GET("/orders", orderHandler.ListOrders)
	}

	// Admin endpoints
	admin := router.Group("/admin")
	admin.Use(requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.POST("/categories", catalogHandler.CreateCategory)
		admin.PUT("/categories/:id", catalogHandler.UpdateCategory)
		admin.DELETE("/categories/:id", catalogHandler.DeleteCategory)

		admin.POST("/products", catalogHandler.CreateProduct)
		admin.PUT("/products/:id", catalogHandler.UpdateProduct)
		admin.DELETE("/products/:id", catalogHandler.DeleteProduct)

		admin.GET("/orders", orderHandler.ListAllOrders)
		admin.PUT("/orders/:id/approve", orderHandler.ApproveOrder)
		admin.GET("/sales", orderHandler.SalesReport)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
