package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"session-hub/app/port"
	"session-hub/app/rest/handlers"
	custommw "session-hub/app/rest/middleware"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger         *slog.Logger
	Coordinator    port.SessionCoordinator
	ProfileUsecase port.ProfileUsecase
	OrderUsecase   port.OrderUsecase
	MessageUsecase port.MessageUsecase
	HealthChecks   map[string]handlers.HealthCheckFunc
	MetricsReg     *prometheus.Registry
	EnableDebug    bool
	EnableMetrics  bool
}

// NewRouter creates and configures the Echo router
func NewRouter(config RouterConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.Debug = config.EnableDebug

	// Create handlers
	authHandler := handlers.NewAuthHandler(config.Coordinator, config.Logger)
	profileHandler := handlers.NewProfileHandler(config.ProfileUsecase, config.Coordinator, config.Logger)
	orderHandler := handlers.NewOrderHandler(config.OrderUsecase, config.Logger)
	messageHandler := handlers.NewMessageHandler(config.MessageUsecase, config.Logger)
	healthHandler := handlers.NewHealthHandler(config.Logger, config.HealthChecks)

	// Create middleware
	authMiddleware := custommw.NewAuthMiddleware(config.Coordinator, config.Logger)
	rateLimiter := custommw.NewRateLimiter()

	// Global middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(custommw.DefaultCORS())
	e.Use(custommw.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())

	// API versioning
	v1 := e.Group("/v1")

	// Health endpoints (no auth required)
	health := v1.Group("/health")
	health.GET("", healthHandler.HealthCheck)
	v1.GET("/ready", healthHandler.ReadinessCheck)
	v1.GET("/live", healthHandler.LivenessCheck)

	// Authentication endpoints
	auth := v1.Group("/auth")

	// Public auth endpoints (no auth required)
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/logout", authHandler.Logout)
	auth.POST("/guest", authHandler.Guest)
	auth.GET("/session", authHandler.Session)

	// Session maintenance endpoints (require an active identity)
	authProtected := auth.Group("")
	authProtected.Use(authMiddleware.RequireIdentity())
	authProtected.POST("/refresh", authHandler.Refresh)
	authProtected.POST("/identity/refresh", authHandler.RefreshIdentity)

	// Profile endpoints: registered users only, guests have no profile row
	profile := v1.Group("/profile")
	profile.Use(authMiddleware.RequireRegistered())
	profile.GET("", profileHandler.Get)
	profile.PUT("", profileHandler.Update)

	// Order endpoints: guests allowed, their orders stay local
	orders := v1.Group("/orders")
	orders.Use(authMiddleware.RequireIdentity())
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/stats", orderHandler.Stats)

	// Message endpoints: guests get an empty mailbox
	messages := v1.Group("/messages")
	messages.Use(authMiddleware.RequireIdentity())
	messages.GET("", messageHandler.List)
	messages.GET("/unread", messageHandler.UnreadCount)

	// Metrics endpoint (if enabled)
	if config.EnableMetrics && config.MetricsReg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(config.MetricsReg, promhttp.HandlerOpts{})))
	}

	return e
}
