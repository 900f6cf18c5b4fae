package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"session-hub/app/config"
	"session-hub/app/domain"
	"session-hub/app/driver/gotrue"
	"session-hub/app/driver/memcache"
	"session-hub/app/driver/postgres"
	"session-hub/app/driver/rediscache"
	"session-hub/app/gateway"
	"session-hub/app/metrics"
	"session-hub/app/port"
	"session-hub/app/rest"
	"session-hub/app/rest/handlers"
	"session-hub/app/usecase"
	"session-hub/app/utils/logger"
)

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Drivers
	DB            *postgres.DB
	ProviderAPI   *gotrue.Client
	Cache         port.Cache
	MetricsReg    *prometheus.Registry
	closeRedis    func() error
	dropGuestData port.Unsubscribe

	// Gateway
	Provider port.IdentityProvider

	// Usecases
	Coordinator    *usecase.Coordinator
	ProfileUsecase port.ProfileUsecase
	OrderUsecase   port.OrderUsecase
	MessageUsecase port.MessageUsecase
}

// NewContainer creates and initializes a new dependency injection container
func NewContainer(cfg *config.Config, appLogger *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: appLogger,
	}

	var err error

	// Database connection
	container.DB, err = postgres.NewConnection(cfg, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Identity provider client and gateway
	container.ProviderAPI, err = gotrue.NewClient(cfg, logger.ProviderLogger(appLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity provider client: %w", err)
	}
	container.Provider = gateway.NewProviderGateway(container.ProviderAPI, appLogger)

	// Derived-data cache: Redis when configured, in-process LRU otherwise
	if cfg.RedisAddr != "" {
		redisCache, err := rediscache.New(cfg, appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		container.Cache = redisCache
		if closer, ok := redisCache.(interface{ Close() error }); ok {
			container.closeRedis = closer.Close
		}
	} else {
		container.Cache, err = memcache.New(cfg.CacheSize, appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize in-process cache: %w", err)
		}
	}

	// Metrics
	if cfg.EnableMetrics {
		container.MetricsReg = prometheus.NewRegistry()
	}
	var m *metrics.Metrics
	if container.MetricsReg != nil {
		m = metrics.New(container.MetricsReg)
	}

	// Repositories
	profileStore := postgres.NewProfileRepository(container.DB.Pool(), appLogger)
	orderStore := postgres.NewOrderRepository(container.DB.Pool(), appLogger)
	messageStore := postgres.NewMessageRepository(container.DB.Pool(), appLogger)

	// Usecases
	container.Coordinator = usecase.NewSessionCoordinator(
		container.Provider,
		profileStore,
		orderStore,
		messageStore,
		container.Cache,
		usecase.CoordinatorConfig{
			SignOutTimeout:       cfg.SignOutTimeout,
			ProviderTimeout:      cfg.ProviderTimeout,
			CacheTTL:             cfg.CacheTTL,
			GuestCheckoutEnabled: cfg.GuestCheckoutEnabled,
		},
		m,
		appLogger,
	)
	orderUC := usecase.NewOrderUsecase(orderStore, container.Cache, cfg.CacheTTL, appLogger)
	container.OrderUsecase = orderUC
	container.ProfileUsecase = usecase.NewProfileUsecase(profileStore, container.Cache, cfg.CacheTTL, appLogger)
	container.MessageUsecase = usecase.NewMessageUsecase(messageStore, container.Cache, cfg.CacheTTL, appLogger)

	// Guest order data lives in the order usecase; drop it when the guest
	// identity is replaced or cleared.
	container.dropGuestData = container.Coordinator.OnIdentityChanged(guestDataJanitor(orderUC))

	appLogger.Info("Container initialized with full dependency stack")

	return container, nil
}

// guestDataJanitor clears locally held guest orders once their identity is
// gone. Guest data is never migrated to the registered account.
func guestDataJanitor(orders *usecase.OrderUC) func(domain.IdentityEvent) {
	var lastGuestID string
	return func(e domain.IdentityEvent) {
		if e.Identity != nil && e.Identity.IsGuest {
			lastGuestID = e.Identity.ID
			return
		}
		if lastGuestID != "" {
			orders.DropGuest(lastGuestID)
			lastGuestID = ""
		}
	}
}

// Start launches the session coordinator's restore sequence.
func (c *Container) Start(ctx context.Context) {
	c.Coordinator.Start(ctx)
}

// CreateRouter creates and returns a fully configured Echo router
func (c *Container) CreateRouter() *echo.Echo {
	routerConfig := rest.RouterConfig{
		Logger:         c.Logger,
		Coordinator:    c.Coordinator,
		ProfileUsecase: c.ProfileUsecase,
		OrderUsecase:   c.OrderUsecase,
		MessageUsecase: c.MessageUsecase,
		HealthChecks: map[string]handlers.HealthCheckFunc{
			"database": c.DB.HealthCheck,
		},
		MetricsReg:    c.MetricsReg,
		EnableDebug:   c.Config.LogLevel == "debug",
		EnableMetrics: c.Config.EnableMetrics,
	}

	router := rest.NewRouter(routerConfig)

	c.Logger.Info("Full API router created")
	return router
}

// Close closes all resources
func (c *Container) Close() error {
	if c.dropGuestData != nil {
		c.dropGuestData()
	}
	if c.Coordinator != nil {
		c.Coordinator.Stop()
	}
	if c.closeRedis != nil {
		if err := c.closeRedis(); err != nil {
			c.Logger.Warn("failed to close redis connection", "error", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}

	c.Logger.Info("Container closed successfully")
	return nil
}
