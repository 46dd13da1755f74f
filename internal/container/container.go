package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/service"
	"github.com/garyjia/expense-reimbursement/internal/application/workflow"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/identity"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/metrics"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/worker"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	storage   *StorageBundle
	identity  *identity.JWTProvider
	notifiers []port.Notifier
	metrics   *metrics.Metrics

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Organization port.OrganizationRepository
	User         port.UserRepository
	Membership   port.MembershipRepository
	Expense      port.ExpenseRepository
	Policy       port.PolicyRepository
	Voucher      port.VoucherRepository
	Invite       port.InviteRepository
	InviteLink   port.InviteLinkRepository
	Comment      port.CommentRepository
	History      port.HistoryRepository
	Notification port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Engine       workflow.Engine
	Organization service.OrganizationService
	Membership   service.MembershipService
	Expense      service.ExpenseService
	Comment      service.CommentService
	Invite       service.InviteService
	Voucher      service.VoucherService
	Export       service.ExportService
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External adapters (storage, identity, notifiers, metrics)
// 3. Event dispatcher
// 4. Application services and event subscriptions
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize external adapters
	if err := c.initExternal(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.logger.Info("External adapters initialized")

	// Step 3: Initialize dispatcher
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	// Step 4: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 5: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Stop workers (reverse of step 5)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 2: Drain in-flight side effects (reverse of step 3)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database (reverse of step 1)
	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	set := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	switch {
	case c.sqlDB == nil:
		set("database", ComponentHealth{Message: "not initialized"})
	default:
		if err := c.sqlDB.Ping(); err != nil {
			set("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)})
		} else {
			set("database", ComponentHealth{Healthy: true})
		}
	}

	if c.workers != nil {
		set("workers", ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		})
	} else {
		set("workers", ComponentHealth{Message: "not initialized"})
	}

	if c.dispatcher != nil {
		set("dispatcher", ComponentHealth{Healthy: true})
	} else {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	set("notifiers", ComponentHealth{
		Healthy: len(c.notifiers) > 0,
		Message: fmt.Sprintf("channels: %d", len(c.notifiers)),
	})

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) closeDatabase() {
	if c.sqlDB != nil {
		c.sqlDB.Close()
		c.sqlDB = nil
	}
}

// initExternal initializes storage, identity, notifiers and metrics.
func (c *Container) initExternal() error {
	storageBundle, err := ProvideStorage(c.config, c.logger)
	if err != nil {
		return err
	}
	c.storage = storageBundle

	provider, err := ProvideIdentity(&c.config.Auth)
	if err != nil {
		return err
	}
	c.identity = provider

	notifiers, err := ProvideNotifiers(c.config, c.logger)
	if err != nil {
		return err
	}
	c.notifiers = notifiers

	c.metrics = metrics.New()
	return nil
}

// initServices initializes all application services and subscribes their handlers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Config:     c.config,
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Storage:    c.storage,
		Notifiers:  c.notifiers,
		Metrics:    c.metrics,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	RegisterEventHandlers(c.dispatcher, services, c.logger)
	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Config:   &c.config.Worker,
		Services: c.services,
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Storage returns the file storage and URL signer.
func (c *Container) Storage() *StorageBundle {
	return c.storage
}

// Identity returns the bearer token provider.
func (c *Container) Identity() *identity.JWTProvider {
	return c.identity
}

// Metrics returns the prometheus collectors.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of the
// application packages.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

// NewLoggerAdapter wraps logger for packages that log with key-value pairs.
func NewLoggerAdapter(logger *zap.Logger) service.Logger {
	return &zapLoggerAdapter{logger: logger}
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

var (
	_ service.Logger    = (*zapLoggerAdapter)(nil)
	_ dispatcher.Logger = (*zapLoggerAdapter)(nil)
	_ workflow.Logger   = (*zapLoggerAdapter)(nil)
)
