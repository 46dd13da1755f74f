package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/application/dispatcher"
	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/application/service"
	"github.com/garyjia/expense-reimbursement/internal/application/workflow"
	"github.com/garyjia/expense-reimbursement/internal/domain/entity"
	"github.com/garyjia/expense-reimbursement/internal/domain/event"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/document"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/export"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/external/lark"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/external/lognotifier"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/external/sendgrid"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/identity"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/metrics"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/storage"
	"github.com/garyjia/expense-reimbursement/internal/infrastructure/worker"
	"github.com/garyjia/expense-reimbursement/migrations"
	"github.com/garyjia/expense-reimbursement/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds storage-related components.
type StorageBundle struct {
	FileStorage *storage.LocalFileStorage
	Signer      *storage.JWTURLSigner
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrationsFS(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Organization: repository.NewOrganizationRepository(sqlDB, logger),
		User:         repository.NewUserRepository(sqlDB, logger),
		Membership:   repository.NewMembershipRepository(sqlDB, logger),
		Expense:      repository.NewExpenseRepository(sqlDB, logger),
		Policy:       repository.NewPolicyRepository(sqlDB, logger),
		Voucher:      repository.NewVoucherRepository(sqlDB, logger),
		Invite:       repository.NewInviteRepository(sqlDB, logger),
		InviteLink:   repository.NewInviteLinkRepository(sqlDB, logger),
		Comment:      repository.NewCommentRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideStorage creates the local object store and the download URL signer.
func ProvideStorage(cfg *Config, logger *zap.Logger) (*StorageBundle, error) {
	if cfg.Storage.BaseDir == "" {
		return nil, fmt.Errorf("storage base dir is required")
	}
	return &StorageBundle{
		FileStorage: storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger),
		Signer:      storage.NewJWTURLSigner(cfg.signingSecret(), cfg.Storage.FilesBaseURL, cfg.Auth.Issuer),
	}, nil
}

// ProvideIdentity creates the bearer token verifier.
func ProvideIdentity(cfg *AuthConfig) (*identity.JWTProvider, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return identity.NewJWTProvider(cfg.JWTSecret, cfg.Issuer), nil
}

// ProvideNotifiers creates one notifier per enabled channel.
func ProvideNotifiers(cfg *Config, logger *zap.Logger) ([]port.Notifier, error) {
	notifiers := make([]port.Notifier, 0, len(cfg.Notification.Channels))
	for _, ch := range cfg.Notification.Channels {
		switch ch {
		case entity.ChannelEmail:
			notifiers = append(notifiers, sendgrid.NewNotifier(sendgrid.Config{
				APIKey:    cfg.SendGrid.APIKey,
				FromEmail: cfg.SendGrid.FromEmail,
				FromName:  cfg.SendGrid.FromName,
				Host:      cfg.SendGrid.Host,
			}, logger))
		case entity.ChannelLark:
			client := lark.NewSDKClient(lark.Config{
				AppID:     cfg.Lark.AppID,
				AppSecret: cfg.Lark.AppSecret,
				BaseURL:   cfg.Lark.BaseURL,
			}, logger)
			notifiers = append(notifiers, lark.NewNotifier(client, logger))
		case entity.ChannelLog:
			notifiers = append(notifiers, lognotifier.NewNotifier(logger))
		default:
			return nil, fmt.Errorf("unknown notification channel %q", ch)
		}
		logger.Info("Notification channel enabled", zap.String("channel", ch))
	}
	return notifiers, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Config     *Config
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Storage    *StorageBundle
	Notifiers  []port.Notifier
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

// ProvideServices creates the workflow engine and all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.TxManager == nil {
		return nil, fmt.Errorf("repositories and transaction manager are required")
	}
	cfg := deps.Config
	repos := deps.Repos
	logger := &zapLoggerAdapter{logger: deps.Logger}

	engine := workflow.NewEngine(
		repos.Expense,
		repos.History,
		repos.Policy,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithMetrics(deps.Metrics),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger.Named("workflow")}),
	)

	return &ServiceBundle{
		Engine: engine,
		Organization: service.NewOrganizationService(
			repos.Organization, repos.Membership, repos.Policy, deps.TxManager, logger),
		Membership: service.NewMembershipService(repos.Membership, deps.TxManager, logger),
		Expense: service.NewExpenseService(
			repos.Expense, repos.History, repos.Policy, repos.Membership, repos.Voucher, engine, logger),
		Comment: service.NewCommentService(repos.Expense, repos.Comment, deps.Dispatcher, logger),
		Invite: service.NewInviteService(
			repos.Invite, repos.InviteLink, repos.Membership, deps.TxManager, logger,
			service.WithInviteDispatcher(deps.Dispatcher),
			service.WithInviteMetrics(deps.Metrics),
			service.WithInviteTTL(cfg.Invite.TTL),
		),
		Voucher: service.NewVoucherService(
			repos.Expense, repos.Voucher, repos.User, repos.Organization,
			document.NewVoucherRenderer(cfg.Voucher.Currency, deps.Logger),
			deps.Storage.FileStorage,
			deps.Storage.Signer,
			logger,
			service.WithPreviewRenderer(document.NewPreviewRenderer()),
			service.WithSignedURLTTL(cfg.Storage.SignedURLTTL),
		),
		Export: service.NewExportService(
			repos.Expense, repos.Voucher, repos.User, export.NewPaymentExporter(deps.Logger), logger),
		Notification: service.NewNotificationService(
			repos.Expense, repos.User, repos.Organization, repos.Comment, repos.Notification,
			deps.Notifiers, logger,
			service.WithAppURL(cfg.Notification.AppURL),
			service.WithRetryPolicy(cfg.Notification.MaxAttempts, cfg.Notification.RetryBatch),
			service.WithNotificationMetrics(deps.Metrics),
		),
	}, nil
}

// RegisterEventHandlers subscribes the side-effect handlers to domain events.
func RegisterEventHandlers(d dispatcher.Dispatcher, services *ServiceBundle, logger *zap.Logger) {
	d.SubscribeNamed(event.TypeExpenseTransitioned, "notify-transition", services.Notification.HandleExpenseTransitioned)
	d.SubscribeNamed(event.TypeExpenseTransitioned, "voucher-on-finance-approval", services.Voucher.HandleExpenseTransitioned)
	d.SubscribeNamed(event.TypeCommentAdded, "notify-comment", services.Notification.HandleCommentAdded)
	d.SubscribeNamed(event.TypeMemberJoined, "audit-member-joined", memberJoinedAuditor(logger))
}

// memberJoinedAuditor writes an audit log line for every new membership
func memberJoinedAuditor(logger *zap.Logger) dispatcher.Handler {
	audit := logger.Named("audit")
	return func(ctx context.Context, evt *event.Event) error {
		audit.Info("Member joined organization",
			zap.Int64("organization_id", evt.OrganizationID),
			zap.String("user_id", evt.GetPayloadString(event.KeyUserID)),
			zap.String("role", evt.GetPayloadString(event.KeyRole)),
			zap.String("via", evt.GetPayloadString(event.KeyVia)))
		return nil
	}
}

// WorkerDeps contains dependencies for creating workers.
type WorkerDeps struct {
	Config   *WorkerConfig
	Services *ServiceBundle
	Logger   *zap.Logger
}

// ProvideWorkers creates the worker manager with the maintenance jobs registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	cfg := deps.Config
	logger := deps.Logger.Named("worker")

	maintenance := worker.NewMaintenanceWorker(logger,
		worker.Job{
			Name:     "retry-failed-notifications",
			Schedule: cfg.RetryNotificationsSchedule,
			Timeout:  cfg.JobTimeout,
			Run: func(ctx context.Context) error {
				sent, err := deps.Services.Notification.RetryFailed(ctx)
				if sent > 0 {
					logger.Info("Failed notifications resent", zap.Int("sent", sent))
				}
				return err
			},
		},
		worker.Job{
			Name:     "deactivate-expired-invite-links",
			Schedule: cfg.ExpireInviteLinksSchedule,
			Timeout:  cfg.JobTimeout,
			Run: func(ctx context.Context) error {
				n, err := deps.Services.Invite.DeactivateExpiredLinks(ctx)
				if n > 0 {
					logger.Info("Expired invite links deactivated", zap.Int64("count", n))
				}
				return err
			},
		},
	)

	manager := worker.NewManager(logger)
	manager.Register(maintenance)
	return manager, nil
}
