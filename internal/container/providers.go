package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/zoompay/internal/application/dispatcher"
	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/application/workflow"
	"github.com/garyjia/zoompay/internal/domain/event"
	"github.com/garyjia/zoompay/internal/infrastructure/auth"
	"github.com/garyjia/zoompay/internal/infrastructure/export"
	"github.com/garyjia/zoompay/internal/infrastructure/external/openai"
	"github.com/garyjia/zoompay/internal/infrastructure/media"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/repository"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/zoompay/internal/infrastructure/storage"
	"github.com/garyjia/zoompay/internal/infrastructure/worker"
	httpapi "github.com/garyjia/zoompay/internal/interfaces/http"
	"github.com/garyjia/zoompay/migrations"
	"github.com/garyjia/zoompay/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Receipt port.ReceiptRepository
	Voucher port.VoucherRepository
	Comment port.CommentRepository
	User    port.UserRepository
	Company port.CompanyRepository
	Bank    port.BankRepository
	Orphan  port.OrphanRepository
}

// StorageBundle holds the blob store and its release function.
type StorageBundle struct {
	Blobs port.BlobStore
	Close func() error
}

// IdentityBundle holds token and password components.
type IdentityBundle struct {
	Tokens port.TokenIssuer
	Hasher port.PasswordHasher
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Auth        service.AuthService
	Queries     service.QueryService
	Router      service.RoleRouter
	Admin       service.AdminService
	Documents   service.DocumentService
	Suggestions service.SuggestionService
	Exports     service.ExportService
}

// ProvideDatabase opens the SQLite database, applies the embedded migrations
// unless skipped and wraps the connection in a transaction manager.
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
	}, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipMigrations {
		migrator := database.NewMigrator(db, logger)
		if _, err := migrator.RunMigrations(migrations.FS, migrations.Dir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
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
		Receipt: repository.NewReceiptRepository(sqlDB, logger),
		Voucher: repository.NewVoucherRepository(sqlDB, logger),
		Comment: repository.NewCommentRepository(sqlDB, logger),
		User:    repository.NewUserRepository(sqlDB, logger),
		Company: repository.NewCompanyRepository(sqlDB, logger),
		Bank:    repository.NewBankRepository(sqlDB, logger),
		Orphan:  repository.NewOrphanRepository(sqlDB, logger),
	}, nil
}

// ProvideBlobStore creates the blob store selected by cfg.Driver.
func ProvideBlobStore(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch cfg.Driver {
	case "local", "":
		store, err := storage.NewLocalBlobStore(cfg.BaseDir, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create local blob store: %w", err)
		}
		return &StorageBundle{Blobs: store, Close: func() error { return nil }}, nil
	case "bolt":
		store, err := storage.NewBoltBlobStore(cfg.BoltPath, cfg.PublicBaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create bolt blob store: %w", err)
		}
		return &StorageBundle{Blobs: store, Close: store.Close}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ProvideMediaProcessor creates the upload normaliser and preview renderer.
func ProvideMediaProcessor(cfg *MediaConfig, logger *zap.Logger) *media.Processor {
	return media.NewProcessor(media.Options{
		MaxDimension:     cfg.MaxDimension,
		JPEGQuality:      cfg.JPEGQuality,
		PreviewDimension: cfg.PreviewDimension,
	}, logger)
}

// ProvideReceiptExtractor creates the OpenAI extractor. It returns a nil
// extractor when extraction is disabled; suggestions then report that.
func ProvideReceiptExtractor(cfg *OpenAIConfig, logger *zap.Logger) (port.ReceiptExtractor, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("Receipt extraction disabled")
		return nil, nil
	}

	extractor, err := openai.NewReceiptExtractor(openai.Config{
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.Timeout,
		PromptsPath:     cfg.PromptsPath,
		DefaultCurrency: cfg.DefaultCurrency,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt extractor: %w", err)
	}
	logger.Info("Receipt extraction enabled", zap.String("model", cfg.Model))
	return extractor, nil
}

// ProvideExporter creates the workbook writer.
func ProvideExporter(cfg *ExportConfig, logger *zap.Logger) port.Exporter {
	return export.NewExcelWriter(cfg.Font, logger)
}

// ProvideIdentity creates the JWT issuer and bcrypt hasher.
func ProvideIdentity(cfg *AuthConfig) (*IdentityBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config is required")
	}

	tokens, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	return &IdentityBundle{
		Tokens: tokens,
		Hasher: auth.NewBcryptHasher(cfg.BcryptCost),
	}, nil
}

// ProvideDispatcher creates the event dispatcher and subscribes the audit log
// to every lifecycle event.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	)
	d.SubscribeAll(event.AllTypes(), "audit-log", createAuditHandler(logger.Named("audit")))

	return d, nil
}

// WorkflowDeps holds dependencies for the lifecycle engine.
type WorkflowDeps struct {
	Repos          *RepositoryBundle
	TxManager      port.TransactionManager
	Blobs          port.BlobStore
	Media          port.MediaProcessor
	Dispatcher     dispatcher.Dispatcher
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// ProvideWorkflowEngine creates the voucher lifecycle engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.LifecycleEngine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger.Named("engine")}),
		workflow.WithMaxUploadBytes(deps.MaxUploadBytes),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, workflow.WithDispatcher(deps.Dispatcher))
	}
	if deps.Media != nil {
		opts = append(opts, workflow.WithMediaProcessor(deps.Media))
	}

	return workflow.NewEngine(
		deps.Repos.Receipt,
		deps.Repos.Voucher,
		deps.Repos.Comment,
		deps.Repos.Orphan,
		deps.Blobs,
		deps.TxManager,
		opts...,
	), nil
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Blobs     port.BlobStore
	Media     port.MediaProcessor
	Extractor port.ReceiptExtractor
	Exporter  port.Exporter
	Identity  *IdentityBundle
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity components are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	log := &zapLoggerAdapter{logger: deps.Logger.Named("service")}
	router := service.NewRoleRouter()

	return &ServiceBundle{
		Auth:        service.NewAuthService(deps.Repos.User, deps.Identity.Hasher, deps.Identity.Tokens, log),
		Queries:     service.NewQueryService(deps.Repos.Receipt, deps.Repos.Voucher, router, log),
		Router:      router,
		Admin:       service.NewAdminService(deps.Repos.User, deps.Repos.Company, deps.Repos.Bank, deps.TxManager, log),
		Documents:   service.NewDocumentService(deps.Blobs, deps.Media),
		Suggestions: service.NewSuggestionService(deps.Repos.Receipt, deps.Blobs, deps.Media, deps.Extractor, log),
		Exports:     service.NewExportService(deps.Repos.Voucher, deps.Exporter, router, log),
	}, nil
}

// WorkerDeps holds dependencies for background workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	Blobs     port.BlobStore
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager and registers all workers.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)
	manager.Register(worker.NewOrphanSweeper(worker.OrphanSweeperConfig{
		Interval:  deps.WorkerCfg.SweepInterval,
		Retention: deps.WorkerCfg.OrphanRetention,
		Delete:    deps.WorkerCfg.DeleteOrphans,
	}, deps.Repos.Orphan, deps.Blobs, deps.Logger))

	return manager, nil
}

// ProvideHTTPServer creates the REST server over the engine and services.
func ProvideHTTPServer(cfg *ServerConfig, engine workflow.LifecycleEngine, services *ServiceBundle, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(httpapi.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Mode:           cfg.Mode,
	}, httpapi.Services{
		Auth:        services.Auth,
		Engine:      engine,
		Queries:     services.Queries,
		Router:      services.Router,
		Admin:       services.Admin,
		Documents:   services.Documents,
		Suggestions: services.Suggestions,
		Exports:     services.Exports,
	}, &zapLoggerAdapter{logger: logger.Named("http")})
}

// createAuditHandler writes one structured line per lifecycle event. Orphaned
// blobs are logged at error level so they surface in alerting.
func createAuditHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if evt == nil {
			return fmt.Errorf("event cannot be nil")
		}

		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("kind", evt.Kind),
			zap.String("record_id", evt.RecordID),
			zap.Time("at", evt.Timestamp),
		}
		fields = append(fields, convertToZapFields(flattenPayload(evt.Payload)...)...)

		if evt.Type == event.TypeBlobOrphaned {
			logger.Error("Blob orphaned", fields...)
			return nil
		}
		logger.Info("Lifecycle event", fields...)
		return nil
	}
}

func flattenPayload(payload map[string]interface{}) []interface{} {
	kv := make([]interface{}, 0, len(payload)*2)
	for _, key := range []string{event.KeyFrom, event.KeyTo, event.KeyActorID, event.KeyRole, event.KeyPath, event.KeyReason} {
		if v, ok := payload[key]; ok {
			kv = append(kv, key, v)
		}
	}
	return kv
}
