package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/zoompay/internal/application/dispatcher"
	"github.com/garyjia/zoompay/internal/application/port"
	"github.com/garyjia/zoompay/internal/application/workflow"
	"github.com/garyjia/zoompay/internal/domain/event"
	"github.com/garyjia/zoompay/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/zoompay/internal/infrastructure/worker"
	httpapi "github.com/garyjia/zoompay/internal/interfaces/http"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Storage and media
	storage  *StorageBundle
	media    port.MediaProcessor
	exporter port.Exporter

	// Infrastructure - External
	extractor port.ReceiptExtractor
	identity  *IdentityBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.LifecycleEngine
	services   *ServiceBundle
	server     *httpapi.Server

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
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
// 2. Blob storage, media and export
// 3. External clients (OpenAI) and identity
// 4. Event dispatcher and lifecycle engine
// 5. Application services and HTTP server
// 6. Workers
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

	steps := []struct {
		name string
		fn   func() error
	}{
		{"database", c.initDatabase},
		{"storage", c.initStorage},
		{"external clients", c.initExternalClients},
		{"dispatcher and engine", c.initDispatcherAndEngine},
		{"services", c.initServices},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			c.release()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Component initialized", zap.String("component", step.name))
	}

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
	errs := c.release()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %v", len(errs), errs)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// release tears down whatever has been initialized so far
func (c *Container) release() []error {
	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}

	// Drains async audit handlers before the stores they may touch go away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}

	if c.storage != nil {
		if err := c.storage.Close(); err != nil {
			c.logger.Error("Failed to close blob store", zap.Error(err))
			errs = append(errs, fmt.Errorf("close blob store: %w", err))
		}
		c.storage = nil
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.sqlDB = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

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

	if c.storage != nil {
		set("storage", ComponentHealth{Healthy: true, Message: c.config.Storage.Driver})
	} else {
		set("storage", ComponentHealth{Message: "not initialized"})
	}

	if c.dispatcher != nil {
		unaudited := 0
		for _, t := range event.AllTypes() {
			if len(c.dispatcher.ListHandlers(t)) == 0 {
				unaudited++
			}
		}
		set("dispatcher", ComponentHealth{
			Healthy: unaudited == 0,
			Message: fmt.Sprintf("event types without handlers: %d", unaudited),
		})
	} else {
		set("dispatcher", ComponentHealth{Message: "not initialized"})
	}

	// Extraction is optional, so a disabled extractor is still healthy
	if c.extractor != nil {
		set("extractor", ComponentHealth{Healthy: true})
	} else {
		set("extractor", ComponentHealth{Healthy: true, Message: "disabled"})
	}

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
		return err
	}

	c.repositories = repos
	return nil
}

// initStorage initializes the blob store, media processor and exporter.
func (c *Container) initStorage() error {
	bundle, err := ProvideBlobStore(&c.config.Storage, c.logger.Named("storage"))
	if err != nil {
		return err
	}

	c.storage = bundle
	c.media = ProvideMediaProcessor(&c.config.Media, c.logger.Named("media"))
	c.exporter = ProvideExporter(&c.config.Export, c.logger.Named("export"))
	return nil
}

// initExternalClients initializes the receipt extractor and identity components.
func (c *Container) initExternalClients() error {
	extractor, err := ProvideReceiptExtractor(&c.config.OpenAI, c.logger.Named("openai"))
	if err != nil {
		return err
	}
	c.extractor = extractor

	identity, err := ProvideIdentity(&c.config.Auth)
	if err != nil {
		return err
	}
	c.identity = identity
	return nil
}

// initDispatcherAndEngine initializes the event dispatcher and lifecycle engine.
func (c *Container) initDispatcherAndEngine() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:          c.repositories,
		TxManager:      c.db,
		Blobs:          c.storage.Blobs,
		Media:          c.media,
		Dispatcher:     c.dispatcher,
		MaxUploadBytes: c.config.Server.MaxUploadBytes,
		Logger:         c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

// initServices initializes the application services and the HTTP server.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repositories,
		TxManager: c.db,
		Blobs:     c.storage.Blobs,
		Media:     c.media,
		Extractor: c.extractor,
		Exporter:  c.exporter,
		Identity:  c.identity,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	c.server = ProvideHTTPServer(&c.config.Server, c.engine, c.services, c.logger)
	return nil
}

// initWorkers initializes and starts all background workers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:     c.repositories,
		Blobs:     c.storage.Blobs,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger.Named("worker"),
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

// BlobStore returns the configured blob store.
func (c *Container) BlobStore() port.BlobStore {
	if c.storage == nil {
		return nil
	}
	return c.storage.Blobs
}

// Exporter returns the workbook writer.
func (c *Container) Exporter() port.Exporter {
	return c.exporter
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the lifecycle engine.
func (c *Container) Engine() workflow.LifecycleEngine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
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

// zapLoggerAdapter adapts zap.Logger to the minimal Logger interfaces of the
// application and interface layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
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
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
