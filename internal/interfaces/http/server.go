// Package http is the REST adapter over the lifecycle engine and the
// application services. Handlers translate requests into service calls and
// map typed errors onto status codes; they hold no business rules.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/application/service"
	"github.com/garyjia/zoompay/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	MaxUploadBytes int64
	Mode           string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxUploadBytes: 20 << 20,
		Mode:           gin.ReleaseMode,
	}
}

// Services are the application entry points the handlers call
type Services struct {
	Auth        service.AuthService
	Engine      workflow.LifecycleEngine
	Queries     service.QueryService
	Router      service.RoleRouter
	Admin       service.AdminService
	Documents   service.DocumentService
	Suggestions service.SuggestionService
	Exports     service.ExportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(cors.New(s.corsConfig()))
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.ExposeHeaders = []string{"Content-Disposition"}
	if len(s.config.AllowedOrigins) == 0 || (len(s.config.AllowedOrigins) == 1 && s.config.AllowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.config.AllowedOrigins
	}
	return cfg
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		kv := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if actor, ok := actorFrom(c); ok {
			kv = append(kv, "actor_id", actor.ID, "role", string(actor.Role))
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("HTTP request", kv...)
			return
		}
		s.logger.Info("HTTP request", kv...)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.config.MaxUploadBytes, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1")
	api.GET("/health", h.HealthCheck)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
	}

	secured := api.Group("")
	secured.Use(s.authMiddleware())
	{
		secured.GET("/me", h.Me)
		secured.PUT("/me", h.UpdateMe)
		secured.PUT("/me/password", h.ChangePassword)
		secured.GET("/permissions", h.Permissions)

		receipts := secured.Group("/receipts")
		{
			receipts.POST("", h.SubmitReceipt)
			receipts.GET("/mine", h.MyReceipts)
			receipts.GET("/counts", h.ReceiptCounts)
			receipts.GET("/approved", h.ApprovedReceipts)
			receipts.GET("/:id", h.GetReceipt)
			receipts.DELETE("/:id", h.DeleteReceipt)
			receipts.POST("/:id/approve", h.ApproveReceipt)
			receipts.POST("/:id/reject", h.RejectReceipt)
			receipts.GET("/:id/suggestion", h.SuggestVoucher)
			receipts.GET("/:id/voucher", h.GetVoucherByReceipt)
			receipts.POST("/:id/voucher", h.CreateVoucher)
		}

		secured.GET("/finance/receipts", h.FinanceReceipts)

		vouchers := secured.Group("/vouchers")
		{
			vouchers.GET("/mine", h.VoucherQueue(service.QueueMyVouchers))
			vouchers.GET("/checker", h.VoucherQueue(service.QueueChecker))
			vouchers.GET("/to-initiate", h.VoucherQueue(service.QueueToInitiate))
			vouchers.GET("/awaiting-proof", h.VoucherQueue(service.QueueAwaitingProof))
			vouchers.GET("/payment", h.VoucherQueue(service.QueuePayment))
			vouchers.GET("/export", h.ExportRegister)
			vouchers.GET("/:id", h.GetVoucher)
			vouchers.GET("/:id/export", h.ExportPaymentAdvice)
			vouchers.POST("/:id/check", h.CheckVoucher)
			vouchers.POST("/:id/check-reject", h.RejectAtCheck)
			vouchers.POST("/:id/initiate", h.InitiateVoucher)
			vouchers.POST("/:id/release", h.ReleasePayment)
			vouchers.POST("/:id/payment-reject", h.RejectPayment)
			vouchers.POST("/:id/proof", h.UploadProof)
			vouchers.POST("/:id/comments", h.AddVoucherComment)
		}

		secured.GET("/blobs/*path", h.GetBlob)
		secured.GET("/previews/*path", h.GetPreview)

		admin := secured.Group("/admin")
		{
			admin.GET("/companies", h.ListCompanies)
			admin.POST("/companies", h.CreateCompany)
			admin.DELETE("/companies/:id", h.DeleteCompany)
			admin.GET("/banks", h.ListBanks)
			admin.POST("/banks", h.CreateBank)
			admin.DELETE("/banks/:id", h.DeleteBank)
			admin.GET("/users", h.ListUsers)
			admin.PUT("/users/:id", h.AssignUser)
		}
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
