// Package http provides the REST adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-reimbursement/internal/application/port"
	"github.com/garyjia/expense-reimbursement/internal/container"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HTTPMetrics records request metrics and exposes the scrape endpoint
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, duration time.Duration)
	Handler() http.Handler
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Dependencies are the collaborators the handlers call into
type Dependencies struct {
	Services *container.ServiceBundle
	Users    port.UserRepository
	Identity port.IdentityProvider
	Storage  port.FileStorage
	Signer   port.URLSigner
	Metrics  HTTPMetrics
	Health   func() *container.HealthStatus
}

// DependenciesFrom collects the handler dependencies from a started container
func DependenciesFrom(c *container.Container) Dependencies {
	return Dependencies{
		Services: c.Services(),
		Users:    c.Repositories().User,
		Identity: c.Identity(),
		Storage:  c.Storage().FileStorage,
		Signer:   c.Storage().Signer,
		Metrics:  c.Metrics(),
		Health:   c.Health,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given dependencies
func NewServer(config ServerConfig, deps Dependencies, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		router: gin.New(),
		deps:   deps,
		logger: logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
	if s.deps.Metrics != nil {
		s.router.Use(metricsMiddleware(s.deps.Metrics))
	}
	s.router.Use(corsMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	s.router.GET("/files/*path", h.DownloadFile)

	api := s.router.Group("/api/v1", h.authenticate())
	{
		api.GET("/me", h.Me)
		api.POST("/orgs", h.CreateOrganization)
		api.GET("/orgs", h.ListOrganizations)
		api.POST("/invites/:token/accept", h.AcceptInvite)
		api.POST("/invite-links/:linkID/redeem", h.RedeemInviteLink)
	}

	org := api.Group("/orgs/:slug", h.organizationSession())
	{
		org.GET("", h.GetOrganization)
		org.PATCH("", h.RenameOrganization)

		org.GET("/members", h.ListMembers)
		org.PATCH("/members/:userID/role", h.ChangeMemberRole)

		org.GET("/policies", h.ListPolicies)
		org.PUT("/policies", h.UpsertPolicy)

		org.POST("/expenses", h.CreateExpense)
		org.GET("/expenses", h.ListExpenses)
		org.GET("/expenses/:id", h.GetExpense)
		org.PATCH("/expenses/:id", h.UpdateExpense)
		org.POST("/expenses/:id/transitions", h.TransitionExpense)
		org.GET("/expenses/:id/history", h.ExpenseHistory)
		org.GET("/expenses/:id/comments", h.ListComments)
		org.POST("/expenses/:id/comments", h.AddComment)
		org.POST("/expenses/:id/voucher", h.CreateVoucher)

		org.GET("/vouchers/:voucherID", h.GetVoucher)
		org.POST("/vouchers/:voucherID/pdf", h.GenerateVoucherPDF)

		org.GET("/exports/payments", h.ExportPayments)

		org.POST("/invites", h.CreateInvite)
		org.POST("/invite-links", h.CreateInviteLink)
		org.GET("/invite-links", h.ListInviteLinks)
		org.DELETE("/invite-links/:linkID", h.DeactivateInviteLink)
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

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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
