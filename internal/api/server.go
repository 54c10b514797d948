package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shelfwise/inventory-core/internal/audit"
	"github.com/shelfwise/inventory-core/internal/auth"
	"github.com/shelfwise/inventory-core/internal/infrastructure/config"
	"github.com/shelfwise/inventory-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// tokenSweepInterval is how often expired refresh tokens are purged.
const tokenSweepInterval = 1 * time.Hour

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.ServerConfig
	AuthService *auth.Service
	UserRepo    auth.UserRepository
	TokenRepo   auth.TokenRepository
	AuditRepo   audit.Repository
	Logger      *logging.Logger
	Version     string
}

// Server is the HTTP API server for Inventory Core.
//
// It manages the HTTP listener, routes, middleware, and the background
// housekeeping loops. The server is created with New() and started with
// Start(); all methods are safe for concurrent use.
type Server struct {
	cfg         config.ServerConfig
	authService *auth.Service
	userRepo    auth.UserRepository
	tokenRepo   auth.TokenRepository
	logger      *logging.Logger
	version     string
	server      *http.Server
	recorder    *auditRecorder
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.AuthService == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.TokenRepo == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if deps.AuditRepo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}

	return &Server{
		cfg:         deps.Config,
		authService: deps.AuthService,
		userRepo:    deps.UserRepo,
		tokenRepo:   deps.TokenRepo,
		logger:      deps.Logger,
		version:     deps.Version,
		recorder:    newAuditRecorder(deps.AuditRepo, deps.Logger),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the audit drain and the expired-token sweep in background
// goroutines, then launches the HTTP listener. Stop with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.recorder.run(srvCtx)
	go s.sweepTokensLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Stop background goroutines (audit drain, token sweep)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// sweepTokensLoop periodically deletes expired refresh tokens.
// Housekeeping only: expired tokens are already rejected at validation.
func (s *Server) sweepTokensLoop(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.tokenRepo.DeleteExpired(ctx)
			if err != nil {
				s.logger.Warn("expired token sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				s.logger.Debug("swept expired refresh tokens", "count", deleted)
			}
		}
	}
}
