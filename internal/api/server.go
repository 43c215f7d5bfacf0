package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/audit"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/control"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/logging"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/route"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Scanner starts and stops the discovery cycle. ble.Central satisfies it.
type Scanner interface {
	StartScan(ctx context.Context) error
	StopScan()
	Scanning() bool
}

// Connector requests a connection to a discovered node. device.Readiness
// satisfies it.
type Connector interface {
	Connect(id string) error
}

// HealthChecker is implemented by infrastructure the health endpoint reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Registry  *device.Registry
	Readiness Connector
	Scanner   Scanner // nil when no adapter is available
	Routes    *route.Table
	Control   *control.Service
	Repo      route.Repository // nil disables execution history endpoints
	Journal   audit.Repository // nil disables GET /audit and scan/connect records

	// Checks are reported by GET /health, keyed by component name.
	Checks map[string]HealthChecker

	ExternalHub *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for the route coordinator.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	registry  *device.Registry
	readiness Connector
	scanner   Scanner
	routes    *route.Table
	control   *control.Service
	repo      route.Repository
	journal   audit.Repository
	checks    map[string]HealthChecker
	version   string

	server      *http.Server
	hub         *Hub
	externalHub bool
	baseCtx     context.Context // outlives requests; scans run under it
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Routes == nil {
		return nil, fmt.Errorf("route table is required")
	}
	if deps.Control == nil {
		return nil, fmt.Errorf("control service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		registry:  deps.Registry,
		readiness: deps.Readiness,
		scanner:   deps.Scanner,
		routes:    deps.Routes,
		control:   deps.Control,
		repo:      deps.Repo,
		journal:   deps.Journal,
		checks:    deps.Checks,
		version:   deps.Version,
		baseCtx:   audit.WithSource(context.Background(), audit.SourceAPI),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, or nil before Start when none was
// injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless one was injected) and launches the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
//
// Parameters:
//   - ctx: Parent context for background work started by the server
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.baseCtx = audit.WithSource(srvCtx, audit.SourceAPI)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.server.Addr)
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

// HealthCheck verifies the API server is running.
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
