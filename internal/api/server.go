package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eyamastour/backend-BrightMind/internal/audit"
	"github.com/eyamastour/backend-BrightMind/internal/auth"
	"github.com/eyamastour/backend-BrightMind/internal/device"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/config"
	"github.com/eyamastour/backend-BrightMind/internal/infrastructure/logging"
	"github.com/eyamastour/backend-BrightMind/internal/installation"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.API
	WS            config.WebSocket
	Security      config.Security
	Logger        *logging.Logger
	Users         auth.UserRepository
	Access        auth.AccessRepository
	Mailer        auth.Mailer
	Installations installation.Repository
	Rooms         installation.RoomRepository
	Devices       device.Repository
	History       device.HistoryRepository
	DeviceService *device.Service
	Audit         audit.Repository
	Version       string
}

// Server is the BrightMind HTTP API server.
//
// It owns the HTTP listener, routes, middleware, and the WebSocket hub for
// live device updates. Create with New(), start with Start().
type Server struct {
	cfg           config.API
	wsCfg         config.WebSocket
	secCfg        config.Security
	logger        *logging.Logger
	users         auth.UserRepository
	access        auth.AccessRepository
	mailer        auth.Mailer
	installations installation.Repository
	rooms         installation.RoomRepository
	devices       device.Repository
	history       device.HistoryRepository
	deviceSvc     *device.Service
	auditRepo     audit.Repository
	auditCh       chan *audit.Entry
	version       string
	server        *http.Server
	hub           *Hub
	cancel        context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server does not listen until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil || deps.Access == nil {
		return nil, fmt.Errorf("user and access repositories are required")
	}
	if deps.Installations == nil || deps.Rooms == nil || deps.Devices == nil {
		return nil, fmt.Errorf("installation, room and device repositories are required")
	}
	if deps.DeviceService == nil {
		return nil, fmt.Errorf("device service is required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if deps.Mailer == nil {
		deps.Mailer = &auth.LogMailer{Log: deps.Logger}
	}

	var auditCh chan *audit.Entry
	if deps.Audit != nil {
		auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		users:         deps.Users,
		access:        deps.Access,
		mailer:        deps.Mailer,
		installations: deps.Installations,
		rooms:         deps.Rooms,
		devices:       deps.Devices,
		history:       deps.History,
		deviceSvc:     deps.DeviceService,
		auditRepo:     deps.Audit,
		auditCh:       auditCh,
		version:       deps.Version,
	}, nil
}

// Hub returns the WebSocket hub so the device service can broadcast through
// it. Available after Start().
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	if s.auditRepo != nil && s.auditCh != nil {
		go s.drainAuditLog(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to ten seconds for
// in-flight requests.
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

// HealthCheck reports whether the server has been started.
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
