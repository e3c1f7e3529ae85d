package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/AtulPatel1221/budgetwise-app/internal/audit"
	"github.com/AtulPatel1221/budgetwise-app/internal/auth"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/config"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/database"
	"github.com/AtulPatel1221/budgetwise-app/internal/infrastructure/logging"
)

const (
	// shutdownGrace bounds how long Close waits for in-flight requests.
	shutdownGrace = 10 * time.Second

	// defaultSweepInterval applies when Deps.ResetSweepInterval is zero.
	defaultSweepInterval = 15 * time.Minute
)

// EventPublisher mirrors security events onto the message bus.
// *mqtt.Client satisfies it.
type EventPublisher interface {
	PublishJSON(topic string, v any) error
}

// Telemetry records security events and request latencies.
// *influxdb.Client satisfies it.
type Telemetry interface {
	WriteAuthEvent(action, role string)
	WriteRequestMetric(method, route string, status int, duration time.Duration)
}

// ConnectionState is implemented by optional collaborators whose link can
// drop at runtime; it feeds the metrics endpoint.
type ConnectionState interface {
	IsConnected() bool
}

// Deps wires a Server. Logger, Service, Users and Authenticator are required.
type Deps struct {
	Config        config.APIConfig
	Logger        *logging.Logger
	DB            *database.DB
	Service       *auth.Service
	Users         auth.UserRepository
	Authenticator *auth.Authenticator

	// Matrix defaults to auth.DefaultMatrix().
	Matrix *auth.Matrix

	// Optional collaborators. Leave nil (untyped) when not configured.
	AuditRepo audit.Repository
	Events    EventPublisher
	Telemetry Telemetry

	// ResetSweepInterval is how often expired reset tokens are purged.
	ResetSweepInterval time.Duration

	Version string
}

// Server serves the /api routes and owns the background loops that write
// security events and purge expired reset tokens.
type Server struct {
	cfg           config.APIConfig
	logger        *logging.Logger
	db            *database.DB
	svc           *auth.Service
	users         auth.UserRepository
	authenticator *auth.Authenticator
	matrix        *auth.Matrix
	auditRepo     audit.Repository
	eventQ        chan *audit.Event
	events        EventPublisher
	telemetry     Telemetry
	sweepInterval time.Duration
	version       string
	startTime     time.Time
	server        *http.Server
	cancel        context.CancelFunc
	bg            sync.WaitGroup
}

// New validates deps. Nothing runs until Start.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("api: logger is required")
	case deps.Service == nil:
		return nil, errors.New("api: auth service is required")
	case deps.Users == nil:
		return nil, errors.New("api: user repository is required")
	case deps.Authenticator == nil:
		return nil, errors.New("api: authenticator is required")
	}

	s := &Server{
		cfg:           deps.Config,
		logger:        deps.Logger.With("component", "api"),
		db:            deps.DB,
		svc:           deps.Service,
		users:         deps.Users,
		authenticator: deps.Authenticator,
		matrix:        deps.Matrix,
		auditRepo:     deps.AuditRepo,
		events:        deps.Events,
		telemetry:     deps.Telemetry,
		sweepInterval: deps.ResetSweepInterval,
		version:       deps.Version,
		startTime:     time.Now(),
	}
	if s.matrix == nil {
		s.matrix = auth.DefaultMatrix()
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = defaultSweepInterval
	}
	if s.auditRepo != nil || s.events != nil {
		s.eventQ = make(chan *audit.Event, eventQueueSize)
	}

	return s, nil
}

// Start binds the listener, then serves in the background alongside the
// security event writer and the reset token sweep. A bind failure is
// returned here and leaves nothing running.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	// Detached from ctx so Close decides when the event queue stops.
	var bgCtx context.Context
	bgCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.startBackground(bgCtx)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	go s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	tls := s.cfg.TLS
	s.logger.Info("API listening", "address", ln.Addr().String(), "tls", tls.Enabled)

	var err error
	if tls.Enabled {
		err = s.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
	} else {
		err = s.server.Serve(ln)
	}
	if !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("API server stopped", "error", err)
	}
}

// startBackground runs the event writer and the reset token sweep until
// ctx ends. Close waits for both.
func (s *Server) startBackground(ctx context.Context) {
	if s.eventQ != nil {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			s.runEventWriter(ctx)
		}()
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		tick := time.NewTicker(s.sweepInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				s.sweepResetTokens(ctx)
			}
		}
	}()
}

func (s *Server) sweepResetTokens(ctx context.Context) {
	n, err := s.svc.PurgeExpiredResets(ctx)
	switch {
	case err != nil && ctx.Err() == nil:
		s.logger.Warn("reset token sweep failed", "error", err)
	case n > 0:
		s.logger.Debug("expired reset tokens purged", "count", n)
	}
}

// Close drains in-flight requests for up to shutdownGrace, then stops the
// background loops once the event queue is written out.
func (s *Server) Close() error {
	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("API server shutting down")
		if shutErr := s.server.Shutdown(ctx); shutErr != nil {
			err = fmt.Errorf("shutting down API server: %w", shutErr)
		}
	}

	// No handler can enqueue an event past this point.
	if s.cancel != nil {
		s.cancel()
	}
	s.bg.Wait()
	return err
}

// HealthCheck fails before Start and when the database stops answering.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return errors.New("api server not started")
	}
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api health check: %w", err)
		}
	}
	return nil
}
