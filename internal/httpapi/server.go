// Package httpapi exposes the relay over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lattiq/mailrelay/internal/core"
)

// Sender delivers a validated email. *mailrelay.Client implements it.
type Sender interface {
	Send(ctx context.Context, email *core.Email) (*core.SendResult, error)
}

// Config contains HTTP server settings.
type Config struct {
	// Address is the listen address, e.g. ":9999".
	Address string

	// RateLimitPerMinute is the per-client request budget; 0 disables it.
	RateLimitPerMinute int

	// MaxBodyBytes caps the request body size.
	MaxBodyBytes int64

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Address:            ":9999",
		RateLimitPerMinute: 0,
		MaxBodyBytes:       1 << 20,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       90 * time.Second,
		ShutdownTimeout:    10 * time.Second,
	}
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the document served on GET /version.
func WithVersion(info any) Option {
	return func(s *Server) {
		s.version = info
	}
}

// Server is the HTTP front end of the relay.
type Server struct {
	config     Config
	sender     Sender
	logger     zerolog.Logger
	version    any
	router     chi.Router
	httpServer *http.Server
	limiter    *limiterStore
}

// New creates a server that delivers through sender.
func New(cfg Config, sender Sender, opts ...Option) (*Server, error) {
	if sender == nil {
		return nil, errors.New("httpapi: sender is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	s := &Server{
		config: cfg,
		sender: sender,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	if cfg.RateLimitPerMinute > 0 {
		s.limiter = newLimiterStore(cfg.RateLimitPerMinute)
		r.Use(rateLimit(s.limiter))
	}

	s.router = r
	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/version", s.handleVersion)
	s.router.Post("/v1/send", s.handleSend)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info().Str("address", l.Addr().String()).Msg("API running")

	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops the server gracefully and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}

	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
