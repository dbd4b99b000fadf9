package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/smctrader/bot"
	"github.com/rustyeddy/smctrader/metrics"
)

// StatusProvider hands out point in time copies of the bot state.
type StatusProvider interface {
	Snapshot() bot.Status
}

// Option configures Server.
type Option func(*Server)

// Server is the status API and dashboard push endpoint.
type Server struct {
	echo   *echo.Echo
	status StatusProvider
	log    zerolog.Logger

	addr            string
	push            time.Duration
	shutdownTimeout time.Duration
	gatherer        prometheus.Gatherer

	closeOnce sync.Once
	done      chan struct{}
}

// New builds the server and registers its routes.
func New(status StatusProvider, opts ...Option) *Server {
	s := &Server{
		status:          status,
		log:             zerolog.Nop(),
		addr:            ":5000",
		push:            time.Second,
		shutdownTimeout: 10 * time.Second,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.recoverer())
	e.Use(s.requestLogging())

	e.GET("/healthz", s.healthz)
	api := e.Group("/api")
	api.GET("/status", s.getStatus)
	api.POST("/analyze", s.analyze)
	api.POST("/test-smc", s.analyze)
	e.GET("/ws", s.ws)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(s.gatherer)))
	}

	s.echo = e
	return s
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithPushInterval sets how often /ws clients receive the status.
func WithPushInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.push = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("listening")
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("stopped")
	return nil
}

// Close ends every open /ws push loop.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
