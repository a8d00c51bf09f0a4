// Package server exposes the PRD pipeline over a local HTTP API for the
// desktop shell.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/josephgoksu/PRDWing/internal/app"
	"github.com/josephgoksu/PRDWing/internal/metrics"
)

// Options configures the listener.
type Options struct {
	Host    string
	Port    int
	Origins []string // allowed CORS origins
}

type Server struct {
	app     *app.Context
	metrics *metrics.Metrics
	logger  zerolog.Logger
	origins map[string]struct{}
	server  *http.Server
}

// New builds a server around an app context. Metrics are served from the
// app's registry when present.
func New(a *app.Context, opts Options, logger zerolog.Logger) *Server {
	s := &Server{
		app:     a,
		metrics: a.Metrics,
		logger:  logger.With().Str("component", "server").Logger(),
		origins: make(map[string]struct{}, len(opts.Origins)),
	}
	for _, o := range opts.Origins {
		s.origins[o] = struct{}{}
	}
	s.server = &http.Server{
		Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:           s.registerRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves in a background goroutine. Listener errors other than a
// clean shutdown are sent to errChan.
func (s *Server) Start(wg *sync.WaitGroup, errChan chan<- error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info().Str("addr", s.server.Addr).Msg("API server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
