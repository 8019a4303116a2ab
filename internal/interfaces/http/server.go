package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
)

// Server runs the ops router.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer binds handler to addr.
func NewServer(addr string, handler http.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// NewServerOnPort binds handler to all interfaces on port.
func NewServerOnPort(port int, handler http.Handler, logger logging.Logger) *Server {
	return NewServer(fmt.Sprintf(":%d", port), handler, logger)
}

// Start serves until Shutdown.  A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", logging.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("ops server stopped")
	return nil
}

// Handler returns the served handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

//Personal.AI order the ending
