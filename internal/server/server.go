// Package server exposes the classifier, the chat graph and the lookup
// tools as a small JSON RPC surface.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	logx "github.com/cepclima/server/pkg/logger"
)

type Server struct {
	http *http.Server
	cfg  Config
}

// New builds the server with the standard middleware stack.
func New(cfg Config, h *Handler) *Server {
	mux := http.NewServeMux()
	Register(mux, h.Routes()...)

	var mw Middleware
	mw.Use(RequestID)
	mw.Use(Logger)
	mw.Use(Recover)

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      mw.Apply(mux),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", ln.Addr().String()).Msg("server listening")
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("server shutdown error")
		return err
	}
	logx.Info().Msg("server shutdown complete")
	return <-errCh
}
