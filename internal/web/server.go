package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/cjeanneret/ScopeGo/internal/debug"
	"github.com/cjeanneret/ScopeGo/internal/logic/catalog"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
}

// NewServer creates a server for addr serving the embedded UI.
func NewServer(addr string, ctrl Controller, cat *catalog.Catalog, broadcaster *StatusBroadcaster, metrics http.Handler) (*Server, error) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static fs: %w", err)
	}
	return &Server{
		addr:     addr,
		handlers: NewHandlers(ctrl, cat, broadcaster, metrics, subFS),
	}, nil
}

// Mux returns an http.Handler with all routes registered.
func (s *Server) Mux() http.Handler {
	h := s.handlers
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", h.HandleStatus)
	mux.HandleFunc("GET /status/stream", h.HandleStatusStream)
	mux.HandleFunc("GET /catalog", h.HandleCatalog)
	mux.HandleFunc("POST /mount/kind", h.HandleKind)
	mux.HandleFunc("POST /mount/mode", h.HandleMode)
	mux.HandleFunc("POST /align/pole", h.HandleAlignPole)
	mux.HandleFunc("POST /align/star", h.HandleAlignStar)
	mux.HandleFunc("POST /goto", h.HandleGoto)
	mux.HandleFunc("POST /goto/home", h.HandleHome)
	mux.HandleFunc("POST /goto/pole-check", h.HandlePoleCheck)
	mux.HandleFunc("POST /track/toggle", h.HandleTrackToggle)
	mux.HandleFunc("POST /stop", h.HandleStop)
	mux.HandleFunc("POST /motors/{action}", h.HandleMotors)
	mux.HandleFunc("GET /ws/joystick", h.HandleJoystick)
	mux.HandleFunc("GET /metrics", h.HandleMetrics)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(h.staticFS))))
	mux.HandleFunc("GET /{$}", h.ServeIndex) // exact match for root only

	return mux
}

// Run starts the server and blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams and joysticks end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Info("Web server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
