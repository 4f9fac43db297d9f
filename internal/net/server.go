package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"pkt.systems/pslog"

	"LiveBoard/internal/export"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
)

// HistoryResponse is the body of GET /history.
type HistoryResponse struct {
	CommittedHistory []state.Stroke `json:"committedHistory"`
}

// NewRouter exposes the relay over HTTP: the websocket endpoint plus a few
// read-only views of the committed history.
func NewRouter(r *relay.Relay, endpoint http.Handler, logger pslog.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(accessLog(logger))

	router.Methods(http.MethodGet).Path("/up").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	router.Methods(http.MethodGet).Path("/ws").Handler(endpoint)
	router.Methods(http.MethodGet).Path("/history").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		strokes, err := r.Snapshot(req.Context())
		if err != nil {
			logger.Warn("history snapshot", "err", err)
			http.Error(w, "history unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(HistoryResponse{CommittedHistory: strokes}); err != nil {
			logger.Warn("write history", "err", err)
		}
	})
	router.Methods(http.MethodGet).Path("/export.pdf").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		strokes, err := r.Snapshot(req.Context())
		if err != nil {
			logger.Warn("history snapshot", "err", err)
			http.Error(w, "history unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="liveboard.pdf"`)
		if err := export.WritePDF(w, strokes); err != nil {
			logger.Warn("write pdf", "err", err)
		}
	})
	return router
}

func accessLog(logger pslog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			logger.Debug("handled", "method", r.Method, "url", r.URL.String(), "status", m.Code, "duration", m.Duration)
		})
	}
}

// Server serves the router until its context ends.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             pslog.Logger
}

func NewServer(addr string, handler http.Handler, shutdownTimeout time.Duration, logger pslog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		log:             logger,
	}
}

// Serve accepts connections on ln until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	s.log.Info("board host listening", "addr", ln.Addr().String())
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}
