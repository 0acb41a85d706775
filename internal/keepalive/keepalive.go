// Package keepalive runs the small HTTP responder hosting platforms ping to
// keep the bot process awake. It also serves Prometheus metrics.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Alive is the body returned by the root endpoint.
const Alive = "Bot is ALIVE! 🟢"

// Handler returns the keep-alive routes: GET / and GET /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, Alive)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Server is the keep-alive HTTP server.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New returns a Server listening on addr once started.
func New(addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Handler(gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "keepalive"),
	}
}

// Run serves until ctx is cancelled. A listen failure is logged as a warning
// and Run returns; the bot keeps running without the responder.
func (s *Server) Run(ctx context.Context) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.logger.Warn("could not start keep-alive server", "addr", s.srv.Addr, "error", err)
		return
	}
	s.logger.Info("keep-alive server started", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn("keep-alive server stopped", "error", err)
	}
}
