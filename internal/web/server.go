package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hpungsan/ctrack/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the local web UI. gatherer backs
// /metrics; nil uses the default registry.
func NewServer(deps ops.Deps, gatherer prometheus.Gatherer, version, bind string, port int) (*http.Server, error) {
	deps = deps.Normalize()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &Handlers{
		deps:     deps,
		renderer: NewRenderer(templateSub, version, deps.Config.Location(), deps.Log),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/visits", http.StatusFound)
	})
	mux.HandleFunc("GET /visits", h.HandleVisits)
	mux.HandleFunc("POST /visits/reset", h.HandleReset)
	mux.HandleFunc("GET /check", h.HandleCheck)
	mux.HandleFunc("POST /mark-read", h.HandleMarkRead)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down
// with a five second grace period.
func Run(ctx context.Context, srv *http.Server, deps ops.Deps) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	deps.Log.Info().Str("addr", "http://"+srv.Addr).Msg("ctrack UI running")
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		deps.Log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		deps.Log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
