// Package server publishes the latest documentation tree over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/phpwdk/apidoc/internal/apidoc"
)

// Server serves the most recent tree passed to Update.
//
//	GET /              the tree as JSON
//	GET /apidoc.json   same
//	GET /apidoc.yaml   the tree as YAML
//	GET /types/{id...} one type as JSON
//	GET /metrics       collect metrics
//	GET /healthz       200 once a tree is available
type Server struct {
	logger   *slog.Logger
	gatherer prometheus.Gatherer

	mu      sync.RWMutex
	tree    *apidoc.Tree
	updated time.Time
}

// New returns a Server exposing gatherer on /metrics.
func New(gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}
	return &Server{logger: logger.With("component", "server"), gatherer: gatherer}
}

// Update replaces the served tree. A nil tree is ignored and the previous
// one keeps being served.
func (s *Server) Update(tree *apidoc.Tree) {
	if tree == nil {
		s.logger.Warn("ignoring nil tree update")
		return
	}
	s.mu.Lock()
	s.tree = tree
	s.updated = time.Now()
	s.mu.Unlock()
	s.logger.Debug("tree updated", "types", tree.Len())
}

func (s *Server) current() (*apidoc.Tree, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree, s.updated
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.serveJSON)
	mux.HandleFunc("GET /apidoc.json", s.serveJSON)
	mux.HandleFunc("GET /apidoc.yaml", s.serveYAML)
	mux.HandleFunc("GET /types/{id...}", s.serveType)
	mux.HandleFunc("GET /healthz", s.serveHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request received", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serveJSON(w http.ResponseWriter, _ *http.Request) {
	tree, updated, ok := s.ready(w)
	if !ok {
		return
	}
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		s.fail(w, err)
		return
	}
	write(w, "application/json", updated, data)
}

func (s *Server) serveYAML(w http.ResponseWriter, _ *http.Request) {
	tree, updated, ok := s.ready(w)
	if !ok {
		return
	}
	data, err := yaml.Marshal(tree)
	if err != nil {
		s.fail(w, err)
		return
	}
	write(w, "application/yaml", updated, data)
}

func (s *Server) serveType(w http.ResponseWriter, r *http.Request) {
	tree, updated, ok := s.ready(w)
	if !ok {
		return
	}
	id := r.PathValue("id")
	doc, found := tree.Get(id)
	if !found {
		http.Error(w, fmt.Sprintf("type %q is not documented", id), http.StatusNotFound)
		return
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.fail(w, err)
		return
	}
	write(w, "application/json", updated, data)
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	tree, _ := s.current()
	if tree == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) ready(w http.ResponseWriter) (*apidoc.Tree, time.Time, bool) {
	tree, updated := s.current()
	if tree == nil {
		http.Error(w, "documentation not collected yet", http.StatusServiceUnavailable)
		return nil, time.Time{}, false
	}
	return tree, updated, true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("failed to encode tree", "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func write(w http.ResponseWriter, contentType string, updated time.Time, data []byte) {
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves Handler on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(errCh)
	}()

	// Block until the context is cancelled or the server fails.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	}
}
