// Package api implements the pkglens serve HTTP interface: a JSON view
// of the dependency tree plus the same detect/build/execute path the
// CLI uses for installs and removals.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pkglens/pkglens/pkg/buildinfo"
	"github.com/pkglens/pkglens/pkg/errors"
	"github.com/pkglens/pkglens/pkg/locate"
	"github.com/pkglens/pkglens/pkg/pm"
	"github.com/pkglens/pkglens/pkg/registry"
	"github.com/pkglens/pkglens/pkg/tree"
)

// Runner executes package-manager command lines. *pm.Executor
// satisfies it.
type Runner interface {
	Run(ctx context.Context, manager pm.Kind, dir, command string) (*pm.Result, error)
}

// Config wires the components a Server serves from.
type Config struct {
	Root       string // workspace root the server operates on
	Logger     *log.Logger
	Model      *tree.Model
	Locator    *locate.Locator
	Registry   *registry.Client
	Detector   *pm.Detector
	Executor   Runner
	Override   pm.Kind // forced package manager; empty means detect
	SearchSize int
}

// Server handles the pkglens HTTP API.
type Server struct {
	cfg Config
}

// NewServer creates a server. A nil logger discards output.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.SearchSize <= 0 {
		cfg.SearchSize = registry.DefaultSearchSize
	}
	return &Server{cfg: cfg}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.handleTree)
		r.Get("/children", s.handleChildren)
		r.Get("/package/*", s.handlePackage)
		r.Get("/search", s.handleSearch)
		r.Post("/install", s.handleInstall)
		r.Post("/remove", s.handleRemove)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// manager resolves the package manager for a project directory,
// honoring the configured override.
func (s *Server) manager(dir string) pm.Kind {
	if s.cfg.Override.Valid() {
		return s.cfg.Override
	}
	return s.cfg.Detector.Detect(dir)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses and emits the
// JSON error body every failing endpoint shares.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidPackage, errors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodePackageNotFound,
		errors.ErrCodeFileNotFound, errors.ErrCodeManifestNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case errors.ErrCodeNetwork, errors.ErrCodeCommandFailed:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
