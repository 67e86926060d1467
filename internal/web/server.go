// Package web provides the HTTP server, handlers and page for the converter.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/csvconvert/internal/config"
	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/JonMunkholm/csvconvert/internal/export"
	"github.com/JonMunkholm/csvconvert/internal/metrics"
	mw "github.com/JonMunkholm/csvconvert/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the converter.
type Server struct {
	cfg        *config.Config
	store      *core.Store
	limiter    *core.ParseLimiter
	metrics    *metrics.Metrics
	exportOpts export.Options
	validate   *validator.Validate

	apiLimiter    *mw.RateLimiter
	uploadLimiter *mw.RateLimiter

	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server. limiter may be nil; it is only reported
// by the health check, the store's sessions do the limiting.
func NewServer(cfg *config.Config, store *core.Store, limiter *core.ParseLimiter, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		limiter:    limiter,
		metrics:    m,
		exportOpts: cfg.ExportOptions(),
		validate:   newValidator(),
		router:     chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.apiLimiter = mw.NewRateLimiter(cfg.Rate.RequestsPerMinute, m.RateLimited)
		s.uploadLimiter = mw.NewRateLimiter(cfg.Rate.UploadLimit, m.RateLimited)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Metrics(s.metrics))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.With(s.withSession).Get("/", s.handleIndex)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		if s.apiLimiter != nil {
			r.Use(s.apiLimiter.Handler)
		}
		r.Use(s.withSession)

		if s.uploadLimiter != nil {
			r.With(s.uploadLimiter.Handler).Post("/upload", s.handleUpload)
		} else {
			r.Post("/upload", s.handleUpload)
		}
		r.Get("/status", s.handleStatus)
		r.Get("/preview", s.handlePreview)
		r.Get("/download/{format}", s.handleDownload)
		r.Get("/formats", s.handleFormats)
	})
}

// Start begins listening for HTTP requests. Visitor bookkeeping of the
// rate limiters stops when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	for _, rl := range []*mw.RateLimiter{s.apiLimiter, s.uploadLimiter} {
		if rl != nil {
			go rl.Run(ctx, time.Minute)
		}
	}

	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; frame-ancestors 'none'")
		}

		next.ServeHTTP(w, r)
	})
}
