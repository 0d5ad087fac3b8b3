package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/metrics"
	"github.com/KaramelBytes/readmegen-cli/internal/readme"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
)

var errNoGenerator = errors.New("no generator configured")

// Settings are the parts of the server that can change while it runs.
type Settings struct {
	Credential string
	Model      string
	Generator  workflow.DocumentGenerator
}

// Options configure a Server.
type Options struct {
	Addr           string
	Fetcher        workflow.Fetcher
	Settings       Settings
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	Metrics        *metrics.Recorder
	Logger         *slog.Logger
}

type generatorFunc func(ctx context.Context, repo *github.Repository, credential, email string) readme.Result

func (f generatorFunc) Generate(ctx context.Context, repo *github.Repository, credential, email string) readme.Result {
	return f(ctx, repo, credential, email)
}

// Server is the local web front end. Each browser gets its own workflow
// controller, keyed by a session cookie.
type Server struct {
	Addr     string
	router   *chi.Mux
	server   *http.Server
	sessions *sessionStore
	settings atomic.Pointer[Settings]
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// NewServer creates a new web server.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8080"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 150 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRecorder()
	}

	s := &Server{
		Addr:    opts.Addr,
		router:  chi.NewRouter(),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	st := opts.Settings
	s.settings.Store(&st)

	gen := generatorFunc(func(ctx context.Context, repo *github.Repository, credential, email string) readme.Result {
		cur := s.settings.Load()
		if cur == nil || cur.Generator == nil {
			return readme.Result{Success: false, Error: errNoGenerator.Error(), Err: errNoGenerator}
		}
		return cur.Generator.Generate(ctx, repo, credential, email)
	})
	s.sessions = newSessionStore(opts.SessionTTL, func(n workflow.Notifier) *workflow.Controller {
		return workflow.NewController(opts.Fetcher, gen,
			workflow.WithNotifier(n),
			workflow.WithObserver(s.metrics),
			workflow.WithLogger(s.logger),
		)
	}, s.metrics.SetSessions)

	s.setupRoutes(opts.RequestTimeout)

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      opts.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes(timeout time.Duration) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(timeout))

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Get("/api/state", s.handleState)

	s.router.Get("/", s.handleHome)
	s.router.Post("/fetch", s.handleFetch)
	s.router.Post("/generate", s.handleGenerate)
	s.router.Get("/download", s.handleDownload)
	s.router.Post("/reset", s.handleReset)
	s.router.Post("/theme", s.handleTheme)
	s.router.Get("/{owner}/{repo}", s.handleRepoView)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// UpdateSettings swaps credential, model and generator for later requests.
// Requests already running keep the values they started with.
func (s *Server) UpdateSettings(st Settings) {
	s.settings.Store(&st)
	s.logger.Info("settings reloaded", "model", st.Model, "credential_set", st.Credential != "")
}

func (s *Server) currentSettings() Settings {
	if p := s.settings.Load(); p != nil {
		return *p
	}
	return Settings{}
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Response represents a standard JSON response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Error writes an error response.
func (s *Server) Error(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Response{Success: false, Error: message})
}

// Success writes a success response.
func (s *Server) Success(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, Response{Success: true, Data: data})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
