// Package server is the HTTP surface of the player: category listings, the
// session commands, settings, the scorecard download and the shareable
// category links.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"psp.com/quizla/backend/internal/catalog"
	"psp.com/quizla/backend/internal/questionbank"
	"psp.com/quizla/backend/internal/routing"
	"psp.com/quizla/backend/internal/scorecard"
	"psp.com/quizla/backend/internal/session"
	"psp.com/quizla/backend/internal/settings"
	"psp.com/quizla/backend/internal/view"
)

// Controller is the session controller as driven over HTTP.
type Controller interface {
	routing.Starter
	SelectAnswer(i int) error
	ToggleReveal() error
	Advance() error
	EndSession()
	ToggleSetting(ctx context.Context, name string) (settings.Change, error)
	SetTimerDuration(ctx context.Context, seconds int) error
	Settings() settings.Settings
	Snapshot() session.Snapshot
}

// Opener resolves a locator and starts what it names.
type Opener interface {
	Open(ctx context.Context, locator string) (routing.Route, error)
}

// StatusReporter reports the loading state of the category store.
type StatusReporter interface {
	Status() catalog.Status
}

type Options struct {
	Bank       *questionbank.Bank
	Controller Controller
	View       *view.Recorder
	Opener     Opener
	Status     StatusReporter

	AllowedOrigins []string
	RateLimit      int
	// DataDir, when set, is served under /data/.
	DataDir string
	Logger  *slog.Logger
	Now     func() time.Time
}

type Server struct {
	bank   *questionbank.Bank
	ctrl   Controller
	view   *view.Recorder
	opener Opener
	status StatusReporter
	log    *slog.Logger
	now    func() time.Time
	router chi.Router
}

func New(opts Options) *Server {
	s := &Server{
		bank:   opts.Bank,
		ctrl:   opts.Controller,
		view:   opts.View,
		opener: opts.Opener,
		status: opts.Status,
		log:    opts.Logger,
		now:    opts.Now,
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)
	r.Use(newRateLimiter(opts.RateLimit, s.now).middleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/categories", s.handleCategories)
		r.Get("/categories/extended", s.handleExtended)
		r.Get("/view", s.handleView)

		r.Post("/session", s.handleStart)
		r.Get("/session", s.handleSnapshot)
		r.Delete("/session", s.handleEnd)
		r.Post("/session/answer", s.handleAnswer)
		r.Post("/session/reveal", s.handleReveal)
		r.Post("/session/next", s.handleNext)
		r.Get("/session/scorecard", s.handleScorecard)

		r.Get("/settings", s.handleSettings)
		r.Post("/settings/{name}/toggle", s.handleToggle)
		r.Put("/settings/timer-duration", s.handleTimerDuration)
	})

	if opts.DataDir != "" {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(opts.DataDir))))
	}

	r.Get("/", s.handleLocator)
	r.Get("/quiz/{slug}", s.handleLocator)
	r.Get("/{locator}", s.handleLocator)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps controller errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnknownCategory),
		errors.Is(err, settings.ErrUnknownSetting):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidOption),
		errors.Is(err, settings.ErrInvalidDuration):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrNotAccepted),
		errors.Is(err, scorecard.ErrNothingAnswered):
		code = http.StatusConflict
	case errors.Is(err, session.ErrNoQuestionsAvailable):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, routing.ErrCatalogNotReady):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), code)
}
