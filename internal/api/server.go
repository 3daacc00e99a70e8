// Package api exposes render jobs over HTTP.
package api

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/forPelevin/threadreel/internal/domain/captions"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/metrics"
	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/usecase"
)

const (
	ownerHeader  = "X-Owner-ID"
	defaultOwner = "local"
	maxBodyBytes = 1 << 20
)

// Creator starts render jobs.
type Creator interface {
	CreateVideo(ctx context.Context, in usecase.VideoInput) (usecase.Result, error)
	CreateFromText(ctx context.Context, in usecase.NarrationInput) (usecase.Result, error)
}

type Deps struct {
	Creator Creator
	Store   ports.JobStore
	// Health returns the body of GET /healthz.
	Health func() any
	Logger zerolog.Logger
}

type Config struct {
	VideoDir            string
	CreateRatePerMinute int
	// Captions must match the options the render workers segment with, so
	// exported subtitles line up with the burned-in captions.
	Captions []captions.Option
}

type Server struct {
	d      Deps
	cfg    Config
	logger zerolog.Logger
}

func New(d Deps, cfg Config) *Server {
	if cfg.CreateRatePerMinute <= 0 {
		cfg.CreateRatePerMinute = 10
	}
	return &Server{
		d:      d,
		cfg:    cfg,
		logger: d.Logger.With().Str(log.FieldComponent, "api").Logger(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/videos/*", s.handleArtifact)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.createLimit())
			r.Post("/videos", s.handleCreateVideo)
			r.Post("/narrations", s.handleCreateNarration)
		})
		r.Get("/videos", s.handleListVideos)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Get("/videos/{id}/subtitles.srt", s.handleSubtitles)
	})
	return r
}

func (s *Server) createLimit() func(http.Handler) http.Handler {
	window := time.Minute
	return httprate.Limit(
		s.cfg.CreateRatePerMinute,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "RateLimited", "too many requests, try again later")
		}),
	)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := log.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		ev := s.logger.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			ev = s.logger.Warn()
		}
		ev.Str(log.FieldRequestID, log.RequestIDFromContext(ctx)).
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int(log.FieldStatus, ww.Status()).
			Dur(log.FieldDuration, time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var body any = map[string]string{"status": "ok"}
	if s.d.Health != nil {
		body = s.d.Health()
	}
	writeJSON(w, http.StatusOK, body)
}

// handleArtifact serves finished videos only; audio and scratch files in
// the same directory stay private.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || strings.ContainsAny(name, `/\`) || path.Ext(name) != ".mp4" || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusNotFound, "NotFound", "not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.VideoDir, name))
}

func ownerID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(ownerHeader)); v != "" {
		return v
	}
	return defaultOwner
}
