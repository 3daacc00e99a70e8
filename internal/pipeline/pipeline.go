// Package pipeline builds the adapters, store and job workers from config.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/threadreel/internal/config"
	"github.com/forPelevin/threadreel/internal/jobs"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/ports/adapters/espeak"
	"github.com/forPelevin/threadreel/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/threadreel/internal/ports/adapters/httptts"
	"github.com/forPelevin/threadreel/internal/ports/adapters/openrouter"
	"github.com/forPelevin/threadreel/internal/ports/adapters/reddit"
	"github.com/forPelevin/threadreel/internal/speech"
	"github.com/forPelevin/threadreel/internal/store"
	"github.com/forPelevin/threadreel/internal/usecase"
	"github.com/forPelevin/threadreel/pkg/executor"
)

type Config struct {
	config.Config

	// InMemory keeps jobs in process memory instead of SQLite (one-shot CLI runs).
	InMemory bool
	Logf     func(format string, args ...any)
	Logger   zerolog.Logger
}

// Validate checks what Build cannot recover from.
func (c Config) Validate() error {
	if c.Paths.Output == "" {
		return errors.New("output dir is empty")
	}
	if !c.InMemory && c.Paths.Database == "" {
		return errors.New("database path is empty")
	}
	if c.Summarizer.APIKey != "" {
		return openrouter.ValidateBaseURL(c.Summarizer.BaseURL, c.Summarizer.AllowedHosts)
	}
	return nil
}

// App holds the long-lived collaborators shared by every job.
type App struct {
	Store       ports.JobStore
	Jobs        *jobs.Orchestrator
	JobsConfig  jobs.Config
	Usecase     usecase.Usecase
	Synthesizer *speech.Synthesizer
	Layout      jobs.Layout
	// Summarizer is nil when no API key is configured.
	Summarizer ports.Summarizer
	// RenderErr is set when ffmpeg failed its startup check.
	RenderErr error

	closers []func() error
}

// Build wires the pipeline. Missing optional backends (summarizer, Redis)
// degrade instead of failing; the caller runs App.Jobs and calls Close.
func Build(ctx context.Context, cfg Config) (*App, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	logger := cfg.Logger.With().Str(log.FieldComponent, "pipeline").Logger()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{Layout: jobs.Layout{Dir: cfg.Paths.Output}}
	logf("preparing output dir")
	if err := os.MkdirAll(app.Layout.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	logf("output: %s", app.Layout.Dir)

	// adapters
	exec := executor.New()
	video := ffmpeg.New(exec, cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	if err := video.Check(ctx); err != nil {
		app.RenderErr = err
		logger.Warn().Err(err).Msg("video compositor unavailable; jobs will fail at render")
	}
	app.Synthesizer = buildSynthesizer(ctx, cfg, exec, video, logger)

	llm := openrouter.New(cfg.Summarizer.APIKey, cfg.Summarizer.Model, cfg.Summarizer.BaseURL)
	if llm.Configured() {
		app.Summarizer = llm
	} else {
		logger.Warn().Msg("OPENROUTER_API_KEY not set; thread summarization disabled")
	}

	js, err := buildStore(ctx, cfg, app, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Store = js

	app.JobsConfig = jobs.Config{
		Workers:         cfg.Jobs.Workers,
		QueueSize:       cfg.Jobs.QueueSize,
		KeepFailedAudio: cfg.Jobs.KeepFailedAudio,
		Render: ports.RenderOptions{
			Canvas:    cfg.Render.Canvas,
			Style:     cfg.Render.Style,
			FrameRate: cfg.Render.FrameRate,
		},
		WordsPerMinute:  cfg.Render.WordsPerMinute,
		WordsPerCaption: cfg.Render.WordsPerCaption,
	}
	app.Jobs = jobs.New(jobs.Deps{
		Store:       app.Store,
		Synthesizer: app.Synthesizer,
		Compositor:  video,
		Layout:      app.Layout,
		Logger:      cfg.Logger,
	}, app.JobsConfig)

	app.Usecase = usecase.New(usecase.Deps{
		Source: reddit.New(reddit.Config{
			BaseURL:           cfg.Source.BaseURL,
			UserAgent:         cfg.Source.UserAgent,
			RequestsPerMinute: cfg.Source.RequestsPerMinute,
		}),
		Summarizer: app.Summarizer,
		Store:      app.Store,
		Jobs:       app.Jobs,
	})
	return app, nil
}

func buildSynthesizer(ctx context.Context, cfg Config, exec executor.Executor, prober ports.DurationProber, logger zerolog.Logger) *speech.Synthesizer {
	var (
		engine interface {
			ports.SpeechEngine
			Check(context.Context) error
		}
		opts []speech.Option
	)
	switch cfg.Speech.Engine {
	case config.EngineHTTP:
		engine = httptts.New(httptts.Config{
			URL:        cfg.Speech.HTTPURL,
			APIKey:     cfg.Speech.APIKey,
			AuthScheme: cfg.Speech.AuthScheme,
		})
	default:
		engine = espeak.New(exec, cfg.Speech.EspeakBinary, cfg.Speech.Voice, cfg.Speech.WordsPerMin)
	}
	if cfg.Speech.Serialize != nil {
		opts = append(opts, speech.Serialize(*cfg.Speech.Serialize))
	}
	if err := engine.Check(ctx); err != nil {
		logger.Warn().Err(err).Str("engine", cfg.Speech.Engine).Msg("speech engine unavailable")
		opts = append(opts, speech.WithInitError(err))
	}
	return speech.New(engine, prober, opts...)
}

func buildStore(ctx context.Context, cfg Config, app *App, logger zerolog.Logger) (ports.JobStore, error) {
	var js ports.JobStore
	if cfg.InMemory {
		js = store.NewMemory()
	} else {
		if dir := filepath.Dir(cfg.Paths.Database); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		db, err := store.OpenSQLite(cfg.Paths.Database)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		js = db
	}

	if cfg.Redis.Addr == "" {
		return js, nil
	}
	client, err := store.NewRedisClient(ctx, store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("job status cache disabled")
		return js, nil
	}
	app.closers = append(app.closers, client.Close)
	return store.NewCached(js, client, cfg.Redis.TTL, cfg.Logger), nil
}

// Health is a capability report for the running process.
type Health struct {
	Synthesis  string `json:"synthesis"`
	Render     string `json:"render"`
	Summarizer string `json:"summarizer"`
	Pending    int    `json:"pending_jobs"`
	InFlight   int    `json:"in_flight_jobs"`
	CheckedAt  string `json:"checked_at"`
}

func (a *App) Health() Health {
	h := Health{
		Synthesis:  "ok",
		Render:     "ok",
		Summarizer: "ok",
		CheckedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if err := a.Synthesizer.Available(); err != nil {
		h.Synthesis = err.Error()
	}
	if a.RenderErr != nil {
		h.Render = a.RenderErr.Error()
	}
	if a.Summarizer == nil {
		h.Summarizer = "not configured"
	}
	if a.Jobs != nil {
		h.Pending = a.Jobs.Pending()
		h.InFlight = a.Jobs.InFlight()
	}
	return h
}

// Close releases the store and cache connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ensure adapters implement ports
var (
	_ ports.Compositor     = (*ffmpeg.Adapter)(nil)
	_ ports.DurationProber = (*ffmpeg.Adapter)(nil)
	_ ports.SpeechEngine   = (*espeak.Adapter)(nil)
	_ ports.SpeechEngine   = (*httptts.Adapter)(nil)
	_ ports.Summarizer     = (*openrouter.Adapter)(nil)
	_ ports.ContentSource  = (*reddit.Adapter)(nil)
	_ ports.Synthesizer    = (*speech.Synthesizer)(nil)
	_ ports.JobStore       = (*store.SQLite)(nil)
	_ ports.JobStore       = (*store.Cached)(nil)
)
