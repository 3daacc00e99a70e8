// Package jobs runs render jobs on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/threadreel/internal/domain/captions"
	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/metrics"
	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("orchestrator stopped")
)

const (
	stageSynthesize = "synthesize"
	stageSegment    = "segment"
	stageRender     = "render"
)

type Config struct {
	Workers   int
	QueueSize int

	// KeepFailedAudio leaves the synthesized audio of failed jobs on disk.
	KeepFailedAudio bool
	Render          ports.RenderOptions
	WordsPerMinute  int
	WordsPerCaption int
}

// CaptionOptions returns the segmenter options jobs render with.
func (c Config) CaptionOptions() []captions.Option {
	var opts []captions.Option
	if c.WordsPerMinute > 0 {
		opts = append(opts, captions.WithWordsPerMinute(c.WordsPerMinute))
	}
	if c.WordsPerCaption > 0 {
		opts = append(opts, captions.WithChunkSize(c.WordsPerCaption))
	}
	return opts
}

type Deps struct {
	Store       ports.JobStore
	Synthesizer ports.Synthesizer
	Compositor  ports.Compositor
	Layout      Layout
	Logger      zerolog.Logger
}

type task struct {
	ctx  context.Context
	id   string
	text string
}

// Orchestrator moves jobs processing -> completed|error. Job failures are
// recorded in the store and never surface to the caller of StartJob.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	queue  chan task
	logger zerolog.Logger

	mu      sync.RWMutex
	stopped bool

	inFlight atomic.Int64
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		queue:  make(chan task, cfg.QueueSize),
		logger: deps.Logger.With().Str(log.FieldComponent, "jobs").Logger(),
	}
}

// StartJob marks a pending job processing and queues it. It returns without
// waiting for the render.
func (o *Orchestrator) StartJob(ctx context.Context, id, narration string) error {
	if err := o.deps.Store.UpdateJob(ctx, id, types.StatusProcessing, "", 0); err != nil {
		return fmt.Errorf("start job %s: %w", id, err)
	}

	o.mu.RLock()
	var reject error
	if o.stopped {
		reject = ErrStopped
	} else {
		select {
		case o.queue <- task{ctx: context.WithoutCancel(ctx), id: id, text: narration}:
		default:
			reject = ErrQueueFull
		}
	}
	o.mu.RUnlock()

	if reject != nil {
		metrics.QueueRejected.Inc()
		o.fail(ctx, id, reject)
		return fmt.Errorf("start job %s: %w", id, reject)
	}
	return nil
}

// Run consumes the queue until ctx is cancelled. In-flight jobs finish first;
// jobs still queued at that point are marked error.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < o.cfg.Workers; w++ {
		g.Go(func() error {
			for {
				// Stop takes priority over queued work; leftovers are drained below.
				if gctx.Err() != nil {
					return nil
				}
				select {
				case <-gctx.Done():
					return nil
				case t := <-o.queue:
					o.execute(t, w)
				}
			}
		})
	}
	o.logger.Info().Int("workers", o.cfg.Workers).Int("queue_size", o.cfg.QueueSize).Msg("job workers started")
	err := g.Wait()

	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	for {
		select {
		case t := <-o.queue:
			o.fail(t.ctx, t.id, ErrStopped)
		default:
			o.logger.Info().Msg("job workers stopped")
			return err
		}
	}
}

// Pending is the number of queued jobs not yet picked up.
func (o *Orchestrator) Pending() int { return len(o.queue) }

func (o *Orchestrator) InFlight() int { return int(o.inFlight.Load()) }

func (o *Orchestrator) execute(t task, worker int) {
	ctx := log.ContextWithJobID(t.ctx, t.id)
	logger := log.WithContext(ctx, o.logger).With().Int(log.FieldWorker, worker).Logger()

	metrics.JobsStarted.Inc()
	metrics.JobsInFlight.Inc()
	o.inFlight.Add(1)
	defer func() {
		metrics.JobsInFlight.Dec()
		o.inFlight.Add(-1)
	}()

	start := time.Now()
	logger.Info().Msg("job started")

	art, err := o.run(ctx, t, logger)
	if err != nil {
		if !o.cfg.KeepFailedAudio {
			_ = os.Remove(o.deps.Layout.AudioPath(t.id))
		}
		logger.Error().Err(err).Dur(log.FieldDuration, time.Since(start)).Msg("job failed")
		o.fail(ctx, t.id, err)
		return
	}

	if err := o.complete(ctx, t.id, art); err != nil {
		// A video must not outlive a job that never reached completed.
		logger.Error().Err(err).Msg("record completed job")
		_ = os.Remove(art.Path)
		if !o.cfg.KeepFailedAudio {
			_ = os.Remove(o.deps.Layout.AudioPath(t.id))
		}
		o.fail(ctx, t.id, err)
		return
	}
	metrics.JobsFinished.WithLabelValues(string(types.StatusCompleted)).Inc()
	logger.Info().
		Str(log.FieldPath, art.Path).
		Int64("size_bytes", art.SizeBytes).
		Float64("video_sec", art.Duration).
		Dur(log.FieldDuration, time.Since(start)).
		Msg("job completed")
}

// run executes the pipeline; a panic in any stage becomes an error.
func (o *Orchestrator) run(ctx context.Context, t task, logger zerolog.Logger) (art types.VideoArtifact, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("stack", string(debug.Stack())).Msg("job panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	stageStart := time.Now()
	audio, err := o.deps.Synthesizer.Synthesize(ctx, t.text, o.deps.Layout.AudioPath(t.id))
	if err != nil {
		return art, fmt.Errorf("%s: %w", stageSynthesize, err)
	}
	o.stageDone(logger, stageSynthesize, stageStart)

	stageStart = time.Now()
	segs, err := captions.Segment(t.text, audio.Duration, o.cfg.CaptionOptions()...)
	if err != nil {
		return art, fmt.Errorf("%s: %w", stageSegment, err)
	}
	logger.Debug().
		Int("segments", len(segs)).
		Float64("caption_sec", captions.Total(segs)).
		Float64("audio_sec", audio.Duration).
		Msg("captions timed")
	o.stageDone(logger, stageSegment, stageStart)

	stageStart = time.Now()
	art, err = o.deps.Compositor.Render(ctx, audio, segs, o.deps.Layout.VideoPath(t.id), o.cfg.Render)
	if err != nil {
		return art, fmt.Errorf("%s: %w", stageRender, err)
	}
	o.stageDone(logger, stageRender, stageStart)
	return art, nil
}

func (o *Orchestrator) stageDone(logger zerolog.Logger, stage string, start time.Time) {
	metrics.ObserveStage(stage, start)
	logger.Debug().Str(log.FieldStage, stage).Dur(log.FieldDuration, time.Since(start)).Msg("stage done")
}

// complete records the finished job, retrying the write once.
func (o *Orchestrator) complete(ctx context.Context, id string, art types.VideoArtifact) error {
	err := o.deps.Store.UpdateJob(ctx, id, types.StatusCompleted, art.Path, art.Duration)
	if err == nil {
		return nil
	}
	o.logger.Warn().Err(err).Str(log.FieldJobID, id).Msg("record completed job, retrying")
	return o.deps.Store.UpdateJob(context.WithoutCancel(ctx), id, types.StatusCompleted, art.Path, art.Duration)
}

func (o *Orchestrator) fail(ctx context.Context, id string, cause error) {
	if err := o.deps.Store.UpdateJob(context.WithoutCancel(ctx), id, types.StatusError, "", 0); err != nil {
		o.logger.Error().Err(err).Str(log.FieldJobID, id).AnErr("cause", cause).Msg("record failed job")
		return
	}
	metrics.JobsFinished.WithLabelValues(string(types.StatusError)).Inc()
}
