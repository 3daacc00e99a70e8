package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/threadreel/internal/domain/narration"
	"github.com/forPelevin/threadreel/internal/metrics"
	"github.com/forPelevin/threadreel/internal/ports"
)

var (
	// ErrEmptyNarration means the source produced nothing to speak.
	ErrEmptyNarration = errors.New("narration is empty")
	// ErrUpstream wraps failures of the content source or the summarizer.
	ErrUpstream = errors.New("upstream request failed")
)

// JobStarter hands a created job to the render workers.
type JobStarter interface {
	StartJob(ctx context.Context, id, narration string) error
}

type Deps struct {
	Source     ports.ContentSource
	Summarizer ports.Summarizer // nil when no summarizer is configured
	Store      ports.JobStore
	Jobs       JobStarter
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type VideoInput struct {
	OwnerID     string
	URL         string
	MaxComments int
}

type NarrationInput struct {
	OwnerID   string
	Title     string
	Text      string
	SourceRef string
}

// Result carries the id of the created job. JobID is set even when the job
// could not be queued; that job is already marked error.
type Result struct {
	JobID string
	Title string
}

// CreateVideo fetches a thread, condenses it into narration and queues a
// render job for it.
func (u Usecase) CreateVideo(ctx context.Context, in VideoInput) (Result, error) {
	maxComments := narration.ClampComments(in.MaxComments)
	th, err := u.d.Source.FetchThread(ctx, in.URL, maxComments)
	if err != nil {
		metrics.SourceFetches.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: fetch thread: %w", ErrUpstream, err)
	}
	metrics.SourceFetches.WithLabelValues("ok").Inc()

	src := narration.BuildSource(th, maxComments)
	summary, err := narration.Summarize(ctx, u.d.Summarizer, src)
	if err != nil {
		return Result{}, fmt.Errorf("%w: summarize thread: %w", ErrUpstream, err)
	}
	return u.enqueue(ctx, in.OwnerID, in.URL, th.Title, summary)
}

// CreateFromText queues a render job for pre-written narration.
func (u Usecase) CreateFromText(ctx context.Context, in NarrationInput) (Result, error) {
	return u.enqueue(ctx, in.OwnerID, in.SourceRef, in.Title, narration.Normalize(in.Text))
}

func (u Usecase) enqueue(ctx context.Context, ownerID, sourceRef, title, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyNarration
	}
	id, err := u.d.Store.CreateJob(ctx, ownerID, sourceRef, title, text)
	if err != nil {
		return Result{}, fmt.Errorf("create job: %w", err)
	}
	res := Result{JobID: id, Title: title}
	if err := u.d.Jobs.StartJob(ctx, id, text); err != nil {
		return res, err
	}
	return res, nil
}
