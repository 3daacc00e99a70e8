package ports

import (
	"context"
	"time"

	"github.com/forPelevin/threadreel/internal/types"
)

// Summarizer condenses a bounded chunk of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SpeechEngine writes synthesized speech for text to outPath.
type SpeechEngine interface {
	Generate(ctx context.Context, text, outPath string) error
}

type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) (types.AudioAsset, error)
}

type RenderOptions struct {
	Canvas    types.Canvas
	Style     types.CaptionStyle
	FrameRate int
}

type Compositor interface {
	Render(
		ctx context.Context,
		audio types.AudioAsset,
		segments []types.CaptionSegment,
		outPath string,
		opts RenderOptions,
	) (types.VideoArtifact, error)
}

type ContentSource interface {
	FetchThread(ctx context.Context, ref string, maxComments int) (types.Thread, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, ownerID, sourceRef, title, inputText string) (string, error)
	UpdateJob(ctx context.Context, id string, status types.JobStatus, outputPath string, durationSec float64) error
	ListJobs(ctx context.Context, ownerID string) ([]types.RenderJob, error)
	GetJob(ctx context.Context, id, ownerID string) (types.RenderJob, error)
}
