package captions

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/threadreel/internal/types"
)

const (
	DefaultWordsPerMinute = 150
	DefaultChunkSize      = 8
)

var ErrSegmentation = errors.New("segmentation")

type options struct {
	wpm       int
	chunkSize int
}

type Option func(*options)

func WithWordsPerMinute(wpm int) Option {
	return func(o *options) { o.wpm = wpm }
}

func WithChunkSize(n int) Option {
	return func(o *options) { o.chunkSize = n }
}

// Segment splits narration into fixed-size word groups timed by a constant
// speaking rate. The timing is an estimate from word counts alone; duration is
// only validated, it does not stretch or shrink the segments, so the last End
// can differ from the real audio length.
func Segment(text string, duration float64, opts ...Option) ([]types.CaptionSegment, error) {
	o := options{wpm: DefaultWordsPerMinute, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrSegmentation, duration)
	}
	if o.wpm <= 0 {
		return nil, fmt.Errorf("%w: words per minute must be positive, got %d", ErrSegmentation, o.wpm)
	}
	if o.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrSegmentation, o.chunkSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []types.CaptionSegment{}, nil
	}

	wps := float64(o.wpm) / 60
	out := make([]types.CaptionSegment, 0, (len(words)+o.chunkSize-1)/o.chunkSize)
	cur := 0.0
	for i := 0; i < len(words); i += o.chunkSize {
		end := i + o.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := words[i:end]
		next := cur + float64(len(chunk))/wps
		out = append(out, types.CaptionSegment{
			Start: cur,
			End:   next,
			Text:  strings.Join(chunk, " "),
		})
		cur = next
	}
	return out, nil
}

// Total returns the end of the last segment.
func Total(segments []types.CaptionSegment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].End
}
