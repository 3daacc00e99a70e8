// Package speech turns narration text into a measured audio asset.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
)

var (
	// ErrSynthesisUnavailable means no usable engine was initialised.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")
	// ErrSynthesisFailed wraps per-call failures.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

type Option func(*Synthesizer)

// Serialize guards the engine with a mutex for engines that are not safe
// for concurrent use.
func Serialize(on bool) Option {
	return func(s *Synthesizer) { s.serialize = on }
}

// WithInitError marks the synthesizer unavailable, e.g. after a failed
// startup check of the engine.
func WithInitError(err error) Option {
	return func(s *Synthesizer) { s.initErr = err }
}

type Synthesizer struct {
	engine    ports.SpeechEngine
	prober    ports.DurationProber
	serialize bool
	initErr   error

	mu sync.Mutex
}

func New(engine ports.SpeechEngine, prober ports.DurationProber, opts ...Option) *Synthesizer {
	s := &Synthesizer{engine: engine, prober: prober}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Available reports nil when synthesis can be attempted.
func (s *Synthesizer) Available() error {
	if s == nil || s.engine == nil || s.prober == nil {
		return ErrSynthesisUnavailable
	}
	if s.initErr != nil {
		return fmt.Errorf("%w: %w", ErrSynthesisUnavailable, s.initErr)
	}
	return nil
}

// Synthesize writes speech for text to outPath and measures it. The caller
// owns the file, including on error.
func (s *Synthesizer) Synthesize(ctx context.Context, text, outPath string) (types.AudioAsset, error) {
	if err := s.Available(); err != nil {
		return types.AudioAsset{}, err
	}
	if strings.TrimSpace(text) == "" {
		return types.AudioAsset{}, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}

	if err := s.generate(ctx, text, outPath); err != nil {
		return types.AudioAsset{}, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	st, err := os.Stat(outPath)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("%w: engine produced no file: %w", ErrSynthesisFailed, err)
	}
	if st.Size() == 0 {
		return types.AudioAsset{}, fmt.Errorf("%w: engine produced an empty file", ErrSynthesisFailed)
	}

	d, err := s.prober.ProbeDuration(ctx, outPath)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("%w: measure duration: %w", ErrSynthesisFailed, err)
	}
	if d <= 0 {
		return types.AudioAsset{}, fmt.Errorf("%w: non-positive duration %s", ErrSynthesisFailed, d)
	}
	return types.AudioAsset{Path: outPath, Duration: d.Seconds()}, nil
}

func (s *Synthesizer) generate(ctx context.Context, text, outPath string) error {
	if s.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.engine.Generate(ctx, text, outPath)
}
