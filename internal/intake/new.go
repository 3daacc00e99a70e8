package intake

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/forPelevin/threadreel/internal/log"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

type Options struct {
	// MaxConcurrent bounds files handled at once. Defaults to 2.
	MaxConcurrent int
	// Settle is how long a new file is left alone before it is read, so
	// writers can finish. Defaults to 500ms.
	Settle time.Duration
}

// New watches inputDir, creating it and its processed/failed subfolders.
func New(inputDir string, handler EventHandler, logger zerolog.Logger, opts Options) (Watcher, error) {
	for _, d := range []string{inputDir, filepath.Join(inputDir, processedDir), filepath.Join(inputDir, failedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create intake dir: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(inputDir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Settle <= 0 {
		opts.Settle = 500 * time.Millisecond
	}
	return &implWatcher{
		inputDir:  inputDir,
		handler:   handler,
		logger:    logger.With().Str(log.FieldComponent, "intake").Logger(),
		watcher:   watcher,
		opts:      opts,
		semaphore: make(chan struct{}, opts.MaxConcurrent),
		seen:      make(map[string]struct{}),
	}, nil
}
