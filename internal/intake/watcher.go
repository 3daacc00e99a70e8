package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/forPelevin/threadreel/internal/log"
	"github.com/forPelevin/threadreel/internal/usecase"
)

// intakeOwner owns jobs created from the drop folder.
const intakeOwner = "local"

type implWatcher struct {
	inputDir  string
	handler   EventHandler
	logger    zerolog.Logger
	watcher   *fsnotify.Watcher
	opts      Options
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu   sync.Mutex
	seen map[string]struct{}
}

// Start handles files already in the folder, then new ones as they appear.
// It returns nil once ctx is cancelled and in-progress files are done.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info().Str(log.FieldPath, w.inputDir).Int("max_concurrent", w.opts.MaxConcurrent).Msg("intake watcher started")

	entries, err := os.ReadDir(w.inputDir)
	if err != nil {
		return fmt.Errorf("scan intake dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && isTextFile(e.Name()) {
			if !w.dispatch(ctx, filepath.Join(w.inputDir, e.Name())) {
				return w.shutdown()
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return w.shutdown()

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isTextFile(event.Name) {
				w.logger.Debug().Str(log.FieldPath, event.Name).Msg("ignoring non-text file")
				continue
			}
			if !w.dispatch(ctx, event.Name) {
				return w.shutdown()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *implWatcher) shutdown() error {
	w.logger.Info().Msg("waiting for intake files in progress")
	w.wg.Wait()
	w.logger.Info().Msg("intake watcher stopped")
	return nil
}

// dispatch hands path to the handler once, blocking while all slots are
// busy. It reports false when ctx ended first.
func (w *implWatcher) dispatch(ctx context.Context, path string) bool {
	w.mu.Lock()
	if _, dup := w.seen[path]; dup {
		w.mu.Unlock()
		return true
	}
	w.seen[path] = struct{}{}
	w.mu.Unlock()

	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		defer w.forget(path)

		select {
		case <-time.After(w.opts.Settle):
		case <-ctx.Done():
			return
		}
		w.handle(ctx, path)
	}()
	return true
}

func (w *implWatcher) forget(path string) {
	w.mu.Lock()
	delete(w.seen, path)
	w.mu.Unlock()
}

// handle runs the handler and files the input under processed/ or failed/.
func (w *implWatcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// already moved by an earlier event for the same file
		return
	}
	logger := w.logger.With().Str(log.FieldPath, path).Logger()
	dest := processedDir
	if err := w.handler(ctx, path); err != nil {
		logger.Error().Err(err).Msg("intake file failed")
		dest = failedDir
	} else {
		logger.Info().Msg("intake file queued")
	}
	target := filepath.Join(w.inputDir, dest, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		logger.Error().Err(err).Msg("move intake file")
	}
}

// Stop closes the file watcher.
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func isTextFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// TextHandler queues the content of each file as narration titled after the
// file name.
func TextHandler(c Creator) EventHandler {
	return func(ctx context.Context, path string) error {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		title := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSuffix(name, filepath.Ext(name))))
		_, err = c.CreateFromText(ctx, usecase.NarrationInput{
			OwnerID:   intakeOwner,
			Title:     title,
			Text:      string(b),
			SourceRef: "file:" + name,
		})
		if err != nil {
			return fmt.Errorf("queue %s: %w", name, err)
		}
		return nil
	}
}
