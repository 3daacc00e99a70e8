// Package intake turns .txt files dropped into a folder into render jobs.
package intake

import (
	"context"

	"github.com/forPelevin/threadreel/internal/usecase"
)

// Watcher watches the drop folder until its context is cancelled.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler processes one dropped file.
type EventHandler func(ctx context.Context, path string) error

// Creator queues narration for rendering.
type Creator interface {
	CreateFromText(ctx context.Context, in usecase.NarrationInput) (usecase.Result, error)
}
