package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/threadreel/internal/types"
)

// Memory keeps jobs in process. Used by the one-shot CLI and tests.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]types.RenderJob
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		jobs: make(map[string]types.RenderJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) CreateJob(_ context.Context, ownerID, sourceRef, title, inputText string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	ts := m.now()
	m.jobs[id] = types.RenderJob{
		ID:        id,
		OwnerID:   ownerID,
		SourceRef: sourceRef,
		Title:     title,
		InputText: inputText,
		Status:    types.StatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	return id, nil
}

func (m *Memory) UpdateJob(_ context.Context, id string, status types.JobStatus, outputPath string, durationSec float64) error {
	if err := checkUpdate(id, status, outputPath); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !types.CanTransition(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, status)
	}
	j.Status = status
	j.OutputPath = outputPath
	j.DurationSec = durationSec
	j.UpdatedAt = m.now()
	m.jobs[id] = j
	return nil
}

func (m *Memory) ListJobs(_ context.Context, ownerID string) ([]types.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.RenderJob
	for _, j := range m.jobs {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, func(a, b types.RenderJob) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (m *Memory) GetJob(_ context.Context, id, ownerID string) (types.RenderJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.OwnerID != ownerID {
		return types.RenderJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}
