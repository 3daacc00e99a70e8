// Package store persists render jobs.
package store

import (
	"errors"
	"fmt"

	"github.com/forPelevin/threadreel/internal/types"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

var allStatuses = []types.JobStatus{
	types.StatusPending,
	types.StatusProcessing,
	types.StatusCompleted,
	types.StatusError,
}

// sourcesFor lists the statuses a job may leave to reach to.
func sourcesFor(to types.JobStatus) []types.JobStatus {
	var out []types.JobStatus
	for _, from := range allStatuses {
		if types.CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

func checkUpdate(id string, status types.JobStatus, outputPath string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrJobNotFound)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if outputPath != "" && status != types.StatusCompleted {
		return fmt.Errorf("%w: output path is only recorded for completed jobs", ErrInvalidTransition)
	}
	return nil
}
