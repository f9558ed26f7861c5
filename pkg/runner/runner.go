// Package runner contains the export and import pipelines and the async job
// wrapper that drives them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/block/bcpzip/pkg/progress"
)

type Status int64

const (
	Started Status = iota
	Running
	Failed
	Errored
	Succeeded
)

func (s Status) String() string {
	switch s {
	case Started:
		return "started"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case Errored:
		return "errored"
	case Succeeded:
		return "succeeded"
	}

	return "unknown"
}

// Runner is one transfer pipeline. Prepare validates the job; Run executes it
// on the calling goroutine, reporting progress to sink.
type Runner interface {
	Prepare() error
	Run(ctx context.Context, sink progress.Sink) error
}

// resetDir removes dir and everything under it, then recreates it empty.
func resetDir(dir string) error {
	_ = os.RemoveAll(dir)
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Error removing directory: %s", dir) //nolint:stylecheck // user-facing message
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directory %s: %w", dir, err)
	}

	return nil
}
