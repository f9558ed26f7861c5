package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/block/bcpzip/pkg/bcp"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/block/bcpzip/pkg/test"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	lines      []string
	pause      time.Duration
	err        error
	prepareErr error
	panicMsg   string
}

func (s *scriptedRunner) Prepare() error {
	return s.prepareErr
}

func (s *scriptedRunner) Run(_ context.Context, sink progress.Sink) error {
	for _, l := range s.lines {
		sink.Progress(l)
		if s.pause > 0 {
			time.Sleep(s.pause)
		}
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}

	return s.err
}

func shortFloor(t *testing.T) {
	t.Helper()
	old := minJobDuration
	minJobDuration = 10 * time.Millisecond
	t.Cleanup(func() { minJobDuration = old })
}

// collect drains the job and returns its line batches and the final result.
func collect(t *testing.T, j *Job) ([][]string, Result) {
	t.Helper()
	var batches [][]string
	var result *Result
	for ev := range j.Events() {
		require.Nil(t, result, "no event may follow the result")
		if ev.Result != nil {
			result = ev.Result

			continue
		}
		require.NotEmpty(t, ev.Lines)
		batches = append(batches, ev.Lines)
	}
	require.NotNil(t, result)

	return batches, *result
}

func flatten(batches [][]string) []string {
	var out []string
	for _, b := range batches {
		out = append(out, b...)
	}

	return out
}

func TestJobSuccess(t *testing.T) {
	lines := []string{"Running export ...", "Running bcp ....", "Export complete"}
	start := time.Now()
	j := Start(context.Background(), &scriptedRunner{lines: lines}, test.Logger(t))
	require.NotEmpty(t, j.ID)

	batches, result := collect(t, j)

	require.Equal(t, Result{Success: true}, result)
	require.Equal(t, lines, flatten(batches))
	require.Equal(t, Succeeded, j.Status())
	require.GreaterOrEqual(t, time.Since(start), minJobDuration, "terminal event is held for the minimum duration")
}

func TestJobCoalescesLines(t *testing.T) {
	shortFloor(t)
	var lines []string
	for i := range 500 {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}

	batches, result := collect(t, Start(context.Background(), &scriptedRunner{lines: lines}, test.Logger(t)))

	require.True(t, result.Success)
	require.Equal(t, lines, flatten(batches), "order preserved, nothing dropped")
	require.Less(t, len(batches), 50)
}

func TestJobFlushesAcrossTicks(t *testing.T) {
	shortFloor(t)
	lines := []string{"one", "two", "three", "four"}

	batches, result := collect(t, Start(context.Background(), &scriptedRunner{lines: lines, pause: 3 * coalesceInterval / 2}, test.Logger(t)))

	require.True(t, result.Success)
	require.Equal(t, lines, flatten(batches))
	require.Greater(t, len(batches), 1)
}

func TestJobFailureIsRedacted(t *testing.T) {
	shortFloor(t)
	runErr := &bcp.ProcessError{Args: []string{"[shop].[dbo].[b]", "out", "-U", "sa", "-P", "secret123"}, Err: errors.New("exit status 1")}
	j := Start(context.Background(), &scriptedRunner{lines: []string{"Exporting data: dbo.b"}, err: runErr}, test.Logger(t))

	batches, result := collect(t, j)

	require.False(t, result.Success)
	require.Contains(t, result.Message, "bcp process failure")
	require.Contains(t, result.Message, `-P", "******`)
	require.NotContains(t, result.Message, "secret123")
	require.Equal(t, []string{"Exporting data: dbo.b"}, flatten(batches))
	require.Equal(t, Failed, j.Status())
}

func TestJobPrepareError(t *testing.T) {
	shortFloor(t)
	j := Start(context.Background(), &scriptedRunner{prepareErr: errors.New("hostname must be specified")}, test.Logger(t))

	result := j.Wait()

	require.Equal(t, Result{Message: "hostname must be specified"}, result)
	require.Equal(t, Failed, j.Status())
}

func TestJobPanic(t *testing.T) {
	shortFloor(t)
	j := Start(context.Background(), &scriptedRunner{lines: []string{"a"}, panicMsg: "boom"}, test.Logger(t))

	result := j.Wait()

	require.False(t, result.Success)
	require.Equal(t, "job panicked: boom", result.Message)
	require.Equal(t, Errored, j.Status())
}
