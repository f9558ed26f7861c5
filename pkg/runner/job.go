package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/block/bcpzip/pkg/bcp"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/block/bcpzip/pkg/random"
	"github.com/siddontang/loggers"
	"golang.org/x/sync/errgroup"
)

var (
	// coalesceInterval batches progress lines into one Event.
	coalesceInterval = 100 * time.Millisecond
	// minJobDuration holds back the terminal Event of a job that finishes early.
	minJobDuration = time.Second
)

// Result is the terminal outcome of a job. Message is empty on success and
// holds the redacted error text on failure.
type Result struct {
	Success bool
	Message string
}

// Event is either a batch of progress lines or, as the last event of a job,
// its Result.
type Event struct {
	Lines  []string
	Result *Result
}

// Job runs one Runner on its own goroutine and reports progress as Events.
type Job struct {
	ID string

	events chan Event
	done   chan struct{}
	status atomic.Int64
	result Result
	logger loggers.Advanced
}

// Start prepares and runs r in the background. The caller must either drain
// Events until it is closed or call Wait.
func Start(ctx context.Context, r Runner, logger loggers.Advanced) *Job {
	j := &Job{
		ID:     random.ID(),
		events: make(chan Event, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	j.status.Store(int64(Started))
	go j.run(ctx, r)

	return j
}

// Events delivers progress batches in order, then one Event carrying the
// Result, then closes.
func (j *Job) Events() <-chan Event {
	return j.events
}

func (j *Job) Status() Status {
	return Status(j.status.Load())
}

// Wait discards any undelivered events and blocks until the job finishes.
func (j *Job) Wait() Result {
	for range j.events { //nolint:revive // draining
	}
	<-j.done

	return j.result
}

func (j *Job) run(ctx context.Context, r Runner) {
	defer close(j.done)
	start := time.Now()
	lines := make(chan string, 64)

	var runErr error
	g := new(errgroup.Group)
	g.Go(func() error {
		defer close(lines)
		defer func() {
			if p := recover(); p != nil {
				runErr = fmt.Errorf("job panicked: %v", p)
				j.status.Store(int64(Errored))
			}
		}()
		j.status.Store(int64(Running))
		j.logger.Infof("Starting job %s", j.ID)
		if err := r.Prepare(); err != nil {
			runErr = err

			return nil
		}
		runErr = r.Run(ctx, progress.Func(func(line string) {
			lines <- line
		}))

		return nil
	})

	// Batch lines until the runner is done, then flush what is left.
	g.Go(func() error {
		ticker := time.NewTicker(coalesceInterval)
		defer ticker.Stop()
		var pending []string
		flush := func() {
			if len(pending) > 0 {
				j.events <- Event{Lines: pending}
				pending = nil
			}
		}
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					flush()

					return nil
				}
				pending = append(pending, line)
			case <-ticker.C:
				flush()
			}
		}
	})
	_ = g.Wait()

	if wait := minJobDuration - time.Since(start); wait > 0 {
		time.Sleep(wait)
	}

	if runErr != nil {
		j.result = Result{Message: bcp.Redact(runErr.Error())}
		if j.Status() != Errored {
			j.status.Store(int64(Failed))
		}
		j.logger.Errorf("Job %s failed after %s: %s", j.ID, time.Since(start).Round(time.Millisecond), j.result.Message)
	} else {
		j.result = Result{Success: true}
		j.status.Store(int64(Succeeded))
		j.logger.Infof("Job %s succeeded after %s", j.ID, time.Since(start).Round(time.Millisecond))
	}
	res := j.result
	j.events <- Event{Result: &res}
	close(j.events)
}
