// Package bcp drives the external bcp bulk-copy utility, one table and one phase
// per process.
package bcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/siddontang/loggers"
)

// DefaultExecutable is looked up on PATH.
const DefaultExecutable = "bcp"

const maxLineSize = 1 << 20

// waitDelay bounds how long Wait keeps the output pipe open after the process
// is gone, in case a child of bcp still holds it.
var waitDelay = 5 * time.Second

// Copier is the bulk-copy surface used by the export and import runners.
type Copier interface {
	// Format writes r.FormatFile for r.Object and strips its collations.
	Format(ctx context.Context, sink progress.Sink, r Request) error
	// Out exports r.Object into r.DataFile.
	Out(ctx context.Context, sink progress.Sink, r Request) error
	// In loads r.DataFile into r.Object.
	In(ctx context.Context, sink progress.Sink, r Request) error
}

// Runner runs bcp as a child process.
type Runner struct {
	profile    conn.Profile
	executable string
	logger     loggers.Advanced
}

type RunnerConfig struct {
	Profile conn.Profile
	// Executable defaults to DefaultExecutable.
	Executable string
	Logger     loggers.Advanced
}

var _ Copier = (*Runner)(nil)

func NewRunner(cfg *RunnerConfig) *Runner {
	executable := cfg.Executable
	if executable == "" {
		executable = DefaultExecutable
	}

	return &Runner{
		profile:    cfg.Profile,
		executable: executable,
		logger:     cfg.Logger,
	}
}

func (r *Runner) Format(ctx context.Context, sink progress.Sink, req Request) error {
	if err := r.run(ctx, sink, req.Dir, FormatArgs(r.profile, req)); err != nil {
		return err
	}

	return StripCollation(filepath.Join(req.Dir, req.FormatFile))
}

func (r *Runner) Out(ctx context.Context, sink progress.Sink, req Request) error {
	return r.run(ctx, sink, req.Dir, OutArgs(r.profile, req))
}

func (r *Runner) In(ctx context.Context, sink progress.Sink, req Request) error {
	return r.run(ctx, sink, req.Dir, InArgs(r.profile, req))
}

// run starts bcp in dir with stdin closed and stdout and stderr merged, forwards
// every output line to sink, and waits for the process to exit.
func (r *Runner) run(ctx context.Context, sink progress.Sink, dir string, args []string) error {
	r.logger.Debugf("running %s %s in %s", r.executable, formatArgs(args), dir)
	cmd := exec.CommandContext(ctx, r.executable, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		_ = pw.Close()

		return &SpawnError{Args: args, Err: err}
	}

	waited := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waited <- err
	}()

	var readErr error
	for line, err := range lines(pr) {
		if err != nil {
			readErr = err

			break
		}
		sink.Progress(line)
	}
	if readErr != nil {
		_ = cmd.Process.Kill()
	}
	// Unblock the copying goroutines if we stopped reading early.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	waitErr := <-waited

	if readErr != nil {
		return &ProcessError{Args: args, Err: fmt.Errorf("reading output: %w", readErr)}
	}
	if ctx.Err() != nil {
		return &ProcessError{Args: args, Err: fmt.Errorf("process abandoned: %w", ctx.Err())}
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return &ProcessError{Args: args, Err: fmt.Errorf("exit status %d", exitErr.ExitCode())}
		}

		return &ProcessError{Args: args, Err: waitErr}
	}

	return nil
}

// lines yields each line of r once, without the trailing CR/LF. The sequence
// stops after the first read error.
func lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			if !yield(strings.TrimSuffix(scanner.Text(), "\r"), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}
