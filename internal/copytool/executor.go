// Package copytool drives the external s5cmd binary: it builds the argument
// vector from configuration, spawns the process with merged output, and
// turns the line stream into progress events and an outcome.
package copytool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/s5bridge/s5bridge/internal/config"
	"github.com/s5bridge/s5bridge/internal/events"
	"github.com/s5bridge/s5bridge/internal/logging"
)

// Op is the s5cmd sub-command.
type Op string

const (
	OpCopy Op = "cp"
	OpSync Op = "sync"
)

// Executor builds and runs s5cmd invocations.
type Executor struct {
	cfg    *config.Config
	logger *logging.Logger
}

// NewExecutor creates an executor. cfg is read on every call, never cached.
func NewExecutor(cfg *config.Config, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Executor{cfg: cfg, logger: logger}
}

// BuildInvocation returns the argv for op. It fails with a
// *config.ConfigurationError when endpoint, profile or worker count are
// missing.
func (e *Executor) BuildInvocation(op Op, source, destination string) ([]string, error) {
	if err := e.cfg.ValidateCopyTool(); err != nil {
		return nil, err
	}
	switch op {
	case OpCopy, OpSync:
	default:
		return nil, fmt.Errorf("unsupported copy operation %q", op)
	}

	binary := e.cfg.S5cmdPath
	if binary == "" {
		binary = config.DefaultS5cmdPath
	}
	return []string{
		binary,
		"--endpoint-url", e.cfg.Endpoint,
		"--profile", e.cfg.Profile,
		"--numworkers", strconv.Itoa(e.cfg.Workers),
		string(op),
		source,
		destination,
	}, nil
}

// Locate resolves the configured binary through PATH.
func (e *Executor) Locate() (string, error) {
	binary := e.cfg.S5cmdPath
	if binary == "" {
		binary = config.DefaultS5cmdPath
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("s5cmd not found (set S5CMD_PATH or install it from https://github.com/peak/s5cmd/releases): %w", err)
	}
	return path, nil
}

// Handle is a running copy: a merged output stream and an exit code.
type Handle interface {
	// Output is the merged stdout/stderr stream. It reaches EOF once the
	// process has exited and all output was read.
	Output() io.Reader
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
}

// Process is a spawned s5cmd.
type Process struct {
	cmd    *exec.Cmd
	output *io.PipeReader

	done     chan struct{}
	exitCode int
	waitErr  error
}

// Run spawns argv with stdout and stderr merged into one stream. The
// process is killed when ctx is cancelled. On spawn failure the error is
// logged and a nil *Process is returned.
func (e *Executor) Run(ctx context.Context, argv []string) (*Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	// Let stuck output copiers give up shortly after a kill.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		pw.Close()
		e.logger.Errorf("Failed to start %s: %v", argv[0], err)
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	e.logger.Debugf("started %v (pid %d)", argv, cmd.Process.Pid)

	p := &Process{cmd: cmd, output: pr, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.exitCode, p.waitErr = exitStatus(err)
		pw.Close()
		close(p.done)
	}()
	return p, nil
}

// Output implements Handle.
func (p *Process) Output() io.Reader {
	return p.output
}

// Wait implements Handle.
func (p *Process) Wait() (int, error) {
	<-p.done
	return p.exitCode, p.waitErr
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Execute builds, runs and monitors one invocation. A nil error with an
// unsuccessful Outcome means the copy ran and failed; a non-nil error means
// it never started (configuration or spawn failure).
func (e *Executor) Execute(ctx context.Context, op Op, source, destination string, expected int64, onProgress func(events.ProgressEvent)) (Outcome, error) {
	argv, err := e.BuildInvocation(op, source, destination)
	if err != nil {
		return Outcome{ExitCode: -1}, err
	}
	e.logger.Infof("%s %s -> %s", op, source, destination)

	proc, err := e.Run(ctx, argv)
	if err != nil {
		return Outcome{ExitCode: -1}, err
	}

	out := Monitor(proc, expected, onProgress)
	if ctx.Err() != nil && !out.Success {
		out.Err = ctx.Err()
	}
	for _, line := range out.ErrorLines {
		e.logger.Warnf("s5cmd: %s", line)
	}
	return out, nil
}

var _ Handle = (*Process)(nil)
