// Package runner boots a kernel image under QEMU, relays the kernel's serial
// output and, in test mode, turns the kernel test harness output and the
// isa-debug-exit status into a pass/fail result.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result contains the outcome of a run.
type Result struct {
	Report     Report
	ExitStatus int
	TimedOut   bool
	Success    bool
	Duration   time.Duration
}

// Runner manages the lifecycle of a QEMU process.
type Runner struct {
	Config Config

	// Serial receives every line the kernel writes to the serial port.
	// It may be nil.
	Serial io.Writer

	// Stderr receives QEMU's own diagnostics. It may be nil.
	Stderr io.Writer

	// OnTotal and OnResult are forwarded to the harness output parser.
	OnTotal  func(total int)
	OnResult func(TestResult)

	// command builds the QEMU process; tests replace it.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg Config) *Runner {
	return &Runner{
		Config:  cfg,
		command: exec.CommandContext,
	}
}

// Run boots the image and blocks until QEMU exits or the configured timeout
// expires.
//
// In test mode the run succeeds only when QEMU exits with the status that
// corresponds to the success exit code and no test reported a failure. In
// normal mode the kernel idles forever after booting, so reaching the
// timeout or a clean QEMU shutdown both count as success.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.Config.Timeout.Duration())
	defer cancel()

	cmd := r.command(ctx, r.Config.QEMU, r.Config.QEMUArgs()...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening qemu stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("opening qemu stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", r.Config.QEMU, err)
	}

	parser := NewParser()
	parser.OnTotal = r.OnTotal
	parser.OnResult = r.OnResult

	var g errgroup.Group
	g.Go(func() error {
		return pumpLines(stdout, r.Serial, parser.Feed)
	})
	g.Go(func() error {
		return pumpLines(stderr, r.Stderr, nil)
	})

	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	parser.Close()

	res := &Result{
		Report:   parser.Report(),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.ExitStatus = 0
	case errors.As(waitErr, &exitErr):
		res.ExitStatus = exitErr.ExitCode()
	case !res.TimedOut:
		return nil, fmt.Errorf("waiting for qemu: %w", waitErr)
	}

	if pumpErr != nil && !res.TimedOut {
		return nil, fmt.Errorf("reading qemu output: %w", pumpErr)
	}

	if r.Config.Test {
		res.Success = !res.TimedOut &&
			res.ExitStatus == r.Config.SuccessStatus() &&
			res.Report.Failed == 0 &&
			!res.Report.Incomplete()
	} else {
		res.Success = res.TimedOut || res.ExitStatus == 0
	}

	return res, nil
}

// pumpLines copies lines from src to dst (if not nil) and hands each line to
// fn (if not nil).
func pumpLines(src io.Reader, dst io.Writer, fn func(string)) error {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Text()
		if dst != nil {
			fmt.Fprintln(dst, line)
		}
		if fn != nil {
			fn(line)
		}
	}

	return scanner.Err()
}
