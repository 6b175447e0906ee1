// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/logwarden-foundation/logwarden/lib/clock"
	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

const (
	// DefaultCommandTimeout is the wall-clock kill deadline for a
	// collection command.
	DefaultCommandTimeout = 20 * time.Second

	// DefaultMaxCommandBytes caps accumulated stdout. Checked on
	// every chunk, not at completion, to bound peak memory.
	DefaultMaxCommandBytes = 5 * 1024 * 1024

	// stderrTailBytes is how much trailing stderr is kept for the
	// error message on a non-zero exit.
	stderrTailBytes = 300

	// commandReadChunk is the stdout read size.
	commandReadChunk = 32 * 1024

	// JournalTargetAll is the journal pseudo-target meaning "no unit
	// filter".
	JournalTargetAll = "all"
)

// CommandCollector runs exactly two allowlisted read-only external
// commands: the journal query and the container log query. Arguments
// are always passed as a vector — nothing is ever concatenated into a
// command line or handed to a shell, so shell injection is impossible
// regardless of input content.
//
// Commands run in their own process group and are force-killed (no
// graceful-termination trust) on timeout or byte-cap overflow.
type CommandCollector struct {
	// JournalBinary is the journal query program. Default "journalctl".
	JournalBinary string

	// ContainerBinary is the container runtime CLI. Default "docker".
	ContainerBinary string

	// Timeout is the wall-clock deadline per command, independent of
	// I/O activity. Default DefaultCommandTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps accumulated stdout. Default
	// DefaultMaxCommandBytes.
	MaxOutputBytes int64

	// Clock supplies "now" for --since computation.
	Clock clock.Clock

	// Logger receives per-command debug records. Optional.
	Logger *slog.Logger
}

// Journal collects recent journal lines for a unit, or for the whole
// journal when unit is JournalTargetAll.
func (collector *CommandCollector) Journal(ctx context.Context, unit string, hours float64, maxLines int) (string, error) {
	if err := ValidateTarget(unit); err != nil {
		return "", err
	}

	args := []string{
		"--no-pager",
		"-o", "short-iso",
		"-n", strconv.Itoa(maxLines),
		"--since", collector.since(hours).Format("2006-01-02 15:04:05"),
	}
	if unit != JournalTargetAll {
		args = append(args, "-u", unit)
	}

	return collector.run(ctx, collector.journalBinary(), args)
}

// Container collects recent log lines for a named container. The
// --since bound is an absolute timestamp computed from hours, so the
// time base does not drift with collector invocation latency.
func (collector *CommandCollector) Container(ctx context.Context, name string, hours float64, maxLines int) (string, error) {
	if err := ValidateTarget(name); err != nil {
		return "", err
	}

	args := []string{
		"logs",
		"--since", collector.since(hours).UTC().Format(time.RFC3339),
		"--tail", strconv.Itoa(maxLines),
		name,
	}

	return collector.run(ctx, collector.containerBinary(), args)
}

// run spawns the program with the argument vector and accumulates
// stdout under the byte cap. The contract is synchronous: success or a
// typed error, never a hang.
func (collector *CommandCollector) run(ctx context.Context, program string, args []string) (string, error) {
	timeout := collector.Timeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	maxBytes := collector.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxCommandBytes
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(ctx, program, args...)

	// Run the command in its own process group so the kill reaches
	// any children it spawned, not just the direct process.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	command.Cancel = func() error {
		return unix.Kill(-command.Process.Pid, unix.SIGKILL)
	}
	// If the kill somehow leaves the pipes open, stop waiting on them.
	command.WaitDelay = 2 * time.Second

	stderrTail := &tailBuffer{limit: stderrTailBytes}
	command.Stderr = stderrTail

	stdout, err := command.StdoutPipe()
	if err != nil {
		return "", wardenerr.Internal("allocating stdout pipe", err)
	}

	if collector.Logger != nil {
		collector.Logger.Debug("running collection command",
			"program", program,
			"args", args,
		)
	}

	if err := command.Start(); err != nil {
		return "", wardenerr.Internal(fmt.Sprintf("spawning %s", program), err)
	}

	var (
		output   []byte
		overflow bool
		chunk    = make([]byte, commandReadChunk)
	)
	for {
		n, readErr := stdout.Read(chunk)
		if n > 0 {
			output = append(output, chunk[:n]...)
			if int64(len(output)) > maxBytes {
				overflow = true
				// Force-kill immediately: the cap bounds peak memory,
				// so nothing further may be accumulated.
				_ = command.Cancel()
				break
			}
		}
		if readErr != nil {
			break
		}
	}

	waitErr := command.Wait()

	switch {
	case overflow:
		return "", wardenerr.PayloadTooLarge("%s output exceeded %d bytes", program, maxBytes)

	case ctx.Err() == context.DeadlineExceeded:
		return "", wardenerr.Timeout("%s did not complete within %s", program, timeout)

	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return "", wardenerr.Upstream(
				fmt.Sprintf("%s exited %d: %s", program, exitErr.ExitCode(), stderrTail.String()), nil)
		}
		return "", wardenerr.Internal(fmt.Sprintf("waiting for %s", program), waitErr)
	}

	return string(output), nil
}

// since computes the absolute lower time bound for a look-back window.
func (collector *CommandCollector) since(hours float64) time.Time {
	now := time.Now()
	if collector.Clock != nil {
		now = collector.Clock.Now()
	}
	return now.Add(-time.Duration(hours * float64(time.Hour)))
}

func (collector *CommandCollector) journalBinary() string {
	if collector.JournalBinary != "" {
		return collector.JournalBinary
	}
	return "journalctl"
}

func (collector *CommandCollector) containerBinary() string {
	if collector.ContainerBinary != "" {
		return collector.ContainerBinary
	}
	return "docker"
}

// tailBuffer keeps only the last limit bytes written to it. Used for
// stderr so a chatty failing command cannot grow memory while still
// leaving a useful diagnostic tail.
type tailBuffer struct {
	limit int
	data  []byte
}

func (buffer *tailBuffer) Write(p []byte) (int, error) {
	buffer.data = append(buffer.data, p...)
	if len(buffer.data) > buffer.limit {
		buffer.data = buffer.data[len(buffer.data)-buffer.limit:]
	}
	return len(p), nil
}

func (buffer *tailBuffer) String() string { return string(buffer.data) }
