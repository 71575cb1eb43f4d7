// Package ffmpeg executes external transcoder invocations as subprocesses
// with structured result parsing. It is the only place the rest of the
// agent talks to the media tool.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	// errorTailLines is how many trailing diagnostic lines are surfaced
	// in a failed job's error message.
	errorTailLines = 5
)

// Result is the structured outcome of one transcoder invocation.
type Result struct {
	ExitCode   int           `json:"exit_code"`
	StderrTail string        `json:"stderr_tail,omitempty"` // last N bytes of stderr
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r Result) IsSuccess() bool { return r.ExitCode == 0 }

// ErrorTail returns the last few diagnostic lines for error messages.
func (r Result) ErrorTail() string {
	return TailLines(r.StderrTail, errorTailLines)
}

// ProgressFunc receives progress fractions in [0,1] parsed from the
// transcoder's diagnostic stream.
type ProgressFunc func(fraction float64)

// Executor is the transcoder execution contract: run-to-completion, and
// run-with-progress which additionally emits progress ticks.
type Executor interface {
	Run(ctx context.Context, args []string) Result
	RunWithProgress(ctx context.Context, args []string, totalDuration float64, onProgress ProgressFunc) Result
}

// Config holds the executor's configuration.
type Config struct {
	BinaryPath string        // path to ffmpeg binary; empty = resolve from PATH
	Timeout    time.Duration // per-invocation timeout; 0 = none
	Logger     *slog.Logger
}

// SubprocessExecutor is the production implementation of Executor.
type SubprocessExecutor struct {
	cfg    Config
	binary string // resolved ffmpeg path
}

// NewExecutor creates a SubprocessExecutor, resolving the ffmpeg binary.
func NewExecutor(cfg Config) (*SubprocessExecutor, error) {
	binary, err := resolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}

	cfg.Logger.Info("transcode executor initialised", "binary", binary, "timeout", cfg.Timeout)

	return &SubprocessExecutor{cfg: cfg, binary: binary}, nil
}

// Run executes one invocation with stdin closed and stdout discarded,
// collecting a bounded stderr tail.
func (e *SubprocessExecutor) Run(ctx context.Context, args []string) Result {
	return e.run(ctx, args, 0, nil)
}

// RunWithProgress additionally parses progress ticks from the stderr
// stream against the expected output duration in seconds.
func (e *SubprocessExecutor) RunWithProgress(ctx context.Context, args []string, totalDuration float64, onProgress ProgressFunc) Result {
	return e.run(ctx, args, totalDuration, onProgress)
}

func (e *SubprocessExecutor) run(ctx context.Context, args []string, totalDuration float64, onProgress ProgressFunc) Result {
	start := time.Now()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = nil
	cmd.Stdout = io.Discard

	var tail tailBuffer
	tail.limit = maxStderrBytes

	e.cfg.Logger.Info("executing transcoder", "args", args)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
	}
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1, StderrTail: fmt.Sprintf("failed to start transcoder: %v", err), Duration: time.Since(start)}
	}

	// Drain stderr incrementally: keep the diagnostic tail and, when
	// requested, turn time= stamps into progress ticks.
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	scanner.Split(scanCRLFLines)
	for scanner.Scan() {
		line := scanner.Text()
		tail.append(line)
		if onProgress != nil && totalDuration > 0 {
			if fraction, ok := ParseProgress(line, totalDuration); ok {
				onProgress(fraction)
			}
		}
	}

	err = cmd.Wait()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if exitCode != 0 {
		e.cfg.Logger.Warn("transcoder failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", TailLines(tail.String(), errorTailLines),
		)
	} else {
		e.cfg.Logger.Info("transcoder succeeded", "duration_ms", elapsed.Milliseconds())
	}

	return Result{
		ExitCode:   exitCode,
		StderrTail: tail.String(),
		Duration:   elapsed,
	}
}

// resolveBinary finds a usable ffmpeg binary.
func resolveBinary(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured ffmpeg %q not found", preferred)
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("no ffmpeg binary found on PATH")
}

// TailLines returns the last n non-empty lines of s.
func TailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// scanCRLFLines splits on both \n and \r, since the transcoder rewrites
// its stats line with bare carriage returns.
func scanCRLFLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps only the last `limit` bytes of appended lines.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) append(line string) {
	if line == "" {
		return
	}
	t.buf.WriteString(line)
	t.buf.WriteByte('\n')
	if t.buf.Len() > t.limit {
		b := t.buf.Bytes()
		trimmed := make([]byte, t.limit)
		copy(trimmed, b[len(b)-t.limit:])
		t.buf.Reset()
		t.buf.Write(trimmed)
	}
}

func (t *tailBuffer) String() string { return t.buf.String() }
