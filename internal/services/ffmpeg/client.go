package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"lacquer/internal/services"
)

// diagnosticTail bounds how much output an ExecError carries.
const diagnosticTail = 30

// Progress is one position update parsed from engine progress lines.
type Progress struct {
	Position time.Duration
	Raw      string
}

// Request describes one engine invocation. Args follow the standard flags
// the client prepends (-hide_banner, -nostdin, -y).
type Request struct {
	Args       []string
	OnProgress func(Progress)
}

// Result carries the collected diagnostic output of an invocation. Both
// process streams are merged in arrival order.
type Result struct {
	Diagnostics string
}

// ExecError reports a failed engine invocation with the arguments used and
// the tail of its diagnostic output.
type ExecError struct {
	Binary      string
	Args        []string
	Diagnostics string
	Err         error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Binary, strings.Join(e.Args, " "), e.Err)
}

func (e *ExecError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrEngine}
	}
	return []error{services.ErrEngine, e.Err}
}

// Option configures the client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an ffmpeg client using defaults.
func New(opts ...Option) *Client {
	client := &Client{binary: "ffmpeg", exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary reports the binary the client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// Execute runs one engine invocation to completion. A nonzero exit or spawn
// failure returns an ExecError; the collected diagnostics are returned in
// both cases so callers can parse or log them.
func (c *Client) Execute(ctx context.Context, req Request) (Result, error) {
	if len(req.Args) == 0 {
		return Result{}, errors.New("engine arguments required")
	}

	args := append([]string{"-hide_banner", "-nostdin", "-y"}, req.Args...)
	var mu sync.Mutex
	var buf strings.Builder
	// onLine runs concurrently from the stdout and stderr scanners.
	onLine := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if req.OnProgress != nil {
			if position, ok := parseProgressLine(line); ok {
				req.OnProgress(Progress{Position: position, Raw: line})
			}
		}
	}

	err := c.exec.Run(ctx, c.binary, args, onLine)
	result := Result{Diagnostics: buf.String()}
	if err != nil {
		return result, &ExecError{
			Binary:      c.binary,
			Args:        args,
			Diagnostics: tailLines(result.Diagnostics, diagnosticTail),
			Err:         err,
		}
	}
	return result, nil
}

// Inspect probes a media file and returns the diagnostic text describing
// its streams. The engine exits nonzero when asked to probe without an
// output target, so the exit status is ignored as long as output arrived.
func (c *Client) Inspect(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("input path required")
	}

	args := []string{"-hide_banner", "-i", path}
	var mu sync.Mutex
	var buf strings.Builder
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		mu.Lock()
		defer mu.Unlock()
		buf.WriteString(line)
		buf.WriteByte('\n')
	})
	diagnostics := buf.String()
	if err != nil && strings.TrimSpace(diagnostics) == "" {
		return "", &ExecError{Binary: c.binary, Args: args, Err: err}
	}
	return diagnostics, nil
}

var progressPattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseProgressLine extracts the playback position from an engine progress
// line. Lines without a well-formed time field (including time=N/A) report
// no progress.
func parseProgressLine(line string) (time.Duration, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	position := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return position, true
}

func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
