package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Invocation captures everything the queue driver needs from one worker run.
type Invocation struct {
	ExitCode int
	Stdout   string
	// StderrPath is a temp file holding the captured error stream. The
	// caller owns cleanup via Cleanup.
	StderrPath string
}

// Cleanup removes the temporary stderr capture file.
func (inv Invocation) Cleanup() {
	if inv.StderrPath != "" {
		_ = os.Remove(inv.StderrPath)
	}
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) (int, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client invokes the external worker process once per payload.
type Client struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    Executor
}

// New constructs a worker client.
func New(binary string, args []string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("worker binary required")
	}
	client := &Client{
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Process runs the worker with the payload's absolute path as its final
// argument, blocking until it exits. Stderr is streamed to a temp file so a
// noisy or crashing worker cannot exhaust memory; stdout is kept in memory
// for result parsing. A non-zero exit is not an error here: classification
// belongs to the driver.
func (c *Client) Process(ctx context.Context, payloadPath string) (Invocation, error) {
	stderrFile, err := os.CreateTemp("", "fmqueue-stderr-*.log")
	if err != nil {
		return Invocation{}, fmt.Errorf("create stderr capture: %w", err)
	}
	inv := Invocation{StderrPath: stderrFile.Name()}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	args := append(append([]string(nil), c.args...), payloadPath)
	exitCode, runErr := c.exec.Run(runCtx, c.binary, args, &stdout, stderrFile)

	closeErr := stderrFile.Close()
	inv.ExitCode = exitCode
	inv.Stdout = stdout.String()

	if runErr != nil {
		return inv, fmt.Errorf("invoke worker: %w", runErr)
	}
	if closeErr != nil {
		return inv, fmt.Errorf("close stderr capture: %w", closeErr)
	}
	return inv, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The process ran and exited non-zero; report the code, not an error.
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
