// Package tmux drives a tmux server and exposes its panes to the refresh
// engine.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoServer is returned when no tmux server is running on the socket.
var ErrNoServer = errors.New("no tmux server running")

// Executor runs tmux with the given arguments and returns trimmed stdout.
type Executor interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type realExecutor struct{}

func (realExecutor) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := stderr.String()
		if isNoServer(msg) {
			return "", fmt.Errorf("tmux %s: %w", strings.Join(args, " "), ErrNoServer)
		}
		return "", fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(msg))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func isNoServer(msg string) bool {
	return strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "No such file or directory") ||
		strings.Contains(msg, "error connecting to")
}

// Client handles tmux operations against one server.
type Client struct {
	exec   Executor
	Socket string // -L socket name, empty for the default server
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithExecutor replaces the tmux binary (tests).
func WithExecutor(e Executor) ClientOption {
	return func(c *Client) { c.exec = e }
}

// WithSocket selects a named server socket.
func WithSocket(name string) ClientOption {
	return func(c *Client) { c.Socket = name }
}

// NewClient creates a client for the default or the configured server.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{exec: realExecutor{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes a tmux command.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Socket != "" {
		args = append([]string{"-L", c.Socket}, args...)
	}
	return c.exec.Run(ctx, args...)
}

// RunSilent executes a tmux command ignoring its output.
func (c *Client) RunSilent(ctx context.Context, args ...string) error {
	_, err := c.Run(ctx, args...)
	return err
}

// IsInstalled checks if tmux is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}
