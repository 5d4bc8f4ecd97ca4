// Package gosh runs commands through github.com/viant/gosh, locally or over
// SSH. Exit statuses are taken from gosh.
package gosh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/shell/ssh"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	rssh "github.com/viant/gosh/runner/ssh"
)

const defaultTimeout = time.Minute

// Dialer opens gosh services.
type Dialer struct {
	ssh *ssh.Config
	env map[string]string
}

// Option configures a Dialer.
type Option func(d *Dialer)

// WithSSH runs commands on the host described by config.
func WithSSH(config *ssh.Config) Option {
	return func(d *Dialer) { d.ssh = config }
}

// WithEnvironment sets the environment of the runner.
func WithEnvironment(env map[string]string) Option {
	return func(d *Dialer) { d.env = env }
}

// New creates a gosh dialer, local unless WithSSH is used.
func New(opts ...Option) *Dialer {
	d := &Dialer{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Remote reports whether an SSH host was configured.
func (d *Dialer) Remote() bool { return d.ssh != nil }

// Host returns the SSH host, empty when local.
func (d *Dialer) Host() string {
	if d.ssh == nil {
		return ""
	}
	return d.ssh.Host
}

// Validate checks the SSH login settings when remote.
func (d *Dialer) Validate() error {
	if d.ssh == nil {
		return nil
	}
	return d.ssh.Validate()
}

// Dial starts a gosh service.
func (d *Dialer) Dial(ctx context.Context) (shell.Shell, error) {
	var options []runner.Option
	if len(d.env) > 0 {
		options = append(options, runner.WithEnvironment(d.env))
	}
	if d.ssh == nil {
		service, err := gosh.New(ctx, local.New(options...))
		if err != nil {
			return nil, fmt.Errorf("failed to start local gosh: %w", err)
		}
		return &Shell{service: service}, nil
	}
	if err := d.ssh.Validate(); err != nil {
		return nil, err
	}
	config, err := d.ssh.ClientConfig(ctx)
	if err != nil {
		return nil, err
	}
	service, err := gosh.New(ctx, rssh.New(d.ssh.Address(), config, options...))
	if err != nil {
		return nil, fmt.Errorf("failed to start gosh on %v: %w", d.ssh.Address(), err)
	}
	return &Shell{service: service}, nil
}

// Shell adapts a gosh service to shell.Shell.
type Shell struct {
	service *gosh.Service
	closed  atomic.Bool
}

// Run executes command with a timeout derived from the ctx deadline. Output
// lines are handed to listener once the command has completed.
func (s *Shell) Run(ctx context.Context, command string, listener shell.Listener) (*shell.Result, error) {
	if s.closed.Load() {
		return nil, shell.ErrClosed
	}
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, fmt.Errorf("%w: %v did not start", shell.ErrTimeout, command)
		}
	}
	started := time.Now()
	stdout, status, err := s.service.Run(ctx, command, runner.WithTimeout(int(timeout.Milliseconds())))
	if err != nil {
		if ctx.Err() != nil || time.Since(started) >= timeout {
			return nil, fmt.Errorf("%w: %v did not complete: %v", shell.ErrTimeout, command, err)
		}
		return nil, fmt.Errorf("failed to run %v: %w", command, err)
	}
	if listener != nil {
		for _, line := range output.SplitLines(stdout) {
			if line == "" {
				continue
			}
			if err = listener(line); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
	}
	return &shell.Result{Output: stdout, Status: status}, nil
}

// Exchange runs line and returns its output.
func (s *Shell) Exchange(ctx context.Context, line string) (string, error) {
	result, err := s.Run(ctx, line, nil)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// Close stops the gosh service.
func (s *Shell) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.service.Close()
}

// Closed reports whether Close was called.
func (s *Shell) Closed() bool {
	return s.closed.Load()
}

var _ shell.Dialer = (*Dialer)(nil)
var _ shell.Shell = (*Shell)(nil)
