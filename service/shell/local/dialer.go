// Package local dials a persistent bash on a pseudo terminal.
package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/shell/expect"
	"go.uber.org/zap"
)

const defaultShell = "/bin/bash"

// Dialer starts local shells.
type Dialer struct {
	shell  string
	args   []string
	env    map[string]string
	logger *zap.Logger
}

// Option configures a Dialer.
type Option func(d *Dialer)

// WithShell sets the shell binary and its arguments.
func WithShell(path string, args ...string) Option {
	return func(d *Dialer) {
		d.shell = path
		d.args = args
	}
}

// WithEnvironment adds variables to the shell environment.
func WithEnvironment(env map[string]string) Option {
	return func(d *Dialer) { d.env = env }
}

// WithLogger sets the logger handed to dialed sessions.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dialer) { d.logger = logger }
}

// New creates a local dialer running bash without rc files.
func New(opts ...Option) *Dialer {
	d := &Dialer{
		shell:  defaultShell,
		args:   []string{"--noprofile", "--norc", "--noediting"},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Remote returns false.
func (d *Dialer) Remote() bool { return false }

// Dial starts the shell and waits for its first prompt.
func (d *Dialer) Dial(ctx context.Context) (shell.Shell, error) {
	cmd := exec.Command(d.shell, d.args...)
	cmd.Env = append(os.Environ(), "TERM=dumb")
	for k, v := range d.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	tty, err := startPTY(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start %v: %w", d.shell, err)
	}
	session := expect.New(tty, tty, expect.WithLogger(d.logger), expect.WithCloser(func() error {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil
	}))
	if err = session.Init(ctx); err != nil {
		_ = session.Close()
		return nil, err
	}
	return session, nil
}

// startPTY runs cmd in a new session with the pty slave as its controlling
// terminal. Ctty is a descriptor number in the child, where the slave is stdin.
func startPTY(cmd *exec.Cmd) (*os.File, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tty.Close() }()
	_ = pty.Setsize(ptmx, &pty.Winsize{Cols: 500, Rows: 80})

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setctty = true
	cmd.SysProcAttr.Ctty = 0
	if err = cmd.Start(); err != nil {
		_ = ptmx.Close()
		return nil, err
	}
	return ptmx, nil
}

var _ shell.Dialer = (*Dialer)(nil)
