// Package ssh dials a persistent login shell over SSH.
package ssh

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/shell/expect"
	"go.uber.org/zap"
	xssh "golang.org/x/crypto/ssh"
)

// Dialer opens SSH shells.
type Dialer struct {
	config *Config
	logger *zap.Logger
}

// Option configures a Dialer.
type Option func(d *Dialer)

// WithLogger sets the logger handed to dialed sessions.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dialer) { d.logger = logger }
}

// New creates a dialer for config.
func New(config *Config, opts ...Option) *Dialer {
	d := &Dialer{config: config, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Remote returns true.
func (d *Dialer) Remote() bool { return true }

// Host returns the configured host.
func (d *Dialer) Host() string {
	if d.config == nil {
		return ""
	}
	return d.config.Host
}

// Validate checks the login settings.
func (d *Dialer) Validate() error {
	if d.config == nil {
		return fmt.Errorf("ssh config was nil")
	}
	return d.config.Validate()
}

// Dial logs in and starts an interactive shell on a pseudo terminal.
func (d *Dialer) Dial(ctx context.Context) (shell.Shell, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	config, err := d.config.ClientConfig(ctx)
	if err != nil {
		return nil, err
	}
	address := d.config.Address()
	loginCtx, cancel := context.WithTimeout(ctx, d.config.Timeout())
	defer cancel()
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(loginCtx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %v: %w", address, err)
	}
	if deadline, ok := loginCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	clientConn, channels, requests, err := xssh.NewClientConn(conn, address, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to log in to %v: %w", address, err)
	}
	_ = conn.SetDeadline(time.Time{})
	client := xssh.NewClient(clientConn, channels, requests)

	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to open session on %v: %w", address, err)
	}
	modes := xssh.TerminalModes{
		xssh.ECHO:          0,
		xssh.TTY_OP_ISPEED: 14400,
		xssh.TTY_OP_OSPEED: 14400,
	}
	stdin, err := session.StdinPipe()
	if err == nil {
		var stdout io.Reader
		if stdout, err = session.StdoutPipe(); err == nil {
			if err = session.RequestPty("dumb", 80, 500, modes); err == nil {
				if err = session.Shell(); err == nil {
					// the prompt has to appear within the login timeout as well
					return d.start(loginCtx, stdin, stdout, session, client)
				}
			}
		}
	}
	_ = session.Close()
	_ = client.Close()
	return nil, fmt.Errorf("failed to start shell on %v: %w", address, err)
}

func (d *Dialer) start(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, session *xssh.Session, client *xssh.Client) (shell.Shell, error) {
	ret := expect.New(stdin, stdout, expect.WithLogger(d.logger), expect.WithCloser(func() error {
		_ = session.Close()
		return client.Close()
	}))
	if err := ret.Init(ctx); err != nil {
		_ = ret.Close()
		return nil, err
	}
	return ret, nil
}

var _ shell.Dialer = (*Dialer)(nil)
