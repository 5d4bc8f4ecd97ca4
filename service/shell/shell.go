// Package shell defines the transport a terminal session runs commands on.
//
// A Shell is a single persistent shell process. Drivers live in sub packages:
// expect drives any interactive shell over its stdin/stdout, local and ssh
// dial a pseudo terminal for it, gosh delegates to github.com/viant/gosh.
package shell

import "context"

// Result is the raw outcome of one command.
type Result struct {
	Output string
	Status int
}

// Listener receives output lines while a command runs. A returned error
// aborts the command and closes the shell.
type Listener func(line string) error

// Shell runs commands on one persistent shell.
type Shell interface {
	// Run executes command and reports its raw output and exit status.
	Run(ctx context.Context, command string, listener Listener) (*Result, error)
	// Exchange submits line and returns what the shell printed, without
	// inquiring the exit status.
	Exchange(ctx context.Context, line string) (string, error)
	Close() error
	Closed() bool
}

// Dialer opens shells.
type Dialer interface {
	Dial(ctx context.Context) (Shell, error)
	// Remote reports whether dialed shells run on another host.
	Remote() bool
}

// Validator is implemented by dialers able to check their login settings
// before dialing.
type Validator interface {
	Validate() error
}

// Hoster is implemented by dialers of remote shells.
type Hoster interface {
	Host() string
}
