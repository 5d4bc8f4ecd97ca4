package shell

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when the shell stream ended or the shell was closed.
	ErrClosed = errors.New("shell closed")

	// ErrTimeout is returned when a command did not complete before its deadline.
	ErrTimeout = errors.New("shell timeout")
)

// ParseError reports an exit status that is not an integer.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse exit status %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
