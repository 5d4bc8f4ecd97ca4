package terminal

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed is returned when a command needs a connection and
	// neither reconnecting nor a temporary connection was requested.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrCommandBlocked is returned when the command policy rejects a command.
	ErrCommandBlocked = errors.New("command blocked by policy")
)

// ConfigError reports missing or invalid settings.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration: %v: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnectionError reports a failure to open, use or close the transport.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to %v: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
