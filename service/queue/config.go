package queue

import (
	"fmt"
	"strings"
	"time"
)

// FailurePolicy controls what happens to the queue when a task body fails.
type FailurePolicy string

const (
	// AdvanceOnFailure releases the failed task's ticket so later tasks still run.
	AdvanceOnFailure FailurePolicy = "advance"
	// HaltOnFailure aborts the queue: pending and future tasks fail with ErrAborted.
	HaltOnFailure FailurePolicy = "halt"
)

// Config represents queue configuration
type Config struct {
	// GracePeriod is slept after each task body before the next ticket is served
	GracePeriod time.Duration `json:"gracePeriod,omitempty" yaml:"gracePeriod,omitempty"`

	// FailurePolicy decides whether a failing task halts the queue
	FailurePolicy FailurePolicy `json:"failurePolicy,omitempty" yaml:"failurePolicy,omitempty"`
}

// DefaultConfig returns the default queue configuration
func DefaultConfig() Config {
	return Config{
		GracePeriod:   100 * time.Millisecond,
		FailurePolicy: AdvanceOnFailure,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c.GracePeriod < 0 {
		return fmt.Errorf("queue.gracePeriod must be >= 0, got %v", c.GracePeriod)
	}
	switch FailurePolicy(strings.ToLower(string(c.FailurePolicy))) {
	case "", AdvanceOnFailure, HaltOnFailure:
		return nil
	default:
		return fmt.Errorf("queue.failurePolicy %q is not one of %q, %q", c.FailurePolicy, AdvanceOnFailure, HaltOnFailure)
	}
}

func (c *Config) halts() bool {
	return FailurePolicy(strings.ToLower(string(c.FailurePolicy))) == HaltOnFailure
}
