package queue

import "errors"

var (
	// ErrAborted is returned for every pending or new task once a task failed
	// under HaltOnFailure.
	ErrAborted = errors.New("queue: aborted")

	// ErrPanic wraps a panic recovered from a task body.
	ErrPanic = errors.New("queue: task panicked")

	// ErrInvalidTask is returned when a nil task or dispatch is enqueued.
	ErrInvalidTask = errors.New("queue: invalid task")

	// ErrInvalidHolder is returned by From when the owner does not provide a queue.
	ErrInvalidHolder = errors.New("queue: invalid holder")
)
