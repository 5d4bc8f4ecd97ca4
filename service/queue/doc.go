// Package queue serialises task invocations so that they complete in the exact
// order they were enqueued, one at a time, whether each task runs inline on
// the caller's goroutine or on a goroutine of its own.
//
// Every Enqueue call draws the next ticket. A task body runs only when its
// ticket equals the ticket the queue is currently serving; once the body (and
// the configured grace period) completes, the next ticket is served. Waiters
// block on a condition variable rather than polling.
//
// A task must never enqueue inline onto the queue that is running it: the
// inner ticket can only be served after the outer task releases its own.
package queue
