package queue

import "context"

// Ticket identifies a task's position in submission order, starting at 1.
type Ticket uint64

// Handle tracks one enqueued task.
type Handle struct {
	ticket Ticket
	done   chan struct{}
	err    error
}

func newHandle(ticket Ticket) *Handle {
	return &Handle{ticket: ticket, done: make(chan struct{})}
}

// Ticket returns the task ticket.
func (h *Handle) Ticket() Ticket { return h.ticket }

// Done is closed once the task finished, failed or was skipped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task error once Done is closed, nil before that.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finished or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}
