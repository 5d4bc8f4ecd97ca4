package queue

import "fmt"

// Dispatch decides, at enqueue time, whether a task runs on its own goroutine
// (true) or inline on the caller's goroutine (false).
type Dispatch func() bool

var (
	// Inline runs the task on the calling goroutine.
	Inline Dispatch = func() bool { return false }
	// Threaded runs the task on a new goroutine.
	Threaded Dispatch = func() bool { return true }
)

// Decide builds a Dispatch from a named boolean decider, for example a
// settings method reporting whether a threaded worker is enabled.
func Decide(name string, decider func() bool) (Dispatch, error) {
	if decider == nil {
		return nil, fmt.Errorf("%w: decider %q was nil", ErrInvalidTask, name)
	}
	return Dispatch(decider), nil
}

// Static returns Threaded when threaded is true, otherwise Inline.
func Static(threaded bool) Dispatch {
	if threaded {
		return Threaded
	}
	return Inline
}

// Holder is implemented by owners that expose their queue.
type Holder interface {
	TaskQueue() *Service
}

// From resolves the queue owned by holder.
func From(holder any) (*Service, error) {
	if holder == nil {
		return nil, fmt.Errorf("%w: holder was nil, expected a queue.Holder providing *queue.Service", ErrInvalidHolder)
	}
	h, ok := holder.(Holder)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not implement queue.Holder (TaskQueue() *queue.Service)", ErrInvalidHolder, holder)
	}
	ret := h.TaskQueue()
	if ret == nil {
		return nil, fmt.Errorf("%w: %T returned a nil *queue.Service", ErrInvalidHolder, holder)
	}
	return ret, nil
}
