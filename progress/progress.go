package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the queue. Fields
// are signed and can be positive (increment) or negative (decrement).
type Delta struct {
	Issued    int
	Waiting   int
	Running   int
	Completed int
	Failed    int
	Skipped   int
}

// Progress keeps aggregated task counters for one queue. It is safe for
// concurrent use.
type Progress struct {
	Name      string
	StartedAt time.Time

	IssuedTasks    int
	WaitingTasks   int
	RunningTasks   int
	CompletedTasks int
	FailedTasks    int
	SkippedTasks   int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker. onChange may be nil.
func New(name string, onChange func(Progress)) *Progress {
	return &Progress{Name: name, StartedAt: time.Now(), onChange: onChange}
}

// Update applies the supplied delta. The onChange callback, if any, receives a
// copy of the updated counters outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.IssuedTasks += d.Issued
	p.WaitingTasks += d.Waiting
	p.RunningTasks += d.Running
	p.CompletedTasks += d.Completed
	p.FailedTasks += d.Failed
	p.SkippedTasks += d.Skipped
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// Done reports whether every issued task has finished one way or another.
func (s Progress) Done() bool {
	return s.IssuedTasks == s.CompletedTasks+s.FailedTasks+s.SkippedTasks
}

func (p *Progress) copy() Progress {
	return Progress{
		Name:           p.Name,
		StartedAt:      p.StartedAt,
		IssuedTasks:    p.IssuedTasks,
		WaitingTasks:   p.WaitingTasks,
		RunningTasks:   p.RunningTasks,
		CompletedTasks: p.CompletedTasks,
		FailedTasks:    p.FailedTasks,
		SkippedTasks:   p.SkippedTasks,
	}
}
