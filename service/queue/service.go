package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jwcompdev/termkit/internal/clock"
	"github.com/jwcompdev/termkit/progress"
	"github.com/jwcompdev/termkit/tracing"
	"go.uber.org/zap"
)

// Task is a unit of work executed when its ticket is served.
type Task func(ctx context.Context) error

// Service is a sequenced task queue
type Service struct {
	name     string
	config   Config
	logger   *zap.Logger
	progress *progress.Progress
	metrics  Metrics

	mux     sync.Mutex
	cond    *sync.Cond
	issued  Ticket
	serving Ticket
	skipped map[Ticket]bool
	aborted error

	workers sync.WaitGroup
}

// New creates a queue serving ticket 1 first
func New(options ...Option) *Service {
	s := &Service{
		name:    "default",
		config:  DefaultConfig(),
		logger:  zap.NewNop(),
		serving: 1,
		skipped: make(map[Ticket]bool),
	}
	s.cond = sync.NewCond(&s.mux)
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Name returns the queue name
func (s *Service) Name() string { return s.name }

// Enqueue allocates the next ticket for task. Inline tasks wait for their turn
// and run before Enqueue returns; the task error is then available from the
// returned handle. Threaded tasks run on a new goroutine. The returned error
// only reports enqueue failures.
func (s *Service) Enqueue(ctx context.Context, task Task, dispatch Dispatch) (*Handle, error) {
	if task == nil {
		return nil, fmt.Errorf("%w: task was nil", ErrInvalidTask)
	}
	if dispatch == nil {
		return nil, fmt.Errorf("%w: dispatch was nil", ErrInvalidTask)
	}
	threaded := dispatch()

	s.mux.Lock()
	if s.aborted != nil {
		err := s.aborted
		s.mux.Unlock()
		return nil, err
	}
	s.issued++
	ticket := s.issued
	s.mux.Unlock()
	s.progress.Update(progress.Delta{Issued: 1, Waiting: 1})

	handle := newHandle(ticket)
	if !threaded {
		handle.finish(s.execute(ctx, ticket, task))
		return handle, nil
	}
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		handle.finish(s.execute(ctx, ticket, task))
	}()
	return handle, nil
}

// Submit enqueues task inline and returns its error.
func (s *Service) Submit(ctx context.Context, task Task) error {
	handle, err := s.Enqueue(ctx, task, Inline)
	if err != nil {
		return err
	}
	return handle.Err()
}

// Wrap returns a function enqueuing task with dispatch on every call.
func (s *Service) Wrap(task Task, dispatch Dispatch) func(ctx context.Context) (*Handle, error) {
	return func(ctx context.Context) (*Handle, error) {
		return s.Enqueue(ctx, task, dispatch)
	}
}

// Wait blocks until every ticket issued before the call has been served, the
// queue aborted, or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	target := s.issued
	stop := s.wakeOnDone(ctx)
	defer stop()
	for s.serving <= target && s.aborted == nil && ctx.Err() == nil {
		s.cond.Wait()
	}
	if s.serving > target {
		return nil
	}
	if s.aborted != nil {
		return s.aborted
	}
	return ctx.Err()
}

// Close waits for all threaded workers to exit.
func (s *Service) Close() {
	s.workers.Wait()
}

// Issued returns the last ticket handed out, 0 when none was.
func (s *Service) Issued() Ticket {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.issued
}

// Serving returns the ticket currently allowed to run.
func (s *Service) Serving() Ticket {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.serving
}

// Aborted returns the abort cause under HaltOnFailure, nil otherwise.
func (s *Service) Aborted() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.aborted
}

func (s *Service) execute(ctx context.Context, ticket Ticket, task Task) (err error) {
	logger := s.logger.With(zap.String("queue", s.name), zap.Uint64("ticket", uint64(ticket)))
	logger.Debug("task starting")
	queued := clock.Now()
	if err = s.await(ctx, ticket, logger); err != nil {
		s.progress.Update(progress.Delta{Waiting: -1, Skipped: 1})
		logger.Debug("task skipped", zap.Error(err))
		return err
	}
	wait := clock.Since(queued)
	s.progress.Update(progress.Delta{Waiting: -1, Running: 1})

	ctx, span := tracing.StartSpan(ctx, "queue.task "+s.name, tracing.KindInternal)
	span.WithAttributes(map[string]string{"queue.name": s.name, "queue.ticket": strconv.FormatUint(uint64(ticket), 10)})
	logger.Debug("calling task")
	started := clock.Now()
	err = s.invoke(ctx, task)
	run := clock.Since(started)
	tracing.EndSpan(span, err)
	if err != nil {
		logger.Debug("task failed", zap.Error(err))
		s.progress.Update(progress.Delta{Running: -1, Failed: 1})
	} else {
		logger.Debug("task complete")
		s.progress.Update(progress.Delta{Running: -1, Completed: 1})
	}
	if s.metrics != nil {
		s.metrics.ObserveTask(s.name, wait, run, err)
	}
	if s.config.GracePeriod > 0 {
		time.Sleep(s.config.GracePeriod)
	}
	s.release(ticket, err)
	return err
}

func (s *Service) invoke(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return task(ctx)
}

// await blocks until ticket is served. A waiter whose ctx ends gives up its
// turn: the ticket is released immediately when already current, otherwise it
// is skipped once reached.
func (s *Service) await(ctx context.Context, ticket Ticket, logger *zap.Logger) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.serving != ticket && s.aborted == nil {
		logger.Debug("task waiting in queue", zap.Uint64("serving", uint64(s.serving)))
	}
	stop := s.wakeOnDone(ctx)
	defer stop()
	for s.serving != ticket && s.aborted == nil && ctx.Err() == nil {
		s.cond.Wait()
	}
	if s.aborted != nil {
		return s.aborted
	}
	if err := ctx.Err(); err != nil {
		if s.serving == ticket {
			s.advance(ticket)
		} else {
			s.skipped[ticket] = true
		}
		return err
	}
	return nil
}

func (s *Service) release(ticket Ticket, err error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if err != nil && s.config.halts() && s.aborted == nil {
		s.aborted = fmt.Errorf("%w: ticket %d failed: %v", ErrAborted, ticket, err)
	}
	s.advance(ticket)
}

// advance serves the ticket after current, skipping abandoned tickets. The
// caller holds s.mux.
func (s *Service) advance(current Ticket) {
	s.serving = current + 1
	for s.skipped[s.serving] {
		delete(s.skipped, s.serving)
		s.serving++
	}
	s.cond.Broadcast()
}

// wakeOnDone broadcasts on the condition when ctx ends so waiters re-check it.
func (s *Service) wakeOnDone(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		s.mux.Lock()
		s.cond.Broadcast()
		s.mux.Unlock()
	})
}
