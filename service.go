package termkit

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/jwcompdev/termkit/metrics"
	"github.com/jwcompdev/termkit/policy"
	"github.com/jwcompdev/termkit/progress"
	"github.com/jwcompdev/termkit/service/event"
	"github.com/jwcompdev/termkit/service/history"
	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/queue"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/shell/gosh"
	"github.com/jwcompdev/termkit/service/shell/local"
	"github.com/jwcompdev/termkit/service/shell/ssh"
	"github.com/jwcompdev/termkit/service/terminal"
	"go.uber.org/zap"
)

// ConnectionChange is published under event.Connection.
type ConnectionChange struct {
	Connected bool   `json:"connected"`
	Remote    bool   `json:"remote"`
	Host      string `json:"host,omitempty"`
}

// Service runs terminal commands on one session, in submission order.
type Service struct {
	config     *Config
	logger     *zap.Logger
	sink       output.Sink
	dialer     shell.Dialer
	events     *event.Service
	metrics    *metrics.Collector
	policy     *policy.Policy
	onProgress func(progress.Progress)

	session  *terminal.Session
	queue    *queue.Service
	progress *progress.Progress
	dispatch queue.Dispatch
	threaded atomic.Bool

	// events are only published while a listener drains them
	commandListener    atomic.Bool
	connectionListener atomic.Bool
}

// New creates a service; the session stays disconnected until Connect or a
// command run with reconnect.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return &terminal.ConfigError{Err: err}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.events == nil {
		s.events = event.New(event.WithLogger(s.logger))
	}
	if s.policy == nil {
		s.policy = policy.FromConfig(s.config.Policy)
	}
	if s.dialer == nil {
		s.dialer = s.newDialer()
	}
	s.threaded.Store(s.config.UseThreadedWorker)
	s.dispatch, _ = queue.Decide("IsThreadedWorkerEnabled", s.IsThreadedWorkerEnabled)

	s.progress = progress.New("terminal", s.onProgress)
	queueOptions := []queue.Option{
		queue.WithConfig(s.config.Queue),
		queue.WithName("terminal"),
		queue.WithLogger(s.logger),
		queue.WithProgress(s.progress),
	}
	sessionOptions := []terminal.Option{
		terminal.WithLogger(s.logger),
		terminal.WithSink(s.sink),
		terminal.WithTimeout(s.config.Timeout),
		terminal.WithDirectory(s.config.Directory),
		terminal.WithPolicy(s.policy),
		terminal.WithConnectionMessages(s.config.PrintSSHConnectionMsgs, s.config.PrintSSHLoginSuccess),
		terminal.WithOutputSettings(output.Settings{
			PrintCommand:         s.config.PrintCommand,
			PrintPrompt:          s.config.PrintPrompt,
			PrintExitCode:        s.config.PrintExitCode,
			WaitForLocks:         s.config.WaitForLocks,
			RaiseErrorOnLockWait: s.config.RaiseErrorOnLockWait,
		}),
		terminal.WithConnectionListener(s.publishConnection),
	}
	if s.metrics != nil {
		queueOptions = append(queueOptions, queue.WithMetrics(s.metrics))
		sessionOptions = append(sessionOptions, terminal.WithMetrics(s.metrics))
	}
	s.queue = queue.New(queueOptions...)
	var err error
	if s.session, err = terminal.New(s.dialer, sessionOptions...); err != nil {
		return err
	}
	s.session.History().OnAdd(s.publishCommand)
	return nil
}

func (s *Service) newDialer() shell.Dialer {
	if strings.EqualFold(s.config.Driver, DriverGosh) {
		options := []gosh.Option{gosh.WithEnvironment(s.config.Environment)}
		if s.config.RemoteSSH {
			options = append(options, gosh.WithSSH(s.config.SSHConfig()))
		}
		return gosh.New(options...)
	}
	if s.config.RemoteSSH {
		return ssh.New(s.config.SSHConfig(), ssh.WithLogger(s.logger))
	}
	return local.New(local.WithEnvironment(s.config.Environment), local.WithLogger(s.logger))
}

// TaskQueue returns the queue sequencing every terminal operation.
func (s *Service) TaskQueue() *queue.Service { return s.queue }

// Session returns the terminal session.
func (s *Service) Session() *terminal.Session { return s.session }

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// History returns the command history.
func (s *Service) History() *history.History { return s.session.History() }

// Progress returns a snapshot of the queue counters.
func (s *Service) Progress() progress.Progress { return s.progress.Snapshot() }

// IsThreadedWorkerEnabled reports whether commands run on worker goroutines.
func (s *Service) IsThreadedWorkerEnabled() bool { return s.threaded.Load() }

// EnableThreadedWorker makes later commands run on worker goroutines.
func (s *Service) EnableThreadedWorker() { s.threaded.Store(true) }

// DisableThreadedWorker makes later commands run on the caller goroutine.
func (s *Service) DisableThreadedWorker() { s.threaded.Store(false) }

// RunTerminalCommand queues command behind every earlier operation. With the
// threaded worker enabled it returns at once with a nil record; the result is
// delivered to the sink, the history and the command listener. Otherwise it
// waits for its turn, runs the command and returns the record.
func (s *Service) RunTerminalCommand(ctx context.Context, command string, opts ...terminal.RunOption) (*history.Record, error) {
	threaded := s.dispatch()
	var record *history.Record
	handle, err := s.queue.Enqueue(ctx, func(ctx context.Context) error {
		var rErr error
		record, rErr = s.session.Run(ctx, command, opts...)
		if rErr != nil && threaded {
			s.logger.Warn("threaded command failed", zap.String("command", command), zap.Error(rErr))
		}
		return rErr
	}, queue.Static(threaded))
	if err != nil {
		return nil, err
	}
	if threaded {
		return nil, nil
	}
	return record, handle.Err()
}

// Connect opens the session once every earlier operation completed.
func (s *Service) Connect(ctx context.Context) error {
	return s.queue.Submit(ctx, s.session.Connect)
}

// Disconnect closes the session once every earlier operation completed.
func (s *Service) Disconnect(ctx context.Context) error {
	return s.queue.Submit(ctx, s.session.Disconnect)
}

// ChangeDir changes the working directory once every earlier operation completed.
func (s *Service) ChangeDir(ctx context.Context, directory string) error {
	return s.queue.Submit(ctx, func(ctx context.Context) error {
		return s.session.ChangeDir(ctx, directory)
	})
}

// Prompt renders the current prompt.
func (s *Service) Prompt() string { return s.session.Prompt() }

// PrintPrompt writes the current prompt to the sink.
func (s *Service) PrintPrompt() { s.session.PrintPrompt() }

// Wait blocks until every queued operation completed.
func (s *Service) Wait(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// OnCommand sets the listener of command events; nil removes it.
func (s *Service) OnCommand(handler func(*event.Event[history.Record])) {
	event.SetListenerOf[history.Record](s.events, handler)
	s.commandListener.Store(handler != nil)
}

// OnConnection sets the listener of connection events; nil removes it.
func (s *Service) OnConnection(handler func(*event.Event[ConnectionChange])) {
	event.SetListenerOf[ConnectionChange](s.events, handler)
	s.connectionListener.Store(handler != nil)
}

// Close shuts the session down without waiting for queued commands, then
// waits for the workers to exit.
func (s *Service) Close(ctx context.Context) error {
	err := s.session.Close(ctx)
	s.queue.Close()
	s.commandListener.Store(false)
	s.connectionListener.Store(false)
	_ = s.events.Close()
	return err
}

func (s *Service) publishCommand(record history.Record) {
	if !s.commandListener.Load() {
		return
	}
	if err := event.Publish(context.Background(), s.events, event.NewCommand, s.session.ID(), record); err != nil {
		s.logger.Debug("failed to publish command event", zap.Error(err))
	}
}

func (s *Service) publishConnection(connected bool) {
	if !s.connectionListener.Load() {
		return
	}
	change := ConnectionChange{Connected: connected, Remote: s.dialer.Remote()}
	if hoster, ok := s.dialer.(shell.Hoster); ok {
		change.Host = hoster.Host()
	}
	if err := event.Publish(context.Background(), s.events, event.Connection, s.session.ID(), change); err != nil {
		s.logger.Debug("failed to publish connection event", zap.Error(err))
	}
}
