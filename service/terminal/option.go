package terminal

import (
	"time"

	"github.com/jwcompdev/termkit/policy"
	"github.com/jwcompdev/termkit/service/history"
	"github.com/jwcompdev/termkit/service/output"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every command unless overridden.
const DefaultTimeout = 30 * time.Second

// Metrics observes executed commands.
type Metrics interface {
	ObserveCommand(remote bool, status int, elapsed time.Duration, err error)
}

// Option configures a Session.
type Option func(s *Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithSink sets the output sink.
func WithSink(sink output.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithHistory shares a history between sessions.
func WithHistory(h *history.History) Option {
	return func(s *Session) { s.history = h }
}

// WithTimeout sets the default command timeout; zero or less disables it.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) { s.timeout = timeout }
}

// WithOutputSettings sets the default output settings.
func WithOutputSettings(settings output.Settings) Option {
	return func(s *Session) { s.settings = settings }
}

// WithConnectionMessages prints connect and disconnect messages, and the
// login success message, for remote sessions.
func WithConnectionMessages(connection, loginSuccess bool) Option {
	return func(s *Session) {
		s.printConnection = connection
		s.printLoginSuccess = loginSuccess
	}
}

// WithDirectory sets the directory entered after every login.
func WithDirectory(directory string) Option {
	return func(s *Session) { s.directory = directory }
}

// WithPolicy sets the command policy; a policy found in the run context wins.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// WithMetrics sets the command metrics observer.
func WithMetrics(metrics Metrics) Option {
	return func(s *Session) { s.metrics = metrics }
}

// WithConnectionListener is notified after every connect and disconnect.
func WithConnectionListener(listener func(connected bool)) Option {
	return func(s *Session) { s.onConnection = listener }
}

type runOptions struct {
	sudo      bool
	timeout   time.Duration
	settings  output.Settings
	reconnect bool
	temporary bool
}

// RunOption configures a single Run.
type RunOption func(o *runOptions)

// WithSudo prefixes the command with sudo unless it already is.
func WithSudo(sudo bool) RunOption {
	return func(o *runOptions) { o.sudo = sudo }
}

// WithCommandTimeout overrides the session timeout for one command.
func WithCommandTimeout(timeout time.Duration) RunOption {
	return func(o *runOptions) { o.timeout = timeout }
}

// WithPrintCommand writes the command to the sink before running it.
func WithPrintCommand(enabled bool) RunOption {
	return func(o *runOptions) { o.settings.PrintCommand = enabled }
}

// WithPrintPrompt writes the prompt to the sink after the command.
func WithPrintPrompt(enabled bool) RunOption {
	return func(o *runOptions) { o.settings.PrintPrompt = enabled }
}

// WithPrintExitCode writes the exit code to the sink after the command.
func WithPrintExitCode(enabled bool) RunOption {
	return func(o *runOptions) { o.settings.PrintExitCode = enabled }
}

// WithReconnect reopens a closed connection and leaves it open.
func WithReconnect(enabled bool) RunOption {
	return func(o *runOptions) { o.reconnect = enabled }
}

// WithTempConnection opens a closed connection for this command only.
func WithTempConnection(enabled bool) RunOption {
	return func(o *runOptions) { o.temporary = enabled }
}
