package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jwcompdev/termkit/internal/clock"
	"github.com/jwcompdev/termkit/internal/idgen"
	"github.com/jwcompdev/termkit/policy"
	"github.com/jwcompdev/termkit/service/history"
	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/tracing"
	"go.uber.org/zap"
)

// Session runs commands on one local or remote shell and records them.
type Session struct {
	id     string
	dialer shell.Dialer
	remote bool

	logger            *zap.Logger
	sink              output.Sink
	writer            *output.Writer
	history           *history.History
	policy            *policy.Policy
	metrics           Metrics
	onConnection      func(connected bool)
	timeout           time.Duration
	settings          output.Settings
	printConnection   bool
	printLoginSuccess bool
	directory         string

	// ops serializes connection changes and commands
	ops sync.Mutex

	mux      sync.RWMutex
	shell    shell.Shell
	cwd      string
	home     string
	hostname string
	user     string
	closing  bool
}

// New creates a disconnected session; the mode follows the dialer.
func New(dialer shell.Dialer, opts ...Option) (*Session, error) {
	if dialer == nil {
		return nil, &ConfigError{Field: "dialer", Err: errors.New("was nil")}
	}
	s := &Session{
		id:      idgen.Short(),
		dialer:  dialer,
		remote:  dialer.Remote(),
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = history.New()
	}
	s.writer = output.NewWriter(s.sink, s.remote)
	s.logger = s.logger.With(zap.String("session", s.id), zap.Bool("remote", s.remote))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Remote reports whether the session runs on another host.
func (s *Session) Remote() bool { return s.remote }

// History returns the command history.
func (s *Session) History() *history.History { return s.history }

// SetSink replaces the output sink.
func (s *Session) SetSink(sink output.Sink) { s.writer.SetSink(sink) }

// Connected reports whether the transport is open.
func (s *Session) Connected() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.connectedLocked()
}

// CurrentDir returns the last known working directory.
func (s *Session) CurrentDir() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.cwd
}

// HomeDir returns the home directory of the logged in user.
func (s *Session) HomeDir() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.home
}

// Hostname returns the hostname reported by the shell.
func (s *Session) Hostname() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.hostname
}

// User returns the logged in user.
func (s *Session) User() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.user
}

// Connect opens the transport and reads the login state. Connecting an open
// session is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.Connected() {
		return nil
	}
	return s.connect(ctx)
}

// Disconnect closes the transport.
func (s *Session) Disconnect(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.disconnect(ctx)
}

// Close disconnects for good. The transport is closed right away, so a
// command still running ends with the transport; that end is not an error.
func (s *Session) Close(ctx context.Context) error {
	s.mux.Lock()
	s.closing = true
	sh := s.shell
	s.mux.Unlock()
	if sh != nil {
		if err := sh.Close(); err != nil {
			s.logger.Debug("transport close failed", zap.Error(err))
		}
	}
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.disconnect(ctx)
}

// ChangeDir changes the working directory of the shell.
func (s *Session) ChangeDir(ctx context.Context, directory string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	sh, err := s.current()
	if err != nil {
		return err
	}
	return s.changeDir(ctx, sh, directory)
}

// Run executes command and appends it to the history.
//
// A closed connection is reopened with WithReconnect (and left open) or
// WithTempConnection (and closed afterwards); otherwise ErrConnectionClosed is
// returned. A nil record with a nil error means the transport ended during
// shutdown.
func (s *Session) Run(ctx context.Context, command string, opts ...RunOption) (*history.Record, error) {
	if strings.TrimSpace(command) == "" {
		return nil, &ConfigError{Field: "command", Err: errors.New("was empty")}
	}
	options := &runOptions{timeout: s.timeout, settings: s.settings}
	for _, opt := range opts {
		opt(options)
	}
	if options.sudo && !history.IsSudo(command) {
		command = "sudo " + command
	}
	p := s.policy
	if fromCtx := policy.FromContext(ctx); fromCtx != nil {
		p = fromCtx
	}
	if !p.Approve(ctx, command) {
		return nil, fmt.Errorf("%w: %v", ErrCommandBlocked, command)
	}

	s.ops.Lock()
	defer s.ops.Unlock()
	sh, err := s.current()
	if err != nil {
		switch {
		case options.reconnect:
			s.logger.Debug("reconnecting", zap.String("command", command))
		case options.temporary:
			s.logger.Debug("opening temporary connection", zap.String("command", command))
		default:
			return nil, err
		}
		if err = s.connect(ctx); err != nil {
			return nil, err
		}
		if sh, err = s.current(); err != nil {
			return nil, err
		}
		if !options.reconnect {
			defer func() {
				if dErr := s.disconnect(ctx); dErr != nil {
					s.logger.Debug("temporary connection close failed", zap.Error(dErr))
				}
			}()
		}
	}
	return s.run(ctx, sh, command, options)
}

// Prompt renders the prompt of the shell, user@host:cwd followed by $ or #
// for root. The home directory is shown as ~.
func (s *Session) Prompt() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.promptLocked()
}

// PrintPrompt writes the prompt to the sink.
func (s *Session) PrintPrompt() {
	s.writer.WriteBypass(output.KindPrompt, s.Prompt())
}

func (s *Session) promptLocked() string {
	cwd := s.cwd
	switch {
	case s.home != "" && cwd == s.home:
		cwd = "~"
	case s.home != "" && s.home != "/" && strings.HasPrefix(cwd, s.home+"/"):
		cwd = "~" + cwd[len(s.home):]
	}
	suffix := "$"
	if s.user == "root" {
		suffix = "#"
	}
	return s.user + "@" + s.hostname + ":" + cwd + suffix
}

func (s *Session) run(ctx context.Context, sh shell.Shell, command string, options *runOptions) (*history.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "terminal.run", tracing.KindClient)
	span.WithAttributes(map[string]string{"command": command, "session": s.id}).WithBool("remote", s.remote)
	logger := s.logger.With(zap.String("command", command))
	logger.Debug("running command")

	directory := s.CurrentDir()
	// the command is written explicitly, an echoed copy is always filtered
	settings := options.settings
	settings.PrintCommand = false
	s.writer.Begin(command, settings)
	defer s.writer.End()
	if options.settings.PrintCommand {
		s.writer.WriteBypass(output.KindCommand, command)
	}

	runCtx, cancel := withTimeout(ctx, options.timeout)
	started := clock.Now()
	result, err := sh.Run(runCtx, command, s.writer.Line)
	cancel()
	elapsed := clock.Since(started)
	if err == nil {
		err = s.writer.Flush()
	}
	if err != nil {
		if errors.Is(err, shell.ErrClosed) && s.isClosing() {
			logger.Debug("transport closed during shutdown", zap.Error(err))
			span.Event("shutdown")
			tracing.EndSpan(span, nil)
			return nil, nil
		}
		s.observe(-1, elapsed, err)
		tracing.EndSpan(span, err)
		logger.Debug("command failed", zap.Error(err))
		if errors.Is(err, shell.ErrClosed) {
			return nil, &ConnectionError{Op: "run " + command, Err: err}
		}
		return nil, fmt.Errorf("failed to run %v: %w", command, err)
	}

	record := history.NewRecord(command, directory, history.Clean(result.Output, command, s.Prompt()), result.Status)
	record.Remote = s.remote
	record.StartedAt = started
	record.Duration = elapsed
	record.ID = s.history.Add(record)
	s.observe(result.Status, elapsed, nil)
	span.WithInt("exit.code", result.Status)
	tracing.EndSpan(span, nil)
	logger.Debug("command complete", zap.Int("exitCode", result.Status), zap.Duration("elapsed", elapsed))

	if cwd, qErr := s.query(ctx, sh, "pwd"); qErr == nil && cwd != "" {
		s.mux.Lock()
		s.cwd = cwd
		s.mux.Unlock()
	} else if qErr != nil {
		logger.Debug("failed to refresh working directory", zap.Error(qErr))
	}
	if options.settings.PrintExitCode {
		s.writer.WriteBypass(output.KindExitCode, strconv.Itoa(result.Status))
	}
	if options.settings.PrintPrompt {
		s.PrintPrompt()
	}
	return &record, nil
}

func (s *Session) connect(ctx context.Context) error {
	if validator, ok := s.dialer.(shell.Validator); ok {
		if err := validator.Validate(); err != nil {
			return &ConfigError{Field: "login", Err: err}
		}
	}
	host := ""
	if hoster, ok := s.dialer.(shell.Hoster); ok {
		host = hoster.Host()
	}
	s.logger.Debug("connecting", zap.String("host", host))
	if s.remote && s.printConnection {
		s.writer.WriteBypass(output.KindConnection, fmt.Sprintf("SSH Connecting to %v!", host))
	}
	sh, err := s.dialer.Dial(ctx)
	if err != nil {
		return &ConnectionError{Op: "connect", Err: err}
	}

	state := map[string]string{}
	for _, query := range []string{"whoami", "hostname", "echo ~", "pwd"} {
		value, qErr := s.query(ctx, sh, query)
		if qErr != nil {
			_ = sh.Close()
			return &ConnectionError{Op: "read login state", Err: qErr}
		}
		state[query] = value
	}
	s.mux.Lock()
	s.shell = sh
	s.closing = false
	s.user = state["whoami"]
	s.hostname = state["hostname"]
	s.home = state["echo ~"]
	s.cwd = state["pwd"]
	s.mux.Unlock()
	s.writer.SetUser(state["whoami"])
	s.logger.Debug("login succeeded", zap.String("user", state["whoami"]), zap.String("hostname", state["hostname"]))
	if s.remote && s.printLoginSuccess {
		s.writer.WriteBypass(output.KindConnection, fmt.Sprintf("SSH Login with %v succeeded!", state["whoami"]))
	}

	if s.directory != "" {
		if err = s.changeDir(ctx, sh, s.directory); err != nil {
			return err
		}
	}
	if s.settings.PrintPrompt {
		s.PrintPrompt()
	}
	if s.onConnection != nil {
		s.onConnection(true)
	}
	return nil
}

func (s *Session) disconnect(_ context.Context) error {
	s.mux.Lock()
	sh := s.shell
	s.shell = nil
	s.mux.Unlock()
	if sh == nil {
		return nil
	}
	s.logger.Debug("disconnecting")
	err := sh.Close()
	if err == nil && !sh.Closed() {
		err = errors.New("transport still open after close")
	}
	if err != nil && !errors.Is(err, shell.ErrClosed) {
		return &ConnectionError{Op: "disconnect", Err: err}
	}
	if s.remote && s.printConnection {
		s.writer.WriteBypass(output.KindConnection, "SSH Disconnected!")
	}
	if s.onConnection != nil {
		s.onConnection(false)
	}
	return nil
}

func (s *Session) changeDir(ctx context.Context, sh shell.Shell, directory string) error {
	home := s.HomeDir()
	target := directory
	if home != "" && (target == "~" || strings.HasPrefix(target, "~/")) {
		target = home + target[1:]
	}
	runCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	result, err := sh.Run(runCtx, "cd "+quote(target), nil)
	if err != nil {
		return fmt.Errorf("failed to change directory to %v: %w", directory, err)
	}
	if result.Status != 0 {
		return fmt.Errorf("failed to change directory to %v: %v", directory, history.Clean(result.Output, "", ""))
	}
	cwd, err := s.query(ctx, sh, "pwd")
	if err != nil {
		return fmt.Errorf("failed to read directory after cd %v: %w", directory, err)
	}
	s.mux.Lock()
	s.cwd = cwd
	s.mux.Unlock()
	return nil
}

// query runs a status-less command and returns its last output line.
func (s *Session) query(ctx context.Context, sh shell.Shell, line string) (string, error) {
	runCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := sh.Exchange(runCtx, line)
	if err != nil {
		return "", err
	}
	lines := strings.Split(history.Clean(reply, line, ""), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

func (s *Session) current() (shell.Shell, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	if !s.connectedLocked() {
		return nil, ErrConnectionClosed
	}
	return s.shell, nil
}

func (s *Session) connectedLocked() bool {
	return s.shell != nil && !s.shell.Closed()
}

func (s *Session) isClosing() bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.closing
}

func (s *Session) observe(status int, elapsed time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.ObserveCommand(s.remote, status, elapsed, err)
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
