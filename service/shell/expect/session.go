// Package expect drives an interactive shell over its stdin and stdout.
//
// The session replaces the shell prompt with a marker and reads each reply up
// to the next rendered marker. Exit statuses are inquired with "echo $?".
package expect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jwcompdev/termkit/internal/idgen"
	"github.com/jwcompdev/termkit/service/shell"
	"go.uber.org/zap"
)

const (
	// MarkerPrefix starts every prompt marker; a per session nonce follows.
	MarkerPrefix = "[TERMKIT-"

	statusLine  = "echo $?"
	chunkBuffer = 64
)

// setupLine installs marker as the prompt. \$ renders as $ or # so the echoed
// setup line never matches the rendered marker.
func setupLine(marker string) string {
	return `stty -echo 2>/dev/null; unset PROMPT_COMMAND; PS1='` + marker + `\$ '; PS2=''`
}

// Session is an expect style shell.Shell.
type Session struct {
	in     io.WriteCloser
	out    io.Reader
	closer func() error
	logger *zap.Logger
	marker string
	prompt *regexp.Regexp

	mux     sync.Mutex
	pending string
	chunks  chan string
	readErr error
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
}

// Option configures a Session.
type Option func(s *Session)

// WithCloser sets a function releasing the underlying process, called once on Close.
func WithCloser(closer func() error) Option {
	return func(s *Session) { s.closer = closer }
}

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New creates a session writing to in and reading from out. Init has to be
// called before the first command.
func New(in io.WriteCloser, out io.Reader, opts ...Option) *Session {
	marker := MarkerPrefix + idgen.Short() + "]"
	s := &Session{
		in:     in,
		out:    out,
		marker: marker,
		prompt: regexp.MustCompile(regexp.QuoteMeta(marker) + `[$#] ?`),
		logger: zap.NewNop(),
		chunks: make(chan string, chunkBuffer),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.read()
	return s
}

// Init installs the prompt marker and waits for the shell to render it.
func (s *Session) Init(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, err := s.exchange(ctx, setupLine(s.marker), nil); err != nil {
		return fmt.Errorf("failed to initialise shell: %w", err)
	}
	return nil
}

// Run executes command, then inquires its exit status.
func (s *Session) Run(ctx context.Context, command string, listener shell.Listener) (*shell.Result, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	output, err := s.exchange(ctx, command, listener)
	if err != nil {
		return nil, err
	}
	reply, err := s.exchange(ctx, statusLine, nil)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(reply)
	if err != nil {
		return nil, err
	}
	return &shell.Result{Output: output, Status: status}, nil
}

// Marker returns the prompt marker of this session.
func (s *Session) Marker() string { return s.marker }

// Exchange submits line and returns the reply preceding the next prompt.
func (s *Session) Exchange(ctx context.Context, line string) (string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.exchange(ctx, line, nil)
}

// Closed reports whether the session was closed or its stream ended.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// Close asks the shell to exit and releases the process.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		_, _ = io.WriteString(s.in, "exit\n")
		err = s.in.Close()
		if s.closer != nil {
			if cErr := s.closer(); cErr != nil && err == nil {
				err = cErr
			}
		}
		close(s.done)
	})
	return err
}

func (s *Session) exchange(ctx context.Context, line string, listener shell.Listener) (string, error) {
	if s.closed.Load() {
		return "", shell.ErrClosed
	}
	s.logger.Debug("shell send", zap.String("line", line))
	if _, err := io.WriteString(s.in, line+"\n"); err != nil {
		s.closeQuietly()
		return "", fmt.Errorf("%w: %v", shell.ErrClosed, err)
	}
	streamed := 0
	for {
		if loc := s.prompt.FindStringIndex(s.pending); loc != nil {
			reply := s.pending[:loc[0]]
			s.pending = s.pending[loc[1]:]
			if listener != nil {
				if err := stream(reply, &streamed, true, listener); err != nil {
					s.closeQuietly()
					return "", err
				}
			}
			return reply, nil
		}
		if listener != nil {
			if err := stream(s.pending, &streamed, false, listener); err != nil {
				s.closeQuietly()
				return "", err
			}
		}
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				s.closed.Store(true)
				return "", fmt.Errorf("%w: %v", shell.ErrClosed, s.readErr)
			}
			s.pending += chunk
		case <-ctx.Done():
			// the reply position is unknown after a timeout
			s.closeQuietly()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %v did not complete", shell.ErrTimeout, line)
			}
			return "", ctx.Err()
		}
	}
}

func (s *Session) closeQuietly() {
	if err := s.Close(); err != nil {
		s.logger.Debug("shell close failed", zap.Error(err))
	}
}

func (s *Session) read() {
	defer close(s.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := s.out.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- string(buf[:n]):
			case <-s.done:
				s.readErr = io.EOF
				return
			}
		}
		if err != nil {
			s.readErr = err
			return
		}
	}
}

// stream hands complete lines of text past offset to listener. When final
// is set the trailing partial line is handed over too.
func stream(text string, offset *int, final bool, listener shell.Listener) error {
	for {
		rest := text[*offset:]
		i := strings.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		*offset += i + 1
		if err := listener(strings.TrimRight(rest[:i], "\r")); err != nil {
			return err
		}
	}
	if final && *offset < len(text) {
		rest := strings.TrimRight(text[*offset:], "\r\n ")
		*offset = len(text)
		if rest != "" {
			return listener(rest)
		}
	}
	return nil
}

func parseStatus(reply string) (int, error) {
	text := strings.TrimSpace(reply)
	if i := strings.LastIndexAny(text, "\r\n"); i >= 0 {
		text = strings.TrimSpace(text[i+1:])
	}
	status, err := strconv.Atoi(text)
	if err != nil {
		return 0, &shell.ParseError{Text: text, Err: err}
	}
	return status, nil
}

var _ shell.Shell = (*Session)(nil)
