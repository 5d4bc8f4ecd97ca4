package output

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Settings control which lines reach the sink.
type Settings struct {
	PrintCommand         bool `json:"printCommand,omitempty" yaml:"printCommand,omitempty"`
	PrintPrompt          bool `json:"printPrompt,omitempty" yaml:"printPrompt,omitempty"`
	PrintExitCode        bool `json:"printExitCode,omitempty" yaml:"printExitCode,omitempty"`
	WaitForLocks         bool `json:"waitForLocks,omitempty" yaml:"waitForLocks,omitempty"`
	RaiseErrorOnLockWait bool `json:"raiseErrorOnLockWait,omitempty" yaml:"raiseErrorOnLockWait,omitempty"`
}

// Writer filters terminal lines and forwards them to a sink.
type Writer struct {
	mux      sync.Mutex
	sink     Sink
	remote   bool
	user     string
	command  string
	settings Settings
	lastLine string
	waiting  bool
	partial  string
}

// NewWriter creates a writer; a nil sink discards output.
func NewWriter(sink Sink, remote bool) *Writer {
	if sink == nil {
		sink = Discard
	}
	return &Writer{sink: sink, remote: remote}
}

// SetSink replaces the sink.
func (w *Writer) SetSink(sink Sink) {
	if sink == nil {
		sink = Discard
	}
	w.mux.Lock()
	w.sink = sink
	w.mux.Unlock()
}

// SetUser sets the user whose prompt lines are recognised.
func (w *Writer) SetUser(user string) {
	w.mux.Lock()
	w.user = user
	w.mux.Unlock()
}

// Begin scopes subsequent lines to command with the given settings.
func (w *Writer) Begin(command string, settings Settings) {
	w.mux.Lock()
	w.command = command
	w.settings = settings
	w.waiting = false
	w.partial = ""
	w.mux.Unlock()
}

// End clears the active command.
func (w *Writer) End() {
	w.Begin("", Settings{})
}

// LastLine returns the last line handed to the sink.
func (w *Writer) LastLine() string {
	w.mux.Lock()
	defer w.mux.Unlock()
	return w.lastLine
}

// WriteBypass forwards line to the sink without filtering.
func (w *Writer) WriteBypass(kind Kind, line string) {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.emit(kind, ansi.Strip(line))
}

// Write implements io.Writer. Complete lines are filtered as they arrive,
// a trailing partial line is held until the next write or Flush.
func (w *Writer) Write(p []byte) (int, error) {
	w.mux.Lock()
	text := w.partial + string(p)
	w.partial = ""
	if i := strings.LastIndexAny(text, "\r\n"); i < len(text)-1 {
		w.partial = text[i+1:]
		text = text[:i+1]
	}
	w.mux.Unlock()
	if text == "" {
		return len(p), nil
	}
	if err := w.Lines(strings.TrimRight(text, "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush filters any held partial line.
func (w *Writer) Flush() error {
	w.mux.Lock()
	text := w.partial
	w.partial = ""
	w.mux.Unlock()
	if text == "" {
		return nil
	}
	return w.Line(text)
}

// Lines filters every line of text. It stops at, and returns, the first
// permission or lock error.
func (w *Writer) Lines(text string) error {
	for _, line := range SplitLines(text) {
		if err := w.Line(line); err != nil {
			return err
		}
	}
	return nil
}

// Line filters a single line and forwards it when it passes the checks.
func (w *Writer) Line(line string) error {
	line = strings.Trim(ansi.Strip(line), "\r\n")
	w.mux.Lock()
	defer w.mux.Unlock()
	if IsNoise(line) {
		return nil
	}
	if w.command != "" && strings.TrimSpace(line) == w.command && !w.settings.PrintCommand {
		return nil
	}
	switch {
	case IsAptUpdate(line):
		w.emit(KindOutput, strings.Trim(strings.ReplaceAll(line, "\r", ""), " "))
	case IsPrompt(line, w.user):
		trimmed := strings.TrimSpace(line)
		if w.settings.PrintPrompt && strings.TrimSpace(w.lastLine) != trimmed && strings.TrimSpace(w.lastLine) != w.command {
			w.emit(KindPrompt, trimmed)
		}
	case IsNotSudo(line):
		w.emit(KindOutput, line)
		return fmt.Errorf("%w: %v", ErrPermission, line)
	case IsFileLocked(line):
		if w.settings.RaiseErrorOnLockWait {
			w.emit(KindOutput, line)
			return fmt.Errorf("%w: %v", ErrLockWait, line)
		}
		if w.settings.WaitForLocks && !w.waiting {
			w.waiting = true
			w.emit(KindOutput, line)
		}
	default:
		w.emit(KindOutput, line)
	}
	return nil
}

func (w *Writer) emit(kind Kind, line string) {
	w.lastLine = line
	w.sink(&Data{Remote: w.remote, Kind: kind, Line: line, Command: w.command})
}

// SplitLines splits terminal text on any of \r\n, \r\r, \n or \r.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
