package output

import "fmt"

// Kind classifies an output line.
type Kind string

const (
	KindCommand    Kind = "command"
	KindOutput     Kind = "output"
	KindPrompt     Kind = "prompt"
	KindExitCode   Kind = "exitCode"
	KindConnection Kind = "connection"
)

// Data is handed to the sink for every line produced by a session.
type Data struct {
	Remote  bool   `json:"remote"`
	Kind    Kind   `json:"kind"`
	Line    string `json:"line"`
	Command string `json:"command,omitempty"`
}

func (d *Data) String() string {
	return fmt.Sprintf("(remote=%v, kind=%v, line=%q, command=%q)", d.Remote, d.Kind, d.Line, d.Command)
}

// Sink consumes output lines.
type Sink func(data *Data)

// Discard is a sink ignoring every line.
func Discard(*Data) {}
