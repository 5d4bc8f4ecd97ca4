package history

import (
	"fmt"
	"strings"
	"time"
)

// Record describes one executed command.
type Record struct {
	ID        int           `json:"id" yaml:"id"`
	Command   string        `json:"command" yaml:"command"`
	Directory string        `json:"directory" yaml:"directory"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	ExitCode  int           `json:"exitCode" yaml:"exitCode"`
	Sudo      bool          `json:"sudo,omitempty" yaml:"sudo,omitempty"`
	Remote    bool          `json:"remote,omitempty" yaml:"remote,omitempty"`
	StartedAt time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// NewRecord creates an unsaved record; Sudo is derived from the command.
func NewRecord(command, directory, output string, exitCode int) Record {
	return Record{
		Command:   command,
		Directory: directory,
		Output:    output,
		ExitCode:  exitCode,
		Sudo:      IsSudo(command),
	}
}

// Succeeded reports a zero exit code.
func (r *Record) Succeeded() bool {
	return r.ExitCode == 0
}

func (r *Record) String() string {
	return fmt.Sprintf("(id=%d, command=%v, directory=%q, sudo=%v, exitCode=%d)", r.ID, r.Command, r.Directory, r.Sudo, r.ExitCode)
}

// IsSudo reports whether command runs through sudo.
func IsSudo(command string) bool {
	return strings.HasPrefix(strings.TrimSpace(command), "sudo ")
}
