package history

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/jwcompdev/termkit/service/output"
)

// Clean turns raw terminal output into the text kept in a record. It drops
// escape sequences, the echoed command, prompt lines and shell noise.
func Clean(raw, command, prompt string) string {
	command = strings.TrimSpace(command)
	prompt = strings.TrimSpace(prompt)
	var lines []string
	for _, line := range output.SplitLines(ansi.Strip(raw)) {
		trimmed := strings.TrimSpace(line)
		switch {
		case output.IsNoise(line):
			continue
		case command != "" && trimmed == command:
			continue
		case prompt != "" && strings.Contains(trimmed, prompt):
			continue
		case output.IsAptUpdate(line):
			line = strings.Trim(line, " ")
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}
