package output

import "strings"

// Line checks recognise well-known noise and error lines in terminal output.

// IsNotSudo reports an apt lock permission error caused by a missing sudo.
func IsNotSudo(line string) bool {
	return strings.Contains(line, "E: Could not open lock file") &&
		strings.Contains(line, "open (13: Permission denied)")
}

// IsFileLocked reports apt waiting for a lock held by another process.
func IsFileLocked(line string) bool {
	return strings.Contains(line, "Waiting for cache lock: Could not get lock") &&
		strings.Contains(line, "It is held by process")
}

// IsAptWarning reports the apt "unstable CLI" warning.
func IsAptWarning(line string) bool {
	return strings.Contains(line, "WARNING: apt does not have a stable CLI interface. Use with caution in scripts.")
}

// IsDebconfError reports debconf frontend noise from interactive installers.
func IsDebconfError(line string) bool {
	return strings.Contains(line, "debconf: unable to initialize frontend: Dialog") ||
		strings.Contains(line, "debconf: (Dialog frontend will not work on a dumb terminal") ||
		strings.Contains(line, "debconf: falling back to frontend: Readline")
}

// IsShellGarbage reports lines produced by prompt setup or password prompts.
func IsShellGarbage(line string) bool {
	return strings.Contains(line, "unset PROMPT_COMMAND") ||
		strings.Contains(line, "'s password:") ||
		strings.Contains(line, "PS1=")
}

// IsAptUpdate reports apt repository fetch lines.
func IsAptUpdate(line string) bool {
	if !strings.Contains(line, "http") {
		return false
	}
	return strings.Contains(line, "Hit:") || strings.Contains(line, "Get:") || strings.Contains(line, "Ign:")
}

// IsPrompt reports whether line is a rendered prompt of user.
func IsPrompt(line, user string) bool {
	trimmed := strings.TrimSpace(line)
	if user == "" || !strings.HasPrefix(trimmed, user+"@") {
		return false
	}
	return strings.HasSuffix(trimmed, "$") || strings.HasSuffix(trimmed, "#")
}

// IsNoise reports lines that never reach the sink or the history.
func IsNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed == "exit" || IsShellGarbage(line) || IsAptWarning(line) || IsDebconfError(line)
}
