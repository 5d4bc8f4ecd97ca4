// Package envexpr expands ${env.NAME} references in configuration text.
package envexpr

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Expand replaces every ${env.NAME} in text with the value of NAME, empty
// when unset. References with an invalid name or without a closing brace are
// kept as written.
func Expand(text string) string {
	return ExpandWith(text, os.Getenv)
}

// ExpandWith expands references using lookup.
func ExpandWith(text string, lookup func(name string) string) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var b strings.Builder
	rest := text
	for {
		before, after, found := strings.Cut(rest, prefix)
		b.WriteString(before)
		if !found {
			break
		}
		name, tail, closed := strings.Cut(after, "}")
		switch {
		case !closed:
			b.WriteString(prefix + after)
			return b.String()
		case validName(name):
			b.WriteString(lookup(name))
			rest = tail
		default:
			// rescan after the prefix so nested references still expand
			b.WriteString(prefix)
			rest = after
		}
	}
	return b.String()
}

func validName(name string) bool {
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
