package policy

import (
	"context"
	"strings"
)

// Execution modes.
const (
	ModeAsk  = "ask"  // ask before every command
	ModeAuto = "auto" // run automatically (default)
	ModeDeny = "deny" // block every command
)

// AskFunc is invoked when Mode==ask. Returning true approves the command.
// Implementations may mutate the policy, for example switching to ModeAuto
// after the first approval.
type AskFunc func(ctx context.Context, command string, p *Policy) bool

// Policy decides whether a command may run.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList and BlockList hold command prefixes matched on word boundaries.
//   - Ask is only used when Mode==ask.
//
// A nil *Policy allows everything.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
	Ask       AskFunc
}

// Config represents the serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates Mode, BlockList and AllowList for command. A leading
// "sudo " is ignored when matching.
func (p *Policy) IsAllowed(command string) bool {
	if p == nil {
		return true
	}
	if strings.EqualFold(p.Mode, ModeDeny) {
		return false
	}
	normalized := Normalize(command)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if matches(normalized, b) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if matches(normalized, a) {
			return true
		}
	}
	return false
}

// Approve combines IsAllowed with the ask callback.
func (p *Policy) Approve(ctx context.Context, command string) bool {
	if !p.IsAllowed(command) {
		return false
	}
	if p == nil || !strings.EqualFold(p.Mode, ModeAsk) {
		return true
	}
	if p.Ask == nil {
		return false
	}
	return p.Ask(ctx, command, p)
}

// Normalize lower-cases command, collapses white space and drops a sudo prefix.
func Normalize(command string) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) > 0 && fields[0] == "sudo" {
		fields = fields[1:]
	}
	return strings.Join(fields, " ")
}

func matches(command, prefix string) bool {
	prefix = Normalize(prefix)
	if prefix == "" {
		return false
	}
	if !strings.HasPrefix(command, prefix) {
		return false
	}
	return len(command) == len(prefix) || command[len(prefix)] == ' '
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy embedded in ctx, nil when absent.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
