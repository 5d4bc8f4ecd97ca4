package termkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwcompdev/termkit/internal/envexpr"
	"github.com/jwcompdev/termkit/policy"
	"github.com/jwcompdev/termkit/service/queue"
	"github.com/jwcompdev/termkit/service/shell/ssh"
	"github.com/jwcompdev/termkit/service/terminal"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"
)

// Transport drivers.
const (
	DriverExpect = "expect"
	DriverGosh   = "gosh"
)

// Config is a serialisable representation of the toolkit configuration. It
// can be populated from YAML or JSON; DefaultConfig supplies the defaults of
// every field left out.
type Config struct {
	Directory              string            `json:"directory,omitempty" yaml:"directory,omitempty"`
	UseThreadedWorker      bool              `json:"useThreadedWorker,omitempty" yaml:"useThreadedWorker,omitempty"`
	WaitForLocks           bool              `json:"waitForLocks,omitempty" yaml:"waitForLocks,omitempty"`
	RaiseErrorOnLockWait   bool              `json:"raiseErrorOnLockWait,omitempty" yaml:"raiseErrorOnLockWait,omitempty"`
	RemoteSSH              bool              `json:"remoteSSH,omitempty" yaml:"remoteSSH,omitempty"`
	Timeout                time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	SSHLoginTimeout        time.Duration     `json:"sshLoginTimeout,omitempty" yaml:"sshLoginTimeout,omitempty"`
	PrintCommand           bool              `json:"printCommand,omitempty" yaml:"printCommand,omitempty"`
	PrintPrompt            bool              `json:"printPrompt,omitempty" yaml:"printPrompt,omitempty"`
	PrintExitCode          bool              `json:"printExitCode,omitempty" yaml:"printExitCode,omitempty"`
	PrintSSHConnectionMsgs bool              `json:"printSSHConnectionMsgs,omitempty" yaml:"printSSHConnectionMsgs,omitempty"`
	PrintSSHLoginSuccess   bool              `json:"printSSHLoginSuccess,omitempty" yaml:"printSSHLoginSuccess,omitempty"`
	Driver                 string            `json:"driver,omitempty" yaml:"driver,omitempty"`
	Environment            map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	SSH                    ssh.Config        `json:"ssh,omitempty" yaml:"ssh,omitempty"`
	Queue                  queue.Config      `json:"queue,omitempty" yaml:"queue,omitempty"`
	Policy                 *policy.Config    `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// DefaultConfig returns a Config with the toolkit defaults.
func DefaultConfig() *Config {
	return &Config{
		WaitForLocks:    true,
		Timeout:         terminal.DefaultTimeout,
		SSHLoginTimeout: 10 * time.Second,
		Driver:          DriverExpect,
		Queue:           queue.DefaultConfig(),
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch strings.ToLower(c.Driver) {
	case "", DriverExpect, DriverGosh:
	default:
		return fmt.Errorf("driver %q is not one of %q, %q", c.Driver, DriverExpect, DriverGosh)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.SSHLoginTimeout < 0 {
		return fmt.Errorf("sshLoginTimeout must be >= 0, got %v", c.SSHLoginTimeout)
	}
	if c.RemoteSSH {
		if err := c.SSH.Validate(); err != nil {
			return err
		}
	}
	return c.Queue.Validate()
}

// SSHConfig returns the ssh settings with the login timeout applied.
func (c *Config) SSHConfig() *ssh.Config {
	ret := c.SSH
	if ret.LoginTimeout == 0 {
		ret.LoginTimeout = c.SSHLoginTimeout
	}
	return &ret
}

// LoadConfig reads a YAML (or JSON) config from URL on any afs supported
// storage, on top of DefaultConfig. ${env.NAME} references are replaced with
// environment values before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(envexpr.Expand(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
