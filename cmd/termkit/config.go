package main

import (
	"context"
	"os"
	"strings"

	"github.com/jwcompdev/termkit"
	"github.com/jwcompdev/termkit/policy"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding ssh credentials.
const (
	envSSHUser     = "TERMKIT_SSH_USER"
	envSSHPassword = "TERMKIT_SSH_PASSWORD"
	envSSHKeyFile  = "TERMKIT_SSH_KEY_FILE"
)

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			redacted := *config
			if redacted.SSH.Password != "" {
				redacted.SSH.Password = "***"
			}
			if p := policy.FromConfig(config.Policy); p != nil {
				if p.Mode == "" {
					p.Mode = policy.ModeAuto
				}
				redacted.Policy = policy.ToConfig(p)
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err = encoder.Encode(&redacted); err != nil {
				return err
			}
			return encoder.Close()
		},
	}
}

func loadConfig(ctx context.Context, cmd *cobra.Command) (*termkit.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	URL, _ := cmd.Flags().GetString("config")
	config := termkit.DefaultConfig()
	if URL != "" {
		var err error
		if config, err = termkit.LoadConfig(ctx, URL); err != nil {
			return nil, err
		}
	}
	applyEnv(config)
	return config, nil
}

func applyEnv(config *termkit.Config) {
	if value := strings.TrimSpace(os.Getenv(envSSHUser)); value != "" {
		config.SSH.User = value
	}
	if value := os.Getenv(envSSHPassword); value != "" {
		config.SSH.Password = value
	}
	if value := strings.TrimSpace(os.Getenv(envSSHKeyFile)); value != "" {
		config.SSH.KeyFile = value
	}
}
