package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "termkit",
		Short: "Run shell commands on local and remote terminals",
		Long:  "termkit runs commands on a local shell or on SSH hosts, in order, and reports their output and exit codes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to load %v: %w", envFile, err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "config URL (file path or any afs supported location)")
	rootCmd.PersistentFlags().String("env-file", ".env", "environment file")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("command exited with %d", e.code)
}
