package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jwcompdev/termkit"
	"github.com/jwcompdev/termkit/metrics"
	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/terminal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run one command on every host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			hosts, _ := cmd.Flags().GetStringSlice("host")
			user, _ := cmd.Flags().GetString("user")
			driver, _ := cmd.Flags().GetString("driver")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			sudo, _ := cmd.Flags().GetBool("sudo")
			debug, _ := cmd.Flags().GetBool("debug")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if user != "" {
				config.SSH.User = user
			}
			if driver != "" {
				config.Driver = driver
			}
			if timeout > 0 {
				config.Timeout = timeout
			}
			if cmd.Flags().Changed("print-command") {
				config.PrintCommand, _ = cmd.Flags().GetBool("print-command")
			}
			if cmd.Flags().Changed("print-exit-code") {
				config.PrintExitCode, _ = cmd.Flags().GetBool("print-exit-code")
			}

			logger := zap.NewNop()
			if debug {
				if logger, err = zap.NewDevelopment(); err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
			}
			collector := metrics.New()
			if metricsAddr != "" {
				server := &http.Server{Addr: metricsAddr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if sErr := server.ListenAndServe(); sErr != nil && !errors.Is(sErr, http.ErrServerClosed) {
						logger.Warn("metrics server failed", zap.Error(sErr))
					}
				}()
				defer server.Close()
			}

			r := &runner{
				out:       cmd.OutOrStdout(),
				logger:    logger,
				collector: collector,
				command:   commandLine(args),
				sudo:      sudo,
				multi:     len(hosts) > 1,
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(hosts) == 0 {
				return r.run(ctx, config, "")
			}
			group, groupCtx := errgroup.WithContext(ctx)
			for _, host := range hosts {
				hostConfig := *config
				hostConfig.RemoteSSH = true
				hostConfig.SSH.Host = host
				group.Go(func() error {
					return r.run(groupCtx, &hostConfig, host)
				})
			}
			return group.Wait()
		},
	}
	cmd.Flags().StringSlice("host", nil, "ssh host, repeat for several hosts (local shell when omitted)")
	cmd.Flags().String("user", "", "ssh user")
	cmd.Flags().String("driver", "", "transport driver: expect or gosh")
	cmd.Flags().Duration("timeout", 0, "per command timeout")
	cmd.Flags().Bool("sudo", false, "run every command with sudo")
	cmd.Flags().Bool("print-command", false, "print each command before its output")
	cmd.Flags().Bool("print-exit-code", false, "print each exit code")
	cmd.Flags().Bool("debug", false, "enable debug logging")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address while running")
	return cmd
}

// commandLine joins the words after "--" into one shell command.
func commandLine(args []string) string {
	return strings.Join(args, " ")
}

type runner struct {
	mux       sync.Mutex
	out       io.Writer
	logger    *zap.Logger
	collector *metrics.Collector
	dialer    shell.Dialer
	command   string
	sudo      bool
	multi     bool
}

func (r *runner) run(ctx context.Context, config *termkit.Config, host string) error {
	options := []termkit.Option{
		termkit.WithConfig(config),
		termkit.WithLogger(r.logger.With(zap.String("host", host))),
		termkit.WithMetrics(r.collector),
		termkit.WithSink(func(data *output.Data) { r.print(host, data) }),
	}
	if r.dialer != nil {
		options = append(options, termkit.WithDialer(r.dialer))
	}
	srv, err := termkit.New(options...)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close(context.Background()) }()
	if err = srv.Connect(ctx); err != nil {
		return err
	}
	// a threaded run returns no record; the exit code is read back from the history
	if _, err = srv.RunTerminalCommand(ctx, r.command, terminal.WithSudo(r.sudo)); err != nil {
		return err
	}
	if err = srv.Wait(ctx); err != nil {
		return err
	}
	record, ok := srv.History().Last()
	if !ok {
		return fmt.Errorf("command %q did not complete", r.command)
	}
	if record.ExitCode != 0 {
		return &exitError{code: record.ExitCode}
	}
	return nil
}

func (r *runner) print(host string, data *output.Data) {
	r.mux.Lock()
	defer r.mux.Unlock()
	prefix := ""
	if r.multi {
		prefix = "[" + host + "] "
	}
	switch data.Kind {
	case output.KindCommand:
		_, _ = fmt.Fprintf(r.out, "%v$ %v\n", prefix, data.Line)
	case output.KindExitCode:
		_, _ = fmt.Fprintf(r.out, "%vexit code: %v\n", prefix, data.Line)
	default:
		_, _ = fmt.Fprintf(r.out, "%v%v\n", prefix, strings.TrimRight(data.Line, "\r\n"))
	}
}
