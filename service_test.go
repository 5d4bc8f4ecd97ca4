package termkit_test

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwcompdev/termkit"
	"github.com/jwcompdev/termkit/service/event"
	"github.com/jwcompdev/termkit/service/history"
	"github.com/jwcompdev/termkit/service/output"
	"github.com/jwcompdev/termkit/service/queue"
	"github.com/jwcompdev/termkit/service/shell"
	"github.com/jwcompdev/termkit/service/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "github.com/viant/afs/embed"
)

//go:embed testdata/*
var embedFS embed.FS

func TestLoadConfig(t *testing.T) {
	t.Setenv("TERMKIT_TEST_PASSWORD", "raspberry")
	ctx := context.Background()
	config, err := termkit.LoadConfig(ctx, "embed:///testdata/termkit.yaml", &embedFS)
	require.NoError(t, err)
	assert.Equal(t, "/home/pi/projects", config.Directory)
	assert.True(t, config.UseThreadedWorker)
	assert.True(t, config.WaitForLocks)
	assert.True(t, config.RaiseErrorOnLockWait)
	assert.Equal(t, 45*time.Second, config.Timeout)
	assert.Equal(t, "raspberrypi.local", config.SSH.Host)
	assert.Equal(t, "raspberry", config.SSH.Password)
	assert.Equal(t, 5*time.Second, config.SSHConfig().LoginTimeout)
	assert.Equal(t, queue.HaltOnFailure, config.Queue.FailurePolicy)
	assert.Equal(t, time.Duration(0), config.Queue.GracePeriod)
	require.NotNil(t, config.Policy)
	assert.Equal(t, []string{"reboot", "apt purge"}, config.Policy.BlockList)

	_, err = termkit.LoadConfig(ctx, "embed:///testdata/missing.yaml", &embedFS)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(c *termkit.Config)
		expectErr   bool
	}{
		{description: "default", mutate: func(c *termkit.Config) {}},
		{description: "gosh driver", mutate: func(c *termkit.Config) { c.Driver = "GOSH" }},
		{description: "unknown driver", mutate: func(c *termkit.Config) { c.Driver = "telnet" }, expectErr: true},
		{description: "negative timeout", mutate: func(c *termkit.Config) { c.Timeout = -time.Second }, expectErr: true},
		{description: "remote without host", mutate: func(c *termkit.Config) { c.RemoteSSH = true; c.SSH.User = "pi" }, expectErr: true},
		{description: "bad queue policy", mutate: func(c *termkit.Config) { c.Queue.FailurePolicy = "retry" }, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			config := termkit.DefaultConfig()
			tc.mutate(config)
			err := config.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// echoShell answers login queries and echoes "echo" arguments.
type echoShell struct {
	mux    sync.Mutex
	closed bool
}

func (e *echoShell) Run(ctx context.Context, command string, listener shell.Listener) (*shell.Result, error) {
	out, err := e.Exchange(ctx, command)
	if err != nil {
		return nil, err
	}
	if listener != nil && out != "" {
		if err = listener(strings.TrimSpace(out)); err != nil {
			return nil, err
		}
	}
	status := 0
	if command == "false" {
		status = 1
	}
	return &shell.Result{Output: out, Status: status}, nil
}

func (e *echoShell) Exchange(ctx context.Context, line string) (string, error) {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.closed {
		return "", shell.ErrClosed
	}
	switch {
	case line == "whoami":
		return "pi\n", nil
	case line == "hostname":
		return "raspberrypi\n", nil
	case line == "echo ~", line == "pwd":
		return "/home/pi\n", nil
	case strings.HasPrefix(line, "echo "):
		// later commands finish faster, reordering would show up
		time.Sleep(time.Millisecond)
		return strings.TrimPrefix(line, "echo ") + "\n", nil
	}
	return "", nil
}

func (e *echoShell) Close() error {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.closed = true
	return nil
}

func (e *echoShell) Closed() bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.closed
}

type echoDialer struct{}

func (echoDialer) Dial(ctx context.Context) (shell.Shell, error) { return &echoShell{}, nil }

func (echoDialer) Remote() bool { return true }

func (echoDialer) Host() string { return "raspberrypi" }

func newService(t *testing.T, threaded bool, options ...termkit.Option) *termkit.Service {
	t.Helper()
	config := termkit.DefaultConfig()
	config.UseThreadedWorker = threaded
	config.Queue.GracePeriod = 0
	srv, err := termkit.New(append([]termkit.Option{termkit.WithConfig(config), termkit.WithDialer(echoDialer{})}, options...)...)
	require.NoError(t, err)
	require.NoError(t, srv.Connect(context.Background()))
	return srv
}

func TestService_RunTerminalCommand(t *testing.T) {
	var mux sync.Mutex
	var lines []string
	srv := newService(t, false, termkit.WithSink(func(data *output.Data) {
		mux.Lock()
		lines = append(lines, data.Line)
		mux.Unlock()
	}))
	ctx := context.Background()
	defer srv.Close(ctx)

	events := make(chan *event.Event[history.Record], 2)
	srv.OnCommand(func(e *event.Event[history.Record]) { events <- e })

	record, err := srv.RunTerminalCommand(ctx, "echo hello")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "hello", record.Output)
	assert.Equal(t, 1, record.ID)
	assert.True(t, record.Remote)

	record, err = srv.RunTerminalCommand(ctx, "false", terminal.WithSudo(true))
	require.NoError(t, err)
	assert.Equal(t, "sudo false", record.Command)
	assert.Equal(t, 0, record.ExitCode)

	select {
	case e := <-events:
		assert.Equal(t, event.NewCommand, e.Namespace)
		assert.Equal(t, "echo hello", e.Data.Command)
		assert.Equal(t, srv.Session().ID(), e.SessionID)
	case <-time.After(time.Second):
		t.Fatal("command event was not delivered")
	}
	assert.Equal(t, 2, srv.History().Len())
	mux.Lock()
	assert.Equal(t, []string{"hello"}, lines)
	mux.Unlock()
	assert.Equal(t, "pi@raspberrypi:~$", srv.Prompt())
}

func TestService_Threaded(t *testing.T) {
	srv := newService(t, true)
	ctx := context.Background()
	defer srv.Close(ctx)

	var expect []string
	for i := 0; i < 20; i++ {
		if i%4 == 0 {
			srv.DisableThreadedWorker()
		} else {
			srv.EnableThreadedWorker()
		}
		command := fmt.Sprintf("echo %d", i)
		expect = append(expect, command)
		record, err := srv.RunTerminalCommand(ctx, command)
		require.NoError(t, err)
		if srv.IsThreadedWorkerEnabled() {
			assert.Nil(t, record)
		} else {
			require.NotNil(t, record)
			assert.Equal(t, command, record.Command)
		}
	}
	require.NoError(t, srv.Wait(ctx))

	var got []string
	for _, record := range srv.History().List() {
		got = append(got, record.Command)
	}
	assert.Equal(t, expect, got)
	progress := srv.Progress()
	// Connect is the first ticket
	assert.Equal(t, 21, progress.CompletedTasks)
	assert.True(t, progress.Done())
}

func TestService_ConnectionEvents(t *testing.T) {
	config := termkit.DefaultConfig()
	config.Queue.GracePeriod = 0
	srv, err := termkit.New(termkit.WithConfig(config), termkit.WithDialer(echoDialer{}))
	require.NoError(t, err)
	ctx := context.Background()
	changes := make(chan termkit.ConnectionChange, 2)
	srv.OnConnection(func(e *event.Event[termkit.ConnectionChange]) { changes <- e.Data })

	require.NoError(t, srv.Connect(ctx))
	require.NoError(t, srv.ChangeDir(ctx, "/tmp"))
	require.NoError(t, srv.Disconnect(ctx))
	for _, expect := range []bool{true, false} {
		select {
		case change := <-changes:
			assert.Equal(t, expect, change.Connected)
			assert.Equal(t, "raspberrypi", change.Host)
		case <-time.After(time.Second):
			t.Fatal("connection event was not delivered")
		}
	}
	_, err = srv.RunTerminalCommand(ctx, "echo closed")
	assert.ErrorIs(t, err, terminal.ErrConnectionClosed)
	record, err := srv.RunTerminalCommand(ctx, "echo again", terminal.WithReconnect(true))
	require.NoError(t, err)
	assert.Equal(t, "again", record.Output)
	require.NoError(t, srv.Close(ctx))
}

func TestService_TaskQueue(t *testing.T) {
	srv := newService(t, false)
	defer srv.Close(context.Background())
	q, err := queue.From(srv)
	require.NoError(t, err)
	assert.Same(t, srv.TaskQueue(), q)
	assert.Equal(t, "terminal", q.Name())
}

func TestNew_InvalidConfig(t *testing.T) {
	config := termkit.DefaultConfig()
	config.Driver = "telnet"
	_, err := termkit.New(termkit.WithConfig(config))
	var configErr *terminal.ConfigError
	assert.ErrorAs(t, err, &configErr)
}
