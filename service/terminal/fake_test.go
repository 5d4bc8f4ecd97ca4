package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jwcompdev/termkit/service/shell"
)

// fakeShell emulates a persistent shell with a working directory.
type fakeShell struct {
	mux       sync.Mutex
	user      string
	host      string
	home      string
	cwd       string
	dirs      map[string]bool
	closed    bool
	stuckOpen bool
	commands  []string
	closedCh  chan struct{}
}

func newFakeShell(user string) *fakeShell {
	home := "/home/" + user
	if user == "root" {
		home = "/root"
	}
	return &fakeShell{
		user:     user,
		host:     "raspberrypi",
		home:     home,
		cwd:      home,
		dirs:     map[string]bool{"/": true, "/etc": true, "/tmp": true, home: true, home + "/projects": true},
		closedCh: make(chan struct{}),
	}
}

func (f *fakeShell) Run(ctx context.Context, command string, listener shell.Listener) (*shell.Result, error) {
	f.mux.Lock()
	if f.closed {
		f.mux.Unlock()
		return nil, shell.ErrClosed
	}
	f.commands = append(f.commands, command)
	f.mux.Unlock()

	out, status, err := f.execute(ctx, command)
	if err != nil {
		return nil, err
	}
	if listener != nil {
		for _, line := range strings.Split(out, "\n") {
			if line == "" {
				continue
			}
			if lErr := listener(line); lErr != nil {
				_ = f.Close()
				return nil, lErr
			}
		}
	}
	return &shell.Result{Output: out, Status: status}, nil
}

func (f *fakeShell) execute(ctx context.Context, command string) (string, int, error) {
	command = strings.TrimPrefix(command, "sudo ")
	switch {
	case command == "whoami":
		return f.user + "\r\n", 0, nil
	case command == "hostname":
		return f.host + "\r\n", 0, nil
	case command == "echo ~":
		return f.home + "\r\n", 0, nil
	case command == "pwd":
		f.mux.Lock()
		defer f.mux.Unlock()
		return f.cwd + "\r\n", 0, nil
	case strings.HasPrefix(command, "cd "):
		dir := strings.Trim(strings.TrimPrefix(command, "cd "), "'")
		f.mux.Lock()
		defer f.mux.Unlock()
		if !f.dirs[dir] {
			return fmt.Sprintf("bash: cd: %v: No such file or directory\r\n", dir), 1, nil
		}
		f.cwd = dir
		return "", 0, nil
	case command == "false":
		return "", 1, nil
	case strings.HasPrefix(command, "echo "):
		return strings.TrimPrefix(command, "echo ") + "\r\n", 0, nil
	case command == "apt install vim":
		return "E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)\r\n", 100, nil
	case command == "sleep":
		<-ctx.Done()
		_ = f.Close()
		return "", 0, fmt.Errorf("%w: sleep did not complete", shell.ErrTimeout)
	case command == "block":
		select {
		case <-f.closedCh:
			return "", 0, shell.ErrClosed
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	case command == "die":
		_ = f.Close()
		return "", 0, fmt.Errorf("%w: EOF", shell.ErrClosed)
	}
	return "", 0, nil
}

func (f *fakeShell) Exchange(ctx context.Context, line string) (string, error) {
	result, err := f.Run(ctx, line, nil)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

func (f *fakeShell) Close() error {
	f.mux.Lock()
	defer f.mux.Unlock()
	if f.stuckOpen {
		return nil
	}
	if !f.closed {
		f.closed = true
		close(f.closedCh)
	}
	return nil
}

func (f *fakeShell) Closed() bool {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.closed
}

func (f *fakeShell) history() []string {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]string(nil), f.commands...)
}

// fakeDialer hands out fake shells.
type fakeDialer struct {
	mux         sync.Mutex
	user        string
	remote      bool
	host        string
	dialErr     error
	validateErr error
	stuckOpen   bool
	dials       int
	shells      []*fakeShell
}

func (d *fakeDialer) Dial(ctx context.Context) (shell.Shell, error) {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	user := d.user
	if user == "" {
		user = "pi"
	}
	sh := newFakeShell(user)
	sh.stuckOpen = d.stuckOpen
	d.shells = append(d.shells, sh)
	return sh, nil
}

func (d *fakeDialer) Remote() bool { return d.remote }

func (d *fakeDialer) Host() string { return d.host }

func (d *fakeDialer) Validate() error { return d.validateErr }

func (d *fakeDialer) last() *fakeShell {
	d.mux.Lock()
	defer d.mux.Unlock()
	if len(d.shells) == 0 {
		return nil
	}
	return d.shells[len(d.shells)-1]
}

var errRefused = errors.New("connection refused")
