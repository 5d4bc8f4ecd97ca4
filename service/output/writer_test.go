package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	lines []*Data
}

func (c *collector) sink(data *Data) { c.lines = append(c.lines, data) }

func (c *collector) text() []string {
	var ret []string
	for _, d := range c.lines {
		ret = append(ret, d.Line)
	}
	return ret
}

func TestWriter_Write(t *testing.T) {
	testCases := []struct {
		description string
		command     string
		settings    Settings
		input       string
		expect      []string
		expectErr   error
	}{
		{
			description: "plain output with ansi codes",
			command:     "ls",
			input:       "\x1b[01;34mdir\x1b[0m\r\nfile.txt\r\n",
			expect:      []string{"dir", "file.txt"},
		},
		{
			description: "echoed command dropped",
			command:     "echo hi",
			input:       "echo hi\r\nhi\r\n",
			expect:      []string{"hi"},
		},
		{
			description: "echoed command kept when printing commands",
			command:     "echo hi",
			settings:    Settings{PrintCommand: true},
			input:       "echo hi\r\nhi\r\n",
			expect:      []string{"echo hi", "hi"},
		},
		{
			description: "noise dropped",
			command:     "apt list",
			input:       "WARNING: apt does not have a stable CLI interface. Use with caution in scripts.\r\nexit\r\n\r\nbash\r\n",
			expect:      []string{"bash"},
		},
		{
			description: "prompt printed once",
			command:     "true",
			settings:    Settings{PrintPrompt: true},
			input:       "pi@raspberrypi:~$\npi@raspberrypi:~$\n",
			expect:      []string{"pi@raspberrypi:~$"},
		},
		{
			description: "prompt hidden",
			command:     "true",
			input:       "pi@raspberrypi:~$\n",
		},
		{
			description: "missing sudo",
			command:     "apt install vim",
			input:       "E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)\nafter\n",
			expect:      []string{"E: Could not open lock file /var/lib/dpkg/lock-frontend - open (13: Permission denied)"},
			expectErr:   ErrPermission,
		},
		{
			description: "lock wait emitted once",
			command:     "sudo apt update",
			settings:    Settings{WaitForLocks: true},
			input: "Waiting for cache lock: Could not get lock /var/lib/dpkg/lock. It is held by process 42\n" +
				"Waiting for cache lock: Could not get lock /var/lib/dpkg/lock. It is held by process 42\ndone\n",
			expect: []string{"Waiting for cache lock: Could not get lock /var/lib/dpkg/lock. It is held by process 42", "done"},
		},
		{
			description: "lock wait raised",
			command:     "sudo apt update",
			settings:    Settings{RaiseErrorOnLockWait: true},
			input:       "Waiting for cache lock: Could not get lock /var/lib/dpkg/lock. It is held by process 42\n",
			expect:      []string{"Waiting for cache lock: Could not get lock /var/lib/dpkg/lock. It is held by process 42"},
			expectErr:   ErrLockWait,
		},
		{
			description: "apt update trimmed",
			command:     "sudo apt update",
			input:       "  Hit:1 http://deb.debian.org/debian bookworm InRelease  \r\n",
			expect:      []string{"Hit:1 http://deb.debian.org/debian bookworm InRelease"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			c := &collector{}
			w := NewWriter(c.sink, true)
			w.SetUser("pi")
			w.Begin(tc.command, tc.settings)
			err := w.Lines(tc.input)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expect, c.text())
			for _, d := range c.lines {
				assert.True(t, d.Remote)
				assert.Equal(t, tc.command, d.Command)
			}
		})
	}
}

func TestWriter_WriteBypass(t *testing.T) {
	c := &collector{}
	w := NewWriter(c.sink, false)
	w.WriteBypass(KindConnection, "SSH Connecting to host!")
	w.WriteBypass(KindExitCode, "\x1b[31m1\x1b[0m")
	require.Len(t, c.lines, 2)
	assert.Equal(t, KindConnection, c.lines[0].Kind)
	assert.Equal(t, "1", c.lines[1].Line)
	assert.Equal(t, "1", w.LastLine())

	w.SetSink(nil)
	assert.NotPanics(t, func() { w.WriteBypass(KindOutput, "dropped") })
}

func TestWriter_Stream(t *testing.T) {
	c := &collector{}
	w := NewWriter(c.sink, false)
	w.Begin("cat", Settings{})
	n, err := w.Write([]byte("first li"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Empty(t, c.lines)
	_, err = w.Write([]byte("ne\r\nsecond\nthi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second"}, c.text())
	require.NoError(t, w.Flush())
	assert.Equal(t, []string{"first line", "second", "thi"}, c.text())

	_, err = w.Write([]byte("E: Could not open lock file /var/lib/dpkg/lock - open (13: Permission denied)\n"))
	assert.ErrorIs(t, err, ErrPermission)
}

func TestChecks(t *testing.T) {
	assert.True(t, IsPrompt("root@host:/etc#", "root"))
	assert.True(t, IsPrompt(" pi@pi:~$ ", "pi"))
	assert.False(t, IsPrompt("pi@pi:~$", ""))
	assert.False(t, IsPrompt("echo pi@pi", "pi"))
	assert.True(t, IsShellGarbage("pi@10.0.0.2's password:"))
	assert.False(t, IsAptUpdate("Get: nothing"))
	assert.True(t, IsDebconfError("debconf: falling back to frontend: Readline"))
}
