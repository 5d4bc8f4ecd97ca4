package history

import (
	"testing"

	"github.com/jwcompdev/termkit/service/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_Add(t *testing.T) {
	h := New()
	var notified []Record
	h.OnAdd(func(record Record) { notified = append(notified, record) })

	_, ok := h.Last()
	assert.False(t, ok)

	first := NewRecord("ls", "/home/pi", "a\nb", 0)
	assert.Equal(t, 1, h.Add(first))
	assert.Equal(t, 2, h.Add(NewRecord("sudo apt update", "/home/pi", "", 100)))
	assert.Equal(t, 2, h.Len())

	got, err := h.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "ls", got.Command)
	assert.Equal(t, 1, got.ID)
	assert.False(t, got.Sudo)

	got.Command = "mutated"
	again, _ := h.Get(1)
	assert.Equal(t, "ls", again.Command)

	last, ok := h.Last()
	require.True(t, ok)
	assert.True(t, last.Sudo)
	assert.Equal(t, "sudo apt update", last.Command)
	assert.False(t, last.Succeeded())

	_, err = h.Get(3)
	assert.ErrorIs(t, err, dao.ErrNotFound)

	var ids []int
	for _, r := range h.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int{1, 2}, ids)
	require.Len(t, notified, 2)
	assert.Equal(t, 2, notified[1].ID)

	h.OnAdd(nil)
	h.Add(NewRecord("pwd", "/", "/", 0))
	assert.Len(t, notified, 2)
}

func TestClean(t *testing.T) {
	testCases := []struct {
		description string
		raw         string
		command     string
		prompt      string
		expect      string
	}{
		{
			description: "echo and prompt removed",
			raw:         "echo hi\r\nhi\r\n[TERMKIT]$ ",
			command:     "echo hi",
			prompt:      "[TERMKIT]$",
			expect:      "hi",
		},
		{
			description: "ansi stripped",
			raw:         "\x1b[01;34mdir\x1b[0m  file\r\n",
			command:     "ls --color",
			expect:      "dir  file",
		},
		{
			description: "noise removed",
			raw:         "\r\nWARNING: apt does not have a stable CLI interface. Use with caution in scripts.\r\n\r\nvim/stable 2:9.0\r\nexit\r\n",
			command:     "apt list vim",
			expect:      "vim/stable 2:9.0",
		},
		{
			description: "carriage returns split",
			raw:         "one\rtwo\r\r\nthree",
			expect:      "one\ntwo\nthree",
		},
		{
			description: "empty",
			raw:         "\r\n\r\n",
			expect:      "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expect, Clean(tc.raw, tc.command, tc.prompt))
		})
	}
}
