package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jwcompdev/termkit/service/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xssh "golang.org/x/crypto/ssh"
)

// silentServer accepts any password and opens shells that never print.
func silentServer(t *testing.T) (string, int) {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := xssh.NewSignerFromKey(key)
	require.NoError(t, err)
	config := &xssh.ServerConfig{
		PasswordCallback: func(xssh.ConnMetadata, []byte) (*xssh.Permissions, error) { return nil, nil },
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	go func() {
		for {
			conn, aErr := listener.Accept()
			if aErr != nil {
				return
			}
			go serveSilent(conn, config)
		}
	}()
	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, portNum
}

func serveSilent(conn net.Conn, config *xssh.ServerConfig) {
	serverConn, channels, requests, err := xssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer serverConn.Close()
	go xssh.DiscardRequests(requests)
	for newChannel := range channels {
		channel, channelRequests, aErr := newChannel.Accept()
		if aErr != nil {
			continue
		}
		go func() {
			for req := range channelRequests {
				if req.WantReply {
					_ = req.Reply(true, nil)
				}
			}
		}()
		go func() { _, _ = io.Copy(io.Discard, channel) }()
	}
}

func TestDialer_LoginTimeoutBoundsPrompt(t *testing.T) {
	host, port := silentServer(t)
	dialer := New(&Config{Host: host, Port: port, User: "pi", Password: "raspberry", LoginTimeout: 300 * time.Millisecond})
	assert.True(t, dialer.Remote())
	assert.Equal(t, host, dialer.Host())

	started := time.Now()
	sh, err := dialer.Dial(context.Background())
	assert.Nil(t, sh)
	require.Error(t, err)
	assert.ErrorIs(t, err, shell.ErrTimeout)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestDialer_Validate(t *testing.T) {
	assert.Error(t, New(nil).Validate())
	assert.Empty(t, New(nil).Host())
	_, err := New(&Config{User: "pi"}).Dial(context.Background())
	assert.Error(t, err)
}
