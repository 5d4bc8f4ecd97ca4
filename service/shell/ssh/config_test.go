package ssh

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xssh "golang.org/x/crypto/ssh"
)

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		config      Config
		expectErr   bool
	}{
		{description: "valid", config: Config{Host: "10.0.0.2", User: "pi"}},
		{description: "credentials without user", config: Config{Host: "10.0.0.2", Credentials: "mem://localhost/pi.json"}},
		{description: "missing host", config: Config{User: "pi"}, expectErr: true},
		{description: "missing user", config: Config{Host: "10.0.0.2"}, expectErr: true},
		{description: "bad port", config: Config{Host: "10.0.0.2", User: "pi", Port: 70000}, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Address(t *testing.T) {
	assert.Equal(t, "10.0.0.2:22", (&Config{Host: "10.0.0.2"}).Address())
	assert.Equal(t, "[::1]:2222", (&Config{Host: "::1", Port: 2222}).Address())
	assert.Equal(t, defaultLoginTimeout, (&Config{}).Timeout())
	assert.Equal(t, time.Second, (&Config{LoginTimeout: time.Second}).Timeout())
}

func TestConfig_ClientConfig(t *testing.T) {
	dir := t.TempDir()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := xssh.MarshalPrivateKey(key, "")
	require.NoError(t, err)
	keyFile := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(block), 0o600))
	knownHosts := filepath.Join(dir, "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, nil, 0o600))

	testCases := []struct {
		description string
		config      Config
		expectAuth  int
		expectErr   bool
	}{
		{description: "password", config: Config{Host: "h", User: "pi", Password: "raspberry"}, expectAuth: 1},
		{description: "key file", config: Config{Host: "h", User: "pi", KeyFile: keyFile}, expectAuth: 1},
		{description: "known hosts", config: Config{Host: "h", User: "pi", Password: "x", KnownHosts: knownHosts}, expectAuth: 1},
		{description: "missing key file", config: Config{Host: "h", User: "pi", KeyFile: filepath.Join(dir, "none")}, expectErr: true},
		{description: "missing known hosts", config: Config{Host: "h", User: "pi", KnownHosts: filepath.Join(dir, "none")}, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			config, err := tc.config.ClientConfig(context.Background())
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pi", config.User)
			assert.Len(t, config.Auth, tc.expectAuth)
			assert.NotNil(t, config.HostKeyCallback)
			assert.Equal(t, defaultLoginTimeout, config.Timeout)
		})
	}
}

func TestConfig_DialerValidate(t *testing.T) {
	assert.True(t, New(&Config{}).Remote())
	assert.Error(t, New(nil).Validate())
	_, err := New(&Config{User: "pi"}).Dial(context.Background())
	assert.Error(t, err)
}
