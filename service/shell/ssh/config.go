package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/viant/scy/cred/secret"
	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultPort         = 22
	defaultLoginTimeout = 15 * time.Second
)

// Config holds the login settings of a remote shell.
type Config struct {
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	User       string `json:"user,omitempty" yaml:"user,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	KeyFile    string `json:"keyFile,omitempty" yaml:"keyFile,omitempty"`
	KnownHosts string `json:"knownHosts,omitempty" yaml:"knownHosts,omitempty"`
	// Credentials is a secret resource resolved with viant/scy, it takes
	// precedence over password and key file.
	Credentials  string        `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	LoginTimeout time.Duration `json:"loginTimeout,omitempty" yaml:"loginTimeout,omitempty"`
}

// Validate checks the fields required to log in.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("ssh host was empty")
	}
	if c.User == "" && c.Credentials == "" {
		return errors.New("ssh user was empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid ssh port: %d", c.Port)
	}
	return nil
}

// Address returns host:port.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Timeout returns the login timeout.
func (c *Config) Timeout() time.Duration {
	if c.LoginTimeout > 0 {
		return c.LoginTimeout
	}
	return defaultLoginTimeout
}

// ClientConfig builds the ssh client configuration.
func (c *Config) ClientConfig(ctx context.Context) (*xssh.ClientConfig, error) {
	if c.Credentials != "" {
		secrets := secret.New()
		generic, err := secrets.GetCredentials(ctx, c.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials %v: %w", c.Credentials, err)
		}
		config, err := generic.SSH.Config(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build ssh config from %v: %w", c.Credentials, err)
		}
		if config.User == "" {
			config.User = c.User
		}
		config.Timeout = c.Timeout()
		if config.HostKeyCallback == nil {
			if config.HostKeyCallback, err = c.hostKeyCallback(); err != nil {
				return nil, err
			}
		}
		return config, nil
	}

	var auth []xssh.AuthMethod
	if c.KeyFile != "" {
		data, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file %v: %w", c.KeyFile, err)
		}
		var signer xssh.Signer
		if c.Password != "" {
			signer, err = xssh.ParsePrivateKeyWithPassphrase(data, []byte(c.Password))
		} else {
			signer, err = xssh.ParsePrivateKey(data)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse key file %v: %w", c.KeyFile, err)
		}
		auth = append(auth, xssh.PublicKeys(signer))
	}
	if c.Password != "" {
		auth = append(auth, xssh.Password(c.Password))
	}
	callback, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	return &xssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         c.Timeout(),
	}, nil
}

func (c *Config) hostKeyCallback() (xssh.HostKeyCallback, error) {
	if c.KnownHosts == "" {
		return xssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(c.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %v: %w", c.KnownHosts, err)
	}
	return callback, nil
}
