package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Client is an established SSH connection to one host.
type Client struct {
	config *Config
	conn   *ssh.Client
}

// Dial connects to the host described by the config.
func Dial(ctx context.Context, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SSH config for %s: %w", cfg.Host, err)
	}

	clientConfig, err := cfg.BuildSSHClientConfig()
	if err != nil {
		return nil, err
	}

	type dialResult struct {
		conn *ssh.Client
		err  error
	}

	// ssh.Dial has its own timeout but does not honor context cancellation.
	results := make(chan dialResult, 1)
	go func() {
		conn, err := ssh.Dial("tcp", cfg.Address(), clientConfig)
		results <- dialResult{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-results; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-results:
		if r.err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address(), r.err)
		}
		return &Client{config: cfg, conn: r.conn}, nil
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run executes a command and returns its combined trimmed output.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("command %q failed: %w", command, err)
		}
		return strings.TrimSpace(output.String()), nil
	}
}

// ReadFile reads a remote file over SFTP.
func (c *Client) ReadFile(path string) ([]byte, error) {
	sftpClient, err := sftp.NewClient(c.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SFTP session: %w", err)
	}
	defer sftpClient.Close()

	f, err := sftpClient.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
