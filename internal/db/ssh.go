package db

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// SSHConfig holds SSH connection details
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
}

// SSHTunnel represents an active SSH connection that can dial
type SSHTunnel struct {
	client *ssh.Client
}

// NewSSHTunnel establishes an SSH connection. Auth methods are tried in
// order: private key file, agent, password, keyboard-interactive.
func NewSSHTunnel(config *SSHConfig, logger *slog.Logger) (*SSHTunnel, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("SSH host is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "ssh"), slog.String("host", config.Host))

	var authMethods []ssh.AuthMethod

	if config.KeyPath != "" {
		if signer, err := loadSigner(config.KeyPath, config.Password); err != nil {
			logger.Debug("private key unusable", slog.String("path", config.KeyPath), slog.Any("error", err))
		} else {
			logger.Debug("private key loaded", slog.String("type", signer.PublicKey().Type()))
			authMethods = append(authMethods, ssh.PublicKeys(signer))
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			authMethods = append(authMethods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			logger.Debug("agent unavailable", slog.Any("error", err))
		}
	}

	if config.Password != "" {
		authMethods = append(authMethods, ssh.Password(config.Password))
		// Some servers only accept keyboard-interactive for password logins
		authMethods = append(authMethods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = config.Password
			}
			return answers, nil
		}))
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no valid SSH authentication methods found")
	}

	cliConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		HostKeyAlgorithms: []string{
			ssh.KeyAlgoED25519,
			ssh.KeyAlgoRSASHA512,
			ssh.KeyAlgoRSASHA256,
			ssh.KeyAlgoRSA,
			ssh.KeyAlgoECDSA256,
			ssh.KeyAlgoECDSA384,
			ssh.KeyAlgoECDSA521,
		},
	}

	port := config.Port
	if port == 0 {
		port = 22
	}
	address := fmt.Sprintf("%s:%d", config.Host, port)
	logger.Debug("dialing", slog.String("addr", address), slog.Int("auth_methods", len(authMethods)))
	client, err := ssh.Dial("tcp", address, cliConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	return &SSHTunnel{client: client}, nil
}

func loadSigner(keyPath, passphrase string) (ssh.Signer, error) {
	if rest, ok := strings.CutPrefix(keyPath, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			keyPath = filepath.Join(home, rest)
		}
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil && passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	return signer, err
}

// DialContext connects to a remote address through the tunnel
func (t *SSHTunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		conn, err := t.client.Dial(network, addr)
		ch <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after cancellation
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-ch:
		return res.conn, res.err
	}
}

// Close closes the SSH connection
func (t *SSHTunnel) Close() error {
	return t.client.Close()
}
