package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second

	// exitMissing is reported when the remote side closes without an exit status.
	exitMissing = 255
)

// Config holds SSH runner configuration.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// KnownHostsFile verifies the host key. When empty and HostKeyCallback is
	// nil, host keys are not checked.
	KnownHostsFile string

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	// If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	HostKeyCallback ssh.HostKeyCallback
}

// Runner executes command actions on a remote node. It implements action.Runner.
type Runner struct {
	config *Config
	signer ssh.Signer
}

// NewRunner validates cfg and parses the private key once.
func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	c := *cfg
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.HostKeyCallback == nil {
		if c.KnownHostsFile != "" {
			cb, err := knownhosts.New(c.KnownHostsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load known hosts: %w", err)
			}
			c.HostKeyCallback = cb
		} else {
			c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // no known_hosts configured
		}
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Runner{config: &c, signer: signer}, nil
}

// NewRunnerFromFile reads the private key from keyFile.
func NewRunnerFromFile(cfg Config, keyFile string) (*Runner, error) {
	if keyFile == "" {
		return nil, fmt.Errorf("ssh key file is not configured")
	}
	key, err := os.ReadFile(keyFile) // #nosec G304 - operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key: %w", err)
	}
	cfg.PrivateKey = key
	return NewRunner(&cfg)
}

// Addr returns host:port of the remote node.
func (r *Runner) Addr() string {
	return net.JoinHostPort(r.config.Host, strconv.Itoa(r.config.Port))
}

// Run implements action.Runner. When ctx is done the remote command is sent
// SIGTERM and the connection is closed.
func (r *Runner) Run(ctx context.Context, spec action.Spec, stdout, stderr io.Writer) error {
	client, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session on %s: %w", r.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(RemoteCommand(spec))
	}()

	select {
	case err := <-done:
		return exitError(err)
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()
		_ = client.Close()
		<-done
		return ctx.Err()
	}
}

// connect establishes SSH connection with retry logic.
func (r *Runner) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            r.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: r.config.HostKeyCallback,
		Timeout:         r.config.DialTimeout,
	}

	addr := r.Addr()
	var client *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = dial(ctx, addr, config)
		if isHostKeyError(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(r.config.MaxRetries),
		retry.WithInitialDelay(r.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	return client, nil
}

func dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// isHostKeyError reports a host key verification failure. Those never heal by
// retrying.
func isHostKeyError(err error) bool {
	if err == nil {
		return false
	}
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	return strings.Contains(err.Error(), "knownhosts:")
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &action.ExitError{Code: exitErr.ExitStatus(), Err: err}
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return &action.ExitError{Code: exitMissing, Err: err}
	}
	return err
}

// RemoteCommand renders spec as a single shell command line. Environment
// variables are passed through env(1) since sshd usually rejects setenv requests.
func RemoteCommand(spec action.Spec) string {
	argv := make([]string, 0, len(spec.Env)+len(spec.Args)+2)
	if len(spec.Env) > 0 {
		argv = append(argv, "env")
		argv = append(argv, spec.Env...)
	}
	argv = append(argv, spec.Command)
	argv = append(argv, spec.Args...)

	line := shellescape.QuoteCommand(argv)
	if spec.Dir != "" {
		line = "cd " + shellescape.Quote(spec.Dir) + " && " + line
	}
	return line
}
