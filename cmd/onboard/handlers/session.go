// Package handlers implements the business logic for CLI commands.
//
// Each handler loads the configuration, builds the phase registry and wires
// the state store, action runners and output for one command. Collaborators
// are created through package-level factory variables so tests can replace them.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/config"
	"github.com/imamik/onboard/internal/logging"
	"github.com/imamik/onboard/internal/netutil"
	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/platform/hcloud"
	"github.com/imamik/onboard/internal/platform/k8s"
	"github.com/imamik/onboard/internal/platform/s3"
	"github.com/imamik/onboard/internal/platform/ssh"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/report"
	"github.com/imamik/onboard/internal/state"
	"github.com/imamik/onboard/internal/ui/tui"
	"github.com/imamik/onboard/internal/util/prerequisites"
)

var version = "dev"

// SetVersion sets the version reported to the Hetzner Cloud API.
func SetVersion(v string) {
	version = v
}

// GlobalOptions holds the flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Node       string
	Verbose    bool
	NoTUI      bool
}

// Factory functions for dependency injection in tests.
var (
	loadConfig = config.Load

	newLogger = logging.New

	newKubeClient = k8s.NewClientset

	// newKubeRunner builds the kube-node-ready runner.
	newKubeRunner = func(cfg *config.Config) (action.Runner, error) {
		client, err := newKubeClient(cfg.Path(cfg.Kubeconfig))
		if err != nil {
			return nil, err
		}
		return k8s.NewNodeWaiter(client, k8s.WithLabels(cfg.Node.Labels)), nil
	}

	// newServerChecker builds the hcloud-server-running runner.
	newServerChecker = func(cfg *config.Config) (action.Runner, error) {
		return hcloud.NewCheckerFromToken(os.Getenv(cfg.HCloud.TokenEnv), version)
	}

	// newSSHRunner builds the runner for remote phases.
	newSSHRunner = func(cfg *config.Config) (action.Runner, error) {
		return ssh.NewRunnerFromFile(ssh.Config{
			Host:           cfg.Node.Host,
			Port:           cfg.SSH.Port,
			User:           cfg.SSH.User,
			KnownHostsFile: cfg.Path(cfg.SSH.KnownHosts),
		}, cfg.Path(cfg.SSH.KeyFile))
	}

	// newPublisher builds the report uploader for report.s3.
	newPublisher = func(ctx context.Context, c *config.S3Config) (publisher, error) {
		return s3.NewClient(ctx, s3.Options{
			Endpoint:  c.Endpoint,
			Region:    c.Region,
			Bucket:    c.Bucket,
			AccessKey: os.Getenv(c.AccessKeyEnv),
			SecretKey: os.Getenv(c.SecretKeyEnv),
			PathStyle: c.PathStyle,
		})
	}

	confirm = confirmWithPrompt

	runTUI = tui.Run

	checkTools = prerequisites.Check

	checkPort = netutil.CheckPort

	now = time.Now
)

// publisher uploads reports and lists earlier uploads. *s3.Client implements it.
type publisher interface {
	report.Publisher
	List(ctx context.Context, prefix string) ([]string, error)
	Check(ctx context.Context) error
}

// isInteractiveTTY returns true if stdout is connected to a terminal.
var isInteractiveTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// session holds what every command builds from the configuration.
type session struct {
	cfg      *config.Config
	timeouts *config.Timeouts
	registry *registry.Registry
	store    *state.Store
	log      *logging.Logger
}

// openSession loads the configuration, applies the --node override and
// builds the registry and state store. The logger is started separately.
func openSession(g GlobalOptions, requireNode bool) (*session, error) {
	cfg, err := loadConfig(g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.Node != "" {
		cfg.Node.Name = g.Node
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if requireNode {
		if err := cfg.RequireNode(); err != nil {
			return nil, err
		}
	}

	timeouts := config.LoadTimeouts(registry.Default().IDs())
	reg, err := cfg.Registry(timeouts)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		timeouts: timeouts,
		registry: reg,
		store:    state.NewStore(cfg.StatePath(), reg.IDs()),
		log:      logging.Nop(),
	}, nil
}

// startLogger opens the run log file. Console output goes to stderr unless
// the TUI owns the terminal. Without --verbose or ONBOARD_LOG_LEVEL the
// console only shows warnings; the file always records debug output.
func (s *session) startLogger(g GlobalOptions, console bool) error {
	opts := logging.Options{
		Level:   os.Getenv(config.EnvLogLevel),
		Verbose: g.Verbose,
		Dir:     s.cfg.LogPath(),
		Node:    s.cfg.Node.Name,
		Now:     now,
	}
	if console {
		opts.Console = os.Stderr
		if opts.Level == "" {
			opts.Level = "warn"
		}
	}
	l, err := newLogger(opts)
	if err != nil {
		return err
	}
	s.log = l
	return nil
}

func (s *session) close() {
	if err := s.log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
	}
}

func (s *session) node() onboarding.Node {
	return onboarding.Node{Name: s.cfg.Node.Name, Host: s.cfg.Node.Host, Role: s.cfg.Node.Role}
}

// invoker registers the runners of every action kind. Collaborators are
// built on first use, so a run that never reaches node_ready needs no
// kubeconfig.
func (s *session) invoker() *action.Invoker {
	cfg := s.cfg
	opts := []action.Option{
		action.WithLogger(s.log.Logr()),
		action.WithRunner(action.KindKubeNodeReady, action.Lazy(func() (action.Runner, error) {
			return newKubeRunner(cfg)
		})),
		action.WithRunner(action.KindHCloudServerRunning, action.Lazy(func() (action.Runner, error) {
			return newServerChecker(cfg)
		})),
	}
	if cfg.Node.Host != "" {
		opts = append(opts, action.WithRemoteRunner(action.Lazy(func() (action.Runner, error) {
			return newSSHRunner(cfg)
		})))
	}
	return action.NewInvoker(opts...)
}

// engineOptions are shared by the executor and the rollback engine.
func (s *session) engineOptions(metrics *onboarding.Metrics, progress onboarding.ProgressFunc) []onboarding.Option {
	return []onboarding.Option{
		onboarding.WithObserver(onboarding.NewLogObserver(s.log.Logr())),
		onboarding.WithMetrics(metrics),
		onboarding.WithProgress(progress),
		onboarding.WithNode(s.node()),
		onboarding.WithRetryDelay(s.timeouts.RetryInitialDelay),
		onboarding.WithRollbackTimeout(s.timeouts.Rollback),
	}
}

// writeMetrics writes the textfile when metrics_file is configured.
func (s *session) writeMetrics(m *onboarding.Metrics) {
	if s.cfg.MetricsFile == "" {
		return
	}
	path := s.cfg.Path(s.cfg.MetricsFile)
	if err := m.WriteTextfile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write metrics to %s: %v\n", path, err)
	}
}

// useTUI decides whether the progress view owns the terminal.
func useTUI(g GlobalOptions) bool {
	return !g.NoTUI && isInteractiveTTY()
}

// signalContext cancels ctx on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// Exit codes returned by the onboard binary.
const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitStateCorruption     = 2
	ExitConcurrencyConflict = 3
	ExitRollbackIncomplete  = 4
	ExitInterrupted         = 130
)

// ExitCode maps an error returned by a handler to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, onboarding.ErrInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, state.ErrStateCorruption):
		return ExitStateCorruption
	case errors.Is(err, state.ErrConcurrencyConflict):
		return ExitConcurrencyConflict
	case errors.Is(err, onboarding.ErrRollbackIncomplete):
		return ExitRollbackIncomplete
	default:
		return ExitFailure
	}
}

// printHint prints the next step for a halted run.
func printHint(w io.Writer, err error) {
	var halt *onboarding.HaltError
	if errors.As(err, &halt) {
		fmt.Fprintf(w, "Hint: %s\n", halt.Hint())
	}
}
