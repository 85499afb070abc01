package hcloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/imamik/onboard/internal/action"
)

// DefaultPollInterval is how often the server status is checked.
const DefaultPollInterval = 5 * time.Second

// ErrTokenMissing is returned when no API token is available.
var ErrTokenMissing = errors.New("hcloud API token is not set")

// ServerGetter looks servers up by name. *hcloud.ServerClient implements it.
type ServerGetter interface {
	GetByName(ctx context.Context, name string) (*hcloud.Server, *hcloud.Response, error)
}

// Checker waits for a server to be running. It implements action.Runner.
type Checker struct {
	servers  ServerGetter
	interval time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.interval = d
		}
	}
}

// NewChecker returns a Checker using servers for lookups.
func NewChecker(servers ServerGetter, opts ...Option) *Checker {
	c := &Checker{servers: servers, interval: DefaultPollInterval}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCheckerFromToken builds a Checker backed by the Hetzner Cloud API.
func NewCheckerFromToken(token, version string, opts ...Option) (*Checker, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}
	client := hcloud.NewClient(
		hcloud.WithToken(token),
		hcloud.WithApplication("onboard", version),
	)
	return NewChecker(&client.Server, opts...), nil
}

// Run implements action.Runner. spec.Target names the server.
func (c *Checker) Run(ctx context.Context, spec action.Spec, stdout, stderr io.Writer) error {
	name := spec.Target
	if name == "" {
		return &action.ExitError{Code: 2, Err: errors.New("no server name: node name is not set")}
	}

	var last hcloud.ServerStatus
	err := wait.PollUntilContextCancel(ctx, c.interval, true, func(ctx context.Context) (bool, error) {
		server, _, err := c.servers.GetByName(ctx, name)
		if err != nil {
			if isTransient(err) {
				_, _ = fmt.Fprintf(stderr, "lookup of server %s failed, retrying: %v\n", name, err)
				return false, nil
			}
			return false, fmt.Errorf("failed to get server %s: %w", name, err)
		}
		if server == nil {
			return false, fmt.Errorf("server not found: %s", name)
		}

		if server.Status != last {
			_, _ = fmt.Fprintf(stdout, "server %s (id %d) is %s\n", name, server.ID, server.Status)
			last = server.Status
		}
		switch server.Status {
		case hcloud.ServerStatusRunning:
			return true, nil
		case hcloud.ServerStatusOff, hcloud.ServerStatusStopping, hcloud.ServerStatusDeleting:
			return false, fmt.Errorf("server %s is %s", name, server.Status)
		}
		return false, nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		if last != "" {
			_, _ = fmt.Fprintf(stderr, "server %s still %s\n", name, last)
		}
		return ctx.Err()
	}
	_, _ = fmt.Fprintln(stderr, err.Error())
	return &action.ExitError{Code: 1, Err: err}
}
