package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/onboard/internal/registry"
)

// ErrNodeRequired is returned by RequireNode when no node name is configured.
var ErrNodeRequired = errors.New("node name is required (set node.name in onboard.yaml or pass --node)")

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if c.Node.Name != "" {
		if errs := validation.IsDNS1123Subdomain(c.Node.Name); len(errs) > 0 {
			return fmt.Errorf("invalid node name %q: %s", c.Node.Name, strings.Join(errs, "; "))
		}
	}

	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d is out of range", c.SSH.Port)
	}

	if s3 := c.Report.S3; s3 != nil && s3.Bucket == "" {
		return fmt.Errorf("report.s3.bucket is required when report.s3 is set")
	}

	if err := c.validatePhases(); err != nil {
		return fmt.Errorf("phase override validation failed: %w", err)
	}

	return nil
}

func (c *Config) validatePhases() error {
	known := make(map[string]bool)
	for _, p := range registry.DefaultPhases() {
		known[p.ID] = true
	}

	seen := make(map[string]bool)
	for i, o := range c.Phases {
		if o.ID == "" {
			return fmt.Errorf("phases[%d]: id is required", i)
		}
		if !known[o.ID] {
			return fmt.Errorf("phases[%d]: unknown phase id %q", i, o.ID)
		}
		if seen[o.ID] {
			return fmt.Errorf("phases[%d]: phase %q is overridden more than once", i, o.ID)
		}
		seen[o.ID] = true

		if o.Kind != "" && !registry.Kind(o.Kind).Valid() {
			return fmt.Errorf("phase %q: unknown kind %q", o.ID, o.Kind)
		}
		if o.Timeout != 0 && o.Timeout < time.Second {
			return fmt.Errorf("phase %q: timeout %s is shorter than 1s (durations need a unit, e.g. 5m)", o.ID, o.Timeout)
		}
		if o.Retries != nil && *o.Retries < 0 {
			return fmt.Errorf("phase %q: retries must not be negative", o.ID)
		}
	}
	return nil
}

// RequireNode returns ErrNodeRequired when no node is configured.
func (c *Config) RequireNode() error {
	if c.Node.Name == "" {
		return ErrNodeRequired
	}
	return nil
}
