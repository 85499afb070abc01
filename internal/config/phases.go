package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imamik/onboard/internal/registry"
)

// Registry builds the phase registry from the built-in phase table, the
// phase overrides in the configuration and the environment timeouts.
//
// Timeout precedence, highest first: ONBOARD_TIMEOUT_<PHASE>, the phase
// override in the file, ONBOARD_TIMEOUT_DEFAULT, the built-in value.
//
// Built-in script names resolve under scripts_dir. Commands given in an
// override are used as written: bare names are looked up in PATH and
// relative paths resolve against the configuration directory. Remote
// commands are never rewritten to local paths beyond joining scripts_dir.
func (c *Config) Registry(t *Timeouts) (*registry.Registry, error) {
	if t == nil {
		t = &Timeouts{}
	}

	overrides := make(map[string]PhaseOverride, len(c.Phases))
	for _, o := range c.Phases {
		overrides[o.ID] = o
	}

	phases := registry.DefaultPhases()
	for i := range phases {
		p := &phases[i]
		o, hasOverride := overrides[p.ID]

		if hasOverride {
			if err := applyOverride(p, o); err != nil {
				return nil, err
			}
		}
		c.resolveBuiltin(p, o)

		if p.Forward.Remote && c.Node.Host == "" {
			return nil, fmt.Errorf("phase %q runs remotely but node.host is not set", p.ID)
		}

		switch {
		case t.Phase[p.ID] > 0:
			p.Timeout = t.Phase[p.ID]
		case o.Timeout > 0:
			p.Timeout = o.Timeout
		case t.Default > 0:
			p.Timeout = t.Default
		}
	}

	reg, err := registry.New(phases)
	if err != nil {
		return nil, fmt.Errorf("invalid phase table: %w", err)
	}
	return reg, nil
}

func applyOverride(p *registry.Phase, o PhaseOverride) error {
	if o.Kind != "" {
		p.Forward.Kind = registry.Kind(o.Kind)
	}
	if o.Command != "" {
		p.Forward.Command = o.Command
		if o.Kind == "" {
			p.Forward.Kind = registry.KindCommand
		}
	}
	if o.Args != nil {
		p.Forward.Args = append([]string(nil), o.Args...)
	}

	if o.RollbackCommand != "" {
		p.Rollback = &registry.Action{Kind: registry.KindCommand, Command: o.RollbackCommand}
	}
	if o.RollbackArgs != nil {
		if p.Rollback == nil {
			return fmt.Errorf("phase %q: rollback_args set but the phase has no rollback action", p.ID)
		}
		p.Rollback.Args = append([]string(nil), o.RollbackArgs...)
	}

	if o.Remote != nil {
		p.Forward.Remote = *o.Remote
		if p.Rollback != nil {
			p.Rollback.Remote = *o.Remote
		}
	}
	if o.Retries != nil {
		p.Retries = *o.Retries
	}
	if o.Skippable != nil {
		p.Skippable = *o.Skippable
	}
	if o.AutoFix != nil {
		p.AutoFix = *o.AutoFix
	}
	return nil
}

// resolveBuiltin turns built-in script names into paths and resolves
// relative override paths.
func (c *Config) resolveBuiltin(p *registry.Phase, o PhaseOverride) {
	p.Forward.Command = c.commandPath(p.Forward, o.Command == "")
	if p.Rollback != nil {
		p.Rollback.Command = c.commandPath(*p.Rollback, o.RollbackCommand == "")
	}
}

func (c *Config) commandPath(a registry.Action, builtin bool) string {
	if a.Kind != registry.KindCommand || a.Command == "" || filepath.IsAbs(a.Command) {
		return a.Command
	}
	if builtin {
		if a.Remote {
			return filepath.Join(c.ScriptsDir, a.Command)
		}
		return filepath.Join(c.ScriptsPath(), a.Command)
	}
	if a.Remote || !strings.ContainsRune(a.Command, '/') {
		return a.Command
	}
	return c.Path(a.Command)
}
