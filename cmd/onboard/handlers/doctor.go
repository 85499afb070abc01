package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/imamik/onboard/internal/platform/k8s"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
	"github.com/imamik/onboard/internal/util/prerequisites"
)

// DoctorOptions holds the flags of the doctor command.
type DoctorOptions struct {
	GlobalOptions
	JSON bool
}

// Check outcomes.
const (
	CheckOK   = "ok"
	CheckFail = "fail"
	CheckWarn = "warn"
	CheckSkip = "skip"
)

// DoctorCheck is the outcome of one check.
type DoctorCheck struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// DoctorReport collects every check of one doctor run.
type DoctorReport struct {
	ConfigFile string        `json:"configFile,omitempty"`
	Node       string        `json:"node,omitempty"`
	Checks     []DoctorCheck `json:"checks"`
}

// Failed reports whether any check failed.
func (r *DoctorReport) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}

func (r *DoctorReport) add(group, name, status, detail string) {
	r.Checks = append(r.Checks, DoctorCheck{Group: group, Name: name, Status: status, Detail: detail})
}

// errDoctorFailed is returned when at least one doctor check failed.
var errDoctorFailed = errors.New("doctor found problems")

// doctorProbeTimeout bounds each network probe.
const doctorProbeTimeout = 10 * time.Second

// Doctor checks that a run can start: tools, phase commands, configuration,
// saved state and the external services the phase table uses.
func Doctor(ctx context.Context, opts DoctorOptions) error {
	s, err := openSession(opts.GlobalOptions, false)
	if err != nil {
		return err
	}

	rep := &DoctorReport{ConfigFile: s.cfg.Source, Node: s.cfg.Node.Name}
	checkToolGroup(rep, "tools", append(prerequisites.DefaultTools(), prerequisites.OptionalTools()...))
	checkToolGroup(rep, "phase commands", prerequisites.PhaseTools(s.registry))
	checkConfig(rep, s)
	checkState(rep, s)
	checkCluster(ctx, rep, s)
	checkHCloud(rep, s)
	checkSSH(ctx, rep, s)
	checkReportBucket(ctx, rep, s)

	if opts.JSON {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal doctor report: %w", err)
		}
		fmt.Println(string(data))
	} else {
		printDoctor(rep)
	}

	if rep.Failed() {
		return errDoctorFailed
	}
	return nil
}

func checkToolGroup(rep *DoctorReport, group string, tools []prerequisites.Tool) {
	results := checkTools(tools)
	for _, r := range results.Results {
		switch {
		case r.Found:
			detail := r.Path
			if r.Version != "" {
				detail += " (" + r.Version + ")"
			}
			rep.add(group, r.Tool.Name, CheckOK, detail)
		case r.Tool.Required:
			detail := r.Problem
			if r.Tool.InstallURL != "" {
				detail += "; install: " + r.Tool.InstallURL
			}
			rep.add(group, r.Tool.Name, CheckFail, detail)
		default:
			rep.add(group, r.Tool.Name, CheckWarn, r.Tool.Description)
		}
	}
}

func checkConfig(rep *DoctorReport, s *session) {
	source := s.cfg.Source
	if source == "" {
		source = "built-in defaults (no onboard.yaml found)"
	}
	rep.add("config", "configuration", CheckOK, source)
	if err := s.cfg.RequireNode(); err != nil {
		rep.add("config", "node", CheckFail, err.Error())
	} else {
		rep.add("config", "node", CheckOK, s.cfg.Node.Name)
	}
}

func checkState(rep *DoctorReport, s *session) {
	st, err := s.store.Load()
	switch {
	case errors.Is(err, state.ErrNoState):
		rep.add("state", "state file", CheckOK, "none (fresh run)")
	case errors.Is(err, state.ErrStateCorruption):
		rep.add("state", "state file", CheckFail, err.Error()+"; inspect it or run 'onboard cleanup'")
	case err != nil:
		rep.add("state", "state file", CheckFail, err.Error())
	case st.AllCompleted():
		rep.add("state", "state file", CheckOK, "onboarding complete")
	default:
		st.Recount()
		rep.add("state", "state file", CheckWarn, fmt.Sprintf("%d/%d phases completed; use --resume, --rollback or 'onboard cleanup'",
			st.CompletedCount, st.TotalPhases))
	}
}

func usesKind(reg *registry.Registry, kind registry.Kind) bool {
	for _, p := range reg.Phases() {
		if p.Forward.Kind == kind {
			return true
		}
	}
	return false
}

func usesRemote(reg *registry.Registry) bool {
	for _, p := range reg.Phases() {
		if p.Forward.Remote || (p.Rollback != nil && p.Rollback.Remote) {
			return true
		}
	}
	return false
}

func checkCluster(ctx context.Context, rep *DoctorReport, s *session) {
	if !usesKind(s.registry, registry.KindKubeNodeReady) {
		rep.add("services", "kubernetes", CheckSkip, "no phase polls the cluster")
		return
	}
	client, err := newKubeClient(s.cfg.Path(s.cfg.Kubeconfig))
	if err != nil {
		rep.add("services", "kubernetes", CheckFail, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	v, err := k8s.ServerVersion(ctx, client)
	if err != nil {
		rep.add("services", "kubernetes", CheckFail, err.Error())
		return
	}
	rep.add("services", "kubernetes", CheckOK, "API server "+v)
}

func checkHCloud(rep *DoctorReport, s *session) {
	if !usesKind(s.registry, registry.KindHCloudServerRunning) {
		rep.add("services", "hetzner cloud", CheckSkip, "no phase checks the server")
		return
	}
	if os.Getenv(s.cfg.HCloud.TokenEnv) == "" {
		rep.add("services", "hetzner cloud", CheckFail, s.cfg.HCloud.TokenEnv+" is not set")
		return
	}
	rep.add("services", "hetzner cloud", CheckOK, "token set in "+s.cfg.HCloud.TokenEnv)
}

func checkSSH(ctx context.Context, rep *DoctorReport, s *session) {
	if !usesRemote(s.registry) {
		rep.add("services", "ssh", CheckSkip, "no phase runs remotely")
		return
	}
	if s.cfg.SSH.KeyFile == "" {
		rep.add("services", "ssh", CheckFail, "ssh.key_file is not set")
		return
	}
	if _, err := os.Stat(s.cfg.Path(s.cfg.SSH.KeyFile)); err != nil {
		rep.add("services", "ssh", CheckFail, err.Error())
		return
	}
	detail := fmt.Sprintf("%s@%s:%d", s.cfg.SSH.User, s.cfg.Node.Host, s.cfg.SSH.Port)
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	if err := checkPort(ctx, s.cfg.Node.Host, s.cfg.SSH.Port); err != nil {
		rep.add("services", "ssh", CheckFail, err.Error())
		return
	}
	if s.cfg.SSH.KnownHosts == "" {
		rep.add("services", "ssh", CheckWarn, detail+"; host key is not verified (ssh.known_hosts unset)")
		return
	}
	rep.add("services", "ssh", CheckOK, detail)
}

func checkReportBucket(ctx context.Context, rep *DoctorReport, s *session) {
	s3cfg := s.cfg.Report.S3
	if s3cfg == nil {
		rep.add("services", "report bucket", CheckSkip, "report.s3 is not configured")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()
	pub, err := newPublisher(ctx, s3cfg)
	if err == nil {
		err = pub.Check(ctx)
	}
	if err != nil {
		rep.add("services", "report bucket", CheckFail, err.Error())
		return
	}
	rep.add("services", "report bucket", CheckOK, "s3://"+s3cfg.Bucket)
}

func printDoctor(rep *DoctorReport) {
	fmt.Println()
	title := "onboard doctor"
	if rep.Node != "" {
		title += ": " + rep.Node
	}
	fmt.Printf("  %s\n", title)
	fmt.Println("  " + strings.Repeat("═", len(title)))

	group := ""
	for _, c := range rep.Checks {
		if c.Group != group {
			group = c.Group
			fmt.Printf("\n  %s\n", group)
		}
		printCheck(c)
	}
	fmt.Println()
}

func printCheck(c DoctorCheck) {
	mark := map[string]string{
		CheckOK:   "[OK]",
		CheckFail: "[!!]",
		CheckWarn: "[..]",
		CheckSkip: "[--]",
	}[c.Status]
	if c.Detail != "" {
		fmt.Printf("  %s %-20s %s\n", mark, c.Name, c.Detail)
	} else {
		fmt.Printf("  %s %s\n", mark, c.Name)
	}
}
