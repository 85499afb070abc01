// Package prerequisites checks that the tools and phase scripts an onboarding
// run depends on are available before anything is executed.
package prerequisites

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Tool represents a binary or script that may be required.
type Tool struct {
	// Name is a binary name looked up in PATH, or a path to a script.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs, when set, are passed to the tool to report its version.
	VersionArgs []string
}

// DefaultTools returns the tools the bundled phase scripts rely on.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        "kubectl",
			Required:    true,
			Description: "Used by phase scripts to join, label and inspect the node",
			InstallURL:  "https://kubernetes.io/docs/tasks/tools/",
			VersionArgs: []string{"version", "--client"},
		},
		{
			Name:        "git",
			Required:    true,
			Description: "Used by the GitOps registration phase to commit node manifests",
			InstallURL:  "https://git-scm.com/downloads",
			VersionArgs: []string{"--version"},
		},
	}
}

// OptionalTools returns tools that are useful but not required.
func OptionalTools() []Tool {
	return []Tool{
		{
			Name:        "flux",
			Required:    false,
			Description: "Useful for inspecting GitOps reconciliation by hand",
			InstallURL:  "https://fluxcd.io/flux/installation/",
			VersionArgs: []string{"--version"},
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
	Problem string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if !tool.Required {
			continue
		}
		if tool.InstallURL != "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		} else {
			missing = append(missing, tool.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := locate(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			if len(tool.VersionArgs) > 0 {
				result.Version = getToolVersion(path, tool.VersionArgs)
			}
		} else {
			result.Problem = err.Error()
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// locate resolves bare names through PATH and checks explicit paths directly.
func locate(name string) (string, error) {
	if !strings.ContainsRune(name, filepath.Separator) && !strings.Contains(name, "/") {
		return exec.LookPath(name)
	}

	info, err := os.Stat(name)
	if err != nil {
		return "", fmt.Errorf("not found: %s", name)
	}
	if info.IsDir() {
		return "", fmt.Errorf("is a directory: %s", name)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("not executable: %s", name)
	}
	return name, nil
}

// getToolVersion returns the first line of the tool's version output, or "".
func getToolVersion(path string, args []string) string {
	// #nosec G204 - path and args come from trusted Tool definitions
	output, err := exec.Command(path, args...).Output()
	if err != nil {
		return ""
	}
	lines := strings.Split(string(output), "\n")
	return strings.TrimSpace(lines[0])
}
