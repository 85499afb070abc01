package prerequisites

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheck_FoundInPath(t *testing.T) {
	t.Parallel()
	// Different environments have different tools available.
	possibleTools := []string{"sh", "ls", "cat"}

	var foundTool string
	for _, tool := range possibleTools {
		results := Check([]Tool{{Name: tool}})
		if results.Results[0].Found {
			foundTool = tool
			break
		}
	}
	if foundTool == "" {
		t.Skip("no common tools found in PATH, skipping test")
	}

	results := Check([]Tool{{Name: foundTool, Required: true}})
	if !results.Results[0].Found {
		t.Errorf("expected %s to be found", foundTool)
	}
	if results.Results[0].Path == "" {
		t.Error("expected path to be set")
	}
	if results.HasErrors() {
		t.Error("expected no errors")
	}
	if results.Error() != nil {
		t.Errorf("expected nil error, got %v", results.Error())
	}
}

func TestCheck_MissingRequired(t *testing.T) {
	t.Parallel()
	results := Check([]Tool{{
		Name:       "nonexistent-tool-onboard-xyz",
		Required:   true,
		InstallURL: "https://example.com",
	}})

	if results.Results[0].Found {
		t.Error("expected tool not to be found")
	}
	if len(results.Missing) != 1 {
		t.Errorf("expected 1 missing tool, got %d", len(results.Missing))
	}
	if !results.HasErrors() {
		t.Error("expected errors for missing required tool")
	}
	if err := results.Error(); err == nil || err.Error() != "missing required tools: nonexistent-tool-onboard-xyz (https://example.com)" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheck_MissingOptional(t *testing.T) {
	t.Parallel()
	results := Check([]Tool{{Name: "nonexistent-tool-onboard-xyz"}})

	if results.HasErrors() {
		t.Error("optional tools must not produce errors")
	}
	if results.Error() != nil {
		t.Errorf("expected nil error, got %v", results.Error())
	}
}

func TestCheck_ScriptPaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exe := filepath.Join(dir, "join-cluster.sh")
	plain := filepath.Join(dir, "notes.sh")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results := Check([]Tool{
		{Name: exe, Required: true},
		{Name: plain, Required: true},
		{Name: filepath.Join(dir, "missing.sh"), Required: true},
		{Name: dir, Required: true},
	})

	if !results.Results[0].Found {
		t.Errorf("expected executable script to be found: %s", results.Results[0].Problem)
	}
	wantProblems := []string{"not executable", "not found", "is a directory"}
	for i, want := range wantProblems {
		r := results.Results[i+1]
		if r.Found {
			t.Errorf("result %d: expected not found", i+1)
		}
		if len(r.Problem) < len(want) || r.Problem[:len(want)] != want {
			t.Errorf("result %d: expected problem %q, got %q", i+1, want, r.Problem)
		}
	}
	if len(results.Missing) != 3 {
		t.Errorf("expected 3 missing, got %d", len(results.Missing))
	}
}

func TestDefaultTools(t *testing.T) {
	t.Parallel()
	tools := DefaultTools()
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
		if !tool.Required {
			t.Errorf("default tool %s should be required", tool.Name)
		}
	}
	if !names["kubectl"] || !names["git"] {
		t.Errorf("expected kubectl and git in default tools, got %v", names)
	}
}

func TestOptionalTools(t *testing.T) {
	t.Parallel()
	for _, tool := range OptionalTools() {
		if tool.Required {
			t.Errorf("optional tool %s marked required", tool.Name)
		}
	}
}
