package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/state"
	tu "github.com/imamik/onboard/internal/testing"
)

func TestFileName(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "onboarding-report-worker-1-20260304-050607.md", FileName("worker-1", ts))
	assert.Equal(t, "onboarding-report-unknown-20260304-050607.md", FileName("", ts))
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	reg := tu.NewRegistryBuilder().WithPhases(3).MustBuild()
	st := state.New(reg.IDs())
	require.NoError(t, st.Complete("phase_1", onboarding.SkipNote))
	require.NoError(t, st.Fail("phase_2", "exit status 2: no route to host"))
	st.Recount()

	out := New(reg, "worker-1").Markdown(st, Meta{
		RunID:       "run-123",
		GeneratedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		StatePath:   "/var/lib/onboard/state.json",
		Results: []onboarding.PhaseResult{
			{PhaseID: "phase_2", Attempts: 3, Duration: 1500 * time.Millisecond},
			{PhaseID: "phase_2", Attempts: 1, Rollback: true},
		},
	})

	assert.Contains(t, out, "# Onboarding report: worker-1")
	assert.Contains(t, out, "| Run ID | `run-123` |")
	assert.Contains(t, out, "| Generated | 2026-03-04T05:06:07Z |")
	assert.Contains(t, out, "| Progress | 1/3 completed, 1 failed |")
	assert.Contains(t, out, "| Current phase | `phase_2` |")
	assert.Contains(t, out, "| 2 | Phase 2 (`phase_2`) | failed | 3 | 1.5s |")
	assert.Contains(t, out, "| 3 | Phase 3 (`phase_3`) | not_started |  |  |")
	assert.Contains(t, out, "### phase_2\n\n```\nexit status 2: no route to host\n```")
	assert.Contains(t, out, "- `phase_1`: "+onboarding.SkipNote)
}

func TestMarkdownWithoutState(t *testing.T) {
	t.Parallel()

	reg := tu.NewRegistryBuilder().WithPhases(1).MustBuild()
	out := New(reg, "n").Markdown(nil, Meta{DryRun: true})
	assert.Contains(t, out, "No onboarding state recorded.")
	assert.Contains(t, out, "| Mode | dry run |")
}

func TestWrite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := Write(dir, "worker-1", ts, "# hello\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "onboarding-report-worker-1-20260304-050607.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# hello\n", string(data))
}

type recordingPublisher struct {
	key, contentType string
	body             []byte
	err              error
}

func (p *recordingPublisher) Put(_ context.Context, key string, body []byte, contentType string) (string, error) {
	p.key, p.body, p.contentType = key, body, contentType
	if p.err != nil {
		return "", p.err
	}
	return "s3://bucket/" + key, nil
}

func TestPublish(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "onboarding-report-n-20260101-000000.md")
	require.NoError(t, os.WriteFile(file, []byte("# report"), 0o600))

	t.Run("uploads under prefix", func(t *testing.T) {
		t.Parallel()
		p := &recordingPublisher{}
		loc, err := Publish(tu.TestContext(t), p, "reports/node", file)
		require.NoError(t, err)
		assert.Equal(t, "s3://bucket/reports/node/onboarding-report-n-20260101-000000.md", loc)
		assert.Equal(t, ContentType, p.contentType)
		assert.Equal(t, "# report", string(p.body))
	})

	t.Run("wraps publisher errors", func(t *testing.T) {
		t.Parallel()
		p := &recordingPublisher{err: errors.New("access denied")}
		_, err := Publish(tu.TestContext(t), p, "", file)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access denied")
		assert.Contains(t, err.Error(), "onboarding-report-n-20260101-000000.md")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Publish(tu.TestContext(t), &recordingPublisher{}, "", filepath.Join(t.TempDir(), "nope.md"))
		require.Error(t, err)
	})
}
