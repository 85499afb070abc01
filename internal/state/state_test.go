package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIDs = []string{"one", "two", "three"}

func TestNew_AllNotStarted(t *testing.T) {
	t.Parallel()
	st := New(testIDs)

	assert.Equal(t, 3, st.TotalPhases)
	assert.Zero(t, st.CompletedCount)
	assert.Zero(t, st.FailedCount)
	for _, id := range testIDs {
		assert.Equal(t, StatusNotStarted, st.Status(id))
		assert.Empty(t, st.Error(id))
	}
	assert.Equal(t, testIDs, st.PhaseIDs())
}

func TestTransitions(t *testing.T) {
	t.Parallel()
	st := New(testIDs)

	require.NoError(t, st.Begin("one"))
	assert.Equal(t, StatusInProgress, st.Status("one"))
	assert.Equal(t, "one", st.CurrentPhase)

	require.NoError(t, st.Complete("one", ""))
	require.NoError(t, st.Begin("two"))
	require.NoError(t, st.Fail("two", "boom"))
	st.Recount()

	assert.Equal(t, 1, st.CompletedCount)
	assert.Equal(t, 1, st.FailedCount)
	assert.Equal(t, "two", st.FailedPhase())
	assert.Equal(t, []string{"one"}, st.CompletedPhases())
	assert.Equal(t, "boom", st.Error("two"))
	assert.False(t, st.AllCompleted())

	require.Error(t, st.Begin("four"))
}

func TestComplete_ClearsError(t *testing.T) {
	t.Parallel()
	st := New(testIDs)
	require.NoError(t, st.Fail("one", "API unreachable."))
	require.NoError(t, st.Complete("one", ""))

	assert.Empty(t, st.Error("one"))
}

func TestAllCompleted(t *testing.T) {
	t.Parallel()
	st := New(testIDs)
	for _, id := range testIDs {
		require.NoError(t, st.Complete(id, ""))
	}
	assert.True(t, st.AllCompleted())
	assert.Empty(t, st.FailedPhase())
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()
	st := New(testIDs)
	c := st.Clone()
	require.NoError(t, c.Fail("one", "x"))

	assert.Equal(t, StatusNotStarted, st.Status("one"))
	assert.Empty(t, st.Error("one"))
}

func TestStatus_Valid(t *testing.T) {
	t.Parallel()
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, Status("done").Valid())
}
