package version

import (
	stderrors "errors"
	"testing"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unchanged(project, v string) Result {
	return Result{Project: project, Previous: v, Version: v, Skipped: true, Outcome: OutcomeNotAffected}
}

func TestSyncHighestAlignsEveryProject(t *testing.T) {
	results := []Result{
		unchanged("a", "1.0.0"),
		unchanged("b", "1.2.0"),
		unchanged("c", "1.1.0"),
	}

	out, shared, err := Sync(SyncOptions{Strategy: SyncHighest}, results)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", shared)
	for _, r := range out {
		assert.Equal(t, "1.2.0", r.Version, r.Project)
	}
	assert.False(t, out[0].Skipped, "a moved from 1.0.0")
	assert.True(t, out[1].Skipped, "b already at the shared version")
}

func TestSyncHighestWithExtraBump(t *testing.T) {
	results := []Result{
		{Project: "a", Previous: "1.0.0", Version: "1.0.1"},
		unchanged("b", "1.2.0"),
	}
	out, shared, err := Sync(SyncOptions{Strategy: SyncHighest, ExtraBump: BumpMinor}, results)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", shared)
	assert.Equal(t, "1.3.0", out[1].Version)
}

func TestSyncBumpCopiesPrimary(t *testing.T) {
	results := []Result{
		{Project: "core", Previous: "2.0.0", Version: "2.1.0"},
		{Project: "cli", Previous: "2.0.0", Version: "3.0.0"},
	}
	out, shared, err := Sync(SyncOptions{Strategy: SyncBump, Primary: "core"}, results)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", shared)
	assert.Equal(t, "2.1.0", out[1].Version)
}

func TestSyncErrors(t *testing.T) {
	results := []Result{{Project: "core", Version: "1.0.0"}}

	_, _, err := Sync(SyncOptions{Strategy: SyncBump, Primary: "ghost"}, results)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	_, _, err = Sync(SyncOptions{Strategy: "random"}, results)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	lower := []Result{
		{Project: "a", Previous: "1.0.0", Version: "1.1.0"},
		{Project: "b", Previous: "2.0.0", Version: "2.1.0"},
	}
	_, _, err = Sync(SyncOptions{Strategy: SyncBump, Primary: "a"}, lower)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))
	project, _ := errs.ContextValue(err, "project")
	assert.Equal(t, "b", project)
	assert.Contains(t, err.Error(), "2.0.0")

	_, shared, err := Sync(SyncOptions{Strategy: SyncBump, Primary: "a", AllowLower: true}, lower)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", shared)
}

func TestSyncEmpty(t *testing.T) {
	out, shared, err := Sync(SyncOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, shared)
}

func TestTargetsCascade(t *testing.T) {
	g := graph.New(map[string][]string{
		"api": {"core"},
		"web": {"api"},
		"cli": nil,
	})

	assert.Equal(t, []string{"core", "api", "web"}, Targets(g, []string{"core"}, true))
	assert.Equal(t, []string{"core"}, Targets(g, []string{"core"}, false))
	assert.Equal(t, []string{"x"}, Targets(nil, []string{"x"}, true))
}

func TestResolveEachCollectsFailures(t *testing.T) {
	results, failures := ResolveEach([]Input{
		{Project: "ok", Current: "1.0.0", Bump: BumpPatch},
		{Project: "bad", Current: "1.0.0", Affected: true},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "1.0.1", results[0].Version)
	assert.Contains(t, failures, "bad")
}
