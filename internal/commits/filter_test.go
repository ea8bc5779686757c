package commits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustParse(t *testing.T, msg string) Commit {
	t.Helper()
	c, ok := Parse("deadbeef", msg)
	if !ok {
		t.Fatalf("failed to parse %q", msg)
	}
	return c
}

func TestAppliesToScopes(t *testing.T) {
	projects := []string{"a", "b", "c", "api"}

	global := mustParse(t, "fix: global")
	wildcard := mustParse(t, "fix(*): everywhere")
	for _, p := range projects {
		assert.True(t, global.AppliesTo(p), "unscoped commit applies to %s", p)
		assert.True(t, wildcard.AppliesTo(p), "wildcard commit applies to %s", p)
	}

	multi := mustParse(t, "feat(a, b): shared")
	assert.True(t, multi.AppliesTo("a"))
	assert.True(t, multi.AppliesTo("b"))
	assert.False(t, multi.AppliesTo("c"))

	caseSensitive := mustParse(t, "feat(API): upper")
	assert.False(t, caseSensitive.AppliesTo("api"))
}

func TestSkipOverridesScope(t *testing.T) {
	c := mustParse(t, "fix(a,b): patch both [skip b]")
	assert.True(t, c.AppliesTo("a"))
	assert.False(t, c.AppliesTo("b"))

	all := mustParse(t, "chore: bump tooling\n\n[skip all]")
	assert.False(t, all.AppliesTo("a"))
	assert.False(t, all.AppliesTo("anything"))
}

func TestTargetOverridesScope(t *testing.T) {
	c := mustParse(t, "feat(a): really for c [target c, d]")
	assert.False(t, c.AppliesTo("a"), "target excludes the scope's project")
	assert.True(t, c.AppliesTo("c"))
	assert.True(t, c.AppliesTo("d"))

	only := mustParse(t, "fix: only web [only web]")
	assert.True(t, only.AppliesTo("web"))
	assert.False(t, only.AppliesTo("api"))
}

func TestSkipWinsOverTarget(t *testing.T) {
	c := mustParse(t, "fix: both [target a,b] [skip b]")
	assert.True(t, c.AppliesTo("a"))
	assert.False(t, c.AppliesTo("b"))
}

func TestFilterForProjectKeepsOrder(t *testing.T) {
	cs := []Commit{
		mustParse(t, "feat(api): one"),
		mustParse(t, "feat(web): two"),
		mustParse(t, "fix: three"),
	}
	got := FilterForProject(cs, "api")
	if assert.Len(t, got, 2) {
		assert.Equal(t, "one", got[0].Subject)
		assert.Equal(t, "three", got[1].Subject)
	}
}
