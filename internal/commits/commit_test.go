package commits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantType string
		scope    string
		subject  string
		breaking bool
	}{
		{"plain", "feat: add endpoint", "feat", "", "add endpoint", false},
		{"scoped", "fix(api): null check", "fix", "api", "null check", false},
		{"breaking bang", "feat(api)!: drop v1", "feat", "api", "drop v1", true},
		{"bang no scope", "feat!: remove old api", "feat", "", "remove old api", true},
		{"type lowercased", "FEAT(Web): Shiny", "feat", "Web", "Shiny", false},
		{"scope trimmed", "chore( a, b ): tidy  ", "chore", "a, b", "tidy", false},
		{"wildcard", "docs(*): everywhere", "docs", "*", "everywhere", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Parse("abc1234def", tt.message)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.scope, c.Scope)
			assert.Equal(t, tt.subject, c.Subject)
			assert.Equal(t, tt.breaking, c.Breaking)
			assert.Equal(t, "abc1234def", c.Hash)
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, msg := range []string{
		"update readme",
		": no type",
		"(api): no type either",
		"feat(api) missing colon",
		"feat: ",
		"",
		"Merge branch 'main' into feature",
	} {
		_, ok := Parse("h", msg)
		assert.False(t, ok, "expected %q to be rejected", msg)
	}
}

func TestParseBreakingChangeInBody(t *testing.T) {
	msg := "refactor(core): rework config\n\nLonger explanation.\n\nBREAKING CHANGE: config keys renamed"
	c, ok := Parse("h", msg)
	require.True(t, ok)

	assert.True(t, c.Breaking)
	assert.Equal(t, "config keys renamed", c.BreakingMessage)
	assert.Equal(t, "BREAKING CHANGE: config keys renamed", c.Footer)
}

func TestParseBangAndBodyBothSetBreaking(t *testing.T) {
	msg := "feat!: new auth\n\nBREAKING CHANGE: tokens expire\nBREAKING CHANGE: second"
	c, ok := Parse("h", msg)
	require.True(t, ok)
	assert.True(t, c.Breaking)
	assert.Equal(t, "tokens expire", c.BreakingMessage)
}

func TestParseFooter(t *testing.T) {
	c, ok := Parse("h", "fix: thing\n\nsingle paragraph body")
	require.True(t, ok)
	assert.Equal(t, "single paragraph body", c.Body)
	assert.Empty(t, c.Footer, "a body without a trailing blank-line block has no footer")

	c, ok = Parse("h", "fix: thing\n\nbody\n\nRefs: #12\nReviewed-by: z\n")
	require.True(t, ok)
	assert.Equal(t, "Refs: #12\nReviewed-by: z", c.Footer)
	assert.False(t, c.Breaking)
}

func TestParseLog(t *testing.T) {
	raw := "aaa1111\x1ffeat(api): add endpoint\n\x1e\n" +
		"bbb2222\x1fWIP do not merge\n\x1e\n" +
		"ccc3333\x1ffix(api): null check\n\nbody text\n\x1e\n"

	parsed, skipped := ParseLog(raw)
	require.Len(t, parsed, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "aaa1111", parsed[0].Hash)
	assert.Equal(t, "fix", parsed[1].Type)
	assert.Equal(t, "body text", parsed[1].Body)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abcdef1", Commit{Hash: "abcdef1234567"}.ShortHash())
	assert.Equal(t, "abc", Commit{Hash: "abc"}.ShortHash())
}

func TestHasHelpers(t *testing.T) {
	cs := []Commit{{Type: "fix"}, {Type: "docs"}}
	assert.True(t, HasType(cs, "fix"))
	assert.False(t, HasType(cs, "feat"))
	assert.False(t, HasBreaking(cs))
	assert.True(t, HasBreaking(append(cs, Commit{Type: "feat", Breaking: true})))
}
