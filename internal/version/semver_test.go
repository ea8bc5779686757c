package version

import (
	stderrors "errors"
	"testing"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement(t *testing.T) {
	tests := []struct {
		current string
		bump    Bump
		preID   string
		want    string
	}{
		{"1.2.3", BumpMajor, "", "2.0.0"},
		{"1.2.3", BumpMinor, "", "1.3.0"},
		{"1.2.3", BumpPatch, "", "1.2.4"},
		{"1.2.0", BumpPrerelease, "beta", "1.2.1-beta.0"},
		{"1.2.1-beta.0", BumpPrerelease, "beta", "1.2.1-beta.1"},
		{"1.2.1-beta.9", BumpPrerelease, "beta", "1.2.1-beta.10"},
		{"1.2.1-alpha.3", BumpPrerelease, "beta", "1.2.1-beta.0"},
		{"1.2.1-beta.3", BumpPrerelease, "alpha", "1.2.2-alpha.0"},
		{"1.2.0", BumpPrerelease, "", "1.2.1-0"},
		{"1.2.1-0", BumpPrerelease, "", "1.2.1-1"},
		{"1.2.1-rc", BumpPrerelease, "", "1.2.1-rc.0"},
		{"2.0.0-beta.1", BumpPatch, "", "2.0.0"},
		{"v1.0.0", BumpMinor, "", "1.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.current+"/"+string(tt.bump)+"/"+tt.preID, func(t *testing.T) {
			got, err := Increment(tt.current, tt.bump, tt.preID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIncrementIsMonotonic(t *testing.T) {
	currents := []string{"0.0.1", "0.1.0", "1.0.0", "1.2.3", "3.0.0-rc.1", "1.2.1-beta.0", "9.9.9-0"}
	bumps := []Bump{BumpMajor, BumpMinor, BumpPatch, BumpPrerelease}
	preIDs := []string{"", "alpha", "beta", "rc"}

	for _, current := range currents {
		for _, bump := range bumps {
			for _, pre := range preIDs {
				next, err := Increment(current, bump, pre)
				require.NoError(t, err)
				cmp, err := Compare(next, current)
				require.NoError(t, err)
				assert.Equal(t, 1, cmp, "%s +%s(%s) = %s should be greater", current, bump, pre, next)
			}
		}
	}
}

func TestIncrementRejectsInvalid(t *testing.T) {
	_, err := Increment("not-a-version", BumpPatch, "")
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	_, err = Increment("1.0.0", Bump("huge"), "")
	assert.Error(t, err)
}

func TestFirstReleaseVersion(t *testing.T) {
	for bump, want := range map[Bump]string{
		BumpMajor:      "1.0.0",
		BumpMinor:      "0.1.0",
		BumpPatch:      "0.0.1",
		BumpPrerelease: "0.0.1-0",
	} {
		got, err := FirstReleaseVersion(bump, "")
		require.NoError(t, err)
		assert.Equal(t, want, got, "bump %s", bump)
	}
}

func TestParseBump(t *testing.T) {
	b, err := ParseBump(" Minor ")
	require.NoError(t, err)
	assert.Equal(t, BumpMinor, b)

	b, err = ParseBump("")
	require.NoError(t, err)
	assert.Equal(t, BumpNone, b)

	_, err = ParseBump("giant")
	assert.True(t, stderrors.Is(err, errs.ErrValidation))
}

func TestMaxAndIsZero(t *testing.T) {
	got, err := Max([]string{"1.0.0", "", "1.2.0", "1.1.0", "1.2.0-rc.1"})
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", got)

	_, err = Max(nil)
	assert.Error(t, err)

	assert.True(t, IsZero(""))
	assert.True(t, IsZero("0.0.0"))
	assert.False(t, IsZero("0.0.1"))
}

func TestStripPrefix(t *testing.T) {
	tests := map[string]string{
		"v1.2.3":            "1.2.3",
		"api@1.2.0":         "1.2.0",
		"backend-v2.0.0":    "2.0.0",
		"web2@3.1.4":        "3.1.4",
		"pkg@1.0.0-beta.1":  "1.0.0-beta.1",
		"release-10.20.30":  "10.20.30",
	}
	for tag, want := range tests {
		got, ok := StripPrefix(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}

	_, ok := StripPrefix("latest")
	assert.False(t, ok)
}
