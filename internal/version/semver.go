// Package version resolves the next semantic version of a project from its
// commit history, cascades resolution across dependents, synchronizes shared
// versions and persists the result into version files.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	errs "github.com/rohankatakam/monorel/internal/errors"
)

// Bump is the semantic-version component to increment.
type Bump string

const (
	BumpNone       Bump = ""
	BumpMajor      Bump = "major"
	BumpMinor      Bump = "minor"
	BumpPatch      Bump = "patch"
	BumpPrerelease Bump = "prerelease"
)

// ParseBump validates a bump name. The empty string is BumpNone.
func ParseBump(s string) (Bump, error) {
	switch b := Bump(strings.ToLower(strings.TrimSpace(s))); b {
	case BumpNone, BumpMajor, BumpMinor, BumpPatch, BumpPrerelease:
		return b, nil
	default:
		return BumpNone, errs.ValidationErrorf("invalid bump type %q (want major, minor, patch or prerelease)", s)
	}
}

// Zero is the version a project implicitly starts from.
const Zero = "0.0.0"

var semverSearch = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?`)

// Parse strictly parses a semantic version. A leading "v" is accepted.
func Parse(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if err != nil {
		return nil, errs.ConfigErrorf("invalid semantic version %q: %v", s, err).WithContext("version", s)
	}
	return v, nil
}

// Valid reports whether s is a well-formed semantic version.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// IsZero reports whether s is absent or 0.0.0.
func IsZero(s string) bool {
	if s == "" {
		return true
	}
	v, err := Parse(s)
	return err == nil && v.Equal(semver.MustParse(Zero))
}

// Increment applies bump to current. For BumpPrerelease, preID names the
// pre-release identifier; repeated calls with the same identifier increment
// its numeric suffix. The result is always strictly greater than current.
func Increment(current string, bump Bump, preID string) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}

	var next semver.Version
	switch bump {
	case BumpMajor:
		next = v.IncMajor()
	case BumpMinor:
		next = v.IncMinor()
	case BumpPatch:
		next = v.IncPatch()
	case BumpPrerelease:
		return incrementPrerelease(v, preID)
	default:
		return "", errs.ValidationErrorf("cannot increment %s by %q", current, bump)
	}
	return next.String(), nil
}

func incrementPrerelease(v *semver.Version, preID string) (string, error) {
	base := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())

	var pre string
	if v.Prerelease() == "" {
		base = fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()+1)
		pre = freshPrerelease(preID)
	} else {
		pre = nextPrerelease(v.Prerelease(), preID)
	}

	candidate, err := Parse(base + "-" + pre)
	if err != nil {
		return "", errs.ValidationErrorf("invalid pre-release identifier %q", preID)
	}
	if !candidate.GreaterThan(v) {
		// switching to an identifier that sorts lower than the current one
		candidate, err = Parse(fmt.Sprintf("%d.%d.%d-%s", v.Major(), v.Minor(), v.Patch()+1, freshPrerelease(preID)))
		if err != nil {
			return "", err
		}
	}
	return candidate.String(), nil
}

func freshPrerelease(preID string) string {
	if preID == "" {
		return "0"
	}
	return preID + ".0"
}

func nextPrerelease(current, preID string) string {
	parts := strings.Split(current, ".")

	if preID != "" && parts[0] != preID {
		return preID + ".0"
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if n, err := strconv.Atoi(parts[i]); err == nil {
			parts[i] = strconv.Itoa(n + 1)
			return strings.Join(parts, ".")
		}
	}
	return strings.Join(append(parts, "0"), ".")
}

// FirstReleaseVersion maps a bump onto the initial version used when a
// project has no prior version.
func FirstReleaseVersion(bump Bump, preID string) (string, error) {
	switch bump {
	case BumpMajor:
		return "1.0.0", nil
	case BumpMinor:
		return "0.1.0", nil
	case BumpPatch:
		return "0.0.1", nil
	case BumpPrerelease:
		return Increment(Zero, BumpPrerelease, preID)
	default:
		return "", errs.ValidationErrorf("no initial version for bump %q", bump)
	}
}

// Compare compares two valid versions (-1, 0, 1).
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Max returns the highest valid version in vs, ignoring empty strings.
func Max(vs []string) (string, error) {
	var best *semver.Version
	for _, s := range vs {
		if s == "" {
			continue
		}
		v, err := Parse(s)
		if err != nil {
			return "", err
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return "", errs.ValidationError("no versions to compare")
	}
	return best.String(), nil
}

// StripPrefix removes any non-numeric prefix from a tag, e.g. "api@1.2.0" or
// "v1.2.0" become "1.2.0". When the remainder isn't valid semver the first
// semver-looking substring is used instead.
func StripPrefix(tag string) (string, bool) {
	rest := strings.TrimLeftFunc(tag, func(r rune) bool { return !unicode.IsDigit(r) })
	if Valid(rest) {
		return rest, true
	}
	if m := semverSearch.FindString(tag); m != "" && Valid(m) {
		return m, true
	}
	return "", false
}
