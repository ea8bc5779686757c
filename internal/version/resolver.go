package version

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/monorel/internal/commits"
	errs "github.com/rohankatakam/monorel/internal/errors"
)

// Outcome is the result of automatic commit analysis.
type Outcome int

const (
	// OutcomeExplicit means analysis was bypassed by an explicit version or bump.
	OutcomeExplicit Outcome = iota
	// OutcomeNoCommits means nothing was committed since the last release.
	OutcomeNoCommits
	// OutcomeNotAffected means commits exist but none affect the project.
	OutcomeNotAffected
	// OutcomeNoConventional means the project changed without a feat/fix/breaking signal.
	OutcomeNoConventional
	// OutcomeConventional means a conventional commit decided the bump.
	OutcomeConventional
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExplicit:
		return "explicit"
	case OutcomeNoCommits:
		return "no-commits"
	case OutcomeNotAffected:
		return "not-affected"
	case OutcomeNoConventional:
		return "no-conventional"
	case OutcomeConventional:
		return "conventional"
	default:
		return "unknown"
	}
}

// Input is everything needed to resolve one project's next version.
type Input struct {
	Project string
	// Current is the version read from the project's version file; "" if absent.
	Current string
	// ExplicitVersion wins over everything else when set.
	ExplicitVersion string
	// Bump is used when no explicit version is set.
	Bump  Bump
	PreID string
	// Commits are the classified commits since the last matching tag. Only
	// those that apply to Project are considered.
	Commits []commits.Commit
	// RawCommitCount counts every commit since the tag, conventional or not.
	RawCommitCount int
	// Affected is the result of the changed-files/dependency computation.
	Affected     bool
	FirstRelease bool
	// LatestTag is the newest tag matching this project, used as a
	// first-release fallback when there is nothing to analyze.
	LatestTag string
}

// Result is a resolved version for one project.
type Result struct {
	Project      string
	Previous     string
	Version      string
	Bump         Bump
	Outcome      Outcome
	Skipped      bool
	Reason       string
	Warnings     []string
	FirstRelease bool
}

// Changed reports whether the result carries a new version.
func (r Result) Changed() bool {
	return !r.Skipped && r.Version != "" && r.Version != r.Previous
}

// Analysis is the outcome of scanning commit subjects.
type Analysis struct {
	Outcome Outcome
	Bump    Bump
}

// Analyze runs the automatic decision table for one project.
func Analyze(project string, cs []commits.Commit, rawCount int, affected bool) Analysis {
	if rawCount == 0 && len(cs) == 0 {
		return Analysis{Outcome: OutcomeNoCommits}
	}
	if !affected {
		return Analysis{Outcome: OutcomeNotAffected}
	}

	relevant := cs
	if project != "" {
		relevant = commits.FilterForProject(cs, project)
	}

	switch {
	case commits.HasBreaking(relevant):
		return Analysis{Outcome: OutcomeConventional, Bump: BumpMajor}
	case commits.HasType(relevant, "feat"):
		return Analysis{Outcome: OutcomeConventional, Bump: BumpMinor}
	case commits.HasType(relevant, "fix"):
		return Analysis{Outcome: OutcomeConventional, Bump: BumpPatch}
	default:
		return Analysis{Outcome: OutcomeNoConventional, Bump: BumpPatch}
	}
}

// Resolve computes the next version. Precedence: explicit version, explicit
// bump, automatic analysis.
func Resolve(in Input) (Result, error) {
	res := Result{
		Project:      in.Project,
		Previous:     in.Current,
		FirstRelease: in.Current == "",
	}

	if in.Current != "" && !Valid(in.Current) {
		return res, errs.ConfigErrorf("project %s has invalid current version %q", in.Project, in.Current).
			WithContext("project", in.Project)
	}

	if in.ExplicitVersion != "" {
		explicit := strings.TrimSpace(in.ExplicitVersion)
		if strings.HasPrefix(explicit, "v") {
			return res, errs.ConfigErrorf("explicit version %q must not start with \"v\"", explicit).
				WithContext("version", explicit)
		}
		if _, err := Parse(explicit); err != nil {
			return res, err
		}
		res.Version = explicit
		res.Outcome = OutcomeExplicit
		return res, nil
	}

	if in.Bump != BumpNone {
		res.Outcome = OutcomeExplicit
		return applyBump(res, in, in.Bump)
	}

	analysis := Analyze(in.Project, in.Commits, in.RawCommitCount, in.Affected)
	res.Outcome = analysis.Outcome

	switch analysis.Outcome {
	case OutcomeNoCommits:
		if !in.FirstRelease {
			return res, errs.AmbiguousIntentError(in.Project)
		}
		return firstReleaseFallback(res, in)

	case OutcomeNotAffected:
		res.Version = in.Current
		res.Skipped = true
		res.Reason = fmt.Sprintf("no changes affect %s since the last release", in.Project)
		return res, nil

	case OutcomeNoConventional:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%s changed but no feat, fix or breaking commits were found; defaulting to a patch bump", in.Project))
	}

	return applyBump(res, in, analysis.Bump)
}

func applyBump(res Result, in Input, bump Bump) (Result, error) {
	res.Bump = bump

	if in.Current == "" && !in.FirstRelease {
		return res, errs.ConfigErrorf("no version found for %s; add a version file or enable first-release mode", in.Project).
			WithContext("project", in.Project)
	}

	var (
		next string
		err  error
	)
	if IsZero(in.Current) {
		res.FirstRelease = true
		next, err = FirstReleaseVersion(bump, in.PreID)
	} else {
		next, err = Increment(in.Current, bump, in.PreID)
	}
	if err != nil {
		return res, err
	}
	res.Version = next
	return res, nil
}

func firstReleaseFallback(res Result, in Input) (Result, error) {
	res.FirstRelease = true
	res.Version = Zero
	res.Reason = "first release with no commits; starting from 0.0.0"

	if in.LatestTag != "" {
		if v, ok := StripPrefix(in.LatestTag); ok {
			res.Version = v
			res.Reason = fmt.Sprintf("first release with no commits; using version from tag %s", in.LatestTag)
		}
	}

	if in.Current != "" {
		if cmp, err := Compare(in.Current, res.Version); err == nil && cmp > 0 {
			res.Version = in.Current
		}
	}
	return res, nil
}
