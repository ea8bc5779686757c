package version

import (
	errs "github.com/rohankatakam/monorel/internal/errors"
)

// Relationship controls whether grouped projects share one version.
type Relationship string

const (
	Independent Relationship = "independent"
	Fixed       Relationship = "fixed"
)

// SyncStrategy selects how a shared version is computed for a fixed group.
type SyncStrategy string

const (
	// SyncBump copies the primary project's resolved version to every member.
	SyncBump SyncStrategy = "bump"
	// SyncHighest takes the highest independently resolved version,
	// optionally bumped once more.
	SyncHighest SyncStrategy = "highest"
)

// SyncOptions configures Sync.
type SyncOptions struct {
	Strategy SyncStrategy
	// Primary names the project whose version wins under SyncBump.
	Primary string
	// ExtraBump is applied on top of the maximum under SyncHighest.
	ExtraBump Bump
	PreID     string
	// AllowLower permits a shared version below a member's current one, as
	// when the caller supplied the version explicitly.
	AllowLower bool
}

// Sync computes one shared version from per-project results and returns the
// results rewritten to carry it. Members whose version does not move keep
// their skip state. A shared version below any member's current version is
// a config error unless AllowLower is set.
func Sync(opts SyncOptions, results []Result) ([]Result, string, error) {
	if len(results) == 0 {
		return nil, "", nil
	}

	var shared string
	switch opts.Strategy {
	case SyncBump:
		found := false
		for _, r := range results {
			if r.Project == opts.Primary {
				shared = r.Version
				found = true
				break
			}
		}
		if !found {
			return nil, "", errs.ConfigErrorf("sync strategy %q: primary project %q is not in the group", opts.Strategy, opts.Primary).
				WithContext("field", "primary")
		}
		if shared == "" {
			return nil, "", errs.ConfigErrorf("sync strategy %q: primary project %q has no resolved version", opts.Strategy, opts.Primary)
		}

	case SyncHighest, "":
		versions := make([]string, 0, len(results))
		for _, r := range results {
			versions = append(versions, r.Version)
		}
		highest, err := Max(versions)
		if err != nil {
			return nil, "", err
		}
		shared = highest
		if opts.ExtraBump != BumpNone {
			if shared, err = Increment(highest, opts.ExtraBump, opts.PreID); err != nil {
				return nil, "", err
			}
		}

	default:
		return nil, "", errs.ConfigErrorf("unknown sync strategy %q", opts.Strategy).WithContext("field", "strategy")
	}

	for _, r := range results {
		if opts.AllowLower || r.Previous == "" {
			continue
		}
		cmp, err := Compare(shared, r.Previous)
		if err != nil {
			return nil, "", err
		}
		if cmp < 0 {
			return nil, "", errs.ConfigErrorf("sync strategy %q: shared version %s is lower than %s's current version %s",
				opts.Strategy, shared, r.Project, r.Previous).WithContext("project", r.Project)
		}
	}

	out := make([]Result, len(results))
	for i, r := range results {
		r.Version = shared
		if r.Version != r.Previous {
			r.Skipped = false
			r.Reason = ""
		}
		out[i] = r
	}
	return out, shared, nil
}
