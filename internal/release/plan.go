package release

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/monorel/internal/commits"
	"github.com/rohankatakam/monorel/internal/config"
	"github.com/rohankatakam/monorel/internal/version"
)

// plan is the per-project state carried through a run.
type plan struct {
	project   config.Project
	latestTag string
	raws      []commits.Raw
	commits   []commits.Commit
	changed   bool
	source    version.Source
	result    version.Result
	commit    string
	outcome   Outcome
}

func (p *plan) failed() bool {
	return p.outcome.Status == StatusFailed
}

// unit is the set of projects committed and tagged together: a single
// project, or every member of a fixed release group.
type unit struct {
	group   string
	members []*plan
}

// plan gathers commits, changes and the current version for every project,
// then resolves versions. Failures are stored on the plan's outcome.
func (o *Orchestrator) plan(names, tags []string, opts Options, logger logrus.FieldLogger) []*plan {
	plans := make([]*plan, 0, len(names))
	for _, name := range names {
		p := &plan{outcome: Outcome{Project: name}}
		plans = append(plans, p)
		if err := o.gather(p, name, tags, opts); err != nil {
			logger.WithError(err).WithField("project", name).Error("failed to prepare project")
			p.outcome.fail(err)
		}
	}

	cascade := map[string]bool{}
	if opts.TrackDeps {
		var direct []string
		for _, p := range plans {
			if p.changed {
				direct = append(direct, p.project.Name)
			}
		}
		for _, name := range o.cfg.Graph().Affected(direct) {
			cascade[name] = true
		}
	}

	var inputs []version.Input
	byName := map[string]*plan{}
	for _, p := range plans {
		if p.failed() {
			continue
		}
		byName[p.project.Name] = p
		p.outcome.Previous = p.source.Version
		inputs = append(inputs, version.Input{
			Project:         p.project.Name,
			Current:         p.source.Version,
			ExplicitVersion: opts.Version,
			Bump:            opts.Bump,
			PreID:           opts.PreID,
			Commits:         p.commits,
			RawCommitCount:  len(p.raws),
			Affected:        p.changed || cascade[p.project.Name],
			FirstRelease:    opts.FirstRelease,
			LatestTag:       p.latestTag,
		})
	}

	results, failures := version.ResolveEach(inputs)
	for name, err := range failures {
		logger.WithError(err).WithField("project", name).Error("failed to resolve version")
		byName[name].outcome.fail(err)
	}
	for _, res := range results {
		p := byName[res.Project]
		for _, w := range res.Warnings {
			logger.WithField("project", p.project.Name).Warn(w)
		}
		p.result = res
		p.outcome.Version = res.Version
		p.outcome.Warnings = res.Warnings
	}
	return plans
}

func (o *Orchestrator) gather(p *plan, name string, tags []string, opts Options) error {
	project, err := o.cfg.Resolve(name, opts.Overrides)
	if err != nil {
		return err
	}
	p.project = project

	if tag, _, ok := project.TagMatcher().Latest(tags); ok {
		p.latestTag = tag
	}

	if p.raws, err = o.repo.CommitsSince(p.latestTag); err != nil {
		return err
	}
	p.commits = o.classifier.Classify(p.raws)

	files, err := o.repo.ChangedFiles(p.latestTag)
	if err != nil {
		return err
	}
	p.changed = touches(files, o.repo.Root(), project.Root)

	if opts.FirstRelease || opts.Version != "" {
		p.source, err = version.ReadVersion(project.Root, project.VersionFiles, project.VersionField)
	} else {
		p.source, err = version.RequireVersion(project.Root, project.VersionFiles, project.VersionField)
	}
	return err
}

// touches reports whether any repository-relative file lies under the
// project's root.
func touches(files []string, repoRoot, projectRoot string) bool {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return len(files) > 0
	}
	rel, err := filepath.Rel(repoRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	prefix := filepath.ToSlash(rel)
	if prefix == "." {
		return len(files) > 0
	}
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

// group collects plans into commit units and applies fixed-group version
// sync. A failing member fails its whole fixed group since they share one
// commit.
func (o *Orchestrator) group(plans []*plan, opts Options, logger logrus.FieldLogger) []*unit {
	var units []*unit
	byGroup := map[string]*unit{}

	for _, p := range plans {
		// membership comes from config so that members failing early still
		// fail their group
		if name, g, ok := o.cfg.GroupOf(p.outcome.Project); ok && version.Relationship(g.Relationship) == version.Fixed {
			u, ok := byGroup[name]
			if !ok {
				u = &unit{group: name}
				byGroup[name] = u
				units = append(units, u)
			}
			u.members = append(u.members, p)
			continue
		}
		units = append(units, &unit{members: []*plan{p}})
	}

	for _, u := range units {
		if u.group == "" {
			continue
		}
		o.syncGroup(u, opts, logger)
	}
	return units
}

func (o *Orchestrator) syncGroup(u *unit, opts Options, logger logrus.FieldLogger) {
	for _, p := range u.members {
		if p.failed() {
			u.failAll("release group " + u.group + ": member " + p.outcome.Project + " failed")
			return
		}
	}

	g := o.cfg.ReleaseGroups[u.group]
	extra, err := version.ParseBump(g.Sync.Bump)
	if err != nil {
		u.failWith(err)
		return
	}

	results := make([]version.Result, len(u.members))
	for i, p := range u.members {
		results[i] = p.result
	}
	synced, shared, err := version.Sync(version.SyncOptions{
		Strategy:   version.SyncStrategy(g.Sync.Strategy),
		Primary:    g.Sync.Primary,
		ExtraBump:  extra,
		PreID:      opts.PreID,
		AllowLower: opts.Version != "",
	}, results)
	if err != nil {
		u.failWith(err)
		return
	}

	logger.WithFields(logrus.Fields{"group": u.group, "version": shared}).Info("synchronized release group")
	for i, p := range u.members {
		p.result = synced[i]
		p.outcome.Version = shared
	}
}

func (u *unit) failWith(err error) {
	for _, p := range u.members {
		p.outcome.fail(err)
	}
}

func (u *unit) failAll(message string) {
	for _, p := range u.members {
		if !p.failed() {
			p.outcome.Status = StatusFailed
			p.outcome.Message = message
		}
	}
}
