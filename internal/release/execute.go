package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/monorel/internal/changelog"
	"github.com/rohankatakam/monorel/internal/commits"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/ghrelease"
	"github.com/rohankatakam/monorel/internal/version"
)

// executeUnit runs execute and turns a panic into a failure of the unit's
// projects so the run carries on.
func (o *Orchestrator) executeUnit(ctx context.Context, u *unit, opts Options, logger logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			err := errs.InternalErrorf("release step panicked: %v", r)
			logger.WithError(err).Error("recovered from panic")
			for _, p := range u.members {
				if p.outcome.Status != StatusSkipped {
					p.outcome.fail(err)
				}
			}
		}
	}()
	o.execute(ctx, u, opts, logger)
}

// execute runs the git-mutating steps for one unit: version files,
// changelogs, one commit, tags, builds and push. Units run one at a time.
func (o *Orchestrator) execute(ctx context.Context, u *unit, opts Options, logger logrus.FieldLogger) {
	var active []*plan
	for _, p := range u.members {
		if p.failed() {
			continue
		}
		if p.result.Skipped {
			p.outcome.skip(p.result.Reason)
			logger.WithField("project", p.project.Name).Info(p.result.Reason)
			continue
		}
		active = append(active, p)
	}
	if len(active) == 0 {
		return
	}

	repoURL := o.repositoryURL()
	date := o.now()
	for _, p := range active {
		p.outcome.Tag = p.project.TagName(p.result.Version)
		relevant := commits.FilterForProject(p.commits, p.project.Name)
		p.outcome.Changelog = changelog.Render(relevant, changelog.Options{
			Version:       p.result.Version,
			Date:          date,
			RepositoryURL: repoURL,
		})
	}

	if opts.DryRun {
		for _, p := range active {
			p.outcome.Status = StatusSucceeded
			p.outcome.Message = "dry run: would release " + p.outcome.Tag
		}
		return
	}

	if err := o.commitAndTag(ctx, active, opts, logger); err != nil {
		for _, p := range active {
			p.outcome.fail(err)
		}
		return
	}

	for _, p := range active {
		if o.builder != nil && !opts.SkipBuild && p.project.Build != "" {
			if err := o.builder.Build(ctx, p.project, p.result.Version); err != nil {
				logger.WithError(err).WithField("project", p.project.Name).Error("build failed")
				p.outcome.fail(err)
				continue
			}
		}
		p.outcome.Status = StatusSucceeded
		p.outcome.Message = "released " + p.outcome.Tag
	}
}

func (o *Orchestrator) commitAndTag(ctx context.Context, active []*plan, opts Options, logger logrus.FieldLogger) error {
	var (
		paths []string
		tags  []string
		seen  = map[string]bool{}
	)
	for _, p := range active {
		if !seen[p.outcome.Tag] {
			seen[p.outcome.Tag] = true
			tags = append(tags, p.outcome.Tag)
		}
	}

	hash, err := o.writeAndCommit(active, tags, &paths)
	if err != nil {
		if len(paths) > 0 {
			if rerr := o.repo.Restore(paths...); rerr != nil {
				logger.WithError(rerr).WithField("paths", paths).Warn("failed to restore release files")
			}
		}
		return err
	}
	for _, p := range active {
		p.commit = hash
	}

	for _, tag := range tags {
		created, err := o.repo.CreateTag(tag, tagMessage(tag, active))
		if err != nil {
			return err
		}
		logger.WithFields(logrus.Fields{"tag": tag, "created": created, "commit": hash}).Info("tagged release")
	}

	if !opts.Push {
		return nil
	}
	if err := o.repo.Push(ctx, o.cfg.Repository.Remote, tags); err != nil {
		return err
	}
	o.createHostedReleases(ctx, tags, active, logger)
	return nil
}

// writeAndCommit updates version files and changelogs, then makes the
// release commit. Every path it touches is appended to paths, even when the
// write fails partway.
func (o *Orchestrator) writeAndCommit(active []*plan, tags []string, paths *[]string) (string, error) {
	for _, p := range active {
		if p.source.Version != p.result.Version {
			if p.source.Path != "" {
				*paths = append(*paths, p.source.Path)
			}
			if err := version.WriteVersion(p.source, p.result.Version); err != nil {
				return "", err
			}
		}
		*paths = append(*paths, p.project.Changelog)
		if err := changelog.Prepend(p.project.Changelog, p.outcome.Changelog); err != nil {
			return "", errs.FileSystemErrorf(err, "update changelog %s", p.project.Changelog)
		}
	}

	if err := o.repo.Stage(*paths...); err != nil {
		return "", err
	}
	return o.repo.Commit("chore(release): " + strings.Join(tags, ", "))
}

// tagMessage is the annotated tag body: the changelog of the first project
// carrying tag.
func tagMessage(tag string, active []*plan) string {
	for _, p := range active {
		if p.outcome.Tag == tag {
			return tag + "\n\n" + p.outcome.Changelog
		}
	}
	return tag
}

func (o *Orchestrator) createHostedReleases(ctx context.Context, tags []string, active []*plan, logger logrus.FieldLogger) {
	if o.releases == nil {
		return
	}
	for _, tag := range tags {
		var (
			body       []string
			prerelease bool
		)
		for _, p := range active {
			if p.outcome.Tag != tag {
				continue
			}
			body = append(body, p.outcome.Changelog)
			if v, err := version.Parse(p.result.Version); err == nil && v.Prerelease() != "" {
				prerelease = true
			}
		}
		_, err := o.releases.EnsureRelease(ctx, ghrelease.Release{
			Tag:        tag,
			Body:       strings.Join(body, "\n"),
			Prerelease: prerelease,
		})
		if err != nil {
			logger.WithError(err).WithField("tag", tag).Warn("failed to create hosted release")
		}
	}
}

func (o *Orchestrator) repositoryURL() string {
	if o.cfg.Repository.URL != "" {
		return changelog.NormalizeRepoURL(o.cfg.Repository.URL)
	}
	type remoter interface {
		RemoteURL(name string) (string, error)
	}
	if r, ok := o.repo.(remoter); ok {
		if url, err := r.RemoteURL(o.cfg.Repository.Remote); err == nil {
			return changelog.NormalizeRepoURL(url)
		}
	}
	return ""
}

// publishAll uploads artifacts for every succeeded project with bounded
// concurrency. A failed upload fails only its own project.
func (o *Orchestrator) publishAll(ctx context.Context, units []*unit, opts Options, logger logrus.FieldLogger) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = o.cfg.Publish.Concurrency
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for _, u := range units {
		for _, p := range u.members {
			if p.outcome.Status != StatusSucceeded || p.project.Artifact == "" || p.project.Registry == "" {
				continue
			}
			p := p
			g.Go(func() error {
				o.publishOne(ctx, p, logger)
				return nil
			})
		}
	}
	_ = g.Wait()
}

func (o *Orchestrator) publishOne(ctx context.Context, p *plan, logger logrus.FieldLogger) {
	log := logger.WithFields(logrus.Fields{"project": p.project.Name, "registry": p.project.Registry})
	defer func() {
		if r := recover(); r != nil {
			err := errs.InternalErrorf("publish of %s panicked: %v", p.project.Name, r)
			log.WithError(err).Error("recovered from panic")
			p.outcome.fail(err)
		}
	}()

	rc, err := o.cfg.Registry(p.project.Registry, o.secrets)
	if err != nil {
		log.WithError(err).Error("invalid registry configuration")
		p.outcome.fail(err)
		return
	}

	res, err := o.publisher.Publish(ctx, p.project.Artifact, p.result.Version, rc)
	if err != nil {
		log.WithError(err).Error("publish failed")
		p.outcome.fail(fmt.Errorf("publish %s: %w", p.project.Name, err))
		return
	}
	p.outcome.Publish = &res
	if res.Skipped {
		log.Info(res.Reason)
	} else {
		log.WithField("url", res.URL).Info("published artifact")
	}
}
