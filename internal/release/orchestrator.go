// Package release drives a release run: for each project it reads commits
// since the last matching tag, resolves the next version, writes the version
// file and changelog, commits, tags, builds and publishes.
package release

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/monorel/internal/commits"
	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/ghrelease"
	"github.com/rohankatakam/monorel/internal/ledger"
	"github.com/rohankatakam/monorel/internal/publish"
	"github.com/rohankatakam/monorel/internal/version"
)

// Repository is the git working tree the run operates on. *git.Repository
// implements it.
type Repository interface {
	Root() string
	Tags() ([]string, error)
	CommitsSince(tag string) ([]commits.Raw, error)
	ChangedFiles(tag string) ([]string, error)
	Stage(paths ...string) error
	// Restore returns paths to their committed state, unstaging them.
	Restore(paths ...string) error
	Commit(message string) (string, error)
	CreateTag(name, message string) (bool, error)
	Push(ctx context.Context, remote string, tags []string) error
}

// Recorder persists outcomes. ledger.Store implements it.
type Recorder interface {
	Record(ctx context.Context, r *ledger.Release) error
}

// ReleaseCreator publishes a hosted release for a pushed tag.
// *ghrelease.Client implements it.
type ReleaseCreator interface {
	EnsureRelease(ctx context.Context, r ghrelease.Release) (ghrelease.Result, error)
}

// Options control one run.
type Options struct {
	// Projects to release; empty means every configured project.
	Projects []string
	// Version forces an exact version on every released project.
	Version string
	Bump    version.Bump
	PreID   string

	FirstRelease bool
	// TrackDeps adds every project depending on a target and treats a
	// change in a dependency as affecting its dependents.
	TrackDeps bool
	DryRun    bool
	Push      bool
	SkipBuild bool
	// SkipPublish resolves, commits and tags but uploads nothing.
	SkipPublish bool

	Overrides config.Overrides
	// Concurrency bounds parallel uploads; <1 uses the config value.
	Concurrency int
}

// Orchestrator runs releases for a workspace.
type Orchestrator struct {
	cfg        *config.Config
	repo       Repository
	classifier *commits.Classifier
	publisher  publish.Publisher
	builder    BuildRunner
	secrets    config.SecretSource
	recorder   Recorder
	releases   ReleaseCreator
	logger     logrus.FieldLogger
	now        func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifier sets the commit classifier, e.g. one backed by the commit
// cache.
func WithClassifier(c *commits.Classifier) Option {
	return func(o *Orchestrator) { o.classifier = c }
}

// WithSecrets sets where missing registry secrets are looked up.
func WithSecrets(s config.SecretSource) Option {
	return func(o *Orchestrator) { o.secrets = s }
}

// WithRecorder records every outcome, e.g. into the ledger.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithReleaseCreator creates a hosted release for each pushed tag.
func WithReleaseCreator(rc ReleaseCreator) Option {
	return func(o *Orchestrator) { o.releases = rc }
}

// WithClock overrides time.Now for changelog dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator. builder may be nil when no project has a
// build step.
func New(cfg *config.Config, repo Repository, publisher publish.Publisher, builder BuildRunner, logger logrus.FieldLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		builder:   builder,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = commits.NewClassifier(nil, logger)
	}
	return o
}

// Run releases the requested projects. The returned error is non-nil only
// for problems that prevent the run from starting (unknown projects, an
// unreadable repository); per-project failures are reported in the result.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*BatchResult, error) {
	runID := uuid.New().String()
	logger := o.logger.WithField("run_id", runID)

	if opts.Version != "" && opts.Bump != version.BumpNone {
		return nil, errs.ValidationError("an explicit version and a bump type are mutually exclusive")
	}

	names, err := o.targets(opts)
	if err != nil {
		return nil, err
	}

	tags, err := o.repo.Tags()
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"projects": names,
		"dry_run":  opts.DryRun,
	}).Info("starting release run")

	plans := o.plan(names, tags, opts, logger)
	units := o.group(plans, opts, logger)

	result := &BatchResult{RunID: runID, DryRun: opts.DryRun}
	for _, u := range units {
		o.executeUnit(ctx, u, opts, logger)
	}
	if !opts.DryRun && !opts.SkipPublish {
		o.publishAll(ctx, units, opts, logger)
	}

	for _, u := range units {
		for _, p := range u.members {
			result.Outcomes = append(result.Outcomes, p.outcome)
			o.record(ctx, runID, opts, p, logger)
		}
	}

	logger.WithFields(logrus.Fields{
		"succeeded": result.Succeeded(),
		"skipped":   result.Skipped(),
		"failed":    result.Failed(),
	}).Info("release run finished")
	return result, nil
}

// targets expands the requested projects with fixed-group siblings and, when
// tracking dependencies, their dependents. The order puts dependencies first.
func (o *Orchestrator) targets(opts Options) ([]string, error) {
	direct := opts.Projects
	if len(direct) == 0 {
		direct = o.cfg.ProjectNames()
	}
	if len(direct) == 0 {
		return nil, errs.ConfigError("no projects configured")
	}

	seen := make(map[string]bool)
	var expanded []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			expanded = append(expanded, name)
		}
	}
	for _, name := range direct {
		if _, ok := o.cfg.Projects[name]; !ok {
			return nil, errs.ConfigErrorf("unknown project %q", name).WithContext("project", name)
		}
		add(name)
	}

	names := version.Targets(o.cfg.Graph(), expanded, opts.TrackDeps)
	for _, name := range names {
		add(name)
		if _, g, ok := o.cfg.GroupOf(name); ok && version.Relationship(g.Relationship) == version.Fixed {
			for _, member := range g.Projects {
				add(member)
			}
		}
	}
	return o.cfg.Graph().Order(expanded), nil
}

func (o *Orchestrator) record(ctx context.Context, runID string, opts Options, p *plan, logger logrus.FieldLogger) {
	if o.recorder == nil {
		return
	}
	out := p.outcome
	row := &ledger.Release{
		RunID:    runID,
		Project:  out.Project,
		Previous: out.Previous,
		Version:  out.Version,
		Tag:      out.Tag,
		Reason:   out.Message,
		Registry: p.project.Registry,
		Commit:   p.commit,
		DryRun:   opts.DryRun,
	}
	switch out.Status {
	case StatusSucceeded:
		row.Status = ledger.StatusReleased
	case StatusSkipped:
		row.Status = ledger.StatusSkipped
	default:
		row.Status = ledger.StatusFailed
	}
	if out.Publish != nil {
		row.URL = out.Publish.URL
	}
	if err := o.recorder.Record(ctx, row); err != nil {
		logger.WithError(err).WithField("project", out.Project).Warn("failed to record release in ledger")
	}
}
