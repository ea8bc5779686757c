package main

import (
	"context"
	"io"

	"github.com/rohankatakam/monorel/internal/cache"
	"github.com/rohankatakam/monorel/internal/commits"
	"github.com/rohankatakam/monorel/internal/config"
	"github.com/rohankatakam/monorel/internal/ghrelease"
	"github.com/rohankatakam/monorel/internal/git"
	"github.com/rohankatakam/monorel/internal/ledger"
	"github.com/rohankatakam/monorel/internal/publish"
)

// openRepository opens the git repository containing the config directory.
// Pushes over https authenticate with the GitHub token.
func openRepository() (*git.Repository, error) {
	repo, err := git.Open(cfg.Dir, logger)
	if err != nil {
		return nil, err
	}
	repo.Token = cfg.GitHub.Token
	return repo, nil
}

// newClassifier returns a classifier backed by the commit cache when it can
// be opened. The closer is always non-nil.
func newClassifier() (*commits.Classifier, io.Closer) {
	if cfg.Cache.Path == "" {
		return commits.NewClassifier(nil, logger), io.NopCloser(nil)
	}
	store, err := cache.Open(cfg.Path(cfg.Cache.Path))
	if err != nil {
		logger.WithError(err).Warn("commit cache unavailable; classifying without it")
		return commits.NewClassifier(nil, logger), io.NopCloser(nil)
	}
	return commits.NewClassifier(store, logger), store
}

func newPublisher() *publish.Dispatcher {
	rps := cfg.Publish.RateLimit
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return publish.NewDispatcher(logger, publish.WithRateLimit(rps, burst))
}

// openLedger returns nil when no ledger is configured.
func openLedger(ctx context.Context) (ledger.Store, error) {
	driver, dsn := cfg.Ledger.Driver, cfg.Ledger.DSN
	if (driver == "sqlite" || driver == "sqlite3") && dsn != "" {
		dsn = cfg.Path(dsn)
	}
	return ledger.Open(ctx, driver, dsn, logger)
}

// newReleaseCreator returns nil unless hosted releases are enabled and the
// remote is recognizable as owner/repo.
func newReleaseCreator(repo *git.Repository) *ghrelease.Client {
	if !cfg.GitHub.CreateReleases {
		return nil
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("github.createReleases is set but no token is configured; skipping hosted releases")
		return nil
	}

	remote := cfg.Repository.URL
	if remote == "" {
		var err error
		if remote, err = repo.RemoteURL(cfg.Repository.Remote); err != nil {
			logger.WithError(err).Warn("cannot determine repository for hosted releases")
			return nil
		}
	}
	owner, name, err := git.ParseRepoURL(remote)
	if err != nil {
		logger.WithError(err).Warn("cannot determine repository for hosted releases")
		return nil
	}
	return ghrelease.NewClient(owner, name, cfg.GitHub.Token, cfg.GitHub.RateLimit, logger)
}

func secretSource() config.SecretSource {
	km := config.NewKeyringManager(logger)
	if !km.IsAvailable() {
		return nil
	}
	return km
}
