package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/release"
	"github.com/rohankatakam/monorel/internal/version"
)

var (
	releaseAs     string
	bumpFlag      string
	preID         string
	firstRelease  bool
	trackDeps     bool
	dryRun        bool
	pushFlag      bool
	noPush        bool
	skipBuild     bool
	skipPublish   bool
	concurrency   int
	versionFiles  []string
	versionField  string
	tagFormat     string
	registryName  string
	changelogPath string
)

var releaseCmd = &cobra.Command{
	Use:   "release [project...]",
	Short: "Version, tag, build and publish projects",
	Long: `Release the given projects (default: every configured project).

For each project monorel reads the commits since its last matching tag,
decides the next version, updates the version file and changelog, commits,
tags, runs the build step and publishes the artifact.

Examples:
  # Release everything that changed
  monorel release

  # Preview the next versions without touching anything
  monorel release --dry-run

  # Force a prerelease of one project and everything depending on it
  monorel release api --bump prerelease --preid beta --track-deps`,
	RunE: runRelease,
}

func init() {
	addResolveFlags(releaseCmd)
	releaseCmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and render only; change nothing")
	releaseCmd.Flags().BoolVar(&pushFlag, "push", false, "push the release commit and tags (default from repository.push)")
	releaseCmd.Flags().BoolVar(&noPush, "no-push", false, "never push, even when repository.push is set")
	releaseCmd.Flags().BoolVar(&skipBuild, "skip-build", false, "do not run build steps")
	releaseCmd.Flags().BoolVar(&skipPublish, "skip-publish", false, "do not upload artifacts")
	releaseCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel uploads (default from publish.concurrency)")
	releaseCmd.Flags().StringSliceVar(&versionFiles, "version-file", nil, "version file candidates, overriding configuration")
	releaseCmd.Flags().StringVar(&versionField, "version-field", "", "dot path of the version inside the version file")
	releaseCmd.Flags().StringVar(&tagFormat, "tag-format", "", "tag template, e.g. {projectName}@{version}")
	releaseCmd.Flags().StringVar(&registryName, "registry", "", "registry to publish to, overriding configuration")
	releaseCmd.Flags().StringVar(&changelogPath, "changelog", "", "changelog file relative to the project root")
	releaseCmd.MarkFlagsMutuallyExclusive("push", "no-push")
}

// addResolveFlags registers the flags shared by commands that resolve
// versions.
func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&releaseAs, "release-as", "", "release this exact version")
	cmd.Flags().StringVar(&bumpFlag, "bump", "", "force a bump: major, minor, patch or prerelease")
	cmd.Flags().StringVar(&preID, "preid", "", "prerelease identifier, e.g. beta")
	cmd.Flags().BoolVar(&firstRelease, "first-release", false, "allow releasing projects without a version or without commits")
	cmd.Flags().BoolVar(&trackDeps, "track-deps", false, "also release projects depending on the changed ones")
	cmd.MarkFlagsMutuallyExclusive("release-as", "bump")
}

func resolveOptions(args []string) (release.Options, error) {
	bump, err := version.ParseBump(bumpFlag)
	if err != nil {
		return release.Options{}, err
	}
	return release.Options{
		Projects:     args,
		Version:      releaseAs,
		Bump:         bump,
		PreID:        preID,
		FirstRelease: firstRelease,
		TrackDeps:    trackDeps,
		Overrides: config.Overrides{
			VersionFiles: versionFiles,
			VersionField: versionField,
			TagFormat:    tagFormat,
			Registry:     registryName,
			Changelog:    changelogPath,
		},
	}, nil
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := validateConfig(); err != nil {
		return err
	}

	opts, err := resolveOptions(args)
	if err != nil {
		return err
	}
	opts.DryRun = dryRun
	opts.Push = (cfg.Repository.Push || pushFlag) && !noPush
	opts.SkipBuild = skipBuild
	opts.SkipPublish = skipPublish
	opts.Concurrency = concurrency

	repo, err := openRepository()
	if err != nil {
		return err
	}

	classifier, closeCache := newClassifier()
	defer closeCache.Close()

	orchOpts := []release.Option{
		release.WithClassifier(classifier),
	}
	if secrets := secretSource(); secrets != nil {
		orchOpts = append(orchOpts, release.WithSecrets(secrets))
	}
	if !dryRun {
		store, err := openLedger(ctx)
		if err != nil {
			logger.WithError(err).Warn("release ledger unavailable; outcomes will not be recorded")
		} else if store != nil {
			defer store.Close()
			orchOpts = append(orchOpts, release.WithRecorder(store))
		}
		if gh := newReleaseCreator(repo); gh != nil {
			orchOpts = append(orchOpts, release.WithReleaseCreator(gh))
		}
	}

	builder := release.ExecBuildRunner{Logger: logger, Output: os.Stderr}
	orch := release.New(cfg, repo, newPublisher(), builder, logger, orchOpts...)

	result, err := orch.Run(ctx, opts)
	if err != nil {
		return err
	}

	printOutcomes(result)
	if !result.OK() {
		return &runFailedError{summary: result.Summary()}
	}
	return nil
}

// validateConfig logs configuration warnings and fails on errors.
func validateConfig() error {
	res := cfg.Validate()
	for _, w := range res.Warnings {
		logger.Warn(w)
	}
	if res.HasErrors() {
		return errs.ConfigError(res.Error())
	}
	return nil
}

func printOutcomes(result *release.BatchResult) {
	if result.DryRun {
		fmt.Println("Dry run: nothing was changed.")
	}
	for _, o := range result.Outcomes {
		switch o.Status {
		case release.StatusSucceeded:
			line := fmt.Sprintf("✓ %s %s", o.Project, versionChange(o))
			if o.Tag != "" {
				line += " (" + o.Tag + ")"
			}
			if o.Publish != nil && o.Publish.URL != "" {
				line += " → " + o.Publish.URL
			}
			fmt.Println(line)
		case release.StatusSkipped:
			fmt.Printf("- %s skipped: %s\n", o.Project, o.Message)
		default:
			fmt.Printf("✗ %s failed: %s\n", o.Project, o.Message)
			if field, ok := errs.ContextValue(o.Err, "field"); ok {
				fmt.Printf("    check config field: %v\n", field)
			}
		}
		for _, w := range o.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}
	fmt.Println(strings.TrimSpace(result.Summary()))
}

func versionChange(o release.Outcome) string {
	if o.Previous == "" || o.Previous == o.Version {
		return o.Version
	}
	return o.Previous + " → " + o.Version
}
