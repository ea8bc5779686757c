package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/monorel/internal/release"
)

var versionCmd = &cobra.Command{
	Use:   "version [project...]",
	Short: "Print the next version of each project",
	Long: `Resolve the next version of each project from its commits without
changing anything. Prints one "project version" line per project that would
be released.

Examples:
  monorel version api
  monorel version --bump minor`,
	RunE: runVersion,
}

func init() {
	addResolveFlags(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	if err := validateConfig(); err != nil {
		return err
	}
	opts, err := resolveOptions(args)
	if err != nil {
		return err
	}
	opts.DryRun = true

	repo, err := openRepository()
	if err != nil {
		return err
	}
	classifier, closeCache := newClassifier()
	defer closeCache.Close()

	orch := release.New(cfg, repo, newPublisher(), nil, logger, release.WithClassifier(classifier))
	result, err := orch.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	for _, o := range result.Outcomes {
		switch o.Status {
		case release.StatusSucceeded:
			fmt.Printf("%s %s\n", o.Project, o.Version)
		case release.StatusSkipped:
			logger.WithField("project", o.Project).Info(o.Message)
		default:
			logger.WithError(o.Err).WithField("project", o.Project).Error("cannot resolve version")
		}
	}
	if !result.OK() {
		return &runFailedError{summary: result.Summary()}
	}
	return nil
}
