package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/version"
)

var (
	publishArtifact string
	publishVersion  string
	publishRegistry string
)

var publishCmd = &cobra.Command{
	Use:   "publish <project>",
	Short: "Upload a project's artifact to its registry",
	Long: `Upload a built artifact without versioning or tagging. The version
defaults to the one in the project's version file; the artifact and registry
default to the project's configuration.

An upload that already exists is skipped unless the registry sets force.

Examples:
  monorel publish api
  monorel publish api --artifact dist/api-1.4.0.tgz --version 1.4.0 --registry staging`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishArtifact, "artifact", "", "artifact path relative to the project root")
	publishCmd.Flags().StringVar(&publishVersion, "version", "", "version to publish (default from the version file)")
	publishCmd.Flags().StringVar(&publishRegistry, "registry", "", "registry name from the configuration")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project, err := cfg.Resolve(args[0], config.Overrides{Artifact: publishArtifact, Registry: publishRegistry})
	if err != nil {
		return err
	}
	if project.Artifact == "" {
		return errs.MissingFieldError("project "+project.Name, "artifact")
	}
	if project.Registry == "" {
		return errs.MissingFieldError("project "+project.Name, "registry")
	}

	ver := publishVersion
	if ver == "" {
		src, err := version.RequireVersion(project.Root, project.VersionFiles, project.VersionField)
		if err != nil {
			return err
		}
		ver = src.Version
	}
	if _, err := version.Parse(ver); err != nil {
		return err
	}

	rc, err := cfg.Registry(project.Registry, secretSource())
	if err != nil {
		return err
	}

	res, err := newPublisher().Publish(ctx, project.Artifact, ver, rc)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Printf("- %s %s skipped: %s\n", project.Name, ver, res.Reason)
		return nil
	}
	fmt.Printf("✓ %s %s → %s\n", project.Name, ver, res.URL)
	return nil
}
