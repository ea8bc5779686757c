package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/monorel/internal/changelog"
	"github.com/rohankatakam/monorel/internal/commits"
	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
)

var (
	changelogLog       string
	changelogVersion   string
	changelogRepoURL   string
	changelogWorkspace bool
	changelogWrite     bool
	changelogNoDate    bool
)

var changelogCmd = &cobra.Command{
	Use:   "changelog [project]",
	Short: "Render release notes from conventional commits",
	Long: `Render the changelog entry for a project from the commits since its last
matching tag, or for the whole workspace with --workspace.

--log reads raw "git log --format=%H%x1f%B%x1e" output from a file ("-" for
stdin) instead of the repository.

Examples:
  monorel changelog api --heading 1.4.0
  git log --format=%H%x1f%B%x1e v1.0.0..HEAD | monorel changelog --workspace --log -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChangelog,
}

func init() {
	changelogCmd.Flags().StringVar(&changelogLog, "log", "", "read raw commit log from this file (- for stdin)")
	changelogCmd.Flags().StringVar(&changelogVersion, "heading", "", "version to put in the entry heading")
	changelogCmd.Flags().StringVar(&changelogRepoURL, "repo-url", "", "repository URL for commit links (default from config or remote)")
	changelogCmd.Flags().BoolVar(&changelogWorkspace, "workspace", false, "render one section per project plus global changes")
	changelogCmd.Flags().BoolVar(&changelogWrite, "write", false, "prepend the entry to the project's changelog file")
	changelogCmd.Flags().BoolVar(&changelogNoDate, "no-date", false, "omit the date from the heading")
}

func runChangelog(cmd *cobra.Command, args []string) error {
	if !changelogWorkspace && len(args) == 0 {
		return errs.ValidationError("name a project or pass --workspace")
	}
	if changelogWorkspace && changelogWrite {
		return errs.ValidationError("--write needs a single project")
	}

	var project config.Project
	if len(args) == 1 {
		var err error
		if project, err = cfg.Resolve(args[0], config.Overrides{}); err != nil {
			return err
		}
	}

	cs, repoURL, err := loadCommits(project)
	if err != nil {
		return err
	}
	if changelogRepoURL != "" {
		repoURL = changelogRepoURL
	}

	opts := changelog.Options{Version: changelogVersion, RepositoryURL: repoURL}
	if !changelogNoDate {
		opts.Date = time.Now()
	}

	var entry string
	if changelogWorkspace {
		entry = changelog.RenderWorkspace(cs, cfg.ProjectNames(), opts)
	} else {
		entry = changelog.Render(commits.FilterForProject(cs, project.Name), opts)
	}

	if changelogWrite {
		if err := changelog.Prepend(project.Changelog, entry); err != nil {
			return err
		}
		logger.WithField("path", project.Changelog).Info("updated changelog")
		return nil
	}
	fmt.Print(entry)
	return nil
}

// loadCommits returns the classified commits to render and the repository
// URL for links. project is zero in workspace mode.
func loadCommits(project config.Project) ([]commits.Commit, string, error) {
	if changelogLog != "" {
		raw, err := readLog(changelogLog)
		if err != nil {
			return nil, "", err
		}
		parsed, skipped := commits.ParseLog(raw)
		if skipped > 0 {
			logger.WithField("skipped", skipped).Debug("ignored non-conventional commits")
		}
		return parsed, cfg.Repository.URL, nil
	}

	repo, err := openRepository()
	if err != nil {
		return nil, "", err
	}
	classifier, closeCache := newClassifier()
	defer closeCache.Close()

	var since string
	if project.Name != "" {
		tags, err := repo.Tags()
		if err != nil {
			return nil, "", err
		}
		since, _, _ = project.TagMatcher().Latest(tags)
	}
	raws, err := repo.CommitsSince(since)
	if err != nil {
		return nil, "", err
	}

	repoURL := cfg.Repository.URL
	if repoURL == "" {
		repoURL, _ = repo.RemoteURL(cfg.Repository.Remote)
	}
	return classifier.Classify(raws), repoURL, nil
}

func readLog(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errs.FileSystemErrorf(err, "read commit log %s", path)
	}
	return string(data), nil
}
