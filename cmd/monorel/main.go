package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile   string
	verbose   bool
	logFile   string
	logLevel  string
	jsonLogs  bool
	logger    *logrus.Logger
	logCloser io.Closer
	cfg       *config.Config
)

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		fmt.Fprint(os.Stderr, formatError(err, verbose))
		os.Exit(exitCode(err))
	}
}

// formatError renders err for the terminal. Verbose runs and fatal errors
// get the detailed form with context and stack trace.
func formatError(err error, verbose bool) string {
	var e *errs.Error
	if (verbose || errs.IsFatal(err)) && stderrors.As(err, &e) {
		return e.DetailedString()
	}
	return fmt.Sprintf("Error: %v\n", err)
}

var rootCmd = &cobra.Command{
	Use:   "monorel",
	Short: "Release engine for monorepos",
	Long: `monorel versions, tags, changelogs and publishes the projects of a
monorepo from their conventional commits.

Projects, release groups and registries are configured in monorel.yaml
(searched in .monorel/ and the current directory).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, logCloser, err = logging.New(logging.Config{
			Level:      logging.ParseLevel(verbose, logLevel),
			OutputFile: logFile,
			JSONFormat: jsonLogs || !term.IsTerminal(int(os.Stderr.Fd())),
		})
		if err != nil {
			return err
		}

		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.WithField("dir", cfg.Dir).Debug("loaded configuration")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .monorel/monorel.yaml or ./monorel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON even on a terminal")

	rootCmd.SetVersionTemplate(`monorel {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

// exitCode maps error kinds to process exit codes: 2 for configuration and
// usage problems, 3 when a release run had failures, 1 otherwise.
func exitCode(err error) int {
	switch errs.GetType(err) {
	case errs.ErrorTypeConfig, errs.ErrorTypeValidation, errs.ErrorTypeAmbiguousIntent:
		return 2
	}
	var failed *runFailedError
	if stderrors.As(err, &failed) {
		return 3
	}
	return 1
}

type runFailedError struct {
	summary string
}

func (e *runFailedError) Error() string {
	return "release run had failures: " + e.summary
}
