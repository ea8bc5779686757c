package release

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
)

// BuildRunner runs a project's build step. A nil error means success.
type BuildRunner interface {
	Build(ctx context.Context, project config.Project, version string) error
}

// ExecBuildRunner runs the configured build command with `sh -c` in the
// project root. MONOREL_PROJECT and MONOREL_VERSION are exported to it.
type ExecBuildRunner struct {
	Logger logrus.FieldLogger
	// Output receives the command's combined output; nil discards it.
	Output io.Writer
}

func (r ExecBuildRunner) Build(ctx context.Context, project config.Project, version string) error {
	if strings.TrimSpace(project.Build) == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", project.Build)
	cmd.Dir = project.Root
	cmd.Env = append(os.Environ(),
		"MONOREL_PROJECT="+project.Name,
		"MONOREL_VERSION="+version,
	)

	var tail bytes.Buffer
	out := io.Writer(&tail)
	if r.Output != nil {
		out = io.MultiWriter(r.Output, &tail)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if r.Logger != nil {
		r.Logger.WithFields(logrus.Fields{"project": project.Name, "command": project.Build}).Info("running build")
	}
	if err := cmd.Run(); err != nil {
		return errs.New(errs.ErrorTypeInternal, errs.SeverityHigh, "build failed for "+project.Name+": "+err.Error()).
			WithContext("command", project.Build).
			WithContext("output", lastLines(tail.String(), 20))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
