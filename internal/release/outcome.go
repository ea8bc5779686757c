package release

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/monorel/internal/publish"
)

// Status is the terminal state of one project in a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is the structured result for one project. Errors never escape a
// project; they end up here.
type Outcome struct {
	Project  string
	Status   Status
	Previous string
	Version  string
	Tag      string
	// Changelog is the rendered entry for this release.
	Changelog string
	// Publish is set when an artifact publish was attempted and returned.
	Publish  *publish.Result
	Message  string
	Warnings []string
	Err      error `json:"-"`
}

func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	o.Err = err
	o.Message = err.Error()
}

func (o *Outcome) skip(reason string) {
	o.Status = StatusSkipped
	o.Message = reason
}

// BatchResult aggregates the outcomes of one run, in processing order.
type BatchResult struct {
	RunID    string
	DryRun   bool
	Outcomes []Outcome
}

func (b *BatchResult) count(s Status) int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (b *BatchResult) Succeeded() int { return b.count(StatusSucceeded) }
func (b *BatchResult) Skipped() int   { return b.count(StatusSkipped) }
func (b *BatchResult) Failed() int    { return b.count(StatusFailed) }

// OK is true when every project succeeded or was legitimately skipped.
func (b *BatchResult) OK() bool {
	return b.Failed() == 0
}

// Outcome returns the outcome for project, if present.
func (b *BatchResult) Outcome(project string) (Outcome, bool) {
	for _, o := range b.Outcomes {
		if o.Project == project {
			return o, true
		}
	}
	return Outcome{}, false
}

// Summary is a one-line count, e.g. "2 succeeded, 1 skipped, 0 failed".
func (b *BatchResult) Summary() string {
	return fmt.Sprintf("%d succeeded, %d skipped, %d failed", b.Succeeded(), b.Skipped(), b.Failed())
}

// Failures lists "project: message" for every failed project.
func (b *BatchResult) Failures() string {
	var lines []string
	for _, o := range b.Outcomes {
		if o.Status == StatusFailed {
			lines = append(lines, o.Project+": "+o.Message)
		}
	}
	return strings.Join(lines, "\n")
}
