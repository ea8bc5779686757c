// Package changelog renders classified commits into markdown release notes.
package changelog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/monorel/internal/commits"
)

// NoChanges is the whole document rendered for an empty commit list.
const NoChanges = "No changes.\n"

// GlobalTitle is the heading of the workspace section for unscoped commits.
const GlobalTitle = "Global Changes"

// Options control the rendered heading and commit links.
type Options struct {
	// Version adds a "## <version>" heading when set.
	Version string
	// Date is appended to the version heading when non-zero.
	Date time.Time
	// RepositoryURL turns short hashes into commit links. Any git remote form
	// is accepted; see NormalizeRepoURL.
	RepositoryURL string
	// SectionLevel is the markdown heading depth of type sections. Zero
	// means 3.
	SectionLevel int
}

func (o Options) heading() string {
	if o.Version == "" {
		return ""
	}
	if o.Date.IsZero() {
		return "## " + o.Version
	}
	return fmt.Sprintf("## %s (%s)", o.Version, o.Date.Format("2006-01-02"))
}

// Render produces the changelog for one project. The output depends only on
// its arguments.
func Render(cs []commits.Commit, opts Options) string {
	if len(cs) == 0 {
		return NoChanges
	}

	var b strings.Builder
	if h := opts.heading(); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}
	writeSections(&b, cs, opts.sectionPrefix(), NormalizeRepoURL(opts.RepositoryURL))
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (o Options) sectionPrefix() string {
	if o.SectionLevel < 1 {
		return "###"
	}
	return strings.Repeat("#", o.SectionLevel)
}

// RenderWorkspace renders one section per project (alphabetical), each the
// single-project changelog of the commits that apply to it, followed by a
// Global Changes section for commits without a scope or with "*".
func RenderWorkspace(cs []commits.Commit, projects []string, opts Options) string {
	if len(cs) == 0 {
		return NoChanges
	}

	names := append([]string(nil), projects...)
	sort.Strings(names)

	var global []commits.Commit
	for _, c := range cs {
		o := c.ParseOverrides()
		if c.IsGlobal() && !o.HasTargets() && !o.SkipAll {
			global = append(global, c)
		}
	}
	if len(names) == 0 && len(global) == 0 {
		return NoChanges
	}

	section := Options{RepositoryURL: opts.RepositoryURL, SectionLevel: 4}

	var b strings.Builder
	if h := opts.heading(); h != "" {
		b.WriteString(h)
		b.WriteString("\n\n")
	}

	for _, name := range names {
		fmt.Fprintf(&b, "### %s\n\n", name)
		b.WriteString(Render(commits.FilterForProject(cs, name), section))
		b.WriteString("\n")
	}
	if len(global) > 0 {
		fmt.Fprintf(&b, "### %s\n\n", GlobalTitle)
		b.WriteString(Render(global, section))
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSections(b *strings.Builder, cs []commits.Commit, level, repo string) {
	breaking, groups := commits.GroupCommits(cs)

	if len(breaking) > 0 {
		fmt.Fprintf(b, "%s BREAKING CHANGES\n\n", level)
		for _, c := range breaking {
			msg := c.BreakingMessage
			if msg == "" {
				msg = c.Subject
			}
			writeBullet(b, c, msg, repo)
		}
		b.WriteString("\n")
	}

	for _, g := range groups {
		fmt.Fprintf(b, "%s %s\n\n", level, g.Title())
		for _, c := range g.Commits {
			writeBullet(b, c, c.Subject, repo)
		}
		b.WriteString("\n")
	}
}

func writeBullet(b *strings.Builder, c commits.Commit, msg, repo string) {
	b.WriteString("- ")
	if c.Scope != "" && c.Scope != "*" {
		fmt.Fprintf(b, "**%s:** ", c.Scope)
	}
	b.WriteString(msg)
	if ref := commitRef(c, repo); ref != "" {
		b.WriteString(" ")
		b.WriteString(ref)
	}
	b.WriteString("\n")
}

func commitRef(c commits.Commit, repo string) string {
	short := c.ShortHash()
	if short == "" {
		return ""
	}
	if repo == "" {
		return "(" + short + ")"
	}
	return fmt.Sprintf("([%s](%s/commit/%s))", short, repo, c.Hash)
}
