package commits

import (
	"regexp"
	"strings"
)

var (
	skipRegex   = regexp.MustCompile(`(?i)\[skip\s+([^\]]+)\]`)
	targetRegex = regexp.MustCompile(`(?i)\[(?:target|only)\s+([^\]]+)\]`)
)

// Overrides are the bracket annotations found in a commit's subject or body.
type Overrides struct {
	Skip    []string
	SkipAll bool
	Targets []string
}

// HasTargets reports whether a [target ...] or [only ...] annotation exists.
func (o Overrides) HasTargets() bool {
	return len(o.Targets) > 0
}

// ParseOverrides extracts [skip X,Y], [skip all], [target X,Y] and [only X,Y].
func (c Commit) ParseOverrides() Overrides {
	text := c.Subject + "\n" + c.Body

	var o Overrides
	for _, m := range skipRegex.FindAllStringSubmatch(text, -1) {
		for _, name := range splitList(m[1]) {
			if strings.EqualFold(name, "all") {
				o.SkipAll = true
				continue
			}
			o.Skip = append(o.Skip, name)
		}
	}
	for _, m := range targetRegex.FindAllStringSubmatch(text, -1) {
		o.Targets = append(o.Targets, splitList(m[1])...)
	}
	return o
}

// AppliesTo reports whether the commit counts toward project. Skip
// annotations are checked first, then target annotations; both override
// the scope entirely.
func (c Commit) AppliesTo(project string) bool {
	o := c.ParseOverrides()
	if o.SkipAll || contains(o.Skip, project) {
		return false
	}
	if o.HasTargets() {
		return contains(o.Targets, project)
	}
	return c.scopeMatches(project)
}

func (c Commit) scopeMatches(project string) bool {
	if c.IsGlobal() {
		return true
	}
	return contains(c.Scopes(), project)
}

// FilterForProject returns the commits that apply to project, in order.
func FilterForProject(cs []Commit, project string) []Commit {
	var out []Commit
	for _, c := range cs {
		if c.AppliesTo(project) {
			out = append(out, c)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
