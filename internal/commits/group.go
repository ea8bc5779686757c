package commits

import "strings"

// CanonicalOrder is the fixed section order for rendering.
var CanonicalOrder = []string{
	"feat", "fix", "perf", "refactor", "docs", "style",
	"test", "build", "ci", "chore", "revert",
}

var typeTitles = map[string]string{
	"feat":     "Features",
	"fix":      "Bug Fixes",
	"perf":     "Performance Improvements",
	"refactor": "Code Refactoring",
	"docs":     "Documentation",
	"style":    "Styles",
	"test":     "Tests",
	"build":    "Build System",
	"ci":       "Continuous Integration",
	"chore":    "Chores",
	"revert":   "Reverts",
}

// Group is one type section of a changelog.
type Group struct {
	Type    string
	Commits []Commit
}

// Title returns the human-readable heading for the group's type.
func (g Group) Title() string {
	return TypeTitle(g.Type)
}

// TypeTitle maps a commit type to its section heading. Unknown types are
// capitalized.
func TypeTitle(typ string) string {
	if title, ok := typeTitles[typ]; ok {
		return title
	}
	if typ == "" {
		return "Other"
	}
	return strings.ToUpper(typ[:1]) + typ[1:]
}

// GroupCommits splits commits into breaking changes and per-type groups of
// the non-breaking remainder. Groups follow CanonicalOrder, then unknown types
// in first-seen order. Order within a group follows the input.
func GroupCommits(cs []Commit) (breaking []Commit, groups []Group) {
	byType := make(map[string][]Commit)
	var extra []string

	for _, c := range cs {
		if c.Breaking {
			breaking = append(breaking, c)
			continue
		}
		if _, seen := byType[c.Type]; !seen {
			if _, canonical := typeTitles[c.Type]; !canonical {
				extra = append(extra, c.Type)
			}
		}
		byType[c.Type] = append(byType[c.Type], c)
	}

	for _, typ := range append(append([]string{}, CanonicalOrder...), extra...) {
		if list := byType[typ]; len(list) > 0 {
			groups = append(groups, Group{Type: typ, Commits: list})
		}
	}
	return breaking, groups
}
