package version

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// TagVars are the placeholder values for a tag template.
type TagVars struct {
	ProjectName      string
	Version          string
	ReleaseGroupName string
	Prefix           string
	Suffix           string
}

func (v TagVars) replacer(version string) *strings.Replacer {
	return strings.NewReplacer(
		"{projectName}", v.ProjectName,
		"{version}", version,
		"{releaseGroupName}", v.ReleaseGroupName,
		"{prefix}", v.Prefix,
		"{suffix}", v.Suffix,
	)
}

// TagName substitutes the placeholders in template verbatim.
func TagName(template string, vars TagVars) string {
	return vars.replacer(vars.Version).Replace(template)
}

// DefaultTagFormat picks the tag template for a relationship when none is
// configured.
func DefaultTagFormat(rel Relationship, groupName string) string {
	if rel == Fixed {
		if groupName != "" {
			return "{releaseGroupName}-v{version}"
		}
		return "v{version}"
	}
	return "{projectName}@{version}"
}

const versionPlaceholder = "\x00version\x00"

// TagMatcher recognizes tags produced by a template for one project.
type TagMatcher struct {
	re *regexp.Regexp
}

// NewTagMatcher compiles template with vars (Version is ignored) into a
// matcher that captures the version part of matching tags.
func NewTagMatcher(template string, vars TagVars) *TagMatcher {
	filled := vars.replacer(versionPlaceholder).Replace(template)
	pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(filled), versionPlaceholder,
		`(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?)`) + "$"
	return &TagMatcher{re: regexp.MustCompile(pattern)}
}

// Match returns the version embedded in tag, if tag matches.
func (m *TagMatcher) Match(tag string) (string, bool) {
	sub := m.re.FindStringSubmatch(tag)
	if sub == nil {
		return "", false
	}
	if len(sub) < 2 {
		// template without {version}
		return "", true
	}
	if !Valid(sub[1]) {
		return "", false
	}
	return sub[1], true
}

// Latest returns the matching tag with the highest version.
func (m *TagMatcher) Latest(tags []string) (tag string, ver string, ok bool) {
	type candidate struct {
		tag string
		v   *semver.Version
	}
	var found []candidate
	for _, t := range tags {
		s, matched := m.Match(t)
		if !matched || s == "" {
			continue
		}
		v, err := Parse(s)
		if err != nil {
			continue
		}
		found = append(found, candidate{t, v})
	}
	if len(found) == 0 {
		return "", "", false
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].v.GreaterThan(found[j].v) })
	return found[0].tag, found[0].v.String(), true
}
