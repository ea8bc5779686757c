// Package commits parses conventional-commit messages into typed records and
// decides which projects each commit applies to.
package commits

import (
	"regexp"
	"strings"
)

// Commit is a parsed conventional commit. Empty string fields mean "absent".
type Commit struct {
	Hash            string `json:"hash"`
	Type            string `json:"type"`
	Scope           string `json:"scope,omitempty"`
	Subject         string `json:"subject"`
	Body            string `json:"body,omitempty"`
	Breaking        bool   `json:"breaking"`
	BreakingMessage string `json:"breaking_message,omitempty"`
	Footer          string `json:"footer,omitempty"`
}

// Raw is one unparsed commit: its hash and full message.
type Raw struct {
	Hash    string
	Message string
}

var (
	headerRegex   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)(?:\(([^()]*)\))?(!)?:\s*(.*)$`)
	breakingRegex = regexp.MustCompile(`^BREAKING[ -]CHANGE:\s*(.*)$`)
)

// Parse parses a commit message. The second return is false when the first
// line is not a conventional-commit header; callers skip such commits.
func Parse(hash, message string) (Commit, bool) {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	message = strings.TrimLeft(message, "\n")

	header, rest, _ := strings.Cut(message, "\n")
	m := headerRegex.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return Commit{}, false
	}

	subject := strings.TrimSpace(m[4])
	if subject == "" {
		return Commit{}, false
	}

	c := Commit{
		Hash:     strings.TrimSpace(hash),
		Type:     strings.ToLower(m[1]),
		Scope:    strings.TrimSpace(m[2]),
		Subject:  subject,
		Breaking: m[3] == "!",
	}

	body := strings.Trim(rest, "\n")
	body = strings.TrimRight(body, " \t\n")
	if body == "" {
		return c, true
	}
	c.Body = body

	for _, line := range strings.Split(body, "\n") {
		if bm := breakingRegex.FindStringSubmatch(strings.TrimSpace(line)); bm != nil {
			c.Breaking = true
			c.BreakingMessage = strings.TrimSpace(bm[1])
			break
		}
	}

	c.Footer = footerOf(body)
	return c, true
}

// footerOf returns the block after the last blank line of body, or "".
func footerOf(body string) string {
	lines := strings.Split(body, "\n")
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return ""
}

// ParseLog parses `git log --format=%H%x1f%B%x1e` output. Records that are
// not conventional commits are dropped; skipped reports how many.
func ParseLog(raw string) (parsed []Commit, skipped int) {
	for _, r := range SplitLog(raw) {
		c, ok := Parse(r.Hash, r.Message)
		if !ok {
			skipped++
			continue
		}
		parsed = append(parsed, c)
	}
	return parsed, skipped
}

// SplitLog splits raw log text into hash/message records.
func SplitLog(raw string) []Raw {
	var out []Raw
	for _, record := range strings.Split(raw, "\x1e") {
		record = strings.TrimLeft(record, "\r\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		hash, message, ok := strings.Cut(record, "\x1f")
		if !ok {
			continue
		}
		out = append(out, Raw{Hash: strings.TrimSpace(hash), Message: message})
	}
	return out
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// IsGlobal reports whether the commit carries no scope or the wildcard scope.
func (c Commit) IsGlobal() bool {
	return c.Scope == "" || c.Scope == "*"
}

// Scopes returns the comma-separated scope entries, trimmed.
func (c Commit) Scopes() []string {
	if c.Scope == "" {
		return nil
	}
	return splitList(c.Scope)
}

// HasBreaking reports whether any commit is a breaking change.
func HasBreaking(cs []Commit) bool {
	for _, c := range cs {
		if c.Breaking {
			return true
		}
	}
	return false
}

// HasType reports whether any commit has the given type.
func HasType(cs []Commit, typ string) bool {
	for _, c := range cs {
		if c.Type == typ {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
