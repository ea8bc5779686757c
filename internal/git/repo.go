package git

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	httpsRepoRegex = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)$`)
	sshRepoRegex   = regexp.MustCompile(`^(?:ssh://)?git@[^:/]+(?::\d+)?[:/]([^/]+)/([^/]+)$`)
	gitRepoRegex   = regexp.MustCompile(`^git://[^/]+/([^/]+)/([^/]+)$`)
)

// ParseRepoURL extracts owner and repo name from a git remote URL
// Supports multiple URL formats:
//   - HTTPS: https://github.com/owner/repo.git
//   - SSH: git@github.com:owner/repo.git or ssh://git@github.com/owner/repo
//   - Git protocol: git://github.com/owner/repo.git
func ParseRepoURL(remoteURL string) (owner, repo string, err error) {
	remoteURL = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(remoteURL), "/"), ".git")

	for _, re := range []*regexp.Regexp{httpsRepoRegex, sshRepoRegex, gitRepoRegex} {
		if m := re.FindStringSubmatch(remoteURL); len(m) == 3 {
			return m[1], m[2], nil
		}
	}
	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}
