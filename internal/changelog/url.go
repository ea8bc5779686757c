package changelog

import (
	"net/url"
	"regexp"
	"strings"
)

var scpLike = regexp.MustCompile(`^(?:[^@/]+@)?([^:/]+):(.+)$`)

// NormalizeRepoURL rewrites a git remote into the https form used for commit
// links:
//   - git@github.com:owner/repo.git      -> https://github.com/owner/repo
//   - ssh://git@github.com:22/owner/repo -> https://github.com/owner/repo
//   - git://github.com/owner/repo.git    -> https://github.com/owner/repo
//
// Credentials and trailing slashes are dropped. Unrecognized input is returned
// trimmed of ".git".
func NormalizeRepoURL(remote string) string {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return ""
	}
	remote = strings.TrimSuffix(strings.TrimRight(remote, "/"), ".git")
	remote = strings.TrimPrefix(remote, "git+")

	if !strings.Contains(remote, "://") {
		if m := scpLike.FindStringSubmatch(remote); m != nil {
			return "https://" + m[1] + "/" + strings.TrimPrefix(m[2], "/")
		}
		return remote
	}

	u, err := url.Parse(remote)
	if err != nil || u.Host == "" {
		return remote
	}
	switch u.Scheme {
	case "ssh", "git", "http", "https":
	default:
		return remote
	}
	host := u.Hostname()
	if u.Scheme == "http" || u.Scheme == "https" {
		host = u.Host
	}
	scheme := "https"
	if u.Scheme == "http" {
		scheme = "http"
	}
	return scheme + "://" + host + "/" + strings.Trim(u.Path, "/")
}
