package github

import (
	"regexp"
	"strings"
)

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Repo  string
}

// String returns "owner/repo".
func (r RepoRef) String() string { return r.Owner + "/" + r.Repo }

// The repo segment is greedy up to the next slash, so query strings and
// fragments stay attached to it.
var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// ParseRepoURL extracts owner and repo from the first "github.com/{owner}/{repo}"
// occurrence in s. A single trailing ".git" is stripped from repo.
func ParseRepoURL(s string) (RepoRef, bool) {
	m := repoURLPattern.FindStringSubmatch(s)
	if m == nil {
		return RepoRef{}, false
	}
	return RepoRef{Owner: m[1], Repo: TrimGitSuffix(m[2])}, true
}

// TrimGitSuffix removes one trailing ".git" from a repository name.
func TrimGitSuffix(repo string) string {
	return strings.TrimSuffix(repo, ".git")
}
