package github

// Repository is a snapshot of the GitHub REST repository resource at fetch time.
// Optional fields are pointers so that "absent" and "empty" stay distinct.
type Repository struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	Description     *string  `json:"description"`
	HTMLURL         string   `json:"html_url"`
	CloneURL        string   `json:"clone_url"`
	SSHURL          string   `json:"ssh_url"`
	Language        *string  `json:"language"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	WatchersCount   int      `json:"watchers_count"`
	OpenIssuesCount int      `json:"open_issues_count"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	PushedAt        string   `json:"pushed_at"`
	Size            int      `json:"size"`
	DefaultBranch   string   `json:"default_branch"`
	Topics          []string `json:"topics"`
	License         *License `json:"license"`
	Owner           Owner    `json:"owner"`
	HasIssues       bool     `json:"has_issues"`
	HasProjects     bool     `json:"has_projects"`
	HasWiki         bool     `json:"has_wiki"`
	HasPages        bool     `json:"has_pages"`
	HasDownloads    bool     `json:"has_downloads"`
	Archived        bool     `json:"archived"`
	Disabled        bool     `json:"disabled"`
	Visibility      string   `json:"visibility"`
}

// License describes the detected repository license.
type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// Owner describes the account that owns the repository.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Type      string `json:"type"`
}

// DescriptionOr returns the description or fallback when absent or empty.
func (r *Repository) DescriptionOr(fallback string) string {
	if r.Description == nil || *r.Description == "" {
		return fallback
	}
	return *r.Description
}

// LanguageOr returns the primary language or fallback when absent or empty.
func (r *Repository) LanguageOr(fallback string) string {
	if r.Language == nil || *r.Language == "" {
		return fallback
	}
	return *r.Language
}

// LicenseNameOr returns the license name or fallback when absent.
func (r *Repository) LicenseNameOr(fallback string) string {
	if r.License == nil || r.License.Name == "" {
		return fallback
	}
	return r.License.Name
}
