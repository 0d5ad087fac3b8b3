package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// Client performs unauthenticated reads against the GitHub REST API.
// It never retries and never caches; every call re-queries the provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient returns a client with the given timeout against DefaultBaseURL.
func NewClient(httpTimeout time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		baseURL:    DefaultBaseURL,
		userAgent:  "readmegen-cli",
	}
}

// NewClientWithBaseURL allows injecting a custom base URL (used in tests and config).
func NewClientWithBaseURL(httpTimeout time.Duration, baseURL string) *Client {
	c := NewClient(httpTimeout)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// GetRepository fetches /repos/{owner}/{repo}.
//
// Errors are *NotFoundError for 404, *UpstreamError for any other non-2xx
// status or an undecodable body, and *TransportError when no response arrived.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	ref := RepoRef{Owner: owner, Repo: repo}
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &NotFoundError{Ref: ref}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	var out Repository
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: statusText(resp), Err: fmt.Errorf("decode repository: %w", err)}
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}
	return &out, nil
}

// statusText returns the reason phrase without the numeric code.
func statusText(resp *http.Response) string {
	if t := http.StatusText(resp.StatusCode); t != "" {
		return t
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
}
