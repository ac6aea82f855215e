// Package github is a minimal anonymous client for the public GitHub REST
// surface the mirror feature needs: directory listings, the latest commit
// SHA, and raw content downloads. Calls carry only a User-Agent header, so
// they run at the anonymous rate-limit tier.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// APIError reports a non-2xx response from GitHub or a raw download host.
type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s returned status %d", e.URL, e.Status)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// ContentEntry is one item of a repository contents listing.
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"` // "file", "dir", "symlink", "submodule"
	Size        int64  `json:"size"`
	SHA         string `json:"sha"`
	DownloadURL string `json:"download_url"`
}

// IsMarkdownFile reports whether the entry is a regular file ending in .md.
func (e ContentEntry) IsMarkdownFile() bool {
	return e.Type == "file" && strings.HasSuffix(e.Name, ".md")
}

// IsDir reports whether the entry is a directory.
func (e ContentEntry) IsDir() bool {
	return e.Type == "dir"
}

type Client struct {
	// BaseURL points at the REST API root; tests swap in an httptest server.
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		UserAgent:  userAgent,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, url string, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &APIError{Status: resp.StatusCode, URL: url}
	}
	return resp, nil
}

// Contents lists a repository path. GitHub returns an array for directories
// and a single object for a file path; both shapes come back as a slice.
func (c *Client) Contents(ctx context.Context, owner, repo, path string) ([]ContentEntry, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.BaseURL, owner, repo, path)

	resp, err := c.do(ctx, url, "application/vnd.github.v3+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var entries []ContentEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}

	var single ContentEntry
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("github: decoding contents of %s: %w", url, err)
	}
	return []ContentEntry{single}, nil
}

// LatestCommitSHA returns the SHA of the most recent commit on the default
// branch, or "" when the repository has no commits.
func (c *Client) LatestCommitSHA(ctx context.Context, owner, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/commits?per_page=1", c.BaseURL, owner, repo)

	resp, err := c.do(ctx, url, "application/vnd.github.v3+json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return "", fmt.Errorf("github: decoding commits of %s/%s: %w", owner, repo, err)
	}
	if len(commits) == 0 {
		return "", nil
	}
	return commits[0].SHA, nil
}

// Download fetches raw file content from an absolute download URL as handed
// out by the contents API.
func (c *Client) Download(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, url, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
