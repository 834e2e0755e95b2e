// Package github is a small client for the Git database, pull request and
// contents endpoints of the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harmonyui/harmonycn/internal/telemetry"
)

// APIVersion is sent with every request.
const APIVersion = "2022-11-28"

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Operation, e.StatusCode, strings.TrimSpace(e.Body))
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root (default https://api.github.com).
	BaseURL string
	Token   string
	Metrics *telemetry.Metrics
}

// Client talks to the GitHub REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
	metrics    *telemetry.Metrics
}

// NewClient creates a client. A nil httpClient gets a 30 second timeout.
func NewClient(config Config, httpClient HTTPClient) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		metrics:    config.Metrics,
	}
}

func (c *Client) repoURL(repo Repo, format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s/", c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Name)) +
		fmt.Sprintf(format, args...)
}

// GetBranch returns a branch and its tip commit.
func (c *Client) GetBranch(ctx context.Context, repo Repo, branch string) (*Branch, error) {
	var b Branch
	if err := c.doRequest(ctx, "get_branch", http.MethodGet, c.repoURL(repo, "branches/%s", branch), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetCommit returns a commit object.
func (c *Client) GetCommit(ctx context.Context, repo Repo, sha string) (*Commit, error) {
	var commit Commit
	if err := c.doRequest(ctx, "get_commit", http.MethodGet, c.repoURL(repo, "git/commits/%s", sha), nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// CreateRef creates ref (for example refs/heads/update-1) at sha.
func (c *Client) CreateRef(ctx context.Context, repo Repo, ref, sha string) (*Ref, error) {
	body := map[string]string{"ref": ref, "sha": sha}
	var r Ref
	if err := c.doRequest(ctx, "create_ref", http.MethodPost, c.repoURL(repo, "git/refs"), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRef moves ref (for example heads/update-1) to sha.
func (c *Client) UpdateRef(ctx context.Context, repo Repo, ref, sha string, force bool) (*Ref, error) {
	body := map[string]any{"sha": sha, "force": force}
	var r Ref
	if err := c.doRequest(ctx, "update_ref", http.MethodPatch, c.repoURL(repo, "git/refs/%s", ref), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRef deletes ref (for example heads/update-1).
func (c *Client) DeleteRef(ctx context.Context, repo Repo, ref string) error {
	return c.doRequest(ctx, "delete_ref", http.MethodDelete, c.repoURL(repo, "git/refs/%s", ref), nil, nil)
}

// CreateBlob stores content as a UTF-8 blob.
func (c *Client) CreateBlob(ctx context.Context, repo Repo, content string) (*Blob, error) {
	body := map[string]string{"content": content, "encoding": "utf-8"}
	var b Blob
	if err := c.doRequest(ctx, "create_blob", http.MethodPost, c.repoURL(repo, "git/blobs"), body, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateTree creates a tree from entries on top of baseTree.
func (c *Client) CreateTree(ctx context.Context, repo Repo, baseTree string, entries []TreeEntry) (*Tree, error) {
	body := struct {
		BaseTree string      `json:"base_tree,omitempty"`
		Tree     []TreeEntry `json:"tree"`
	}{baseTree, entries}
	var t Tree
	if err := c.doRequest(ctx, "create_tree", http.MethodPost, c.repoURL(repo, "git/trees"), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateCommit creates a commit object.
func (c *Client) CreateCommit(ctx context.Context, repo Repo, commit NewCommit) (*Commit, error) {
	var out Commit
	if err := c.doRequest(ctx, "create_commit", http.MethodPost, c.repoURL(repo, "git/commits"), commit, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePullRequest opens a pull request.
func (c *Client) CreatePullRequest(ctx context.Context, repo Repo, pr NewPullRequest) (*PullRequest, error) {
	var out PullRequest
	if err := c.doRequest(ctx, "create_pull_request", http.MethodPost, c.repoURL(repo, "pulls"), pr, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContent returns the decoded content of a file at ref.
func (c *Client) GetContent(ctx context.Context, repo Repo, path, ref string) (string, error) {
	u := c.repoURL(repo, "contents/%s", strings.TrimPrefix(path, "/"))
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	var f content
	if err := c.doRequest(ctx, "get_content", http.MethodGet, u, nil, &f); err != nil {
		return "", err
	}
	if f.Type != "file" {
		return "", fmt.Errorf("get_content: %s is a %s, not a file", path, f.Type)
	}
	if f.Encoding != "base64" {
		return f.Content, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("get_content: %w", err)
	}
	return string(data), nil
}

// GetUser returns the account the token belongs to.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.doRequest(ctx, "get_user", http.MethodGet, c.baseURL+"/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// doRequest performs an HTTP request to the GitHub API. A nil result
// discards the response body.
func (c *Client) doRequest(ctx context.Context, operation, method, url string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", operation, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", operation, err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordHostRequest(operation, 0, time.Since(start))
		return fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordHostRequest(operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}
	return nil
}
