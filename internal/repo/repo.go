// Package repo talks to the course repository's content tree through the
// GitHub Contents API. Every write creates a commit with a human-readable
// message; updates carry the blob SHA read beforehand, so a concurrent
// external edit surfaces as a conflict instead of a lost update.
package repo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"
)

const defaultAPIBaseURL = "https://api.github.com"

// ErrNotFound is returned by ReadArtifact when the path does not exist in
// the content tree.
var ErrNotFound = errors.New("artifact not found")

// Client is a minimal GitHub Contents API client scoped to one repository
// and branch.
type Client struct {
	owner      string
	name       string
	branch     string
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(owner, name, branch, token string) *Client {
	return &Client{
		owner:      owner,
		name:       name,
		branch:     branch,
		token:      token,
		baseURL:    defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GitHub API types.

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type contentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

// ReadArtifact fetches a file from the content tree and returns its decoded
// content together with the blob SHA used as the version token for updates.
func (c *Client) ReadArtifact(ctx context.Context, path string) (string, string, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, c.owner, c.name, path, url.QueryEscape(c.branch))

	req, err := c.newRequest(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", fmt.Errorf("read %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", "", fmt.Errorf("read %s: GitHub returned status %d: %s", path, resp.StatusCode, string(body))
	}

	var contents contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return "", "", fmt.Errorf("parse contents response: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), contents.SHA, nil
}

// CreateArtifact adds a new file to the content tree.
func (c *Client) CreateArtifact(ctx context.Context, path, content, message string) error {
	return c.putContents(ctx, path, contentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  c.branch,
	})
}

// UpdateArtifact replaces an existing file. The sha must be the version
// token returned by ReadArtifact; a stale token makes GitHub reject the
// write with a conflict.
func (c *Client) UpdateArtifact(ctx context.Context, path, content, message, sha string) error {
	return c.putContents(ctx, path, contentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Branch:  c.branch,
		SHA:     sha,
	})
}

func (c *Client) putContents(ctx context.Context, path string, body contentsRequest) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal contents request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.name, path)
	req, err := c.newRequest(ctx, "PUT", reqURL, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("write %s: GitHub returned status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return nil
}

// TriggerDeployment dispatches the repository's deployment workflow for the
// given ref. Fire-and-forget: callers log a failure and move on.
func (c *Client) TriggerDeployment(ctx context.Context, workflow, ref string) error {
	body, err := json.Marshal(map[string]string{"ref": ref})
	if err != nil {
		return fmt.Errorf("marshal dispatch request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		c.baseURL, c.owner, c.name, workflow)
	req, err := c.newRequest(ctx, "POST", reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch workflow %s: %w", workflow, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("dispatch workflow %s: GitHub returned status %d: %s", workflow, resp.StatusCode, string(respBody))
	}
	return nil
}

// Branch returns the branch this client writes to, for use as the
// deployment ref.
func (c *Client) Branch() string { return c.branch }

func (c *Client) newRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", "courseforge")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
