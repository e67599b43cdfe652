package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

const apiVersion = "7.0"

const (
	commentTypeText  = 1
	threadStatusOpen = 1
)

// Client talks to the Azure DevOps REST API of one repository.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	repositoryID string
	token        string
}

// New returns a client for the repository repositoryID of the project at
// collectionURI/project, authenticated with the job access token.
func New(collectionURI, project, repositoryID, token string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimSuffix(collectionURI, "/") + "/" + url.PathEscape(project),
		repositoryID: repositoryID,
		token:        token,
	}
}

type comment struct {
	ID              int    `json:"id,omitempty"`
	ParentCommentID int    `json:"parentCommentId,omitempty"`
	Content         string `json:"content"`
	CommentType     int    `json:"commentType,omitempty"`
}

type thread struct {
	ID       int       `json:"id,omitempty"`
	Comments []comment `json:"comments"`
	Status   int       `json:"status,omitempty"`
}

// CreateOrUpdateThread posts body, tagged with tag, as a pull request thread.
// The first comment of a thread already carrying the tag is edited instead.
func (c *Client) CreateOrUpdateThread(ctx context.Context, pullRequestID int, body, tag string) error {
	threadsPath := fmt.Sprintf("/_apis/git/repositories/%s/pullRequests/%d/threads", url.PathEscape(c.repositoryID), pullRequestID)
	content := report.WithTag(body, tag)

	resp, err := c.doRequest(ctx, http.MethodGet, threadsPath, nil)
	if err != nil {
		return err
	}
	var threads struct {
		Value []thread `json:"value"`
	}
	if err := decode(resp, &threads); err != nil {
		return fmt.Errorf("listing threads of pull request %d: %w", pullRequestID, err)
	}

	for _, existing := range threads.Value {
		if len(existing.Comments) == 0 || !strings.Contains(existing.Comments[0].Content, tag) {
			continue
		}
		path := fmt.Sprintf("%s/%d/comments/%d", threadsPath, existing.ID, existing.Comments[0].ID)
		resp, err := c.doJSON(ctx, http.MethodPatch, path, comment{Content: content})
		if err != nil {
			return err
		}
		return decode(resp, nil)
	}

	resp, err = c.doJSON(ctx, http.MethodPost, threadsPath, thread{
		Comments: []comment{{Content: content, CommentType: commentTypeText}},
		Status:   threadStatusOpen,
	})
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, method, path, bytes.NewReader(body))
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?api-version="+apiVersion, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.httpClient.Do(req)
}

func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("unexpected status: %d, body: %s", resp.StatusCode, string(body))
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
