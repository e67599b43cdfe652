/*
Copyright © 2025 JetBrains s.r.o.

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

const userAgent = "qodana-ci"

// Client talks to the GitLab REST API v4.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New returns a client for the API root baseURL, e.g. CI_API_V4_URL.
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// Note is a merge request comment.
type Note struct {
	ID   int    `json:"id"`
	Body string `json:"body"`
}

// ListNotes returns every note of a merge request.
func (c *Client) ListNotes(ctx context.Context, projectID string, mrIID int) ([]Note, error) {
	var notes []Note
	page := 1
	for page > 0 {
		path := fmt.Sprintf("%s?per_page=100&page=%d", notesPath(projectID, mrIID), page)
		resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var pageNotes []Note
		err = decode(resp, &pageNotes)
		if err != nil {
			return nil, err
		}
		notes = append(notes, pageNotes...)

		page = 0
		if next, err := strconv.Atoi(resp.Header.Get("X-Next-Page")); err == nil && next > 0 {
			page = next
		}
	}
	return notes, nil
}

// CreateOrUpdateNote posts body, tagged with tag, on a merge request. A note
// already carrying the tag is edited instead.
func (c *Client) CreateOrUpdateNote(ctx context.Context, projectID string, mrIID int, body, tag string) error {
	notes, err := c.ListNotes(ctx, projectID, mrIID)
	if err != nil {
		return err
	}

	payload := map[string]string{"body": report.WithTag(body, tag)}
	method, path := http.MethodPost, notesPath(projectID, mrIID)
	for _, note := range notes {
		if strings.Contains(note.Body, tag) {
			method, path = http.MethodPut, fmt.Sprintf("%s/%d", path, note.ID)
			break
		}
	}

	resp, err := c.doJSON(ctx, method, path, payload)
	if err != nil {
		return fmt.Errorf("posting note on merge request !%d: %w", mrIID, err)
	}
	return decode(resp, nil)
}

// CreateMergeRequest opens a merge request and returns its web URL.
func (c *Client) CreateMergeRequest(ctx context.Context, projectID, source, target, title string) (string, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/merge_requests", map[string]any{
		"source_branch":        source,
		"target_branch":        target,
		"title":                title,
		"remove_source_branch": true,
	})
	if err != nil {
		return "", fmt.Errorf("opening merge request %s -> %s: %w", source, target, err)
	}

	var mr struct {
		WebURL string `json:"web_url"`
	}
	if err := decode(resp, &mr); err != nil {
		return "", err
	}
	return mr.WebURL, nil
}

func notesPath(projectID string, mrIID int) string {
	return fmt.Sprintf("/projects/%s/merge_requests/%d/notes", url.PathEscape(projectID), mrIID)
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.doRequest(ctx, method, path, bytes.NewReader(body))
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("User-Agent", userAgent)

	return c.httpClient.Do(req)
}

// decode checks the status of resp and decodes its body into v when v is not nil.
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
