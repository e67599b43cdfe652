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

package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v70/github"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

// CheckRunName is the name of the check run carrying the annotations.
const CheckRunName = "Qodana"

// New returns a client authenticated with token, or with GITHUB_TOKEN when
// token is empty.
func New(token string) *Client {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return NewUnauthenticated()
	}

	return &Client{
		gh: github.NewClient(nil).WithAuthToken(token),
	}
}

func NewUnauthenticated() *Client {
	return &Client{
		gh: github.NewClient(nil),
	}
}

// NewWithBaseURL returns a client talking to a GitHub Enterprise server or
// any other API root.
func NewWithBaseURL(token, baseURL string) (*Client, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API URL %q: %w", baseURL, err)
	}
	client.BaseURL = parsed
	return &Client{gh: client}, nil
}

type Client struct {
	gh *github.Client
}

// Repository identifies a repository as owner/name.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository splits an owner/name string such as GITHUB_REPOSITORY.
func ParseRepository(fullName string) (Repository, error) {
	owner, name, found := strings.Cut(strings.Trim(fullName, "/"), "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("repository must be owner/name: %q", fullName)
	}
	return Repository{Owner: owner, Name: name}, nil
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// FindComment returns the first comment of an issue or pull request whose
// body contains tag.
func (c *Client) FindComment(ctx context.Context, repo Repository, number int, tag string) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, repo.Owner, repo.Name, number, opts)
		if sleepOnRateLimitError(ctx, err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing comments of %s#%d: %w", repo, number, err)
		}

		for _, comment := range comments {
			if strings.Contains(comment.GetBody(), tag) {
				return comment, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateOrUpdateComment posts body, tagged with tag, on a pull request. A
// comment already carrying the tag is edited instead.
func (c *Client) CreateOrUpdateComment(ctx context.Context, repo Repository, number int, body, tag string) error {
	existing, err := c.FindComment(ctx, repo, number, tag)
	if err != nil {
		return err
	}

	comment := &github.IssueComment{Body: github.Ptr(report.WithTag(body, tag))}
	for {
		if existing != nil {
			_, _, err = c.gh.Issues.EditComment(ctx, repo.Owner, repo.Name, existing.GetID(), comment)
		} else {
			_, _, err = c.gh.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, comment)
		}
		if sleepOnRateLimitError(ctx, err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("posting comment on %s#%d: %w", repo, number, err)
		}
		return nil
	}
}

// CheckRun describes the check run that carries the annotations of a run.
type CheckRun struct {
	HeadSHA     string
	Title       string
	Summary     string
	Annotations []report.Annotation
	// Failed forces a failure conclusion, e.g. when the fail threshold was exceeded.
	Failed bool
}

// PublishCheckRun creates a check run with the first batch of annotations and
// appends every following batch with an update, as the API accepts at most
// report.MaxAnnotationsPerRequest annotations per request.
func (c *Client) PublishCheckRun(ctx context.Context, repo Repository, run CheckRun) (int64, error) {
	conclusion := checkConclusion(run.Annotations, run.Failed)
	batches := report.Batch(run.Annotations, report.MaxAnnotationsPerRequest)
	if len(batches) == 0 {
		batches = [][]report.Annotation{nil}
	}

	var checkRunID int64
	for i, batch := range batches {
		output := &github.CheckRunOutput{
			Title:       github.Ptr(run.Title),
			Summary:     github.Ptr(run.Summary),
			Annotations: toCheckRunAnnotations(batch),
		}
		for {
			var (
				checkRun *github.CheckRun
				err      error
			)
			if i == 0 {
				checkRun, _, err = c.gh.Checks.CreateCheckRun(ctx, repo.Owner, repo.Name, github.CreateCheckRunOptions{
					Name:       CheckRunName,
					HeadSHA:    run.HeadSHA,
					Status:     github.Ptr("completed"),
					Conclusion: github.Ptr(conclusion),
					Output:     output,
				})
			} else {
				checkRun, _, err = c.gh.Checks.UpdateCheckRun(ctx, repo.Owner, repo.Name, checkRunID, github.UpdateCheckRunOptions{
					Name:       CheckRunName,
					Status:     github.Ptr("completed"),
					Conclusion: github.Ptr(conclusion),
					Output:     output,
				})
			}
			if sleepOnRateLimitError(ctx, err) {
				continue
			}
			if err != nil {
				return checkRunID, fmt.Errorf("publishing annotations batch %d/%d: %w", i+1, len(batches), err)
			}
			checkRunID = checkRun.GetID()
			break
		}
	}
	return checkRunID, nil
}

func checkConclusion(annotations []report.Annotation, failed bool) string {
	if failed {
		return "failure"
	}
	switch report.Conclusion(annotations) {
	case report.Failure:
		return "failure"
	case report.Warning:
		return "neutral"
	default:
		return "success"
	}
}

func toCheckRunAnnotations(annotations []report.Annotation) []*github.CheckRunAnnotation {
	if len(annotations) == 0 {
		return nil
	}
	result := make([]*github.CheckRunAnnotation, 0, len(annotations))
	for _, annotation := range annotations {
		result = append(result, &github.CheckRunAnnotation{
			Path:            github.Ptr(annotation.Path),
			StartLine:       github.Ptr(annotation.StartLine),
			EndLine:         github.Ptr(annotation.EndLine),
			StartColumn:     annotation.StartColumn,
			EndColumn:       annotation.EndColumn,
			AnnotationLevel: github.Ptr(string(annotation.Severity)),
			Title:           github.Ptr(annotation.Title),
			Message:         github.Ptr(annotation.Message),
		})
	}
	return result
}

// CreatePullRequest opens a pull request from head into base and returns its URL.
func (c *Client) CreatePullRequest(ctx context.Context, repo Repository, head, base, title, body string) (string, error) {
	for {
		pr, _, err := c.gh.PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
			Title: github.Ptr(title),
			Head:  github.Ptr(head),
			Base:  github.Ptr(base),
			Body:  github.Ptr(body),
		})
		if sleepOnRateLimitError(ctx, err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("opening pull request %s -> %s: %w", head, base, err)
		}
		return pr.GetHTMLURL(), nil
	}
}

func sleepOnRateLimitError(ctx context.Context, err error) bool {
	var rateLimitErr *github.RateLimitError
	if !errors.As(err, &rateLimitErr) {
		return false
	}

	sleepDelay := time.Until(rateLimitErr.Rate.Reset.Time)
	fmt.Printf("Rate limit exceeded, waiting %d seconds for reset...\n", int64(sleepDelay.Seconds()))

	select {
	case <-ctx.Done():
		return false
	case <-time.After(sleepDelay):
	}

	return true
}
