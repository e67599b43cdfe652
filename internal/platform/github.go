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

package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jetbrains/qodana-ci/pkg/github"
	"github.com/jetbrains/qodana-ci/pkg/report"
)

const (
	defaultGitHubAPI = "https://api.github.com"
	// maxCheckRunSummary is the longest summary a check run accepts.
	maxCheckRunSummary = 65535
)

// GitHub publishes to GitHub Actions.
type GitHub struct {
	client *github.Client
	event  github.Event
	getenv func(string) string
	token  string
	out    io.Writer
}

// NewGitHub reads the workflow context from the environment. token defaults
// to GITHUB_TOKEN.
func NewGitHub(getenv func(string) string, token string, out io.Writer) (*GitHub, error) {
	event, err := github.LoadEvent(getenv)
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = getenv("GITHUB_TOKEN")
	}

	client := github.New(token)
	if apiURL := getenv("GITHUB_API_URL"); apiURL != "" && apiURL != defaultGitHubAPI {
		client, err = github.NewWithBaseURL(token, apiURL)
		if err != nil {
			return nil, err
		}
	}
	return &GitHub{client: client, event: event, getenv: getenv, token: token, out: out}, nil
}

func (g *GitHub) Name() string {
	return "GitHub"
}

func (g *GitHub) Context(context.Context) (RunContext, error) {
	run := RunContext{
		PullRequest:  g.event.IsPullRequest(),
		Branch:       g.getenv("GITHUB_REF_NAME"),
		TargetBranch: g.getenv("GITHUB_REF_NAME"),
		SHA:          g.event.SHA,
		GitUsername:  "x-access-token",
		GitToken:     g.token,
	}
	if run.PullRequest {
		run.DiffStart = g.event.PullRequest.BaseSHA
		run.Branch = g.event.PullRequest.HeadRef
		run.TargetBranch = g.event.PullRequest.BaseRef
	}
	return run, nil
}

func (g *GitHub) PublishSummary(_ context.Context, summary Summary) error {
	return github.AppendStepSummary(g.getenv("GITHUB_STEP_SUMMARY"), summary.Markdown)
}

func (g *GitHub) PublishAnnotations(ctx context.Context, summary Summary, annotations []report.Annotation) error {
	text := truncate(summary.Markdown, maxCheckRunSummary)
	_, err := g.client.PublishCheckRun(ctx, g.event.Repository, github.CheckRun{
		HeadSHA:     g.event.SHA,
		Title:       summary.Title,
		Summary:     text,
		Annotations: annotations,
		Failed:      summary.Failed,
	})
	return err
}

func (g *GitHub) PostComment(ctx context.Context, body, tag string) error {
	if !g.event.IsPullRequest() {
		return ErrNotSupported
	}
	return g.client.CreateOrUpdateComment(ctx, g.event.Repository, g.event.PullRequest.Number, body, tag)
}

// UploadArtifacts stages dir under RUNNER_TEMP and exposes it as the
// artifact-dir step output for an upload-artifact step.
func (g *GitHub) UploadArtifacts(_ context.Context, name, dir string) error {
	root := g.getenv("RUNNER_TEMP")
	if root == "" {
		root = os.TempDir()
	}
	staging := filepath.Join(root, "qodana-artifacts", name)
	if err := copyDir(dir, staging); err != nil {
		return err
	}

	if output := g.getenv("GITHUB_OUTPUT"); output != "" {
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		fmt.Fprintf(file, "artifact-dir=%s\n", staging)
		if err := file.Close(); err != nil {
			return err
		}
	}
	fmt.Fprintf(g.out, "::notice title=Qodana::Results staged at %s\n", staging)
	return nil
}

func (g *GitHub) OpenPullRequest(ctx context.Context, branch, base, title string) (string, error) {
	return g.client.CreatePullRequest(ctx, g.event.Repository, branch, base, title,
		"Quick fixes applied by Qodana to `"+base+"`.")
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
