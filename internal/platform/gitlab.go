package platform

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jetbrains/qodana-ci/pkg/gitlab"
	"github.com/jetbrains/qodana-ci/pkg/report"
)

// GitLab publishes to GitLab CI/CD.
type GitLab struct {
	client     *gitlab.Client
	pipeline   gitlab.Pipeline
	projectDir string
	token      string
	out        io.Writer
}

// NewGitLab reads the pipeline context from the environment. token is a
// project or personal access token with api scope, QODANA_GITLAB_TOKEN by
// default.
func NewGitLab(getenv func(string) string, token string, out io.Writer) *GitLab {
	if token == "" {
		token = getenv("QODANA_GITLAB_TOKEN")
	}
	pipeline := gitlab.LoadPipeline(getenv)
	return &GitLab{
		client:     gitlab.New(pipeline.APIURL, token),
		pipeline:   pipeline,
		projectDir: getenv("CI_PROJECT_DIR"),
		token:      token,
		out:        out,
	}
}

func (g *GitLab) Name() string {
	return "GitLab"
}

func (g *GitLab) Context(context.Context) (RunContext, error) {
	run := RunContext{
		PullRequest:  g.pipeline.IsMergeRequest(),
		Branch:       g.pipeline.SourceBranch,
		TargetBranch: g.pipeline.DefaultBranch,
		SHA:          g.pipeline.CommitSHA,
		GitUsername:  "oauth2",
		GitToken:     g.token,
	}
	if run.PullRequest {
		run.DiffStart = g.pipeline.DiffBaseSHA
		run.TargetBranch = g.pipeline.TargetBranch
	}
	return run, nil
}

// PublishSummary prints the summary to the job log; GitLab has no job
// summary surface.
func (g *GitLab) PublishSummary(_ context.Context, summary Summary) error {
	_, err := fmt.Fprintln(g.out, summary.Markdown)
	return err
}

// PublishAnnotations writes a Code Quality report to the project directory,
// to be declared as artifacts:reports:codequality.
func (g *GitLab) PublishAnnotations(_ context.Context, _ Summary, annotations []report.Annotation) error {
	return gitlab.WriteCodeQualityReport(filepath.Join(g.projectDir, gitlab.CodeQualityReport), annotations)
}

func (g *GitLab) PostComment(ctx context.Context, body, tag string) error {
	if !g.pipeline.IsMergeRequest() {
		return ErrNotSupported
	}
	return g.client.CreateOrUpdateNote(ctx, g.pipeline.ProjectID, g.pipeline.MergeRequestIID, body, tag)
}

// UploadArtifacts copies dir into the project directory, where job
// artifacts must live.
func (g *GitLab) UploadArtifacts(_ context.Context, name, dir string) error {
	return copyDir(dir, filepath.Join(g.projectDir, ".qodana", name))
}

func (g *GitLab) OpenPullRequest(ctx context.Context, branch, base, title string) (string, error) {
	return g.client.CreateMergeRequest(ctx, g.pipeline.ProjectID, branch, base, title)
}
