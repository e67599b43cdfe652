package platform

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/jetbrains/qodana-ci/internal/vcs"
	"github.com/jetbrains/qodana-ci/pkg/azure"
	"github.com/jetbrains/qodana-ci/pkg/report"
)

// Azure publishes to Azure Pipelines.
type Azure struct {
	client   *azure.Client
	build    azure.Build
	commands *azure.Commands
	dir      string
}

// NewAzure reads the build context from the environment. dir is the
// repository checkout, used to compute the pull request merge base.
func NewAzure(getenv func(string) string, dir string, out io.Writer) *Azure {
	build := azure.LoadBuild(getenv)
	return &Azure{
		client:   azure.New(build.CollectionURI, build.Project, build.RepositoryID, build.AccessToken),
		build:    build,
		commands: azure.NewCommands(out),
		dir:      dir,
	}
}

func (a *Azure) Name() string {
	return "Azure Pipelines"
}

func (a *Azure) Context(context.Context) (RunContext, error) {
	run := RunContext{
		PullRequest:  a.build.IsPullRequest(),
		Branch:       a.build.SourceBranch,
		TargetBranch: a.build.SourceBranch,
		GitUsername:  "azure-pipelines",
		GitToken:     a.build.AccessToken,
	}
	if !run.PullRequest {
		return run, nil
	}

	run.TargetBranch = a.build.TargetBranch
	base, err := vcs.MergeBase(a.dir, "origin/"+a.build.TargetBranch)
	if err != nil {
		return run, err
	}
	run.DiffStart = base
	return run, nil
}

func (a *Azure) PublishSummary(_ context.Context, summary Summary) error {
	path, err := writeTemp(a.build.StagingDir, "qodana-summary-*.md", summary.Markdown)
	if err != nil {
		return err
	}
	return a.commands.UploadSummary(path)
}

func (a *Azure) PublishAnnotations(_ context.Context, summary Summary, annotations []report.Annotation) error {
	for _, annotation := range annotations {
		if err := a.commands.LogIssue(annotation); err != nil {
			return err
		}
	}
	if summary.Failed {
		return a.commands.SetResult("Failed", summary.Title)
	}
	return nil
}

func (a *Azure) PostComment(ctx context.Context, body, tag string) error {
	if !a.build.IsPullRequest() {
		return ErrNotSupported
	}
	return a.client.CreateOrUpdateThread(ctx, a.build.PullRequestID, body, tag)
}

// UploadArtifacts copies dir under the artifact staging directory, which
// outlives the step, since the agent uploads it after the command is printed.
func (a *Azure) UploadArtifacts(_ context.Context, name, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	root := a.build.StagingDir
	if root == "" {
		root = os.TempDir()
	}
	staging := filepath.Join(root, "qodana-artifacts", name)
	if err := copyDir(dir, staging); err != nil {
		return err
	}
	return a.commands.UploadArtifact("qodana", name, staging)
}

func (a *Azure) OpenPullRequest(context.Context, string, string, string) (string, error) {
	return "", ErrNotSupported
}
