package platform

import (
	"context"
	"fmt"
	"io"

	"github.com/jetbrains/qodana-ci/internal/console"
	"github.com/jetbrains/qodana-ci/pkg/report"
)

// Local prints results to a terminal.
type Local struct {
	out       io.Writer
	diffStart string
}

// NewLocal returns a platform printing to out. A non-empty diffStart runs
// the analysis in pull request mode from that commit.
func NewLocal(out io.Writer, diffStart string) *Local {
	return &Local{out: out, diffStart: diffStart}
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) Context(context.Context) (RunContext, error) {
	return RunContext{PullRequest: l.diffStart != "", DiffStart: l.diffStart}, nil
}

func (l *Local) PublishSummary(_ context.Context, summary Summary) error {
	_, err := io.WriteString(l.out, console.Render(console.Summary{
		Title:         summary.Title,
		Problems:      summary.Problems,
		Coverage:      summary.Coverage,
		ReportURL:     summary.ReportURL,
		FailThreshold: summary.Failed,
	}))
	return err
}

func (l *Local) PublishAnnotations(_ context.Context, _ Summary, annotations []report.Annotation) error {
	for _, annotation := range annotations {
		if _, err := fmt.Fprintf(l.out, "%s:%d: [%s] %s: %s\n", annotation.Path, annotation.StartLine,
			annotation.Severity, annotation.Title, annotation.Message); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) PostComment(context.Context, string, string) error {
	return ErrNotSupported
}

func (l *Local) UploadArtifacts(context.Context, string, string) error {
	return ErrNotSupported
}

func (l *Local) OpenPullRequest(context.Context, string, string, string) (string, error) {
	return "", ErrNotSupported
}
