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
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

// ErrNotSupported is returned for operations a platform has no surface for.
var ErrNotSupported = errors.New("not supported on this platform")

// RunContext describes the job a run belongs to.
type RunContext struct {
	// PullRequest is set for pull and merge request jobs.
	PullRequest bool
	// DiffStart is the commit a pull request analysis starts from.
	DiffStart string
	// Branch is the branch the job runs on.
	Branch string
	// TargetBranch receives quick-fix pull requests.
	TargetBranch string
	// SHA is the analyzed commit.
	SHA string
	// GitUsername and GitToken authenticate pushes.
	GitUsername string
	GitToken    string
}

// Summary is the rendered result of a run.
type Summary struct {
	Title     string
	Markdown  string
	Problems  []report.Problem
	Coverage  string
	ReportURL string
	Failed    bool
}

// Platform publishes the results of a run to a CI system.
type Platform interface {
	Name() string
	Context(ctx context.Context) (RunContext, error)
	PublishSummary(ctx context.Context, summary Summary) error
	PublishAnnotations(ctx context.Context, summary Summary, annotations []report.Annotation) error
	PostComment(ctx context.Context, body, tag string) error
	UploadArtifacts(ctx context.Context, name, dir string) error
	OpenPullRequest(ctx context.Context, branch, base, title string) (string, error)
}

// writeTemp writes content to a new file under dir and returns its path.
func writeTemp(dir, pattern, content string) (string, error) {
	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(file, content); err != nil {
		file.Close()
		return "", err
	}
	return file.Name(), file.Close()
}

// copyDir copies the regular files under src into dst.
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
