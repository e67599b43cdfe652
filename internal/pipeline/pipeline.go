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

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jetbrains/qodana-ci/internal/cache"
	"github.com/jetbrains/qodana-ci/internal/config"
	"github.com/jetbrains/qodana-ci/internal/licenses"
	"github.com/jetbrains/qodana-ci/internal/platform"
	"github.com/jetbrains/qodana-ci/internal/vcs"
	"github.com/jetbrains/qodana-ci/pkg/args"
	"github.com/jetbrains/qodana-ci/pkg/qodana"
	"github.com/jetbrains/qodana-ci/pkg/report"
	"github.com/jetbrains/qodana-ci/pkg/sarif"
)

// SarifFile is the report the analyzer writes to the results directory.
const SarifFile = "qodana.sarif.json"

// Installer provides the analyzer binary.
type Installer interface {
	Install(ctx context.Context) (string, error)
}

// Runner runs the analyzer binary and returns its exit code.
type Runner interface {
	Run(ctx context.Context, args []string) (int, error)
}

// Pipeline runs one analysis and publishes its results.
type Pipeline struct {
	Config   config.Config
	Platform platform.Platform
	Log      *zap.SugaredLogger

	Installer Installer
	// NewRunner returns a Runner for the installed binary.
	NewRunner func(binary string) Runner
	// Store keeps the analyzer caches between runs; nil disables caching.
	Store cache.Store

	// Dir is the repository the analysis runs in.
	Dir string
	// CoverageDiffStyle renders coverage as a diff block, for platforms
	// that do not render inline HTML.
	CoverageDiffStyle bool
}

type run struct {
	runCtx   platform.RunContext
	extra    []string
	cacheHit string

	toolName    string
	sourceDir   string
	annotations []report.Annotation
}

// Run executes the analysis and publishes its results. The returned code is
// the analyzer exit code; the error is qodana.ErrThresholdExceeded when the
// fail threshold was reached and qodana.ErrExecutionFailed when the analyzer
// itself failed.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	r, err := p.prepare(ctx)
	if err != nil {
		return 0, err
	}

	binary, err := p.setup(ctx, r)
	if err != nil {
		return 0, err
	}

	code, err := p.analyze(ctx, binary, r.extra)
	if err != nil {
		return code, err
	}
	if !qodana.IsExecutionSuccessful(code) {
		p.Log.Errorf("Qodana failed with exit code %d", code)
		if p.Config.UploadResult {
			p.bestEffort("upload results", p.uploadResults(ctx))
		}
		return code, errors.Wrapf(qodana.ErrExecutionFailed, "exit code %d", code)
	}

	summary, err := p.summarize(r, code == qodana.ExitCodeFailThreshold)
	if err != nil {
		return code, err
	}
	p.publish(ctx, r, summary)

	if code == qodana.ExitCodeFailThreshold {
		return code, qodana.ErrThresholdExceeded
	}
	return code, nil
}

func (p *Pipeline) prepare(ctx context.Context) (*run, error) {
	extra, err := args.NewParser(p.Log).Parse(p.Config.Args)
	if err != nil {
		return nil, err
	}

	// A partial context still identifies the job; only the diff start is dropped.
	runCtx, err := p.Platform.Context(ctx)
	if err != nil {
		p.Log.Warnf("Failed to resolve the diff start, the whole project is analyzed: %v", err)
		runCtx.DiffStart = ""
	}

	if p.Config.PRMode && runCtx.PullRequest && runCtx.DiffStart != "" {
		if !hasFlag(extra, "--diff-start") && !hasFlag(extra, "--commit") {
			extra = append(extra, "--diff-start="+runCtx.DiffStart)
		}
	}
	if p.Config.PushFixes != config.PushNone && !hasFlag(extra, "--apply-fixes") {
		extra = append(extra, "--apply-fixes")
	}
	return &run{runCtx: runCtx, extra: extra}, nil
}

// setup restores the caches and installs the analyzer concurrently.
func (p *Pipeline) setup(ctx context.Context, r *run) (string, error) {
	for _, dir := range []string{p.Config.ResultsDir, p.Config.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "create %s", dir)
		}
	}

	var binary string
	g, gctx := errgroup.WithContext(ctx)
	if p.cachingEnabled() {
		g.Go(func() error {
			key, restoreKeys := p.cacheKeys(r.runCtx)
			hit, err := cache.Restore(gctx, p.Store, p.Config.CacheDir, key, restoreKeys...)
			switch {
			case errors.Is(err, cache.ErrCacheMiss):
				p.Log.Infof("No cache found for key %s", key)
			case err != nil:
				p.bestEffort("restore cache", err)
			default:
				p.Log.Infof("Cache restored from key %s", hit)
				if hit == key {
					r.cacheHit = hit
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		path, err := p.Installer.Install(gctx)
		if err != nil {
			return errors.Wrap(err, "install Qodana CLI")
		}
		binary = path
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}
	return binary, nil
}

func (p *Pipeline) analyze(ctx context.Context, binary string, extra []string) (int, error) {
	runner := p.NewRunner(binary)
	if !qodana.IsNativeMode(extra) {
		code, err := runner.Run(ctx, qodana.PullArgs(extra))
		if err != nil {
			return code, errors.Wrap(err, "pull linter")
		}
		if code != qodana.ExitCodeSuccess {
			p.Log.Warnf("Pulling the linter image exited with code %d", code)
		}
	}

	code, err := runner.Run(ctx, qodana.ScanArgs(extra, p.Config.ResultsDir, p.Config.CacheDir))
	if err != nil {
		return code, errors.Wrap(err, "scan")
	}
	return code, nil
}

func (p *Pipeline) summarize(r *run, failed bool) (platform.Summary, error) {
	sarifPath := filepath.Join(p.Config.ResultsDir, SarifFile)
	log, err := sarif.Load(sarifPath)
	if err != nil {
		return platform.Summary{}, err
	}

	coverage := report.RenderCoverage(log.Coverage, p.CoverageDiffStyle)

	dependencies, err := report.LoadDependencies(filepath.Join(p.Config.ResultsDir, report.DependenciesFile))
	if err != nil {
		p.bestEffort("read dependencies", err)
	}
	for _, dependency := range licenses.Copyleft(dependencies) {
		p.Log.Warnf("Dependency %s %s is distributed under a copyleft license", dependency.Name, dependency.Version)
	}

	projectDir, _ := qodana.FlagValue(r.extra, "-i", "--project-dir")
	sourceDir, _ := qodana.FlagValue(r.extra, "-d", "--source-directory")
	reportURL := qodana.ReportURL(p.Config.ResultsDir)

	r.toolName = log.ToolName
	r.sourceDir = sourceDir
	r.annotations = report.Annotations(report.AnnotationProblems(log))

	problems := report.SummaryProblems(log)
	markdown := report.RenderSummary(report.SummaryInput{
		ToolName:         log.ToolName,
		ProjectDir:       projectDir,
		SourceDir:        sourceDir,
		Problems:         problems,
		Coverage:         coverage,
		PackageCount:     len(dependencies),
		Licenses:         report.RenderLicenses(dependencies),
		ReportURL:        reportURL,
		PRMode:           p.Config.PRMode && r.runCtx.PullRequest,
		LicenseCharLimit: p.Config.LicenseCharLimit,
		ReportHelp:       report.DefaultReportHelp,
	})

	return platform.Summary{
		Title:     report.ProblemsTitle(len(problems), log.ToolName),
		Markdown:  markdown,
		Problems:  problems,
		Coverage:  coverage,
		ReportURL: reportURL,
		Failed:    failed,
	}, nil
}

// publish delivers the results concurrently. Every step is best-effort.
func (p *Pipeline) publish(ctx context.Context, r *run, summary platform.Summary) {
	var g errgroup.Group

	g.Go(func() error {
		p.bestEffort("publish summary", p.Platform.PublishSummary(ctx, summary))
		return nil
	})
	if p.Config.UseAnnotations {
		g.Go(func() error {
			p.bestEffort("publish annotations", p.Platform.PublishAnnotations(ctx, summary, r.annotations))
			return nil
		})
	}
	if p.Config.PostPRComment && r.runCtx.PullRequest {
		g.Go(func() error {
			tag := report.CommentTag(p.Config.Namespace, p.Config.Version, r.toolName, r.sourceDir)
			p.bestEffort("post pull request comment", p.Platform.PostComment(ctx, summary.Markdown, tag))
			return nil
		})
	}
	if p.Config.UploadResult {
		g.Go(func() error {
			p.bestEffort("upload results", p.uploadResults(ctx))
			return nil
		})
	}
	if p.cachingEnabled() && r.cacheHit == "" {
		g.Go(func() error {
			key, _ := p.cacheKeys(r.runCtx)
			p.bestEffort("save cache", cache.Save(ctx, p.Store, p.Config.CacheDir, key))
			return nil
		})
	}
	if p.Config.PushFixes != config.PushNone {
		g.Go(func() error {
			p.bestEffort("push quick fixes", p.pushFixes(ctx, r.runCtx))
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) pushFixes(ctx context.Context, runCtx platform.RunContext) error {
	result, err := vcs.Push(ctx, vcs.PushOptions{
		Dir:           p.Dir,
		Mode:          p.Config.PushFixes,
		Branch:        runCtx.Branch,
		CommitMessage: p.Config.CommitMessage,
		Token:         runCtx.GitToken,
		Username:      runCtx.GitUsername,
	})
	if err != nil {
		return err
	}
	if result.Branch == "" {
		p.Log.Info("No quick fixes to push")
		return nil
	}
	p.Log.Infof("Pushed quick fixes to %s (%s)", result.Branch, result.Commit)
	if p.Config.PushFixes != config.PushPullRequest {
		return nil
	}

	base := runCtx.TargetBranch
	if base == "" {
		base = runCtx.Branch
	}
	url, err := p.Platform.OpenPullRequest(ctx, result.Branch, base, strings.TrimSpace(p.Config.CommitMessage))
	if err != nil {
		return err
	}
	p.Log.Infof("Opened pull request with quick fixes: %s", url)
	return nil
}

func (p *Pipeline) cachingEnabled() bool {
	return p.Config.UseCaches && p.Store != nil
}

// cacheKeys returns the exact key of this run and the prefixes tried when
// it misses, most specific first.
func (p *Pipeline) cacheKeys(runCtx platform.RunContext) (string, []string) {
	base := "qodana-" + p.Config.CliVersion + "-"
	branchPrefix := base + runCtx.Branch + "-"
	if p.Config.CacheKey != "" {
		return p.Config.CacheKey, []string{branchPrefix, base}
	}
	return branchPrefix + runCtx.SHA, []string{branchPrefix, base}
}

// bestEffort logs err, if any, without failing the run. Unsupported
// operations are expected and only noted.
func (p *Pipeline) bestEffort(step string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrNotSupported):
		p.Log.Infof("Skipping %s on %s: %v", step, p.Platform.Name(), err)
	default:
		p.Log.Warnf("Failed to %s: %v", step, err)
	}
}

// hasFlag reports whether flag is present, alone or as flag=value.
func hasFlag(tokens []string, flag string) bool {
	for _, token := range tokens {
		if token == flag || strings.HasPrefix(token, flag+"=") {
			return true
		}
	}
	return false
}
