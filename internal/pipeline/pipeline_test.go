package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetbrains/qodana-ci/internal/cache"
	"github.com/jetbrains/qodana-ci/internal/config"
	"github.com/jetbrains/qodana-ci/internal/logging"
	"github.com/jetbrains/qodana-ci/internal/platform"
	"github.com/jetbrains/qodana-ci/pkg/qodana"
	"github.com/jetbrains/qodana-ci/pkg/report"
)

const testSARIF = `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {
        "driver": {
          "name": "QDGO",
          "fullName": "Qodana for Go",
          "rules": [{"id": "Unused", "shortDescription": {"text": "Unused symbol"}}]
        }
      },
      "results": [
        {
          "ruleId": "Unused",
          "level": "warning",
          "baselineState": "new",
          "message": {"text": "Unused function"},
          "locations": [{"physicalLocation": {"artifactLocation": {"uri": "main.go"}, "region": {"startLine": 4}}}]
        },
        {
          "ruleId": "Unused",
          "level": "warning",
          "baselineState": "absent",
          "message": {"text": "Unused variable"},
          "locations": [{"physicalLocation": {"artifactLocation": {"uri": "util.go"}, "region": {"startLine": 9}}}]
        }
      ]
    }
  ]
}`

type fakeInstaller struct {
	err error
}

func (f *fakeInstaller) Install(context.Context) (string, error) {
	return "/opt/qodana/qodana", f.err
}

type fakeRunner struct {
	resultsDir string
	code       int
	calls      [][]string
}

func (f *fakeRunner) Run(_ context.Context, args []string) (int, error) {
	f.calls = append(f.calls, args)
	if args[0] != "scan" {
		return 0, nil
	}
	if err := os.WriteFile(filepath.Join(f.resultsDir, SarifFile), []byte(testSARIF), 0o644); err != nil {
		return 0, err
	}
	return f.code, nil
}

type fakePlatform struct {
	runCtx    platform.RunContext
	ctxErr    error
	uploadErr error

	mu          sync.Mutex
	summaries   []platform.Summary
	annotations []report.Annotation
	comments    []string
	tags        []string
	uploads     []string
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) Context(context.Context) (platform.RunContext, error) {
	return f.runCtx, f.ctxErr
}

func (f *fakePlatform) PublishSummary(_ context.Context, summary platform.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakePlatform) PublishAnnotations(_ context.Context, _ platform.Summary, annotations []report.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.annotations = append(f.annotations, annotations...)
	return nil
}

func (f *fakePlatform) PostComment(_ context.Context, body, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, body)
	f.tags = append(f.tags, tag)
	return nil
}

func (f *fakePlatform) UploadArtifacts(_ context.Context, name, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	if _, err := os.Stat(filepath.Join(dir, SarifFile)); err != nil {
		return err
	}
	f.uploads = append(f.uploads, name)
	return nil
}

func (f *fakePlatform) OpenPullRequest(context.Context, string, string, string) (string, error) {
	return "", platform.ErrNotSupported
}

func newTestPipeline(t *testing.T, plat *fakePlatform, code int) (*Pipeline, *fakeRunner) {
	t.Helper()
	cfg := config.Defaults(t.TempDir())
	cfg.UseCaches = false
	runner := &fakeRunner{resultsDir: cfg.ResultsDir, code: code}
	return &Pipeline{
		Config:    cfg,
		Platform:  plat,
		Log:       logging.Nop(),
		Installer: &fakeInstaller{},
		NewRunner: func(string) Runner { return runner },
		Dir:       t.TempDir(),
	}, runner
}

func TestRunPullRequest(t *testing.T) {
	plat := &fakePlatform{runCtx: platform.RunContext{PullRequest: true, DiffStart: "base-sha", Branch: "feature", SHA: "head"}}
	p, runner := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	p.Config.Args = "-l,jetbrains/qodana-go"

	code, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, qodana.ExitCodeSuccess, code)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"pull", "-l", "jetbrains/qodana-go"}, runner.calls[0])
	assert.Equal(t, []string{
		"scan", "--cache-dir", p.Config.CacheDir, "--results-dir", p.Config.ResultsDir, "--skip-pull",
		"-l", "jetbrains/qodana-go", "--diff-start=base-sha",
	}, runner.calls[1])

	require.Len(t, plat.summaries, 1)
	summary := plat.summaries[0]
	assert.Equal(t, "1 problem found by Qodana for Go", summary.Title)
	assert.False(t, summary.Failed)
	assert.Contains(t, summary.Markdown, "Unused symbol")

	// Absent results are annotated but not summarized.
	assert.Len(t, plat.annotations, 2)

	require.Len(t, plat.comments, 1)
	assert.Equal(t, summary.Markdown, plat.comments[0])
	assert.Equal(t, report.CommentTag(p.Config.Namespace, p.Config.Version, "Qodana for Go", ""), plat.tags[0])
}

func TestRunKeepsExplicitDiffStart(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{name: "diff-start", args: "--diff-start=abc", want: []string{"--diff-start=abc"}},
		{name: "commit", args: "--commit abc", want: []string{"--commit", "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plat := &fakePlatform{runCtx: platform.RunContext{PullRequest: true, DiffStart: "base-sha"}}
			p, runner := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
			p.Config.Args = tt.args

			_, err := p.Run(context.Background())
			require.NoError(t, err)
			scan := runner.calls[len(runner.calls)-1]
			assert.Equal(t, tt.want, scan[len(scan)-len(tt.want):])
			assert.NotContains(t, scan, "--diff-start=base-sha")
		})
	}
}

func TestRunOutsidePullRequest(t *testing.T) {
	plat := &fakePlatform{ctxErr: errors.New("no event")}
	p, runner := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	p.Config.Args = "--ide,QDGO"

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 1, "native mode does not pull")
	assert.Equal(t, []string{"scan", "--cache-dir", p.Config.CacheDir, "--results-dir", p.Config.ResultsDir, "--ide", "QDGO"}, runner.calls[0])
	assert.Empty(t, plat.comments)
	assert.Len(t, plat.summaries, 1)
}

func TestRunPartialContext(t *testing.T) {
	plat := &fakePlatform{
		runCtx: platform.RunContext{PullRequest: true, DiffStart: "stale", Branch: "feature", SHA: "abc", GitToken: "tok"},
		ctxErr: errors.New("merge base not found"),
	}
	p, runner := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	store := &cache.DirStore{Root: t.TempDir()}
	p.Config.UseCaches = true
	p.Store = store

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	scan := runner.calls[len(runner.calls)-1]
	assert.NotContains(t, scan, "--diff-start=stale")
	assert.Len(t, plat.comments, 1, "the job is still a pull request")

	rc, err := store.Get(context.Background(), "qodana-"+p.Config.CliVersion+"-feature-abc")
	require.NoError(t, err, "the cache is keyed by the job branch")
	rc.Close()
}

func TestRunThresholdExceeded(t *testing.T) {
	plat := &fakePlatform{}
	p, _ := newTestPipeline(t, plat, qodana.ExitCodeFailThreshold)

	code, err := p.Run(context.Background())
	assert.ErrorIs(t, err, qodana.ErrThresholdExceeded)
	assert.Equal(t, qodana.ExitCodeFailThreshold, code)
	require.Len(t, plat.summaries, 1)
	assert.True(t, plat.summaries[0].Failed)
}

func TestRunExecutionFailed(t *testing.T) {
	plat := &fakePlatform{}
	p, _ := newTestPipeline(t, plat, 1)
	p.Config.UploadResult = true

	code, err := p.Run(context.Background())
	assert.ErrorIs(t, err, qodana.ErrExecutionFailed)
	assert.Equal(t, 1, code)
	assert.Empty(t, plat.summaries)
	assert.Equal(t, []string{p.Config.ArtifactName}, plat.uploads)
}

func TestRunInstallFailure(t *testing.T) {
	plat := &fakePlatform{}
	p, runner := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	p.Installer = &fakeInstaller{err: errors.New("download failed")}

	_, err := p.Run(context.Background())
	assert.ErrorContains(t, err, "download failed")
	assert.Empty(t, runner.calls)
}

func TestRunInvalidArgs(t *testing.T) {
	p, runner := newTestPipeline(t, &fakePlatform{}, qodana.ExitCodeSuccess)
	p.Config.Args = `--property "unterminated`

	_, err := p.Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, runner.calls)
}

func TestRunBestEffortUpload(t *testing.T) {
	plat := &fakePlatform{uploadErr: errors.New("quota exceeded")}
	p, _ := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	p.Config.UploadResult = true

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, plat.summaries, 1)
}

func TestRunSavesCache(t *testing.T) {
	plat := &fakePlatform{runCtx: platform.RunContext{Branch: "main", SHA: "abc"}}
	p, _ := newTestPipeline(t, plat, qodana.ExitCodeSuccess)
	store := &cache.DirStore{Root: t.TempDir()}
	p.Config.UseCaches = true
	p.Store = store
	require.NoError(t, os.MkdirAll(p.Config.CacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.Config.CacheDir, "index.bin"), []byte("index"), 0o644))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	key := "qodana-" + p.Config.CliVersion + "-main-abc"
	rc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	rc.Close()

	// A later run on another commit of the branch restores the saved entry.
	require.NoError(t, os.RemoveAll(p.Config.CacheDir))
	plat.runCtx.SHA = "def"
	_, err = p.Run(context.Background())
	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(p.Config.CacheDir, "index.bin"))
	require.NoError(t, err)
	assert.Equal(t, "index", string(content))
}

func TestCacheKeys(t *testing.T) {
	cfg := config.Defaults(t.TempDir())
	cfg.CliVersion = "2025.1.1"
	p := &Pipeline{Config: cfg}

	key, restoreKeys := p.cacheKeys(platform.RunContext{Branch: "main", SHA: "abc"})
	assert.Equal(t, "qodana-2025.1.1-main-abc", key)
	assert.Equal(t, []string{"qodana-2025.1.1-main-", "qodana-2025.1.1-"}, restoreKeys)

	p.Config.CacheKey = "custom"
	key, _ = p.cacheKeys(platform.RunContext{Branch: "main", SHA: "abc"})
	assert.Equal(t, "custom", key)
}

func TestStageArtifacts(t *testing.T) {
	results := t.TempDir()
	files := map[string]string{
		"qodana.sarif.json":          "{}",
		"open-in-ide.json":           "{}",
		"log/idea.log":               "log",
		"report/results/result.json": "{}",
		"report/index.lock":          "",
		"cache/index.bin":            "skip",
	}
	for name, content := range files {
		path := filepath.Join(results, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	staging := t.TempDir()
	count, err := stageArtifacts(results, staging)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	assert.FileExists(t, filepath.Join(staging, "log", "idea.log"))
	assert.FileExists(t, filepath.Join(staging, "report", "results", "result.json"))
	assert.NoFileExists(t, filepath.Join(staging, "report", "index.lock"))
	assert.NoFileExists(t, filepath.Join(staging, "cache", "index.bin"))
}
