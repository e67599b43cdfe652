package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cockroachdb/errors"
)

// artifactPatterns select the files of the results directory worth keeping.
var artifactPatterns = []string{
	"*.sarif.json",
	"*.json",
	"qodana.cloud",
	"log/**",
	"report/**",
	"projectStructure/**",
}

// artifactExcludes drop files matched by artifactPatterns.
var artifactExcludes = []string{
	"**/*.lock",
	"**/*.tmp",
}

func (p *Pipeline) uploadResults(ctx context.Context) error {
	staging, err := os.MkdirTemp("", "qodana-artifacts-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	count, err := stageArtifacts(p.Config.ResultsDir, staging)
	if err != nil {
		return err
	}
	if count == 0 {
		p.Log.Infof("No results to upload in %s", p.Config.ResultsDir)
		return nil
	}
	p.Log.Infof("Uploading %d result files as %s", count, p.Config.ArtifactName)
	return p.Platform.UploadArtifacts(ctx, p.Config.ArtifactName, staging)
}

// stageArtifacts copies the files of resultsDir matched by artifactPatterns
// into staging and returns how many were copied.
func stageArtifacts(resultsDir, staging string) (int, error) {
	fsys := os.DirFS(resultsDir)
	seen := map[string]bool{}
	for _, pattern := range artifactPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return 0, errors.Wrapf(err, "match %s", pattern)
		}
		for _, match := range matches {
			if seen[match] || excluded(match) {
				continue
			}
			info, err := os.Stat(filepath.Join(resultsDir, match))
			if err != nil {
				return 0, err
			}
			if !info.Mode().IsRegular() {
				continue
			}
			seen[match] = true
			if err := copyFile(filepath.Join(resultsDir, match), filepath.Join(staging, filepath.FromSlash(match))); err != nil {
				return 0, err
			}
		}
	}
	return len(seen), nil
}

func excluded(name string) bool {
	for _, pattern := range artifactExcludes {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
