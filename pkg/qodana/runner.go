package qodana

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultBinary is the analyzer executable looked up on PATH.
const DefaultBinary = "qodana"

const (
	openInIDEFile = "open-in-ide.json"
	cloudURLFile  = "qodana.cloud"
)

// Runner executes the analyzer.
type Runner struct {
	Binary string
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the analyzer with args and returns its exit code. The error is
// non-nil only when the process could not be started or waited on.
func (r *Runner) Run(ctx context.Context, args []string) (int, error) {
	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if r.Dir != "" {
		cmd.Dir = r.Dir
	}
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, errors.Wrapf(err, "%s %s", binary, strings.Join(args, " "))
	}
	return ExitCodeSuccess, nil
}

type openInIDE struct {
	Cloud struct {
		URL string `json:"url"`
	} `json:"cloud"`
}

// ReportURL returns the Qodana Cloud link of the uploaded report, or an empty
// string when the results were not uploaded.
func ReportURL(resultsDir string) string {
	if content, err := os.ReadFile(filepath.Join(resultsDir, openInIDEFile)); err == nil {
		var data openInIDE
		if json.Unmarshal(content, &data) == nil && data.Cloud.URL != "" {
			return data.Cloud.URL
		}
	}
	if content, err := os.ReadFile(filepath.Join(resultsDir, cloudURLFile)); err == nil {
		return strings.TrimSpace(string(content))
	}
	return ""
}
