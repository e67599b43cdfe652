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

package qodana

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// Exit codes of the analyzer.
const (
	ExitCodeSuccess       = 0
	ExitCodeFailThreshold = 255
)

// FailThresholdOutput is reported when the analyzer exits with ExitCodeFailThreshold.
const FailThresholdOutput = "The number of problems exceeds the failThreshold"

// ErrThresholdExceeded marks a run that completed but found more problems
// than the configured failThreshold allows.
var ErrThresholdExceeded = errors.New(FailThresholdOutput)

// ErrExecutionFailed marks a run that exited with an unexpected code.
var ErrExecutionFailed = errors.New("qodana execution failed")

// ScanArgs builds the argument vector of the scan command. Unless the run
// uses a native IDE distribution, the image is pulled beforehand and the scan
// skips pulling it again.
func ScanArgs(extra []string, resultsDir, cacheDir string) []string {
	args := []string{"scan", "--cache-dir", cacheDir, "--results-dir", resultsDir}
	if !IsNativeMode(extra) {
		args = append(args, "--skip-pull")
	}
	return append(args, extra...)
}

// PullArgs builds the argument vector of the pull command, forwarding the
// flags that select which image is pulled.
func PullArgs(extra []string) []string {
	args := []string{"pull"}
	for _, flag := range []struct {
		short string
		long  string
	}{
		{short: "-l", long: "--linter"},
		{short: "-i", long: "--project-dir"},
		{long: "--config"},
	} {
		if value, ok := FlagValue(extra, flag.short, flag.long); ok {
			name := flag.short
			if name == "" {
				name = flag.long
			}
			args = append(args, name, value)
		}
	}
	return args
}

// IsNativeMode reports whether the analysis runs without a container.
func IsNativeMode(extra []string) bool {
	return slices.Contains(extra, "--ide")
}

// IsExecutionSuccessful reports whether an exit code means the analysis ran
// to completion, including a run that exceeded the fail threshold.
func IsExecutionSuccessful(code int) bool {
	return code == ExitCodeSuccess || code == ExitCodeFailThreshold
}

// FlagValue returns the value of the first occurrence of any of the given
// flag names, passed either as the next argument or as --name=value.
func FlagValue(args []string, names ...string) (string, bool) {
	for i, arg := range args {
		if arg == "" {
			continue
		}
		if name, value, found := strings.Cut(arg, "="); found && strings.HasPrefix(name, "-") && slices.Contains(names, name) {
			return value, true
		}
		if !slices.Contains(names, arg) {
			continue
		}
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}
	return "", false
}
