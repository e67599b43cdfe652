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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jetbrains/qodana-ci/pkg/qodana"
)

var (
	flagDebug  bool
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "qodana-ci",
	Short: "Run Qodana in CI and publish its results",
	Long: `qodana-ci installs the Qodana CLI, runs the analysis and publishes the
results to the CI system the job runs on: job summaries, inline annotations,
pull request comments, artifacts and caches.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Configuration file (defaults to .qodana-ci.yaml when present).")

	rootCmd.AddCommand(
		newGitHubCmd(),
		newGitLabCmd(),
		newAzureCmd(),
		newLocalCmd(),
		newParseArgsCmd(),
		newInitCmd(),
	)
}

// exitError carries the exit code of the analyzer to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode prints err and returns the code the process exits with: the
// analyzer exit code when it failed, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, qodana.ErrThresholdExceeded) {
		fmt.Fprintln(os.Stderr, qodana.FailThresholdOutput)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	var exit *exitError
	if errors.As(err, &exit) && exit.code != qodana.ExitCodeSuccess {
		return exit.code
	}
	return 1
}
