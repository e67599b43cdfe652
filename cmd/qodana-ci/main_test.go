package main

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetbrains/qodana-ci/internal/config"
	"github.com/jetbrains/qodana-ci/pkg/qodana"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "threshold", err: &exitError{code: 255, err: qodana.ErrThresholdExceeded}, want: 255},
		{name: "execution failed", err: &exitError{code: 3, err: qodana.ErrExecutionFailed}, want: 3},
		{name: "failed before the analysis", err: &exitError{code: 0, err: errors.New("install")}, want: 1},
		{name: "plain error", err: errors.New("config"), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestParseArgsCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "space separated",
			input: `--linter jetbrains/qodana-jvm --property "a=b c"`,
			want:  "--linter\njetbrains/qodana-jvm\n--property\na=b c\n\n--linter jetbrains/qodana-jvm --property \"a=b c\"\n",
		},
		{
			name:  "empty",
			input: " ",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newParseArgsCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{tt.input})
			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestWithoutRunnerPaths(t *testing.T) {
	defaults := config.Defaults("/tmp")
	cfg := defaults
	cfg.CacheDir = "/cache"

	got := withoutRunnerPaths(cfg, defaults)
	assert.Empty(t, got.ResultsDir)
	assert.Empty(t, got.CacheRoot)
	assert.Equal(t, "/cache", got.CacheDir)
}
