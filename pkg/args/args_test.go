package args

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWarner struct {
	messages []string
}

func (w *recordingWarner) Warnf(template string, args ...interface{}) {
	w.messages = append(w.messages, fmt.Sprintf(template, args...))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       []string
		wantLegacy bool
	}{
		{
			name: "empty",
			raw:  "",
			want: []string{},
		},
		{
			name: "whitespace only",
			raw:  "  \t ",
			want: []string{},
		},
		{
			name: "space separated",
			raw:  "--log-level debug --config my-config.yaml",
			want: []string{"--log-level", "debug", "--config", "my-config.yaml"},
		},
		{
			name: "quoted value",
			raw:  `--commit-message "fix: apply quick fixes" -l jetbrains/qodana-jvm`,
			want: []string{"--commit-message", "fix: apply quick fixes", "-l", "jetbrains/qodana-jvm"},
		},
		{
			name: "environment variables are not expanded",
			raw:  "--config $HOME/qodana.yaml",
			want: []string{"--config", "$HOME/qodana.yaml"},
		},
		{
			name:       "comma separated",
			raw:        "--log-level,debug,--config,my-config.yaml",
			want:       []string{"--log-level", "debug", "--config", "my-config.yaml"},
			wantLegacy: true,
		},
		{
			name:       "comma separated with spaces",
			raw:        "--log-level, debug, --config, my-config.yaml",
			want:       []string{"--log-level", "debug", "--config", "my-config.yaml"},
			wantLegacy: true,
		},
		{
			name:       "standalone comma",
			raw:        "--log-level debug , --print-problems",
			want:       []string{"--log-level", "debug", "--print-problems"},
			wantLegacy: true,
		},
		{
			name:       "leading comma before flag",
			raw:        "-l jetbrains/qodana-jvm ,--print-problems",
			want:       []string{"-l", "jetbrains/qodana-jvm", "--print-problems"},
			wantLegacy: true,
		},
		{
			name:       "legacy property",
			raw:        "--property,idea.headless.enable.statistics=false",
			want:       []string{"--property", "idea.headless.enable.statistics=false"},
			wantLegacy: true,
		},
		{
			name:       "legacy property list",
			raw:        "--property,a,b,c",
			want:       []string{"--property", "a,b,c"},
			wantLegacy: true,
		},
		{
			name:       "legacy property list followed by flag",
			raw:        "--property,qodana.format=a,b,--log-level,debug",
			want:       []string{"--property", "qodana.format=a,b", "--log-level", "debug"},
			wantLegacy: true,
		},
		{
			name:       "legacy property with negative numbers",
			raw:        "--property,list=-1,-2,-3,--print-problems",
			want:       []string{"--property", "list=-1,-2,-3", "--print-problems"},
			wantLegacy: true,
		},
		{
			name: "space separated property list",
			raw:  "--property a,b,c",
			want: []string{"--property", "a,b,c"},
		},
		{
			name: "space separated property with embedded commas",
			raw:  "--property foo=1,2,3",
			want: []string{"--property", "foo=1,2,3"},
		},
		{
			name: "attached property value with negative list",
			raw:  "--property=list=-1,-2,-3",
			want: []string{"--property=list=-1,-2,-3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWarner{}
			got, err := NewParser(w).Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.wantLegacy {
				require.Len(t, w.messages, 1)
				assert.Contains(t, w.messages[0], tt.raw)
			} else {
				assert.Empty(t, w.messages)
			}
		})
	}
}

func TestParseFixedPoint(t *testing.T) {
	inputs := []string{
		"--log-level debug",
		"-l jetbrains/qodana-jvm -i ./project --print-problems",
		"--property foo=1,2,3 --baseline qodana.sarif.json",
		"--property=list=-1,-2,-3",
	}
	p := NewParser(nil)
	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			first, err := p.Parse(raw)
			require.NoError(t, err)
			second, err := p.Parse(strings.Join(first, " "))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParseLegacySuggestion(t *testing.T) {
	w := &recordingWarner{}
	got, err := NewParser(w).Parse("--commit-message,fix all things,--log-level,debug")
	require.NoError(t, err)
	assert.Equal(t, []string{"--commit-message", "fix", "all", "things", "--log-level", "debug"}, got)
	require.Len(t, w.messages, 1)
	assert.Contains(t, w.messages[0], "--commit-message fix all things --log-level debug")
}

func TestParseUnbalancedQuote(t *testing.T) {
	_, err := NewParser(nil).Parse(`--config "qodana.yaml`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnbalancedQuote))
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, `--property "a b" -l linter`, Suggest([]string{"--property", "a b", "-l", "linter"}))
}
