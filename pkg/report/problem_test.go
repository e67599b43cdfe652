package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetbrains/qodana-ci/pkg/sarif"
)

func intPtr(v int) *int {
	return &v
}

func located(ruleID, level, baseline string) sarif.Result {
	return sarif.Result{
		RuleID:        ruleID,
		Level:         level,
		BaselineState: baseline,
		Message:       ruleID + " " + baseline,
		Location: &sarif.Location{
			URI:    "src/Main.kt",
			Region: sarif.Region{StartLine: 10},
		},
	}
}

func baselineLog() *sarif.Log {
	return &sarif.Log{
		ToolName: "Qodana for JVM",
		Rules: sarif.RuleTable{
			"A": {ShortDescription: "Rule A"},
		},
		Results: []sarif.Result{
			located("A", "error", sarif.BaselineNew),
			located("A", "error", sarif.BaselineUnchanged),
			located("A", "error", sarif.BaselineAbsent),
			{RuleID: "A", Level: "error", BaselineState: sarif.BaselineNew, Message: "nowhere"},
		},
	}
}

func TestSummaryProblemsBaseline(t *testing.T) {
	problems := SummaryProblems(baselineLog())
	require.Len(t, problems, 1)
	assert.Equal(t, "A new", problems[0].Message)
}

func TestAnnotationProblemsBaseline(t *testing.T) {
	problems := AnnotationProblems(baselineLog())
	require.Len(t, problems, 2)
	assert.Equal(t, "A new", problems[0].Message)
	assert.Equal(t, "A absent", problems[1].Message)
}

func TestSeverityFromLevel(t *testing.T) {
	tests := []struct {
		level string
		want  Severity
	}{
		{level: "error", want: Failure},
		{level: "warning", want: Warning},
		{level: "note", want: Notice},
		{level: "none", want: Notice},
		{level: "", want: Notice},
		{level: "critical", want: Notice},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityFromLevel(tt.level))
		})
	}
}

func TestProblemFields(t *testing.T) {
	tests := []struct {
		name            string
		result          sarif.Result
		wantTitle       string
		wantEndLine     int
		wantStartColumn *int
		wantEndColumn   *int
	}{
		{
			name: "end line defaults to start line",
			result: sarif.Result{
				RuleID:   "A",
				Location: &sarif.Location{URI: "a.go", Region: sarif.Region{StartLine: 4}},
			},
			wantTitle:   "Rule A",
			wantEndLine: 4,
		},
		{
			name: "explicit end line",
			result: sarif.Result{
				RuleID:   "A",
				Location: &sarif.Location{URI: "a.go", Region: sarif.Region{StartLine: 4, EndLine: intPtr(9)}},
			},
			wantTitle:   "Rule A",
			wantEndLine: 9,
		},
		{
			name: "columns kept when start line equals end column",
			result: sarif.Result{
				RuleID: "missing",
				Location: &sarif.Location{URI: "a.go", Region: sarif.Region{
					StartLine: 5, StartColumn: intPtr(2), EndColumn: intPtr(5),
				}},
			},
			wantEndLine:     5,
			wantStartColumn: intPtr(2),
			wantEndColumn:   intPtr(5),
		},
		{
			name: "columns dropped otherwise",
			result: sarif.Result{
				RuleID: "A",
				Location: &sarif.Location{URI: "a.go", Region: sarif.Region{
					StartLine: 5, EndLine: intPtr(5), StartColumn: intPtr(2), EndColumn: intPtr(8),
				}},
			},
			wantTitle:   "Rule A",
			wantEndLine: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &sarif.Log{
				Rules:   sarif.RuleTable{"A": {ShortDescription: "Rule A"}},
				Results: []sarif.Result{tt.result},
			}
			problems := AnnotationProblems(log)
			require.Len(t, problems, 1)
			problem := problems[0]
			assert.Equal(t, tt.wantTitle, problem.Title)
			assert.Equal(t, tt.wantEndLine, problem.EndLine)
			assert.Equal(t, tt.wantStartColumn, problem.StartColumn)
			assert.Equal(t, tt.wantEndColumn, problem.EndColumn)
		})
	}
}

func TestProblemsTitle(t *testing.T) {
	assert.Equal(t, "1 problem found by Qodana for Go", ProblemsTitle(1, "Qodana for Go"))
	assert.Equal(t, "0 problems found by Qodana", ProblemsTitle(0, ""))
	assert.Equal(t, "12 problems found by Qodana", ProblemsTitle(12, "Qodana"))
}
