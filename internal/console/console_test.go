package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		summary     Summary
		contains    []string
		notContains []string
	}{
		{
			name:        "no problems",
			summary:     Summary{Title: "0 problems found by Qodana"},
			contains:    []string{"0 problems found by Qodana", "It seems all right"},
			notContains: []string{"Inspection name", "failThreshold"},
		},
		{
			name: "problems",
			summary: Summary{
				Title: "3 problems found by Qodana for JVM",
				Problems: []report.Problem{
					{Title: "Unused import", Severity: report.Warning},
					{Title: "Unused import", Severity: report.Warning},
					{Title: "Constant condition", Severity: report.Failure},
				},
				ReportURL:     "https://qodana.cloud/r/1",
				FailThreshold: true,
			},
			contains: []string{
				"Inspection name", "Constant condition", "Unused import", "🔴 Failure",
				"https://qodana.cloud/r/1", "exceeds the failThreshold",
			},
			notContains: []string{"It seems all right"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(tt.summary)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestRenderOrdersBySeverity(t *testing.T) {
	out := Render(Summary{Title: "t", Problems: []report.Problem{
		{Title: "Typo", Severity: report.Notice},
		{Title: "Null dereference", Severity: report.Failure},
	}})
	assert.Less(t, strings.Index(out, "Null dereference"), strings.Index(out, "Typo"))
}
