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

package report

import (
	"fmt"
	"slices"

	"github.com/jetbrains/qodana-ci/pkg/sarif"
)

// Severity is the normalized severity of a problem.
type Severity string

// Severities, ordered from the most to the least severe.
const (
	Failure Severity = "failure"
	Warning Severity = "warning"
	Notice  Severity = "notice"
)

// Severities lists every severity in rendering order.
var Severities = []Severity{Failure, Warning, Notice}

// SeverityFromLevel maps a SARIF result level onto a Severity.
func SeverityFromLevel(level string) Severity {
	switch level {
	case sarif.LevelError:
		return Failure
	case sarif.LevelWarning:
		return Warning
	default:
		return Notice
	}
}

// Problem is one normalized finding.
type Problem struct {
	// Title is the short description of the rule, empty when the rule is unknown.
	Title    string
	Severity Severity
	Path     string
	// StartLine and EndLine are 1-based; EndLine defaults to StartLine.
	StartLine int
	EndLine   int
	// StartColumn and EndColumn are nil unless the region defines a column range.
	StartColumn *int
	EndColumn   *int
	Message     string
}

// SummaryProblems returns the problems shown in summaries and comments:
// results that are neither unchanged nor absent relative to the baseline.
func SummaryProblems(log *sarif.Log) []Problem {
	return classify(log, sarif.BaselineUnchanged, sarif.BaselineAbsent)
}

// AnnotationProblems returns the problems published as inline annotations.
// Only unchanged results are excluded.
func AnnotationProblems(log *sarif.Log) []Problem {
	return classify(log, sarif.BaselineUnchanged)
}

func classify(log *sarif.Log, excluded ...string) []Problem {
	problems := make([]Problem, 0, len(log.Results))
	for _, result := range log.Results {
		if slices.Contains(excluded, result.BaselineState) || result.Location == nil {
			continue
		}
		problems = append(problems, newProblem(result, log.Rules))
	}
	return problems
}

func newProblem(result sarif.Result, rules sarif.RuleTable) Problem {
	region := result.Location.Region
	problem := Problem{
		Title:     rules[result.RuleID].ShortDescription,
		Severity:  SeverityFromLevel(result.Level),
		Path:      result.Location.URI,
		StartLine: region.StartLine,
		EndLine:   region.StartLine,
		Message:   result.Message,
	}
	if region.EndLine != nil {
		problem.EndLine = *region.EndLine
	}
	// TODO(annotations): this compares the start line with the end column;
	// switch to StartLine == EndLine once the expected column behaviour is confirmed.
	if region.EndColumn != nil && region.StartLine == *region.EndColumn {
		problem.StartColumn = region.StartColumn
		problem.EndColumn = region.EndColumn
	}
	return problem
}

// ProblemsTitle returns the headline used for check runs and job summaries.
func ProblemsTitle(count int, toolName string) string {
	if toolName == "" {
		toolName = sarif.DefaultToolName
	}
	return fmt.Sprintf("%d %s found by %s", count, problemPlural(count), toolName)
}

func problemPlural(count int) string {
	if count == 1 {
		return "problem"
	}
	return "problems"
}
