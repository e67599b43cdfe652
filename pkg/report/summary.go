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
	"sort"
	"strings"
)

const (
	unknownTitle = "Unknown"

	summaryTableHeader = "| Inspection name | Severity | Problems |"
	summaryTableSep    = "| --- | --- | --- |"

	allRightHeader  = "**It seems all right 👌**"
	allRightMessage = "No new problems were found according to the checks applied"

	prModeBanner = "💡 Qodana analysis was run in the pull request mode: only the changed files were checked"

	contactHeader = "Contact Qodana team"
	contactBody   = `Contact us at [qodana-support@jetbrains.com](mailto:qodana-support@jetbrains.com)
  - Or via our issue tracker: https://jb.gg/qodana-issue
  - Or share your feedback: https://jb.gg/qodana-discussions`

	viewReportHeader = "View the detailed Qodana report"

	// DefaultReportHelp explains how to get a report when the run was not
	// uploaded to Qodana Cloud.
	DefaultReportHelp = `To be able to view the detailed Qodana report, you can either:
  - Register at [Qodana Cloud](https://qodana.cloud/) and configure the token for this pipeline
  - Inspect and use ` + "`qodana.sarif.json`" + ` (see [the Qodana SARIF format](https://www.jetbrains.com/help/qodana/qodana-sarif-output.html#Report+structure) for details)

To get ` + "`*.log`" + ` files or any other Qodana artifacts, run the pipeline with the result upload enabled.`
)

var severityLabels = map[Severity]string{
	Failure: "🔴 Failure",
	Warning: "🔶 Warning",
	Notice:  "◽️ Notice",
}

// SummaryInput is everything a summary shows.
type SummaryInput struct {
	ToolName   string
	ProjectDir string
	SourceDir  string
	Problems   []Problem
	// Coverage is a block rendered by RenderCoverage.
	Coverage     string
	PackageCount int
	// Licenses is a Markdown rendering of the project dependencies.
	Licenses string
	// ReportURL links the cloud report; the help text is shown when empty.
	ReportURL        string
	PRMode           bool
	LicenseCharLimit int
	ReportHelp       string
}

// RenderSummary renders the Markdown summary posted to job summaries and
// pull request comments.
func RenderSummary(in SummaryInput) string {
	toolName := in.ToolName
	if in.ReportURL != "" {
		toolName = linkFirstWord(toolName, in.ReportURL)
	}

	sections := []string{"# " + toolName}
	if len(in.Problems) == 0 {
		sections = append(sections, allRightHeader, allRightMessage)
	} else {
		sections = append(sections,
			fmt.Sprintf("**%d %s** were found", len(in.Problems), problemPlural(len(in.Problems))),
			analyzedScope(in.ProjectDir, in.SourceDir),
			renderTable(in.Problems),
		)
	}

	sections = append(sections, in.Coverage)
	if in.PRMode {
		sections = append(sections, prModeBanner)
	}
	sections = append(sections,
		reportLink(in.ReportURL, in.ReportHelp),
		licensesBlock(in.PackageCount, in.Licenses, in.LicenseCharLimit),
		toggleBlock(contactHeader, contactBody),
	)

	var nonEmpty []string
	for _, section := range sections {
		if section != "" {
			nonEmpty = append(nonEmpty, section)
		}
	}
	return strings.Join(nonEmpty, "\n\n") + "\n"
}

func renderTable(problems []Problem) string {
	rows := []string{summaryTableHeader, summaryTableSep}
	for _, group := range Group(problems) {
		rows = append(rows, fmt.Sprintf("| `%s` | %s | %d |", group.Title, SeverityLabel(group.Severity), group.Count))
	}
	return strings.Join(rows, "\n")
}

// ProblemGroup counts the problems sharing a title and severity.
type ProblemGroup struct {
	Title    string
	Severity Severity
	Count    int
}

// Group groups problems by severity, most severe first, then by title, most
// frequent first. Titles with equal counts are ordered alphabetically and
// problems without a title are grouped as Unknown.
func Group(problems []Problem) []ProblemGroup {
	var groups []ProblemGroup
	for _, severity := range Severities {
		groups = append(groups, groupSeverity(problems, severity)...)
	}
	return groups
}

func groupSeverity(problems []Problem, severity Severity) []ProblemGroup {
	counts := map[string]int{}
	for _, problem := range problems {
		if problem.Severity != severity {
			continue
		}
		title := problem.Title
		if title == "" {
			title = unknownTitle
		}
		counts[title]++
	}

	groups := make([]ProblemGroup, 0, len(counts))
	for title, count := range counts {
		groups = append(groups, ProblemGroup{Title: title, Severity: severity, Count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Title < groups[j].Title
	})
	return groups
}

// SeverityLabel returns the emoji label of a severity.
func SeverityLabel(severity Severity) string {
	return severityLabels[severity]
}

func analyzedScope(projectDir, sourceDir string) string {
	var parts []string
	if projectDir != "" {
		parts = append(parts, fmt.Sprintf("project `%s`", projectDir))
	}
	if sourceDir != "" {
		parts = append(parts, fmt.Sprintf("source directory `%s`", sourceDir))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Analyzed " + strings.Join(parts, ", ")
}

func linkFirstWord(toolName, url string) string {
	first, rest, found := strings.Cut(toolName, " ")
	linked := fmt.Sprintf("[%s](%s)", first, url)
	if !found {
		return linked
	}
	return linked + " " + rest
}

func reportLink(url, help string) string {
	if url != "" {
		return fmt.Sprintf("☁️ [%s](%s)", viewReportHeader, url)
	}
	if help == "" {
		help = DefaultReportHelp
	}
	return toggleBlock(viewReportHeader, help)
}

func licensesBlock(packages int, licenses string, limit int) string {
	if licenses == "" || len(licenses) >= limit {
		return ""
	}
	return toggleBlock(fmt.Sprintf("Detected %d %s", packages, dependencyPlural(packages)), licenses)
}

func dependencyPlural(count int) string {
	if count == 1 {
		return "dependency"
	}
	return "dependencies"
}

func toggleBlock(header, body string) string {
	return fmt.Sprintf("<details>\n<summary>%s</summary>\n\n%s\n</details>", header, body)
}
