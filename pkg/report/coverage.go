package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jetbrains/qodana-ci/pkg/sarif"
)

const coverageDisclaimer = "# Calculated according to the filters of your coverage tool"

// RenderCoverage renders the coverage block of a summary. Diff style fences
// the block and marks each metric with +/-; otherwise the metrics are colored
// HTML spans. Nothing is rendered when the run carries no coverage data.
func RenderCoverage(stats sarif.CoverageStats, useDiffStyle bool) string {
	if stats.TotalLines == 0 && stats.TotalCoveredLines == 0 {
		return ""
	}

	var lines []string
	if useDiffStyle {
		lines = append(lines, "```diff", "@@ Code coverage @@")
	}
	if stats.TotalLines != 0 {
		lines = append(lines,
			coverageConclusion(fmt.Sprintf("%s%% total lines covered", formatNumber(stats.TotalCoverage)),
				stats.TotalCoverage < stats.TotalThreshold, useDiffStyle),
			analyzedLine(stats.TotalLines, stats.TotalCoveredLines),
		)
	}
	if stats.FreshLines != 0 {
		lines = append(lines,
			coverageConclusion(fmt.Sprintf("%s%% fresh lines covered", formatNumber(stats.FreshCoverage)),
				stats.FreshCoverage < stats.FreshThreshold, useDiffStyle),
			analyzedLine(stats.FreshLines, stats.FreshCoveredLines),
		)
	}
	lines = append(lines, coverageDisclaimer)
	if useDiffStyle {
		lines = append(lines, "```")
	}
	return strings.Join(lines, "\n")
}

func analyzedLine(analyzed, covered float64) string {
	return fmt.Sprintf("%s lines analyzed, %s lines covered", formatNumber(analyzed), formatNumber(covered))
}

func coverageConclusion(conclusion string, failed, useDiffStyle bool) string {
	switch {
	case useDiffStyle && failed:
		return "- " + conclusion
	case useDiffStyle:
		return "+ " + conclusion
	case failed:
		return `<span style="background-color: #ffe6e6; color: red;">` + conclusion + "</span>"
	default:
		return `<span style="background-color: #e6f4e6; color: green;">` + conclusion + "</span>"
	}
}

// formatNumber prints the shortest representation of value: 70, 70.5.
func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
