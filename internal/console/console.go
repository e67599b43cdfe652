package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	severityColors = map[report.Severity]lipgloss.Color{
		report.Failure: lipgloss.Color("#FF6B6B"),
		report.Warning: lipgloss.Color("#FFB347"),
		report.Notice:  lipgloss.Color("#A0A0A0"),
	}

	okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BD88F")).Bold(true)
)

// Summary is what the console shows after a local run.
type Summary struct {
	Title     string
	Problems  []report.Problem
	Coverage  string
	ReportURL string
	// FailThreshold is set when the run exceeded the configured threshold.
	FailThreshold bool
}

// Render renders the summary for a terminal.
func Render(summary Summary) string {
	builder := strings.Builder{}
	builder.WriteString(titleStyle.Render(summary.Title))
	builder.WriteString("\n")

	if len(summary.Problems) == 0 {
		builder.WriteString(okStyle.Render("It seems all right 👌"))
		builder.WriteString("\n")
	} else {
		builder.WriteString(problemsTable(report.Group(summary.Problems)))
		builder.WriteString("\n")
	}

	if summary.Coverage != "" {
		builder.WriteString("\n" + summary.Coverage + "\n")
	}
	if summary.ReportURL != "" {
		builder.WriteString(fmt.Sprintf("\n☁️  View the detailed report: %s\n", summary.ReportURL))
	}
	if summary.FailThreshold {
		builder.WriteString("\n" + lipgloss.NewStyle().Foreground(severityColors[report.Failure]).Bold(true).
			Render("✗ The number of problems exceeds the failThreshold") + "\n")
	}
	return builder.String()
}

func problemsTable(groups []report.ProblemGroup) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))).
		Headers("Inspection name", "Severity", "Problems").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(groups) {
				return cellStyle.Foreground(severityColors[groups[row].Severity])
			}
			return cellStyle
		})
	for _, group := range groups {
		t.Row(group.Title, report.SeverityLabel(group.Severity), fmt.Sprint(group.Count))
	}
	return t.String()
}
