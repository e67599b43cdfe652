package gitlab

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

// CodeQualityReport is the artifact name GitLab shows in merge request widgets.
const CodeQualityReport = "gl-code-quality-report.json"

// Issue is one entry of a Code Quality report.
type Issue struct {
	Description string   `json:"description"`
	CheckName   string   `json:"check_name"`
	Fingerprint string   `json:"fingerprint"`
	Severity    string   `json:"severity"`
	Location    Location `json:"location"`
}

type Location struct {
	Path  string `json:"path"`
	Lines Lines  `json:"lines"`
}

type Lines struct {
	Begin int `json:"begin"`
	End   int `json:"end,omitempty"`
}

var severities = map[report.Severity]string{
	report.Failure: "critical",
	report.Warning: "major",
	report.Notice:  "info",
}

// CodeQualityIssues converts annotations to Code Quality issues.
func CodeQualityIssues(annotations []report.Annotation) []Issue {
	issues := make([]Issue, 0, len(annotations))
	for _, annotation := range annotations {
		issues = append(issues, Issue{
			Description: annotation.Message,
			CheckName:   annotation.Title,
			Fingerprint: fingerprint(annotation),
			Severity:    severities[annotation.Severity],
			Location: Location{
				Path:  annotation.Path,
				Lines: Lines{Begin: annotation.StartLine, End: annotation.EndLine},
			},
		})
	}
	return issues
}

// WriteCodeQualityReport writes the annotations as a Code Quality report at path.
func WriteCodeQualityReport(path string, annotations []report.Annotation) error {
	content, err := json.MarshalIndent(CodeQualityIssues(annotations), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

// fingerprint identifies an issue across pipelines so GitLab can compare
// the report of a merge request with the one of its target branch.
func fingerprint(annotation report.Annotation) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d\x00%s",
		annotation.Title, annotation.Path, annotation.StartLine, annotation.Message)))
	return hex.EncodeToString(sum[:])
}
