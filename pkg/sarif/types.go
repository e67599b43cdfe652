package sarif

// DefaultToolName is used when the driver carries no full name.
const DefaultToolName = "Qodana"

// DefaultCoverageThreshold applies when the run does not define its own
// coverage failure conditions.
const DefaultCoverageThreshold = 50

// Baseline states of a result.
const (
	BaselineNew       = "new"
	BaselineUnchanged = "unchanged"
	BaselineUpdated   = "updated"
	BaselineAbsent    = "absent"
)

// Result levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelNote    = "note"
	LevelNone    = "none"
)

// Log is the part of a SARIF document the reporters work with. It is built
// once from the first run of the document.
type Log struct {
	// ToolName is the driver full name, DefaultToolName when absent.
	ToolName string
	// Rules describes every rule declared by the driver and its extensions.
	Rules RuleTable
	// Results holds the run results in document order.
	Results []Result
	// Coverage carries the coverage counters embedded in the run properties.
	Coverage CoverageStats
}

// Result is a single finding.
type Result struct {
	RuleID        string
	Level         string
	BaselineState string
	// Message prefers the markdown form over plain text.
	Message string
	// Location is nil when the result has no physical location.
	Location *Location
}

// Location is the physical location of a result.
type Location struct {
	URI    string
	Region Region
}

// Region is the text region of a location. StartLine is 0 when absent.
type Region struct {
	StartLine   int
	EndLine     *int
	StartColumn *int
	EndColumn   *int
}

// Rule is the textual description of a rule.
type Rule struct {
	ShortDescription string
	FullDescription  string
}

// RuleTable maps rule identifiers to their descriptions.
type RuleTable map[string]Rule

// CoverageStats holds code coverage counters. Percentages are in the 0-100
// range; fresh values are restricted to changed lines.
type CoverageStats struct {
	TotalCoverage     float64
	TotalLines        float64
	TotalCoveredLines float64
	FreshCoverage     float64
	FreshLines        float64
	FreshCoveredLines float64

	TotalThreshold float64
	FreshThreshold float64
}
