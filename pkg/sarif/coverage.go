package sarif

// ExtractCoverage reads the coverage counters of the SARIF document at path.
// A document without coverage data yields zero counters.
func ExtractCoverage(path string) (CoverageStats, error) {
	report, err := open(path)
	if err != nil {
		return CoverageStats{}, err
	}
	return coverageFromProperties(report.Runs[0].Properties), nil
}

func coverageFromProperties(properties map[string]interface{}) CoverageStats {
	stats := CoverageStats{
		TotalThreshold: DefaultCoverageThreshold,
		FreshThreshold: DefaultCoverageThreshold,
	}

	coverage := object(properties, "coverage")
	if coverage == nil {
		return stats
	}
	stats.TotalCoverage = number(coverage, "totalCoverage")
	stats.TotalLines = number(coverage, "totalLines")
	stats.TotalCoveredLines = number(coverage, "totalCoveredLines")
	stats.FreshCoverage = number(coverage, "freshCoverage")
	stats.FreshLines = number(coverage, "freshLines")
	stats.FreshCoveredLines = number(coverage, "freshCoveredLines")

	thresholds := object(object(properties, "qodanaFailureConditions"), "testCoverageThresholds")
	if value := number(thresholds, "totalCoverage"); value != 0 {
		stats.TotalThreshold = value
	}
	if value := number(thresholds, "freshCoverage"); value != 0 {
		stats.FreshThreshold = value
	}
	return stats
}

func object(properties map[string]interface{}, key string) map[string]interface{} {
	if properties == nil {
		return nil
	}
	value, _ := properties[key].(map[string]interface{})
	return value
}

func number(properties map[string]interface{}, key string) float64 {
	if properties == nil {
		return 0
	}
	switch value := properties[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	default:
		return 0
	}
}
