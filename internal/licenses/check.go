package licenses

import (
	"strings"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

var copyleftPrefixes = []string{"gpl", "agpl", "lgpl", "npl"}

// IsCopyleft reports whether a license key names a copyleft license.
func IsCopyleft(key string) bool {
	key = strings.ToLower(key)
	for _, prefix := range copyleftPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Copyleft returns the dependencies with at least one copyleft license.
func Copyleft(dependencies []report.Dependency) []report.Dependency {
	var result []report.Dependency
	for _, dependency := range dependencies {
		for _, license := range dependency.Licenses {
			if IsCopyleft(license.Key) {
				result = append(result, dependency)
				break
			}
		}
	}
	return result
}
