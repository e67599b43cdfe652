package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// DependenciesFile is written by the analyzer when license audit is enabled.
const DependenciesFile = "projectStructure/third-party-libraries.json"

// Dependency is a third-party library detected in the project.
type Dependency struct {
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Licenses []License `json:"licenses"`
}

// License is a license of a dependency.
type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// LoadDependencies reads the dependency list at path. A missing file means
// the license audit did not run and yields no dependencies.
func LoadDependencies(path string) ([]Dependency, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var dependencies []Dependency
	if err := json.Unmarshal(content, &dependencies); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return dependencies, nil
}

// RenderLicenses renders dependencies as a Markdown table sorted by name.
func RenderLicenses(dependencies []Dependency) string {
	if len(dependencies) == 0 {
		return ""
	}
	sorted := append([]Dependency(nil), dependencies...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	builder := strings.Builder{}
	builder.WriteString("| Dependency | Version | Licenses |\n")
	builder.WriteString("| --- | --- | --- |\n")
	for _, dependency := range sorted {
		keys := make([]string, 0, len(dependency.Licenses))
		for _, license := range dependency.Licenses {
			keys = append(keys, license.Key)
		}
		builder.WriteString(fmt.Sprintf("| `%s` | %s | %s |\n", dependency.Name, dependency.Version, strings.Join(keys, ", ")))
	}
	return builder.String()
}
