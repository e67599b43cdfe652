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

package sarif

import (
	"os"

	"github.com/cockroachdb/errors"
	gosarif "github.com/owenrumney/go-sarif/v2/sarif"
)

// Reader errors.
var (
	ErrFileNotFound = errors.New("SARIF file not found")
	ErrParse        = errors.New("invalid SARIF document")
)

// Load reads the SARIF document at path and converts its first run.
func Load(path string) (*Log, error) {
	report, err := open(path)
	if err != nil {
		return nil, err
	}
	return fromRun(report.Runs[0]), nil
}

// LoadBytes converts the first run of an in-memory SARIF document.
func LoadBytes(content []byte) (*Log, error) {
	report, err := decode(content)
	if err != nil {
		return nil, err
	}
	return fromRun(report.Runs[0]), nil
}

func open(path string) (*gosarif.Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Mark(errors.Wrapf(err, "read %s", path), ErrFileNotFound)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	report, err := decode(content)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return report, nil
}

func decode(content []byte) (*gosarif.Report, error) {
	report, err := gosarif.FromBytes(content)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode"), ErrParse)
	}
	if len(report.Runs) == 0 || report.Runs[0] == nil {
		return nil, errors.Mark(errors.New("document has no runs"), ErrParse)
	}
	return report, nil
}

func fromRun(run *gosarif.Run) *Log {
	log := &Log{
		ToolName: DefaultToolName,
		Rules:    ExtractRules(run.Tool),
		Results:  make([]Result, 0, len(run.Results)),
		Coverage: coverageFromProperties(run.Properties),
	}
	if driver := run.Tool.Driver; driver != nil && driver.FullName != nil && *driver.FullName != "" {
		log.ToolName = *driver.FullName
	}
	for _, result := range run.Results {
		if result == nil {
			continue
		}
		log.Results = append(log.Results, fromResult(result))
	}
	return log
}

// ExtractRules indexes the rules of the driver followed by the rules of every
// extension; an extension rule replaces a driver rule with the same id.
func ExtractRules(tool gosarif.Tool) RuleTable {
	rules := RuleTable{}
	components := make([]*gosarif.ToolComponent, 0, len(tool.Extensions)+1)
	components = append(components, tool.Driver)
	components = append(components, tool.Extensions...)
	for _, component := range components {
		if component == nil {
			continue
		}
		for _, rule := range component.Rules {
			if rule == nil {
				continue
			}
			rules[rule.ID] = Rule{
				ShortDescription: messageText(rule.ShortDescription),
				FullDescription:  messageText(rule.FullDescription),
			}
		}
	}
	return rules
}

func messageText(message *gosarif.MultiformatMessageString) string {
	if message == nil || message.Text == nil {
		return ""
	}
	return *message.Text
}

func fromResult(result *gosarif.Result) Result {
	converted := Result{
		RuleID:        deref(result.RuleID),
		Level:         deref(result.Level),
		BaselineState: deref(result.BaselineState),
		Message:       deref(result.Message.Text),
	}
	if result.Message.Markdown != nil {
		converted.Message = *result.Message.Markdown
	}
	if len(result.Locations) == 0 || result.Locations[0] == nil {
		return converted
	}
	physical := result.Locations[0].PhysicalLocation
	if physical == nil {
		return converted
	}

	location := &Location{}
	if physical.ArtifactLocation != nil {
		location.URI = deref(physical.ArtifactLocation.URI)
	}
	if region := physical.Region; region != nil {
		if region.StartLine != nil {
			location.Region.StartLine = *region.StartLine
		}
		location.Region.EndLine = region.EndLine
		location.Region.StartColumn = region.StartColumn
		location.Region.EndColumn = region.EndColumn
	}
	converted.Location = location
	return converted
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
