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

package azure

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

// Logging commands understood by the agent when printed to stdout.
// https://learn.microsoft.com/azure/devops/pipelines/scripts/logging-commands

var issueTypes = map[report.Severity]string{
	report.Failure: "error",
	report.Warning: "warning",
}

// Commands writes logging commands to the agent.
type Commands struct {
	w io.Writer
}

func NewCommands(w io.Writer) *Commands {
	return &Commands{w: w}
}

// LogIssue reports an annotation as a build issue. Notices have no issue
// type and are printed as plain output.
func (c *Commands) LogIssue(annotation report.Annotation) error {
	issueType, ok := issueTypes[annotation.Severity]
	if !ok {
		_, err := fmt.Fprintf(c.w, "%s:%d: %s\n", annotation.Path, annotation.StartLine, escapeMessage(annotation.Message))
		return err
	}
	properties := map[string]string{
		"type":       issueType,
		"sourcepath": annotation.Path,
		"linenumber": fmt.Sprint(annotation.StartLine),
	}
	if annotation.StartColumn != nil {
		properties["columnnumber"] = fmt.Sprint(*annotation.StartColumn)
	}
	return c.command("task.logissue", properties, annotation.Title+": "+annotation.Message)
}

// UploadSummary attaches a Markdown file to the build summary.
func (c *Commands) UploadSummary(path string) error {
	return c.command("task.uploadsummary", nil, path)
}

// UploadArtifact publishes a file or directory as a build artifact.
func (c *Commands) UploadArtifact(container, name, path string) error {
	return c.command("artifact.upload", map[string]string{
		"containerfolder": container,
		"artifactname":    name,
	}, path)
}

// SetResult sets the result of the task.
func (c *Commands) SetResult(result, message string) error {
	return c.command("task.complete", map[string]string{"result": result}, message)
}

func (c *Commands) command(name string, properties map[string]string, message string) error {
	keys := make([]string, 0, len(properties))
	for key := range properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	builder := strings.Builder{}
	builder.WriteString("##vso[" + name)
	for i, key := range keys {
		if i == 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(key + "=" + escapeProperty(properties[key]) + ";")
	}
	builder.WriteString("]" + escapeMessage(message) + "\n")

	_, err := io.WriteString(c.w, builder.String())
	return err
}

var (
	messageEscaper  = strings.NewReplacer("%", "%AZP25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%AZP25", "\r", "%0D", "\n", "%0A", ";", "%3B", "]", "%5D")
)

func escapeMessage(s string) string {
	return messageEscaper.Replace(s)
}

func escapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}
