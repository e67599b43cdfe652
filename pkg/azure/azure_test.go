package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetbrains/qodana-ci/pkg/report"
)

func intPtr(v int) *int {
	return &v
}

func TestLogIssue(t *testing.T) {
	tests := []struct {
		name       string
		annotation report.Annotation
		want       string
	}{
		{
			name: "error with column",
			annotation: report.Annotation{
				Severity: report.Failure, Title: "Constant condition", Message: "Always true",
				Path: "src/a.go", StartLine: 3, StartColumn: intPtr(7),
			},
			want: "##vso[task.logissue columnnumber=7;linenumber=3;sourcepath=src/a.go;type=error;]Constant condition: Always true\n",
		},
		{
			name: "warning with escaped message",
			annotation: report.Annotation{
				Severity: report.Warning, Title: "Unused", Message: "100% unused\nline",
				Path: "b;c.go", StartLine: 1,
			},
			want: "##vso[task.logissue linenumber=1;sourcepath=b%3Bc.go;type=warning;]Unused: 100%AZP25 unused%0Aline\n",
		},
		{
			name:       "notice",
			annotation: report.Annotation{Severity: report.Notice, Title: "Typo", Message: "Typo", Path: "c.go", StartLine: 9},
			want:       "c.go:9: Typo\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, NewCommands(&out).LogIssue(tt.annotation))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	commands := NewCommands(&out)
	require.NoError(t, commands.UploadSummary("/tmp/summary.md"))
	require.NoError(t, commands.UploadArtifact("qodana", "qodana-report", "/tmp/results"))
	require.NoError(t, commands.SetResult("Failed", "The number of problems exceeds the failThreshold"))

	assert.Equal(t, "##vso[task.uploadsummary]/tmp/summary.md\n"+
		"##vso[artifact.upload artifactname=qodana-report;containerfolder=qodana;]/tmp/results\n"+
		"##vso[task.complete result=Failed;]The number of problems exceeds the failThreshold\n", out.String())
}

func TestCreateOrUpdateThread(t *testing.T) {
	const tag = "<!-- JetBrains/qodana-azure@v2025.1 : Qodana, src -->"

	tests := []struct {
		name       string
		threads    string
		wantMethod string
		wantPath   string
	}{
		{
			name:       "creates a thread",
			threads:    `{"value": [{"id": 1, "comments": [{"id": 1, "content": "lgtm"}]}]}`,
			wantMethod: http.MethodPost,
			wantPath:   "/org/proj/_apis/git/repositories/repo-id/pullRequests/5/threads",
		},
		{
			name:       "edits the tagged thread",
			threads:    fmt.Sprintf(`{"value": [{"id": 1, "comments": []}, {"id": 8, "comments": [{"id": 2, "content": %q}]}]}`, "old\n"+tag),
			wantMethod: http.MethodPatch,
			wantPath:   "/org/proj/_apis/git/repositories/repo-id/pullRequests/5/threads/8/comments/2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod, gotPath, gotContent string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, apiVersion, r.URL.Query().Get("api-version"))
				assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
				if r.Method == http.MethodGet {
					fmt.Fprint(w, tt.threads)
					return
				}
				var payload struct {
					Content  string `json:"content"`
					Comments []struct {
						Content string `json:"content"`
					} `json:"comments"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				gotMethod, gotPath = r.Method, r.URL.Path
				gotContent = payload.Content
				if len(payload.Comments) > 0 {
					gotContent = payload.Comments[0].Content
				}
				fmt.Fprint(w, `{}`)
			}))
			defer server.Close()

			client := New(server.URL+"/org/", "proj", "repo-id", "token")
			require.NoError(t, client.CreateOrUpdateThread(context.Background(), 5, "# Qodana", tag))
			assert.Equal(t, tt.wantMethod, gotMethod)
			assert.Equal(t, tt.wantPath, gotPath)
			assert.Equal(t, "# Qodana\n"+tag, gotContent)
		})
	}
}

func TestLoadBuild(t *testing.T) {
	env := map[string]string{
		"SYSTEM_PULLREQUEST_PULLREQUESTID": "5",
		"SYSTEM_PULLREQUEST_TARGETBRANCH":  "refs/heads/main",
		"BUILD_SOURCEBRANCH":               "refs/heads/feature",
	}
	build := LoadBuild(func(key string) string { return env[key] })
	assert.True(t, build.IsPullRequest())
	assert.Equal(t, "main", build.TargetBranch)
	assert.Equal(t, "feature", build.SourceBranch)
}
