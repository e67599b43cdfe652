package gitlab

import (
	"strconv"
)

// Pipeline is the GitLab CI context of the current job.
type Pipeline struct {
	APIURL    string
	ProjectID string
	CommitSHA string
	// MergeRequestIID is zero outside of merge request pipelines.
	MergeRequestIID int
	DiffBaseSHA     string
	SourceBranch    string
	TargetBranch    string
	DefaultBranch   string
}

// LoadPipeline reads the predefined CI_* variables.
func LoadPipeline(getenv func(string) string) Pipeline {
	iid, _ := strconv.Atoi(getenv("CI_MERGE_REQUEST_IID"))
	return Pipeline{
		APIURL:          getenv("CI_API_V4_URL"),
		ProjectID:       getenv("CI_PROJECT_ID"),
		CommitSHA:       getenv("CI_COMMIT_SHA"),
		MergeRequestIID: iid,
		DiffBaseSHA:     getenv("CI_MERGE_REQUEST_DIFF_BASE_SHA"),
		SourceBranch:    getenv("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME"),
		TargetBranch:    getenv("CI_MERGE_REQUEST_TARGET_BRANCH_NAME"),
		DefaultBranch:   getenv("CI_DEFAULT_BRANCH"),
	}
}

// IsMergeRequest reports whether the job runs for a merge request.
func (p Pipeline) IsMergeRequest() bool {
	return p.MergeRequestIID != 0
}
