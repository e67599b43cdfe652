package azure

import (
	"strconv"
	"strings"
)

// Build is the Azure Pipelines context of the current job.
type Build struct {
	CollectionURI string
	Project       string
	RepositoryID  string
	AccessToken   string
	SourceBranch  string
	// PullRequestID is zero outside of pull request builds.
	PullRequestID int
	TargetBranch  string
	StagingDir    string
}

// LoadBuild reads the predefined pipeline variables.
func LoadBuild(getenv func(string) string) Build {
	id, _ := strconv.Atoi(getenv("SYSTEM_PULLREQUEST_PULLREQUESTID"))
	return Build{
		CollectionURI: getenv("SYSTEM_COLLECTIONURI"),
		Project:       getenv("SYSTEM_TEAMPROJECT"),
		RepositoryID:  getenv("BUILD_REPOSITORY_ID"),
		AccessToken:   getenv("SYSTEM_ACCESSTOKEN"),
		SourceBranch:  strings.TrimPrefix(getenv("BUILD_SOURCEBRANCH"), "refs/heads/"),
		PullRequestID: id,
		TargetBranch:  strings.TrimPrefix(getenv("SYSTEM_PULLREQUEST_TARGETBRANCH"), "refs/heads/"),
		StagingDir:    getenv("BUILD_ARTIFACTSTAGINGDIRECTORY"),
	}
}

// IsPullRequest reports whether the build validates a pull request.
func (b Build) IsPullRequest() bool {
	return b.PullRequestID != 0
}
