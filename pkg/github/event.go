package github

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/go-github/v70/github"
)

// Event is the part of the workflow context the adapter needs.
type Event struct {
	Repository Repository
	// SHA is the head commit of the pull request, or GITHUB_SHA outside of one.
	SHA string
	// PullRequest is zero when the workflow was not triggered by a pull request.
	PullRequest PullRequest
}

// PullRequest holds the refs of the pull request that triggered the workflow.
type PullRequest struct {
	Number  int
	BaseSHA string
	BaseRef string
	HeadRef string
}

// IsPullRequest reports whether the workflow runs for a pull request.
func (e Event) IsPullRequest() bool {
	return e.PullRequest.Number != 0
}

// LoadEvent reads the workflow context from the GITHUB_* environment and the
// event payload at GITHUB_EVENT_PATH.
func LoadEvent(getenv func(string) string) (Event, error) {
	repo, err := ParseRepository(getenv("GITHUB_REPOSITORY"))
	if err != nil {
		return Event{}, err
	}
	event := Event{Repository: repo, SHA: getenv("GITHUB_SHA")}

	path := getenv("GITHUB_EVENT_PATH")
	if path == "" {
		return event, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Event{}, fmt.Errorf("reading event payload: %w", err)
	}

	var payload github.PullRequestEvent
	if err := json.Unmarshal(content, &payload); err != nil {
		return Event{}, fmt.Errorf("parsing event payload %s: %w", path, err)
	}
	if pr := payload.GetPullRequest(); pr != nil {
		event.SHA = pr.GetHead().GetSHA()
		event.PullRequest = PullRequest{
			Number:  pr.GetNumber(),
			BaseSHA: pr.GetBase().GetSHA(),
			BaseRef: pr.GetBase().GetRef(),
			HeadRef: pr.GetHead().GetRef(),
		}
	}
	return event, nil
}

// AppendStepSummary appends markdown to the job summary file.
func AppendStepSummary(path, markdown string) error {
	if path == "" {
		return fmt.Errorf("GITHUB_STEP_SUMMARY is not set")
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(markdown); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
