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

package vcs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"
)

// Push modes.
const (
	ModeBranch      = "branch"
	ModePullRequest = "pull-request"
)

// QuickFixBranchPrefix prefixes the branches created for pull request pushes.
const QuickFixBranchPrefix = "qodana/quick-fixes"

// PushOptions describes how quick fixes applied to the working tree are
// committed and pushed.
type PushOptions struct {
	Dir  string
	Mode string
	// Branch is the branch the job runs on; required in branch mode.
	Branch        string
	CommitMessage string
	Remote        string
	// Token authenticates the push over HTTPS; empty uses the remote as is.
	Token       string
	Username    string
	AuthorName  string
	AuthorEmail string
}

// PushResult is what Push did.
type PushResult struct {
	// Branch is empty when the working tree had no changes.
	Branch string
	Commit string
}

// Push commits every change of the working tree and pushes it. In branch
// mode the commit goes to the job branch; in pull-request mode to a new
// branch for a pull request to be opened from.
func Push(ctx context.Context, opts PushOptions) (PushResult, error) {
	branch, err := pushBranch(opts)
	if err != nil {
		return PushResult{}, err
	}

	repo, err := Open(opts.Dir)
	if err != nil {
		return PushResult{}, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return PushResult{}, err
	}
	status, err := worktree.Status()
	if err != nil {
		return PushResult{}, errors.Wrap(err, "worktree status")
	}
	if status.IsClean() {
		return PushResult{}, nil
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return PushResult{}, errors.Wrap(err, "stage changes")
	}
	hash, err := worktree.Commit(opts.CommitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  valueOr(opts.AuthorName, "qodana-bot"),
			Email: valueOr(opts.AuthorEmail, "qodana-support@jetbrains.com"),
			When:  time.Now(),
		},
	})
	if err != nil {
		return PushResult{}, errors.Wrap(err, "commit quick fixes")
	}

	ref := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(ref, hash)); err != nil {
		return PushResult{}, err
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: valueOr(opts.Remote, "origin"),
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
		Auth:       auth(opts),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return PushResult{}, errors.Wrapf(err, "push %s", branch)
	}
	return PushResult{Branch: branch, Commit: hash.String()}, nil
}

func pushBranch(opts PushOptions) (string, error) {
	switch opts.Mode {
	case ModeBranch:
		return opts.Branch, ValidateBranch(opts.Branch)
	case ModePullRequest:
		branch := QuickFixBranchPrefix + "-" + uuid.NewString()[:8]
		return branch, ValidateBranch(branch)
	default:
		return "", errors.Newf("unknown push mode %q", opts.Mode)
	}
}

func auth(opts PushOptions) transport.AuthMethod {
	if opts.Token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: valueOr(opts.Username, "x-access-token"), // GitHub/GitLab convention
		Password: opts.Token,
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
