package vcs

import (
	"github.com/cockroachdb/errors"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrInvalidBranch is returned for branch names git would reject.
var ErrInvalidBranch = errors.New("invalid branch name")

// Open opens the repository containing dir.
func Open(dir string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open repository at %s", dir)
	}
	return repo, nil
}

// MergeBase returns the best common ancestor of HEAD and revision, the
// commit a pull request analysis diffs against.
func MergeBase(dir, revision string) (string, error) {
	repo, err := Open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "resolve HEAD")
	}
	other, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", revision)
	}

	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", err
	}
	otherCommit, err := repo.CommitObject(*other)
	if err != nil {
		return "", err
	}
	bases, err := headCommit.MergeBase(otherCommit)
	if err != nil {
		return "", err
	}
	if len(bases) == 0 {
		return "", errors.Newf("no common ancestor of HEAD and %s", revision)
	}
	return bases[0].Hash.String(), nil
}

// ValidateBranch checks that name is a valid branch name.
func ValidateBranch(name string) error {
	if name == "" {
		return errors.Mark(errors.New("empty branch name"), ErrInvalidBranch)
	}
	if err := plumbing.NewBranchReferenceName(name).Validate(); err != nil {
		return errors.Mark(errors.Wrapf(err, "%q", name), ErrInvalidBranch)
	}
	return nil
}
