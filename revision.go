package main

import (
	"fmt"

	git "gopkg.in/src-d/go-git.v4"
)

// Revision identifies the project sources a report was built from.
type Revision struct {
	Commit string `json:"commit"`
	Dirty  bool   `json:"dirty"`
}

func projectRevision(root string) (*Revision, error) {
	r, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("unable to open the git repository: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("unable to get the reference where HEAD is pointing to: %w", err)
	}

	w, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("unable to get a worktree based on the given fs: %w", err)
	}

	s, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("unable to get the working tree status: %w", err)
	}

	return &Revision{Commit: head.Hash().String(), Dirty: !s.IsClean()}, nil
}
