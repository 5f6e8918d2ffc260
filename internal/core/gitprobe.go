package core

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// RepoProbe detects an ambient repository identifier for a working
// directory. It is the lowest-priority scope source and may return "".
type RepoProbe interface {
	RepoID(cwd string) string
}

// GitProbe detects the repo id from the enclosing git work tree.
type GitProbe struct{}

// RepoID returns the basename of the git repository root, or "" when cwd is
// not inside a work tree.
func (GitProbe) RepoID(cwd string) string {
	inside, err := gitOutput(cwd, "rev-parse", "--is-inside-work-tree")
	if err != nil || inside != "true" {
		return ""
	}
	root, err := gitOutput(cwd, "rev-parse", "--show-toplevel")
	if err != nil || root == "" {
		return ""
	}
	return filepath.Base(root)
}

// StaticProbe returns a fixed repo id. Used by tests and by callers that
// already know their repository.
type StaticProbe struct {
	ID string
}

func (p StaticProbe) RepoID(string) string {
	return p.ID
}

// NoProbe never detects a repository.
type NoProbe struct{}

func (NoProbe) RepoID(string) string {
	return ""
}

func gitOutput(cwd string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = cwd
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
