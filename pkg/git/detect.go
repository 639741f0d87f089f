// Package git detects the repository a command runs in, so CLI commands can
// scope memories to the current project.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const detectTimeout = 5 * time.Second

// RepoName returns the name of the git repository containing dir.
// It runs "git rev-parse --show-toplevel" and returns the base directory
// name. Outside a repository, or without git installed, it falls back to the
// base name of dir itself.
func RepoName(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err == nil {
		if top := strings.TrimSpace(string(out)); top != "" {
			return filepath.Base(top)
		}
	}

	return filepath.Base(dir)
}
