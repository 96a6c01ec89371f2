package meta

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/ncclementi/tabarena-cuml-poc/internal/record"
)

// collectGit records commit, branch, dirty state, and working tree root.
// Outside a repository (or without git installed) every field is null and
// git_error explains why.
func (c *Collector) collectGit(ctx context.Context) record.Row {
	row := record.Row{}

	commit, err := c.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		row.Set("commit", nil)
		row.Set("branch", nil)
		row.Set("dirty", nil)
		row.Set("working_dir", nil)
		row.Set("error", err.Error())
		return row
	}
	row.Set("commit", commit)

	if branch, err := c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD"); err != nil || branch == "HEAD" {
		// Detached HEAD has no branch name.
		row.Set("branch", nil)
	} else {
		row.Set("branch", branch)
	}

	if status, err := c.git(ctx, "status", "--porcelain"); err != nil {
		row.Set("dirty", nil)
	} else {
		row.Set("dirty", status != "")
	}

	if root, err := c.git(ctx, "rev-parse", "--show-toplevel"); err == nil {
		row.Set("working_dir", root)
	}

	return row
}

func (c *Collector) git(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.RepoPath != "" {
		cmd.Dir = c.RepoPath
	}
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrapf(err, "git %s", strings.Join(args, " "))
	}
	return strings.TrimSpace(string(out)), nil
}
