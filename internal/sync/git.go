package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GitDestination commits session history snapshots to a file in a local git
// clone and pushes them, giving the history an audit trail for free.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // file path within the repo
	branch string // branch to commit and push to
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{
		repo:   repo,
		file:   file,
		branch: branch,
	}
}

// Write renders the snapshot into the configured file, commits it with a
// session-count message, and pushes. An unchanged history commits nothing.
func (d *GitDestination) Write(ctx context.Context, export *Export) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}

	// Pull latest to minimize conflicts; the remote may not have the
	// branch yet, so a failed pull is not fatal.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	data, err := export.MarshalJSONL()
	if err != nil {
		return fmt.Errorf("render export: %w", err)
	}

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return err
	}

	// Nothing staged means the history hasn't changed since the last
	// export.
	if d.git(ctx, "diff", "--cached", "--quiet") == nil {
		return nil
	}

	msg := fmt.Sprintf("pomod: export %d sessions", len(export.Sessions))
	if err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	return d.git(ctx, "push", "origin", d.branch)
}

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %w (%s)", args[0], err, bytes.TrimSpace(out))
	}
	return nil
}
