package storage

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"annextube/pkg/logger"
)

// GitRepo implements the checkpoint repository contract by shelling out to
// git, and to git-annex for large media files when annex mode is enabled.
type GitRepo struct {
	dir      string
	useAnnex bool
	log      logger.Logger
}

// NewGitRepo wraps the repository at dir. The directory must already be a
// git repository (and an initialized annex when useAnnex is set).
func NewGitRepo(dir string, useAnnex bool, log logger.Logger) (*GitRepo, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	r := &GitRepo{dir: dir, useAnnex: useAnnex, log: log}

	out, err := r.run(context.Background(), "git", "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(out) != "true" {
		return nil, fmt.Errorf("%s is not a git working tree (run 'annextube init' first)", dir)
	}

	return r, nil
}

// Init creates a git repository (and annex when requested) at dir.
func Init(ctx context.Context, dir string, useAnnex bool, log logger.Logger) (*GitRepo, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	r := &GitRepo{dir: dir, useAnnex: useAnnex, log: log}

	if _, err := r.run(ctx, "git", "init"); err != nil {
		return nil, fmt.Errorf("git init failed: %w", err)
	}
	if useAnnex {
		if _, err := r.run(ctx, "git", "annex", "init", "annextube"); err != nil {
			return nil, fmt.Errorf("git annex init failed: %w", err)
		}
	}

	return r, nil
}

// IsClean reports whether the working tree has no pending changes.
func (r *GitRepo) IsClean(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status failed: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

// Commit stages everything and records a commit with the given message.
// Media files go through the annex when enabled; a clean tree is a no-op,
// not an error.
func (r *GitRepo) Commit(ctx context.Context, message string) error {
	clean, err := r.IsClean(ctx)
	if err != nil {
		return err
	}
	if clean {
		r.log.Debug("working tree clean, nothing to commit")
		return nil
	}

	if r.useAnnex {
		if _, err := r.run(ctx, "git", "annex", "add", "."); err != nil {
			return fmt.Errorf("git annex add failed: %w", err)
		}
	}
	if _, err := r.run(ctx, "git", "add", "-A"); err != nil {
		return fmt.Errorf("git add failed: %w", err)
	}
	if _, err := r.run(ctx, "git", "commit", "-m", message); err != nil {
		return fmt.Errorf("git commit failed: %w", err)
	}

	r.log.InfoWithFields("repository commit recorded", map[string]interface{}{
		"message": message,
	})
	return nil
}

// Dir returns the repository working-tree path.
func (r *GitRepo) Dir() string {
	return r.dir
}

// run executes a command inside the repository directory.
func (r *GitRepo) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}

	return stdout.String(), nil
}
