package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
)

// RemoveOptions configures the `remove` pipeline (spec.md §4.5 `remove`).
type RemoveOptions struct {
	Name        string
	DeleteFiles bool
	Force       bool
}

// Remove unregisters a submodule. The flat copy at path is preserved by
// default; --delete-files additionally deletes it, refusing to do so over
// uncommitted changes unless --force is given.
func (e *Engine) Remove(ctx context.Context, opts RemoveOptions) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	sub := cfg.Find(opts.Name)
	if sub == nil {
		return salterr.New(salterr.SubmoduleNotFound, opts.Name)
	}

	absPath := e.absPath(sub.Path)

	if opts.DeleteFiles {
		// Outside a Git parent there are no uncommitted changes to protect.
		if !opts.Force && fsutil.Exists(filepath.Join(e.RepoRoot, ".git")) {
			clean, err := e.Git.IsClean(ctx, e.RepoRoot, sub.Path)
			if err != nil {
				return err
			}
			if !clean {
				return salterr.New(salterr.UncommittedChanges, sub.Path)
			}
		}

		if err := e.Git.RemoveCached(ctx, e.RepoRoot, sub.Path); err != nil {
			e.Logger.Warn("failed to unstage path from parent git (continuing)", "path", sub.Path, "error", err)
		}
		if err := os.RemoveAll(absPath); err != nil {
			return salterr.Wrap(salterr.IOError, err, "deleting "+sub.Path)
		}
	}

	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	if err := os.RemoveAll(clonePath); err != nil {
		return salterr.Wrap(salterr.IOError, err, "deleting hidden clone for "+sub.Name)
	}

	cfg.Remove(sub.Name)
	if err := e.saveConfig(cfg); err != nil {
		return err
	}

	st, err := e.loadState()
	if err != nil {
		return err
	}
	st.Remove(sub.Name)
	return e.saveState(st)
}
