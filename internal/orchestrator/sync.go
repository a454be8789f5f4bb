package orchestrator

import (
	"context"

	"github.com/saltvcs/salt/internal/branchmap"
	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
	"github.com/saltvcs/salt/internal/state"
)

// SyncOptions configures the `sync` pipeline (spec.md §4.5 `sync`).
type SyncOptions struct {
	Name  string
	Force bool
	CI    bool
}

// SyncResult is one submodule's outcome from `sync`.
type SyncResult struct {
	Name         string
	TargetBranch string
	Skipped      salterr.Kind // empty unless the submodule was skipped
	Err          error
}

// Sync brings the named submodule (or all of them) to the branch its
// mapping resolves to for the parent's current branch, then refreshes
// the flat copy and state.
func (e *Engine) Sync(ctx context.Context, opts SyncOptions) ([]SyncResult, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}

	subs, err := selectSubmodules(cfg, opts.Name)
	if err != nil {
		return nil, err
	}

	parentBranch := e.parentBranch(ctx)

	var results []SyncResult
	for _, sub := range subs {
		res := e.syncOne(ctx, sub, parentBranch, opts.Force, st)
		results = append(results, res)
		if res.Err != nil && opts.CI {
			_ = e.saveState(st)
			return results, res.Err
		}
	}

	if err := e.saveState(st); err != nil {
		return results, err
	}
	return results, nil
}

// syncOne implements spec.md §4.5 `sync` steps 1-5 for a single
// submodule, mutating st in place on success.
func (e *Engine) syncOne(ctx context.Context, sub *config.Submodule, parentBranch string, force bool, st *state.SyncState) SyncResult {
	target := branchmap.Resolve(sub, parentBranch)
	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	absPath := e.absPath(sub.Path)

	if !fsutil.Exists(clonePath) {
		return SyncResult{Name: sub.Name, TargetBranch: target, Err: salterr.New(salterr.SourceRepoNotFound, sub.Name)}
	}

	if !force {
		clean, err := e.Git.IsClean(ctx, e.RepoRoot, sub.Path)
		if err != nil {
			return SyncResult{Name: sub.Name, TargetBranch: target, Err: err}
		}
		if !clean {
			return SyncResult{Name: sub.Name, TargetBranch: target, Skipped: salterr.UncommittedChanges}
		}
	}

	if err := e.Git.Fetch(ctx, clonePath); err != nil {
		e.Logger.Warn("fetch failed, continuing with local state", "name", sub.Name, "error", err)
	}
	if err := e.Git.Checkout(ctx, clonePath, target); err != nil {
		return SyncResult{Name: sub.Name, TargetBranch: target, Err: err}
	}
	if err := e.Git.Pull(ctx, clonePath, "origin", target); err != nil {
		if salterr.IsKind(err, salterr.MergeConflict) {
			return SyncResult{Name: sub.Name, TargetBranch: target, Err: err}
		}
		e.Logger.Warn("pull failed, continuing with local state", "name", sub.Name, "error", err)
	}

	if err := fsutil.ReplaceTree(clonePath, absPath); err != nil {
		return SyncResult{Name: sub.Name, TargetBranch: target, Err: salterr.Wrap(salterr.IOError, err, "copying hidden clone to "+sub.Path)}
	}

	headCommit, err := e.Git.HeadCommit(ctx, clonePath)
	if err != nil {
		return SyncResult{Name: sub.Name, TargetBranch: target, Err: err}
	}
	parentHash, err := e.hashPath(sub.Path)
	if err != nil {
		return SyncResult{Name: sub.Name, TargetBranch: target, Err: salterr.Wrap(salterr.IOError, err, "hashing "+sub.Path)}
	}

	st.UpdateAfterSync(sub.Name, headCommit, parentHash, target, e.Now())
	return SyncResult{Name: sub.Name, TargetBranch: target}
}
