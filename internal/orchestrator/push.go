package orchestrator

import (
	"context"
	"fmt"

	"github.com/saltvcs/salt/internal/branchmap"
	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
	"github.com/saltvcs/salt/internal/state"
)

// PushOptions configures the `push` pipeline (spec.md §4.5 `push`).
type PushOptions struct {
	Name     string
	Force    bool
	AutoSync bool
	CI       bool
}

// PushResult is one submodule's outcome from `push`.
type PushResult struct {
	Name    string
	Skipped salterr.Kind
	Err     error
}

// Push copies the parent tree's copy of the named submodule (or all of
// them) back into its hidden clone, commits and pushes the change.
func (e *Engine) Push(ctx context.Context, opts PushOptions) ([]PushResult, error) {
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

	var results []PushResult
	for _, sub := range subs {
		res := e.pushOne(ctx, sub, parentBranch, opts, st)
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

// pushOne implements spec.md §4.5 `push` steps 1-8 for a single
// submodule, mutating st in place on success.
func (e *Engine) pushOne(ctx context.Context, sub *config.Submodule, parentBranch string, opts PushOptions, st *state.SyncState) PushResult {
	rec, ok := st.Get(sub.Name)
	if !ok {
		return PushResult{Name: sub.Name, Err: salterr.New(salterr.NoState, sub.Name)}
	}

	expected := branchmap.Resolve(sub, parentBranch)
	if rec.SourceBranch != expected && !opts.Force {
		if !opts.AutoSync {
			return PushResult{Name: sub.Name, Skipped: salterr.BranchMismatch}
		}
		syncRes := e.syncOne(ctx, sub, parentBranch, false, st)
		if syncRes.Err != nil {
			return PushResult{Name: sub.Name, Err: syncRes.Err}
		}
		rec, _ = st.Get(sub.Name)
	}

	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	absPath := e.absPath(sub.Path)

	currentHash, err := e.hashPath(sub.Path)
	if err != nil {
		return PushResult{Name: sub.Name, Err: salterr.Wrap(salterr.IOError, err, "hashing "+sub.Path)}
	}
	if currentHash == rec.ParentFilesHash {
		return PushResult{Name: sub.Name, Skipped: salterr.NoChanges}
	}

	if err := fsutil.ReplaceTree(absPath, clonePath); err != nil {
		return PushResult{Name: sub.Name, Err: salterr.Wrap(salterr.IOError, err, "copying "+sub.Path+" to hidden clone")}
	}

	if err := e.Git.AddAll(ctx, clonePath); err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}
	clean, err := e.Git.IsClean(ctx, clonePath)
	if err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}
	if clean {
		return PushResult{Name: sub.Name, Skipped: salterr.NoChanges}
	}

	message := fmt.Sprintf("Update from parent repo (branch: %s)", parentBranch)
	if err := e.Git.Commit(ctx, clonePath, message); err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}

	branch, err := e.Git.CurrentBranch(ctx, clonePath)
	if err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}
	if err := e.Git.Push(ctx, clonePath, "origin", branch); err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}

	pushCommit, err := e.Git.HeadCommit(ctx, clonePath)
	if err != nil {
		return PushResult{Name: sub.Name, Err: err}
	}

	st.UpdateAfterPush(sub.Name, pushCommit, currentHash, e.Now())
	return PushResult{Name: sub.Name}
}
