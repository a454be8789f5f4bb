package orchestrator

import (
	"context"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
	"github.com/saltvcs/salt/internal/state"
)

// PullOptions configures the `pull` pipeline (spec.md §4.5 `pull`).
type PullOptions struct {
	Name string
	CI   bool
}

// PullResult is one submodule's outcome from `pull`.
type PullResult struct {
	Name    string
	Skipped salterr.Kind
	Err     error
}

// Pull fast-forwards the named submodule's hidden clone on its current
// branch and refreshes the flat copy, without consulting the branch
// mapping (unlike `sync`, `pull` stays on whatever branch the hidden
// clone already has checked out).
func (e *Engine) Pull(ctx context.Context, opts PullOptions) ([]PullResult, error) {
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

	var results []PullResult
	for _, sub := range subs {
		res := e.pullOne(ctx, sub, st)
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

func (e *Engine) pullOne(ctx context.Context, sub *config.Submodule, st *state.SyncState) PullResult {
	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	if !fsutil.Exists(clonePath) {
		return PullResult{Name: sub.Name, Err: salterr.New(salterr.SourceRepoNotFound, sub.Name)}
	}

	branch, err := e.Git.CurrentBranch(ctx, clonePath)
	if err != nil {
		return PullResult{Name: sub.Name, Err: err}
	}

	clean, err := e.Git.IsClean(ctx, clonePath)
	if err != nil {
		return PullResult{Name: sub.Name, Err: err}
	}
	if !clean {
		return PullResult{Name: sub.Name, Skipped: salterr.UncommittedChanges}
	}

	if err := e.Git.Pull(ctx, clonePath, "origin", branch); err != nil {
		if salterr.IsKind(err, salterr.MergeConflict) {
			return PullResult{Name: sub.Name, Skipped: salterr.MergeConflict}
		}
		return PullResult{Name: sub.Name, Err: err}
	}

	absPath := e.absPath(sub.Path)
	if err := fsutil.ReplaceTree(clonePath, absPath); err != nil {
		return PullResult{Name: sub.Name, Err: salterr.Wrap(salterr.IOError, err, "copying hidden clone to "+sub.Path)}
	}

	headCommit, err := e.Git.HeadCommit(ctx, clonePath)
	if err != nil {
		return PullResult{Name: sub.Name, Err: err}
	}
	parentHash, err := e.hashPath(sub.Path)
	if err != nil {
		return PullResult{Name: sub.Name, Err: salterr.Wrap(salterr.IOError, err, "hashing "+sub.Path)}
	}

	st.UpdateAfterSync(sub.Name, headCommit, parentHash, branch, e.Now())
	return PullResult{Name: sub.Name}
}
