package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
)

// ResolveOptions configures the `resolve` pipeline (spec.md §4.5 `resolve`).
type ResolveOptions struct {
	Name  string // empty means all submodules
	Force bool
}

// ResolveOutcome is the per-submodule tag `resolve` reports: RESOLVED for
// a fresh clone, UPDATED for a fetch+pull against an existing one.
type ResolveOutcome string

const (
	Resolved ResolveOutcome = "RESOLVED"
	Updated  ResolveOutcome = "UPDATED"
)

// ResolveResult is one submodule's outcome from `resolve`.
type ResolveResult struct {
	Name             string
	Outcome          ResolveOutcome
	NestedDependency bool // <path>/salt.conf exists: a nested-dependency notice
	Skipped          salterr.Kind // empty unless the submodule was skipped
	Err              error
}

// Resolve materializes the hidden clone (and flat copy) for the named
// submodule, or all of them if name is empty, by cloning or
// fetch+checkout+pull against each submodule's default_branch.
func (e *Engine) Resolve(ctx context.Context, opts ResolveOptions, ci bool) ([]ResolveResult, error) {
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

	var results []ResolveResult
	for _, sub := range subs {
		res := e.resolveOne(ctx, sub, opts.Force)
		results = append(results, res)
		if res.Err == nil && res.Skipped == "" {
			headCommit, err := e.Git.HeadCommit(ctx, config.HiddenClonePath(e.RepoRoot, sub.Name))
			if err == nil {
				parentHash, hashErr := e.hashPath(sub.Path)
				if hashErr == nil {
					st.UpdateAfterSync(sub.Name, headCommit, parentHash, sub.DefaultBranch, e.Now())
				}
			}
		}
		if res.Err != nil && ci {
			_ = e.saveState(st)
			return results, res.Err
		}
	}

	if err := e.saveState(st); err != nil {
		return results, err
	}
	return results, nil
}

// resolveOne runs spec.md §4.5 `resolve` steps 1-3 and 5 for a single
// submodule. Step 4 (UpdateAfterSync) is applied by the caller once the
// fresh HEAD and hash are known. Unless force is set, an existing flat
// copy with local edits is left alone instead of being overwritten.
func (e *Engine) resolveOne(ctx context.Context, sub *config.Submodule, force bool) ResolveResult {
	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	absPath := e.absPath(sub.Path)
	outcome := Updated

	if !force && fsutil.Exists(absPath) {
		clean, err := e.Git.IsClean(ctx, e.RepoRoot, sub.Path)
		if err != nil {
			return ResolveResult{Name: sub.Name, Err: err}
		}
		if !clean {
			return ResolveResult{Name: sub.Name, Skipped: salterr.UncommittedChanges}
		}
	}

	if !fsutil.Exists(clonePath) {
		e.Logger.Info("cloning submodule", "name", sub.Name, "branch", sub.DefaultBranch)
		if err := e.Git.Clone(ctx, sub.URL, sub.DefaultBranch, clonePath, sub.Shallow); err != nil {
			return ResolveResult{Name: sub.Name, Err: err}
		}
		outcome = Resolved
	} else {
		if err := e.Git.Fetch(ctx, clonePath); err != nil {
			e.Logger.Warn("fetch failed, continuing with local state", "name", sub.Name, "error", err)
		}
		if err := e.Git.Checkout(ctx, clonePath, sub.DefaultBranch); err != nil {
			return ResolveResult{Name: sub.Name, Err: err}
		}
		if err := e.Git.Pull(ctx, clonePath, "origin", sub.DefaultBranch); err != nil {
			if salterr.IsKind(err, salterr.MergeConflict) {
				return ResolveResult{Name: sub.Name, Err: err}
			}
			e.Logger.Warn("pull failed, continuing with local state", "name", sub.Name, "error", err)
		}
	}

	if err := fsutil.ReplaceTree(clonePath, absPath); err != nil {
		return ResolveResult{Name: sub.Name, Err: salterr.Wrap(salterr.IOError, err, "copying hidden clone to "+sub.Path)}
	}

	nested := fsutil.Exists(filepath.Join(absPath, "salt.conf"))
	return ResolveResult{Name: sub.Name, Outcome: outcome, NestedDependency: nested}
}

func selectSubmodules(cfg *config.Config, name string) ([]*config.Submodule, error) {
	if name == "" {
		return cfg.Submodules, nil
	}
	sub := cfg.Find(name)
	if sub == nil {
		return nil, salterr.New(salterr.SubmoduleNotFound, name)
	}
	return []*config.Submodule{sub}, nil
}
