package orchestrator

import (
	"context"

	"github.com/saltvcs/salt/internal/branchmap"
	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/state"
	"github.com/saltvcs/salt/internal/syncstatus"
)

// StatusOptions configures the `status` pipeline (spec.md §4.5 `status`).
type StatusOptions struct {
	Name    string // empty means all submodules
	Verbose bool
}

// SubmoduleStatus is one row of a status report, matching the
// `status --json` schema (spec.md §6).
type SubmoduleStatus struct {
	Name           string            `json:"name"`
	Path           string            `json:"path"`
	CurrentBranch  string            `json:"current_branch"`
	ExpectedBranch string            `json:"expected_branch"`
	Status         syncstatus.Status `json:"status"`
	ModifiedFiles  int               `json:"modified_files"`
	Ahead          int               `json:"ahead"`
	Behind         int               `json:"behind"`
	Exists         bool              `json:"exists"`
}

// StatusReport is the full `status` output, matching the JSON document's
// top level (spec.md §6).
type StatusReport struct {
	Version      string            `json:"version"`
	ParentBranch string            `json:"parent_branch"`
	Submodules   []SubmoduleStatus `json:"submodules"`
}

// Status computes the sync state of the named submodule, or all of them,
// without mutating any persisted state.
func (e *Engine) Status(ctx context.Context, opts StatusOptions) (*StatusReport, error) {
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

	report := &StatusReport{Version: "1.0", ParentBranch: parentBranch, Submodules: []SubmoduleStatus{}}
	for _, sub := range subs {
		report.Submodules = append(report.Submodules, e.statusOne(ctx, sub, parentBranch, st, opts.Verbose))
	}
	return report, nil
}

// statusOne implements spec.md §4.5 `status` steps 1-2 for a single
// submodule. Every Git query here is best-effort: a status report must
// never fail the whole command because one submodule's hidden clone is
// unreachable, so errors default their field to the zero value.
func (e *Engine) statusOne(ctx context.Context, sub *config.Submodule, parentBranch string, st *state.SyncState, verbose bool) SubmoduleStatus {
	expected := branchmap.Resolve(sub, parentBranch)
	clonePath := config.HiddenClonePath(e.RepoRoot, sub.Name)
	absPath := e.absPath(sub.Path)

	row := SubmoduleStatus{
		Name:           sub.Name,
		Path:           sub.Path,
		ExpectedBranch: expected,
		Exists:         fsutil.Exists(clonePath),
	}

	var obs syncstatus.Observation
	if row.Exists {
		if branch, err := e.Git.CurrentBranch(ctx, clonePath); err == nil {
			row.CurrentBranch = branch
		}
		if head, err := e.Git.HeadCommit(ctx, clonePath); err == nil {
			obs.HiddenCloneHead = head
		}
	}
	if fsutil.Exists(absPath) {
		if hash, err := e.hashPath(sub.Path); err == nil {
			obs.CurrentHash = hash
		}
	}

	rec, hasState := st.Get(sub.Name)
	row.Status = syncstatus.Classify(sub, rec, hasState, parentBranch, obs)

	if verbose {
		if n, err := e.Git.ModifiedFiles(ctx, e.RepoRoot, sub.Path); err == nil {
			row.ModifiedFiles = n
		}
		if row.Exists {
			_ = e.Git.Fetch(ctx, clonePath)
			if ahead, behind, err := e.Git.AheadBehind(ctx, clonePath, "HEAD", "origin/"+expected); err == nil {
				row.Ahead = ahead
				row.Behind = behind
			}
		}
		if row.Status == syncstatus.Synced && row.Ahead > 0 {
			row.Status = syncstatus.Ahead
		}
	}

	return row
}
