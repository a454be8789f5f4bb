// Package syncstatus implements the pure classifier that turns a
// submodule's configuration, persisted state, and current observations
// into one of the six SyncStatus values (spec.md §4.4).
package syncstatus

import (
	"github.com/saltvcs/salt/internal/branchmap"
	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/state"
)

// Status is one of the six sync states a submodule can be in.
type Status string

const (
	Synced   Status = "SYNCED"
	Dirty    Status = "DIRTY"
	Behind   Status = "BEHIND"
	Ahead    Status = "AHEAD"
	Diverged Status = "DIVERGED"
	Stale    Status = "STALE"
)

// Observation is the set of live facts Classify needs beyond config and
// persisted state: the current content hash of the flat copy and the
// hidden clone's current HEAD commit. Computing these requires hashing a
// directory tree and querying Git, so the orchestrator gathers them and
// hands them to Classify, keeping Classify itself a pure function.
type Observation struct {
	CurrentHash     string
	HiddenCloneHead string
}

// Classify computes the SyncStatus for sub given its persisted state (if
// any) and a live Observation, per spec.md §4.4's four-step algorithm.
// If hasState is false, the submodule has never been synced and the
// result is always Behind, regardless of obs.
//
// Classify never returns Ahead: that state depends on a live ahead/behind
// comparison against the remote, which only the verbose `status` path
// gathers. The orchestrator elevates Synced to Ahead itself once that
// comparison is in hand.
func Classify(sub *config.Submodule, rec state.SubmoduleState, hasState bool, parentBranch string, obs Observation) Status {
	if !hasState {
		return Behind
	}

	expected := branchmap.Resolve(sub, parentBranch)
	if rec.SourceBranch != expected {
		return Stale
	}

	parentChanged := obs.CurrentHash != rec.ParentFilesHash
	sourceChanged := obs.HiddenCloneHead != rec.LastSyncCommit

	switch {
	case parentChanged && sourceChanged:
		return Diverged
	case parentChanged:
		return Dirty
	case sourceChanged:
		return Behind
	default:
		return Synced
	}
}
