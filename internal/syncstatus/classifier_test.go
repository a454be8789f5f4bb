package syncstatus

import (
	"testing"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/state"
)

func baseSub() *config.Submodule {
	return &config.Submodule{
		Name:          "lib",
		DefaultBranch: "main",
		BranchMappings: []config.BranchMapping{
			{Pattern: "main", Target: "main"},
			{Pattern: "dev", Target: "develop"},
		},
	}
}

func TestClassify_NoStateIsBehind(t *testing.T) {
	sub := baseSub()
	got := Classify(sub, state.SubmoduleState{}, false, "main", Observation{})
	if got != Behind {
		t.Errorf("expected Behind, got %s", got)
	}
}

func TestClassify_Synced(t *testing.T) {
	sub := baseSub()
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	got := Classify(sub, rec, true, "main", Observation{CurrentHash: "h1", HiddenCloneHead: "c1"})
	if got != Synced {
		t.Errorf("expected Synced, got %s", got)
	}
}

func TestClassify_Dirty(t *testing.T) {
	sub := baseSub()
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	got := Classify(sub, rec, true, "main", Observation{CurrentHash: "h2", HiddenCloneHead: "c1"})
	if got != Dirty {
		t.Errorf("expected Dirty, got %s", got)
	}
}

func TestClassify_Behind(t *testing.T) {
	sub := baseSub()
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	got := Classify(sub, rec, true, "main", Observation{CurrentHash: "h1", HiddenCloneHead: "c2"})
	if got != Behind {
		t.Errorf("expected Behind, got %s", got)
	}
}

func TestClassify_Diverged(t *testing.T) {
	sub := baseSub()
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	got := Classify(sub, rec, true, "main", Observation{CurrentHash: "h2", HiddenCloneHead: "c2"})
	if got != Diverged {
		t.Errorf("expected Diverged, got %s", got)
	}
}

func TestClassify_StaleDominatesOtherChanges(t *testing.T) {
	sub := baseSub()
	// Recorded source_branch "main" but the resolver now expects "develop"
	// (parent switched to "dev"). Stale must win even though hash/commit
	// still look synced.
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	got := Classify(sub, rec, true, "dev", Observation{CurrentHash: "h1", HiddenCloneHead: "c1"})
	if got != Stale {
		t.Errorf("expected Stale, got %s", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	sub := baseSub()
	rec := state.SubmoduleState{SourceBranch: "main", ParentFilesHash: "h1", LastSyncCommit: "c1"}
	obs := Observation{CurrentHash: "h2", HiddenCloneHead: "c1"}
	first := Classify(sub, rec, true, "main", obs)
	second := Classify(sub, rec, true, "main", obs)
	if first != second {
		t.Fatalf("expected deterministic result, got %s then %s", first, second)
	}
}
