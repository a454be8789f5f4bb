// Package state implements the persistent record of each submodule's last
// synced commit, last pushed commit, content hash, and source branch —
// spec.md §3's SubmoduleState and §4.3's state store.
package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
)

// Version is the current SyncState schema version.
const Version = "1.0"

// SubmoduleState is the persisted record for one submodule.
type SubmoduleState struct {
	LastSyncCommit  string     `json:"last_sync_commit"`
	LastPushCommit  string     `json:"last_push_commit"`
	ParentFilesHash string     `json:"parent_files_hash"`
	SourceBranch    string     `json:"source_branch"`
	LastSyncTime    time.Time  `json:"last_sync_time"`
	LastPushTime    *time.Time `json:"last_push_time,omitempty"`
}

// SyncState is the full contents of .salt/state.json.
type SyncState struct {
	SchemaVersion string                    `json:"version"`
	Submodules    map[string]SubmoduleState `json:"submodules"`
}

// New returns an empty SyncState at the current schema version.
func New() *SyncState {
	return &SyncState{SchemaVersion: Version, Submodules: make(map[string]SubmoduleState)}
}

// Load reads path. A missing file is not an error: it returns an empty
// state, matching "missing state ≡ never synced" (spec.md §3).
func Load(path string) (*SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, salterr.Wrap(salterr.IOError, err, path)
	}

	var s SyncState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, salterr.Wrap(salterr.IOError, err, "parsing "+path)
	}
	if s.Submodules == nil {
		s.Submodules = make(map[string]SubmoduleState)
	}
	if s.SchemaVersion == "" {
		s.SchemaVersion = Version
	}
	return &s, nil
}

// Save writes s to path via write-temp-then-rename, so a crash mid-write
// leaves the prior state intact (spec.md §4.3).
func Save(path string, s *SyncState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return salterr.Wrap(salterr.IOError, err, "marshaling state")
	}
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return salterr.Wrap(salterr.IOError, err, path)
	}
	return nil
}

// Get returns the record for name and whether it exists.
func (s *SyncState) Get(name string) (SubmoduleState, bool) {
	rec, ok := s.Submodules[name]
	return rec, ok
}

// Remove deletes the record for name.
func (s *SyncState) Remove(name string) {
	delete(s.Submodules, name)
}

// Initialize sets the record for name per the `add` operation: both commit
// fields start at headCommit, parent_files_hash is the freshly computed
// hash of the flat copy, source_branch is the initial branch, and
// last_push_time is unset.
func (s *SyncState) Initialize(name, headCommit, parentFilesHash, sourceBranch string, now time.Time) {
	s.Submodules[name] = SubmoduleState{
		LastSyncCommit:  headCommit,
		LastPushCommit:  headCommit,
		ParentFilesHash: parentFilesHash,
		SourceBranch:    sourceBranch,
		LastSyncTime:    now,
	}
}

// UpdateAfterSync refreshes the fields the `sync`/`pull`/`resolve`
// operations own, leaving last_push_commit and last_push_time untouched.
func (s *SyncState) UpdateAfterSync(name, syncCommit, parentFilesHash, sourceBranch string, now time.Time) {
	rec := s.Submodules[name]
	rec.LastSyncCommit = syncCommit
	rec.ParentFilesHash = parentFilesHash
	rec.SourceBranch = sourceBranch
	rec.LastSyncTime = now
	s.Submodules[name] = rec
}

// UpdateAfterPush refreshes the fields the `push` operation owns, leaving
// last_sync_commit, source_branch, and last_sync_time untouched.
func (s *SyncState) UpdateAfterPush(name, pushCommit, parentFilesHash string, now time.Time) {
	rec := s.Submodules[name]
	rec.LastPushCommit = pushCommit
	rec.ParentFilesHash = parentFilesHash
	t := now
	rec.LastPushTime = &t
	s.Submodules[name] = rec
}
