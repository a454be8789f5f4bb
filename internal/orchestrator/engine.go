// Package orchestrator implements the seven command pipelines — add,
// resolve, sync, pull, push, remove, status — each coordinating the
// hidden clone, the parent tree, and the persistent state in the order
// spec.md §4.5 specifies.
package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/gitfacade"
	"github.com/saltvcs/salt/internal/hash"
	"github.com/saltvcs/salt/internal/state"
)

// Engine holds the collaborators every pipeline needs: the parent repo
// root, a Git facade, a logger, and (for tests) an injectable clock.
type Engine struct {
	RepoRoot string
	Git      gitfacade.Client
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewEngine creates an Engine rooted at repoRoot.
func NewEngine(repoRoot string, git gitfacade.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Engine{
		RepoRoot: repoRoot,
		Git:      git,
		Logger:   logger,
		Now:      time.Now,
	}
}

// loadConfig loads salt.conf from the engine's repo root.
func (e *Engine) loadConfig() (*config.Config, error) {
	return config.Load(e.RepoRoot)
}

// saveConfig saves cfg to salt.conf under the engine's repo root.
func (e *Engine) saveConfig(cfg *config.Config) error {
	return config.Save(e.RepoRoot, cfg)
}

// loadState loads .salt/state.json.
func (e *Engine) loadState() (*state.SyncState, error) {
	return state.Load(config.StateFilePath(e.RepoRoot))
}

// saveState persists .salt/state.json atomically.
func (e *Engine) saveState(s *state.SyncState) error {
	return state.Save(config.StateFilePath(e.RepoRoot), s)
}

// absPath resolves a submodule-relative path against the parent repo
// root.
func (e *Engine) absPath(rel string) string {
	return filepath.Join(e.RepoRoot, rel)
}

// parentBranch returns the parent repository's current branch, or "" if
// the parent tree is not itself a Git repository — Salt may be used
// outside a Git parent (spec.md §4.5 `add` step 5), in which case branch
// resolution simply falls through to each submodule's default_branch.
func (e *Engine) parentBranch(ctx context.Context) string {
	if !fsutil.Exists(filepath.Join(e.RepoRoot, ".git")) {
		return ""
	}
	branch, err := e.Git.CurrentBranch(ctx, e.RepoRoot)
	if err != nil {
		e.Logger.Warn("failed to determine parent branch", "error", err)
		return ""
	}
	return branch
}

// hashPath computes the content hash of a submodule's flat copy.
func (e *Engine) hashPath(rel string) (string, error) {
	return hash.Tree(e.absPath(rel))
}

// ensureSaltDir creates .salt/ under the repo root if it does not exist.
func (e *Engine) ensureSaltDir() error {
	return os.MkdirAll(config.SaltDir(e.RepoRoot), 0755)
}
