package orchestrator

import (
	"context"
	"path"
	"strings"

	"github.com/saltvcs/salt/internal/config"
	"github.com/saltvcs/salt/internal/fsutil"
	"github.com/saltvcs/salt/internal/salterr"
)

// AddOptions configures the `add` pipeline (spec.md §4.5 `add`).
type AddOptions struct {
	URL       string
	Path      string // optional; defaults to the derived name
	Name      string // optional; derived from URL if empty
	Branch    string // defaults to "main"
	Shallow   bool
	NoShallow bool // explicit --no-shallow overrides the true default
}

// AddResult reports the submodule `add` registered.
type AddResult struct {
	Submodule *config.Submodule
}

// Add clones a new submodule, flattens it into the parent tree, and
// registers it in salt.conf and state.json.
func (e *Engine) Add(ctx context.Context, opts AddOptions) (*AddResult, error) {
	name := opts.Name
	if name == "" {
		name = deriveName(opts.URL)
	}
	relPath := opts.Path
	if relPath == "" {
		relPath = name
	}
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}
	shallow := true
	if opts.NoShallow {
		shallow = false
	} else if opts.Shallow {
		shallow = true
	}

	cfg, err := e.loadConfig()
	if err != nil && !salterr.IsKind(err, salterr.ConfigNotFound) {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	if cfg.Find(name) != nil {
		return nil, salterr.New(salterr.SubmoduleAlreadyExists, name)
	}

	absPath := e.absPath(relPath)
	if fsutil.Exists(absPath) {
		return nil, salterr.New(salterr.PathAlreadyExists, relPath)
	}

	clonePath := config.HiddenClonePath(e.RepoRoot, name)
	if fsutil.Exists(clonePath) {
		return nil, salterr.New(salterr.SubmoduleAlreadyExists, name)
	}

	if err := e.ensureSaltDir(); err != nil {
		return nil, salterr.Wrap(salterr.IOError, err, "creating .salt")
	}

	e.Logger.Info("cloning submodule", "name", name, "url", opts.URL, "branch", branch, "shallow", shallow)
	if err := e.Git.Clone(ctx, opts.URL, branch, clonePath, shallow); err != nil {
		return nil, err
	}

	if err := fsutil.CopyTree(clonePath, absPath); err != nil {
		return nil, salterr.Wrap(salterr.IOError, err, "copying hidden clone to "+relPath)
	}

	// Registering the path with the parent Git is non-fatal: Salt may be
	// used outside a Git parent repository.
	if err := e.Git.RegisterPath(ctx, e.RepoRoot, relPath); err != nil {
		e.Logger.Warn("failed to register path with parent git (continuing)", "path", relPath, "error", err)
	}

	sub := &config.Submodule{
		Name:          name,
		Path:          relPath,
		URL:           opts.URL,
		DefaultBranch: branch,
		Shallow:       shallow,
	}
	cfg.Add(sub)
	if err := e.saveConfig(cfg); err != nil {
		return nil, err
	}

	headCommit, err := e.Git.HeadCommit(ctx, clonePath)
	if err != nil {
		return nil, err
	}
	parentHash, err := e.hashPath(relPath)
	if err != nil {
		return nil, salterr.Wrap(salterr.IOError, err, "hashing "+relPath)
	}

	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	st.Initialize(name, headCommit, parentHash, branch, e.Now())
	if err := e.saveState(st); err != nil {
		return nil, err
	}

	return &AddResult{Submodule: sub}, nil
}

// deriveName extracts a submodule name from a Git URL, e.g.
// "https://host/org/repo.git" -> "repo".
func deriveName(url string) string {
	trimmed := strings.TrimSuffix(url, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	base := path.Base(trimmed)
	if idx := strings.LastIndex(base, ":"); idx >= 0 {
		base = base[idx+1:]
	}
	if base == "" || base == "." || base == "/" {
		return "submodule"
	}
	return base
}
