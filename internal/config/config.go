package config

import (
	"os"
	"path/filepath"

	"github.com/saltvcs/salt/internal/salterr"
)

// FileName is the name salt.conf is always stored under in the parent
// repository's root.
const FileName = "salt.conf"

// Load reads and parses salt.conf from dir. A missing file is reported as
// salterr.ConfigNotFound, distinct from a malformed one
// (salterr.ConfigParseError), so callers like `add`/`init` can create it
// on first use while other commands fail fast.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, salterr.Wrap(salterr.ConfigNotFound, err, path)
		}
		return nil, salterr.Wrap(salterr.IOError, err, path)
	}
	return Parse(data)
}

// Save serializes cfg and writes it to salt.conf under dir.
func Save(dir string, cfg *Config) error {
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, Emit(cfg), 0644); err != nil {
		return salterr.Wrap(salterr.IOError, err, path)
	}
	return nil
}

// Exists reports whether salt.conf is present under dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// SaltDir returns the path to the .salt directory under the parent repo
// root.
func SaltDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".salt")
}

// StateFilePath returns the path to .salt/state.json under the parent
// repo root.
func StateFilePath(repoRoot string) string {
	return filepath.Join(SaltDir(repoRoot), "state.json")
}

// HiddenClonePath returns the path to a submodule's hidden clone under
// .salt/repos/<name>.
func HiddenClonePath(repoRoot, name string) string {
	return filepath.Join(SaltDir(repoRoot), "repos", name)
}

// ReposDir returns the path to .salt/repos under the parent repo root.
func ReposDir(repoRoot string) string {
	return filepath.Join(SaltDir(repoRoot), "repos")
}
