package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/saltvcs/salt/internal/salterr"
)

func TestParse_Basic(t *testing.T) {
	data := []byte(`
# a leading comment
[submodule "lib"]
  path = vendor/lib
  url = "git@github.com:acme/lib.git"
  default_branch = main
  branches = {
    main -> main
    release/* -> prod/*
  }
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Submodules) != 1 {
		t.Fatalf("expected 1 submodule, got %d", len(cfg.Submodules))
	}

	s := cfg.Submodules[0]
	if s.Name != "lib" {
		t.Errorf("expected name lib, got %s", s.Name)
	}
	if s.Path != "vendor/lib" {
		t.Errorf("expected path vendor/lib, got %s", s.Path)
	}
	if s.URL != "git@github.com:acme/lib.git" {
		t.Errorf("expected stripped URL, got %q", s.URL)
	}
	if s.DefaultBranch != "main" {
		t.Errorf("expected default_branch main, got %s", s.DefaultBranch)
	}
	if len(s.BranchMappings) != 2 {
		t.Fatalf("expected 2 branch mappings, got %d", len(s.BranchMappings))
	}
	if s.BranchMappings[0] != (BranchMapping{Pattern: "main", Target: "main"}) {
		t.Errorf("unexpected mapping[0]: %+v", s.BranchMappings[0])
	}
	if s.BranchMappings[1] != (BranchMapping{Pattern: "release/*", Target: "prod/*"}) {
		t.Errorf("unexpected mapping[1]: %+v", s.BranchMappings[1])
	}
}

func TestParse_InlineCommentRespectsQuotes(t *testing.T) {
	data := []byte(`
[submodule "lib"]
  path = vendor/lib
  url = "https://example.com/lib.git#fragment"
  default_branch = main # trailing comment
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	s := cfg.Submodules[0]
	if s.URL != "https://example.com/lib.git#fragment" {
		t.Errorf("expected quoted # to survive, got %q", s.URL)
	}
	if s.DefaultBranch != "main" {
		t.Errorf("expected trailing comment stripped, got %q", s.DefaultBranch)
	}
}

func TestParse_MissingRequiredField(t *testing.T) {
	data := []byte(`
[submodule "lib"]
  path = vendor/lib
`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for missing url/default_branch")
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := &Config{
		Submodules: []*Submodule{
			{
				Name:          "lib",
				Path:          "vendor/lib",
				URL:           "git@github.com:acme/lib.git",
				DefaultBranch: "main",
				Shallow:       true,
				BranchMappings: []BranchMapping{
					{Pattern: "feature/*", Target: "feature/*"},
					{Pattern: "main", Target: "main"},
				},
			},
			{
				Name:          "tool",
				Path:          "tools/tool",
				URL:           "https://example.com/tool.git",
				DefaultBranch: "develop",
			},
		},
	}

	emitted := Emit(cfg)
	parsed, err := Parse(emitted)
	if err != nil {
		t.Fatalf("Parse(Emit(cfg)) failed: %v\n%s", err, emitted)
	}

	if !reflect.DeepEqual(parsed, cfg) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", cfg, parsed)
	}
}

func TestLoad_MissingFileIsConfigNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if !salterr.IsKind(err, salterr.ConfigNotFound) {
		t.Fatalf("expected ConfigNotFound for missing salt.conf, got %v", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Submodules: []*Submodule{
		{Name: "lib", Path: "lib", URL: "https://example.com/lib.git", DefaultBranch: "main"},
	}}

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("expected salt.conf to exist after Save")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Submodules) != 1 || loaded.Submodules[0].Name != "lib" {
		t.Fatalf("unexpected loaded config: %+v", loaded)
	}

	contents, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) == 0 {
		t.Fatal("expected non-empty salt.conf")
	}
}

func TestConfig_AddFindRemove(t *testing.T) {
	cfg := &Config{}
	cfg.Add(&Submodule{Name: "a"})
	cfg.Add(&Submodule{Name: "b"})

	if cfg.Find("a") == nil {
		t.Fatal("expected to find a")
	}
	if cfg.Find("missing") != nil {
		t.Fatal("expected nil for missing submodule")
	}
	if !cfg.Remove("a") {
		t.Fatal("expected Remove(a) to report true")
	}
	if cfg.Remove("a") {
		t.Fatal("expected second Remove(a) to report false")
	}
	if len(cfg.Submodules) != 1 || cfg.Submodules[0].Name != "b" {
		t.Fatalf("unexpected submodules after remove: %+v", cfg.Submodules)
	}
}
