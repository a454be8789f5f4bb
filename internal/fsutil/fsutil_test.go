package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyTree_ExcludesDotGit(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	mustWrite(t, filepath.Join(src, "a.txt"), "hello\n")
	mustWrite(t, filepath.Join(src, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWrite(t, filepath.Join(src, "sub", "b.txt"), "world\n")

	if err := CopyTree(src, dst); err != nil {
		t.Fatal(err)
	}

	if !Exists(filepath.Join(dst, "a.txt")) {
		t.Error("expected a.txt to be copied")
	}
	if !Exists(filepath.Join(dst, "sub", "b.txt")) {
		t.Error("expected sub/b.txt to be copied")
	}
	if Exists(filepath.Join(dst, ".git")) {
		t.Error("expected .git to be excluded")
	}
}

func TestReplaceTree_RemovesDeletedFiles(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	mustWrite(t, filepath.Join(dst, "stale.txt"), "old\n")
	mustWrite(t, filepath.Join(src, "fresh.txt"), "new\n")

	if err := ReplaceTree(src, dst); err != nil {
		t.Fatal(err)
	}

	if Exists(filepath.Join(dst, "stale.txt")) {
		t.Error("expected stale.txt to be removed")
	}
	if !Exists(filepath.Join(dst, "fresh.txt")) {
		t.Error("expected fresh.txt to be present")
	}
}

func TestReplaceTree_PreservesDestDotGit(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	mustWrite(t, filepath.Join(dst, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWrite(t, filepath.Join(src, "file.txt"), "content\n")

	if err := ReplaceTree(src, dst); err != nil {
		t.Fatal(err)
	}

	if !Exists(filepath.Join(dst, ".git", "HEAD")) {
		t.Error("expected dst's .git to survive ReplaceTree")
	}
}

func TestWriteFileAtomic_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := WriteFileAtomic(path, []byte(`{"version":"1.0"}`), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Fatalf("expected only state.json in %s, got %v", dir, entries)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
