package gitfacade

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T, dir, branch string) {
	t.Helper()
	cmds := [][]string{
		{"git", "init", "-b", branch, dir},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		if out, err := exec.Command(args[0], args[1:]...).CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"git", "-C", dir, "add", name},
		{"git", "-C", dir, "commit", "-m", msg},
	} {
		if out, err := exec.Command(args[0], args[1:]...).CombinedOutput(); err != nil {
			t.Fatalf("%v: %s", err, out)
		}
	}
}

func TestClone_ShallowAndFull(t *testing.T) {
	ctx := context.Background()
	remote := t.TempDir()
	initRepo(t, remote, "main")
	commitFile(t, remote, "a.txt", "v1\n", "initial")

	client := NewShellClient()

	shallowDest := filepath.Join(t.TempDir(), "shallow")
	if err := client.Clone(ctx, remote, "main", shallowDest, true); err != nil {
		t.Fatalf("shallow clone failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(shallowDest, "a.txt")); err != nil {
		t.Fatal("expected a.txt in shallow clone")
	}

	fullDest := filepath.Join(t.TempDir(), "full")
	if err := client.Clone(ctx, remote, "main", fullDest, false); err != nil {
		t.Fatalf("full clone failed: %v", err)
	}
}

func TestFetchCheckoutPull_PicksUpNewCommit(t *testing.T) {
	ctx := context.Background()
	remote := t.TempDir()
	initRepo(t, remote, "main")
	commitFile(t, remote, "a.txt", "v1\n", "initial")

	client := NewShellClient()
	dest := filepath.Join(t.TempDir(), "clone")
	if err := client.Clone(ctx, remote, "main", dest, false); err != nil {
		t.Fatalf("clone failed: %v", err)
	}

	commit1, err := client.HeadCommit(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}

	commitFile(t, remote, "a.txt", "v2\n", "update")

	if err := client.Fetch(ctx, dest); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if err := client.Pull(ctx, dest, "origin", "main"); err != nil {
		t.Fatalf("pull failed: %v", err)
	}

	commit2, err := client.HeadCommit(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}
	if commit1 == commit2 {
		t.Fatal("expected a new commit after pull")
	}
}

func TestIsClean(t *testing.T) {
	ctx := context.Background()
	remote := t.TempDir()
	initRepo(t, remote, "main")
	commitFile(t, remote, "a.txt", "v1\n", "initial")

	client := NewShellClient()
	dest := filepath.Join(t.TempDir(), "clone")
	if err := client.Clone(ctx, remote, "main", dest, false); err != nil {
		t.Fatal(err)
	}

	clean, err := client.IsClean(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}
	if !clean {
		t.Fatal("expected clean working tree right after clone")
	}

	if err := os.WriteFile(filepath.Join(dest, "a.txt"), []byte("dirty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	clean, err = client.IsClean(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}
	if clean {
		t.Fatal("expected dirty working tree after edit")
	}
}

func TestCurrentBranch(t *testing.T) {
	ctx := context.Background()
	remote := t.TempDir()
	initRepo(t, remote, "develop")
	commitFile(t, remote, "a.txt", "v1\n", "initial")

	client := NewShellClient()
	dest := filepath.Join(t.TempDir(), "clone")
	if err := client.Clone(ctx, remote, "develop", dest, false); err != nil {
		t.Fatal(err)
	}

	branch, err := client.CurrentBranch(ctx, dest)
	if err != nil {
		t.Fatal(err)
	}
	if branch != "develop" {
		t.Errorf("expected develop, got %q", branch)
	}
}

func TestAheadBehind(t *testing.T) {
	ctx := context.Background()
	remote := t.TempDir()
	initRepo(t, remote, "main")
	commitFile(t, remote, "a.txt", "v1\n", "initial")

	client := NewShellClient()
	dest := filepath.Join(t.TempDir(), "clone")
	if err := client.Clone(ctx, remote, "main", dest, false); err != nil {
		t.Fatal(err)
	}

	commitFile(t, remote, "a.txt", "v2\n", "second")
	commitFile(t, remote, "a.txt", "v3\n", "third")
	if err := client.Fetch(ctx, dest); err != nil {
		t.Fatal(err)
	}

	ahead, behind, err := client.AheadBehind(ctx, dest, "HEAD", "origin/main")
	if err != nil {
		t.Fatal(err)
	}
	if ahead != 0 {
		t.Errorf("expected 0 ahead, got %d", ahead)
	}
	if behind != 2 {
		t.Errorf("expected 2 behind, got %d", behind)
	}
}
