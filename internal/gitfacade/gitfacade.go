// Package gitfacade wraps the git executable with typed operations and
// classifies its failures into salterr kinds. Salt is a coordinator over
// an external Git process (spec.md §1 Non-goals: no in-process Git
// implementation), so every operation here shells out.
package gitfacade

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/saltvcs/salt/internal/salterr"
)

// Suggested timeouts from spec.md §5. Zero means no deadline is imposed
// beyond whatever the caller's context already carries.
const (
	CloneTimeout    = 300 * time.Second
	PullPushTimeout = 120 * time.Second
)

// Client is the set of Git primitives the orchestrator needs.
type Client interface {
	Clone(ctx context.Context, url, branch, dest string, shallow bool) error
	Fetch(ctx context.Context, dir string) error
	Checkout(ctx context.Context, dir, branch string) error
	Pull(ctx context.Context, dir, remote, branch string) error
	Push(ctx context.Context, dir, remote, branch string) error
	CurrentBranch(ctx context.Context, dir string) (string, error)
	HeadCommit(ctx context.Context, dir string) (string, error)
	IsClean(ctx context.Context, dir string, pathspecs ...string) (bool, error)
	ModifiedFiles(ctx context.Context, dir string, pathspecs ...string) (int, error)
	AheadBehind(ctx context.Context, dir, localRef, remoteRef string) (ahead, behind int, err error)
	AddAll(ctx context.Context, dir string) error
	Commit(ctx context.Context, dir, message string) error
	RegisterPath(ctx context.Context, parentRepoRoot, path string) error
	RemoveCached(ctx context.Context, parentRepoRoot, path string) error
}

// ShellClient implements Client by invoking the git binary as a
// subprocess, per spec.md §1's "Git facade" design.
type ShellClient struct{}

// NewShellClient creates a git facade backed by the system git binary.
func NewShellClient() *ShellClient {
	return &ShellClient{}
}

// Clone clones url at branch into dest. A shallow clone uses
// --depth 1 --branch <branch> --single-branch; a full clone uses
// --branch <branch> only, per spec.md §4.5 `add` step 3.
func (c *ShellClient) Clone(ctx context.Context, url, branch, dest string, shallow bool) error {
	args := []string{"clone"}
	if shallow {
		args = append(args, "--depth", "1", "--branch", branch, "--single-branch")
	} else {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dest)

	if _, err := c.run(ctx, CloneTimeout, "", args...); err != nil {
		return salterr.Wrap(salterr.CloneFailed, err, fmt.Sprintf("clone %s", url))
	}
	return nil
}

// Fetch runs `git fetch origin` in dir.
func (c *ShellClient) Fetch(ctx context.Context, dir string) error {
	if _, err := c.run(ctx, PullPushTimeout, dir, "fetch", "origin"); err != nil {
		return salterr.Wrap(salterr.GitCommandFailed, err, "fetch origin")
	}
	return nil
}

// Checkout runs `git checkout <branch>` in dir.
func (c *ShellClient) Checkout(ctx context.Context, dir, branch string) error {
	if _, err := c.run(ctx, 0, dir, "checkout", branch); err != nil {
		return salterr.Wrap(salterr.CheckoutFailed, err, fmt.Sprintf("checkout %s", branch))
	}
	return nil
}

// Pull runs `git pull <remote> <branch>` in dir, classifying a merge
// conflict distinctly from other pull failures per spec.md §4.5.
func (c *ShellClient) Pull(ctx context.Context, dir, remote, branch string) error {
	out, err := c.run(ctx, PullPushTimeout, dir, "pull", remote, branch)
	if err != nil {
		if isMergeConflict(out) {
			return salterr.Wrap(salterr.MergeConflict, err, fmt.Sprintf("pull %s %s", remote, branch))
		}
		return salterr.Wrap(salterr.PullFailed, err, fmt.Sprintf("pull %s %s", remote, branch))
	}
	return nil
}

// Push runs `git push <remote> <branch>` in dir, classifying missing
// upstream and non-fast-forward rejections per spec.md §4.5 `push` step 7.
func (c *ShellClient) Push(ctx context.Context, dir, remote, branch string) error {
	out, err := c.run(ctx, PullPushTimeout, dir, "push", remote, branch)
	if err != nil {
		return salterr.Wrap(salterr.PushFailed, err, classifyPushFailure(out))
	}
	return nil
}

// CurrentBranch returns the branch currently checked out in dir.
func (c *ShellClient) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, 0, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", salterr.Wrap(salterr.GitCommandFailed, err, "rev-parse --abbrev-ref HEAD")
	}
	return strings.TrimSpace(out), nil
}

// HeadCommit returns the commit hash of HEAD in dir.
func (c *ShellClient) HeadCommit(ctx context.Context, dir string) (string, error) {
	out, err := c.run(ctx, 0, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", salterr.Wrap(salterr.GitCommandFailed, err, "rev-parse HEAD")
	}
	return strings.TrimSpace(out), nil
}

// IsClean reports whether `git status --porcelain` is empty for the given
// pathspecs (or the whole tree if none given) in dir.
func (c *ShellClient) IsClean(ctx context.Context, dir string, pathspecs ...string) (bool, error) {
	args := append([]string{"status", "--porcelain"}, pathspecs...)
	out, err := c.run(ctx, 0, dir, args...)
	if err != nil {
		return false, salterr.Wrap(salterr.GitCommandFailed, err, "status --porcelain")
	}
	return strings.TrimSpace(out) == "", nil
}

// ModifiedFiles counts the entries `git status --porcelain` reports for
// the given pathspecs (or the whole tree if none given) in dir, per
// spec.md §4.5 `status --verbose` step 2.
func (c *ShellClient) ModifiedFiles(ctx context.Context, dir string, pathspecs ...string) (int, error) {
	args := append([]string{"status", "--porcelain"}, pathspecs...)
	out, err := c.run(ctx, 0, dir, args...)
	if err != nil {
		return 0, salterr.Wrap(salterr.GitCommandFailed, err, "status --porcelain")
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return 0, nil
	}
	return len(strings.Split(trimmed, "\n")), nil
}

// AheadBehind returns how many commits localRef is ahead/behind remoteRef,
// using `git rev-list --left-right --count localRef...remoteRef`.
func (c *ShellClient) AheadBehind(ctx context.Context, dir, localRef, remoteRef string) (ahead, behind int, err error) {
	spec := fmt.Sprintf("%s...%s", localRef, remoteRef)
	out, runErr := c.run(ctx, 0, dir, "rev-list", "--left-right", "--count", spec)
	if runErr != nil {
		return 0, 0, salterr.Wrap(salterr.GitCommandFailed, runErr, "rev-list --left-right --count "+spec)
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, salterr.New(salterr.GitCommandFailed, "unexpected rev-list output: "+out)
	}
	ahead, err1 := strconv.Atoi(fields[0])
	behind, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, salterr.New(salterr.GitCommandFailed, "non-numeric rev-list output: "+out)
	}
	return ahead, behind, nil
}

// AddAll runs `git add .` in dir.
func (c *ShellClient) AddAll(ctx context.Context, dir string) error {
	if _, err := c.run(ctx, 0, dir, "add", "."); err != nil {
		return salterr.Wrap(salterr.GitCommandFailed, err, "add .")
	}
	return nil
}

// Commit runs `git commit -m <message>` in dir.
func (c *ShellClient) Commit(ctx context.Context, dir, message string) error {
	if _, err := c.run(ctx, 0, dir, "commit", "-m", message); err != nil {
		return salterr.Wrap(salterr.GitCommandFailed, err, "commit")
	}
	return nil
}

// RegisterPath stages path with the parent repository's Git index. This
// is non-fatal on failure (spec.md §4.5 `add` step 5): Salt may be used
// outside a Git parent, or the parent repo may not exist yet.
func (c *ShellClient) RegisterPath(ctx context.Context, parentRepoRoot, path string) error {
	if _, err := c.run(ctx, 0, parentRepoRoot, "add", path); err != nil {
		return salterr.Wrap(salterr.GitCommandFailed, err, "add "+path)
	}
	return nil
}

// RemoveCached runs `git rm -r --cached <path>` against the parent
// repository. Non-fatal if path is untracked (spec.md §4.5 `remove`
// step 3).
func (c *ShellClient) RemoveCached(ctx context.Context, parentRepoRoot, path string) error {
	if _, err := c.run(ctx, 0, parentRepoRoot, "rm", "-r", "--cached", path); err != nil {
		return salterr.Wrap(salterr.GitCommandFailed, err, "rm -r --cached "+path)
	}
	return nil
}

// run executes git with args in dir (if non-empty, via `-C dir`), honoring
// a timeout when one is given. It always returns combined stdout+stderr
// so callers can classify failures from the output.
func (c *ShellClient) run(ctx context.Context, timeout time.Duration, dir string, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}

	cmd := exec.CommandContext(ctx, "git", full...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	out := buf.String()
	if ctx.Err() == context.DeadlineExceeded {
		return out, salterr.Wrap(salterr.Timeout, ctx.Err(), strings.Join(full, " "))
	}
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(out))
	}
	return out, nil
}

func isMergeConflict(output string) bool {
	return strings.Contains(output, "CONFLICT") || strings.Contains(output, "Automatic merge failed")
}

func classifyPushFailure(output string) string {
	switch {
	case strings.Contains(output, "has no upstream branch"):
		return "missing upstream"
	case strings.Contains(output, "non-fast-forward") || strings.Contains(output, "fetch first"):
		return "non-fast-forward rejection"
	default:
		return "push failed"
	}
}
