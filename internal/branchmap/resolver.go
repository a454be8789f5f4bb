// Package branchmap implements the pure pattern-match function from a
// parent repository's current branch to the branch a submodule's hidden
// clone should have checked out.
package branchmap

import (
	"strings"

	"github.com/saltvcs/salt/internal/config"
)

// Resolve computes the target branch for submodule when the parent
// repository is on parentBranch, per spec.md §4.1's three-step priority:
// exact match, then first matching wildcard rule (in the submodule's
// BranchMappings order), then the submodule's default branch.
//
// The result is always an owned string (spec.md §9's "Pattern expansion
// allocation" note); there is no borrowed/owned distinction here.
func Resolve(s *config.Submodule, parentBranch string) string {
	for _, m := range s.BranchMappings {
		if !strings.Contains(m.Pattern, "*") && m.Pattern == parentBranch {
			return m.Target
		}
	}

	for _, m := range s.BranchMappings {
		prefix, suffix, ok := split(m.Pattern)
		if !ok {
			continue
		}
		capture, matched := match(prefix, suffix, parentBranch)
		if !matched {
			continue
		}
		if strings.Contains(m.Target, "*") {
			return strings.Replace(m.Target, "*", capture, 1)
		}
		return m.Target
	}

	return s.DefaultBranch
}

// split breaks a pattern containing exactly one "*" into its prefix and
// suffix. ok is false if pattern has no wildcard (the exact-match case
// handles those) or more than one.
func split(pattern string) (prefix, suffix string, ok bool) {
	idx := strings.Index(pattern, "*")
	if idx < 0 {
		return "", "", false
	}
	if strings.Index(pattern[idx+1:], "*") >= 0 {
		return "", "", false
	}
	return pattern[:idx], pattern[idx+1:], true
}

// match tests whether branch starts with prefix and ends with suffix,
// non-overlapping, and if so returns the substring captured by the "*".
func match(prefix, suffix, branch string) (capture string, ok bool) {
	if len(prefix)+len(suffix) > len(branch) {
		return "", false
	}
	if !strings.HasPrefix(branch, prefix) {
		return "", false
	}
	if !strings.HasSuffix(branch, suffix) {
		return "", false
	}
	return branch[len(prefix) : len(branch)-len(suffix)], true
}
