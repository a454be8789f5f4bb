package config

import (
	"fmt"
	"sort"
	"strings"
)

// Emit serializes cfg back into salt.conf's grammar. Branch mappings are
// sorted by pattern so that parse(Emit(cfg)) is deterministic and, for any
// cfg whose mappings are already sorted, exactly reproduces cfg (spec.md
// §8's round-trip property).
func Emit(cfg *Config) []byte {
	var b strings.Builder

	for i, s := range cfg.Submodules {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[submodule %s]\n", quote(s.Name))
		fmt.Fprintf(&b, "  path = %s\n", quote(s.Path))
		fmt.Fprintf(&b, "  url = %s\n", quote(s.URL))
		fmt.Fprintf(&b, "  default_branch = %s\n", quote(s.DefaultBranch))
		fmt.Fprintf(&b, "  shallow = %t\n", s.Shallow)
		if len(s.BranchMappings) > 0 {
			mappings := make([]BranchMapping, len(s.BranchMappings))
			copy(mappings, s.BranchMappings)
			sort.Slice(mappings, func(i, j int) bool {
				return mappings[i].Pattern < mappings[j].Pattern
			})

			b.WriteString("  branches = {\n")
			for _, m := range mappings {
				fmt.Fprintf(&b, "    %s -> %s\n", quote(m.Pattern), quote(m.Target))
			}
			b.WriteString("  }\n")
		}
	}

	return []byte(b.String())
}

// quote wraps s in double quotes if it contains whitespace, "#", or "->";
// otherwise it is emitted bare for readability. s is assumed not to
// contain a literal quote character, matching salt.conf's grammar, which
// defines no escape sequence for one.
func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t#") || strings.Contains(s, "->") {
		return `"` + s + `"`
	}
	return s
}
