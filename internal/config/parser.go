package config

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/saltvcs/salt/internal/salterr"
)

// Parse reads salt.conf's INI-like grammar (spec.md §6) into a *Config.
// Blank lines and "#"-prefixed lines are comments; an inline "#" starts a
// comment unless it appears inside a quoted string. Quoted values have
// their surrounding matched single or double quotes stripped.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var current *Submodule
	inBranches := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := stripComment(scanner.Text())
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case inBranches:
			if line == "}" {
				inBranches = false
				continue
			}
			pattern, target, err := parseMappingLine(line)
			if err != nil {
				return nil, salterr.Wrapf(salterr.ConfigParseError, err, "line %d", lineNo)
			}
			current.BranchMappings = append(current.BranchMappings, BranchMapping{
				Pattern: pattern,
				Target:  target,
			})

		case strings.HasPrefix(line, "[submodule"):
			name, err := parseSectionHeader(line)
			if err != nil {
				return nil, salterr.Wrapf(salterr.ConfigParseError, err, "line %d", lineNo)
			}
			current = &Submodule{Name: name, Shallow: true}
			cfg.Submodules = append(cfg.Submodules, current)

		default:
			if current == nil {
				return nil, salterr.New(salterr.ConfigParseError,
					fmt.Sprintf("line %d: entry outside of a [submodule \"...\"] section", lineNo))
			}
			key, value, isBlockOpen, err := parseKeyValue(line)
			if err != nil {
				return nil, salterr.Wrapf(salterr.ConfigParseError, err, "line %d", lineNo)
			}
			if isBlockOpen {
				if key != "branches" {
					return nil, salterr.New(salterr.ConfigParseError,
						fmt.Sprintf("line %d: unexpected block for key %q", lineNo, key))
				}
				inBranches = true
				continue
			}
			if err := assign(current, key, value); err != nil {
				return nil, salterr.Wrapf(salterr.ConfigParseError, err, "line %d", lineNo)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, salterr.Wrap(salterr.ConfigParseError, err, "reading salt.conf")
	}
	if inBranches {
		return nil, salterr.New(salterr.ConfigParseError, "unterminated branches block")
	}

	for _, s := range cfg.Submodules {
		if err := validateSubmodule(s); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func assign(s *Submodule, key, value string) error {
	switch key {
	case "path":
		s.Path = value
	case "url":
		s.URL = value
	case "default_branch":
		s.DefaultBranch = value
	case "shallow":
		s.Shallow = value == "true" || value == "1" || value == "yes"
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func validateSubmodule(s *Submodule) error {
	if s.Name == "" {
		return salterr.New(salterr.ConfigParseError, "submodule with empty name")
	}
	if s.Path == "" {
		return salterr.New(salterr.ConfigParseError, fmt.Sprintf("submodule %q: path is required", s.Name))
	}
	if s.URL == "" {
		return salterr.New(salterr.ConfigParseError, fmt.Sprintf("submodule %q: url is required", s.Name))
	}
	if s.DefaultBranch == "" {
		return salterr.New(salterr.ConfigParseError, fmt.Sprintf("submodule %q: default_branch is required", s.Name))
	}
	return nil
}

// parseSectionHeader parses `[submodule "name"]` and returns name.
func parseSectionHeader(line string) (string, error) {
	if !strings.HasSuffix(line, "]") {
		return "", fmt.Errorf("malformed section header %q", line)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
	fields := strings.SplitN(inner, " ", 2)
	if len(fields) != 2 || fields[0] != "submodule" {
		return "", fmt.Errorf("malformed section header %q", line)
	}
	name := unquote(strings.TrimSpace(fields[1]))
	if name == "" {
		return "", fmt.Errorf("section header %q has empty name", line)
	}
	return name, nil
}

// parseKeyValue parses `key = value`, reporting isBlockOpen when value is
// exactly "{" (the start of a `branches = { ... }` block).
func parseKeyValue(line string) (key, value string, isBlockOpen bool, err error) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false, fmt.Errorf("expected key = value, got %q", line)
	}
	key = strings.TrimSpace(line[:idx])
	rawValue := strings.TrimSpace(line[idx+1:])
	if rawValue == "{" {
		return key, "", true, nil
	}
	return key, unquote(rawValue), false, nil
}

// parseMappingLine parses `<pattern> -> <target>` inside a branches block.
func parseMappingLine(line string) (pattern, target string, err error) {
	idx := strings.Index(line, "->")
	if idx < 0 {
		return "", "", fmt.Errorf("expected pattern -> target, got %q", line)
	}
	pattern = unquote(strings.TrimSpace(line[:idx]))
	target = unquote(strings.TrimSpace(line[idx+2:]))
	if pattern == "" {
		return "", "", fmt.Errorf("empty pattern in %q", line)
	}
	return pattern, target, nil
}

// stripComment truncates line at the first unquoted "#".
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// unquote strips matched surrounding single or double quotes from s.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
