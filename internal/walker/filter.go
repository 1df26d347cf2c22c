package walker

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ruleKind distinguishes an include rule from an exclude rule.
type ruleKind bool

const (
	ruleInclude ruleKind = false
	ruleExclude ruleKind = true
)

// rule is one ordered filter directive: a glob pattern and whether it
// includes or excludes a match. Directories are checked against the same
// rules (see ExcludesDir); dirOnly is never set by the parsers.
type rule struct {
	kind    ruleKind
	pattern string
	dirOnly bool
}

// Filter is an ordered list of include/exclude glob rules, composed from
// --exclude flags and an optional filter-from file. The first rule whose
// pattern matches a path wins; if no rule matches, the path is included.
type Filter struct {
	rules []rule
}

// NewFilter builds a Filter from plain exclude globs (CLI --exclude values,
// always exclude rules, matched against the basename as well as full
// relative path for backward-compatible single-component patterns).
func NewFilter(excludes []string) *Filter {
	f := &Filter{}
	for _, pat := range excludes {
		f.rules = append(f.rules, rule{kind: ruleExclude, pattern: pat})
	}
	return f
}

// ParseFilterFile appends rules parsed from a filter-file to f, in the
// format described by spec §6:
//
//	+ pattern   include
//	- pattern   exclude
//	# comment, ; comment, blank lines ignored
//
// Rules are appended in file order after any existing rules, so CLI
// --exclude rules (added via NewFilter) take precedence.
func (f *Filter) ParseFilterFile(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if len(line) < 2 || (line[0] != '+' && line[0] != '-') {
			return fmt.Errorf("filter file line %d: expected '+' or '-' prefix: %q", lineNo, line)
		}
		kind := ruleInclude
		if line[0] == '-' {
			kind = ruleExclude
		}
		pattern := strings.TrimSpace(line[1:])
		if pattern == "" {
			return fmt.Errorf("filter file line %d: empty pattern", lineNo)
		}
		f.rules = append(f.rules, rule{kind: kind, pattern: pattern})
	}
	return scanner.Err()
}

// Allows reports whether relPath (a file, not a directory) should be
// included, applying rules in order and defaulting to included if none match.
func (f *Filter) Allows(relPath string) bool {
	if f == nil {
		return true
	}
	for _, r := range f.rules {
		if matchRule(r.pattern, relPath) {
			return r.kind == ruleInclude
		}
	}
	return true
}

// ExcludesDir reports whether a directory (by its relative path) should be
// pruned entirely: only exclude rules prune, and only when the pattern
// matches the directory path itself or any of its ancestors via a
// trailing-slash-style glob.
func (f *Filter) ExcludesDir(relPath string) bool {
	if f == nil {
		return false
	}
	for _, r := range f.rules {
		if r.kind == ruleExclude && matchRule(r.pattern, relPath) {
			return true
		}
	}
	return false
}

// matchRule matches a doublestar glob against both the full relative path
// and its basename, so single-component patterns like "*.tmp" behave the
// way --exclude did historically while "**/build/**" style patterns work
// against the full path.
func matchRule(pattern, relPath string) bool {
	if ok, _ := doublestar.Match(pattern, relPath); ok {
		return true
	}
	base := relPath
	if idx := strings.LastIndexByte(relPath, '/'); idx >= 0 {
		base = relPath[idx+1:]
	}
	ok, _ := doublestar.Match(pattern, base)
	return ok
}
