package main

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
)

// parseSize parses a human-readable size string into bytes.
// Supports formats: "100", "1K", "1MB", "1GiB", etc.
func parseSize(s string) (int64, error) {
	bytes, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(bytes), nil
}

// validateGlobPatterns checks that all patterns are syntactically valid
// doublestar patterns, matching the matcher internal/walker/filter.go
// actually uses, by attempting a throwaway match exactly as the teacher's
// own validateGlobPatterns did with filepath.Match.
func validateGlobPatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := doublestar.Match(pattern, ""); err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// filterFileExists reports whether path names a readable file, used to
// give a clearer error than the one ParseFilterFile would produce for a
// missing --filter-from path.
func filterFileExists(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("filter file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("filter file %q is a directory", path)
	}
	return nil
}
