package main

import "testing"

func TestParseSizeSupportsHumanUnits(t *testing.T) {
	cases := map[string]int64{
		"100":  100,
		"1K":   1000,
		"1KiB": 1024,
		"1MB":  1000000,
	}
	for in, want := range cases {
		got, err := parseSize(in)
		if err != nil {
			t.Fatalf("parseSize(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSizeRejectsGarbage(t *testing.T) {
	if _, err := parseSize("not-a-size"); err == nil {
		t.Error("expected error for invalid size string")
	}
}

func TestValidateGlobPatternsAcceptsDoublestar(t *testing.T) {
	if err := validateGlobPatterns([]string{"**/*.tmp", "cache/**"}); err != nil {
		t.Errorf("expected valid patterns to pass, got %v", err)
	}
}

func TestValidateGlobPatternsRejectsUnclosedClass(t *testing.T) {
	if err := validateGlobPatterns([]string{"[unterminated"}); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestFilterFileExistsEmptyPathIsNoop(t *testing.T) {
	if err := filterFileExists(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}

func TestFilterFileExistsMissingPath(t *testing.T) {
	if err := filterFileExists("/no/such/file/dupenet-test"); err == nil {
		t.Error("expected error for missing filter file")
	}
}
