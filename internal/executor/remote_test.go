package executor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRsync installs a shell script standing in for the rsync binary that
// records its argv (one per line) to the returned path instead of touching
// the network, and restores the real rsyncPath on cleanup.
func fakeRsync(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	record := filepath.Join(dir, "argv.txt")
	script := filepath.Join(dir, "rsync")
	body := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + record + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	prev := rsyncPath
	rsyncPath = script
	t.Cleanup(func() { rsyncPath = prev })
	return record
}

func TestExecutorCopyDelegatesToRsyncForRemoteDest(t *testing.T) {
	record := fakeRsync(t)

	srcDir := t.TempDir()
	kept := writeFileRecord(t, srcDir, "keep.txt", "content")
	dup := writeFileRecord(t, srcDir, "a/dup.txt", "content")

	sets := buildDupSet(kept, dup)
	dest := "ssh:user@backup.example:2222:/archive:-o StrictHostKeyChecking=no:--bwlimit=1000"
	results := New(sets, Options{Kind: Copy, DestDir: dest}, nil).Run()

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
	if !strings.Contains(results[0].Dest, "user@backup.example:/archive/a/dup.txt") {
		t.Errorf("unexpected Dest: %s", results[0].Dest)
	}

	out, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("rsync was not invoked: %v", err)
	}
	argv := string(out)
	for _, want := range []string{
		"-a", "--mkpath", "-e", "ssh -p 2222 -o StrictHostKeyChecking=no",
		"--bwlimit=1000", dup.AbsPath, "user@backup.example:/archive/a/dup.txt",
	} {
		if !strings.Contains(argv, want) {
			t.Errorf("rsync argv missing %q, got:\n%s", want, argv)
		}
	}

	if _, err := os.Stat(dup.AbsPath); err != nil {
		t.Error("copy should leave the source file in place")
	}
}

func TestExecutorMoveRemovesLocalSourceAfterRemoteTransfer(t *testing.T) {
	fakeRsync(t)

	srcDir := t.TempDir()
	kept := writeFileRecord(t, srcDir, "keep.txt", "content")
	dup := writeFileRecord(t, srcDir, "dup.txt", "content")

	sets := buildDupSet(kept, dup)
	dest := "ssh:backup.example:/archive"
	results := New(sets, Options{Kind: Move, DestDir: dest}, nil).Run()

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
	if _, err := os.Stat(dup.AbsPath); !os.IsNotExist(err) {
		t.Error("expected local source removed after a remote move")
	}
}

func TestExecutorRemoteDryRunDoesNotInvokeRsync(t *testing.T) {
	record := fakeRsync(t)

	srcDir := t.TempDir()
	kept := writeFileRecord(t, srcDir, "keep.txt", "content")
	dup := writeFileRecord(t, srcDir, "dup.txt", "content")

	sets := buildDupSet(kept, dup)
	dest := "ssh:backup.example:/archive"
	results := New(sets, Options{Kind: Copy, DestDir: dest, DryRun: true}, nil).Run()

	if len(results) != 1 || !results[0].Dryrun {
		t.Fatalf("expected a dry-run result, got %+v", results)
	}
	if _, err := os.Stat(record); !os.IsNotExist(err) {
		t.Error("dry-run should not invoke rsync")
	}
}

func TestExecutorRejectsMalformedRemoteDest(t *testing.T) {
	srcDir := t.TempDir()
	kept := writeFileRecord(t, srcDir, "keep.txt", "content")
	dup := writeFileRecord(t, srcDir, "dup.txt", "content")

	sets := buildDupSet(kept, dup)
	results := New(sets, Options{Kind: Copy, DestDir: "ssh:not-a-valid-target"}, nil).Run()

	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected a parse error result, got %+v", results)
	}
}
