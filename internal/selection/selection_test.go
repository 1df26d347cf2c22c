package selection

import (
	"testing"
	"time"

	"github.com/duperemote/dupenet/internal/types"
)

func buildSet() types.DuplicateSet {
	now := time.Now()
	return types.NewDuplicateSet([]*types.FileRecord{
		{AbsPath: "/a/short.txt", ModTime: now.Add(-2 * time.Hour)},
		{AbsPath: "/b/much/longer/path/to/file.txt", ModTime: now},
		{AbsPath: "/c/mid/path.txt", ModTime: now.Add(-1 * time.Hour)},
	})
}

func TestApplyNewestModified(t *testing.T) {
	sets, err := Apply(NewestModified, types.NewDuplicateSets([]types.DuplicateSet{buildSet()}))
	if err != nil {
		t.Fatal(err)
	}
	kept := sets.First().Kept()
	if kept.AbsPath != "/b/much/longer/path/to/file.txt" {
		t.Errorf("kept = %q, want the newest file", kept.AbsPath)
	}
}

func TestApplyOldestModified(t *testing.T) {
	sets, err := Apply(OldestModified, types.NewDuplicateSets([]types.DuplicateSet{buildSet()}))
	if err != nil {
		t.Fatal(err)
	}
	kept := sets.First().Kept()
	if kept.AbsPath != "/a/short.txt" {
		t.Errorf("kept = %q, want the oldest file", kept.AbsPath)
	}
}

func TestApplyShortestPath(t *testing.T) {
	sets, err := Apply(ShortestPath, types.NewDuplicateSets([]types.DuplicateSet{buildSet()}))
	if err != nil {
		t.Fatal(err)
	}
	kept := sets.First().Kept()
	if kept.AbsPath != "/a/short.txt" {
		t.Errorf("kept = %q, want the shortest path", kept.AbsPath)
	}
}

func TestApplyLongestPath(t *testing.T) {
	sets, err := Apply(LongestPath, types.NewDuplicateSets([]types.DuplicateSet{buildSet()}))
	if err != nil {
		t.Fatal(err)
	}
	kept := sets.First().Kept()
	if kept.AbsPath != "/b/much/longer/path/to/file.txt" {
		t.Errorf("kept = %q, want the longest path", kept.AbsPath)
	}
}

func TestApplyTieBreaksLexicographically(t *testing.T) {
	now := time.Now()
	set := types.NewDuplicateSet([]*types.FileRecord{
		{AbsPath: "/z/file.txt", ModTime: now},
		{AbsPath: "/a/file.txt", ModTime: now},
	})
	sets, err := Apply(NewestModified, types.NewDuplicateSets([]types.DuplicateSet{set}))
	if err != nil {
		t.Fatal(err)
	}
	if kept := sets.First().Kept(); kept.AbsPath != "/a/file.txt" {
		t.Errorf("kept = %q, want lexicographically first on tie", kept.AbsPath)
	}
}

func TestApplyNewestModifiedTieBreaksLongestPath(t *testing.T) {
	now := time.Now()
	set := types.NewDuplicateSet([]*types.FileRecord{
		{AbsPath: "/a/b", ModTime: now},
		{AbsPath: "/a/zz", ModTime: now},
	})
	sets, err := Apply(NewestModified, types.NewDuplicateSets([]types.DuplicateSet{set}))
	if err != nil {
		t.Fatal(err)
	}
	if kept := sets.First().Kept(); kept.AbsPath != "/a/zz" {
		t.Errorf("kept = %q, want the longer path on mtime tie", kept.AbsPath)
	}
}

func TestApplyOldestModifiedTieBreaksLongestPath(t *testing.T) {
	now := time.Now()
	set := types.NewDuplicateSet([]*types.FileRecord{
		{AbsPath: "/a/b", ModTime: now},
		{AbsPath: "/a/zz", ModTime: now},
	})
	sets, err := Apply(OldestModified, types.NewDuplicateSets([]types.DuplicateSet{set}))
	if err != nil {
		t.Fatal(err)
	}
	if kept := sets.First().Kept(); kept.AbsPath != "/a/zz" {
		t.Errorf("kept = %q, want the longer path on mtime tie", kept.AbsPath)
	}
}

func TestApplyUnknownStrategy(t *testing.T) {
	_, err := Apply("bogus", types.NewDuplicateSets(nil))
	if err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestApplySetsRationale(t *testing.T) {
	sets, err := Apply(ShortestPath, types.NewDuplicateSets([]types.DuplicateSet{buildSet()}))
	if err != nil {
		t.Fatal(err)
	}
	if sets.First().Rationale == "" {
		t.Error("expected non-empty rationale")
	}
}
