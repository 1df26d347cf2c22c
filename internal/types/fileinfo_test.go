package types

import (
	"testing"
	"time"
)

// =============================================================================
// Section 1: Generic Sorted[T, K] Tests
// =============================================================================

func TestSortedBasic(t *testing.T) {
	items := []string{"charlie", "alpha", "bravo"}
	sorted := NewSorted(items, func(s string) string { return s })

	if sorted.Len() != 3 {
		t.Errorf("expected Len() = 3, got %d", sorted.Len())
	}

	expected := []string{"alpha", "bravo", "charlie"}
	for i, item := range sorted.Items() {
		if item != expected[i] {
			t.Errorf("Items()[%d] = %q, want %q", i, item, expected[i])
		}
	}
}

func TestSortedFirst(t *testing.T) {
	items := []int{30, 10, 20}
	sorted := NewSorted(items, func(i int) int { return i })

	if sorted.First() != 10 {
		t.Errorf("First() = %d, want 10", sorted.First())
	}
}

func TestSortedFirstEmpty(t *testing.T) {
	sorted := NewSorted([]string{}, func(s string) string { return s })

	if sorted.First() != "" {
		t.Errorf("First() on empty = %q, want empty string", sorted.First())
	}
}

func TestSortedLenEmpty(t *testing.T) {
	sorted := NewSorted([]int{}, func(i int) int { return i })

	if sorted.Len() != 0 {
		t.Errorf("Len() on empty = %d, want 0", sorted.Len())
	}
}

func TestSortedDoesNotMutateInput(t *testing.T) {
	original := []string{"charlie", "alpha", "bravo"}
	originalCopy := make([]string, len(original))
	copy(originalCopy, original)

	_ = NewSorted(original, func(s string) string { return s })

	for i := range original {
		if original[i] != originalCopy[i] {
			t.Errorf("Input was mutated: original[%d] = %q, was %q", i, original[i], originalCopy[i])
		}
	}
}

func TestSortedDeterminism(t *testing.T) {
	items := []string{"delta", "alpha", "charlie", "bravo"}

	var firstResult []string
	for i := 0; i < 10; i++ {
		sorted := NewSorted(items, func(s string) string { return s })
		if firstResult == nil {
			firstResult = sorted.Items()
		} else {
			for j, item := range sorted.Items() {
				if item != firstResult[j] {
					t.Errorf("Run %d: Items()[%d] = %q, want %q (non-deterministic)", i, j, item, firstResult[j])
				}
			}
		}
	}
}

func TestSortedSingleItem(t *testing.T) {
	sorted := NewSorted([]string{"only"}, func(s string) string { return s })

	if sorted.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sorted.Len())
	}
	if sorted.First() != "only" {
		t.Errorf("First() = %q, want %q", sorted.First(), "only")
	}
}

// =============================================================================
// Section 2: FileGroup Tests
// =============================================================================

func TestNewFileGroupSortsByAbsPath(t *testing.T) {
	files := []*FileRecord{
		{AbsPath: "/z/file.txt", Size: 100},
		{AbsPath: "/a/file.txt", Size: 100},
		{AbsPath: "/m/file.txt", Size: 100},
	}

	fg := NewFileGroup(files)

	if fg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", fg.Len())
	}
	if fg.First().AbsPath != "/a/file.txt" {
		t.Errorf("First().AbsPath = %q, want %q", fg.First().AbsPath, "/a/file.txt")
	}

	expected := []string{"/a/file.txt", "/m/file.txt", "/z/file.txt"}
	for i, f := range fg.Items() {
		if f.AbsPath != expected[i] {
			t.Errorf("Items()[%d].AbsPath = %q, want %q", i, f.AbsPath, expected[i])
		}
	}
}

func TestNewFileGroupEmpty(t *testing.T) {
	fg := NewFileGroup(nil)

	if fg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", fg.Len())
	}
	if fg.First() != nil {
		t.Errorf("First() = %v, want nil", fg.First())
	}
}

// =============================================================================
// Section 3: DuplicateSet Tests
// =============================================================================

func TestNewDuplicateSetSortsByPath(t *testing.T) {
	files := []*FileRecord{
		{AbsPath: "/z/file.txt", Size: 100},
		{AbsPath: "/a/file.txt", Size: 100},
		{AbsPath: "/m/file.txt", Size: 100},
	}

	ds := NewDuplicateSet(files)

	if ds.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ds.Len())
	}
	if ds.First().AbsPath != "/a/file.txt" {
		t.Errorf("First().AbsPath = %q, want %q", ds.First().AbsPath, "/a/file.txt")
	}
}

func TestDuplicateSetKeptDefaultsToIndexZero(t *testing.T) {
	ds := NewDuplicateSet([]*FileRecord{
		{AbsPath: "/a/file.txt"},
		{AbsPath: "/b/file.txt"},
	})

	if got := ds.Kept(); got == nil || got.AbsPath != "/a/file.txt" {
		t.Errorf("Kept() = %v, want /a/file.txt", got)
	}
}

func TestDuplicateSetKeptOutOfRangeReturnsNil(t *testing.T) {
	ds := NewDuplicateSet([]*FileRecord{{AbsPath: "/a/file.txt"}})
	ds.KeptIndex = 5
	if got := ds.Kept(); got != nil {
		t.Errorf("Kept() = %v, want nil", got)
	}
}

func TestDuplicateSetCandidatesExcludesKept(t *testing.T) {
	ds := NewDuplicateSet([]*FileRecord{
		{AbsPath: "/a/file.txt"},
		{AbsPath: "/b/file.txt"},
		{AbsPath: "/c/file.txt"},
	})
	ds.KeptIndex = 1

	cands := ds.Candidates()
	if len(cands) != 2 {
		t.Fatalf("len(Candidates()) = %d, want 2", len(cands))
	}
	for _, c := range cands {
		if c.AbsPath == "/b/file.txt" {
			t.Error("Candidates() should exclude the kept file")
		}
	}
}

// =============================================================================
// Section 4: DuplicateSets Tests
// =============================================================================

func TestNewDuplicateSetsSortsByFirstMemberPath(t *testing.T) {
	ds1 := NewDuplicateSet([]*FileRecord{{AbsPath: "/z/file.txt"}})
	ds2 := NewDuplicateSet([]*FileRecord{{AbsPath: "/a/file.txt"}})

	sets := NewDuplicateSets([]DuplicateSet{ds1, ds2})

	if sets.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sets.Len())
	}
	if sets.First().First().AbsPath != "/a/file.txt" {
		t.Errorf("First path = %q, want %q", sets.First().First().AbsPath, "/a/file.txt")
	}
}

// =============================================================================
// Section 5: FileRecord / Algorithm / Digest Tests
// =============================================================================

func TestFileRecordFields(t *testing.T) {
	now := time.Now()
	fr := &FileRecord{
		RootID:  1,
		RelPath: "sub/file.txt",
		AbsPath: "/root/sub/file.txt",
		Size:    1024,
		ModTime: now,
	}

	if fr.AbsPath != "/root/sub/file.txt" {
		t.Errorf("AbsPath = %q, want %q", fr.AbsPath, "/root/sub/file.txt")
	}
	if fr.Size != 1024 {
		t.Errorf("Size = %d, want 1024", fr.Size)
	}
	if !fr.ModTime.Equal(now) {
		t.Errorf("ModTime = %v, want %v", fr.ModTime, now)
	}
	if fr.RootID != 1 {
		t.Errorf("RootID = %d, want 1", fr.RootID)
	}
}

func TestAlgorithmCryptographic(t *testing.T) {
	cases := map[Algorithm]bool{
		AlgoMD5:    true,
		AlgoSHA1:   true,
		AlgoSHA256: true,
		AlgoBlake3: true,
		AlgoXXHash: false,
		AlgoGxHash: false,
		AlgoFNV1a:  false,
		AlgoCRC32:  false,
	}
	for algo, want := range cases {
		if got := algo.Cryptographic(); got != want {
			t.Errorf("%s.Cryptographic() = %v, want %v", algo, got, want)
		}
	}
}

// =============================================================================
// Section 6: Semaphore Tests
// =============================================================================

func TestSemaphoreBasic(t *testing.T) {
	sem := NewSemaphore(2)

	sem.Acquire()
	sem.Acquire()

	sem.Release()

	sem.Acquire()

	sem.Release()
	sem.Release()
}
