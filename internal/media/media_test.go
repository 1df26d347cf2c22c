package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/duperemote/dupenet/internal/types"
)

// fakeFingerprinter returns a fixed hash per path, for deterministic tests
// without shelling out to ffmpeg/fpcalc or decoding real images.
type fakeFingerprinter struct {
	ext    string
	hashOf map[string]uint64
}

func (f *fakeFingerprinter) Supports(ext string) bool { return ext == f.ext }
func (f *fakeFingerprinter) Fingerprint(_ context.Context, path string) (uint64, error) {
	return f.hashOf[filepath.Base(path)], nil
}

func touch(t *testing.T, dir, name string) *types.FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &types.FileRecord{RelPath: name, AbsPath: path}
}

func TestEngineOnlyFingerprintsSupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	img := touch(t, dir, "a.jpg")
	other := touch(t, dir, "a.txt")

	fp := &fakeFingerprinter{ext: ".jpg", hashOf: map[string]uint64{"a.jpg": 42}}
	eng := New([]Fingerprinter{fp}, 2, false, nil)

	results := eng.Run(context.Background(), []*types.FileRecord{img, other})
	if len(results) != 1 || results[0].Hash != 42 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestClusterConnectedComponentsGroupsSimilarHashes(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.jpg")
	b := touch(t, dir, "b.jpg")
	c := touch(t, dir, "c.jpg")

	fps := []Fingerprint{
		{File: a, Hash: 0b0000},
		{File: b, Hash: 0b0001}, // distance 1 from a
		{File: c, Hash: 0xFFFFFFFFFFFFFFFF}, // far from both
	}

	// threshold 95% similarity admits hamming distance <=2 out of 64 bits
	// (100*(1-2/64) = 96.875) but rejects distance 4 (93.75), matching the
	// raw-distance intent of this fixture.
	sets := Cluster(fps, 95, ConnectedComponents)
	if sets.Len() != 1 {
		t.Fatalf("got %d sets, want 1", sets.Len())
	}
	if sets.First().Len() != 2 {
		t.Fatalf("got %d members, want 2", sets.First().Len())
	}
}

func TestClusterDefaultThresholdRejectsDissimilarHashes(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "A.jpg")
	aPrime := touch(t, dir, "A.png")
	b := touch(t, dir, "B.png")

	fps := []Fingerprint{
		{File: a, Hash: 0x0000000000000000},
		{File: aPrime, Hash: 0x0000000000000001}, // hamming 1: ~98.4% similar
		{File: b, Hash: 0xFFFFFFFF00000000},       // hamming 32: 50% similar
	}

	sets := Cluster(fps, DefaultThreshold, ConnectedComponents)
	if sets.Len() != 1 {
		t.Fatalf("got %d sets, want 1", sets.Len())
	}
	set := sets.First()
	if set.Len() != 2 {
		t.Fatalf("got %d members, want 2 (A.jpg and A.png only)", set.Len())
	}
	for _, f := range set.Files() {
		if f.RelPath == "B.png" {
			t.Error("B.png should not cluster with A.jpg/A.png at the default threshold")
		}
	}
}

func TestClusterAllPairsRejectsLooseChains(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, dir, "a.jpg")
	b := touch(t, dir, "b.jpg")
	c := touch(t, dir, "c.jpg")

	// a~b close, a~c close, but b~c far: connected-components would chain
	// all three; all-pairs should only ever admit the directly-close pair.
	fps := []Fingerprint{
		{File: a, Hash: 0b00000000},
		{File: b, Hash: 0b00000011},
		{File: c, Hash: 0b00001100},
	}

	// threshold 95% similarity admits hamming distance <=2 out of 64 bits
	// but rejects the distance-4 b~c pair, matching this fixture's
	// raw-distance intent.
	ccSets := Cluster(fps, 95, ConnectedComponents)
	if ccSets.Len() != 1 || ccSets.First().Len() != 3 {
		t.Fatalf("expected connected-components to chain all three, got %d sets", ccSets.Len())
	}

	apSets := Cluster(fps, 95, AllPairs)
	for _, s := range apSets.Items() {
		if s.Len() == 3 {
			t.Error("all-pairs should not admit a loosely chained triple")
		}
	}
}
