package hasher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/duperemote/dupenet/internal/cache"
	"github.com/duperemote/dupenet/internal/types"
)

func mustWrite(t *testing.T, dir, name string, content string) *types.FileRecord {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return &types.FileRecord{RootID: 0, RelPath: name, AbsPath: path, Size: info.Size(), ModTime: info.ModTime()}
}

func TestEngineHashesIdenticalContentToSameDigest(t *testing.T) {
	dir := t.TempDir()
	a := mustWrite(t, dir, "a.txt", "hello world")
	b := mustWrite(t, dir, "b.txt", "hello world")
	c := mustWrite(t, dir, "c.txt", "something else")

	disabledCache, err := cache.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = disabledCache.Close() }()

	eng := New(types.AlgoSHA256, 2, false, nil, disabledCache, false)
	results := eng.Run(context.Background(), []*types.FileRecord{a, b, c})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byPath := map[string][]byte{}
	for _, r := range results {
		byPath[r.File.RelPath] = r.Digest.Bytes
	}
	if string(byPath["a.txt"]) != string(byPath["b.txt"]) {
		t.Error("expected identical content to hash identically")
	}
	if string(byPath["a.txt"]) == string(byPath["c.txt"]) {
		t.Error("expected different content to hash differently")
	}
}

func TestEngineSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	missing := &types.FileRecord{RootID: 0, RelPath: "gone.txt", AbsPath: filepath.Join(dir, "gone.txt"), Size: 1}

	errs := make(chan error, 1)
	disabledCache, _ := cache.Open("")
	defer func() { _ = disabledCache.Close() }()

	eng := New(types.AlgoXXHash, 1, false, errs, disabledCache, false)
	results := eng.Run(context.Background(), []*types.FileRecord{missing})
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
	select {
	case err := <-errs:
		if err == nil {
			t.Error("expected non-nil error")
		}
	default:
		t.Error("expected an error to be reported")
	}
}

func TestFastModeGatesCacheLookup(t *testing.T) {
	dir := t.TempDir()
	f := mustWrite(t, dir, "a.txt", "hello world")

	cachePath := filepath.Join(t.TempDir(), "cache.db")
	c, err := cache.Open(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	staleDigest := []byte("not-the-real-digest")
	if err := c.Store(f, types.AlgoSHA256, staleDigest); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := cache.Open(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()

	withFastMode := New(types.AlgoSHA256, 1, false, nil, reopened, true)
	results := withFastMode.Run(context.Background(), []*types.FileRecord{f})
	if len(results) != 1 || string(results[0].Digest.Bytes) != string(staleDigest) {
		t.Error("expected fast mode to trust the stale cached digest")
	}

	withoutFastMode := New(types.AlgoSHA256, 1, false, nil, reopened, false)
	results = withoutFastMode.Run(context.Background(), []*types.FileRecord{f})
	if len(results) != 1 || string(results[0].Digest.Bytes) == string(staleDigest) {
		t.Error("expected disabled fast mode to recompute instead of trusting the stale cache")
	}
}

func TestAllAlgorithmsProduceNonEmptyDigest(t *testing.T) {
	dir := t.TempDir()
	f := mustWrite(t, dir, "data.bin", "some content to digest")
	disabledCache, _ := cache.Open("")
	defer func() { _ = disabledCache.Close() }()

	for _, algo := range []types.Algorithm{
		types.AlgoMD5, types.AlgoSHA1, types.AlgoSHA256, types.AlgoBlake3,
		types.AlgoXXHash, types.AlgoGxHash, types.AlgoFNV1a, types.AlgoCRC32,
	} {
		eng := New(algo, 1, false, nil, disabledCache, false)
		results := eng.Run(context.Background(), []*types.FileRecord{f})
		if len(results) != 1 || len(results[0].Digest.Bytes) == 0 {
			t.Errorf("algorithm %s produced empty digest", algo)
		}
	}
}
