// Package grouper buckets files into duplicate sets by size and then by
// content digest.
//
// # Processing Pipeline
//
//	Input: []*types.FileRecord (all walked files)
//	    │
//	    ├──► Group by file size
//	    │
//	    ├──► For each size bucket with 2+ files: hash every member
//	    │
//	    ├──► Group each size bucket's digests
//	    │
//	    └──► Output: types.DuplicateSets (digest buckets with 2+ members)
//
// Size bucketing is free (metadata only) and eliminates most files before
// any hashing happens; only files sharing a size with at least one other
// file are ever read.
package grouper

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/duperemote/dupenet/internal/hasher"
	"github.com/duperemote/dupenet/internal/progress"
	"github.com/duperemote/dupenet/internal/types"
)

// Grouper buckets files by size then by digest, producing confirmed
// duplicate sets.
//
// Designed for single use: create with New, call Run once.
type Grouper struct {
	files        []*types.FileRecord
	engine       *hasher.Engine
	showProgress bool
	digestByPath map[string]string
}

// New creates a Grouper over files, using engine to hash size-bucket
// survivors.
func New(files []*types.FileRecord, engine *hasher.Engine, showProgress bool) *Grouper {
	return &Grouper{files: files, engine: engine, showProgress: showProgress}
}

// Digests returns, for each duplicate set's first (lexically smallest
// path) member, the hex-encoded digest used to bucket that set. Populated
// by the most recent Run call; used by internal/report to label sets
// without recomputing hashes.
func (g *Grouper) Digests() map[string]string { return g.digestByPath }

type stats struct {
	setCount  int
	fileCount int
	byteCount int64
	startTime time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Grouped %d duplicate sets (%d files, %s) in %.1fs",
		s.setCount, s.fileCount, humanize.IBytes(uint64(s.byteCount)), time.Since(s.startTime).Seconds())
}

// Run buckets by size, hashes survivors, and buckets again by digest.
// Singleton buckets at either stage are discarded.
func (g *Grouper) Run(ctx context.Context) types.DuplicateSets {
	bar := progress.New(g.showProgress, -1)
	st := &stats{startTime: time.Now()}

	bySize := make(map[int64][]*types.FileRecord)
	for _, f := range g.files {
		bySize[f.Size] = append(bySize[f.Size], f)
	}

	var candidates []*types.FileRecord
	for _, files := range bySize {
		if len(files) >= 2 {
			candidates = append(candidates, files...)
		}
	}

	var sets []types.DuplicateSet
	digestBytesByKey := make(map[sizeDigestKey][]byte)
	if len(candidates) > 0 {
		digested := g.engine.Run(ctx, candidates)

		byKey := make(map[sizeDigestKey][]*types.FileRecord)
		for _, d := range digested {
			key := sizeDigestKey{size: d.File.Size, digest: string(d.Digest.Bytes)}
			byKey[key] = append(byKey[key], d.File)
			digestBytesByKey[key] = d.Digest.Bytes
		}

		for key, files := range byKey {
			if len(files) >= 2 {
				set := types.NewDuplicateSet(files)
				sets = append(sets, set)
				if first := set.First(); first != nil {
					if g.digestByPath == nil {
						g.digestByPath = make(map[string]string)
					}
					g.digestByPath[first.AbsPath] = hex.EncodeToString(digestBytesByKey[key])
				}
			}
		}
	}

	for _, s := range sets {
		st.setCount++
		st.fileCount += s.Len()
		st.byteCount += s.First().Size * int64(s.Len())
	}
	bar.Finish(st)

	return types.NewDuplicateSets(sets)
}

// sizeDigestKey identifies a bucket by (size, digest bytes) — size is
// carried even though it's implied by the digest, since it's a cheap extra
// guard against digest collisions across algorithms reused on a stale cache.
type sizeDigestKey struct {
	size   int64
	digest string
}
