// Package media fingerprints images, video, and audio perceptually and
// clusters near-duplicates that a byte-exact digest would never match.
//
// # Pipeline
//
//	Input: []*types.FileRecord (unrecognized extensions are skipped)
//	    │
//	    ├──► Fingerprint each file (bounded worker pool, CPU-bound)
//	    │
//	    └──► Cluster fingerprints whose similarity percent reaches Threshold
//
// Fingerprinting dispatches on file extension to one of three
// Fingerprinter implementations (image, video, audio); a file whose
// extension matches none of them is skipped, not an error.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/duperemote/dupenet/internal/progress"
	"github.com/duperemote/dupenet/internal/types"
)

// Fingerprinter computes a 64-bit perceptual hash for one media file.
// Implementations are expected to be safe for concurrent use.
type Fingerprinter interface {
	// Supports reports whether ext (lowercased, with leading dot) is
	// handled by this fingerprinter.
	Supports(ext string) bool
	// Fingerprint computes the perceptual hash of the file at path.
	Fingerprint(ctx context.Context, path string) (uint64, error)
}

// Fingerprint pairs a file with its computed perceptual hash.
type Fingerprint struct {
	File *types.FileRecord
	Hash uint64
}

// Engine fingerprints a batch of media files using a bounded CPU-bound
// worker pool (ants), distinct in shape from the hasher package's I/O-bound
// semaphore: fingerprinting decodes and resamples in memory rather than
// streaming from disk, so pool sizing tracks CPU count, not fd pressure.
type Engine struct {
	fingerprinters []Fingerprinter
	poolSize       int
	showProgress   bool
	errCh          chan error
}

// New creates a fingerprinting Engine. If fingerprinters is empty, the
// default set (image, video, audio) is used.
func New(fingerprinters []Fingerprinter, poolSize int, showProgress bool, errCh chan error) *Engine {
	if len(fingerprinters) == 0 {
		fingerprinters = []Fingerprinter{NewImageFingerprinter(), NewVideoFingerprinter(""), NewAudioFingerprinter("")}
	}
	return &Engine{fingerprinters: fingerprinters, poolSize: poolSize, showProgress: showProgress, errCh: errCh}
}

type stats struct {
	total     int
	completed int
	startTime time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Fingerprinted %d/%d media files in %.1fs", s.completed, s.total, time.Since(s.startTime).Seconds())
}

// Run fingerprints every file in files whose extension is recognized by one
// of the engine's Fingerprinters, using a bounded goroutine pool.
func (e *Engine) Run(ctx context.Context, files []*types.FileRecord) []Fingerprint {
	var candidates []*types.FileRecord
	var owner []Fingerprinter
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.AbsPath))
		for _, fp := range e.fingerprinters {
			if fp.Supports(ext) {
				candidates = append(candidates, f)
				owner = append(owner, fp)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	bar := progress.New(e.showProgress, -1)
	st := &stats{total: len(candidates), startTime: time.Now()}
	bar.Describe(st)

	results := make([]Fingerprint, len(candidates))
	valid := make([]bool, len(candidates))

	pool, err := ants.NewPool(e.poolSize)
	if err != nil {
		e.sendError(fmt.Errorf("create fingerprint pool: %w", err))
		return nil
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range candidates {
		i := i
		wg.Add(1)
		_ = pool.Submit(func() {
			defer wg.Done()
			hash, err := owner[i].Fingerprint(ctx, candidates[i].AbsPath)
			if err != nil {
				e.sendError(fmt.Errorf("%s: %w", candidates[i].AbsPath, err))
				return
			}
			results[i] = Fingerprint{File: candidates[i], Hash: hash}
			valid[i] = true
			st.completed++
			bar.Describe(st)
		})
	}
	wg.Wait()
	bar.Finish(st)

	out := make([]Fingerprint, 0, len(candidates))
	for i, ok := range valid {
		if ok {
			out = append(out, results[i])
		}
	}
	return out
}

func (e *Engine) sendError(err error) {
	if e.errCh != nil {
		e.errCh <- err
	}
}
