// Package hasher computes whole-file content digests in parallel, using a
// selectable algorithm and an optional persistent cache.
//
// # Concurrency Model
//
// Unlike the scan stage (bounded by directory-read fan-out), hashing is
// bounded by a fixed worker count via golang.org/x/sync/errgroup +
// semaphore.Weighted: each file is one unit of work, submitted to the group
// and gated by the semaphore so at most Workers files are being read at
// once.
package hasher

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/duperemote/dupenet/internal/cache"
	"github.com/duperemote/dupenet/internal/progress"
	"github.com/duperemote/dupenet/internal/types"
)

const blockSize = 64 * 1024

// Hasher accumulates a digest over a stream of bytes.
type Hasher interface {
	io.Writer
	Sum() []byte
}

// Engine computes digests for a batch of files.
//
// Designed for single use: create with New, call Run once.
type Engine struct {
	algo         types.Algorithm
	workers      int
	showProgress bool
	errCh        chan error
	cache        *cache.Cache
	fastMode     bool

	sem *semaphore.Weighted
	bar *progress.Bar
	st  *stats
}

// New creates a hashing Engine. algo selects the digest algorithm; cache may
// be a disabled cache (cache.Open("")) but not nil. fastMode gates whether
// the cache is consulted on lookup: per spec, a cache entry is only trusted
// when fast_mode is enabled and a cache location is configured, so a run can
// keep writing/warming the cache while still forcing fresh hashes. Stores
// always happen regardless of fastMode, so a cold run still warms the cache
// for a later fast run.
func New(algo types.Algorithm, workers int, showProgress bool, errCh chan error, c *cache.Cache, fastMode bool) *Engine {
	return &Engine{
		algo:         algo,
		workers:      workers,
		showProgress: showProgress,
		errCh:        errCh,
		cache:        c,
		fastMode:     fastMode,
	}
}

type stats struct {
	totalBytes  uint64
	hashedBytes atomic.Uint64
	cachedBytes atomic.Uint64
	hashedFiles atomic.Int64
	startTime   time.Time
}

func (s *stats) String() string {
	hashed := s.hashedBytes.Load()
	cached := s.cachedBytes.Load()
	pct := 0.0
	if s.totalBytes > 0 {
		pct = float64(hashed+cached) / float64(s.totalBytes) * 100
	}
	return fmt.Sprintf("Hashed %d files, %s + cached %s out of %s (%.0f%%)",
		s.hashedFiles.Load(), humanize.IBytes(hashed), humanize.IBytes(cached),
		humanize.IBytes(s.totalBytes), pct)
}

// Digested pairs a FileRecord with its computed Digest.
type Digested struct {
	File   *types.FileRecord
	Digest types.Digest
}

// Run hashes every file in files, skipping (and reporting) files that fail
// to open or read. The returned slice preserves no particular order.
func (e *Engine) Run(ctx context.Context, files []*types.FileRecord) []Digested {
	if len(files) == 0 {
		return nil
	}

	var totalBytes uint64
	for _, f := range files {
		totalBytes += uint64(f.Size)
	}

	e.sem = semaphore.NewWeighted(int64(e.workers))
	e.bar = progress.New(e.showProgress, -1)
	e.st = &stats{totalBytes: totalBytes, startTime: time.Now()}
	e.bar.Describe(e.st)

	results := make([]Digested, len(files))
	valid := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		if err := e.sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer e.sem.Release(1)
			d, cached, err := e.digest(f)
			if err != nil {
				e.sendError(fmt.Errorf("%s: %w", f.AbsPath, err))
				return nil
			}
			results[i] = Digested{File: f, Digest: d}
			valid[i] = true
			e.st.hashedFiles.Add(1)
			if cached {
				e.st.cachedBytes.Add(uint64(f.Size))
			} else {
				e.st.hashedBytes.Add(uint64(f.Size))
			}
			e.bar.Describe(e.st)
			return nil
		})
	}
	_ = g.Wait()
	e.bar.Finish(e.st)

	out := make([]Digested, 0, len(files))
	for i, ok := range valid {
		if ok {
			out = append(out, results[i])
		}
	}
	return out
}

// digest returns the digest for one file, consulting the cache first when
// fast mode is enabled.
func (e *Engine) digest(f *types.FileRecord) (types.Digest, bool, error) {
	if e.fastMode {
		if cached, err := e.cache.Lookup(f, e.algo); err == nil && cached != nil {
			return types.Digest{Algorithm: e.algo, Bytes: cached}, true, nil
		}
	}

	sum, err := hashFile(f.AbsPath, e.algo)
	if err != nil {
		return types.Digest{}, false, err
	}

	_ = e.cache.Store(f, e.algo, sum)
	return types.Digest{Algorithm: e.algo, Bytes: sum}, false, nil
}

// hashFile streams a file's full contents through the selected algorithm.
func hashFile(path string, algo types.Algorithm) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	h, err := newDigester(algo)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, err
	}
	return h.Sum(), nil
}

func (e *Engine) sendError(err error) {
	if e.errCh != nil {
		e.errCh <- err
	}
}
