// Package walker provides parallel filesystem scanning that resolves files
// under one or more roots into types.FileRecord, honoring size and glob
// filters along the way.
//
// # Architecture Overview
//
// The walker uses the same fan-out/fan-in architecture as its ancestor: one
// goroutine per directory, bounded by a semaphore, feeding a single
// collector over a buffered channel.
//
//	Run() starts
//	    │
//	    ├──► spawn collector goroutine (reads resultCh)
//	    │
//	    ├──► for each root: walkDirectory(root, "")
//	    │
//	    ├──► walkerWg.Wait() → close(resultCh) → collectorWg.Wait()
//	    │
//	    └──► return records
package walker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/duperemote/dupenet/internal/progress"
	"github.com/duperemote/dupenet/internal/types"
)

// Root names one scan origin. ID is assigned by the caller (driver) and
// threaded through every FileRecord produced under it.
type Root struct {
	ID   int
	Path string
}

// Walker discovers files under one or more roots, applying a Filter and a
// minimum-size cutoff.
//
// Designed for single use: create with New, call Run once.
type Walker struct {
	roots        []Root
	minSize      int64
	filter       *Filter
	workers      int
	showProgress bool
	errCh        chan error

	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan *types.FileRecord
	stats     *stats
	bar       *progress.Bar
}

// New creates a Walker.
func New(roots []Root, minSize int64, filter *Filter, workers int, showProgress bool, errCh chan error) *Walker {
	return &Walker{
		roots:        roots,
		minSize:      minSize,
		filter:       filter,
		workers:      workers,
		showProgress: showProgress,
		errCh:        errCh,
	}
}

type stats struct {
	scannedFiles atomic.Int64
	matchedFiles atomic.Int64
	scannedBytes atomic.Int64
	matchedBytes atomic.Int64
	startTime    time.Time
}

func (s *stats) String() string {
	return fmt.Sprintf("Scanned %d (%s), matched %d files (%s) in %.1fs",
		s.scannedFiles.Load(), humanize.IBytes(uint64(s.scannedBytes.Load())),
		s.matchedFiles.Load(), humanize.IBytes(uint64(s.matchedBytes.Load())),
		time.Since(s.startTime).Seconds())
}

// Run executes the walk and returns every matching file record.
func (w *Walker) Run() []*types.FileRecord {
	w.walkerSem = types.NewSemaphore(w.workers)
	w.bar = progress.New(w.showProgress, -1)
	w.stats = &stats{startTime: time.Now()}
	w.bar.Describe(w.stats)
	w.resultCh = make(chan *types.FileRecord, 1000)

	var results []*types.FileRecord
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		for r := range w.resultCh {
			results = append(results, r)
		}
		collectorWg.Done()
	}()

	for _, root := range w.roots {
		absPath, err := filepath.Abs(root.Path)
		if err != nil {
			w.sendError(err)
			continue
		}
		w.walkDirectory(root.ID, absPath, absPath, "")
	}

	w.walkerWg.Wait()
	close(w.resultCh)
	collectorWg.Wait()

	w.bar.Finish(w.stats)
	return results
}

// walkDirectory lists dir and recursively spawns children. rootAbs is the
// root's absolute path and relDir the path of dir relative to it (empty at
// the root itself), used to compute each FileRecord's RelPath.
func (w *Walker) walkDirectory(rootID int, rootAbs, dir, relDir string) {
	w.walkerWg.Add(1)
	go func() {
		defer w.walkerWg.Done()

		w.walkerSem.Acquire()
		defer w.walkerSem.Release()

		entries, err := listDir(dir)
		if err != nil {
			w.sendError(fmt.Errorf("read %s: %w", dir, err))
			return
		}

		for _, entry := range entries {
			fullPath := filepath.Join(dir, entry.Name())
			relPath := filepath.Join(relDir, entry.Name())

			if entry.IsDir() {
				if w.filter != nil && w.filter.ExcludesDir(relPath) {
					continue
				}
				w.walkDirectory(rootID, rootAbs, fullPath, relPath)
				continue
			}
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}

			w.stats.scannedFiles.Add(1)
			w.stats.scannedBytes.Add(info.Size())

			if info.Size() < w.minSize {
				continue
			}
			if w.filter != nil && !w.filter.Allows(relPath) {
				continue
			}

			rec := &types.FileRecord{
				RootID:  rootID,
				RelPath: relPath,
				AbsPath: fullPath,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				CTime:   ctime(info),
			}
			w.resultCh <- rec
			w.stats.matchedFiles.Add(1)
			w.stats.matchedBytes.Add(info.Size())
		}
		w.bar.Describe(w.stats)
	}()
}

// listDir reads a single directory using batched ReadDir to bound memory on
// directories with very large entry counts.
func listDir(dirPath string) ([]os.DirEntry, error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	var entries []os.DirEntry
	for {
		batch, err := dir.ReadDir(batchSize)
		entries = append(entries, batch...)
		if len(batch) == 0 {
			if err != nil && err != io.EOF {
				return entries, err
			}
			break
		}
	}
	return entries, nil
}

func (w *Walker) sendError(err error) {
	if w.errCh != nil {
		w.errCh <- err
	}
}
