// Package executor carries out the action chosen for each duplicate set's
// non-kept members: delete, move, or copy, with an atomic-write discipline
// and a dry-run mode that reports without touching the filesystem.
//
// # Processing Pipeline
//
//	Input: types.DuplicateSets (KeptIndex already resolved by selection)
//	    │
//	    ├──► For each set:
//	    │        │
//	    │        └──► For each Candidate() (every member except Kept()):
//	    │                 │
//	    │                 ├──► verify mtime unchanged (safety check)
//	    │                 └──► Delete / MoveTo / CopyTo
//	    │
//	    └──► Output: stats (files processed, bytes reclaimed)
//
// # Safety Mechanisms
//
//   - Mtime verification prevents acting on a file modified since it was
//     grouped
//   - Atomic replacement via temp file + rename for Move/Copy
//   - Dry-run mode for previewing changes
package executor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/duperemote/dupenet/internal/progress"
	"github.com/duperemote/dupenet/internal/remote/resolver"
	"github.com/duperemote/dupenet/internal/types"
)

// Kind names the action applied to each duplicate set's candidates.
type Kind string

const (
	Delete Kind = "delete"
	Move   Kind = "move"
	Copy   Kind = "copy"
)

// Options configures an Executor run.
type Options struct {
	Kind    Kind
	DestDir string // required for Move and Copy; joined with each file's RelPath
	// DestDir may also be an "ssh:[user@]host[:port]:/path[:ssh_opts[:transfer_opts]]"
	// URI (see internal/remote/resolver), in which case transfers delegate
	// to rsync instead of the local filesystem.
	DryRun       bool
	Verbose      bool
	ShowProgress bool
}

// Executor applies Options.Kind to every non-kept member of a set of
// DuplicateSets.
//
// Designed for single use: create with New, call Run once.
type Executor struct {
	sets  types.DuplicateSets
	opts  Options
	errCh chan error

	destTarget *resolver.Target // non-nil when DestDir names a remote host
	destErr    error            // set if DestDir failed to parse as a remote URI
}

// New creates an Executor. If opts.DestDir is a remote "ssh:" target, Move
// and Copy delegate each transfer to rsync (see internal/executor/remote.go)
// instead of the local filesystem.
func New(sets types.DuplicateSets, opts Options, errCh chan error) *Executor {
	e := &Executor{sets: sets, opts: opts, errCh: errCh}
	if opts.DestDir != "" && (opts.Kind == Move || opts.Kind == Copy) {
		tgt, err := resolver.Parse(opts.DestDir)
		switch {
		case err != nil:
			e.destErr = fmt.Errorf("parse destination: %w", err)
		case tgt.Remote:
			e.destTarget = tgt
		}
	}
	return e
}

type stats struct {
	totalFiles     int
	processedFiles int
	reclaimedBytes int64
	startTime      time.Time
}

func (s *stats) String() string {
	pct := 0.0
	if s.totalFiles > 0 {
		pct = float64(s.processedFiles) / float64(s.totalFiles) * 100
	}
	return fmt.Sprintf("Processed %d/%d files (%.0f%%), reclaimed %s in %.1fs",
		s.processedFiles, s.totalFiles, pct, humanize.IBytes(uint64(s.reclaimedBytes)), time.Since(s.startTime).Seconds())
}

// Result records the outcome of one file action.
type Result struct {
	Path   string
	Kind   Kind
	Dest   string // empty for Delete
	Bytes  int64
	Err    error
	Dryrun bool
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("SKIP %s: %v", r.Path, r.Err)
	}
	verb := map[Kind]string{Delete: "DELETE", Move: "MOVE", Copy: "COPY"}[r.Kind]
	if r.Dryrun {
		verb = "[dry-run] " + verb
	}
	if r.Dest != "" {
		return fmt.Sprintf("%s %s -> %s", verb, r.Path, r.Dest)
	}
	return fmt.Sprintf("%s %s", verb, r.Path)
}

// Run executes the configured action against every duplicate set, returning
// one Result per candidate file attempted.
func (e *Executor) Run() []Result {
	bar := progress.New(e.opts.ShowProgress, -1)
	total := 0
	for _, set := range e.sets.Items() {
		total += len(set.Candidates())
	}
	st := &stats{totalFiles: total, startTime: time.Now()}
	bar.Describe(st)

	var results []Result
	for _, set := range e.sets.Items() {
		for _, target := range set.Candidates() {
			r := e.apply(target)
			results = append(results, r)
			if r.Err != nil {
				e.sendError(fmt.Errorf("%s: %w", r.Path, r.Err))
			} else {
				st.processedFiles++
				st.reclaimedBytes += r.Bytes
			}
			if e.opts.Verbose {
				fmt.Fprintln(os.Stdout, r)
			}
			bar.Describe(st)
		}
	}
	bar.Finish(st)
	return results
}

// apply carries out the configured action on a single candidate file,
// after verifying its mtime is unchanged since it was grouped.
func (e *Executor) apply(target *types.FileRecord) Result {
	info, err := os.Stat(target.AbsPath)
	if err != nil {
		return Result{Path: target.AbsPath, Kind: e.opts.Kind, Err: fmt.Errorf("stat: %w", err)}
	}
	if !info.ModTime().Equal(target.ModTime) {
		return Result{Path: target.AbsPath, Kind: e.opts.Kind, Err: errors.New("file modified since grouping")}
	}

	switch e.opts.Kind {
	case Delete:
		return e.applyDelete(target)
	case Move:
		return e.applyTransfer(target, true)
	case Copy:
		return e.applyTransfer(target, false)
	default:
		return Result{Path: target.AbsPath, Err: fmt.Errorf("unknown action kind %q", e.opts.Kind)}
	}
}

func (e *Executor) applyDelete(target *types.FileRecord) Result {
	if e.opts.DryRun {
		return Result{Path: target.AbsPath, Kind: Delete, Bytes: target.Size, Dryrun: true}
	}
	if err := os.Remove(target.AbsPath); err != nil {
		return Result{Path: target.AbsPath, Kind: Delete, Err: err}
	}
	return Result{Path: target.AbsPath, Kind: Delete, Bytes: target.Size}
}

// applyTransfer moves or copies target into opts.DestDir, preserving its
// RelPath. removeSource selects Move (true) vs Copy (false).
func (e *Executor) applyTransfer(target *types.FileRecord, removeSource bool) Result {
	kind := Copy
	if removeSource {
		kind = Move
	}
	if e.opts.DestDir == "" {
		return Result{Path: target.AbsPath, Kind: kind, Err: errors.New("no destination directory configured")}
	}
	if e.destErr != nil {
		return Result{Path: target.AbsPath, Kind: kind, Err: e.destErr}
	}
	if e.destTarget != nil {
		return e.applyRemoteTransfer(target, kind, removeSource)
	}
	dest := filepath.Join(e.opts.DestDir, target.RelPath)

	if e.opts.DryRun {
		return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Bytes: target.Size, Dryrun: true}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{Path: target.AbsPath, Kind: kind, Err: fmt.Errorf("mkdir: %w", err)}
	}

	if removeSource {
		if err := os.Rename(target.AbsPath, dest); err == nil {
			return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Bytes: target.Size}
		} else if !errors.Is(err, syscall.EXDEV) {
			return Result{Path: target.AbsPath, Kind: kind, Err: err}
		}
		// cross-device: fall through to copy-then-remove
	}

	if err := atomicCopy(target.AbsPath, dest, target.ModTime); err != nil {
		return Result{Path: target.AbsPath, Kind: kind, Err: err}
	}
	if removeSource {
		if err := os.Remove(target.AbsPath); err != nil {
			return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Err: fmt.Errorf("copied but failed to remove source: %w", err)}
		}
	}
	return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Bytes: target.Size}
}

// applyRemoteTransfer delegates target's transfer to rsync against a
// destination parsed as a remote "ssh:" target. On a Move, the local source
// is removed only after rsync reports success.
func (e *Executor) applyRemoteTransfer(target *types.FileRecord, kind Kind, removeSource bool) Result {
	dest := remoteSpec(e.destTarget, target.RelPath)

	if e.opts.DryRun {
		return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Bytes: target.Size, Dryrun: true}
	}

	if err := remoteTransfer(target.AbsPath, e.destTarget, target.RelPath); err != nil {
		return Result{Path: target.AbsPath, Kind: kind, Err: err}
	}
	if removeSource {
		if err := os.Remove(target.AbsPath); err != nil {
			return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Err: fmt.Errorf("transferred but failed to remove source: %w", err)}
		}
	}
	return Result{Path: target.AbsPath, Kind: kind, Dest: dest, Bytes: target.Size}
}

// atomicCopy copies src to dest via a temp file in dest's directory,
// renamed into place once the copy completes, so a reader never observes a
// partially written destination. The copy preserves mtime, per spec.
func atomicCopy(src, dest string, modTime time.Time) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dest + ".dupenet.tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chtimes(tmp, modTime, modTime); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (e *Executor) sendError(err error) {
	if e.errCh != nil {
		e.errCh <- err
	}
}
