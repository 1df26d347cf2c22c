// Package driver orchestrates a full scan: resolving roots (C8), running
// the local pipeline (C1-C7) or delegating to a remote server over the
// tunnel (C9-C11), joining media clusters in when enabled, and applying
// the selection policy (C5) to the combined result.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/duperemote/dupenet/internal/cache"
	"github.com/duperemote/dupenet/internal/grouper"
	"github.com/duperemote/dupenet/internal/hasher"
	"github.com/duperemote/dupenet/internal/media"
	"github.com/duperemote/dupenet/internal/remote/client"
	"github.com/duperemote/dupenet/internal/remote/resolver"
	"github.com/duperemote/dupenet/internal/remote/transport"
	"github.com/duperemote/dupenet/internal/selection"
	"github.com/duperemote/dupenet/internal/types"
	"github.com/duperemote/dupenet/internal/walker"
)

// Options configures one end-to-end scan.
type Options struct {
	RootArgs          []string // raw CLI root arguments, pre-resolver.Parse
	MinSize           int64
	Excludes          []string
	FilterFile        string
	Algorithm         types.Algorithm
	Workers           int
	SelectionStrategy selection.Strategy
	MediaMode         bool
	MediaThreshold    int
	MediaAllPairs     bool
	CachePath         string
	FastMode          bool // consult cache entries instead of always rehashing; requires CachePath
	ShowProgress      bool
	ErrCh             chan error

	// RemoteDial opens an SSH connection for a resolved remote Target; nil
	// disables remote scanning (remote roots become errors).
	RemoteDial client.SSHDialer
	// RemoteFallback forces the degraded stdout-parsing path (§4.11)
	// instead of attempting the tunnel first.
	RemoteFallback bool
}

// Result is the combined, selection-applied output of one scan.
type Result struct {
	Sets      types.DuplicateSets
	Digests   map[string]string // set's First().AbsPath -> hex digest, for report.Build
	Cancelled bool
	Stats     Stats
}

type Stats struct {
	FilesScanned int64
	BytesScanned int64
}

// Run executes the full scan described by opts.
func Run(ctx context.Context, opts Options) (Result, error) {
	filter, err := buildFilter(opts)
	if err != nil {
		return Result{}, fmt.Errorf("driver: %w", err)
	}

	var localPaths []string
	var remoteTargets []*resolver.Target
	for _, arg := range opts.RootArgs {
		tgt, err := resolver.Parse(arg)
		if err != nil {
			return Result{}, fmt.Errorf("driver: resolve root %q: %w", arg, err)
		}
		if tgt.Remote {
			remoteTargets = append(remoteTargets, tgt)
		} else {
			localPaths = append(localPaths, tgt.Path)
		}
	}

	var allSets []types.DuplicateSet
	digests := make(map[string]string)
	var stats Stats

	if len(localPaths) > 0 {
		sets, localStats, err := runLocal(ctx, opts, localPaths, filter, digests)
		if err != nil {
			return Result{}, err
		}
		allSets = append(allSets, sets.Items()...)
		stats.FilesScanned += localStats.FilesScanned
		stats.BytesScanned += localStats.BytesScanned
	}

	for _, tgt := range remoteTargets {
		sets, remoteStats, err := runRemote(ctx, opts, tgt, digests)
		if err != nil {
			return Result{}, err
		}
		allSets = append(allSets, sets...)
		stats.FilesScanned += remoteStats.FilesScanned
		stats.BytesScanned += remoteStats.BytesScanned
	}

	combined := types.NewDuplicateSets(allSets)
	selected, err := selection.Apply(opts.SelectionStrategy, combined)
	if err != nil {
		return Result{}, fmt.Errorf("driver: %w", err)
	}

	return Result{Sets: selected, Digests: digests, Stats: stats}, nil
}

func buildFilter(opts Options) (*walker.Filter, error) {
	f := walker.NewFilter(opts.Excludes)
	if opts.FilterFile != "" {
		file, err := openFilterFile(opts.FilterFile)
		if err != nil {
			return nil, fmt.Errorf("open filter file: %w", err)
		}
		defer func() { _ = file.Close() }()
		if err := f.ParseFilterFile(file); err != nil {
			return nil, fmt.Errorf("parse filter file: %w", err)
		}
	}
	return f, nil
}

func openFilterFile(path string) (*os.File, error) {
	return os.Open(path)
}

func runLocal(ctx context.Context, opts Options, paths []string, filter *walker.Filter, digests map[string]string) (types.DuplicateSets, Stats, error) {
	roots := make([]walker.Root, len(paths))
	for i, p := range paths {
		roots[i] = walker.Root{ID: i, Path: p}
	}

	w := walker.New(roots, opts.MinSize, filter, opts.Workers, opts.ShowProgress, opts.ErrCh)
	files := w.Run()

	stats := Stats{}
	for _, f := range files {
		stats.FilesScanned++
		stats.BytesScanned += f.Size
	}
	if len(files) == 0 {
		return types.NewDuplicateSets(nil), stats, nil
	}

	c, err := cache.Open(opts.CachePath)
	if err != nil {
		return types.DuplicateSets{}, stats, fmt.Errorf("driver: open cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	engine := hasher.New(opts.Algorithm, opts.Workers, opts.ShowProgress, opts.ErrCh, c, opts.FastMode)
	g := grouper.New(files, engine, opts.ShowProgress)
	sets := g.Run(ctx)

	for path, digest := range g.Digests() {
		digests[path] = digest
	}

	if opts.MediaMode {
		mediaSets := runMedia(ctx, opts, files)
		merged := append(sets.Items(), mediaSets.Items()...)
		sets = types.NewDuplicateSets(merged)
	}

	return sets, stats, nil
}

func runMedia(ctx context.Context, opts Options, files []*types.FileRecord) types.DuplicateSets {
	eng := media.New(nil, opts.Workers, opts.ShowProgress, opts.ErrCh)
	fingerprints := eng.Run(ctx, files)
	threshold := opts.MediaThreshold
	if threshold == 0 {
		threshold = media.DefaultThreshold
	}
	mode := media.ConnectedComponents
	if opts.MediaAllPairs {
		mode = media.AllPairs
	}
	return media.Cluster(fingerprints, threshold, mode)
}

func runRemote(ctx context.Context, opts Options, tgt *resolver.Target, digests map[string]string) ([]types.DuplicateSet, Stats, error) {
	if opts.RemoteDial == nil {
		return nil, Stats{}, fmt.Errorf("driver: remote root %s requires a configured SSH dialer", tgt)
	}

	cmd := transport.CommandMsg{
		Roots:     []string{tgt.Path},
		Algorithm: opts.Algorithm,
		Workers:   opts.Workers,
		MediaMode: opts.MediaMode,
		Encoding:  transport.Textual,
		Compress:  true,
	}

	var result transport.ResultMsg
	var err error
	if opts.RemoteFallback {
		result, err = client.RunFallback(ctx, opts.RemoteDial, tgt, cmd, nil)
	} else {
		tunnel := client.NewTunnel(opts.RemoteDial)
		result, err = client.RunScan(ctx, tunnel, tgt, cmd, nil)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("driver: remote scan of %s: %w", tgt, err)
	}

	sets := make([]types.DuplicateSet, 0, len(result.Sets))
	for _, rs := range result.Sets {
		files := make([]*types.FileRecord, 0, len(rs.Files))
		for _, rf := range rs.Files {
			files = append(files, &types.FileRecord{
				RootID:  -1,
				AbsPath: rf.Path,
				RelPath: rf.Path,
				Size:    rf.Size,
			})
		}
		set := types.NewDuplicateSet(files)
		set.KeptIndex = rs.KeptIndex
		sets = append(sets, set)
		if first := set.First(); first != nil {
			digests[first.AbsPath] = rs.Digest
		}
	}

	stats := Stats{FilesScanned: result.Stats.FilesScanned, BytesScanned: result.Stats.BytesScanned}
	return sets, stats, nil
}
