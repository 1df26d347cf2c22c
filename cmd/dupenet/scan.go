package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/duperemote/dupenet/internal/driver"
	"github.com/duperemote/dupenet/internal/errs"
	"github.com/duperemote/dupenet/internal/executor"
	"github.com/duperemote/dupenet/internal/log"
	"github.com/duperemote/dupenet/internal/report"
	"github.com/duperemote/dupenet/internal/selection"
	"github.com/duperemote/dupenet/internal/types"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	minSizeStr   string
	excludes     []string
	filterFrom   string
	algorithm    string
	workers      int
	strategy     string
	mediaMode    bool
	mediaThresh  int
	mediaAllPair bool
	cacheFile    string
	fastMode     bool
	noProgress   bool
	verbose      bool
	dryRun       bool
	actionKind   string
	destDir      string
	outputPath   string
	outputFormat string
	logLevel     string
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		minSizeStr: "1",
		workers:    runtime.NumCPU(),
		algorithm:  string(types.AlgoSHA256),
		strategy:   string(selection.NewestModified),
		actionKind: "none",
		outputFormat: "textual",
		logLevel:   "info",
	}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan one or more roots (local paths or ssh: targets) for duplicate files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "Glob patterns to exclude")
	cmd.Flags().StringVar(&opts.filterFrom, "filter-from", "", "Path to a filter file (+/- prefixed glob rules)")
	cmd.Flags().StringVarP(&opts.algorithm, "algorithm", "a", opts.algorithm, "Hash algorithm (md5, sha1, sha256, blake3, xxhash64, gxhash, fnv1a, crc32)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", opts.workers, "Number of parallel workers")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", opts.strategy, "Selection strategy (newest_modified, oldest_modified, shortest_path, longest_path)")
	cmd.Flags().BoolVar(&opts.mediaMode, "media", false, "Enable perceptual media-similarity grouping")
	cmd.Flags().IntVar(&opts.mediaThresh, "media-threshold", 0, "Minimum media similarity percentage, 0-100 (0 = default 90)")
	cmd.Flags().BoolVar(&opts.mediaAllPair, "media-all-pairs", false, "Require all-pairs similarity instead of connected-components clustering")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to hash cache file (enables caching)")
	cmd.Flags().BoolVar(&opts.fastMode, "fast-mode", false, "Trust cached digests instead of rehashing (requires --cache-file)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show individual file operations")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Preview actions without executing them")
	cmd.Flags().StringVar(&opts.actionKind, "action", opts.actionKind, "Action to take on non-kept duplicates: none, delete, move, copy")
	cmd.Flags().StringVar(&opts.destDir, "dest", "",
		"Destination for move/copy actions: a local directory, or ssh:[user@]host[:port]:/path[:ssh_opts[:rsync_opts]] to transfer over rsync")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Write the report to this path instead of stdout")
	cmd.Flags().StringVar(&opts.outputFormat, "format", opts.outputFormat, "Report format: textual or table")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level: debug, info, warn, error")

	return cmd
}

func runScan(args []string, opts *scanOptions) error {
	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return withExitCode(exitInvalidArgs, fmt.Errorf("%w: invalid --min-size: %v", errs.ErrConfig, err))
	}
	if err := validateGlobPatterns(opts.excludes); err != nil {
		return withExitCode(exitInvalidArgs, fmt.Errorf("%w: invalid --exclude: %v", errs.ErrConfig, err))
	}
	if err := filterFileExists(opts.filterFrom); err != nil {
		return withExitCode(exitInvalidArgs, fmt.Errorf("%w: %v", errs.ErrConfig, err))
	}

	logger, err := log.New(opts.logLevel)
	if err != nil {
		return withExitCode(exitFatal, err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 256)
	perFileErrCount := 0
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for err := range errCh {
			perFileErrCount++
			fmt.Fprintf(os.Stderr, "%s %v\n", color.YellowString("warn:"), err)
		}
	}()

	result, err := driver.Run(ctx, driver.Options{
		RootArgs:          args,
		MinSize:           minSize,
		Excludes:          opts.excludes,
		FilterFile:        opts.filterFrom,
		Algorithm:         types.Algorithm(opts.algorithm),
		Workers:           opts.workers,
		SelectionStrategy: selection.Strategy(opts.strategy),
		MediaMode:         opts.mediaMode,
		MediaThreshold:    opts.mediaThresh,
		MediaAllPairs:     opts.mediaAllPair,
		CachePath:         opts.cacheFile,
		FastMode:          opts.fastMode,
		ShowProgress:      !opts.noProgress,
		ErrCh:             errCh,
	})
	close(errCh)
	<-errDone

	if err != nil {
		if ctx.Err() != nil {
			return withExitCode(exitCancelled, err)
		}
		return withExitCode(exitFatal, fmt.Errorf("%w: %v", errs.ErrTransport, err))
	}

	if opts.actionKind != "none" {
		execResults := executor.New(result.Sets, executor.Options{
			Kind:         executor.Kind(opts.actionKind),
			DestDir:      opts.destDir,
			DryRun:       opts.dryRun,
			Verbose:      opts.verbose,
			ShowProgress: !opts.noProgress,
		}, nil).Run()
		for _, r := range execResults {
			if r.Err != nil {
				perFileErrCount++
				logger.Error("action on %s failed: %v", r.Path, r.Err)
			} else if opts.verbose {
				logger.Info("%s", r.String())
			}
		}
	}

	rep := report.Build(types.Algorithm(opts.algorithm), args, result.Sets, func(set types.DuplicateSet) string {
		first := set.First()
		if first == nil {
			return ""
		}
		return result.Digests[first.AbsPath]
	}, report.Stats{
		FilesScanned: result.Stats.FilesScanned,
		BytesScanned: result.Stats.BytesScanned,
		SetsFound:    result.Sets.Len(),
		Cancelled:    result.Cancelled,
	})

	out := os.Stdout
	if opts.outputPath != "" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return withExitCode(exitFatal, err)
		}
		defer func() { _ = f.Close() }()
		if err := report.Write(f, rep, report.Format(opts.outputFormat)); err != nil {
			return withExitCode(exitFatal, err)
		}
	} else if err := report.Write(out, rep, report.Format(opts.outputFormat)); err != nil {
		return withExitCode(exitFatal, err)
	}

	if perFileErrCount > 0 {
		return withExitCode(exitPerFileErrors, fmt.Errorf("%w: %d file(s) reported errors", errs.ErrPerFile, perFileErrCount))
	}
	return nil
}
