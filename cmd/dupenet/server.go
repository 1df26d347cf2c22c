package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duperemote/dupenet/internal/driver"
	"github.com/duperemote/dupenet/internal/remote/server"
	"github.com/duperemote/dupenet/internal/remote/transport"
	"github.com/duperemote/dupenet/internal/selection"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:    "serve",
		Short:  "Run as a remote scan server for one ssh: session (C10)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "TCP port to listen on (loopback only); 0 picks an ephemeral port")

	return cmd
}

func runServe(ctx context.Context, port int) error {
	srv := server.New(port, scanPipeline)
	if err := srv.Serve(ctx); err != nil {
		return withExitCode(exitRemoteFailure, fmt.Errorf("serve: %w", err))
	}
	return nil
}

// scanPipeline adapts internal/driver into the server.Pipeline signature,
// running the full C1-C7 local pipeline against the roots the client asked
// for and reporting progress no more often than the server's own debounce
// already enforces.
func scanPipeline(ctx context.Context, cmd transport.CommandMsg, report func(transport.ProgressMsg)) (transport.ResultMsg, error) {
	errCh := make(chan error, 64)
	go func() {
		for range errCh {
			// per-file errors surface in ResultStats only; the server has no
			// side channel for them beyond the final result.
		}
	}()

	report(transport.ProgressMsg{Phase: "walk"})

	result, err := driver.Run(ctx, driver.Options{
		RootArgs:          cmd.Roots,
		Algorithm:         cmd.Algorithm,
		Workers:           cmd.Workers,
		SelectionStrategy: selection.NewestModified,
		MediaMode:         cmd.MediaMode,
		ShowProgress:      false,
		ErrCh:             errCh,
	})
	close(errCh)
	if err != nil {
		return transport.ResultMsg{}, err
	}

	report(transport.ProgressMsg{Phase: "group", ScannedCount: result.Stats.FilesScanned})

	sets := make([]transport.ResultSet, 0, result.Sets.Len())
	for _, set := range result.Sets.Items() {
		files := make([]transport.ResultFile, 0, set.Len())
		for _, f := range set.Files() {
			files = append(files, transport.ResultFile{
				Path:  f.AbsPath,
				Size:  f.Size,
				Mtime: f.ModTime.Unix(),
			})
		}
		digest := ""
		if first := set.First(); first != nil {
			digest = result.Digests[first.AbsPath]
		}
		sets = append(sets, transport.ResultSet{
			Digest:    digest,
			Files:     files,
			KeptIndex: set.KeptIndex,
		})
	}

	return transport.ResultMsg{
		Sets:      sets,
		Cancelled: result.Cancelled,
		Stats: transport.ResultStats{
			FilesScanned: result.Stats.FilesScanned,
			BytesScanned: result.Stats.BytesScanned,
			SetsFound:    result.Sets.Len(),
		},
	}, nil
}
