package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "dupenet",
		Short:   "Find and manage duplicate files, locally or over SSH",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		if code, ok := exitCodeFor(err); ok {
			return code
		}
		return exitFatal
	}
	return exitSuccess
}
