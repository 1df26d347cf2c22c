// Package report renders a scan's duplicate sets into the two output
// formats named by spec §6: textual-structured (JSON) and
// table-structured (aligned columns via text/tabwriter).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/duperemote/dupenet/internal/types"
)

// Format selects the report's rendering.
type Format string

const (
	Textual Format = "textual"
	Table   Format = "table"
)

// Stats summarizes a completed scan for inclusion in the report.
type Stats struct {
	FilesScanned int64 `json:"files_scanned"`
	BytesScanned int64 `json:"bytes_scanned"`
	SetsFound    int   `json:"sets_found"`
	Cancelled    bool  `json:"cancelled"`
}

// Report is the top-level structure written to the output path.
type Report struct {
	Algorithm     types.Algorithm `json:"algorithm"`
	Roots         []string        `json:"roots"`
	DuplicateSets []SetEntry      `json:"duplicate_sets"`
	Stats         Stats           `json:"stats"`
}

// SetEntry is one duplicate set's report shape: the files in it plus
// which index the selection policy kept.
type SetEntry struct {
	Digest    string      `json:"digest"`
	Files     []FileEntry `json:"files"`
	KeptIndex int         `json:"kept_index"`
}

// FileEntry describes a single file within a duplicate set.
type FileEntry struct {
	Path  string    `json:"path"`
	Size  int64     `json:"size"`
	Mtime time.Time `json:"mtime"`
}

// Build assembles a Report from a completed grouping/selection run.
// digestOf looks up the hex digest string for a set's first file; the
// grouper/selection stages operate on types.DuplicateSets directly and
// don't retain per-set digests themselves, so callers that already have
// them (internal/driver) pass a lookup closure instead of threading a
// parallel slice through.
func Build(algo types.Algorithm, roots []string, sets types.DuplicateSets, digestOf func(types.DuplicateSet) string, stats Stats) Report {
	entries := make([]SetEntry, 0, sets.Len())
	for _, set := range sets.Items() {
		files := make([]FileEntry, 0, set.Len())
		for _, f := range set.Files() {
			files = append(files, FileEntry{Path: f.AbsPath, Size: f.Size, Mtime: f.ModTime})
		}
		entries = append(entries, SetEntry{
			Digest:    digestOf(set),
			Files:     files,
			KeptIndex: set.KeptIndex,
		})
	}
	return Report{
		Algorithm:     algo,
		Roots:         roots,
		DuplicateSets: entries,
		Stats:         stats,
	}
}

// Write renders r to w in the requested format.
func Write(w io.Writer, r Report, format Format) error {
	switch format {
	case Table:
		return writeTable(w, r)
	default:
		return writeTextual(w, r)
	}
}

func writeTextual(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode textual report: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DIGEST\tKEPT\tSIZE\tPATH\n")
	for _, set := range r.DuplicateSets {
		shortDigest := set.Digest
		if len(shortDigest) > 12 {
			shortDigest = shortDigest[:12]
		}
		for i, f := range set.Files {
			kept := ""
			if i == set.KeptIndex {
				kept = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", shortDigest, kept, f.Size, f.Path)
		}
	}
	fmt.Fprintf(tw, "\n")
	fmt.Fprintf(tw, "sets found:\t%d\n", r.Stats.SetsFound)
	fmt.Fprintf(tw, "files scanned:\t%d\n", r.Stats.FilesScanned)
	fmt.Fprintf(tw, "bytes scanned:\t%d\n", r.Stats.BytesScanned)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: flush table report: %w", err)
	}
	return nil
}
