// Package selection implements the policies that choose which member of a
// duplicate set to keep, setting DuplicateSet.KeptIndex and Rationale.
package selection

import (
	"fmt"

	"github.com/duperemote/dupenet/internal/types"
)

// Strategy names a selection policy.
type Strategy string

const (
	// NewestModified keeps the member with the most recent ModTime.
	NewestModified Strategy = "newest_modified"
	// OldestModified keeps the member with the oldest ModTime.
	OldestModified Strategy = "oldest_modified"
	// ShortestPath keeps the member with the shortest AbsPath.
	ShortestPath Strategy = "shortest_path"
	// LongestPath keeps the member with the longest AbsPath.
	LongestPath Strategy = "longest_path"
)

// Apply picks the member to keep in each set according to strategy,
// returning a new DuplicateSets with KeptIndex and Rationale populated.
// newest_modified/oldest_modified break mtime ties by longest path, then
// lexicographically by AbsPath; shortest_path/longest_path break ties
// lexicographically by AbsPath directly. The outcome is reproducible
// across runs regardless of walk order.
func Apply(strategy Strategy, sets types.DuplicateSets) (types.DuplicateSets, error) {
	pick, err := picker(strategy)
	if err != nil {
		return types.DuplicateSets{}, err
	}

	resolved := make([]types.DuplicateSet, 0, sets.Len())
	for _, set := range sets.Items() {
		resolved = append(resolved, pick(set))
	}
	return types.NewDuplicateSets(resolved), nil
}

func picker(strategy Strategy) (func(types.DuplicateSet) types.DuplicateSet, error) {
	switch strategy {
	case NewestModified:
		return pickBy(func(a, b *types.FileRecord) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
			return len(a.AbsPath) > len(b.AbsPath)
		}, "newest modification time, longest path on tie"), nil
	case OldestModified:
		return pickBy(func(a, b *types.FileRecord) bool {
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.Before(b.ModTime)
			}
			return len(a.AbsPath) > len(b.AbsPath)
		}, "oldest modification time, longest path on tie"), nil
	case ShortestPath:
		return pickBy(func(a, b *types.FileRecord) bool { return len(a.AbsPath) < len(b.AbsPath) }, "shortest path"), nil
	case LongestPath:
		return pickBy(func(a, b *types.FileRecord) bool { return len(a.AbsPath) > len(b.AbsPath) }, "longest path"), nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", strategy)
	}
}

// pickBy builds a picker from a "better" comparator: better(a, b) reports
// whether a should be preferred over b, with any secondary tie-breaks
// already folded into better itself. Files are already sorted ascending
// by AbsPath (types.NewFileGroup), so iterating in order and only
// replacing the incumbent on a strict win gives a final lexicographic
// tie-break (smallest AbsPath wins) for free whenever better reports no
// preference either way.
func pickBy(better func(a, b *types.FileRecord) bool, rationale string) func(types.DuplicateSet) types.DuplicateSet {
	return func(set types.DuplicateSet) types.DuplicateSet {
		files := set.Files()
		bestIdx := 0
		for i := 1; i < len(files); i++ {
			if better(files[i], files[bestIdx]) {
				bestIdx = i
			}
		}
		set.KeptIndex = bestIdx
		set.Rationale = rationale
		return set
	}
}
