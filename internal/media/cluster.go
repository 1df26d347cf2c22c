package media

import (
	"math/bits"

	"github.com/duperemote/dupenet/internal/types"
)

// fingerprintBits is the width of the perceptual hashes this package
// clusters (goimagehash.PerceptionHash, see image.go), used to convert a
// Hamming distance into a similarity percentage.
const fingerprintBits = 64

// DefaultThreshold is the minimum similarity percentage, on a 0-100 scale,
// for two perceptual hashes to be considered similar. similarity = 100 *
// (1 - hamming_distance/fingerprintBits).
const DefaultThreshold = 90

// ClusterMode selects how pairwise similarity is extended into clusters.
type ClusterMode string

const (
	// ConnectedComponents groups any two fingerprints transitively reachable
	// through a chain of pairwise-similar members. Cheap (single pass with
	// union-find) but can chain together a long sequence of only loosely
	// related files if the threshold is generous.
	ConnectedComponents ClusterMode = "connected_components"
	// AllPairs requires every member of a cluster to be within Threshold of
	// every other member, not just one neighbor. Stricter and more
	// expensive (pairwise check per candidate), avoiding the transitive
	// chaining connected-components allows.
	AllPairs ClusterMode = "all_pairs"
)

// Cluster groups fingerprints at least threshold percent similar (0-100
// scale) to each other into types.DuplicateSets, using mode to decide how
// transitivity is handled. Clusters of size 1 are discarded.
func Cluster(fingerprints []Fingerprint, threshold int, mode ClusterMode) types.DuplicateSets {
	switch mode {
	case AllPairs:
		return clusterAllPairs(fingerprints, threshold)
	default:
		return clusterConnectedComponents(fingerprints, threshold)
	}
}

func hamming(a, b uint64) int { return bits.OnesCount64(a ^ b) }

// similarity converts a Hamming distance between two fingerprintBits-wide
// hashes into a 0-100 percentage, per spec: similarity = 100 * (1 -
// hamming_distance/bits).
func similarity(a, b uint64) float64 {
	return 100 * (1 - float64(hamming(a, b))/float64(fingerprintBits))
}

func similar(a, b uint64, threshold int) bool {
	return similarity(a, b) >= float64(threshold)
}

func clusterConnectedComponents(fps []Fingerprint, threshold int) types.DuplicateSets {
	parent := make([]int, len(fps))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(fps); i++ {
		for j := i + 1; j < len(fps); j++ {
			if similar(fps[i].Hash, fps[j].Hash, threshold) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]*types.FileRecord)
	for i, fp := range fps {
		root := find(i)
		groups[root] = append(groups[root], fp.File)
	}

	return toDuplicateSets(groups)
}

func clusterAllPairs(fps []Fingerprint, threshold int) types.DuplicateSets {
	assigned := make([]bool, len(fps))
	var clusters [][]*types.FileRecord

	for i := range fps {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		for j := i + 1; j < len(fps); j++ {
			if assigned[j] {
				continue
			}
			fitsAll := true
			for _, m := range cluster {
				if !similar(fps[m].Hash, fps[j].Hash, threshold) {
					fitsAll = false
					break
				}
			}
			if fitsAll {
				cluster = append(cluster, j)
			}
		}
		if len(cluster) >= 2 {
			files := make([]*types.FileRecord, 0, len(cluster))
			for _, idx := range cluster {
				files = append(files, fps[idx].File)
				assigned[idx] = true
			}
			clusters = append(clusters, files)
		} else {
			assigned[i] = true
		}
	}

	var sets []types.DuplicateSet
	for _, files := range clusters {
		sets = append(sets, types.NewDuplicateSet(files))
	}
	return types.NewDuplicateSets(sets)
}

func toDuplicateSets(groups map[int][]*types.FileRecord) types.DuplicateSets {
	var sets []types.DuplicateSet
	for _, files := range groups {
		if len(files) >= 2 {
			sets = append(sets, types.NewDuplicateSet(files))
		}
	}
	return types.NewDuplicateSets(sets)
}
