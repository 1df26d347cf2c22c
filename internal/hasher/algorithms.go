package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"
	"hash/fnv"
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"

	"github.com/duperemote/dupenet/internal/types"
)

// stdHash adapts a stdlib hash.Hash to the Hasher interface.
type stdHash struct{ hash.Hash }

func (s stdHash) Sum() []byte { return s.Hash.Sum(nil) }

// maphashDigest adapts hash/maphash.Hash, the stand-in for gxhash: no Go
// ecosystem package implements gxhash (it is a Rust crate), so this wraps
// the fastest stdlib non-cryptographic hash available behind the same
// Hasher interface, documented here as a substitute rather than a port.
// Every digester shares gxSeed, so equal content gives equal digests within
// one process; the seed is random per process, so gxhash digests from
// different runs are not comparable.
type maphashDigest struct{ h maphash.Hash }

var gxSeed = maphash.MakeSeed()

func (m *maphashDigest) Write(p []byte) (int, error) { return m.h.Write(p) }
func (m *maphashDigest) Sum() []byte {
	sum := m.h.Sum64()
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return b
}

// newDigester returns a fresh Hasher for the given algorithm tag.
func newDigester(algo types.Algorithm) (Hasher, error) {
	switch algo {
	case types.AlgoMD5:
		return stdHash{md5.New()}, nil
	case types.AlgoSHA1:
		return stdHash{sha1.New()}, nil
	case types.AlgoSHA256:
		return stdHash{sha256.New()}, nil
	case types.AlgoBlake3:
		return stdHash{blake3.New(32, nil)}, nil
	case types.AlgoXXHash:
		return stdHash{xxhash.New()}, nil
	case types.AlgoFNV1a:
		return stdHash{fnv.New128a()}, nil
	case types.AlgoCRC32:
		return stdHash{crc32.NewIEEE()}, nil
	case types.AlgoGxHash:
		d := &maphashDigest{}
		d.h.SetSeed(gxSeed)
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}
