// Package cache provides persistent caching of whole-file content digests.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/duperemote/dupenet/internal/types"
)

const bucketName = "digests"

// Cache provides persistent caching of file digests using BoltDB.
// Implements self-cleaning: each run creates a new database, only entries
// looked up or stored during the run survive into the next one.
type Cache struct {
	readDB  *bolt.DB // existing cache (read-only)
	writeDB *bolt.DB // new cache (write) - BoltDB locks this file
	path    string   // final path (for atomic swap)
	enabled bool
}

// Open opens the existing cache for reading and creates a new cache for
// writing. Returns a disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			c.readDB = nil
		}
	}

	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces old with new.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else {
			if err := os.Rename(c.path+".new", c.path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // increment when key format changes

// makeKey builds a deterministic byte key for BoltDB lookup.
// Key = ver(1) + algorithm + NUL + path + NUL + fileSize(8) + mtime(8)
func makeKey(fr *types.FileRecord, algo types.Algorithm) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteString(string(algo))
	buf.WriteByte(0)
	buf.WriteString(fr.AbsPath)
	buf.WriteByte(0)
	_ = binary.Write(buf, binary.BigEndian, fr.Size)
	_ = binary.Write(buf, binary.BigEndian, fr.ModTime.UnixNano())
	return buf.Bytes()
}

// Lookup retrieves a cached digest for a file under a given algorithm.
// Key = (algorithm, path, size, mtime) — any change is a cache miss.
// On hit, copies the entry into the new database (self-cleaning).
func (c *Cache) Lookup(fr *types.FileRecord, algo types.Algorithm) ([]byte, error) {
	if !c.enabled || c.readDB == nil {
		return nil, nil
	}

	key := makeKey(fr, algo)
	var digest []byte

	err := c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if len(data) > 0 {
			digest = make([]byte, len(data))
			copy(digest, data)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if digest == nil {
		return nil, nil
	}

	_ = c.Store(fr, algo, digest)
	return digest, nil
}

// Store saves a digest for a file under a given algorithm to the new database.
func (c *Cache) Store(fr *types.FileRecord, algo types.Algorithm, digest []byte) error {
	if !c.enabled || c.writeDB == nil || len(digest) == 0 {
		return nil
	}

	err := c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(fr, algo), digest)
	})
	if err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}
