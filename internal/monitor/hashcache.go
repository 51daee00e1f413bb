package monitor

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// hashCache deduplicates crash/hang files across all workers' output
// directories by content hash, following the teacher's crash.CrashManager:
// crashMd5 := md5.Sum(crashData). Unlike the teacher, this cache never
// writes the content anywhere — the Monitor only counts unique findings, it
// does not take ownership of triage storage.
type hashCache struct {
	mu     sync.Mutex
	byPath map[string]string // file path -> content hash, to avoid re-hashing unchanged files
	hashes map[string]int    // content hash -> reference count
}

func newHashCache() *hashCache {
	return &hashCache{
		byPath: map[string]string{},
		hashes: map[string]int{},
	}
}

// sync rereads dir's current file list, incrementally hashing any path not
// already known and evicting any previously-known path in dir that is gone
// (afl-fuzz never deletes crashes, but the cache stays correct either way).
// Paths in other directories are left alone. It returns the current
// unique-hash count across every directory this cache has synced.
func (c *hashCache) sync(dir string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return len(c.hashes)
	}

	present := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "README.txt" || name[0] == '.' {
			continue
		}
		path := filepath.Join(dir, name)
		present[path] = true

		if _, known := c.byPath[path]; known {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sum := md5.Sum(data)
		hash := hex.EncodeToString(sum[:])
		c.byPath[path] = hash
		c.hashes[hash]++
	}

	for path, hash := range c.byPath {
		if present[path] || filepath.Dir(path) != filepath.Clean(dir) {
			continue
		}
		delete(c.byPath, path)
		c.hashes[hash]--
		if c.hashes[hash] <= 0 {
			delete(c.hashes, hash)
		}
	}

	return len(c.hashes)
}
