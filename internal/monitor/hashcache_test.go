package monitor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashCacheDedupesIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a", "same-bytes")
	write("b", "same-bytes")
	write("c", "different-bytes")

	c := newHashCache()
	if got := c.sync(dir); got != 2 {
		t.Fatalf("expected 2 unique hashes, got %d", got)
	}
}

func TestHashCacheEvictsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "only")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newHashCache()
	if got := c.sync(dir); got != 1 {
		t.Fatalf("expected 1 unique hash, got %d", got)
	}

	os.Remove(path)
	if got := c.sync(dir); got != 0 {
		t.Fatalf("expected 0 unique hashes after removal, got %d", got)
	}
}

func TestHashCacheMissingDirReturnsPriorCount(t *testing.T) {
	c := newHashCache()
	if got := c.sync(filepath.Join(t.TempDir(), "does-not-exist")); got != 0 {
		t.Fatalf("expected 0 for a never-populated cache, got %d", got)
	}
}
