package coverage

import (
	"os"
	"path/filepath"
	"testing"
)

func mkQueue(t *testing.T, workerDir string, names ...string) {
	t.Helper()
	queue := filepath.Join(workerDir, "queue")
	if err := os.MkdirAll(queue, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(queue, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverInputsDedupesAcrossWorkers(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main")
	sec := filepath.Join(root, "secondary_0")
	mkQueue(t, main, "id:000000,orig:seed1", "id:000001,orig:seed2")
	mkQueue(t, sec, "id:000000,orig:seed1", "id:000002,orig:seed3")

	inputs, err := discoverInputs([]string{main, sec})
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 3 {
		t.Fatalf("expected 3 deduplicated inputs, got %d: %v", len(inputs), inputs)
	}
}

func TestDiscoverInputsSkipsWorkersWithoutQueue(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "never-started")
	if err := os.MkdirAll(empty, 0o755); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(root, "main")
	mkQueue(t, main, "id:000000,orig:seed1")

	inputs, err := discoverInputs([]string{empty, main})
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
}

func TestFilterByDirRestrictsToOneWorkersQueue(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main")
	sec := filepath.Join(root, "secondary_0")
	mkQueue(t, main, "a")
	mkQueue(t, sec, "b")

	inputs, err := discoverInputs([]string{main, sec})
	if err != nil {
		t.Fatal(err)
	}

	filtered := filterByDir(inputs, main)
	if len(filtered) != 1 || filepath.Base(filtered[0]) != "a" {
		t.Fatalf("expected only main's entry, got %v", filtered)
	}
}

func TestContainsPlaceholder(t *testing.T) {
	if !containsPlaceholder([]string{"-x", "@@"}) {
		t.Fatal("expected placeholder to be detected")
	}
	if containsPlaceholder([]string{"-x", "fixed-arg"}) {
		t.Fatal("did not expect a placeholder to be detected")
	}
}
