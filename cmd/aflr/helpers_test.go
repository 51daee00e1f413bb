package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aflr-dev/aflr/internal/types"
)

func TestFirstNonEmptyPrefersEarlierNonEmptyValue(t *testing.T) {
	if got := firstNonEmpty("", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := firstNonEmpty("flag", "fallback"); got != "flag" {
		t.Fatalf("expected flag to win, got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestFirstNonZeroIntPrefersEarlierNonZeroValue(t *testing.T) {
	if got := firstNonZeroInt(0, 7); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := firstNonZeroInt(3, 7); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestSplitArgsHandlesPlaceholderAndEmpty(t *testing.T) {
	if got := splitArgs(""); got != nil {
		t.Fatalf("expected nil for empty string, got %v", got)
	}
	got := splitArgs("@@")
	if len(got) != 1 || got[0] != "@@" {
		t.Fatalf("expected single @@ token, got %v", got)
	}
	got = splitArgs("-i  @@   --flag")
	want := []string{"-i", "@@", "--flag"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCountSeedsCountsOnlyFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"seed1", "seed2"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	count, err := countSeeds(dir)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 seed files, got %d", count)
	}
}

func TestCapWorkersForSeedsLowersAndWarnsWhenSeedDirKnown(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed1"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	spec := &types.CampaignSpec{SeedDir: dir, Workers: 5}
	warning := capWorkersForSeeds(spec)
	if spec.Workers != 1 {
		t.Fatalf("expected workers capped to 1, got %d", spec.Workers)
	}
	if warning == "" {
		t.Fatal("expected a capping warning")
	}
}

func TestCapWorkersForSeedsNoOpWhenSeedDirMissing(t *testing.T) {
	spec := &types.CampaignSpec{SeedDir: filepath.Join(t.TempDir(), "missing"), Workers: 5}
	warning := capWorkersForSeeds(spec)
	if spec.Workers != 5 {
		t.Fatalf("expected workers unchanged, got %d", spec.Workers)
	}
	if warning != "" {
		t.Fatalf("expected no warning, got %q", warning)
	}
}
