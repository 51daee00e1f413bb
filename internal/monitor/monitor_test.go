package monitor

import (
	"testing"
	"time"

	"github.com/aflr-dev/aflr/internal/types"
)

func TestLoadHistoryMissingFileReturnsEmpty(t *testing.T) {
	entries, err := LoadHistory(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("unexpected error for missing history file: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}

func TestAppendHistoryThenLoadHistoryRoundTrips(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		entry := types.RunHistoryEntry{
			SessionName: "sess",
			StartedAt:   time.Now(),
			EndedAt:     time.Now(),
			WorkerCount: i + 1,
			TotalExecs:  uint64(i * 100),
		}
		if err := appendHistory(dir, entry); err != nil {
			t.Fatalf("appendHistory failed: %v", err)
		}
	}

	entries, err := LoadHistory(dir, 5)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].WorkerCount != 1 || entries[2].WorkerCount != 3 {
		t.Fatalf("expected entries in append order, got %+v", entries)
	}
}

func TestLoadHistoryCapsToLastN(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 7; i++ {
		entry := types.RunHistoryEntry{SessionName: "sess", TotalExecs: uint64(i)}
		if err := appendHistory(dir, entry); err != nil {
			t.Fatalf("appendHistory failed: %v", err)
		}
	}

	entries, err := LoadHistory(dir, 5)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[0].TotalExecs != 2 || entries[4].TotalExecs != 6 {
		t.Fatalf("expected last 5 entries in order, got %+v", entries)
	}
}

func TestHistoryEntryDerivesDurationFromSummary(t *testing.T) {
	started := time.Now().Add(-time.Hour)
	ended := time.Now()
	summary := types.CampaignSummary{
		SessionName:   "sess",
		StartedAt:     started,
		EndedAt:       ended,
		WorkerCount:   2,
		TotalExecs:    500,
		UniqueCrashes: 1,
		UniqueHangs:   0,
		FinalExecRate: 42.5,
	}

	entry := historyEntry(summary)
	if entry.Duration != ended.Sub(started) {
		t.Fatalf("expected duration %v, got %v", ended.Sub(started), entry.Duration)
	}
	if entry.SessionName != "sess" || entry.WorkerCount != 2 || entry.TotalExecs != 500 {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
}
