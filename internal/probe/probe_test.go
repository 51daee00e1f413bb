package probe

import "testing"

func TestCapWorkersNoCapNeeded(t *testing.T) {
	workers, warning := CapWorkers(3, 10)
	if workers != 3 || warning != "" {
		t.Fatalf("expected no capping, got workers=%d warning=%q", workers, warning)
	}
}

func TestCapWorkersCapsAndWarns(t *testing.T) {
	workers, warning := CapWorkers(20, 5)
	if workers != 5 {
		t.Fatalf("expected workers capped to 5, got %d", workers)
	}
	if warning == "" {
		t.Fatal("expected a warning when capping")
	}
}

func TestCapWorkersIgnoresUnknownSeedCount(t *testing.T) {
	workers, warning := CapWorkers(20, 0)
	if workers != 20 || warning != "" {
		t.Fatalf("expected no capping when seed count is unknown (0), got workers=%d warning=%q", workers, warning)
	}
}
