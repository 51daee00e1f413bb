package types

import "testing"

func validSpec() CampaignSpec {
	return CampaignSpec{
		TargetBinary: "/bin/target",
		SeedDir:      "/seeds",
		Workers:      2,
	}
}

func TestValidateRequiresTargetBinary(t *testing.T) {
	s := validSpec()
	s.TargetBinary = ""
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for missing target binary")
	}
}

func TestValidateRequiresSeedDir(t *testing.T) {
	s := validSpec()
	s.SeedDir = ""
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for missing seed dir")
	}
}

func TestValidateRequiresAtLeastOneWorker(t *testing.T) {
	s := validSpec()
	s.Workers = 0
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}

func TestValidateRejectsDuplicatePlaceholder(t *testing.T) {
	s := validSpec()
	s.TargetArgs = []string{Placeholder, "x", Placeholder}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for duplicate placeholder")
	}
}

func TestValidateAllowsSinglePlaceholder(t *testing.T) {
	s := validSpec()
	s.TargetArgs = []string{"x", Placeholder, "y"}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsSharedAuxiliaryBinaries(t *testing.T) {
	s := validSpec()
	s.Aux.Sanitizer = "/bin/aux"
	s.Aux.ComparisonLog = "/bin/aux"
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for two roles sharing one binary")
	}
}

func TestValidateRejectsComparisonLogAndCoverageSame(t *testing.T) {
	s := validSpec()
	s.Aux.ComparisonLog = "/bin/shared"
	s.Aux.ComparisonCoverage = "/bin/shared"
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for comparison-coverage == comparison-log")
	}
}

func TestValidateAcceptsDistinctAuxiliaries(t *testing.T) {
	s := validSpec()
	s.Aux.Sanitizer = "/bin/san"
	s.Aux.ComparisonLog = "/bin/cmplog"
	s.Aux.ComparisonCoverage = "/bin/cmpcov"
	s.Aux.Coverage = "/bin/cov"
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
