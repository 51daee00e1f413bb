// Package types holds the shared data model: CampaignSpec, WorkerPlan, and
// the monitor's snapshot types. Every other package operates on these.
package types

import (
	"fmt"
	"strings"
)

// Mode selects the diversification profile used by the Flag Assigner.
type Mode string

const (
	ModeDefault       Mode = "default"
	ModeMultipleCores Mode = "multiple-cores"
	ModeCIFuzzing     Mode = "ci-fuzzing"
)

// Backend selects the terminal multiplexer the Session Launcher targets.
type Backend string

const (
	BackendTmux   Backend = "tmux"
	BackendScreen Backend = "screen"
)

// AuxBinaries holds the optional instrumented companion builds a campaign
// may supply alongside the main target binary.
type AuxBinaries struct {
	Sanitizer         string
	ComparisonLog     string
	ComparisonCoverage string
	Coverage          string
}

// CampaignSpec is the immutable, fully-resolved description of a campaign.
// It is constructed once (by config-merge, out of scope here) and read by
// every downstream component.
type CampaignSpec struct {
	TargetBinary string
	Aux          AuxBinaries

	// TargetArgs is the tail passed to the target after "--". At most one
	// element may equal the placeholder token "@@".
	TargetArgs []string

	SeedDir       string
	SolutionDir   string
	DictPath      string // optional, "" when absent
	EngineBinary  string // path to afl-fuzz
	Workers       int
	Mode          Mode
	Seed          uint64
	SeedExplicit  bool // true when Seed was supplied by the caller rather than drawn
	SeedPassthrough bool // AFL_seed_passthrough: forward -s <wseed> to each worker

	ExtraFlags []string // free-form engine flags appended verbatim to every worker

	SessionName string
	Backend     Backend
}

// Placeholder is the token the fuzzer engine rewrites per-execution.
const Placeholder = "@@"

// Validate checks the structural invariants spec.md §3 assigns to
// CampaignSpec that do not require filesystem or environment access (those
// live in the Prober and the Assigner, which can produce warnings instead of
// hard failures).
func (s *CampaignSpec) Validate() error {
	if s.TargetBinary == "" {
		return fmt.Errorf("target binary path is required")
	}
	if s.SeedDir == "" {
		return fmt.Errorf("seed corpus directory is required")
	}
	if s.Workers < 1 {
		return fmt.Errorf("worker count must be >= 1, got %d", s.Workers)
	}

	placeholders := 0
	for _, a := range s.TargetArgs {
		if a == Placeholder {
			placeholders++
		}
	}
	if placeholders > 1 {
		return fmt.Errorf("target args contain %q more than once", Placeholder)
	}

	distinct := map[string]string{
		"sanitizer":           s.Aux.Sanitizer,
		"comparison-log":      s.Aux.ComparisonLog,
		"comparison-coverage": s.Aux.ComparisonCoverage,
		"coverage":            s.Aux.Coverage,
	}
	seen := make(map[string]string)
	for role, path := range distinct {
		if path == "" {
			continue
		}
		if otherRole, ok := seen[path]; ok {
			return fmt.Errorf("auxiliary binaries must be distinct files: %q used for both %s and %s", path, otherRole, role)
		}
		seen[path] = role
	}
	if s.Aux.ComparisonCoverage != "" && s.Aux.ComparisonLog != "" && s.Aux.ComparisonCoverage == s.Aux.ComparisonLog {
		return fmt.Errorf("comparison-coverage and comparison-log must not be the same worker assignment")
	}

	return nil
}

// Role is the AFL++ notion of worker identity: exactly one Main, the rest
// Secondary.
type Role string

const (
	RoleMain      Role = "main"
	RoleSecondary Role = "secondary"
)

// WorkerPlan is the fully resolved description of one worker invocation,
// produced once by the Flag Assigner and consumed by the Composer and the
// Launcher.
type WorkerPlan struct {
	Index int
	Role  Role
	Name  string // the -M/-S identifier, e.g. "sess_target" or "secondary_0_target"

	Env   map[string]string // environment overrides for this worker
	Flags []string          // ordered afl-fuzz flags, including -M/-S; -i/-o/-x are added by the Composer

	TargetBinary string
	TargetArgs   []string

	DerivedSeed uint64

	// Decisions records the diversification draws made for this worker, for
	// debugging/dry-run display. Not consumed by the Composer.
	Decisions map[string]string
}

// String renders a WorkerPlan for debugging; it is not used by the Composer.
func (p WorkerPlan) String() string {
	return fmt.Sprintf("worker[%d] role=%s name=%s flags=%s", p.Index, p.Role, p.Name, strings.Join(p.Flags, " "))
}
