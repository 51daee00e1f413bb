// Package assign implements the Flag Assigner: it turns one CampaignSpec and
// one probe.Snapshot into N WorkerPlans. Every WorkerPlan is a pure function
// of (spec, snapshot, worker index) given a fixed campaign seed, which is
// what lets the Session Launcher re-derive an identical plan on a dry run and
// what spec.md §8's determinism property exercises.
package assign

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/probe"
	"github.com/aflr-dev/aflr/internal/types"
)

// Assign produces one WorkerPlan per worker in spec. It is deterministic:
// two calls with an identical spec.Seed produce byte-identical plans,
// independent of snapshot (Assign does not read snapshot).
func Assign(spec types.CampaignSpec, snap probe.Snapshot) ([]types.WorkerPlan, error) {
	if err := spec.Validate(); err != nil {
		return nil, &apperr.InvalidSpec{Reason: err.Error()}
	}

	seedCount, err := countSeedFiles(spec.SeedDir)
	if err != nil {
		return nil, &apperr.InvalidSpec{Reason: fmt.Sprintf("could not read seed directory %s: %v", spec.SeedDir, err)}
	}
	if seedCount > 0 && spec.Workers > seedCount {
		return nil, &apperr.InvalidSpec{Reason: fmt.Sprintf(
			"worker count %d exceeds available seed file count %d", spec.Workers, seedCount,
		)}
	}

	if err := checkBinariesExist(spec); err != nil {
		return nil, err
	}

	if spec.Mode == types.ModeCIFuzzing && (spec.Aux.ComparisonLog != "" || spec.Aux.ComparisonCoverage != "") {
		// Ignored, not rejected: Assign declines to use the binaries below.
		// No warning is emitted for this case, here or in cmd/aflr.
	}

	prof := profileFor(spec.Mode)
	rng := newSplitMix64(spec.Seed)

	secondaryIdx := secondaryIndices(spec.Workers)
	cmplogSet, cmpcovSet := partitionAuxAssignment(rng, spec, secondaryIdx)

	plans := make([]types.WorkerPlan, spec.Workers)
	stem := targetStem(spec.TargetBinary)

	for i := 0; i < spec.Workers; i++ {
		plan := types.WorkerPlan{
			Index:        i,
			TargetBinary: spec.TargetBinary,
			TargetArgs:   append([]string(nil), spec.TargetArgs...),
			Env:          map[string]string{},
			Decisions:    map[string]string{},
			DerivedSeed:  mixSeed(spec.Seed, i),
		}

		if i == 0 {
			plan.Role = types.RoleMain
			plan.Name = fmt.Sprintf("%s_%s", spec.SessionName, stem)
			if spec.Aux.Sanitizer != "" {
				plan.TargetBinary = spec.Aux.Sanitizer
				plan.Decisions["binary"] = "sanitizer"
			}
			plan.Flags = append(plan.Flags, "-M", plan.Name)
			plan.Flags = append(plan.Flags, "-p", "fast")
			plan.Decisions["power_schedule"] = "fast"
		} else {
			secondaryN := i - 1
			plan.Role = types.RoleSecondary
			plan.Name = fmt.Sprintf("secondary_%d_%s", secondaryN, stem)
			plan.Flags = append(plan.Flags, "-S", plan.Name)

			schedule := sampleCategorical(rng, prof.powerScheduleWeights)
			plan.Flags = append(plan.Flags, "-p", schedule)
			plan.Decisions["power_schedule"] = schedule

			if prof.mutationModeEnabled {
				mode := sampleCategorical(rng, prof.mutationModeWeights)
				plan.Flags = append(plan.Flags, "-P", mode)
				plan.Decisions["mutation_mode"] = mode
			}

			if prof.formatHintEnabled && bernoulli(rng, prof.formatHintProb) {
				hint := sampleCategorical(rng, prof.formatHintWeights)
				plan.Flags = append(plan.Flags, "-a", hint)
				plan.Decisions["format_hint"] = hint
			}

			if prof.sequentialQueueEnabled && bernoulli(rng, prof.sequentialQueueProb) {
				plan.Flags = append(plan.Flags, "-Z")
				plan.Decisions["sequential_queue"] = "true"
			}

			switch {
			case cmpcovSet[secondaryN] && spec.Aux.ComparisonCoverage != "":
				plan.TargetBinary = spec.Aux.ComparisonCoverage
				plan.Decisions["binary"] = "comparison-coverage"
			case cmplogSet[secondaryN] && spec.Aux.ComparisonLog != "":
				plan.Flags = append(plan.Flags, "-c", spec.Aux.ComparisonLog)
				plan.Decisions["binary"] = "plain+comparison-log"
				if prof.cmplogLevelEnabled {
					level := sampleCategorical(rng, []weighted[string]{
						{value: "2", weight: 3},
						{value: "3", weight: 1},
					})
					plan.Flags = append(plan.Flags, "-l", level)
					plan.Decisions["cmplog_level"] = level
				}
			default:
				plan.Decisions["binary"] = "plain"
			}
		}

		for _, toggle := range ergonomicToggles {
			if bernoulli(rng, prof.ergonomicToggleProb) {
				plan.Env[toggle] = "1"
				plan.Decisions[toggle] = "1"
			}
		}

		plan.Env["AFL_AUTORESUME"] = "1"
		plan.Env["AFL_TESTCACHE_SIZE"] = "250"

		if spec.SeedPassthrough {
			plan.Flags = append(plan.Flags, "-s", fmt.Sprintf("%d", plan.DerivedSeed))
		}

		plan.Flags = append(plan.Flags, spec.ExtraFlags...)

		plans[i] = plan
	}

	plans[len(plans)-1].Env["AFL_FINAL_SYNC"] = "1"
	plans[len(plans)-1].Decisions["AFL_FINAL_SYNC"] = "1"

	return plans, nil
}

// secondaryIndices returns 0..workers-2, the zero-based secondary indices
// for a campaign of the given worker count (worker 0 is always Main).
func secondaryIndices(workers int) []int {
	idx := make([]int, 0, workers-1)
	for i := 0; i < workers-1; i++ {
		idx = append(idx, i)
	}
	return idx
}

// partitionAuxAssignment implements spec.md §4.2's binary assignment policy
// for the comparison-log and comparison-coverage auxiliary binaries: a
// shuffled, disjoint split of the secondary pool. Shuffling (rather than
// taking a fixed prefix) keeps the assignment from always landing on the
// lowest-indexed secondaries, while remaining fully determined by the
// campaign seed.
func partitionAuxAssignment(rng *splitMix64, spec types.CampaignSpec, secondaryIdx []int) (cmplog, cmpcov map[int]bool) {
	cmplog = map[int]bool{}
	cmpcov = map[int]bool{}

	if spec.Mode == types.ModeCIFuzzing {
		return cmplog, cmpcov
	}

	n := len(secondaryIdx)
	if n == 0 {
		return cmplog, cmpcov
	}

	shuffled := append([]int(nil), secondaryIdx...)
	for i := n - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	cursor := 0

	if spec.Aux.ComparisonLog != "" {
		count := n / 3
		if count < 1 {
			count = 1
		}
		if max := n / 2; count > max {
			count = max
		}
		if count > n {
			count = n
		}
		for _, idx := range shuffled[cursor : cursor+count] {
			cmplog[idx] = true
		}
		cursor += count
	}

	if spec.Aux.ComparisonCoverage != "" {
		count := n / 6
		if count > n-cursor {
			count = n - cursor
		}
		for _, idx := range shuffled[cursor : cursor+count] {
			cmpcov[idx] = true
		}
		cursor += count
	}

	return cmplog, cmpcov
}

func countSeedFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count, nil
}

func checkBinariesExist(spec types.CampaignSpec) error {
	candidates := []string{spec.TargetBinary, spec.EngineBinary}
	if spec.Aux.Sanitizer != "" {
		candidates = append(candidates, spec.Aux.Sanitizer)
	}
	if spec.Mode != types.ModeCIFuzzing {
		if spec.Aux.ComparisonLog != "" {
			candidates = append(candidates, spec.Aux.ComparisonLog)
		}
		if spec.Aux.ComparisonCoverage != "" {
			candidates = append(candidates, spec.Aux.ComparisonCoverage)
		}
	}
	sort.Strings(candidates)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err != nil {
			return &apperr.InvalidSpec{Reason: fmt.Sprintf("referenced binary %s is missing: %v", c, err)}
		}
	}
	return nil
}

func targetStem(path string) string {
	base := filepath.Base(path)
	return base
}
