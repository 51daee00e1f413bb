package assign

import "github.com/aflr-dev/aflr/internal/types"

// powerSchedules lists every -p value AFL++ accepts, in the fixed order
// spec.md §4.2 enumerates them.
var powerSchedules = []string{"fast", "explore", "coe", "lin", "quad", "exploit", "rare"}

// profile bundles the per-mode diversification weights spec.md §4.2's table
// assigns. Constructing one of these per mode keeps assign() itself free of
// mode-specific branching beyond "look up the profile".
type profile struct {
	// powerScheduleWeights gives each -p value's relative weight for
	// secondaries. CIFuzzing's profile collapses this to a single
	// deterministic entry (explore, weight 1).
	powerScheduleWeights []weighted[string]

	mutationModeEnabled bool
	mutationModeWeights []weighted[string] // "-P explore" / "-P exploit"

	formatHintEnabled bool
	formatHintProb    float64 // probability *any* hint is applied
	formatHintWeights []weighted[string] // "-a text" / "-a binary", conditional on the above

	sequentialQueueEnabled bool
	sequentialQueueProb    float64 // -Z

	cmplogLevelEnabled bool // whether -l N accompanies an attached -c binary

	ergonomicToggleProb float64 // 0 disables all five toggles
}

// defaultProfile implements spec.md §4.2's "Default mode" column.
func defaultProfile() profile {
	weights := make([]weighted[string], len(powerSchedules))
	for i, s := range powerSchedules {
		weights[i] = weighted[string]{value: s, weight: 1}
	}
	return profile{
		powerScheduleWeights: weights,
		mutationModeEnabled:  false,
		formatHintEnabled:    false,
		sequentialQueueEnabled: false,
		cmplogLevelEnabled:   false,
		ergonomicToggleProb:  0.5,
	}
}

// multipleCoresProfile implements spec.md §4.2's "MultipleCores" column.
func multipleCoresProfile() profile {
	return profile{
		powerScheduleWeights: []weighted[string]{
			{value: "explore", weight: 40},
			{value: "coe", weight: 20},
			{value: "fast", weight: 10},
			{value: "lin", weight: 10},
			{value: "quad", weight: 10},
			{value: "exploit", weight: 10},
			{value: "rare", weight: 10},
		},
		mutationModeEnabled: true,
		mutationModeWeights: []weighted[string]{
			{value: "explore", weight: 60},
			{value: "exploit", weight: 40},
		},
		formatHintEnabled: true,
		formatHintProb:    0.30,
		formatHintWeights: []weighted[string]{
			{value: "text", weight: 1},
			{value: "binary", weight: 1},
		},
		sequentialQueueEnabled: true,
		sequentialQueueProb:    0.20,
		cmplogLevelEnabled:     true,
		ergonomicToggleProb:    0.5,
	}
}

// ciFuzzingProfile implements spec.md §4.2's "CIFuzzing" column: everything
// optional is switched off, power schedule is pinned.
func ciFuzzingProfile() profile {
	return profile{
		powerScheduleWeights: []weighted[string]{{value: "explore", weight: 1}},
		mutationModeEnabled:    false,
		formatHintEnabled:      false,
		sequentialQueueEnabled: false,
		cmplogLevelEnabled:     false,
		ergonomicToggleProb:    0,
	}
}

func profileFor(mode types.Mode) profile {
	switch mode {
	case types.ModeMultipleCores:
		return multipleCoresProfile()
	case types.ModeCIFuzzing:
		return ciFuzzingProfile()
	default:
		return defaultProfile()
	}
}

// ergonomicToggles is the fixed list of boolean AFL_* environment toggles
// each sampled independently per worker.
var ergonomicToggles = []string{
	"AFL_DISABLE_TRIM",
	"AFL_KEEP_TIMEOUTS",
	"AFL_EXPAND_HAVOC_NOW",
	"AFL_IGNORE_SEED_PROBLEMS",
	"AFL_IMPORT_FIRST",
}
