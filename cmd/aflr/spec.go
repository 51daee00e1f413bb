package main

import (
	"flag"
	"os"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/config"
	"github.com/aflr-dev/aflr/internal/types"
)

// campaignFlags is the flag.FlagSet shape shared by gen and run: both need a
// fully resolved CampaignSpec, differing only in what they do with the
// resulting WorkerPlans.
type campaignFlags struct {
	configPath   string
	target       string
	sanitizer    string
	cmplog       string
	cmpcov       string
	coverage     string
	seedDir      string
	solutionDir  string
	dict         string
	engine       string
	workers      int
	mode         string
	seed         uint64
	seedSet      bool
	passthrough  bool
	sessionName  string
	backend      string
	targetArgs   string
	dryRun       bool
}

func registerCampaignFlags(fs *flag.FlagSet, cf *campaignFlags) {
	fs.StringVar(&cf.configPath, "config", "", "path to aflr_cfg.toml (defaults to ./aflr_cfg.toml if present)")
	fs.StringVar(&cf.target, "target", "", "target binary path")
	fs.StringVar(&cf.sanitizer, "sanitizer-binary", "", "optional sanitizer-instrumented binary, used by the Main worker")
	fs.StringVar(&cf.cmplog, "cmplog-binary", "", "optional comparison-log binary")
	fs.StringVar(&cf.cmpcov, "cmpcov-binary", "", "optional comparison-coverage binary")
	fs.StringVar(&cf.coverage, "coverage-binary", "", "optional coverage-instrumented binary, used by `aflr cov`")
	fs.StringVar(&cf.seedDir, "seed-dir", "", "seed corpus directory")
	fs.StringVar(&cf.solutionDir, "solution-dir", "", "output/solution directory (afl-fuzz -o)")
	fs.StringVar(&cf.dict, "dict", "", "optional dictionary file (afl-fuzz -x)")
	fs.StringVar(&cf.engine, "engine", "", "path to afl-fuzz; resolved from $PATH/$AFL_PATH if empty")
	// These flags register with zero-value defaults, not the documented
	// ones: flag.FlagSet has no way to tell "unset" from "set to its
	// default", so baking the real default in here would make it always
	// win over a value from the TOML config file. resolve() applies the
	// documented defaults itself, after merging flags with the file.
	fs.IntVar(&cf.workers, "workers", 0, "number of afl-fuzz workers to launch (default 1)")
	fs.StringVar(&cf.mode, "mode", "", "diversification mode: default, multiple-cores, ci-fuzzing (default \"default\")")
	fs.Uint64Var(&cf.seed, "seed", 0, "campaign PRNG seed; a random seed is drawn if unset (0 counts as unset)")
	fs.BoolVar(&cf.passthrough, "seed-passthrough", false, "forward each worker's derived seed via afl-fuzz -s")
	fs.StringVar(&cf.sessionName, "session", "", "tmux/screen session name (default \"aflr\")")
	fs.StringVar(&cf.backend, "backend", "", "multiplexer backend: tmux or screen (default \"tmux\")")
	fs.StringVar(&cf.targetArgs, "target-args", "", "space-separated target args; @@ is replaced by afl-fuzz (default \"@@\")")
	fs.BoolVar(&cf.dryRun, "dry-run", false, "print the composed commands without launching anything")
}

// resolve merges campaignFlags over a loaded FileConfig (flags win) and
// produces a validated CampaignSpec. Seed is drawn from a fresh source only
// when neither the flag nor the config file supplies one; a caller-supplied
// seed round-trips unchanged. A -seed of 0 cannot be told apart from an
// unset flag and counts as unset; a seed of 0 from the config file is kept.
func (cf *campaignFlags) resolve() (types.CampaignSpec, *config.AppConfig, error) {
	fc, err := config.Load(cf.configPath)
	if err != nil {
		return types.CampaignSpec{}, nil, &apperr.InvalidSpec{Reason: err.Error()}
	}

	spec := types.CampaignSpec{
		TargetBinary: firstNonEmpty(cf.target, fc.Target.Binary),
		Aux: types.AuxBinaries{
			Sanitizer:          firstNonEmpty(cf.sanitizer, fc.Target.Sanitizer),
			ComparisonLog:      firstNonEmpty(cf.cmplog, fc.Target.ComparisonLog),
			ComparisonCoverage: firstNonEmpty(cf.cmpcov, fc.Target.ComparisonCoverage),
			Coverage:           firstNonEmpty(cf.coverage, fc.Target.Coverage),
		},
		SeedDir:         firstNonEmpty(cf.seedDir, fc.Target.SeedDir),
		SolutionDir:     firstNonEmpty(cf.solutionDir, fc.Target.SolutionDir),
		DictPath:        firstNonEmpty(cf.dict, fc.Target.DictPath),
		EngineBinary:    firstNonEmpty(cf.engine, fc.AFL.EngineBinary),
		Workers:         firstNonZeroInt(cf.workers, fc.AFL.Workers),
		Mode:            types.Mode(firstNonEmpty(cf.mode, fc.AFL.Mode)),
		SeedPassthrough: cf.passthrough || fc.AFL.SeedPassthrough,
		SessionName:     firstNonEmpty(cf.sessionName, fc.Session.Name),
		Backend:         types.Backend(firstNonEmpty(cf.backend, string(fc.Session.Backend))),
		ExtraFlags:      fc.AFL.ExtraFlags,
	}

	// Documented defaults, applied only now that flags and file config have
	// already been merged above — applying them earlier (e.g. as flag.FlagSet
	// defaults) would make them always win over a config file value, since a
	// flag's default is indistinguishable from a flag the user actually set.
	if spec.Workers == 0 {
		spec.Workers = 1
	}
	if spec.Mode == "" {
		spec.Mode = types.ModeDefault
	}
	if spec.SessionName == "" {
		spec.SessionName = "aflr"
	}
	if spec.Backend == "" {
		spec.Backend = types.BackendTmux
	}

	switch {
	case cf.targetArgs != "":
		spec.TargetArgs = splitArgs(cf.targetArgs)
	case len(fc.Target.Args) > 0:
		spec.TargetArgs = fc.Target.Args
	default:
		spec.TargetArgs = []string{"@@"}
	}

	switch {
	case cf.seed != 0:
		spec.Seed, spec.SeedExplicit = cf.seed, true
	case fc.AFL.Seed != nil:
		spec.Seed, spec.SeedExplicit = *fc.AFL.Seed, true
	default:
		spec.Seed, spec.SeedExplicit = drawRandomSeed(), false
	}

	if err := spec.Validate(); err != nil {
		return types.CampaignSpec{}, nil, &apperr.InvalidSpec{Reason: err.Error()}
	}

	return spec, fc.AppConfig(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	var cur []rune
	for _, r := range s {
		if r == ' ' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

// drawRandomSeed reads a fresh seed from the OS CSPRNG, only ever used when
// neither a flag nor a config value supplies one. This is the one place the
// tool intentionally does not use its portable SplitMix64 stream, since an
// unset seed has no prior state to derive from.
func drawRandomSeed() uint64 {
	var buf [8]byte
	if _, err := osReadRandom(buf[:]); err != nil {
		return 0x2545F4914F6CDD1D // fallback constant; still deterministic if /dev/urandom is unavailable
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

func osReadRandom(b []byte) (int, error) {
	f, err := os.Open("/dev/urandom")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Read(b)
}
