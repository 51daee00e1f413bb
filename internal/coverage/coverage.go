// Package coverage implements the Coverage Orchestrator: running a
// coverage-instrumented target binary once per corpus input, merging the
// resulting profiles, and driving an external report tool. Per-input
// failures are tallied and reported but do not abort the run — only a
// failure in the external merge/report toolchain itself is fatal, since a
// handful of inputs crashing the coverage binary is expected corpus noise,
// not a orchestration bug.
package coverage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/pkg/telemetry"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Spec is the Coverage Orchestrator's input: the instrumented binary, the
// worker output directories whose queues should be replayed, and the
// external coverage toolchain to invoke once profiles are merged.
type Spec struct {
	Binary       string
	Args         []string
	WorkerDirs   []string // each worker's -o/<name> directory, queue/ is read from each
	WorkDir      string   // scratch root for per-input profiles, cleaned up by the caller
	MergedOut    string   // path the merged profile is written to
	ReportTool   string   // e.g. llvm-cov, invoked as `<report|show> -instr-profile=<merged> [flags]`
	ReportFlags  []string
	TextReport   bool
	SplitReports bool // one report per worker queue, instead of one merged report
}

// InputFailure records one input that made the coverage binary fail; these
// never abort the run, they are surfaced for the operator to see which
// queue entries were unreplayable.
type InputFailure struct {
	Input string
	Err   error
}

// Result is the Coverage Orchestrator's successful output.
type Result struct {
	InputsRun     int
	Failures      []InputFailure
	MergedProfile string
	Reports       []string // paths to the generated report(s)
}

// Run discovers every queue input under spec.WorkerDirs, replays the
// coverage binary against each with a bounded worker pool sized to the host
// CPU count (matching original_source/system_utils.rs's own CPU-count
// based concurrency choice), merges the resulting profiles, and drives the
// external report tool.
func Run(ctx context.Context, logger *zap.Logger, spec Spec) (*Result, error) {
	tracer := telemetry.NewTracer(logger, "coverage.run")
	tracer.Start()
	tracer.WithAttributes(telemetry.Attributes{
		"binary":        spec.Binary,
		"workers":       len(spec.WorkerDirs),
		"split_reports": spec.SplitReports,
	})
	defer tracer.End()

	result, err := run(ctx, logger, tracer, spec)
	if err != nil {
		tracer.SetError(err)
	}
	return result, err
}

func run(ctx context.Context, logger *zap.Logger, tracer telemetry.Tracer, spec Spec) (*Result, error) {
	inputs, err := discoverInputs(spec.WorkerDirs)
	if err != nil {
		return nil, &apperr.IoError{Path: "queue", Err: err}
	}
	if len(inputs) == 0 {
		return nil, &apperr.InvalidSpec{Reason: "no queue inputs found across worker output directories"}
	}
	tracer.AddEvent("inputs discovered", telemetry.Attributes{"count": len(inputs)})

	if err := os.MkdirAll(spec.WorkDir, 0o755); err != nil {
		return nil, &apperr.IoError{Path: spec.WorkDir, Err: err}
	}

	result := &Result{}

	if spec.SplitReports {
		for _, dir := range spec.WorkerDirs {
			perWorker := filterByDir(inputs, dir)
			if len(perWorker) == 0 {
				continue
			}
			profiles, failures, err := replayAll(ctx, logger, spec, perWorker)
			if err != nil {
				return nil, err
			}
			result.Failures = append(result.Failures, failures...)
			result.InputsRun += len(profiles)

			merged := filepath.Join(spec.WorkDir, filepath.Base(dir)+"-merged.profdata")
			if err := mergeProfiles(ctx, profiles, merged); err != nil {
				return nil, &apperr.CoverageToolFailed{Stage: "merge", Err: err}
			}
			report, err := runReportTool(ctx, spec, merged)
			if err != nil {
				return nil, &apperr.CoverageToolFailed{Stage: "report", Err: err}
			}
			result.Reports = append(result.Reports, report)
		}
		return result, nil
	}

	profiles, failures, err := replayAll(ctx, logger, spec, inputs)
	if err != nil {
		return nil, err
	}
	result.Failures = failures
	result.InputsRun = len(profiles)

	if err := mergeProfiles(ctx, profiles, spec.MergedOut); err != nil {
		return nil, &apperr.CoverageToolFailed{Stage: "merge", Err: err}
	}
	result.MergedProfile = spec.MergedOut

	report, err := runReportTool(ctx, spec, spec.MergedOut)
	if err != nil {
		return nil, &apperr.CoverageToolFailed{Stage: "report", Err: err}
	}
	result.Reports = []string{report}

	return result, nil
}

// replayAll runs the coverage binary against every input concurrently,
// bounded to the host's CPU count. A per-input failure is recorded via
// multierr and skipped; it never cancels the group.
func replayAll(ctx context.Context, logger *zap.Logger, spec Spec, inputs []string) ([]string, []InputFailure, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	type outcome struct {
		profile string
		failure *InputFailure
	}
	outcomes := make([]outcome, len(inputs))

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			profile, err := replayOne(gctx, spec, input)
			if err != nil {
				logger.Warn("coverage replay failed for input", zap.String("input", input), zap.Error(err))
				outcomes[i].failure = &InputFailure{Input: input, Err: err}
				return nil // non-fatal; continue replaying remaining inputs
			}
			outcomes[i].profile = profile
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var profiles []string
	var failures []InputFailure
	var errs error
	for _, o := range outcomes {
		if o.failure != nil {
			failures = append(failures, *o.failure)
			errs = multierr.Append(errs, o.failure.Err)
			continue
		}
		profiles = append(profiles, o.profile)
	}
	if errs != nil {
		logger.Debug("coverage replay completed with per-input failures", zap.Error(errs), zap.Int("failures", len(failures)))
	}

	return profiles, failures, nil
}

// replayOne runs spec.Binary against one input, writing its profile into a
// uuid-named scratch directory so concurrent runs never collide.
func replayOne(ctx context.Context, spec Spec, input string) (string, error) {
	scratch := filepath.Join(spec.WorkDir, uuid.New().String())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return "", err
	}

	profilePath := filepath.Join(scratch, "default.profraw")

	args := append([]string(nil), spec.Args...)
	for i, a := range args {
		if a == "@@" {
			args[i] = input
		}
	}
	if !containsPlaceholder(spec.Args) {
		args = append(args, input)
	}

	cmd := exec.CommandContext(ctx, spec.Binary, args...)
	cmd.Env = append(os.Environ(), "LLVM_PROFILE_FILE="+profilePath)

	if err := cmd.Run(); err != nil {
		if _, statErr := os.Stat(profilePath); statErr != nil {
			return "", fmt.Errorf("running coverage binary against %s: %w", input, err)
		}
	}

	if _, err := os.Stat(profilePath); err != nil {
		return "", fmt.Errorf("coverage binary produced no profile for %s: %w", input, err)
	}

	return profilePath, nil
}

func containsPlaceholder(args []string) bool {
	for _, a := range args {
		if a == "@@" {
			return true
		}
	}
	return false
}

func mergeProfiles(ctx context.Context, profiles []string, out string) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles to merge")
	}
	args := append([]string{"merge", "-sparse", "-o", out}, profiles...)
	cmd := exec.CommandContext(ctx, "llvm-profdata", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("llvm-profdata merge failed: %w (%s)", err, string(output))
	}
	return nil
}

func runReportTool(ctx context.Context, spec Spec, mergedProfile string) (string, error) {
	tool := spec.ReportTool
	if tool == "" {
		tool = "llvm-cov"
	}

	sub := "report"
	if !spec.TextReport {
		sub = "show"
	}

	args := []string{sub, "-instr-profile=" + mergedProfile}
	args = append(args, spec.ReportFlags...)

	cmd := exec.CommandContext(ctx, tool, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s failed: %w (%s)", tool, sub, err, string(output))
	}

	reportPath := mergedProfile + "." + sub + ".txt"
	if err := os.WriteFile(reportPath, output, 0o644); err != nil {
		return "", fmt.Errorf("writing report output: %w", err)
	}
	return reportPath, nil
}

// discoverInputs walks every worker's queue/ directory, deduplicating by
// file name so a seed imported into multiple queues via AFL_FINAL_SYNC is
// only replayed once.
func discoverInputs(workerDirs []string) ([]string, error) {
	seen := map[string]string{} // basename -> full path of the first copy found
	var names []string

	for _, dir := range workerDirs {
		queue := filepath.Join(dir, "queue")
		entries, err := os.ReadDir(queue)
		if err != nil {
			continue // a worker with no queue yet is not an error
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if _, ok := seen[name]; ok {
				continue
			}
			full := filepath.Join(queue, name)
			seen[name] = full
			names = append(names, name)
		}
	}

	sort.Strings(names)
	inputs := make([]string, len(names))
	for i, n := range names {
		inputs[i] = seen[n]
	}
	return inputs, nil
}

func filterByDir(inputs []string, dir string) []string {
	queue := filepath.Join(dir, "queue")
	var out []string
	for _, in := range inputs {
		if filepath.Dir(in) == queue {
			out = append(out, in)
		}
	}
	return out
}
