package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/config"
	"github.com/aflr-dev/aflr/internal/coverage"
	"github.com/aflr-dev/aflr/pkg/logger"
	"github.com/google/uuid"
)

// runCov drives the Coverage Orchestrator against an already-populated
// solution directory: replay every queue input through the
// coverage-instrumented binary, merge the resulting profiles, and run the
// external report tool.
func runCov(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cov", flag.ExitOnError)
	configPath := fs.String("config", "", "path to aflr_cfg.toml")
	binary := fs.String("coverage-binary", "", "coverage-instrumented target binary")
	targetArgs := fs.String("target-args", "@@", "space-separated target args")
	reportTool := fs.String("report-tool", "llvm-cov", "external report tool (llvm-cov, grcov, ...)")
	textReport := fs.Bool("text", false, "produce a text report instead of the default HTML-oriented show output")
	splitReports := fs.Bool("split", false, "produce one report per worker queue instead of a merged report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return &apperr.InvalidSpec{Reason: "cov requires a solution directory argument"}
	}
	solutionDir := fs.Arg(0)

	fc, err := config.Load(*configPath)
	if err != nil {
		return &apperr.InvalidSpec{Reason: err.Error()}
	}
	logr := logger.New(fc.AppConfig())

	binaryPath := firstNonEmpty(*binary, fc.Target.Coverage)
	if binaryPath == "" {
		return &apperr.InvalidSpec{Reason: "no coverage binary supplied via -coverage-binary or config"}
	}

	workerDirs, err := discoverWorkerDirs(solutionDir)
	if err != nil {
		return &apperr.IoError{Path: solutionDir, Err: err}
	}
	for i, name := range workerDirs {
		workerDirs[i] = filepath.Join(solutionDir, name)
	}

	workDir := filepath.Join(os.TempDir(), "aflr-cov-"+uuid.New().String())
	defer os.RemoveAll(workDir)

	result, err := coverage.Run(ctx, logr, coverage.Spec{
		Binary:       binaryPath,
		Args:         splitArgs(*targetArgs),
		WorkerDirs:   workerDirs,
		WorkDir:      workDir,
		MergedOut:    filepath.Join(solutionDir, "coverage.profdata"),
		ReportTool:   *reportTool,
		ReportFlags:  fc.Coverage.ExtraFlags,
		TextReport:   *textReport || fc.Coverage.TextReport,
		SplitReports: *splitReports || fc.Coverage.SplitReports,
	})
	if err != nil {
		return err
	}

	fmt.Printf("replayed %d inputs, %d failures\n", result.InputsRun, len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("  failed: %s (%v)\n", f.Input, f.Err)
	}
	for _, r := range result.Reports {
		fmt.Println("report:", r)
	}

	return nil
}
