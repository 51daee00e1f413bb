package main

import (
	"context"
	"flag"
	"time"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/config"
	"github.com/aflr-dev/aflr/internal/monitor"
	"github.com/aflr-dev/aflr/pkg/logger"
)

// runTUI attaches the dashboard to an already-running campaign's solution
// directory, discovering worker subdirectories rather than re-deriving them
// from a CampaignSpec. This is the path an operator uses to reattach after
// closing the terminal a `run` invocation was launched from.
func runTUI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	sessionName := fs.String("session", "aflr", "campaign session name, used only for the final summary's label")
	tick := fs.Duration("tick", time.Second, "poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return &apperr.InvalidSpec{Reason: "tui requires an output directory argument"}
	}
	solutionDir := fs.Arg(0)

	workerNames, err := discoverWorkerDirs(solutionDir)
	if err != nil {
		return &apperr.IoError{Path: solutionDir, Err: err}
	}
	if len(workerNames) == 0 {
		return &apperr.InvalidSpec{Reason: "no worker output directories found under " + solutionDir}
	}

	fc, err := config.Load("")
	if err != nil {
		return &apperr.InvalidSpec{Reason: err.Error()}
	}
	logr := logger.New(fc.AppConfig())
	lc := newLifecycle()
	mon := monitor.New(monitor.Params{Lc: lc, Logger: logr}, *sessionName, solutionDir, workerNames, *tick)
	lc.start(ctx)
	defer lc.stop(context.Background())

	return runDashboard(ctx, mon)
}
