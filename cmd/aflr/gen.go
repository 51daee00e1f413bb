package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/aflr-dev/aflr/internal/assign"
	"github.com/aflr-dev/aflr/internal/compose"
	"github.com/aflr-dev/aflr/internal/probe"
	"github.com/aflr-dev/aflr/internal/types"
)

// runGen resolves a CampaignSpec, probes the environment, assigns flags to
// every worker, and prints the composed afl-fuzz command lines without
// launching anything. This is what `aflr run` does internally before it
// calls the Session Launcher.
func runGen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	cf := &campaignFlags{}
	registerCampaignFlags(fs, cf)
	if err := fs.Parse(args); err != nil {
		return err
	}

	spec, _, err := cf.resolve()
	if err != nil {
		return err
	}

	snap, err := probe.Probe(spec.EngineBinary)
	if err != nil {
		return err
	}

	if warning := capWorkersForSeeds(&spec); warning != "" {
		fmt.Println("warning:", warning)
	}

	plans, err := assign.Assign(spec, snap)
	if err != nil {
		return err
	}

	for _, plan := range plans {
		cmd := compose.Build(spec, plan)
		fmt.Printf("# %s\n%s\n\n", compose.Summary(plan), compose.Render(cmd))
	}

	return nil
}

// capWorkersForSeeds lowers spec.Workers in place when it exceeds the
// available seed count, returning a human-readable warning when it does.
// Both `gen` and `run` call this before assign.Assign so that, in normal CLI
// use, a caller never actually hits assign's own stricter InvalidSpec check
// for this condition — that check exists as a safety net for direct callers
// of the assign package (tests, or a future programmatic caller) that skip
// this step.
func capWorkersForSeeds(spec *types.CampaignSpec) string {
	count, err := countSeeds(spec.SeedDir)
	if err != nil {
		return ""
	}
	workers, warning := probe.CapWorkers(spec.Workers, count)
	spec.Workers = workers
	return warning
}

func countSeeds(dir string) (int, error) {
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
