package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/monitor"
)

// runHistory prints the last few campaigns recorded against a solution
// directory's .aflr-history.jsonl, oldest first, matching the ordering
// monitor.LoadHistory returns.
func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 5, "number of past campaigns to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return &apperr.InvalidSpec{Reason: "history requires an output directory argument"}
	}
	solutionDir := fs.Arg(0)

	entries, err := monitor.LoadHistory(solutionDir, *n)
	if err != nil {
		return &apperr.IoError{Path: solutionDir, Err: err}
	}
	if len(entries) == 0 {
		fmt.Println("no recorded campaigns under", solutionDir)
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  started %s  duration %s  execs %d  crashes %d  hangs %d  exec/s %.1f  workers %d\n",
			e.SessionName, e.StartedAt.Format("2006-01-02 15:04:05"), e.Duration.Round(1e9),
			e.TotalExecs, e.UniqueCrashes, e.UniqueHangs, e.FinalExecRate, e.WorkerCount)
	}
	return nil
}
