// Command aflr is the entry point for every subcommand: gen, run, tui, cov,
// kill, and history. The run subcommand bootstraps a small fx.App scoped to
// its own ambient services, following the teacher's cmd/b3fuzz/main.go shape
// (fx.Provide the ambient services) but per invocation instead of for one
// long-running service; the other subcommands construct what they need
// directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aflr-dev/aflr/internal/apperr"

	_ "go.uber.org/automaxprocs"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: aflr <gen|run|tui|cov|kill|history> [flags]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	installSignalHandler(cancel)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "gen":
		err = runGen(ctx, os.Args[2:])
	case "run":
		err = runRun(ctx, os.Args[2:])
	case "tui":
		err = runTUI(ctx, os.Args[2:])
	case "cov":
		err = runCov(ctx, os.Args[2:])
	case "kill":
		err = runKill(ctx, os.Args[2:])
	case "history":
		err = runHistory(ctx, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "aflr:", err)
	}
	os.Exit(apperr.ExitCode(err))
}
