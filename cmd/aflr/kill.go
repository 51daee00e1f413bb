package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/aflr-dev/aflr/internal/apperr"
	"github.com/aflr-dev/aflr/internal/session"
	"github.com/aflr-dev/aflr/internal/types"
)

// runKill terminates a running tmux/screen session by name.
func runKill(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("kill", flag.ExitOnError)
	backend := fs.String("backend", "tmux", "multiplexer backend: tmux or screen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return &apperr.InvalidSpec{Reason: "kill requires a session name argument"}
	}

	if err := session.Kill(types.Backend(*backend), fs.Arg(0)); err != nil {
		return err
	}
	fmt.Println("killed session", fs.Arg(0))
	return nil
}
