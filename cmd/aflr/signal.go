package main

import (
	"os"
	"os/signal"
	"syscall"
)

// installSignalHandler cancels cancel on SIGINT/SIGTERM, giving every
// subcommand's context-scoped work a chance to tear down cleanly (the
// Monitor's OnStop in particular writes the final campaign summary on this
// path).
func installSignalHandler(cancel func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
}
