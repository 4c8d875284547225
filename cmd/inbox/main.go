// Command inbox triages emails, drafts replies with an LLM and refines its
// prompt templates from human feedback.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Protocol-Lattice/inbox-agent/src/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates configuration failures from everything else.
func exitCode(err error) int {
	var cerr *config.CredentialError
	if errors.As(err, &cerr) {
		return 2
	}
	return 1
}
