package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error("check failed", "error", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a malformed address and 1 for anything else.
func exitCode(err error) int {
	if errors.Is(err, types.ErrInvalidAddress) {
		return 2
	}
	return 1
}
