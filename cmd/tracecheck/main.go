// tracecheck - collect OTLP traces and assert on what an instrumented
// process exported
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tracecheck: %v\n", err)
		stop()
		os.Exit(1)
	}
}
