// Command atomfill turns geometry scripts into meshes and crystal lattice
// atom fills.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	// An interrupt cancels script evaluation and the fill in progress.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "atomfill:", err)
		os.Exit(1)
	}
}
