// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/ghostwalk/cmd"
)

// main is the entry point for the ghostwalk CLI. A first SIGINT or SIGTERM
// cancels the run context so in-flight sessions finish their session_end
// records; a second signal kills the process outright.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
