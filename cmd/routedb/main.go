// Command routedb applies the route database's migration units.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aqasim81/routedb/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
