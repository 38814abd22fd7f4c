package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "alertsc:", err)
		os.Exit(1)
	}
}
