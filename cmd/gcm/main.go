package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"

	"github.com/gessage/gcm/internal/cli"
)

func main() {
	app := cli.NewApp()

	// Ctrl-C cancels in-flight provider calls.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}
