package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flipnote.app/cli/internal/interfaces/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.CLIContainer{})
	cancel()
	os.Exit(code)
}
