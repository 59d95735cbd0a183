package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/passd/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx, os.Args[1:])

	cancel()
	os.Exit(code)
}
