// Package main is the sparkq entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/mr-karan/sparkq/cmd/sparkq/commands"
)

// Set through -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetPrefix("sparkq")
	log.SetReportTimestamp(false)

	// serve shuts down on SIGINT/SIGTERM through this context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.New(version, commit, date).Run(ctx, os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
