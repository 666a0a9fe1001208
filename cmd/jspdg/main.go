// Package main implements the jspdg CLI.
// It extracts program dependence graphs from JavaScript and post-processes
// them into partitions and text slices.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/l3aro/jspdg/cmd/jspdg/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.SetBuildInfo(version, buildTime)

	commands.RootCmd.Flags().BoolP("version", "v", false, "Print version information")
	commands.RootCmd.SetVersionTemplate(`jspdg version {{.Version}}
`)
	commands.RootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
