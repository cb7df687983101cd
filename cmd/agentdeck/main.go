// Package main is the entry point for agentdeck.
package main

import (
	"os"

	"github.com/dshills/agentdeck/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version = version
	return cli.Execute(os.Args[1:], cli.Options{})
}
