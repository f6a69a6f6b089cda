// Command portscan is the CLI entry point for the TCP connect scanner.
package main

import (
	"github.com/r1b/port-scanner/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
