// cmd/klimax/main.go
package main

import (
	klimax "github.com/mwiater/klimax/internal/commands"
)

// Build-time variables injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Function seams so tests can verify the wiring without running the CLI.
var (
	setVersionInfo = klimax.SetVersionInfo
	executeCmd     = klimax.Execute
)

// main starts the klimax CLI application by delegating to the
// cobra root command defined in the klimax commands package. It does
// not take any arguments and does not return a value.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
