// Package main provides the flowlogic CLI: resolve the wiring of a project
// snapshot and compile its flows into a logic bundle.
package main

import (
	"fmt"
	"os"
)

// Build information set during build
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
