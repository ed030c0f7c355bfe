package main

// Entry point: runs the Cobra CLI and exits non-zero on startup failures

import (
	"fmt"
	"os"

	"balance-watch/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
