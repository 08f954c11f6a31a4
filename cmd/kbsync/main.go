package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/kbsync/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Bootstrap(); err != nil {
		fmt.Fprintf(os.Stderr, "kbsync: %v\n", err)
		os.Exit(1)
	}

	// Cobra prints the error itself; just set the exit code.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
