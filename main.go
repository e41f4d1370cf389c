// Package main is the entry point for pktpeek, a heuristic decoder for
// undocumented binary protocols.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktpeek/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
