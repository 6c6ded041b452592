package main

import (
	"os"

	"github.com/hooplab/goatindex/cmd/goat/commands"
)

// main is the entry point for the goatindex CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
